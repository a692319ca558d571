package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"jobtally/internal/aggregate"
	"jobtally/internal/model"
	"jobtally/internal/query"
	"jobtally/internal/report"

	_ "modernc.org/sqlite"
)

// ErrRunNotFound is returned when no archived run has the requested id.
var ErrRunNotFound = errors.New("run not found")

const timeLayout = time.RFC3339

// RunSummary is one row of the run history.
type RunSummary struct {
	ID          string
	GeneratedAt time.Time
	WindowDays  int
	Total       int
	Resolved    int
	Skipped     int
	Failed      int
}

// SQLiteStore archives finished reports in a local SQLite database. Runs
// never read from it; every run recomputes from the mailbox.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at the given path and runs migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteStore{db: db}, nil
}

func migrate(db *sql.DB) error {
	const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id           TEXT PRIMARY KEY,
	generated_at TEXT NOT NULL,
	generated_ms INTEGER NOT NULL,
	since        TEXT NOT NULL,
	window_days  INTEGER NOT NULL,
	query        TEXT NOT NULL DEFAULT '',
	total        INTEGER NOT NULL,
	resolved     INTEGER NOT NULL,
	skipped      INTEGER NOT NULL,
	failed       TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS phrase_counts (
	run_id   TEXT NOT NULL,
	position INTEGER NOT NULL,
	phrase   TEXT NOT NULL,
	scope    TEXT NOT NULL,
	count    INTEGER NOT NULL,
	PRIMARY KEY (run_id, position)
);

CREATE TABLE IF NOT EXISTS bucket_counts (
	run_id TEXT NOT NULL,
	kind   TEXT NOT NULL,
	bucket TEXT NOT NULL,
	count  INTEGER NOT NULL,
	PRIMARY KEY (run_id, kind, bucket)
);

CREATE TABLE IF NOT EXISTS cumulative_points (
	run_id   TEXT NOT NULL,
	position INTEGER NOT NULL,
	at       TEXT NOT NULL,
	total    INTEGER NOT NULL,
	PRIMARY KEY (run_id, position)
);
`
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Bucket kinds in bucket_counts.
const (
	kindMonth   = "month"
	kindWeekday = "weekday"
	kindHour    = "hour"
)

// SaveReport archives r under a new run id.
func (s *SQLiteStore) SaveReport(ctx context.Context, r report.Report) (string, error) {
	id := uuid.NewString()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, generated_at, generated_ms, since, window_days, query, total, resolved, skipped, failed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, r.GeneratedAt.Format(timeLayout), r.GeneratedAt.UnixMilli(), r.Since.Format(timeLayout), r.WindowDays,
		r.Query.String(), r.Total, r.Resolved, r.Skipped, strings.Join(r.Failed, "\n"))
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}

	phraseStmt, err := tx.PrepareContext(ctx,
		"INSERT INTO phrase_counts (run_id, position, phrase, scope, count) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return "", err
	}
	defer phraseStmt.Close()
	for i, pc := range r.Phrases {
		if _, err := phraseStmt.ExecContext(ctx, id, i, pc.Phrase.Text, pc.Phrase.Scope.String(), pc.Count); err != nil {
			return "", fmt.Errorf("insert phrase count: %w", err)
		}
	}

	bucketStmt, err := tx.PrepareContext(ctx,
		"INSERT INTO bucket_counts (run_id, kind, bucket, count) VALUES (?, ?, ?, ?)")
	if err != nil {
		return "", err
	}
	defer bucketStmt.Close()
	insertBucket := func(kind, bucket string, n int) error {
		if _, err := bucketStmt.ExecContext(ctx, id, kind, bucket, n); err != nil {
			return fmt.Errorf("insert %s bucket: %w", kind, err)
		}
		return nil
	}
	for _, k := range r.Months.Keys() {
		if err := insertBucket(kindMonth, k, r.Months[k]); err != nil {
			return "", err
		}
	}
	for i, n := range r.Weekdays {
		if err := insertBucket(kindWeekday, fmt.Sprint(i), n); err != nil {
			return "", err
		}
	}
	for h, n := range r.Hours {
		if err := insertBucket(kindHour, fmt.Sprint(h), n); err != nil {
			return "", err
		}
	}

	pointStmt, err := tx.PrepareContext(ctx,
		"INSERT INTO cumulative_points (run_id, position, at, total) VALUES (?, ?, ?, ?)")
	if err != nil {
		return "", err
	}
	defer pointStmt.Close()
	for i, p := range r.Cumulative {
		if _, err := pointStmt.ExecContext(ctx, id, i, p.At.Format(timeLayout), p.Total); err != nil {
			return "", fmt.Errorf("insert cumulative point: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}
	return id, nil
}

// ListRuns returns archived runs, newest first.
func (s *SQLiteStore) ListRuns(ctx context.Context) ([]RunSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, generated_at, window_days, total, resolved, skipped, failed FROM runs ORDER BY generated_ms DESC, id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		var (
			rs             RunSummary
			generated, fld string
		)
		if err := rows.Scan(&rs.ID, &generated, &rs.WindowDays, &rs.Total, &rs.Resolved, &rs.Skipped, &fld); err != nil {
			return nil, err
		}
		if rs.GeneratedAt, err = time.Parse(timeLayout, generated); err != nil {
			return nil, fmt.Errorf("parse generated_at of %s: %w", rs.ID, err)
		}
		rs.Failed = len(splitFailed(fld))
		runs = append(runs, rs)
	}
	return runs, rows.Err()
}

// LoadReport rebuilds an archived report.
func (s *SQLiteStore) LoadReport(ctx context.Context, id string) (report.Report, error) {
	var (
		r                       report.Report
		generated, since, q, fl string
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT generated_at, since, window_days, query, total, resolved, skipped, failed FROM runs WHERE id = ?", id).
		Scan(&generated, &since, &r.WindowDays, &q, &r.Total, &r.Resolved, &r.Skipped, &fl)
	if errors.Is(err, sql.ErrNoRows) {
		return report.Report{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return report.Report{}, err
	}
	if r.GeneratedAt, err = time.Parse(timeLayout, generated); err != nil {
		return report.Report{}, fmt.Errorf("parse generated_at: %w", err)
	}
	if r.Since, err = time.Parse(timeLayout, since); err != nil {
		return report.Report{}, fmt.Errorf("parse since: %w", err)
	}
	r.Query = query.Query(q)
	r.Failed = splitFailed(fl)

	if r.Phrases, err = s.loadPhrases(ctx, id); err != nil {
		return report.Report{}, err
	}
	if err := s.loadBuckets(ctx, id, &r); err != nil {
		return report.Report{}, err
	}
	if r.Cumulative, err = s.loadCumulative(ctx, id); err != nil {
		return report.Report{}, err
	}
	return r, nil
}

func (s *SQLiteStore) loadPhrases(ctx context.Context, id string) ([]report.PhraseCount, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT phrase, scope, count FROM phrase_counts WHERE run_id = ? ORDER BY position", id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []report.PhraseCount{}
	for rows.Next() {
		var (
			pc    report.PhraseCount
			scope string
		)
		if err := rows.Scan(&pc.Phrase.Text, &scope, &pc.Count); err != nil {
			return nil, err
		}
		if pc.Phrase.Scope, err = model.ParseScope(scope); err != nil {
			return nil, err
		}
		out = append(out, pc)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) loadBuckets(ctx context.Context, id string, r *report.Report) error {
	rows, err := s.db.QueryContext(ctx,
		"SELECT kind, bucket, count FROM bucket_counts WHERE run_id = ?", id)
	if err != nil {
		return err
	}
	defer rows.Close()

	r.Months = make(aggregate.Monthly)
	for rows.Next() {
		var (
			kind, bucket string
			n            int
		)
		if err := rows.Scan(&kind, &bucket, &n); err != nil {
			return err
		}
		switch kind {
		case kindMonth:
			r.Months[bucket] = n
		case kindWeekday, kindHour:
			var idx int
			if _, err := fmt.Sscan(bucket, &idx); err != nil {
				return fmt.Errorf("bad %s bucket %q: %w", kind, bucket, err)
			}
			if kind == kindWeekday && idx >= 0 && idx < len(r.Weekdays) {
				r.Weekdays[idx] = n
			}
			if kind == kindHour && idx >= 0 && idx < len(r.Hours) {
				r.Hours[idx] = n
			}
		}
	}
	return rows.Err()
}

func (s *SQLiteStore) loadCumulative(ctx context.Context, id string) ([]aggregate.Point, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT at, total FROM cumulative_points WHERE run_id = ? ORDER BY position", id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []aggregate.Point{}
	for rows.Next() {
		var (
			p  aggregate.Point
			at string
		)
		if err := rows.Scan(&at, &p.Total); err != nil {
			return nil, err
		}
		if p.At, err = time.Parse(timeLayout, at); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// DeleteRun removes an archived run and its rows.
func (s *SQLiteStore) DeleteRun(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, "DELETE FROM runs WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	for _, table := range []string{"phrase_counts", "bucket_counts", "cumulative_points"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE run_id = ?", id); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func splitFailed(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}
