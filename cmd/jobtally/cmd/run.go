package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"jobtally/internal/export"
	"jobtally/internal/fetch"
	"jobtally/internal/gmail"
	"jobtally/internal/query"
	"jobtally/internal/report"
	"jobtally/internal/store"
	"jobtally/internal/tui"
)

var (
	runDays      int
	runNoTUI     bool
	runNoCharts  bool
	runNoCSV     bool
	runNoArchive bool
	runOutDir    string
)

var errRunInterrupted = errors.New("run interrupted")

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Count job application emails and export the report",
	Long: `Count job application emails over the look-back window.

Every phrase is counted on its own, then the combined query is listed once
to get the number of distinct messages and their receipt times. The result
is shown in a terminal view and written as CSV, PNG charts and an archive
entry.

Examples:
  jobtally run
  jobtally run --days 90 --no-tui
  jobtally run --out ./reports --no-charts`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		window := cfg.Search.WindowDays
		if cmd.Flags().Changed("days") {
			if runDays < 0 {
				return fmt.Errorf("--days must be >= 0, got %d", runDays)
			}
			window = runDays
		}
		outDir := cfg.Output.Dir
		if runOutDir != "" {
			outDir = runOutDir
		}

		// Credentials are required before any query is sent.
		auth, err := newAuthorizer()
		if err != nil {
			return err
		}
		svc, err := auth.NewService(ctx)
		if err != nil {
			return wrapOAuthError(err)
		}

		pipeline, err := newPipeline(gmail.NewAPI(svc, cfg.Gmail.RateLimitQPS), window)
		if err != nil {
			return err
		}

		var r report.Report
		if runNoTUI {
			pipeline.Progress = logProgress(logger)
			r = pipeline.Run(ctx)
			if err := ctx.Err(); err != nil {
				return err
			}
			printSummary(cmd.OutOrStdout(), r)
		} else {
			var ok bool
			r, ok, err = runWithTUI(ctx, pipeline)
			if err != nil {
				return err
			}
			if !ok {
				if err := ctx.Err(); err != nil {
					return err
				}
				return errRunInterrupted
			}
		}

		return writeSinks(ctx, cmd.OutOrStdout(), r, outDir)
	},
}

func newPipeline(api *gmail.API, window int) (*report.Pipeline, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	mailbox := cfg.Search.Mailbox
	return &report.Pipeline{
		Taxonomy:   cfg.Taxonomy(),
		WindowDays: window,
		Builder:    query.NewBuilder(loc),
		Retriever: &fetch.Retriever{
			Lister:  api,
			Mailbox: mailbox,
			OnPage:  logPages(logger),
		},
		Resolver: &fetch.Resolver{Getter: api, Mailbox: mailbox, Location: loc},
		Logger:   logger,
	}, nil
}

// runWithTUI runs the pipeline behind the terminal view. Logs go to a file
// in the home directory while the alternate screen is active.
func runWithTUI(ctx context.Context, pipeline *report.Pipeline) (report.Report, bool, error) {
	logPath := filepath.Join(cfg.HomeDir, "jobtally.log")
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return report.Report{}, false, fmt.Errorf("open log file: %w", err)
	}
	defer logFile.Close()
	useLogger(pipeline, log.NewWithOptions(logFile, log.Options{
		Level:           logger.GetLevel(),
		ReportTimestamp: true,
	}))

	appModel := tui.NewAppModel(ctx, func(ctx context.Context, progress func(report.Progress)) report.Report {
		p := *pipeline
		p.Progress = progress
		return p.Run(ctx)
	})
	p := tea.NewProgram(&appModel, tea.WithAltScreen(), tea.WithContext(ctx))
	appModel.SetProgram(p)
	finalModel, err := p.Run()
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return report.Report{}, false, fmt.Errorf("terminal view: %w", err)
	}
	m, ok := finalModel.(*tui.AppModel)
	if !ok {
		return report.Report{}, false, nil
	}
	r, done := m.Report()
	return r, done, nil
}

func logPages(l *log.Logger) func(query.Query, int, int) {
	return func(q query.Query, page int, refs int) {
		l.Debug("listed page", "query", q, "page", page, "refs", refs)
	}
}

// useLogger sends every log line of the pipeline, page hooks included, to l.
func useLogger(p *report.Pipeline, l *log.Logger) {
	p.Logger = l
	if p.Retriever != nil {
		r := *p.Retriever
		r.OnPage = logPages(l)
		p.Retriever = &r
	}
}

// logProgress reports pipeline progress as log lines, at most one per 10%
// of the date resolution stage.
func logProgress(logger *log.Logger) func(report.Progress) {
	lastDecile := -1
	return func(p report.Progress) {
		switch p.Stage {
		case report.StagePhrases:
			if p.Phrase != nil {
				logger.Info("phrase counted", "phrase", p.Phrase.Phrase.Text, "count", p.Phrase.Count, "done", p.Done, "of", p.Total)
			}
		case report.StageCombined:
			logger.Info("listing combined query")
		case report.StageDates:
			if p.Total == 0 {
				return
			}
			decile := p.Done * 10 / p.Total
			if decile != lastDecile {
				lastDecile = decile
				logger.Info("resolving dates", "done", p.Done, "of", p.Total)
			}
		}
	}
}

// writeSinks exports r. A failing sink is reported and the remaining sinks
// still run.
func writeSinks(ctx context.Context, out io.Writer, r report.Report, outDir string) error {
	var errs []error

	if (cfg.Output.CSV && !runNoCSV) || (cfg.Output.Charts && !runNoCharts) {
		if err := os.MkdirAll(outDir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}

	if cfg.Output.CSV && !runNoCSV {
		path, err := export.SaveCSV(outDir, r)
		if err != nil {
			logger.Error("csv export failed", "error", err)
			errs = append(errs, err)
		} else {
			fmt.Fprintf(out, "CSV saved: %s\n", path)
		}
	}

	if cfg.Output.Charts && !runNoCharts {
		paths, err := export.SaveCharts(outDir, r)
		for _, p := range paths {
			fmt.Fprintf(out, "Chart saved: %s\n", p)
		}
		if err != nil {
			logger.Error("chart export failed", "error", err)
			errs = append(errs, err)
		}
	}

	if cfg.Output.Archive && !runNoArchive {
		id, err := archiveReport(ctx, r)
		if err != nil {
			logger.Error("archive failed", "error", err)
			errs = append(errs, err)
		} else {
			fmt.Fprintf(out, "Archived as run %s\n", id)
		}
	}

	return errors.Join(errs...)
}

func archiveReport(ctx context.Context, r report.Report) (string, error) {
	s, err := store.NewSQLiteStore(cfg.DatabasePath())
	if err != nil {
		return "", fmt.Errorf("open archive: %w", err)
	}
	defer s.Close()

	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	return s.SaveReport(saveCtx, r)
}

func init() {
	runCmd.Flags().IntVar(&runDays, "days", 0, "look-back window in days (default from config)")
	runCmd.Flags().BoolVar(&runNoTUI, "no-tui", false, "log progress and print a summary instead of the terminal view")
	runCmd.Flags().BoolVar(&runNoCharts, "no-charts", false, "skip PNG charts")
	runCmd.Flags().BoolVar(&runNoCSV, "no-csv", false, "skip the CSV export")
	runCmd.Flags().BoolVar(&runNoArchive, "no-archive", false, "do not archive the run")
	runCmd.Flags().StringVar(&runOutDir, "out", "", "output directory for CSV and charts (default from config)")
	rootCmd.AddCommand(runCmd)
}
