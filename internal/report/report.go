// Package report assembles phrase counts and temporal aggregates into a
// single immutable Report and drives the pipeline that produces one.
package report

import (
	"time"

	"jobtally/internal/aggregate"
	"jobtally/internal/model"
	"jobtally/internal/query"
)

// CombinedMarker identifies the combined taxonomy query in Report.Failed.
const CombinedMarker = "*"

// PhraseCount is the diagnostic count of one phrase.
type PhraseCount struct {
	Phrase model.Phrase
	Count  int
}

// Report is the outcome of one run. Sinks receive it by value and must
// treat it as read-only.
type Report struct {
	GeneratedAt time.Time
	Since       time.Time
	WindowDays  int
	Query       query.Query

	// Total is the number of distinct messages matched by the combined
	// query. It is not the sum of Phrases.
	Total   int
	Phrases []PhraseCount // taxonomy order

	Months     aggregate.Monthly
	Weekdays   aggregate.Weekdays
	Hours      aggregate.Hours
	Cumulative []aggregate.Point

	Resolved int // messages with a receipt time
	Skipped  int // messages dropped by the date resolver

	// Failed lists phrases whose listing failed and therefore count 0;
	// CombinedMarker stands for the combined query.
	Failed []string
}

// Inputs are the upstream values a Report is assembled from.
type Inputs struct {
	GeneratedAt time.Time
	Since       time.Time
	WindowDays  int
	Query       query.Query
	Total       int
	Phrases     []PhraseCount
	Times       []time.Time
	Skipped     int
	Failed      []string
}

// Assemble builds a Report. It cannot fail; upstream failures are already
// embedded in the inputs as zero or partial values.
func Assemble(in Inputs) Report {
	s := aggregate.Summarize(in.Times)
	phrases := make([]PhraseCount, len(in.Phrases))
	copy(phrases, in.Phrases)
	var failed []string
	if len(in.Failed) > 0 {
		failed = append(failed, in.Failed...)
	}
	return Report{
		GeneratedAt: in.GeneratedAt,
		Since:       in.Since,
		WindowDays:  in.WindowDays,
		Query:       in.Query,
		Total:       in.Total,
		Phrases:     phrases,
		Months:      s.Months,
		Weekdays:    s.Weekdays,
		Hours:       s.Hours,
		Cumulative:  s.Cumulative,
		Resolved:    len(in.Times),
		Skipped:     in.Skipped,
		Failed:      failed,
	}
}

// PhraseSum is the sum of per-phrase counts. It exceeds Total whenever
// phrases overlap on the same message.
func (r Report) PhraseSum() int {
	n := 0
	for _, pc := range r.Phrases {
		n += pc.Count
	}
	return n
}

// CombinedFailed reports whether the combined query failed, making Total
// and the aggregates unreliable.
func (r Report) CombinedFailed() bool {
	for _, f := range r.Failed {
		if f == CombinedMarker {
			return true
		}
	}
	return false
}
