package report

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"jobtally/internal/fetch"
	"jobtally/internal/model"
	"jobtally/internal/query"
)

// Stage names the step a pipeline is in, for progress reporting.
type Stage string

const (
	StagePhrases  Stage = "phrases"
	StageCombined Stage = "combined"
	StageDates    Stage = "dates"
	StageDone     Stage = "done"
)

// Progress is sent to Pipeline.Progress as the run advances.
type Progress struct {
	Stage Stage
	Done  int
	Total int
	// Phrase is set during StagePhrases, after the phrase was counted.
	Phrase *PhraseCount
}

// Pipeline runs one report: a count per phrase, the combined listing, date
// resolution over the combined refs, then aggregation. Every provider call
// is sequential.
type Pipeline struct {
	Taxonomy   model.Taxonomy
	WindowDays int
	Builder    query.Builder
	Retriever  *fetch.Retriever
	Resolver   *fetch.Resolver
	Logger     *log.Logger
	Progress   func(Progress)
}

func (p *Pipeline) logger() *log.Logger {
	if p.Logger == nil {
		return log.New(io.Discard)
	}
	return p.Logger
}

func (p *Pipeline) emit(pr Progress) {
	if p.Progress != nil {
		p.Progress(pr)
	}
}

// Run executes the pipeline. Listing failures never abort the run: the
// affected count is 0 and the query is recorded in Report.Failed.
// Mail arriving between the per-phrase loop and the combined listing can
// make the two mutually inconsistent; no snapshot is taken.
func (p *Pipeline) Run(ctx context.Context) Report {
	logger := p.logger()
	now := time.Now
	if p.Builder.Now != nil {
		now = p.Builder.Now
	}
	in := Inputs{
		GeneratedAt: now(),
		Since:       p.Builder.Since(p.WindowDays),
		WindowDays:  p.WindowDays,
		Phrases:     make([]PhraseCount, 0, len(p.Taxonomy)),
	}

	for i, ph := range p.Taxonomy {
		q := p.Builder.ForPhrase(ph, p.WindowDays)
		n, err := p.Retriever.Count(ctx, q)
		if err != nil {
			logger.Warn("phrase query failed; counting 0", "phrase", ph.Text, "error", err)
			in.Failed = append(in.Failed, ph.Text)
		}
		pc := PhraseCount{Phrase: ph, Count: n}
		in.Phrases = append(in.Phrases, pc)
		logger.Debug("phrase counted", "phrase", ph.Text, "scope", ph.Scope, "count", n)
		p.emit(Progress{Stage: StagePhrases, Done: i + 1, Total: len(p.Taxonomy), Phrase: &pc})
	}

	in.Query = p.Builder.ForTaxonomy(p.Taxonomy, p.WindowDays)
	p.emit(Progress{Stage: StageCombined})
	refs, err := p.Retriever.Collect(ctx, in.Query)
	if err != nil {
		logger.Error("combined query failed; total and aggregates are empty", "error", err)
		in.Failed = append(in.Failed, CombinedMarker)
		refs = nil
	}
	in.Total = len(refs)
	logger.Info("combined query listed", "total", in.Total)

	if len(refs) > 0 {
		res := p.Resolver.Resolve(ctx, refs, func(fp fetch.Progress) {
			p.emit(Progress{Stage: StageDates, Done: fp.Done, Total: fp.Total})
		})
		for _, s := range res.Skipped {
			logger.Debug("message skipped", "id", s.Ref.ID, "reason", s.Reason, "error", s.Err)
		}
		if len(res.Skipped) > 0 {
			logger.Warn("some messages had no usable receipt time", "skipped", len(res.Skipped), "resolved", len(res.Records))
		}
		in.Times = res.Times()
		in.Skipped = len(res.Skipped)
	}

	r := Assemble(in)
	p.emit(Progress{Stage: StageDone, Done: r.Resolved, Total: r.Total})
	return r
}
