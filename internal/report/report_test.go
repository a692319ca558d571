package report

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"jobtally/internal/fetch"
	"jobtally/internal/fetch/fetchtest"
	"jobtally/internal/model"
	"jobtally/internal/query"
)

var (
	foo = model.Phrase{Text: "foo", Scope: model.ScopeSubject}
	bar = model.Phrase{Text: "bar", Scope: model.ScopeAnywhere}
)

func frozenBuilder() query.Builder {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	return query.Builder{Now: func() time.Time { return now }, Location: time.UTC}
}

func newPipeline(m *fetchtest.MockAPI, tax model.Taxonomy, days int) *Pipeline {
	return &Pipeline{
		Taxonomy:   tax,
		WindowDays: days,
		Builder:    frozenBuilder(),
		Retriever:  &fetch.Retriever{Lister: m, Mailbox: "me"},
		Resolver:   &fetch.Resolver{Getter: m, Mailbox: "me", Location: time.UTC},
	}
}

func millisAtHour(h int) int64 {
	return time.Date(2024, 5, 20, h, 0, 0, 0, time.UTC).UnixMilli()
}

func TestRun_SinglePhraseTwoPages(t *testing.T) {
	m := fetchtest.NewMockAPI()
	tax := model.Taxonomy{foo}
	b := frozenBuilder()
	m.Pages[b.ForPhrase(foo, 10)] = [][]string{{"1", "2", "3"}, {"4", "5"}}

	r := newPipeline(m, tax, 10).Run(context.Background())
	if len(r.Phrases) != 1 || r.Phrases[0].Count != 5 {
		t.Fatalf("phrases = %+v", r.Phrases)
	}
}

func TestRun_HourAggregateAndTotal(t *testing.T) {
	m := fetchtest.NewMockAPI()
	tax := model.Taxonomy{foo, bar}
	b := frozenBuilder()
	combined := b.ForTaxonomy(tax, 30)
	m.Pages[combined] = [][]string{{"R1", "R2"}, {"R3"}}
	m.Millis["R1"] = millisAtHour(9)
	m.Millis["R2"] = millisAtHour(9)
	m.Millis["R3"] = millisAtHour(14)

	r := newPipeline(m, tax, 30).Run(context.Background())
	if r.Total != 3 {
		t.Fatalf("total = %d", r.Total)
	}
	if r.Hours[9] != 2 || r.Hours[14] != 1 || r.Hours.Total() != 3 {
		t.Fatalf("hours = %v", r.Hours)
	}
	if r.Query != combined {
		t.Fatalf("query = %q", r.Query)
	}
	if r.Resolved != 3 || r.Skipped != 0 {
		t.Fatalf("resolved=%d skipped=%d", r.Resolved, r.Skipped)
	}
}

func TestRun_MetadataFailureShrinksSample(t *testing.T) {
	m := fetchtest.NewMockAPI()
	tax := model.Taxonomy{foo}
	m.Pages[frozenBuilder().ForTaxonomy(tax, 30)] = [][]string{{"a", "b", "c"}}
	m.Millis["a"] = millisAtHour(1)
	m.Millis["b"] = millisAtHour(2)
	m.Millis["c"] = millisAtHour(3)
	m.MetadataErrs["b"] = errors.New("boom")

	r := newPipeline(m, tax, 30).Run(context.Background())
	if r.Total != 3 {
		t.Fatalf("total = %d; listing is unaffected by metadata failures", r.Total)
	}
	if r.Resolved != 2 || r.Skipped != 1 {
		t.Fatalf("resolved=%d skipped=%d", r.Resolved, r.Skipped)
	}
	if r.Hours.Total() != 2 || r.Weekdays.Total() != 2 || r.Months.Total() != 2 {
		t.Fatalf("aggregates not over 2 records: %v %v %v", r.Hours, r.Weekdays, r.Months)
	}
}

func TestRun_TotalIsNotPhraseSum(t *testing.T) {
	m := fetchtest.NewMockAPI()
	tax := model.Taxonomy{foo, bar}
	b := frozenBuilder()
	m.Pages[b.ForPhrase(foo, 7)] = [][]string{{"x", "y"}}
	m.Pages[b.ForPhrase(bar, 7)] = [][]string{{"y", "z"}}
	m.Pages[b.ForTaxonomy(tax, 7)] = [][]string{{"x", "y", "z"}}

	r := newPipeline(m, tax, 7).Run(context.Background())
	if r.Total != 3 || r.PhraseSum() != 4 {
		t.Fatalf("total=%d phraseSum=%d", r.Total, r.PhraseSum())
	}
	want := []PhraseCount{{Phrase: foo, Count: 2}, {Phrase: bar, Count: 2}}
	if diff := cmp.Diff(want, r.Phrases); diff != "" {
		t.Fatalf("phrases mismatch (-want +got):\n%s", diff)
	}
}

func TestRun_FailuresAreRecordedAndRunContinues(t *testing.T) {
	m := fetchtest.NewMockAPI()
	tax := model.Taxonomy{foo, bar}
	b := frozenBuilder()
	m.Pages[b.ForPhrase(bar, 7)] = [][]string{{"z"}}
	m.ListError[b.ForPhrase(foo, 7)] = errors.New("500")
	m.ListError[b.ForTaxonomy(tax, 7)] = errors.New("500")

	var stages []Stage
	p := newPipeline(m, tax, 7)
	p.Progress = func(pr Progress) { stages = append(stages, pr.Stage) }
	r := p.Run(context.Background())

	if r.Phrases[0].Count != 0 || r.Phrases[1].Count != 1 {
		t.Fatalf("phrases = %+v", r.Phrases)
	}
	if diff := cmp.Diff([]string{"foo", CombinedMarker}, r.Failed); diff != "" {
		t.Fatalf("failed mismatch (-want +got):\n%s", diff)
	}
	if !r.CombinedFailed() || r.Total != 0 || len(r.Months) != 0 || r.Hours.Total() != 0 {
		t.Fatalf("combined failure not fail-closed: %+v", r)
	}
	if len(m.MetadataCalls) != 0 {
		t.Fatalf("resolver ran after combined failure")
	}
	want := []Stage{StagePhrases, StagePhrases, StageCombined, StageDone}
	if diff := cmp.Diff(want, stages); diff != "" {
		t.Fatalf("stages mismatch (-want +got):\n%s", diff)
	}
}

func TestRun_EmptyTaxonomyNeverHitsProvider(t *testing.T) {
	m := fetchtest.NewMockAPI()
	m.DefaultPages = [][]string{{"everything"}}
	r := newPipeline(m, nil, 30).Run(context.Background())
	if r.Total != 0 || len(r.Phrases) != 0 || !r.Query.Matchless() {
		t.Fatalf("report = %+v", r)
	}
	if len(m.ListCalls) != 0 {
		t.Fatalf("provider called %d times", len(m.ListCalls))
	}
}

func TestAssemble_CopiesInputs(t *testing.T) {
	phrases := []PhraseCount{{Phrase: foo, Count: 1}}
	failed := []string{"foo"}
	r := Assemble(Inputs{Phrases: phrases, Failed: failed})
	phrases[0].Count = 99
	failed[0] = "changed"
	if r.Phrases[0].Count != 1 || r.Failed[0] != "foo" {
		t.Fatalf("report shares input slices: %+v", r)
	}
	if len(r.Weekdays) != 7 || len(r.Hours) != 24 {
		t.Fatal("dense aggregates missing")
	}
}
