package export

import (
	"bytes"
	"encoding/csv"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	chart "github.com/wcharczuk/go-chart/v2"

	"jobtally/internal/model"
	"jobtally/internal/report"
)

func testReport() report.Report {
	return report.Assemble(report.Inputs{
		GeneratedAt: time.Date(2024, 4, 2, 13, 4, 5, 0, time.UTC),
		Since:       time.Date(2024, 3, 3, 13, 4, 5, 0, time.UTC),
		WindowDays:  30,
		Total:       3,
		Phrases: []report.PhraseCount{
			{Phrase: model.Phrase{Text: "thank you for applying"}, Count: 2},
			{Phrase: model.Phrase{Text: "bewerbung"}, Count: 0},
			{Phrase: model.Phrase{Text: "application received", Scope: model.ScopeAnywhere}, Count: 1},
		},
		Times: []time.Time{
			time.Date(2024, 3, 4, 9, 15, 0, 0, time.UTC), // Monday
			time.Date(2024, 3, 6, 14, 0, 0, 0, time.UTC), // Wednesday
			time.Date(2024, 4, 1, 9, 30, 0, 0, time.UTC), // Monday
		},
	})
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, testReport()); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")

	head := []string{
		"Metric,Value,Notes",
		"Total Applications,3,Unique application emails found over the last 30 days.",
		"Analysis Start Date,2024-03-03,",
		"",
		"Analysis_Type,Time_Period,Count",
		"Monthly,2024-03,2",
		"Monthly,2024-04,1",
		"",
		"Analysis_Type,Time_Period,Count",
		"DayOfWeek,Monday,2",
		"DayOfWeek,Tuesday,0",
		"DayOfWeek,Wednesday,1",
	}
	if diff := cmp.Diff(head, lines[:len(head)]); diff != "" {
		t.Fatalf("csv head mismatch (-want +got):\n%s", diff)
	}

	tail := []string{
		"Hourly,23,0",
		"",
		"Phrase,Scope,Count",
		"thank you for applying,subject,2",
		"bewerbung,subject,0",
		"application received,anywhere,1",
	}
	if diff := cmp.Diff(tail, lines[len(lines)-len(tail):]); diff != "" {
		t.Fatalf("csv tail mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteCSV_Parses(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, testReport()); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	reader := csv.NewReader(&buf)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	hourly := 0
	for _, rec := range records {
		if rec[0] == "Hourly" {
			hourly++
		}
	}
	if hourly != 24 {
		t.Fatalf("expected 24 hourly rows, got %d", hourly)
	}
}

func TestSaveCSV(t *testing.T) {
	dir := t.TempDir()
	path, err := SaveCSV(dir, testReport())
	if err != nil {
		t.Fatalf("SaveCSV: %v", err)
	}
	if want := filepath.Join(dir, "job_application_data_20240402_130405.csv"); path != want {
		t.Fatalf("path = %s; want %s", path, want)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("stat: %v", err)
	}
}

func chartKinds(r report.Report) []string {
	var kinds []string
	for _, c := range charts(r) {
		kinds = append(kinds, c.kind)
	}
	return kinds
}

func TestChartsSkipEmptyData(t *testing.T) {
	all := []string{KindPhrases, KindMonthly, KindWeekday, KindHourly, KindCumulative}
	if diff := cmp.Diff(all, chartKinds(testReport())); diff != "" {
		t.Fatalf("kinds mismatch (-want +got):\n%s", diff)
	}

	empty := report.Assemble(report.Inputs{
		Phrases: []report.PhraseCount{{Phrase: model.Phrase{Text: "x"}, Count: 0}},
	})
	if kinds := chartKinds(empty); len(kinds) != 0 {
		t.Fatalf("expected no charts, got %v", kinds)
	}

	phrasesOnly := empty
	phrasesOnly.Phrases = []report.PhraseCount{{Phrase: model.Phrase{Text: "x"}, Count: 4}}
	if diff := cmp.Diff([]string{KindPhrases}, chartKinds(phrasesOnly)); diff != "" {
		t.Fatalf("kinds mismatch (-want +got):\n%s", diff)
	}
}

func TestPhraseChartDropsZeroCounts(t *testing.T) {
	g, ok := phraseChart(testReport())
	if !ok {
		t.Fatal("expected phrase chart")
	}
	var labels []string
	for _, b := range g.Bars {
		labels = append(labels, b.Label)
	}
	if diff := cmp.Diff([]string{"thank you for applying", "application received"}, labels); diff != "" {
		t.Fatalf("labels mismatch (-want +got):\n%s", diff)
	}
}

func TestChartsRenderPNG(t *testing.T) {
	for _, c := range charts(testReport()) {
		var buf bytes.Buffer
		if err := c.graph.Render(chart.PNG, &buf); err != nil {
			t.Fatalf("%s: Render: %v", c.kind, err)
		}
		if !bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG")) {
			t.Fatalf("%s: output is not a PNG", c.kind)
		}
	}
}

func TestSaveCharts(t *testing.T) {
	dir := t.TempDir()
	paths, err := SaveCharts(dir, testReport())
	if err != nil {
		t.Fatalf("SaveCharts: %v", err)
	}
	if len(paths) != 5 {
		t.Fatalf("expected 5 charts, got %d", len(paths))
	}
	want := filepath.Join(dir, "job_application_hourly_20240402_130405.png")
	if paths[3] != want {
		t.Fatalf("paths[3] = %s; want %s", paths[3], want)
	}
}

func TestSaveCharts_SingleMonth(t *testing.T) {
	r := report.Assemble(report.Inputs{
		GeneratedAt: time.Date(2024, 5, 28, 8, 0, 0, 0, time.UTC),
		Since:       time.Date(2024, 5, 21, 8, 0, 0, 0, time.UTC),
		WindowDays:  7,
		Total:       2,
		Times: []time.Time{
			time.Date(2024, 5, 20, 9, 0, 0, 0, time.UTC),
			time.Date(2024, 5, 27, 14, 0, 0, 0, time.UTC),
		},
	})
	dir := t.TempDir()
	paths, err := SaveCharts(dir, r)
	if err != nil {
		t.Fatalf("SaveCharts: %v", err)
	}
	want := []string{
		filepath.Join(dir, ChartName(KindMonthly, r)),
		filepath.Join(dir, ChartName(KindWeekday, r)),
		filepath.Join(dir, ChartName(KindHourly, r)),
		filepath.Join(dir, ChartName(KindCumulative, r)),
	}
	if diff := cmp.Diff(want, paths); diff != "" {
		t.Fatalf("paths mismatch (-want +got):\n%s", diff)
	}
}

type failingChart struct{}

func (failingChart) Render(chart.RendererProvider, io.Writer) error {
	return errors.New("boom")
}

func TestSaveCharts_ContinuesAfterFailure(t *testing.T) {
	r := testReport()
	g, _ := weekdayChart(r)
	list := []namedChart{
		{KindMonthly, failingChart{}},
		{KindWeekday, g},
	}
	dir := t.TempDir()
	paths, err := saveCharts(dir, r, list)
	if err == nil || !strings.Contains(err.Error(), "render monthly_trend chart: boom") {
		t.Fatalf("err = %v", err)
	}
	if diff := cmp.Diff([]string{filepath.Join(dir, ChartName(KindWeekday, r))}, paths); diff != "" {
		t.Fatalf("paths mismatch (-want +got):\n%s", diff)
	}
	if _, err := os.Stat(filepath.Join(dir, ChartName(KindMonthly, r))); !os.IsNotExist(err) {
		t.Fatalf("failed chart left a file behind: %v", err)
	}
}
