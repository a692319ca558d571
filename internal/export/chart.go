package export

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	chart "github.com/wcharczuk/go-chart/v2"

	"jobtally/internal/aggregate"
	"jobtally/internal/report"
)

// Chart kinds, used in file names.
const (
	KindPhrases    = "count_breakdown"
	KindMonthly    = "monthly_trend"
	KindWeekday    = "day_of_week"
	KindHourly     = "hourly"
	KindCumulative = "cumulative"
)

const (
	chartHeight = 512
	barWidth    = 40
	barSpacing  = 16
)

type renderer interface {
	Render(rp chart.RendererProvider, w io.Writer) error
}

type namedChart struct {
	kind  string
	graph renderer
}

// ChartName returns the file name of the chart of the given kind for r.
func ChartName(kind string, r report.Report) string {
	return "job_application_" + kind + "_" + r.GeneratedAt.Format(StampLayout) + ".png"
}

// SaveCharts renders every chart that has data into dir and returns the
// written paths. Charts without data are skipped. A chart that fails to
// render does not stop the others; all failures are joined in the error.
func SaveCharts(dir string, r report.Report) ([]string, error) {
	return saveCharts(dir, r, charts(r))
}

func saveCharts(dir string, r report.Report, list []namedChart) ([]string, error) {
	var (
		paths []string
		errs  []error
	)
	for _, c := range list {
		path := filepath.Join(dir, ChartName(c.kind, r))
		if err := savePNG(path, c.graph); err != nil {
			errs = append(errs, fmt.Errorf("render %s chart: %w", c.kind, err))
			continue
		}
		paths = append(paths, path)
	}
	return paths, errors.Join(errs...)
}

func savePNG(path string, g renderer) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := g.Render(chart.PNG, f); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	return f.Close()
}

func charts(r report.Report) []namedChart {
	var out []namedChart
	if g, ok := phraseChart(r); ok {
		out = append(out, namedChart{KindPhrases, g})
	}
	if g, ok := monthlyChart(r); ok {
		out = append(out, namedChart{KindMonthly, g})
	}
	if g, ok := weekdayChart(r); ok {
		out = append(out, namedChart{KindWeekday, g})
	}
	if g, ok := hourlyChart(r); ok {
		out = append(out, namedChart{KindHourly, g})
	}
	if g, ok := cumulativeChart(r); ok {
		out = append(out, namedChart{KindCumulative, g})
	}
	return out
}

// phraseChart plots non-zero phrase counts in taxonomy order.
func phraseChart(r report.Report) (chart.BarChart, bool) {
	var bars []chart.Value
	for _, pc := range r.Phrases {
		if pc.Count > 0 {
			bars = append(bars, chart.Value{Label: pc.Phrase.Text, Value: float64(pc.Count)})
		}
	}
	if len(bars) == 0 {
		return chart.BarChart{}, false
	}
	return barChart(fmt.Sprintf("Job Application Email Matches by Keyword (Last %d Days)", r.WindowDays), bars), true
}

func weekdayChart(r report.Report) (chart.BarChart, bool) {
	if r.Weekdays.Total() == 0 {
		return chart.BarChart{}, false
	}
	bars := make([]chart.Value, 0, len(r.Weekdays))
	for i, n := range r.Weekdays {
		bars = append(bars, chart.Value{Label: aggregate.WeekdayNames[i][:3], Value: float64(n)})
	}
	return barChart(fmt.Sprintf("Applications by Day of Week (Last %d Days)", r.WindowDays), bars), true
}

func hourlyChart(r report.Report) (chart.BarChart, bool) {
	if r.Hours.Total() == 0 {
		return chart.BarChart{}, false
	}
	bars := make([]chart.Value, 0, len(r.Hours))
	for h, n := range r.Hours {
		bars = append(bars, chart.Value{Label: strconv.Itoa(h), Value: float64(n)})
	}
	return barChart(fmt.Sprintf("Applications by Hour of Day (Last %d Days)", r.WindowDays), bars), true
}

func barChart(title string, bars []chart.Value) chart.BarChart {
	top := 0.0
	for _, b := range bars {
		top = max(top, b.Value)
	}
	return chart.BarChart{
		Title:      title,
		Background: chart.Style{Padding: chart.Box{Top: 48}},
		Width:      max(1024, 120+len(bars)*(barWidth+barSpacing)),
		Height:     chartHeight,
		BarWidth:   barWidth,
		BarSpacing: barSpacing,
		YAxis:      chart.YAxis{Range: yRange(top)},
		Bars:       bars,
	}
}

// monthlyChart plots populated months in calendar order.
func monthlyChart(r report.Report) (chart.BarChart, bool) {
	keys := r.Months.Keys()
	if len(keys) == 0 {
		return chart.BarChart{}, false
	}
	bars := make([]chart.Value, 0, len(keys))
	for _, k := range keys {
		label := k
		if t, err := time.Parse(aggregate.MonthLayout, k); err == nil {
			label = t.Format("Jan 2006")
		}
		bars = append(bars, chart.Value{Label: label, Value: float64(r.Months[k])})
	}
	g := barChart(fmt.Sprintf("Monthly Job Application Trend (Last %d Days)", r.WindowDays), bars)
	g.YAxis.Name = "Number of Applications"
	return g, true
}

// cumulativeChart plots the running total against receipt time.
func cumulativeChart(r report.Report) (chart.Chart, bool) {
	points := r.Cumulative
	if len(points) == 0 {
		return chart.Chart{}, false
	}
	loc := points[0].At.Location()
	xs := make([]float64, len(points))
	ys := make([]float64, len(points))
	for i, p := range points {
		xs[i] = float64(p.At.UnixNano())
		ys[i] = float64(p.Total)
	}
	first, last := xs[0], xs[len(xs)-1]
	if last-first < float64(time.Hour) {
		first -= float64(12 * time.Hour)
		last += float64(12 * time.Hour)
	}
	return chart.Chart{
		Title:      fmt.Sprintf("Cumulative Job Applications (Last %d Days)", r.WindowDays),
		Background: chart.Style{Padding: chart.Box{Top: 48}},
		Width:      1200,
		Height:     chartHeight,
		XAxis: chart.XAxis{
			Name:  "Date",
			Range: &chart.ContinuousRange{Min: first, Max: last},
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return time.Unix(0, int64(f)).In(loc).Format("2006-01-02")
				}
				return ""
			},
		},
		YAxis: chart.YAxis{Name: "Total Applications", Range: yRange(ys[len(ys)-1])},
		Series: []chart.Series{
			chart.ContinuousSeries{
				Name:    "Cumulative",
				Style:   chart.Style{StrokeColor: chart.ColorGreen, StrokeWidth: 2},
				XValues: xs,
				YValues: ys,
			},
		},
	}, true
}

// yRange starts at zero and leaves headroom above the largest value.
func yRange(top float64) *chart.ContinuousRange {
	return &chart.ContinuousRange{Min: 0, Max: max(1, top*1.1)}
}
