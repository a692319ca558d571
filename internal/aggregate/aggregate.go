// Package aggregate buckets receipt times by month, weekday and hour.
//
// Weekday and Hour are dense: every key of the domain is always present.
// Month is sparse: only months with at least one message appear, since the
// full span is not known without an explicit start and end.
package aggregate

import (
	"sort"
	"time"
)

// MonthLayout formats month keys. It sorts lexicographically in
// chronological order.
const MonthLayout = "2006-01"

// Monthly maps "YYYY-MM" to a count.
type Monthly map[string]int

// Keys returns the populated months in chronological order.
func (m Monthly) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Total sums all months.
func (m Monthly) Total() int {
	n := 0
	for _, v := range m {
		n += v
	}
	return n
}

// WeekdayNames lists the weekday buckets in Monday-first order.
var WeekdayNames = [7]string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// Weekdays holds counts indexed Monday=0 … Sunday=6.
type Weekdays [7]int

// Count returns the bucket for d.
func (w Weekdays) Count(d time.Weekday) int { return w[mondayFirst(d)] }

func (w Weekdays) Total() int {
	n := 0
	for _, v := range w {
		n += v
	}
	return n
}

// Hours holds counts indexed by hour of day 0–23.
type Hours [24]int

func (h Hours) Total() int {
	n := 0
	for _, v := range h {
		n += v
	}
	return n
}

// Point is one step of the cumulative series.
type Point struct {
	At    time.Time
	Total int
}

// ByMonth groups times by calendar month in each time's own location.
func ByMonth(times []time.Time) Monthly {
	out := make(Monthly)
	for _, t := range times {
		key := t.Format(MonthLayout)
		if _, ok := out[key]; !ok {
			out[key] = 0
		}
		out[key]++
	}
	return out
}

// ByWeekday groups times by day of week.
func ByWeekday(times []time.Time) Weekdays {
	var out Weekdays
	for _, t := range times {
		out[mondayFirst(t.Weekday())]++
	}
	return out
}

// ByHour groups times by hour of day.
func ByHour(times []time.Time) Hours {
	var out Hours
	for _, t := range times {
		out[t.Hour()]++
	}
	return out
}

// Cumulative returns the running total of times in chronological order.
// The input is not modified.
func Cumulative(times []time.Time) []Point {
	sorted := make([]time.Time, len(times))
	copy(sorted, times)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })
	out := make([]Point, len(sorted))
	for i, t := range sorted {
		out[i] = Point{At: t, Total: i + 1}
	}
	return out
}

// Summary bundles every reduction of one timestamp sequence.
type Summary struct {
	Months     Monthly
	Weekdays   Weekdays
	Hours      Hours
	Cumulative []Point
}

// Summarize runs all reductions over times.
func Summarize(times []time.Time) Summary {
	return Summary{
		Months:     ByMonth(times),
		Weekdays:   ByWeekday(times),
		Hours:      ByHour(times),
		Cumulative: Cumulative(times),
	}
}

// time.Weekday is Sunday=0.
func mondayFirst(d time.Weekday) int {
	return (int(d) + 6) % 7
}
