package aggregate

import (
	"math/rand"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func at(y int, m time.Month, d, h int) time.Time {
	return time.Date(y, m, d, h, 15, 0, 0, time.UTC)
}

func TestByMonth_Sparse(t *testing.T) {
	times := []time.Time{
		at(2024, 1, 3, 9),
		at(2024, 1, 20, 9),
		at(2024, 3, 1, 0),
		at(2023, 12, 31, 23),
	}
	got := ByMonth(times)
	want := Monthly{"2023-12": 1, "2024-01": 2, "2024-03": 1}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("months mismatch (-want +got):\n%s", diff)
	}
	if _, ok := got["2024-02"]; ok {
		t.Fatal("empty month must not be present")
	}
	if diff := cmp.Diff([]string{"2023-12", "2024-01", "2024-03"}, got.Keys()); diff != "" {
		t.Fatalf("keys not chronological (-want +got):\n%s", diff)
	}
}

func TestByWeekday_MondayFirst(t *testing.T) {
	// 2024-01-01 was a Monday.
	times := []time.Time{at(2024, 1, 1, 8), at(2024, 1, 7, 8), at(2024, 1, 7, 9), at(2024, 1, 3, 8)}
	got := ByWeekday(times)
	want := Weekdays{1, 0, 1, 0, 0, 0, 2}
	if got != want {
		t.Fatalf("got %v want %v", got, want)
	}
	if got.Count(time.Sunday) != 2 || got.Count(time.Monday) != 1 {
		t.Fatalf("Count lookup broken: %v", got)
	}
}

func TestByHour(t *testing.T) {
	times := []time.Time{at(2024, 5, 1, 9), at(2024, 5, 2, 9), at(2024, 5, 3, 14)}
	got := ByHour(times)
	for h, n := range got {
		want := 0
		switch h {
		case 9:
			want = 2
		case 14:
			want = 1
		}
		if n != want {
			t.Fatalf("hour %d = %d; want %d", h, n, want)
		}
	}
}

func TestEmptyInputIsDenseZero(t *testing.T) {
	s := Summarize(nil)
	if len(s.Months) != 0 {
		t.Fatalf("months = %v", s.Months)
	}
	if len(s.Weekdays) != 7 || s.Weekdays.Total() != 0 {
		t.Fatalf("weekdays = %v", s.Weekdays)
	}
	if len(s.Hours) != 24 || s.Hours.Total() != 0 {
		t.Fatalf("hours = %v", s.Hours)
	}
	if len(s.Cumulative) != 0 {
		t.Fatalf("cumulative = %v", s.Cumulative)
	}
}

func TestTotalsAgree(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	base := time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)
	for n := 0; n < 200; n += 37 {
		times := make([]time.Time, n)
		for i := range times {
			times[i] = base.Add(time.Duration(rng.Int63n(int64(3 * 365 * 24 * time.Hour))))
		}
		s := Summarize(times)
		if s.Months.Total() != n || s.Weekdays.Total() != n || s.Hours.Total() != n {
			t.Fatalf("n=%d totals months=%d weekdays=%d hours=%d", n, s.Months.Total(), s.Weekdays.Total(), s.Hours.Total())
		}
		if n > 0 && s.Cumulative[n-1].Total != n {
			t.Fatalf("n=%d cumulative end %d", n, s.Cumulative[n-1].Total)
		}
		if diff := cmp.Diff(s, Summarize(times)); diff != "" {
			t.Fatalf("n=%d not idempotent:\n%s", n, diff)
		}
	}
}

func TestCumulative_SortsWithoutMutatingInput(t *testing.T) {
	in := []time.Time{at(2024, 2, 1, 0), at(2024, 1, 1, 0), at(2024, 3, 1, 0)}
	orig := append([]time.Time(nil), in...)
	got := Cumulative(in)
	want := []Point{
		{At: at(2024, 1, 1, 0), Total: 1},
		{At: at(2024, 2, 1, 0), Total: 2},
		{At: at(2024, 3, 1, 0), Total: 3},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("cumulative mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(orig, in); diff != "" {
		t.Fatalf("input mutated:\n%s", diff)
	}
}

func TestBucketsFollowLocation(t *testing.T) {
	// 23:30 UTC on a Sunday is 01:30 Monday in UTC+2.
	utc := time.Date(2024, 1, 7, 23, 30, 0, 0, time.UTC)
	local := utc.In(time.FixedZone("EET", 2*3600))
	if h := ByHour([]time.Time{local}); h[1] != 1 {
		t.Fatalf("hour bucket = %v", h)
	}
	if w := ByWeekday([]time.Time{local}); w[0] != 1 {
		t.Fatalf("weekday bucket = %v", w)
	}
	if m := ByMonth([]time.Time{local}); m["2024-01"] != 1 {
		t.Fatalf("month bucket = %v", m)
	}
}
