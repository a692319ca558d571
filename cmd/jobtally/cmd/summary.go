package cmd

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"

	"jobtally/internal/aggregate"
	"jobtally/internal/report"
)

// printSummary writes the plain-text form of r used outside the terminal view.
func printSummary(out io.Writer, r report.Report) {
	fmt.Fprintf(out, "\nJob applications over the last %d days (since %s)\n\n",
		r.WindowDays, r.Since.Format("2006-01-02"))

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PHRASE\tSCOPE\tCOUNT")
	fmt.Fprintln(w, "──────\t─────\t─────")
	for _, pc := range r.Phrases {
		fmt.Fprintf(w, "%s\t%s\t%s\n", pc.Phrase.Text, pc.Phrase.Scope, humanize.Comma(int64(pc.Count)))
	}
	w.Flush()

	fmt.Fprintf(out, "\nPhrase matches (overlapping): %s\n", humanize.Comma(int64(r.PhraseSum())))
	fmt.Fprintf(out, "Distinct applications:        %s\n", humanize.Comma(int64(r.Total)))
	if r.Skipped > 0 {
		fmt.Fprintf(out, "Messages without a date:      %s\n", humanize.Comma(int64(r.Skipped)))
	}
	if len(r.Failed) > 0 {
		fmt.Fprintf(out, "Failed queries (counted 0):   %s\n", strings.Join(r.Failed, ", "))
	}

	if keys := r.Months.Keys(); len(keys) > 0 {
		fmt.Fprintln(out)
		w = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "MONTH\tCOUNT")
		for _, k := range keys {
			fmt.Fprintf(w, "%s\t%d\n", k, r.Months[k])
		}
		w.Flush()
	}

	if r.Weekdays.Total() > 0 {
		fmt.Fprintln(out)
		w = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "WEEKDAY\tCOUNT")
		for i, n := range r.Weekdays {
			fmt.Fprintf(w, "%s\t%d\n", aggregate.WeekdayNames[i], n)
		}
		w.Flush()
	}

	if r.Hours.Total() > 0 {
		fmt.Fprintln(out)
		w = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "HOUR\tCOUNT")
		for h, n := range r.Hours {
			fmt.Fprintf(w, "%02d:00\t%d\n", h, n)
		}
		w.Flush()
	}
}
