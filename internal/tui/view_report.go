package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"jobtally/internal/model"
	"jobtally/internal/report"
)

var headerStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.Color("39")).
	PaddingBottom(1)

var footerStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("241")).
	PaddingTop(1)

var (
	activeTabStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")).Underline(true).Padding(0, 1)
	inactiveTabStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Padding(0, 1)
	labelStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	warnStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
)

func renderTabs(active tab) string {
	parts := make([]string, 0, len(tabNames))
	for i, name := range tabNames {
		label := fmt.Sprintf("%d %s", i+1, name)
		if tab(i) == active {
			parts = append(parts, activeTabStyle.Render(label))
		} else {
			parts = append(parts, inactiveTabStyle.Render(label))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func reportFooter() string {
	return footerStyle.Render("tab/←/→: switch view  1-5: jump  ↑/↓: scroll  q: quit")
}

// renderSummary shows the headline numbers of a run.
func renderSummary(r report.Report) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("Job applications, last %d days", r.WindowDays)))
	b.WriteString("\n")

	row := func(label, value string) {
		b.WriteString(labelStyle.Render(fmt.Sprintf("%-22s", label)))
		b.WriteString(value)
		b.WriteString("\n")
	}
	row("Applications", humanize.Comma(int64(r.Total)))
	row("Phrase matches", humanize.Comma(int64(r.PhraseSum())))
	row("Dated messages", humanize.Comma(int64(r.Resolved)))
	if r.Skipped > 0 {
		row("Skipped (no date)", humanize.Comma(int64(r.Skipped)))
	}
	row("Since", r.Since.Format("2006-01-02"))
	if !r.GeneratedAt.IsZero() {
		row("Generated", fmt.Sprintf("%s (%s)", r.GeneratedAt.Format("2006-01-02 15:04"), humanize.Time(r.GeneratedAt)))
	}
	if busiest, n := busiestMonth(r); n > 0 {
		row("Busiest month", fmt.Sprintf("%s (%s)", busiest, humanize.Comma(int64(n))))
	}

	if r.CombinedFailed() {
		b.WriteString("\n")
		b.WriteString(warnStyle.Render("The combined query failed: total and time breakdowns are empty."))
		b.WriteString("\n")
	}
	if failed := failedPhrases(r); len(failed) > 0 {
		b.WriteString("\n")
		b.WriteString(warnStyle.Render(fmt.Sprintf("Failed phrase queries (counted as 0): %s", strings.Join(failed, ", "))))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(labelStyle.Render("Phrase matches overlap; Applications counts each message once."))
	b.WriteString("\n")
	return b.String()
}

// renderPhrases lists every phrase in taxonomy order with a bar.
func renderPhrases(r report.Report, width int) string {
	if len(r.Phrases) == 0 {
		return "No phrases configured.\n"
	}
	labelW := 0
	top := 0
	for _, pc := range r.Phrases {
		labelW = max(labelW, lipgloss.Width(pc.Phrase.Text))
		top = max(top, pc.Count)
	}
	labelW = min(labelW, 40)

	var b strings.Builder
	for _, pc := range r.Phrases {
		label := truncate(pc.Phrase.Text, labelW)
		scope := ""
		if pc.Phrase.Scope == model.ScopeAnywhere {
			scope = "*"
		}
		b.WriteString(barRow(fmt.Sprintf("%-*s%1s", labelW, label, scope), pc.Count, top, width))
	}
	b.WriteString("\n")
	b.WriteString(labelStyle.Render("* matched anywhere in the message, others in the subject only"))
	b.WriteString("\n")
	return b.String()
}

func busiestMonth(r report.Report) (string, int) {
	best, n := "", 0
	for _, k := range r.Months.Keys() {
		if r.Months[k] > n {
			best, n = k, r.Months[k]
		}
	}
	return best, n
}

func failedPhrases(r report.Report) []string {
	var out []string
	for _, f := range r.Failed {
		if f != report.CombinedMarker {
			out = append(out, f)
		}
	}
	return out
}

func truncate(s string, n int) string {
	if lipgloss.Width(s) <= n {
		return s
	}
	runes := []rune(s)
	if n <= 1 || len(runes) <= n {
		return string(runes[:min(len(runes), n)])
	}
	return string(runes[:n-1]) + "…"
}
