package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"jobtally/internal/aggregate"
	"jobtally/internal/report"
)

var barStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))

const (
	barRune   = "█"
	emptyCell = '·'
)

// barRow renders "label ████ count" scaled so that top fills the width.
func barRow(label string, n, top, width int) string {
	count := humanize.Comma(int64(n))
	barW := max(10, width-lipgloss.Width(label)-len(count)-4)
	filled := 0
	if top > 0 {
		filled = n * barW / top
	}
	if n > 0 && filled == 0 {
		filled = 1
	}
	return fmt.Sprintf("%s %s %s\n", labelStyle.Render(label), barStyle.Render(strings.Repeat(barRune, filled)), count)
}

func renderMonthly(r report.Report, width int) string {
	keys := r.Months.Keys()
	if len(keys) == 0 {
		return "No dated messages.\n"
	}
	top := 0
	for _, k := range keys {
		top = max(top, r.Months[k])
	}
	var b strings.Builder
	for _, k := range keys {
		b.WriteString(barRow(k, r.Months[k], top, width))
	}
	return b.String()
}

func renderWeekday(r report.Report, width int) string {
	if r.Weekdays.Total() == 0 {
		return "No dated messages.\n"
	}
	top := 0
	for _, n := range r.Weekdays {
		top = max(top, n)
	}
	var b strings.Builder
	for i, n := range r.Weekdays {
		b.WriteString(barRow(fmt.Sprintf("%-9s", aggregate.WeekdayNames[i]), n, top, width))
	}
	return b.String()
}

func renderHourly(r report.Report, width int) string {
	if r.Hours.Total() == 0 {
		return "No dated messages.\n"
	}
	top := 0
	for _, n := range r.Hours {
		top = max(top, n)
	}
	var b strings.Builder
	b.WriteString(dayStrip(r.Hours, width))
	b.WriteString("\n\n")
	for h, n := range r.Hours {
		b.WriteString(barRow(fmt.Sprintf("%02d:00", h), n, top, width))
	}
	return b.String()
}

var shades = []rune("░▒▓█")

// dayStrip draws the whole day on one line, each hour shaded by its share
// of the busiest hour, with an hour axis underneath.
func dayStrip(h aggregate.Hours, width int) string {
	perHour := min(max(width/24, 1), 3)
	lineLength := 24 * perHour
	minutesInDay := 24 * 60

	top := 0
	for _, n := range h {
		top = max(top, n)
	}

	line := []rune(strings.Repeat(string(emptyCell), lineLength))
	for hour, n := range h {
		if n == 0 || top == 0 {
			continue
		}
		pos := int(float64(hour*60) / float64(minutesInDay) * float64(lineLength))
		shade := shades[(n*len(shades)-1)/top]
		for i := pos; i < pos+perHour && i < lineLength; i++ {
			line[i] = shade
		}
	}

	axis := []rune(strings.Repeat(" ", lineLength))
	for _, hour := range []int{0, 6, 12, 18} {
		label := strconv.Itoa(hour)
		copy(axis[hour*perHour:], []rune(label))
	}
	return barStyle.Render(string(line)) + "\n" + labelStyle.Render(string(axis))
}
