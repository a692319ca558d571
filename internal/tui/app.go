package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"jobtally/internal/report"
)

type viewState int

const (
	viewRunning viewState = iota // pipeline in flight
	viewReport                   // tabbed report
)

// RunFunc executes one report run, calling progress as it advances.
type RunFunc func(ctx context.Context, progress func(report.Progress)) report.Report

type tab int

const (
	tabSummary tab = iota
	tabPhrases
	tabMonthly
	tabWeekday
	tabHourly
	tabCount
)

var tabNames = [tabCount]string{"Summary", "Phrases", "Monthly", "Weekday", "Hourly"}

type AppModel struct {
	// Core state
	ctx    context.Context
	cancel context.CancelFunc
	run    RunFunc
	report *report.Report
	status string

	// View state machine
	view      viewState
	activeTab tab
	progress  report.Progress

	// Sub-models
	bar      progress.Model
	viewport viewport.Model

	// Layout
	width, height int

	// Program reference for sending messages from goroutines
	program *tea.Program
}

// SetProgram stores a reference to the tea.Program so the run can send
// progress messages back to the Update loop.
func (m *AppModel) SetProgram(p *tea.Program) {
	m.program = p
}

// NewAppModel returns a model that starts run on Init and shows the report
// once it completes.
func NewAppModel(ctx context.Context, run RunFunc) AppModel {
	ctx, cancel := context.WithCancel(ctx)
	return AppModel{
		ctx:      ctx,
		cancel:   cancel,
		run:      run,
		status:   "Counting phrases...",
		view:     viewRunning,
		bar:      progress.New(progress.WithDefaultGradient()),
		viewport: viewport.New(0, 0),
	}
}

// NewReportModel returns a model that shows an already computed report.
func NewReportModel(r report.Report) AppModel {
	m := AppModel{
		report:   &r,
		view:     viewReport,
		bar:      progress.New(progress.WithDefaultGradient()),
		viewport: viewport.New(0, 0),
	}
	m.refreshContent()
	return m
}

// Report returns the finished report, or false if the run was interrupted.
func (m *AppModel) Report() (report.Report, bool) {
	if m.report == nil {
		return report.Report{}, false
	}
	return *m.report, true
}

func (m *AppModel) Init() tea.Cmd {
	if m.run == nil {
		return nil
	}
	return m.runCmd()
}

func (m *AppModel) runCmd() tea.Cmd {
	return func() tea.Msg {
		r := m.run(m.ctx, func(p report.Progress) {
			if m.program != nil {
				m.program.Send(progressMsg(p))
			}
		})
		return runCompleteMsg{report: r}
	}
}

func (m *AppModel) quit() (tea.Model, tea.Cmd) {
	if m.cancel != nil {
		m.cancel()
	}
	return m, tea.Quit
}

func (m *AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.bar.Width = min(msg.Width-4, 80)
		m.viewport.Width = msg.Width
		m.viewport.Height = msg.Height - 4 // room for tabs + footer
		m.refreshContent()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case progressMsg:
		m.progress = report.Progress(msg)
		m.status = progressStatus(m.progress)
		return m, nil

	case runCompleteMsg:
		if m.ctx != nil && m.ctx.Err() != nil {
			return m, tea.Quit
		}
		r := msg.report
		m.report = &r
		m.view = viewReport
		m.status = ""
		if len(r.Failed) > 0 {
			m.status = fmt.Sprintf("%d queries failed and count 0", len(r.Failed))
		}
		m.refreshContent()
		return m, clearStatusAfter(5 * time.Second)

	case statusMsg:
		if string(msg) == "" {
			m.status = ""
		}
		return m, nil
	}

	if m.view == viewReport {
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *AppModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	// Global keys
	switch key {
	case "ctrl+c", "q":
		return m.quit()
	}

	if m.view != viewReport {
		return m, nil
	}

	switch key {
	case "tab", "right", "l":
		m.setTab((m.activeTab + 1) % tabCount)
		return m, nil
	case "shift+tab", "left", "h":
		m.setTab((m.activeTab + tabCount - 1) % tabCount)
		return m, nil
	case "1", "2", "3", "4", "5":
		m.setTab(tab(key[0] - '1'))
		return m, nil
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m *AppModel) setTab(t tab) {
	m.activeTab = t
	m.refreshContent()
	m.viewport.GotoTop()
}

func (m *AppModel) refreshContent() {
	if m.report == nil {
		return
	}
	width := m.width
	if width <= 0 {
		width = 80
	}
	m.viewport.SetContent(renderTab(m.activeTab, *m.report, width))
}

func renderTab(t tab, r report.Report, width int) string {
	switch t {
	case tabPhrases:
		return renderPhrases(r, width)
	case tabMonthly:
		return renderMonthly(r, width)
	case tabWeekday:
		return renderWeekday(r, width)
	case tabHourly:
		return renderHourly(r, width)
	default:
		return renderSummary(r)
	}
}

func progressStatus(p report.Progress) string {
	switch p.Stage {
	case report.StagePhrases:
		if p.Phrase != nil {
			return fmt.Sprintf("Counting phrases... %d / %d (%q: %d)", p.Done, p.Total, p.Phrase.Phrase.Text, p.Phrase.Count)
		}
		return fmt.Sprintf("Counting phrases... %d / %d", p.Done, p.Total)
	case report.StageCombined:
		return "Listing combined query..."
	case report.StageDates:
		return fmt.Sprintf("Resolving dates... %d / %d messages", p.Done, p.Total)
	case report.StageDone:
		return "Done"
	}
	return ""
}

func (p progressMsg) percent() float64 {
	if p.Total <= 0 {
		return 0
	}
	return float64(p.Done) / float64(p.Total)
}

func clearStatusAfter(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg {
		return statusMsg("")
	})
}

// View renders the appropriate view based on current state.
func (m *AppModel) View() string {
	if m.view == viewRunning {
		var b strings.Builder
		b.WriteString(headerStyle.Render("jobtally"))
		b.WriteString("\n")
		b.WriteString(m.status)
		b.WriteString("\n\n")
		b.WriteString(m.bar.ViewAs(progressMsg(m.progress).percent()))
		b.WriteString("\n")
		b.WriteString(footerStyle.Render("q: abort"))
		return b.String()
	}

	var b strings.Builder
	b.WriteString(renderTabs(m.activeTab))
	b.WriteString("\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")
	b.WriteString(reportFooter())
	if m.status != "" {
		b.WriteString("\n")
		b.WriteString(m.status)
	}
	return b.String()
}
