package tui

import "jobtally/internal/report"

// Async message types for Bubble Tea commands.

type progressMsg report.Progress

type runCompleteMsg struct {
	report report.Report
}

type statusMsg string
