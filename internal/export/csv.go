// Package export writes a finished report to files: one CSV table and a set
// of PNG charts.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"jobtally/internal/aggregate"
	"jobtally/internal/report"
)

// StampLayout is the timestamp embedded in every exported file name.
const StampLayout = "20060102_150405"

var analysisHeader = []string{"Analysis_Type", "Time_Period", "Count"}

// CSVName returns the file name of the CSV export for r.
func CSVName(r report.Report) string {
	return "job_application_data_" + r.GeneratedAt.Format(StampLayout) + ".csv"
}

// SaveCSV writes the CSV export of r into dir and returns its path.
func SaveCSV(dir string, r report.Report) (string, error) {
	path := filepath.Join(dir, CSVName(r))
	file, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("error opening csv file: %w", err)
	}
	if err := WriteCSV(file, r); err != nil {
		file.Close()
		return "", err
	}
	if err := file.Close(); err != nil {
		return "", fmt.Errorf("error closing csv file: %w", err)
	}
	return path, nil
}

// WriteCSV writes the summary rows followed by the monthly, weekday,
// hourly and phrase blocks, each separated by a blank row.
func WriteCSV(w io.Writer, r report.Report) error {
	writer := csv.NewWriter(w)

	rows := [][]string{
		{"Metric", "Value", "Notes"},
		{"Total Applications", strconv.Itoa(r.Total),
			fmt.Sprintf("Unique application emails found over the last %d days.", r.WindowDays)},
		{"Analysis Start Date", r.Since.Format("2006-01-02"), ""},
		{},
		analysisHeader,
	}
	for _, month := range r.Months.Keys() {
		rows = append(rows, []string{"Monthly", month, strconv.Itoa(r.Months[month])})
	}

	rows = append(rows, []string{}, analysisHeader)
	for i, name := range aggregate.WeekdayNames {
		rows = append(rows, []string{"DayOfWeek", name, strconv.Itoa(r.Weekdays[i])})
	}

	rows = append(rows, []string{}, analysisHeader)
	for hour, n := range r.Hours {
		rows = append(rows, []string{"Hourly", strconv.Itoa(hour), strconv.Itoa(n)})
	}

	rows = append(rows, []string{}, []string{"Phrase", "Scope", "Count"})
	for _, pc := range r.Phrases {
		rows = append(rows, []string{pc.Phrase.Text, pc.Phrase.Scope.String(), strconv.Itoa(pc.Count)})
	}

	if err := writer.WriteAll(rows); err != nil {
		return fmt.Errorf("error writing csv: %w", err)
	}
	return nil
}
