package components

import (
	"fmt"
	"strings"
)

// SummaryData aggregates counts for rendering the table status.
type SummaryData struct {
	Rows     int
	Visible  int
	Modified int
	Pending  int
	Selected int
	Sort     string
	Filter   string
	Message  string
	Failed   bool
}

// Summary renders a textual table summary.
type Summary struct {
	data SummaryData
}

// NewSummary creates a new Summary component.
func NewSummary(data SummaryData) Summary {
	return Summary{data: data}
}

// View renders the summary.
func (s Summary) View() string {
	var lines []string
	if s.data.Rows > 0 {
		counts := fmt.Sprintf("Rows: %d", s.data.Rows)
		if s.data.Visible != s.data.Rows {
			counts = fmt.Sprintf("Rows: %d/%d shown", s.data.Visible, s.data.Rows)
		}
		if s.data.Modified > 0 {
			counts += fmt.Sprintf(" • %d modified", s.data.Modified)
		}
		if s.data.Pending > 0 {
			counts += fmt.Sprintf(" • %d unsaved", s.data.Pending)
		}
		if s.data.Selected > 0 {
			counts += fmt.Sprintf(" • %d selected", s.data.Selected)
		}
		lines = append(lines, counts)
	}

	if s.data.Sort != "" {
		lines = append(lines, "Sorted by "+s.data.Sort)
	}
	if s.data.Filter != "" {
		lines = append(lines, fmt.Sprintf("Filter: %q", s.data.Filter))
	}

	if msg := strings.TrimSpace(s.data.Message); msg != "" {
		status := "✓"
		if s.data.Failed {
			status = "✗"
		}
		lines = append(lines, fmt.Sprintf("%s %s", status, msg))
	}

	return strings.Join(lines, "\n")
}
