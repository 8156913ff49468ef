package components

import (
	"fmt"
	"strings"
)

// SummaryData aggregates counts for rendering summaries.
type SummaryData struct {
	Hosts     int
	Finished  int
	Failed    int
	Crashes   int
	Done      bool
	Cancelled bool
	// Totals are the deficit totals of finished hosts.
	Totals []int
}

// Summary renders a textual batch summary.
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
	if s.data.Hosts > 0 {
		lines = append(lines, fmt.Sprintf("Hosts: %d/%d reported", s.data.Finished, s.data.Hosts))
	}
	if s.data.Crashes > 0 {
		lines = append(lines, fmt.Sprintf("Tests not measured: %d", s.data.Crashes))
	}
	if s.data.Failed > 0 {
		lines = append(lines, fmt.Sprintf("Failed hosts: %d", s.data.Failed))
	}
	if len(s.data.Totals) > 0 {
		lo, hi, sum := s.data.Totals[0], s.data.Totals[0], 0
		for _, t := range s.data.Totals {
			lo, hi, sum = min(lo, t), max(hi, t), sum+t
		}
		lines = append(lines, fmt.Sprintf("Deficit totals: min %d, max %d, mean %d", lo, hi, sum/len(s.data.Totals)))
	}

	switch {
	case s.data.Cancelled:
		lines = append(lines, "Batch cancelled")
	case s.data.Done && s.data.Failed > 0:
		lines = append(lines, "Batch finished with failed hosts")
	case s.data.Done:
		lines = append(lines, "Batch finished")
	}
	return strings.Join(lines, "\n")
}
