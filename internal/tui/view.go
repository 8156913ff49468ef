package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/alexisbeaulieu97/autotest/internal/tui/components"
)

// View renders the current state of the model.
func (m Model) View() string {
	var sections []string

	title := titleStyle.Render(fmt.Sprintf("autotest • %s", m.heading()))
	sections = append(sections, title)

	progress := components.NewProgress(m.hosts.Len()).View(m.finished)
	sections = append(sections, sectionStyle.Render("Progress"), progress)

	entries := m.hosts.Entries()
	if len(entries) > 0 {
		sections = append(sections, sectionStyle.Render("Hosts"))
		sections = append(sections, renderHostEntries(entries))
	}

	data := components.SummaryData{
		Hosts:     len(entries),
		Finished:  m.finished,
		Done:      m.done,
		Cancelled: m.cancelled,
	}
	for _, e := range entries {
		data.Crashes += e.Crashes
		if e.Status == components.HostFailed {
			data.Failed++
		}
		if e.Finished() {
			data.Totals = append(data.Totals, e.Total)
		}
	}
	summary := components.NewSummary(data).View()
	if strings.TrimSpace(summary) != "" {
		sections = append(sections, sectionStyle.Render("Summary"), summaryStyle.Render(summary))
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func renderHostEntries(entries []components.HostEntry) string {
	var lines []string
	for _, e := range entries {
		line := fmt.Sprintf(" %s %s", StatusIcon(e.Status), e.Which)
		switch {
		case e.Finished():
			line = fmt.Sprintf("%s: deficit %s", line, deficitStyle(e.Total).Render(strconv.Itoa(e.Total)))
		case e.Current != "":
			line = fmt.Sprintf("%s: %s", line, e.Current)
		}
		if e.Crashes > 0 {
			line = fmt.Sprintf("%s %s", line, inferStyle.Render(fmt.Sprintf("(%d not measured)", e.Crashes)))
		}
		if strings.TrimSpace(e.Message) != "" {
			line = fmt.Sprintf("%s: %s", line, e.Message)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func (m Model) heading() string {
	if strings.TrimSpace(m.title) != "" {
		return m.title
	}
	return "Batch"
}

// StatusIcon returns the glyph representing a host status.
func StatusIcon(status string) string {
	switch status {
	case components.HostDone:
		return successStyle.Render("✓")
	case components.HostRunning:
		return runningStyle.Render("⏳")
	case components.HostFailed:
		return failureStyle.Render("✗")
	default:
		return pendingStyle.Render("…")
	}
}
