package tui

import "github.com/charmbracelet/lipgloss"

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	sectionStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")).MarginTop(1)
	summaryStyle = lipgloss.NewStyle().MarginTop(1)

	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	runningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("33"))
	failureStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	pendingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	inferStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Italic(true)
)

// Deficit thresholds for coloring a host total.
const (
	lowDeficit  = 50
	highDeficit = 250
)

// deficitStyle colors a total deficit from green through amber to red.
func deficitStyle(total int) lipgloss.Style {
	switch {
	case total < lowDeficit:
		return successStyle
	case total < highDeficit:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	default:
		return failureStyle
	}
}
