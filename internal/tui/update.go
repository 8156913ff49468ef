package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/alexisbeaulieu97/autotest/internal/tui/components"
)

// Update handles Bubbletea messages and updates model state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		return m, nil
	case HostStartMsg:
		m.hosts = m.hosts.Update(msg.Index, func(e *components.HostEntry) {
			e.Status = components.HostRunning
		})
		return m, nil
	case TestMsg:
		m.hosts = m.hosts.Update(msg.Index, func(e *components.HostEntry) {
			e.Tests++
			e.Current = msg.Category
			if msg.Crashed {
				e.Crashes++
			}
		})
		return m, nil
	case HostDoneMsg:
		wasFinished := false
		m.hosts = m.hosts.Update(msg.Index, func(e *components.HostEntry) {
			wasFinished = e.Finished()
			e.Status = components.HostDone
			if msg.Failed {
				e.Status = components.HostFailed
			}
			e.Total = msg.Total
			e.Current = ""
			e.Message = msg.Message
		})
		if !wasFinished && msg.Index >= 0 && msg.Index < m.hosts.Len() {
			m.finished++
		}
		return m, nil
	case BatchDoneMsg:
		m.done = true
		if !m.nonInteractive {
			return m, tea.Quit
		}
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC && !m.cancelled {
			m.cancelled = true
			m.done = true
			if m.onCancel != nil {
				m.onCancel()
			}
			return m, nil
		}
	case tea.QuitMsg:
		m.done = true
		return m, nil
	}

	return m, nil
}
