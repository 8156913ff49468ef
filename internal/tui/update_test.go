package tui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"github.com/alexisbeaulieu97/autotest/internal/tui/components"
)

func apply(t *testing.T, m Model, msgs ...tea.Msg) Model {
	t.Helper()
	for _, msg := range msgs {
		updated, _ := m.Update(msg)
		m = updated.(Model)
	}
	return m
}

func TestUpdateTracksHostLifecycle(t *testing.T) {
	m := NewModel("Audit", hosts("a", "b"), true, nil)

	m = apply(t, m,
		HostStartMsg{Index: 0},
		TestMsg{Index: 0, Category: "axe"},
		TestMsg{Index: 0, Category: "wave", Crashed: true},
	)
	entry := m.hosts.Entries()[0]
	require.Equal(t, components.HostRunning, entry.Status)
	require.Equal(t, 2, entry.Tests)
	require.Equal(t, 1, entry.Crashes)
	require.Equal(t, "wave", entry.Current)

	m = apply(t, m, HostDoneMsg{Index: 0, Total: 42})
	require.Equal(t, 1, m.FinishedHosts())
	require.Equal(t, components.HostDone, m.hosts.Entries()[0].Status)
	require.Equal(t, 42, m.hosts.Entries()[0].Total)

	// A repeated completion does not count twice.
	m = apply(t, m, HostDoneMsg{Index: 0, Total: 42})
	require.Equal(t, 1, m.FinishedHosts())

	m = apply(t, m, HostDoneMsg{Index: 1, Total: 7, Failed: true, Message: "strict abort"})
	require.Equal(t, 2, m.FinishedHosts())
	require.Equal(t, components.HostFailed, m.hosts.Entries()[1].Status)
}

func TestUpdateIgnoresUnknownHostIndex(t *testing.T) {
	m := NewModel("Audit", hosts("a"), true, nil)
	m = apply(t, m, HostDoneMsg{Index: 5, Total: 1})
	require.Zero(t, m.FinishedHosts())
}

func TestUpdateBatchDoneQuitsInteractivePrograms(t *testing.T) {
	m := NewModel("Audit", hosts("a"), false, nil)
	updated, cmd := m.Update(BatchDoneMsg{})
	require.True(t, updated.(Model).IsDone())
	require.NotNil(t, cmd)

	m = NewModel("Audit", hosts("a"), true, nil)
	updated, cmd = m.Update(BatchDoneMsg{})
	require.True(t, updated.(Model).IsDone())
	require.Nil(t, cmd)
}

func TestUpdateCtrlCCancelsOnce(t *testing.T) {
	calls := 0
	m := NewModel("Audit", hosts("a"), false, func() { calls++ })

	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.Nil(t, cmd)
	m = updated.(Model)
	require.True(t, m.cancelled)
	require.True(t, m.IsDone())

	_, _ = m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.Equal(t, 1, calls)
}
