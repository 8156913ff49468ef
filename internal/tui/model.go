package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/alexisbeaulieu97/autotest/internal/model"
	"github.com/alexisbeaulieu97/autotest/internal/ports"
	"github.com/alexisbeaulieu97/autotest/internal/tui/components"
)

// HostStartMsg indicates a host began its act sequence.
type HostStartMsg struct {
	Index int
}

// TestMsg reports a finished test act of a host.
type TestMsg struct {
	Index    int
	Category string
	Crashed  bool
	Message  string
}

// HostDoneMsg reports that a host report is final.
type HostDoneMsg struct {
	Index   int
	Total   int
	Failed  bool
	Message string
}

// BatchDoneMsg marks the end of the batch.
type BatchDoneMsg struct{}

type tickMsg struct{}

// FromEvent converts an executor event into a program message.
func FromEvent(event ports.Event) (tea.Msg, bool) {
	switch event.Type {
	case ports.EventHostStarted:
		return HostStartMsg{Index: event.Index}, true
	case ports.EventTestCompleted:
		return TestMsg{Index: event.Index, Category: event.Category}, true
	case ports.EventTestCrashed:
		return TestMsg{Index: event.Index, Category: event.Category, Crashed: true, Message: event.Message}, true
	case ports.EventHostCompleted:
		return HostDoneMsg{Index: event.Index, Total: event.Total}, true
	case ports.EventHostFailed:
		return HostDoneMsg{Index: event.Index, Total: event.Total, Failed: true, Message: event.Message}, true
	case ports.EventBatchCompleted:
		return BatchDoneMsg{}, true
	default:
		return nil, false
	}
}

// Model contains the Bubbletea state of a running batch.
type Model struct {
	title          string
	hosts          components.HostList
	finished       int
	done           bool
	cancelled      bool
	nonInteractive bool
	onCancel       func()
}

// NewModel constructs the model for a batch. onCancel, when set, is called
// once the user interrupts the program.
func NewModel(title string, hosts []model.Host, nonInteractive bool, onCancel func()) Model {
	names := make([]string, len(hosts))
	for i, h := range hosts {
		names[i] = h.Which
	}
	return Model{
		title:          title,
		hosts:          components.NewHostList(names),
		nonInteractive: nonInteractive,
		onCancel:       onCancel,
	}
}

// Init starts the Bubbletea program.
func (m Model) Init() tea.Cmd {
	return tea.Tick(time.Millisecond, func(time.Time) tea.Msg { return tickMsg{} })
}

// TotalHosts returns the batch size.
func (m Model) TotalHosts() int {
	return m.hosts.Len()
}

// FinishedHosts returns how many hosts have a final report.
func (m Model) FinishedHosts() int {
	return m.finished
}

// IsDone reports whether the batch has completed or was cancelled.
func (m Model) IsDone() bool {
	return m.done
}
