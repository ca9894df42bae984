package tui

import tea "github.com/charmbracelet/bubbletea"

// changedMsg means the navigator or a session changed state.
type changedMsg struct{}

// doneMsg reports the end of a blocking session call.
type doneMsg struct {
	op  string
	err error
}

// Notifier turns change callbacks into messages. Notify never blocks, so
// it is safe to call while the caller holds a lock; bursts of changes
// collapse into one redraw.
type Notifier struct {
	ch chan struct{}
}

// NewNotifier creates a Notifier.
func NewNotifier() *Notifier {
	return &Notifier{ch: make(chan struct{}, 1)}
}

// Notify schedules a redraw.
func (n *Notifier) Notify() {
	select {
	case n.ch <- struct{}{}:
	default:
	}
}

func (n *Notifier) wait() tea.Cmd {
	return func() tea.Msg {
		<-n.ch
		return changedMsg{}
	}
}

func run(op string, fn func() error) tea.Cmd {
	return func() tea.Msg {
		return doneMsg{op: op, err: fn()}
	}
}
