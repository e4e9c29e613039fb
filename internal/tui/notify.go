package tui

import tea "github.com/charmbracelet/bubbletea"

// Notifier turns tracker update callbacks into bubbletea messages.
// Notifications coalesce: a burst of updates yields one UpdatedMsg.
type Notifier struct {
	ch chan struct{}
}

// NewNotifier creates a Notifier.
func NewNotifier() *Notifier {
	return &Notifier{ch: make(chan struct{}, 1)}
}

// Notify never blocks. Pass it to tracker.WithOnUpdate.
func (n *Notifier) Notify() {
	select {
	case n.ch <- struct{}{}:
	default:
	}
}

// Updates returns the receive side of the notification channel.
func (n *Notifier) Updates() <-chan struct{} {
	return n.ch
}

func waitForUpdate(ch <-chan struct{}) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return nil
		}
		return UpdatedMsg{}
	}
}
