// Package subscription turns store change signals into bubbletea messages.
//
// A store exposes Subscribe() (<-chan struct{}, func()). Listen waits for the
// next signal and returns it as a tea.Msg; Update re-arms the listener after
// handling each message:
//
//	case subscription.ChangedMsg:
//	    return m, m.chatChanges.Listen()
package subscription

import tea "charm.land/bubbletea/v2"

// Source names the store a ChangedMsg came from.
type Source int

const (
	SourceChat Source = iota
	SourceMonitor
)

// ChangedMsg reports that a store changed and its snapshot should be re-read.
type ChangedMsg struct {
	Source Source
}

// FromChannel creates a tea.Cmd that waits for a value from the channel
// and converts it to a tea.Msg. A closed channel yields no message.
func FromChannel[T any](ch <-chan T, toMsg func(T) tea.Msg) tea.Cmd {
	return func() tea.Msg {
		val, ok := <-ch
		if !ok {
			return nil
		}
		return toMsg(val)
	}
}

// Changes follows the change signals of one store.
type Changes struct {
	source Source
	ch     <-chan struct{}
	cancel func()
}

// Subscriber is implemented by chat.Store and monitor.Monitor.
type Subscriber interface {
	Subscribe() (<-chan struct{}, func())
}

func Follow(source Source, s Subscriber) *Changes {
	ch, cancel := s.Subscribe()
	return &Changes{source: source, ch: ch, cancel: cancel}
}

// Listen returns a Cmd that waits for the next change.
func (c *Changes) Listen() tea.Cmd {
	return FromChannel(c.ch, func(struct{}) tea.Msg {
		return ChangedMsg{Source: c.source}
	})
}

func (c *Changes) Close() {
	c.cancel()
}
