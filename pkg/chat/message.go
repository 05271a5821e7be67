package chat

import "slices"

// Metadata ties a message to its session and to the last streamed event
// folded into it.
type Metadata struct {
	SessionID                  string `json:"session_id"`
	LastProcessedEventSequence int64  `json:"last_processed_event_sequence"`
}

// Message is one turn in a conversation.
//
// A message is mutated in place while IsComplete is false (streamed tokens
// are appended to it) and never again once complete.
type Message struct {
	IsUser     bool   `json:"is_user"`
	Text       string `json:"text"`
	IsComplete bool   `json:"is_complete"`

	// IsStatusBubble marks the transient "agent is working" message. A log
	// holds at most one, and it is dropped when its task finishes.
	IsStatusBubble bool     `json:"is_status_bubble,omitempty"`
	TaskID         string   `json:"task_id,omitempty"`
	Metadata       Metadata `json:"metadata"`
}

// FirstStatusBubble returns the first status bubble in msgs.
func FirstStatusBubble(msgs []Message) (Message, bool) {
	for _, m := range msgs {
		if m.IsStatusBubble {
			return m, true
		}
	}
	return Message{}, false
}

// LoadingText returns the text of the first status bubble, or "".
func LoadingText(msgs []Message) string {
	m, _ := FirstStatusBubble(msgs)
	return m.Text
}

func statusBubbleIndex(msgs []Message) int {
	return slices.IndexFunc(msgs, func(m Message) bool { return m.IsStatusBubble })
}

func withoutStatusBubbles(msgs []Message) []Message {
	return slices.DeleteFunc(msgs, func(m Message) bool { return m.IsStatusBubble })
}
