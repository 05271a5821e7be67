package a2a

import (
	"strings"

	"github.com/a2aproject/a2a-go/a2a"

	"github.com/agentmesh/meshchat/pkg/chat"
	"github.com/agentmesh/meshchat/pkg/task"
)

// converter turns the A2A events of one streamed turn into chat deltas.
// Session ids and sequence numbers are stamped by the caller.
type converter struct {
	taskID string
	final  bool
}

func (c *converter) deltas(event a2a.Event) []chat.Delta {
	if c.final {
		return nil
	}

	var out []chat.Delta
	switch e := event.(type) {
	case *a2a.Task:
		out = c.started(out, string(e.ID))
		out = c.status(out, e.Status, false)
	case *a2a.TaskStatusUpdateEvent:
		out = c.started(out, string(e.TaskID))
		out = c.status(out, e.Status, e.Final)
	case *a2a.TaskArtifactUpdateEvent:
		out = c.started(out, string(e.TaskID))
		if e.Artifact == nil {
			break
		}
		text, other := partsText(e.Artifact.Parts)
		if text != "" {
			out = append(out, chat.Delta{Kind: chat.DeltaText, TaskID: c.taskID, Text: text})
		}
		if other {
			out = append(out, chat.Delta{Kind: chat.DeltaArtifact, TaskID: c.taskID, Text: e.Artifact.Name})
		}
	case *a2a.Message:
		out = c.started(out, string(e.TaskID))
		if text, _ := partsText(e.Parts); text != "" {
			out = append(out, chat.Delta{Kind: chat.DeltaText, TaskID: c.taskID, Text: text})
		}
		// A plain message reply is the whole answer when no task backs it.
		if c.taskID == "" {
			c.final = true
			out = append(out, chat.Delta{Kind: chat.DeltaTaskFinal, Status: string(a2a.TaskStateCompleted)})
		}
	}
	return out
}

func (c *converter) started(out []chat.Delta, taskID string) []chat.Delta {
	if taskID == "" || taskID == c.taskID {
		return out
	}
	c.taskID = taskID
	return append(out, chat.Delta{Kind: chat.DeltaTaskStarted, TaskID: taskID})
}

func (c *converter) status(out []chat.Delta, st a2a.TaskStatus, final bool) []chat.Delta {
	var text string
	if st.Message != nil {
		text, _ = partsText(st.Message.Parts)
	}

	s := task.FromA2A(st.State)
	if final || s.IsTerminal() || s == task.StatusInputRequired {
		c.final = true
		return append(out, chat.Delta{Kind: chat.DeltaTaskFinal, TaskID: c.taskID, Status: string(st.State), Text: text})
	}
	if text == "" {
		return out
	}
	return append(out, chat.Delta{Kind: chat.DeltaStatus, TaskID: c.taskID, Text: text})
}

// partsText concatenates the text parts and reports whether any other kind
// of part (file, data) was present.
func partsText(parts a2a.ContentParts) (string, bool) {
	var sb strings.Builder
	other := false
	for _, part := range parts {
		switch p := part.(type) {
		case *a2a.TextPart:
			sb.WriteString(p.Text)
		case a2a.TextPart:
			sb.WriteString(p.Text)
		default:
			other = true
		}
	}
	return sb.String(), other
}
