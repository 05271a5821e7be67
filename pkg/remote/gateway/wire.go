package gateway

import (
	"fmt"

	"github.com/agentmesh/meshchat/pkg/chat"
)

// Routes served by a mesh gateway.
const (
	RouteSessions      = "/api/sessions"
	RouteAgents        = "/api/agents"
	RouteTaskEvents    = "/api/tasks/events"
	RouteTaskEventsWS  = "/api/tasks/ws"
	batchDeleteSegment = "batch-delete"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// SubmitRequest is the body of POST /api/sessions/{id}/messages.
type SubmitRequest struct {
	AgentName string `json:"agent_name,omitempty"`
	Text      string `json:"text"`
}

// BatchDeleteRequest is the body of POST /api/sessions/{id}/artifacts/batch-delete.
type BatchDeleteRequest struct {
	Filenames []string `json:"filenames"`
}

// BatchDeleteResponse lists what was removed and why the rest was not.
type BatchDeleteResponse struct {
	Deleted []string          `json:"deleted"`
	Errors  map[string]string `json:"errors,omitempty"`
}

// DeltaEvent is one SSE data payload of a submitted turn.
type DeltaEvent struct {
	Type     string `json:"type"`
	TaskID   string `json:"task_id,omitempty"`
	Sequence int64  `json:"sequence"`
	Text     string `json:"text,omitempty"`
	Status   string `json:"status,omitempty"`
}

var deltaKinds = map[string]chat.DeltaKind{
	chat.DeltaTaskStarted.String(): chat.DeltaTaskStarted,
	chat.DeltaText.String():        chat.DeltaText,
	chat.DeltaStatus.String():      chat.DeltaStatus,
	chat.DeltaArtifact.String():    chat.DeltaArtifact,
	chat.DeltaTaskFinal.String():   chat.DeltaTaskFinal,
}

// NewDeltaEvent encodes a delta for the wire.
func NewDeltaEvent(d chat.Delta) DeltaEvent {
	return DeltaEvent{
		Type:     d.Kind.String(),
		TaskID:   d.TaskID,
		Sequence: d.Sequence,
		Text:     d.Text,
		Status:   d.Status,
	}
}

// Delta decodes the event for a session.
func (e DeltaEvent) Delta(sessionID string) (chat.Delta, error) {
	kind, ok := deltaKinds[e.Type]
	if !ok {
		return chat.Delta{}, fmt.Errorf("unknown delta type %q", e.Type)
	}
	return chat.Delta{
		SessionID: sessionID,
		TaskID:    e.TaskID,
		Sequence:  e.Sequence,
		Kind:      kind,
		Text:      e.Text,
		Status:    e.Status,
	}, nil
}
