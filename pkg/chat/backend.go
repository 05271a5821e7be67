package chat

import (
	"context"
	"time"
)

// SessionInfo summarizes a conversation for the session list.
type SessionInfo struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SubmitRequest is a user turn handed to the backend.
type SubmitRequest struct {
	SessionID string
	AgentName string
	Text      string
	// LastSequence is the last delta sequence applied for the session.
	// Deltas of this turn must be numbered above it.
	LastSequence int64
}

// DeltaKind identifies what a streamed Delta carries.
type DeltaKind int

const (
	// DeltaTaskStarted announces the backend task id for the turn.
	DeltaTaskStarted DeltaKind = iota
	// DeltaText appends Text to the agent's reply.
	DeltaText
	// DeltaStatus replaces the status bubble text with Text.
	DeltaStatus
	// DeltaArtifact signals that the session's artifacts changed.
	DeltaArtifact
	// DeltaTaskFinal ends the turn. Status carries the final task status
	// and Text an optional final message.
	DeltaTaskFinal
)

func (k DeltaKind) String() string {
	switch k {
	case DeltaTaskStarted:
		return "task-started"
	case DeltaText:
		return "text"
	case DeltaStatus:
		return "status"
	case DeltaArtifact:
		return "artifact"
	case DeltaTaskFinal:
		return "task-final"
	default:
		return "unknown"
	}
}

// Delta is one streamed update to a session. Sequence numbers increase per
// session; the store drops anything at or below the last one it applied.
type Delta struct {
	SessionID string
	TaskID    string
	Sequence  int64
	Kind      DeltaKind
	Text      string
	// Status is the raw task status for DeltaTaskFinal ("completed",
	// "failed", "canceled", ...).
	Status string
}

// Backend is the conversational agent endpoint.
//
// Submit returns a channel of deltas for the turn. The backend closes the
// channel when the turn ends or ctx is canceled.
type Backend interface {
	CreateSession(ctx context.Context) (SessionInfo, error)
	ListSessions(ctx context.Context) ([]SessionInfo, error)
	LoadSession(ctx context.Context, sessionID string) ([]Message, error)
	Submit(ctx context.Context, req SubmitRequest) (<-chan Delta, error)
	Cancel(ctx context.Context, sessionID, taskID string) error
}

// ArtifactStore lists, reads and writes the files attached to a session.
// Fetch and Versions return ErrArtifactNotFound for unknown files.
type ArtifactStore interface {
	List(ctx context.Context, sessionID string) ([]ArtifactInfo, error)
	Versions(ctx context.Context, sessionID, filename string) ([]int, error)
	Fetch(ctx context.Context, sessionID, filename string, version int) ([]byte, error)
	Upload(ctx context.Context, sessionID, filename, mimeType string, content []byte) (ArtifactInfo, error)
	Delete(ctx context.Context, sessionID, filename string) error
	// BatchDelete returns the filenames that were removed. The error joins
	// every individual failure.
	BatchDelete(ctx context.Context, sessionID string, filenames []string) ([]string, error)
}

// AgentDirectory lists the agents available in the mesh.
type AgentDirectory interface {
	List(ctx context.Context) ([]Agent, error)
}
