// Package task models monitored units of agent work: their status lifecycle,
// the steps they go through, and how a status is presented to the user.
package task

import (
	"strings"

	"github.com/a2aproject/a2a-go/a2a"
)

// Status is the lifecycle state of a task. It is a closed set: any wire value
// that is not recognized maps to StatusUnknown.
type Status int

const (
	StatusUnknown Status = iota
	StatusSubmitted
	StatusWorking
	StatusInputRequired
	StatusCompleted
	StatusCanceled
	StatusFailed
)

var statusNames = map[Status]string{
	StatusUnknown:       "unknown",
	StatusSubmitted:     "submitted",
	StatusWorking:       "working",
	StatusInputRequired: "input-required",
	StatusCompleted:     "completed",
	StatusCanceled:      "canceled",
	StatusFailed:        "failed",
}

// String returns the wire name of the status.
func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return statusNames[StatusUnknown]
}

// IsTerminal reports whether no further transitions are accepted from s.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusCanceled, StatusFailed:
		return true
	default:
		return false
	}
}

// IsActive reports whether the task is still being worked on.
func (s Status) IsActive() bool {
	return s == StatusSubmitted || s == StatusWorking
}

// ParseStatus maps a wire value to a Status. Matching is case-insensitive and
// accepts the "cancelled" spelling some gateways emit.
func ParseStatus(raw string) Status {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "submitted":
		return StatusSubmitted
	case "working":
		return StatusWorking
	case "input-required", "input_required":
		return StatusInputRequired
	case "completed":
		return StatusCompleted
	case "canceled", "cancelled":
		return StatusCanceled
	case "failed":
		return StatusFailed
	default:
		return StatusUnknown
	}
}

// FromA2A converts an A2A task state. States outside the lifecycle this UI
// tracks (rejected, auth-required, ...) become StatusUnknown.
func FromA2A(state a2a.TaskState) Status {
	return ParseStatus(string(state))
}

// ToA2A converts a Status back to its A2A task state.
func (s Status) ToA2A() a2a.TaskState {
	switch s {
	case StatusSubmitted:
		return a2a.TaskStateSubmitted
	case StatusWorking:
		return a2a.TaskStateWorking
	case StatusInputRequired:
		return a2a.TaskStateInputRequired
	case StatusCompleted:
		return a2a.TaskStateCompleted
	case StatusCanceled:
		return a2a.TaskStateCanceled
	case StatusFailed:
		return a2a.TaskStateFailed
	default:
		return a2a.TaskStateUnknown
	}
}
