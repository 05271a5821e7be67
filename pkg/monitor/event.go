// Package monitor keeps the client-side picture of the tasks running in the
// agent mesh, fed by a task event stream.
package monitor

import (
	"context"
	"errors"
	"time"

	"github.com/agentmesh/meshchat/pkg/task"
)

var (
	// ErrStreamClosed is recorded when the task stream ends without an error.
	ErrStreamClosed = errors.New("task stream closed")
	// ErrRetriesExhausted is recorded when the retry policy gives up.
	ErrRetriesExhausted = errors.New("gave up reconnecting to task stream")
)

// Event is one update about one task. Sequence numbers increase per task;
// events at or below the last applied one are ignored.
type Event struct {
	TaskID    string    `json:"task_id"`
	Sequence  int64     `json:"sequence"`
	Timestamp time.Time `json:"timestamp"`

	// Status is the raw task status. Empty leaves the status unchanged.
	Status string `json:"status,omitempty"`
	// RequestText is the text of the request that started the task.
	RequestText string `json:"request_text,omitempty"`
	// Step, when set, is appended to the task, or replaces the step with the
	// same id.
	Step *task.Step `json:"step,omitempty"`
}

// Stream is a source of task events.
//
// Subscribe returns a channel of events, closed when the subscription ends,
// and a channel that receives at most one error explaining why it ended.
type Stream interface {
	Subscribe(ctx context.Context) (<-chan Event, <-chan error, error)
}
