package task

import (
	"slices"
	"time"
)

// Step is one observed unit of progress inside a task, e.g. an agent handing
// work to a peer or a tool being invoked.
type Step struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	AgentName string    `json:"agent_name,omitempty"`
	Detail    string    `json:"detail,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// VisualizedTask is the monitor's view of a task.
type VisualizedTask struct {
	ID                 string
	Status             Status
	InitialRequestText string
	Steps              []Step

	// LastEventSequence is the sequence number of the last event applied to
	// this task. Events at or below it are replays.
	LastEventSequence int64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// New returns a task in the initial submitted state.
func New(id, requestText string, now time.Time) *VisualizedTask {
	return &VisualizedTask{
		ID:                 id,
		Status:             StatusSubmitted,
		InitialRequestText: requestText,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}

// Clone returns a deep copy.
func (t *VisualizedTask) Clone() VisualizedTask {
	c := *t
	c.Steps = slices.Clone(t.Steps)
	return c
}

// Step returns the step with the given id.
func (t *VisualizedTask) Step(id string) (Step, bool) {
	for _, s := range t.Steps {
		if s.ID == id {
			return s, true
		}
	}
	return Step{}, false
}
