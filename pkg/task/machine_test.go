package task

import (
	"testing"
	"time"

	"github.com/a2aproject/a2a-go/a2a"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testTime = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

var allStatuses = []Status{
	StatusUnknown,
	StatusSubmitted,
	StatusWorking,
	StatusInputRequired,
	StatusCompleted,
	StatusCanceled,
	StatusFailed,
}

func TestCanTransition(t *testing.T) {
	t.Parallel()

	allowed := map[Status][]Status{
		StatusSubmitted:     {StatusSubmitted, StatusWorking, StatusInputRequired, StatusCompleted, StatusCanceled, StatusFailed},
		StatusWorking:       {StatusWorking, StatusInputRequired, StatusCompleted, StatusCanceled, StatusFailed},
		StatusInputRequired: {StatusInputRequired, StatusWorking, StatusCompleted, StatusCanceled, StatusFailed},
		StatusCompleted:     {StatusCompleted},
		StatusCanceled:      {StatusCanceled},
		StatusFailed:        {StatusFailed},
	}

	for _, from := range allStatuses {
		for _, to := range allStatuses {
			want := false
			for _, s := range allowed[from] {
				if s == to {
					want = true
				}
			}
			assert.Equal(t, want, CanTransition(from, to), "%s -> %s", from, to)
		}
	}
}

func TestTransition_Error(t *testing.T) {
	t.Parallel()

	got, err := Transition(StatusCompleted, StatusWorking)
	require.ErrorIs(t, err, ErrIllegalTransition)
	assert.Equal(t, StatusCompleted, got)
	assert.Contains(t, err.Error(), "completed -> working")

	got, err = Transition(StatusInputRequired, StatusWorking)
	require.NoError(t, err)
	assert.Equal(t, StatusWorking, got)
}

func TestStatusA2ARoundTrip(t *testing.T) {
	t.Parallel()

	for _, s := range allStatuses[1:] {
		assert.Equal(t, s, FromA2A(s.ToA2A()), s.String())
	}
	assert.Equal(t, StatusUnknown, FromA2A(a2a.TaskStateRejected))
	assert.Equal(t, StatusUnknown, FromA2A(a2a.TaskStateAuthRequired))
}

func TestVisualizedTaskClone(t *testing.T) {
	t.Parallel()

	orig := New("t1", "build it", testTime)
	orig.Steps = append(orig.Steps, Step{ID: "s1", Title: "plan"})

	c := orig.Clone()
	c.Steps[0].Title = "changed"

	assert.Equal(t, "plan", orig.Steps[0].Title)
	assert.Equal(t, StatusSubmitted, c.Status)

	step, ok := orig.Step("s1")
	assert.True(t, ok)
	assert.Equal(t, "plan", step.Title)
	_, ok = orig.Step("missing")
	assert.False(t, ok)
}
