package monitor_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentmesh/meshchat/pkg/fixtures"
	"github.com/agentmesh/meshchat/pkg/monitor"
	"github.com/agentmesh/meshchat/pkg/task"
)

var fastRetry = monitor.NewConstantPolicy(time.Millisecond, 0)

func eventually(t *testing.T, m *monitor.Monitor, cond func(monitor.State) bool) {
	t.Helper()

	require.Eventually(t, func() bool { return cond(m.Snapshot()) }, 2*time.Second, 5*time.Millisecond)
}

func TestApplyEvent_CreatesTasksInOrder(t *testing.T) {
	t.Parallel()

	m := monitor.New(nil, monitor.WithClock(fixtures.Clock))
	require.True(t, m.ApplyEvent(monitor.Event{TaskID: "b", Sequence: 1, RequestText: "second"}))
	require.True(t, m.ApplyEvent(monitor.Event{TaskID: "a", Sequence: 1, Status: "working", RequestText: "first"}))

	st := m.Snapshot()
	assert.Equal(t, []string{"b", "a"}, st.TaskOrder)

	b, ok := st.Task("b")
	require.True(t, ok)
	assert.Equal(t, task.StatusSubmitted, b.Status)
	assert.Equal(t, "second", b.InitialRequestText)
	assert.Equal(t, fixtures.Now, b.CreatedAt)

	a, _ := st.Task("a")
	assert.Equal(t, task.StatusWorking, a.Status, "a task first seen working starts submitted and moves on")

	ordered := st.OrderedTasks()
	require.Len(t, ordered, 2)
	assert.Equal(t, "b", ordered[0].ID)
}

func TestApplyEvent_DropsReplays(t *testing.T) {
	t.Parallel()

	m := monitor.New(nil)
	require.True(t, m.ApplyEvent(monitor.Event{TaskID: "t", Sequence: 4, Status: "working"}))
	assert.False(t, m.ApplyEvent(monitor.Event{TaskID: "t", Sequence: 4, Status: "completed"}))
	assert.False(t, m.ApplyEvent(monitor.Event{TaskID: "t", Sequence: 2, Status: "failed"}))
	assert.False(t, m.ApplyEvent(monitor.Event{Sequence: 9}), "events need a task id")

	tk, _ := m.Snapshot().Task("t")
	assert.Equal(t, task.StatusWorking, tk.Status)
	assert.Equal(t, int64(4), tk.LastEventSequence)
}

func TestApplyEvent_StatusChangesFollowTheStateMachine(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		events []string
		want   task.Status
	}{
		{"happy path", []string{"submitted", "working", "completed"}, task.StatusCompleted},
		{"input round trip", []string{"working", "input-required", "working"}, task.StatusWorking},
		{"terminal is final", []string{"completed", "working"}, task.StatusCompleted},
		{"failed after cancel ignored", []string{"canceled", "failed"}, task.StatusCanceled},
		{"unrecognized status ignored", []string{"working", "exploded"}, task.StatusWorking},
		{"alternate spelling", []string{"cancelled"}, task.StatusCanceled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			m := monitor.New(nil)
			for i, status := range tt.events {
				m.ApplyEvent(monitor.Event{TaskID: "t", Sequence: int64(i + 1), Status: status})
			}
			tk, _ := m.Snapshot().Task("t")
			assert.Equal(t, tt.want, tk.Status)
		})
	}
}

func TestApplyEvent_Steps(t *testing.T) {
	t.Parallel()

	m := monitor.New(nil, monitor.WithClock(fixtures.Clock))
	m.ApplyEvent(monitor.Event{TaskID: "t", Sequence: 1, Step: &task.Step{ID: "s1", Title: "Planning"}})
	m.ApplyEvent(monitor.Event{TaskID: "t", Sequence: 2, Step: &task.Step{ID: "s2", Title: "Searching"}})
	m.ApplyEvent(monitor.Event{TaskID: "t", Sequence: 3, Step: &task.Step{ID: "s1", Title: "Planning (done)"}})

	tk, _ := m.Snapshot().Task("t")
	require.Len(t, tk.Steps, 2)
	assert.Equal(t, "Planning (done)", tk.Steps[0].Title)
	assert.Equal(t, "Searching", tk.Steps[1].Title)
	assert.Equal(t, fixtures.Now, tk.Steps[1].Timestamp)
}

func TestHighlightAndClear(t *testing.T) {
	t.Parallel()

	m := monitor.New(nil, monitor.WithTasks(fixtures.Task(task.StatusWorking)))
	m.HighlightStep("no-such-step")
	assert.Equal(t, "no-such-step", m.Snapshot().HighlightedStepID)

	assert.False(t, m.RemoveTask("unknown"))
	assert.True(t, m.RemoveTask(fixtures.TaskID))
	assert.Empty(t, m.Snapshot().Tasks)

	m.ApplyEvent(monitor.Event{TaskID: "x", Sequence: 1})
	m.ClearTasks()
	st := m.Snapshot()
	assert.Empty(t, st.TaskOrder)
	assert.Empty(t, st.HighlightedStepID)
}

func TestConnect(t *testing.T) {
	t.Parallel()

	stream := fixtures.NewStream()
	m := monitor.New(stream, monitor.WithRetryPolicy(fastRetry))

	require.NoError(t, m.Connect(t.Context()))
	require.NoError(t, m.Connect(t.Context()), "connecting twice is a no-op")
	assert.Equal(t, int32(1), stream.Subscribes.Load())

	st := m.Snapshot()
	assert.True(t, st.IsConnected)
	assert.False(t, st.IsConnecting)
	assert.Zero(t, st.ReconnectionAttempts)

	stream.Emit(monitor.Event{TaskID: "t", Sequence: 1, Status: "working", RequestText: "hi"})
	eventually(t, m, func(st monitor.State) bool { return len(st.Tasks) == 1 })

	m.Disconnect()
	st = m.Snapshot()
	assert.False(t, st.IsConnected)
	assert.Len(t, st.Tasks, 1, "disconnecting keeps tasks")
}

func TestConnect_RetriesUntilConnected(t *testing.T) {
	t.Parallel()

	boom := errors.New("connection refused")
	stream := fixtures.NewStream(boom, boom)
	release := make(chan struct{})
	policy := monitor.RetryFunc(func(int) (time.Duration, bool) {
		<-release
		return time.Millisecond, true
	})
	m := monitor.New(stream, monitor.WithRetryPolicy(policy))

	err := m.Connect(t.Context())
	require.ErrorIs(t, err, boom)
	st := m.Snapshot()
	assert.True(t, st.IsReconnecting)
	assert.False(t, st.IsConnected)
	assert.Equal(t, 1, st.ReconnectionAttempts)
	require.ErrorIs(t, st.LastError, boom)

	require.NoError(t, m.Connect(t.Context()), "connect is a no-op while reconnecting")
	close(release)

	eventually(t, m, func(st monitor.State) bool { return st.IsConnected })
	st = m.Snapshot()
	assert.Zero(t, st.ReconnectionAttempts, "a successful connection resets the counter")
	assert.NoError(t, st.LastError)
	assert.False(t, st.IsReconnecting)
	assert.Equal(t, int32(3), stream.Subscribes.Load())
	m.Disconnect()
}

func TestConnect_GivesUp(t *testing.T) {
	t.Parallel()

	boom := errors.New("connection refused")
	stream := fixtures.NewStream(boom, boom, boom)
	m := monitor.New(stream, monitor.WithRetryPolicy(monitor.NewConstantPolicy(time.Millisecond, 2)))

	require.Error(t, m.Connect(t.Context()))
	eventually(t, m, func(st monitor.State) bool { return !st.IsReconnecting })

	st := m.Snapshot()
	assert.False(t, st.IsConnected)
	assert.Equal(t, 3, st.ReconnectionAttempts)
	require.ErrorIs(t, st.LastError, monitor.ErrRetriesExhausted)
	require.ErrorIs(t, st.LastError, boom)

	require.Eventually(t, func() bool {
		return m.Connect(t.Context()) == nil && m.Snapshot().IsConnected
	}, 2*time.Second, 5*time.Millisecond, "connect works again after giving up")
	m.Disconnect()
}

func TestReconnectsWhenTheStreamDrops(t *testing.T) {
	t.Parallel()

	stream := fixtures.NewStream()
	m := monitor.New(stream, monitor.WithRetryPolicy(fastRetry))
	require.NoError(t, m.Connect(t.Context()))
	<-stream.Opened

	stream.Fail(errors.New("reset by peer"))
	<-stream.Opened

	eventually(t, m, func(st monitor.State) bool { return st.IsConnected && st.ReconnectionAttempts == 0 })
	assert.Equal(t, int32(2), stream.Subscribes.Load())

	stream.Emit(monitor.Event{TaskID: "after", Sequence: 1})
	eventually(t, m, func(st monitor.State) bool { return len(st.Tasks) == 1 })
	m.Disconnect()
}

func TestNoRetry(t *testing.T) {
	t.Parallel()

	stream := fixtures.NewStream(errors.New("down"))
	m := monitor.New(stream, monitor.WithRetryPolicy(monitor.NoRetry))

	require.Error(t, m.Connect(t.Context()))
	eventually(t, m, func(st monitor.State) bool { return !st.IsReconnecting })
	assert.Equal(t, int32(1), stream.Subscribes.Load())
}
