package cli

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentmesh/meshchat/pkg/chat"
	"github.com/agentmesh/meshchat/pkg/fixtures"
	"github.com/agentmesh/meshchat/pkg/monitor"
	"github.com/agentmesh/meshchat/pkg/task"
)

// syncBuffer is written by the printer while the test reads it.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestSend_PrintsTheReply(t *testing.T) {
	t.Parallel()

	backend := fixtures.NewBackend()
	backend.Script = []chat.Delta{
		{TaskID: "task-1", Sequence: 1, Kind: chat.DeltaTaskStarted},
		{TaskID: "task-1", Sequence: 2, Kind: chat.DeltaText, Text: "Hello"},
		{TaskID: "task-1", Sequence: 3, Kind: chat.DeltaText, Text: ", world"},
		{TaskID: "task-1", Sequence: 4, Kind: chat.DeltaTaskFinal, Status: task.StatusCompleted.String()},
	}
	store := chat.NewStore(backend, chat.WithSessionID(fixtures.SessionID))

	var buf bytes.Buffer
	require.NoError(t, Send(t.Context(), store, NewPrinter(&buf), "hi"))

	assert.Equal(t, "Hello, world\n", buf.String())
	assert.Equal(t, "hi", backend.Submitted.All()[0].Text)
	assert.False(t, store.Snapshot().IsResponding)
}

func TestSend_FailedTaskIsAnError(t *testing.T) {
	t.Parallel()

	backend := fixtures.NewBackend()
	backend.Script = []chat.Delta{
		{TaskID: "task-1", Sequence: 1, Kind: chat.DeltaTaskStarted},
		{TaskID: "task-1", Sequence: 2, Kind: chat.DeltaText, Text: "partial"},
		{TaskID: "task-1", Sequence: 3, Kind: chat.DeltaTaskFinal, Status: task.StatusFailed.String(), Text: "reply stream interrupted"},
	}
	store := chat.NewStore(backend, chat.WithSessionID(fixtures.SessionID))

	var buf bytes.Buffer
	err := Send(t.Context(), store, NewPrinter(&buf), "hi")
	require.ErrorIs(t, err, ErrTurnFailed)
	assert.Contains(t, err.Error(), "reply stream interrupted")
	assert.Contains(t, buf.String(), "partial")
	assert.Empty(t, store.Snapshot().Notifications)
}

func TestSend_RejectsEmptyInput(t *testing.T) {
	t.Parallel()

	store := chat.NewStore(fixtures.NewBackend())
	err := Send(t.Context(), store, NewPrinter(&bytes.Buffer{}), "   ")
	require.ErrorIs(t, err, chat.ErrEmptyInput)
}

func TestSend_SubmitFailure(t *testing.T) {
	t.Parallel()

	backend := fixtures.NewBackend()
	backend.SubmitErr = errors.New("gateway unavailable")
	store := chat.NewStore(backend)

	err := Send(t.Context(), store, NewPrinter(&bytes.Buffer{}), "hi")
	require.ErrorContains(t, err, "gateway unavailable")
}

func TestSend_CancelOnContextDone(t *testing.T) {
	t.Parallel()

	backend := fixtures.NewBackend()
	store := chat.NewStore(backend, chat.WithSessionID(fixtures.SessionID))

	ctx, cancel := context.WithCancel(t.Context())
	buf := &syncBuffer{}
	done := make(chan error, 1)
	go func() { done <- Send(ctx, store, NewPrinter(buf), "hi") }()

	require.Eventually(t, func() bool {
		return backend.Emit(chat.Delta{SessionID: fixtures.SessionID, TaskID: "task-1", Sequence: 1, Kind: chat.DeltaTaskStarted})
	}, time.Second, 5*time.Millisecond)
	require.True(t, backend.Emit(chat.Delta{SessionID: fixtures.SessionID, TaskID: "task-1", Sequence: 2, Kind: chat.DeltaText, Text: "partial"}))
	require.Eventually(t, func() bool { return strings.Contains(buf.String(), "partial") }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.ErrorIs(t, err, ErrCanceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Send did not return")
	}
	assert.Equal(t, []fixtures.CancelCall{{SessionID: fixtures.SessionID, TaskID: "task-1"}}, backend.Canceled.All())
}

func TestWatch(t *testing.T) {
	t.Parallel()

	stream := fixtures.NewStream()
	mon := monitor.New(stream, monitor.WithRetryPolicy(monitor.NoRetry))

	ctx, cancel := context.WithCancel(t.Context())
	buf := &syncBuffer{}
	done := make(chan error, 1)
	go func() { done <- Watch(ctx, mon, NewPrinter(buf)) }()

	<-stream.Opened
	step := fixtures.Task(task.StatusWorking).Steps[0]
	stream.Emit(monitor.Event{TaskID: "t1", Sequence: 1, Status: "submitted", RequestText: "Summarize the report"})
	stream.Emit(monitor.Event{TaskID: "t1", Sequence: 2, Status: "working", Step: &step})
	stream.Emit(monitor.Event{TaskID: "t1", Sequence: 3, Status: "completed"})

	require.Eventually(t, func() bool { return strings.Contains(buf.String(), "✓ Completed") }, time.Second, 5*time.Millisecond)
	assert.Contains(t, buf.String(), "t1  • Delegated to DeveloperAgent · OrchestratorAgent")
	assert.Contains(t, buf.String(), "Summarize the report")

	cancel()
	require.NoError(t, <-done)
}

func TestWatch_GivesUp(t *testing.T) {
	t.Parallel()

	stream := fixtures.NewStream(errors.New("connection refused"))
	mon := monitor.New(stream, monitor.WithRetryPolicy(monitor.NoRetry))

	err := Watch(t.Context(), mon, NewPrinter(&bytes.Buffer{}))
	require.ErrorContains(t, err, "connection refused")
}
