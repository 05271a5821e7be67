package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentmesh/meshchat/pkg/artifacts"
	"github.com/agentmesh/meshchat/pkg/chat"
	"github.com/agentmesh/meshchat/pkg/fixtures"
	"github.com/agentmesh/meshchat/pkg/monitor"
	"github.com/agentmesh/meshchat/pkg/task"
)

func TestSessionManager_ScriptedRun(t *testing.T) {
	t.Parallel()

	feed := NewTaskFeed(fixtures.Clock)
	store := artifacts.NewMemoryStoreWithClock(fixtures.Clock)
	sm := NewSessionManager(feed, store, fixtures.Agents(), 0, fixtures.Clock)

	info, err := sm.CreateSession(t.Context())
	require.NoError(t, err)

	ch, err := sm.Submit(t.Context(), chat.SubmitRequest{SessionID: info.ID, AgentName: "AssistantAgent", Text: "summarize the file"})
	require.NoError(t, err)

	var deltas []chat.Delta
	for d := range ch {
		deltas = append(deltas, d)
	}
	require.NotEmpty(t, deltas)
	assert.Equal(t, chat.DeltaTaskFinal, deltas[len(deltas)-1].Kind)

	list, err := store.List(t.Context(), info.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	m := monitor.New(feed)
	for ev := range replay(t, feed) {
		m.ApplyEvent(ev)
	}
	tasks := m.Snapshot().OrderedTasks()
	require.Len(t, tasks, 1)
	assert.Equal(t, task.StatusCompleted, tasks[0].Status)
	assert.Equal(t, "summarize the file", tasks[0].InitialRequestText)
	assert.Len(t, tasks[0].Steps, 4)

	sessions, err := sm.ListSessions(t.Context())
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "summarize the file", sessions[0].Title)
}

func TestSessionManager_UnknownSession(t *testing.T) {
	t.Parallel()

	sm := NewSessionManager(NewTaskFeed(time.Now), nil, nil, 0, time.Now)

	_, err := sm.Submit(t.Context(), chat.SubmitRequest{SessionID: "nope", Text: "hi"})
	require.ErrorIs(t, err, ErrSessionNotFound)
	_, err = sm.LoadSession(t.Context(), "nope")
	require.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionManager_Seed(t *testing.T) {
	t.Parallel()

	sm := NewSessionManager(NewTaskFeed(time.Now), nil, nil, 0, time.Now)
	sm.Seed(fixtures.Sessions()[0], fixtures.Messages())

	msgs, err := sm.LoadSession(t.Context(), fixtures.SessionID)
	require.NoError(t, err)
	assert.Equal(t, fixtures.Messages(), msgs)
	assert.Equal(t, int64(3), sm.nextSequence(fixtures.SessionID), "sequences continue after the seeded transcript")
}

// replay returns the events published so far.
func replay(t *testing.T, feed *TaskFeed) <-chan monitor.Event {
	t.Helper()

	events, _, err := feed.Subscribe(t.Context())
	require.NoError(t, err)

	out := make(chan monitor.Event, len(events))
	for len(events) > 0 {
		out <- <-events
	}
	close(out)
	return out
}
