package gateway_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentmesh/meshchat/pkg/chat"
	"github.com/agentmesh/meshchat/pkg/fixtures"
	"github.com/agentmesh/meshchat/pkg/monitor"
	"github.com/agentmesh/meshchat/pkg/remote/gateway"
	"github.com/agentmesh/meshchat/pkg/server"
)

func startGateway(t *testing.T, stepDelay time.Duration) (*gateway.Client, *server.Demo) {
	t.Helper()

	demo := server.NewDemo(stepDelay)
	srv := httptest.NewServer(demo.Handler())
	t.Cleanup(srv.Close)

	client, err := gateway.NewClient(srv.URL)
	require.NoError(t, err)
	return client, demo
}

func drain(t *testing.T, ch <-chan chat.Delta) []chat.Delta {
	t.Helper()

	var out []chat.Delta
	timeout := time.After(5 * time.Second)
	for {
		select {
		case d, ok := <-ch:
			if !ok {
				return out
			}
			out = append(out, d)
		case <-timeout:
			t.Fatal("reply stream did not end")
			return nil
		}
	}
}

func TestNewClient_InvalidURL(t *testing.T) {
	t.Parallel()

	_, err := gateway.NewClient("not a url")
	require.Error(t, err)
}

func TestSessions(t *testing.T) {
	t.Parallel()

	client, _ := startGateway(t, 0)
	ctx := t.Context()

	sessions, err := client.ListSessions(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, fixtures.SessionID, sessions[0].ID)

	msgs, err := client.LoadSession(ctx, fixtures.SessionID)
	require.NoError(t, err)
	assert.Equal(t, fixtures.Messages(), msgs)

	info, err := client.CreateSession(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, info.ID)

	_, err = client.LoadSession(ctx, "missing")
	var se *gateway.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 404, se.StatusCode)
}

func TestSubmit(t *testing.T) {
	t.Parallel()

	client, _ := startGateway(t, 0)
	ctx := t.Context()

	info, err := client.CreateSession(ctx)
	require.NoError(t, err)

	ch, err := client.Submit(ctx, chat.SubmitRequest{SessionID: info.ID, AgentName: "DeveloperAgent", Text: "write a report"})
	require.NoError(t, err)
	deltas := drain(t, ch)

	require.NotEmpty(t, deltas)
	assert.Equal(t, chat.DeltaTaskStarted, deltas[0].Kind)
	last := deltas[len(deltas)-1]
	assert.Equal(t, chat.DeltaTaskFinal, last.Kind)
	assert.Equal(t, "completed", last.Status)

	var reply strings.Builder
	var sawArtifact bool
	for i, d := range deltas {
		assert.Equal(t, info.ID, d.SessionID)
		assert.Equal(t, int64(i+1), d.Sequence)
		switch d.Kind {
		case chat.DeltaText:
			reply.WriteString(d.Text)
		case chat.DeltaArtifact:
			sawArtifact = true
		}
	}
	assert.Contains(t, reply.String(), "Developer looked into")
	assert.True(t, sawArtifact)

	list, err := client.Artifacts().List(ctx, info.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, strings.HasPrefix(list[0].Filename, "notes-"))

	msgs, err := client.LoadSession(ctx, info.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, reply.String(), msgs[1].Text)
}

// brokenReplyServer streams the start of a reply and then a line longer than
// any event the client accepts.
func brokenReplyServer(t *testing.T, firstSeq int64) *gateway.Client {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		for _, d := range []chat.Delta{
			{Kind: chat.DeltaTaskStarted, TaskID: "task-1", Sequence: firstSeq},
			{Kind: chat.DeltaText, TaskID: "task-1", Sequence: firstSeq + 1, Text: "partial"},
		} {
			data, err := json.Marshal(gateway.NewDeltaEvent(d))
			if err != nil {
				t.Error(err)
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", data)
		}
		fmt.Fprintf(w, "data: %s\n\n", strings.Repeat("x", 2<<20))
	}))
	t.Cleanup(srv.Close)

	client, err := gateway.NewClient(srv.URL)
	require.NoError(t, err)
	return client
}

func TestSubmit_BrokenStreamEndsWithFailure(t *testing.T) {
	t.Parallel()

	client := brokenReplyServer(t, 5)

	ch, err := client.Submit(t.Context(), chat.SubmitRequest{SessionID: "s", Text: "hi", LastSequence: 4})
	require.NoError(t, err)
	deltas := drain(t, ch)

	require.Len(t, deltas, 3)
	last := deltas[2]
	assert.Equal(t, chat.DeltaTaskFinal, last.Kind)
	assert.Equal(t, "failed", last.Status)
	assert.Equal(t, "task-1", last.TaskID)
	assert.Equal(t, "s", last.SessionID)
	assert.Equal(t, int64(7), last.Sequence)
	assert.Contains(t, last.Text, "reply stream interrupted")
}

func TestSubmit_BrokenStreamIsReportedByTheStore(t *testing.T) {
	t.Parallel()

	store := chat.NewStore(brokenReplyServer(t, 1), chat.WithSessionID("s"))
	store.SetUserInput("hi")
	require.NoError(t, store.Submit(t.Context()))

	require.Eventually(t, func() bool { return !store.Snapshot().IsResponding }, 5*time.Second, 10*time.Millisecond)

	st := store.Snapshot()
	require.Len(t, st.Notifications, 1)
	assert.Equal(t, chat.NotifyError, st.Notifications[0].Kind)

	last := st.Messages[len(st.Messages)-1]
	assert.True(t, strings.HasPrefix(last.Text, "Error: reply stream interrupted"), last.Text)
}

func TestSubmit_UnknownSession(t *testing.T) {
	t.Parallel()

	client, _ := startGateway(t, 0)
	_, err := client.Submit(t.Context(), chat.SubmitRequest{SessionID: "missing", Text: "hi"})
	require.Error(t, err)
}

func TestCancel(t *testing.T) {
	t.Parallel()

	client, demo := startGateway(t, time.Minute)
	ctx := t.Context()

	info, err := client.CreateSession(ctx)
	require.NoError(t, err)

	ch, err := client.Submit(ctx, chat.SubmitRequest{SessionID: info.ID, Text: "take your time"})
	require.NoError(t, err)

	started := <-ch
	require.Equal(t, chat.DeltaTaskStarted, started.Kind)

	require.NoError(t, client.Cancel(ctx, info.ID, started.TaskID))
	drain(t, ch)

	require.Eventually(t, func() bool {
		events, _, err := demo.Feed.Subscribe(ctx)
		if err != nil {
			return false
		}
		var status string
		for len(events) > 0 {
			ev := <-events
			if ev.TaskID == started.TaskID && ev.Status != "" {
				status = ev.Status
			}
		}
		return status == "canceled"
	}, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, client.Cancel(ctx, info.ID, started.TaskID), "canceling a finished task is a no-op")
}

func TestAgents(t *testing.T) {
	t.Parallel()

	client, _ := startGateway(t, 0)

	agents, err := client.Agents().List(t.Context())
	require.NoError(t, err)
	assert.Equal(t, fixtures.Agents(), agents)
}

func TestArtifacts(t *testing.T) {
	t.Parallel()

	client, _ := startGateway(t, 0)
	store := client.Artifacts()
	ctx := t.Context()

	list, err := store.List(ctx, fixtures.SessionID)
	require.NoError(t, err)
	require.Len(t, list, 2)

	versions, err := store.Versions(ctx, fixtures.SessionID, "plan.md")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, versions)

	data, err := store.Fetch(ctx, fixtures.SessionID, "plan.md", 1)
	require.NoError(t, err)
	assert.Equal(t, "# Plan\n\n- draft\n", string(data))

	_, err = store.Fetch(ctx, fixtures.SessionID, "plan.md", 9)
	require.ErrorIs(t, err, chat.ErrArtifactNotFound)
	_, err = store.Versions(ctx, fixtures.SessionID, "missing.txt")
	require.ErrorIs(t, err, chat.ErrArtifactNotFound)

	info, err := store.Upload(ctx, fixtures.SessionID, "notes one.txt", "", []byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, "notes one.txt", info.Filename)
	assert.Equal(t, 1, info.Version)

	require.NoError(t, store.Delete(ctx, fixtures.SessionID, "notes one.txt"))
	require.ErrorIs(t, store.Delete(ctx, fixtures.SessionID, "notes one.txt"), chat.ErrArtifactNotFound)

	deleted, err := store.BatchDelete(ctx, fixtures.SessionID, []string{"plan.md", "missing.txt"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing.txt")
	assert.Equal(t, []string{"plan.md"}, deleted)
}

func receive(t *testing.T, events <-chan monitor.Event, n int) []monitor.Event {
	t.Helper()

	out := make([]monitor.Event, 0, n)
	timeout := time.After(5 * time.Second)
	for len(out) < n {
		select {
		case ev, ok := <-events:
			require.True(t, ok, "stream ended early")
			out = append(out, ev)
		case <-timeout:
			t.Fatalf("got %d of %d events", len(out), n)
		}
	}
	return out
}

func TestTaskEvents(t *testing.T) {
	t.Parallel()

	client, demo := startGateway(t, 0)

	streams := map[string]monitor.Stream{
		"sse":       client.TaskEvents(),
		"websocket": client.TaskEventsWS(nil),
	}
	for name, stream := range streams {
		t.Run(name, func(t *testing.T) {
			ctx, cancel := context.WithCancel(t.Context())
			defer cancel()

			events, _, err := stream.Subscribe(ctx)
			require.NoError(t, err)

			replayed := receive(t, events, 4)
			assert.Equal(t, fixtures.TaskID, replayed[0].TaskID)
			assert.Equal(t, "submitted", replayed[0].Status)
			assert.Equal(t, "completed", replayed[3].Status)
			require.NotNil(t, replayed[1].Step)
			assert.Equal(t, "step-1", replayed[1].Step.ID)

			demo.Feed.Publish(monitor.Event{TaskID: "live-" + name, Status: "submitted"})
			// Earlier subtests may have published too.
			for {
				ev := receive(t, events, 1)[0]
				if ev.TaskID == "live-"+name {
					assert.Equal(t, int64(1), ev.Sequence)
					break
				}
			}
		})
	}
}
