package server

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/agentmesh/meshchat/pkg/chat"
	"github.com/agentmesh/meshchat/pkg/concurrent"
	"github.com/agentmesh/meshchat/pkg/monitor"
	"github.com/agentmesh/meshchat/pkg/task"
)

type activeTask struct {
	sessionID string
	cancel    context.CancelFunc
}

type sessionData struct {
	info     chat.SessionInfo
	messages []chat.Message
	seq      int64
}

// SessionManager plays the part of an agent mesh: it keeps sessions in
// memory and answers every turn with a scripted run that streams reply
// deltas and publishes task events to the feed.
type SessionManager struct {
	feed      *TaskFeed
	artifacts chat.ArtifactStore
	agents    []chat.Agent
	stepDelay time.Duration
	now       func() time.Time

	mux      sync.Mutex
	sessions *orderedmap.OrderedMap[string, *sessionData]
	running  *concurrent.Map[string, *activeTask]
}

var _ chat.Backend = (*SessionManager)(nil)

func NewSessionManager(feed *TaskFeed, artifacts chat.ArtifactStore, agents []chat.Agent, stepDelay time.Duration, now func() time.Time) *SessionManager {
	return &SessionManager{
		feed:      feed,
		artifacts: artifacts,
		agents:    agents,
		stepDelay: stepDelay,
		now:       now,
		sessions:  orderedmap.New[string, *sessionData](),
		running:   concurrent.NewMap[string, *activeTask](),
	}
}

// Seed adds a session with an existing transcript.
func (sm *SessionManager) Seed(info chat.SessionInfo, messages []chat.Message) {
	sm.mux.Lock()
	defer sm.mux.Unlock()

	var seq int64
	for _, m := range messages {
		seq = max(seq, m.Metadata.LastProcessedEventSequence)
	}
	sm.sessions.Set(info.ID, &sessionData{info: info, messages: slices.Clone(messages), seq: seq})
}

func (sm *SessionManager) CreateSession(context.Context) (chat.SessionInfo, error) {
	sm.mux.Lock()
	defer sm.mux.Unlock()

	now := sm.now()
	info := chat.SessionInfo{ID: uuid.NewString(), CreatedAt: now, UpdatedAt: now}
	sm.sessions.Set(info.ID, &sessionData{info: info})
	return info, nil
}

func (sm *SessionManager) ListSessions(context.Context) ([]chat.SessionInfo, error) {
	sm.mux.Lock()
	defer sm.mux.Unlock()

	out := make([]chat.SessionInfo, 0, sm.sessions.Len())
	for _, s := range sm.sessions.FromOldest() {
		out = append(out, s.info)
	}
	slices.SortStableFunc(out, func(a, b chat.SessionInfo) int {
		return b.UpdatedAt.Compare(a.UpdatedAt)
	})
	return out, nil
}

func (sm *SessionManager) LoadSession(_ context.Context, sessionID string) ([]chat.Message, error) {
	sm.mux.Lock()
	defer sm.mux.Unlock()

	s, ok := sm.sessions.Get(sessionID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	return slices.Clone(s.messages), nil
}

// Submit starts a scripted run for the turn.
func (sm *SessionManager) Submit(ctx context.Context, req chat.SubmitRequest) (<-chan chat.Delta, error) {
	sm.mux.Lock()
	s, ok := sm.sessions.Get(req.SessionID)
	if !ok {
		sm.mux.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, req.SessionID)
	}
	if s.info.Title == "" {
		s.info.Title = req.Text
	}
	s.info.UpdatedAt = sm.now()
	s.messages = append(s.messages, chat.Message{
		IsUser:     true,
		Text:       req.Text,
		IsComplete: true,
		Metadata:   chat.Metadata{SessionID: req.SessionID, LastProcessedEventSequence: s.seq},
	})
	sm.mux.Unlock()

	taskID := uuid.NewString()
	runCtx, cancel := context.WithCancel(ctx)
	sm.running.Store(taskID, &activeTask{sessionID: req.SessionID, cancel: cancel})

	slog.Debug("Starting scripted run", "session_id", req.SessionID, "task_id", taskID)

	out := make(chan chat.Delta)
	go sm.run(runCtx, taskID, req, out)
	return out, nil
}

// Cancel stops a running task. Tasks that are no longer running are ignored.
func (sm *SessionManager) Cancel(_ context.Context, sessionID, taskID string) error {
	t, ok := sm.running.Load(taskID)
	if !ok {
		// Already finished, or stopped when its stream went away.
		return nil
	}
	if t.sessionID != sessionID {
		return fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
	}
	t.cancel()
	return nil
}

// run is the script of one turn.
func (sm *SessionManager) run(ctx context.Context, taskID string, req chat.SubmitRequest, out chan<- chat.Delta) {
	defer close(out)
	defer sm.running.Delete(taskID)

	agent := sm.agentFor(req.AgentName)
	var reply strings.Builder

	emit := func(kind chat.DeltaKind, text, status string) bool {
		if kind == chat.DeltaText {
			reply.WriteString(text)
		}
		d := chat.Delta{
			SessionID: req.SessionID,
			TaskID:    taskID,
			Sequence:  sm.nextSequence(req.SessionID),
			Kind:      kind,
			Text:      text,
			Status:    status,
		}
		select {
		case out <- d:
			return true
		case <-ctx.Done():
			return false
		}
	}
	pause := func() bool {
		if sm.stepDelay <= 0 {
			return ctx.Err() == nil
		}
		timer := time.NewTimer(sm.stepDelay)
		defer timer.Stop()
		select {
		case <-timer.C:
			return true
		case <-ctx.Done():
			return false
		}
	}
	publish := func(status task.Status, step *task.Step) {
		sm.feed.Publish(monitor.Event{
			TaskID:      taskID,
			Status:      status.String(),
			RequestText: req.Text,
			Step:        step,
		})
	}
	canceled := func() {
		publish(task.StatusCanceled, nil)
		slog.Debug("Scripted run canceled", "task_id", taskID)
	}

	publish(task.StatusSubmitted, &task.Step{ID: "received", Title: "Request received", AgentName: "OrchestratorAgent"})
	if !emit(chat.DeltaTaskStarted, "", "") || !pause() {
		canceled()
		return
	}

	publish(task.StatusWorking, &task.Step{ID: "delegated", Title: "Delegated to " + agent.Name, AgentName: "OrchestratorAgent"})
	if !emit(chat.DeltaStatus, agent.Title()+" is working on it...", "") || !pause() {
		canceled()
		return
	}

	answer := fmt.Sprintf("%s looked into %q. Everything checks out.", agent.Title(), req.Text)
	for _, word := range strings.SplitAfter(answer, " ") {
		if !emit(chat.DeltaText, word, "") {
			canceled()
			return
		}
	}
	if !pause() {
		canceled()
		return
	}

	if sm.artifacts != nil && mentionsFile(req.Text) {
		name := fmt.Sprintf("notes-%s.md", taskID[:8])
		content := fmt.Sprintf("# Notes\n\nRequest: %s\n\n%s\n", req.Text, answer)
		if _, err := sm.artifacts.Upload(ctx, req.SessionID, name, "text/markdown", []byte(content)); err != nil {
			slog.Warn("Failed to write artifact", "task_id", taskID, "error", err)
		} else {
			publish(task.StatusWorking, &task.Step{ID: "artifact", Title: "Wrote " + name, AgentName: agent.Name})
			if !emit(chat.DeltaArtifact, name, "") {
				canceled()
				return
			}
		}
	}

	publish(task.StatusCompleted, &task.Step{ID: "answered", Title: "Answered", AgentName: agent.Name})
	if !emit(chat.DeltaTaskFinal, "", task.StatusCompleted.String()) {
		return
	}
	sm.record(req.SessionID, taskID, reply.String())
}

func (sm *SessionManager) agentFor(name string) chat.Agent {
	for _, a := range sm.agents {
		if a.Name == name {
			return a
		}
	}
	if len(sm.agents) > 0 {
		return sm.agents[0]
	}
	return chat.Agent{Name: cmp.Or(name, "Agent")}
}

func (sm *SessionManager) nextSequence(sessionID string) int64 {
	sm.mux.Lock()
	defer sm.mux.Unlock()

	s, ok := sm.sessions.Get(sessionID)
	if !ok {
		return 0
	}
	s.seq++
	return s.seq
}

func (sm *SessionManager) record(sessionID, taskID, text string) {
	sm.mux.Lock()
	defer sm.mux.Unlock()

	s, ok := sm.sessions.Get(sessionID)
	if !ok {
		return
	}
	s.info.UpdatedAt = sm.now()
	s.messages = append(s.messages, chat.Message{
		Text:       text,
		IsComplete: true,
		TaskID:     taskID,
		Metadata:   chat.Metadata{SessionID: sessionID, LastProcessedEventSequence: s.seq},
	})
}

func mentionsFile(text string) bool {
	lower := strings.ToLower(text)
	return strings.Contains(lower, "file") || strings.Contains(lower, "report") || strings.Contains(lower, "write")
}
