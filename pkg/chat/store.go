package chat

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/agentmesh/meshchat/pkg/concurrent"
	"github.com/agentmesh/meshchat/pkg/task"
)

const (
	// DefaultStatusText is shown in the status bubble until the backend
	// reports progress.
	DefaultStatusText = "Thinking..."
	// CancelingStatusText replaces the status bubble text while a cancel
	// request is outstanding.
	CancelingStatusText = "Canceling..."
)

// Store owns the state of one chat window. Every method is safe for
// concurrent use; backend streams apply their deltas from their own
// goroutines.
type Store struct {
	backend      Backend
	artifacts    ArtifactStore
	directory    AgentDirectory
	defaultAgent string
	now          func() time.Time
	newID        func() string

	mu        sync.RWMutex
	state     State
	lastSeq   map[string]int64
	notifySeq uint64
	stream    streamHandle
	streamGen uint64

	changes *concurrent.Broadcaster
}

// streamHandle is the response currently being pumped into the store.
type streamHandle struct {
	gen    uint64
	cancel context.CancelFunc
}

type Option func(*Store)

func WithArtifactStore(a ArtifactStore) Option {
	return func(s *Store) {
		s.artifacts = a
	}
}

func WithAgentDirectory(d AgentDirectory) Option {
	return func(s *Store) {
		s.directory = d
	}
}

// WithDefaultAgent selects name initially and after LoadAgents when it is
// among the loaded agents.
func WithDefaultAgent(name string) Option {
	return func(s *Store) {
		s.defaultAgent = name
		s.state.SelectedAgentName = name
	}
}

func WithSessionID(id string) Option {
	return func(s *Store) {
		s.state.SessionID = id
	}
}

// WithState seeds the store with a preset state.
func WithState(st State) Option {
	return func(s *Store) {
		s.state = st.clone()
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

func WithIDGenerator(newID func() string) Option {
	return func(s *Store) {
		s.newID = newID
	}
}

// NewStore creates a chat store talking to backend. A nil backend gives a
// read-only store, which is what the view stories use.
func NewStore(backend Backend, opts ...Option) *Store {
	s := &Store{
		backend: backend,
		now:     time.Now,
		newID:   uuid.NewString,
		lastSeq: make(map[string]int64),
		changes: concurrent.NewBroadcaster(),
		state: State{
			ActiveSidePanelTab:   TabFiles,
			IsSidePanelCollapsed: true,
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.state.SessionID == "" {
		s.state.SessionID = s.newID()
	}
	if s.state.SelectedArtifactFilenames == nil {
		s.state.SelectedArtifactFilenames = make(map[string]struct{})
	}
	for _, m := range s.state.Messages {
		s.observeSequence(m.Metadata)
	}
	return s
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.state.clone()
}

// Subscribe returns a channel that receives a signal after every change, and
// a func to stop listening.
func (s *Store) Subscribe() (<-chan struct{}, func()) {
	return s.changes.Subscribe()
}

func (s *Store) mutate(fn func(st *State)) {
	s.mu.Lock()
	fn(&s.state)
	s.mu.Unlock()
	s.changes.Notify()
}

func (s *Store) observeSequence(m Metadata) {
	if last, ok := s.lastSeq[m.SessionID]; !ok || m.LastProcessedEventSequence > last {
		s.lastSeq[m.SessionID] = m.LastProcessedEventSequence
	}
}

// NewSession starts a fresh conversation. Any streaming response is
// abandoned. The artifact listing is left alone.
func (s *Store) NewSession(ctx context.Context) string {
	id := s.createSessionID(ctx)

	s.mu.Lock()
	cancel := s.stream.cancel
	s.stream = streamHandle{}
	s.state.SessionID = id
	s.state.Messages = nil
	s.state.UserInput = ""
	s.state.IsResponding = false
	s.state.IsCancelling = false
	s.state.CurrentTaskID = ""
	s.state.TaskIDInSidePanel = ""
	s.state.Preview = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.changes.Notify()

	slog.Debug("Started new chat session", "session_id", id)
	return id
}

func (s *Store) createSessionID(ctx context.Context) string {
	if s.backend == nil {
		return s.newID()
	}
	info, err := s.backend.CreateSession(ctx)
	if err != nil || info.ID == "" {
		slog.Warn("Backend did not create a session, using a local id", "error", err)
		return s.newID()
	}
	return info.ID
}

// SwitchSession replaces the conversation with the history of sessionID.
func (s *Store) SwitchSession(ctx context.Context, sessionID string) error {
	if s.backend == nil {
		return errors.New("no backend configured")
	}
	history, err := s.backend.LoadSession(ctx, sessionID)
	if err != nil {
		s.AddNotification(fmt.Sprintf("Could not load session: %v", err), NotifyError)
		return fmt.Errorf("loading session %s: %w", sessionID, err)
	}

	s.mu.Lock()
	cancel := s.stream.cancel
	s.stream = streamHandle{}
	s.state.SessionID = sessionID
	s.state.Messages = withoutStatusBubbles(slices.Clone(history))
	s.state.UserInput = ""
	s.state.IsResponding = false
	s.state.IsCancelling = false
	s.state.CurrentTaskID = ""
	s.state.TaskIDInSidePanel = ""
	s.state.Preview = nil
	for _, m := range history {
		s.observeSequence(m.Metadata)
	}
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.changes.Notify()
	return nil
}

// RefreshSessions reloads the session list from the backend.
func (s *Store) RefreshSessions(ctx context.Context) error {
	if s.backend == nil {
		return nil
	}
	s.mutate(func(st *State) { st.SessionsLoading = true })

	sessions, err := s.backend.ListSessions(ctx)
	s.mutate(func(st *State) {
		st.SessionsLoading = false
		if err == nil {
			st.Sessions = sessions
		}
	})
	if err != nil {
		return fmt.Errorf("listing sessions: %w", err)
	}
	return nil
}

func (s *Store) SetUserInput(text string) {
	s.mutate(func(st *State) { st.UserInput = text })
}

// Submit sends the composition buffer to the selected agent and streams the
// response into the message log.
func (s *Store) Submit(ctx context.Context) error {
	if s.backend == nil {
		return errors.New("no backend configured")
	}

	s.mu.Lock()
	if s.state.IsResponding {
		s.mu.Unlock()
		return ErrResponseInFlight
	}
	text := strings.TrimSpace(s.state.UserInput)
	if text == "" {
		s.mu.Unlock()
		return ErrEmptyInput
	}

	sessionID := s.state.SessionID
	meta := Metadata{SessionID: sessionID, LastProcessedEventSequence: s.lastSeq[sessionID]}
	s.state.Messages = append(withoutStatusBubbles(s.state.Messages),
		Message{IsUser: true, Text: text, IsComplete: true, Metadata: meta},
		Message{Text: DefaultStatusText, IsStatusBubble: true, Metadata: meta},
	)
	s.state.UserInput = ""
	s.state.IsResponding = true
	s.state.IsCancelling = false
	s.state.CurrentTaskID = ""
	req := SubmitRequest{
		SessionID:    sessionID,
		AgentName:    s.state.SelectedAgentName,
		Text:         text,
		LastSequence: s.lastSeq[sessionID],
	}

	s.streamGen++
	gen := s.streamGen
	streamCtx, cancel := context.WithCancel(ctx)
	s.stream = streamHandle{gen: gen, cancel: cancel}
	s.mu.Unlock()
	s.changes.Notify()

	slog.Debug("Submitting message", "session_id", sessionID, "agent", req.AgentName)

	deltas, err := s.backend.Submit(streamCtx, req)
	if err != nil {
		cancel()
		if !s.failStream(gen, err) {
			return nil
		}
		return fmt.Errorf("submitting message: %w", err)
	}

	go s.pump(streamCtx, gen, deltas)
	return nil
}

func (s *Store) pump(ctx context.Context, gen uint64, deltas <-chan Delta) {
	defer s.endStream(gen)

	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-deltas:
			if !ok || ctx.Err() != nil {
				return
			}
			if !s.ApplyDelta(d) || d.Kind != DeltaArtifact {
				continue
			}
			if err := s.RefreshArtifacts(ctx); err != nil && !errors.Is(err, ErrNoArtifactStore) {
				slog.Warn("Failed to refresh artifacts", "session_id", d.SessionID, "error", err)
			}
		}
	}
}

// endStream runs when a pump returns. A stream that closed without a final
// delta still ends the turn.
func (s *Store) endStream(gen uint64) {
	s.mu.Lock()
	if s.stream.gen != gen || s.stream.cancel == nil {
		s.mu.Unlock()
		return
	}
	cancel := s.stream.cancel
	s.stream = streamHandle{}
	changed := false
	if s.state.IsResponding && !s.state.IsCancelling {
		slog.Debug("Response stream ended without a final update", "session_id", s.state.SessionID)
		finishTurn(&s.state)
		changed = true
	}
	s.mu.Unlock()

	cancel()
	if changed {
		s.changes.Notify()
	}
}

// failStream ends the turn after the backend refused the message. It reports
// false when the failure was caused by a cancel or the turn was already
// abandoned, in which case nothing is shown to the user.
func (s *Store) failStream(gen uint64, err error) bool {
	s.mu.Lock()
	if s.stream.gen != gen {
		s.mu.Unlock()
		return false
	}
	s.stream = streamHandle{}
	sessionID := s.state.SessionID
	if s.state.IsCancelling {
		// Cancel finishes the turn once the backend has answered.
		s.mu.Unlock()
		return false
	}
	if errors.Is(err, context.Canceled) {
		finishTurn(&s.state)
		s.mu.Unlock()
		s.changes.Notify()
		slog.Debug("Submit canceled", "session_id", sessionID)
		return false
	}
	finishTurn(&s.state)
	s.state.Messages = append(s.state.Messages, Message{
		Text:       "Error: " + err.Error(),
		IsComplete: true,
		Metadata:   Metadata{SessionID: sessionID, LastProcessedEventSequence: s.lastSeq[sessionID]},
	})
	s.addNotificationLocked("Failed to send message", NotifyError)
	s.mu.Unlock()
	s.changes.Notify()

	slog.Error("Failed to submit message", "session_id", sessionID, "error", err)
	return true
}

// Cancel asks the backend to stop the task behind the current response. The
// local stream stops being applied immediately.
func (s *Store) Cancel(ctx context.Context) error {
	s.mu.Lock()
	if !s.state.IsResponding {
		s.mu.Unlock()
		return ErrNothingToCancel
	}
	if s.state.IsCancelling {
		s.mu.Unlock()
		return nil
	}
	s.state.IsCancelling = true
	if i := statusBubbleIndex(s.state.Messages); i >= 0 {
		s.state.Messages[i].Text = CancelingStatusText
	}
	sessionID := s.state.SessionID
	taskID := s.state.CurrentTaskID
	gen := s.stream.gen
	cancel := s.stream.cancel
	s.mu.Unlock()
	s.changes.Notify()

	if cancel != nil {
		cancel()
	}

	var err error
	if taskID != "" && s.backend != nil {
		err = s.backend.Cancel(ctx, sessionID, taskID)
	}

	s.mu.Lock()
	if s.stream.gen == gen {
		s.stream = streamHandle{}
	}
	if s.state.IsCancelling && s.state.SessionID == sessionID {
		finishTurn(&s.state)
		if err != nil {
			s.addNotificationLocked(fmt.Sprintf("Failed to cancel task: %v", err), NotifyError)
		} else {
			s.addNotificationLocked("Request canceled", NotifyInfo)
		}
	}
	s.mu.Unlock()
	s.changes.Notify()

	if err != nil {
		slog.Error("Failed to cancel task", "session_id", sessionID, "task_id", taskID, "error", err)
		return fmt.Errorf("canceling task %s: %w", taskID, err)
	}
	return nil
}

// ApplyDelta folds one streamed update into the message log. It reports
// whether the delta was applied; deltas for another session, replayed
// deltas and updates arriving while a cancel is in progress are dropped.
func (s *Store) ApplyDelta(d Delta) bool {
	s.mu.Lock()
	applied := s.applyDelta(d)
	var cancel context.CancelFunc
	if applied && d.Kind == DeltaTaskFinal {
		cancel = s.stream.cancel
		s.stream = streamHandle{}
	}
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if applied {
		s.changes.Notify()
	}
	return applied
}

func (s *Store) applyDelta(d Delta) bool {
	st := &s.state
	if d.SessionID != st.SessionID {
		slog.Debug("Dropping delta for another session", "session_id", d.SessionID, "kind", d.Kind)
		return false
	}
	if last, ok := s.lastSeq[d.SessionID]; ok && d.Sequence <= last {
		slog.Debug("Dropping replayed delta", "session_id", d.SessionID, "sequence", d.Sequence, "last", last)
		return false
	}
	switch d.Kind {
	case DeltaArtifact:
	case DeltaTaskFinal:
		if !st.IsResponding {
			return false
		}
	default:
		if !st.IsResponding || st.IsCancelling {
			return false
		}
	}

	s.lastSeq[d.SessionID] = d.Sequence
	meta := Metadata{SessionID: d.SessionID, LastProcessedEventSequence: d.Sequence}

	switch d.Kind {
	case DeltaTaskStarted:
		st.CurrentTaskID = d.TaskID
		if i := statusBubbleIndex(st.Messages); i >= 0 {
			st.Messages[i].TaskID = d.TaskID
			st.Messages[i].Metadata = meta
		}
	case DeltaText:
		appendAgentText(st, d.Text, d.TaskID, meta)
	case DeltaStatus:
		if i := statusBubbleIndex(st.Messages); i >= 0 {
			st.Messages[i].Text = d.Text
			st.Messages[i].TaskID = cmp.Or(d.TaskID, st.Messages[i].TaskID)
			st.Messages[i].Metadata = meta
		} else {
			st.Messages = append(st.Messages, Message{Text: d.Text, IsStatusBubble: true, TaskID: d.TaskID, Metadata: meta})
		}
	case DeltaArtifact:
	case DeltaTaskFinal:
		s.finalizeTask(d, meta)
	}
	return true
}

func (s *Store) finalizeTask(d Delta, meta Metadata) {
	st := &s.state
	status := task.ParseStatus(d.Status)

	if d.Text != "" && status != task.StatusFailed && !hasPendingReply(st.Messages) {
		appendAgentText(st, d.Text, d.TaskID, meta)
	}
	finishTurn(st)

	switch status {
	case task.StatusFailed:
		reason := cmp.Or(d.Text, "the task failed")
		st.Messages = append(st.Messages, Message{Text: "Error: " + reason, IsComplete: true, TaskID: d.TaskID, Metadata: meta})
		s.addNotificationLocked("Task failed: "+reason, NotifyError)
	case task.StatusCanceled:
		s.addNotificationLocked("Task canceled", NotifyInfo)
	case task.StatusUnknown:
		slog.Warn("Task finished with an unrecognized status", "task_id", d.TaskID, "status", d.Status)
	}
}

// finishTurn drops the status bubble and seals the agent reply.
func finishTurn(st *State) {
	st.Messages = withoutStatusBubbles(st.Messages)
	for i := range st.Messages {
		st.Messages[i].IsComplete = true
	}
	st.IsResponding = false
	st.IsCancelling = false
	st.CurrentTaskID = ""
}

// appendAgentText extends the open agent reply, or opens one just before the
// status bubble.
func appendAgentText(st *State, text, taskID string, meta Metadata) {
	end := len(st.Messages)
	if i := statusBubbleIndex(st.Messages); i >= 0 {
		end = i
	}
	if end > 0 {
		last := &st.Messages[end-1]
		if !last.IsUser && !last.IsComplete && !last.IsStatusBubble {
			last.Text += text
			last.Metadata = meta
			return
		}
	}
	st.Messages = slices.Insert(st.Messages, end, Message{Text: text, TaskID: taskID, Metadata: meta})
}

func hasPendingReply(msgs []Message) bool {
	return slices.ContainsFunc(msgs, func(m Message) bool {
		return !m.IsUser && !m.IsComplete && !m.IsStatusBubble
	})
}

// LoadAgents fetches the agent directory. The default agent is selected when
// nothing valid is selected yet.
func (s *Store) LoadAgents(ctx context.Context) error {
	if s.directory == nil {
		return nil
	}
	s.mutate(func(st *State) {
		st.AgentsLoading = true
		st.AgentsError = nil
	})

	agents, err := s.directory.List(ctx)
	s.mutate(func(st *State) {
		st.AgentsLoading = false
		if err != nil {
			st.AgentsError = err
			return
		}
		st.Agents = agents
		if _, ok := st.SelectedAgent(); ok {
			return
		}
		switch {
		case slices.ContainsFunc(agents, func(a Agent) bool { return a.Name == s.defaultAgent }):
			st.SelectedAgentName = s.defaultAgent
		case len(agents) > 0:
			st.SelectedAgentName = agents[0].Name
		}
	})
	if err != nil {
		slog.Error("Failed to load agents", "error", err)
		return fmt.Errorf("loading agents: %w", err)
	}
	return nil
}

func (s *Store) SelectAgent(name string) {
	s.mutate(func(st *State) { st.SelectedAgentName = name })
}

func (s *Store) SetSidePanelCollapsed(collapsed bool) {
	s.mutate(func(st *State) { st.IsSidePanelCollapsed = collapsed })
}

func (s *Store) ToggleSidePanel() {
	s.mutate(func(st *State) { st.IsSidePanelCollapsed = !st.IsSidePanelCollapsed })
}

func (s *Store) SetActiveSidePanelTab(tab SidePanelTab) {
	s.mutate(func(st *State) { st.ActiveSidePanelTab = tab })
}

// OpenSidePanelTab expands the side panel on tab.
func (s *Store) OpenSidePanelTab(tab SidePanelTab) {
	s.mutate(func(st *State) {
		st.IsSidePanelCollapsed = false
		st.ActiveSidePanelTab = tab
	})
}

func (s *Store) SetTaskIDInSidePanel(taskID string) {
	s.mutate(func(st *State) { st.TaskIDInSidePanel = taskID })
}

// AddNotification queues a notification and returns its id.
func (s *Store) AddNotification(text string, kind NotificationKind) uint64 {
	s.mu.Lock()
	id := s.addNotificationLocked(text, kind)
	s.mu.Unlock()
	s.changes.Notify()
	return id
}

func (s *Store) addNotificationLocked(text string, kind NotificationKind) uint64 {
	s.notifySeq++
	s.state.Notifications = append(s.state.Notifications, Notification{
		ID:        s.notifySeq,
		Text:      text,
		Kind:      kind,
		CreatedAt: s.now(),
	})
	return s.notifySeq
}

// DismissNotification removes a notification. It reports whether id was
// still pending.
func (s *Store) DismissNotification(id uint64) bool {
	s.mu.Lock()
	n := len(s.state.Notifications)
	s.state.Notifications = slices.DeleteFunc(s.state.Notifications, func(n Notification) bool { return n.ID == id })
	removed := len(s.state.Notifications) != n
	s.mu.Unlock()

	if removed {
		s.changes.Notify()
	}
	return removed
}
