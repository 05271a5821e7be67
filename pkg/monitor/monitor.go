package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/agentmesh/meshchat/pkg/concurrent"
	"github.com/agentmesh/meshchat/pkg/task"
)

// State is a point-in-time copy of the monitor.
type State struct {
	IsConnecting         bool
	IsConnected          bool
	IsReconnecting       bool
	ReconnectionAttempts int
	LastError            error

	Tasks map[string]task.VisualizedTask
	// TaskOrder lists task ids in the order they were first seen.
	TaskOrder         []string
	HighlightedStepID string
}

// OrderedTasks returns the tasks in display order.
func (s State) OrderedTasks() []task.VisualizedTask {
	out := make([]task.VisualizedTask, 0, len(s.TaskOrder))
	for _, id := range s.TaskOrder {
		if t, ok := s.Tasks[id]; ok {
			out = append(out, t)
		}
	}
	return out
}

// Task looks up a task by id.
func (s State) Task(id string) (task.VisualizedTask, bool) {
	t, ok := s.Tasks[id]
	return t, ok
}

// Monitor tracks task progress from a Stream and reconnects according to a
// RetryPolicy when the stream fails.
type Monitor struct {
	stream Stream
	policy RetryPolicy
	now    func() time.Time

	mu          sync.RWMutex
	conn        connState
	tasks       *orderedmap.OrderedMap[string, *task.VisualizedTask]
	highlighted string
	cancel      context.CancelFunc
	gen         uint64

	changes *concurrent.Broadcaster
}

type connState struct {
	connecting   bool
	connected    bool
	reconnecting bool
	attempts     int
	lastErr      error
}

type Option func(*Monitor)

func WithRetryPolicy(p RetryPolicy) Option {
	return func(m *Monitor) {
		m.policy = p
	}
}

func WithClock(now func() time.Time) Option {
	return func(m *Monitor) {
		m.now = now
	}
}

// WithTasks seeds the monitor with tasks, in order.
func WithTasks(tasks ...task.VisualizedTask) Option {
	return func(m *Monitor) {
		for _, t := range tasks {
			c := t.Clone()
			m.tasks.Set(t.ID, &c)
		}
	}
}

// WithConnected marks the monitor as connected without a stream, for
// rendering fixed states.
func WithConnected() Option {
	return func(m *Monitor) {
		m.conn.connected = true
	}
}

func New(stream Stream, opts ...Option) *Monitor {
	m := &Monitor{
		stream:  stream,
		policy:  NewExponentialPolicy(500*time.Millisecond, 30*time.Second, 10),
		now:     time.Now,
		tasks:   orderedmap.New[string, *task.VisualizedTask](),
		changes: concurrent.NewBroadcaster(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Monitor) Snapshot() State {
	m.mu.RLock()
	defer m.mu.RUnlock()

	st := State{
		IsConnecting:         m.conn.connecting,
		IsConnected:          m.conn.connected,
		IsReconnecting:       m.conn.reconnecting,
		ReconnectionAttempts: m.conn.attempts,
		LastError:            m.conn.lastErr,
		Tasks:                make(map[string]task.VisualizedTask, m.tasks.Len()),
		TaskOrder:            make([]string, 0, m.tasks.Len()),
		HighlightedStepID:    m.highlighted,
	}
	for id, t := range m.tasks.FromOldest() {
		st.Tasks[id] = t.Clone()
		st.TaskOrder = append(st.TaskOrder, id)
	}
	return st
}

// Subscribe returns a channel signalled after every change.
func (m *Monitor) Subscribe() (<-chan struct{}, func()) {
	return m.changes.Subscribe()
}

// Connect subscribes to the task stream. It is a no-op while a connection
// is being made, held or retried. When the first attempt fails the error is
// returned and reconnection continues in the background.
func (m *Monitor) Connect(ctx context.Context) error {
	m.mu.Lock()
	if m.cancel != nil {
		m.mu.Unlock()
		return nil
	}
	m.gen++
	gen := m.gen
	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.conn.connecting = true
	m.conn.lastErr = nil
	m.mu.Unlock()
	m.changes.Notify()

	slog.Debug("Connecting to task stream")

	events, errs, err := m.stream.Subscribe(runCtx)
	if err != nil {
		attempt := m.failed(gen, err)
		go m.run(runCtx, gen, nil, nil, attempt)
		return fmt.Errorf("connecting to task stream: %w", err)
	}

	m.connected(gen)
	go m.run(runCtx, gen, events, errs, 0)
	return nil
}

// Disconnect stops the stream and any pending reconnect. Tasks are kept.
func (m *Monitor) Disconnect() {
	m.mu.Lock()
	cancel := m.cancel
	m.cancel = nil
	m.gen++
	m.conn = connState{}
	m.mu.Unlock()

	if cancel != nil {
		cancel()
		slog.Debug("Disconnected from task stream")
	}
	m.changes.Notify()
}

func (m *Monitor) run(ctx context.Context, gen uint64, events <-chan Event, errs <-chan error, attempt int) {
	defer m.stopped(gen)

	for {
		if events != nil {
			err := m.consume(ctx, gen, events, errs)
			if ctx.Err() != nil {
				return
			}
			if err == nil {
				err = ErrStreamClosed
			}
			attempt = m.failed(gen, err)
		}

		delay, ok := m.policy.NextDelay(attempt)
		if !ok {
			m.giveUp(gen)
			return
		}
		slog.Debug("Reconnecting to task stream", "attempt", attempt, "delay", delay)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		var err error
		events, errs, err = m.stream.Subscribe(ctx)
		if err != nil {
			events = nil
			attempt = m.failed(gen, err)
			continue
		}
		m.connected(gen)
	}
}

// consume applies events until the subscription ends. It returns the error
// the stream reported, if any.
func (m *Monitor) consume(ctx context.Context, gen uint64, events <-chan Event, errs <-chan error) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			if err != nil {
				return err
			}
		case ev, ok := <-events:
			if !ok {
				select {
				case err := <-errs:
					return err
				default:
					return nil
				}
			}
			m.apply(gen, ev)
		}
	}
}

func (m *Monitor) connected(gen uint64) {
	m.mu.Lock()
	if m.gen != gen {
		m.mu.Unlock()
		return
	}
	m.conn = connState{connected: true}
	m.mu.Unlock()
	m.changes.Notify()

	slog.Debug("Connected to task stream")
}

// failed records a connection failure and returns the attempt number of the
// retry it schedules.
func (m *Monitor) failed(gen uint64, err error) int {
	m.mu.Lock()
	if m.gen != gen {
		m.mu.Unlock()
		return 0
	}
	m.conn.connecting = false
	m.conn.connected = false
	m.conn.reconnecting = true
	m.conn.attempts++
	m.conn.lastErr = err
	attempt := m.conn.attempts
	m.mu.Unlock()
	m.changes.Notify()

	slog.Warn("Task stream failed", "attempt", attempt, "error", err)
	return attempt
}

func (m *Monitor) giveUp(gen uint64) {
	m.mu.Lock()
	if m.gen != gen {
		m.mu.Unlock()
		return
	}
	m.conn.reconnecting = false
	err := fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, m.conn.attempts, m.conn.lastErr)
	m.conn.lastErr = err
	m.mu.Unlock()
	m.changes.Notify()

	slog.Error("Giving up on task stream", "error", err)
}

// stopped releases the connection once its loop has exited.
func (m *Monitor) stopped(gen uint64) {
	m.mu.Lock()
	if m.gen != gen {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.cancel = nil
	m.conn.connecting = false
	m.conn.connected = false
	m.conn.reconnecting = false
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	m.changes.Notify()
}

// HighlightStep marks a step for the views. The id is not validated.
func (m *Monitor) HighlightStep(stepID string) {
	m.mu.Lock()
	m.highlighted = stepID
	m.mu.Unlock()
	m.changes.Notify()
}

// ApplyEvent folds an event into the task it belongs to and reports whether
// anything changed.
func (m *Monitor) ApplyEvent(ev Event) bool {
	m.mu.Lock()
	changed := m.applyLocked(ev)
	m.mu.Unlock()

	if changed {
		m.changes.Notify()
	}
	return changed
}

func (m *Monitor) apply(gen uint64, ev Event) {
	m.mu.Lock()
	changed := m.gen == gen && m.applyLocked(ev)
	m.mu.Unlock()

	if changed {
		m.changes.Notify()
	}
}

func (m *Monitor) applyLocked(ev Event) bool {
	if ev.TaskID == "" {
		slog.Debug("Dropping task event without a task id")
		return false
	}
	ts := ev.Timestamp
	if ts.IsZero() {
		ts = m.now()
	}

	t, ok := m.tasks.Get(ev.TaskID)
	switch {
	case !ok:
		t = task.New(ev.TaskID, ev.RequestText, ts)
		m.tasks.Set(ev.TaskID, t)
	case ev.Sequence <= t.LastEventSequence:
		slog.Debug("Dropping replayed task event", "task_id", ev.TaskID, "sequence", ev.Sequence, "last", t.LastEventSequence)
		return false
	}

	t.LastEventSequence = ev.Sequence
	t.UpdatedAt = ts
	if t.InitialRequestText == "" {
		t.InitialRequestText = ev.RequestText
	}

	if ev.Status != "" {
		to := task.ParseStatus(ev.Status)
		if to == task.StatusUnknown {
			slog.Warn("Ignoring unrecognized task status", "task_id", ev.TaskID, "status", ev.Status)
		} else if next, err := task.Transition(t.Status, to); err != nil {
			slog.Warn("Ignoring task status change", "task_id", ev.TaskID, "error", err)
		} else {
			t.Status = next
		}
	}

	if ev.Step != nil {
		step := *ev.Step
		if step.Timestamp.IsZero() {
			step.Timestamp = ts
		}
		if i := slices.IndexFunc(t.Steps, func(s task.Step) bool { return s.ID == step.ID }); i >= 0 {
			t.Steps[i] = step
		} else {
			t.Steps = append(t.Steps, step)
		}
	}
	return true
}

// ClearTasks forgets every task.
func (m *Monitor) ClearTasks() {
	m.mu.Lock()
	m.tasks = orderedmap.New[string, *task.VisualizedTask]()
	m.highlighted = ""
	m.mu.Unlock()
	m.changes.Notify()
}

// RemoveTask forgets one task and reports whether it was known.
func (m *Monitor) RemoveTask(id string) bool {
	m.mu.Lock()
	_, ok := m.tasks.Delete(id)
	m.mu.Unlock()

	if ok {
		m.changes.Notify()
	}
	return ok
}
