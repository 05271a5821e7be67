package fixtures

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/agentmesh/meshchat/pkg/chat"
	"github.com/agentmesh/meshchat/pkg/concurrent"
)

// CancelCall records one Backend.Cancel invocation.
type CancelCall struct {
	SessionID string
	TaskID    string
}

// Backend is a scriptable chat.Backend.
//
// With Script set, every Submit replays it and ends the stream. Without a
// script the stream stays open until the test calls Emit and End, or the
// submit context is canceled.
type Backend struct {
	NextSessionID string
	Histories     map[string][]chat.Message
	Script        []chat.Delta

	CreateErr error
	ListErr   error
	SubmitErr error
	CancelErr error

	// CancelGate, when set, blocks Cancel until it is closed.
	CancelGate chan struct{}
	// SubmitGate, when set, blocks Submit until it is closed. Canceling the
	// submit context first makes Submit return the context error.
	SubmitGate chan struct{}

	Submitted *concurrent.Slice[chat.SubmitRequest]
	Canceled  *concurrent.Slice[CancelCall]

	mu      sync.Mutex
	current *fakeStream
}

// ErrUnknownSession is returned by LoadSession for sessions without history.
var ErrUnknownSession = errors.New("unknown session")

type fakeStream struct {
	mu     sync.Mutex
	ch     chan chat.Delta
	closed bool
}

func (s *fakeStream) send(d chat.Delta) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}
	s.ch <- d
	return true
}

func (s *fakeStream) close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.closed {
		s.closed = true
		close(s.ch)
	}
}

func NewBackend() *Backend {
	return &Backend{
		NextSessionID: "new-session-id",
		Histories:     map[string][]chat.Message{SessionID: Messages()},
		Submitted:     concurrent.NewSlice[chat.SubmitRequest](),
		Canceled:      concurrent.NewSlice[CancelCall](),
	}
}

func (b *Backend) CreateSession(context.Context) (chat.SessionInfo, error) {
	if b.CreateErr != nil {
		return chat.SessionInfo{}, b.CreateErr
	}
	return chat.SessionInfo{ID: b.NextSessionID, CreatedAt: Now, UpdatedAt: Now}, nil
}

func (b *Backend) ListSessions(context.Context) ([]chat.SessionInfo, error) {
	if b.ListErr != nil {
		return nil, b.ListErr
	}
	return Sessions(), nil
}

func (b *Backend) LoadSession(_ context.Context, sessionID string) ([]chat.Message, error) {
	history, ok := b.Histories[sessionID]
	if !ok {
		return nil, ErrUnknownSession
	}
	return slices.Clone(history), nil
}

func (b *Backend) Submit(ctx context.Context, req chat.SubmitRequest) (<-chan chat.Delta, error) {
	b.Submitted.Append(req)
	if b.SubmitGate != nil {
		select {
		case <-b.SubmitGate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if b.SubmitErr != nil {
		return nil, b.SubmitErr
	}

	if b.Script != nil {
		ch := make(chan chat.Delta)
		go func() {
			defer close(ch)
			for _, d := range b.Script {
				if d.SessionID == "" {
					d.SessionID = req.SessionID
				}
				select {
				case ch <- d:
				case <-ctx.Done():
					return
				}
			}
		}()
		return ch, nil
	}

	s := &fakeStream{ch: make(chan chat.Delta, 64)}
	b.mu.Lock()
	b.current = s
	b.mu.Unlock()
	go func() {
		<-ctx.Done()
		s.close()
	}()
	return s.ch, nil
}

// Emit sends d on the open stream. It reports false when no stream is open.
func (b *Backend) Emit(d chat.Delta) bool {
	b.mu.Lock()
	current := b.current
	b.mu.Unlock()

	return current != nil && current.send(d)
}

// End closes the open stream.
func (b *Backend) End() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.current != nil {
		b.current.close()
		b.current = nil
	}
}

func (b *Backend) Cancel(ctx context.Context, sessionID, taskID string) error {
	if b.CancelGate != nil {
		select {
		case <-b.CancelGate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	b.Canceled.Append(CancelCall{SessionID: sessionID, TaskID: taskID})
	return b.CancelErr
}

// Directory is a fixed chat.AgentDirectory.
type Directory struct {
	Agents []chat.Agent
	Err    error
}

func NewDirectory() *Directory {
	return &Directory{Agents: Agents()}
}

func (d *Directory) List(context.Context) ([]chat.Agent, error) {
	if d.Err != nil {
		return nil, d.Err
	}
	return slices.Clone(d.Agents), nil
}
