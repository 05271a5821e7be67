package fixtures

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/agentmesh/meshchat/pkg/monitor"
)

// Stream is a scriptable monitor.Stream. Each Subscribe consumes the next
// entry of Failures, if any, as its error; otherwise it opens a subscription
// the test drives with Emit, Fail and Close.
type Stream struct {
	mu       sync.Mutex
	Failures []error
	sub      *subscription

	Subscribes atomic.Int32
	// Opened receives a value each time a subscription opens.
	Opened chan struct{}
}

type subscription struct {
	mu     sync.Mutex
	events chan monitor.Event
	errs   chan error
	ended  bool
}

func (s *subscription) send(ev monitor.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.ended {
		s.events <- ev
	}
}

func (s *subscription) end(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ended {
		return
	}
	s.ended = true
	if err != nil {
		s.errs <- err
	}
	close(s.events)
}

func NewStream(failures ...error) *Stream {
	return &Stream{
		Failures: failures,
		Opened:   make(chan struct{}, 16),
	}
}

func (s *Stream) Subscribe(ctx context.Context) (<-chan monitor.Event, <-chan error, error) {
	s.Subscribes.Add(1)

	s.mu.Lock()
	if len(s.Failures) > 0 {
		err := s.Failures[0]
		s.Failures = s.Failures[1:]
		s.mu.Unlock()
		if err != nil {
			return nil, nil, err
		}
		s.mu.Lock()
	}
	sub := &subscription{
		events: make(chan monitor.Event, 64),
		errs:   make(chan error, 1),
	}
	s.sub = sub
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		sub.end(nil)
	}()

	select {
	case s.Opened <- struct{}{}:
	default:
	}
	return sub.events, sub.errs, nil
}

func (s *Stream) current() *subscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sub
}

// Emit delivers ev on the open subscription.
func (s *Stream) Emit(ev monitor.Event) {
	if sub := s.current(); sub != nil {
		sub.send(ev)
	}
}

// Fail ends the open subscription with err.
func (s *Stream) Fail(err error) {
	if sub := s.current(); sub != nil {
		sub.end(err)
	}
}

// Close ends the open subscription without an error.
func (s *Stream) Close() {
	s.Fail(nil)
}
