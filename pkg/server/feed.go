package server

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/agentmesh/meshchat/pkg/monitor"
)

// ErrSlowSubscriber ends a subscription that fell too far behind.
var ErrSlowSubscriber = errors.New("subscriber fell behind")

const subscriberBuffer = 256

// TaskFeed fans task events out to subscribers. New subscribers first get
// every event published so far.
type TaskFeed struct {
	now func() time.Time

	mu      sync.Mutex
	history []monitor.Event
	seq     map[string]int64
	subs    map[*feedSub]struct{}
}

type feedSub struct {
	events chan monitor.Event
	errs   chan error
	closed bool
}

var _ monitor.Stream = (*TaskFeed)(nil)

func NewTaskFeed(now func() time.Time) *TaskFeed {
	return &TaskFeed{
		now:  now,
		seq:  map[string]int64{},
		subs: map[*feedSub]struct{}{},
	}
}

// Publish stamps the event with the next sequence number of its task and
// delivers it.
func (f *TaskFeed) Publish(ev monitor.Event) monitor.Event {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.seq[ev.TaskID]++
	ev.Sequence = f.seq[ev.TaskID]
	if ev.Timestamp.IsZero() {
		ev.Timestamp = f.now()
	}
	f.history = append(f.history, ev)

	for sub := range f.subs {
		select {
		case sub.events <- ev:
		default:
			f.closeLocked(sub, ErrSlowSubscriber)
		}
	}
	return ev
}

// Subscribe replays the history and then follows live events until ctx is
// done.
func (f *TaskFeed) Subscribe(ctx context.Context) (<-chan monitor.Event, <-chan error, error) {
	f.mu.Lock()
	sub := &feedSub{
		events: make(chan monitor.Event, max(subscriberBuffer, len(f.history)+subscriberBuffer)),
		errs:   make(chan error, 1),
	}
	for _, ev := range f.history {
		sub.events <- ev
	}
	f.subs[sub] = struct{}{}
	f.mu.Unlock()

	go func() {
		<-ctx.Done()
		f.mu.Lock()
		f.closeLocked(sub, nil)
		f.mu.Unlock()
	}()
	return sub.events, sub.errs, nil
}

func (f *TaskFeed) closeLocked(sub *feedSub, err error) {
	if sub.closed {
		return
	}
	sub.closed = true
	delete(f.subs, sub)
	if err != nil {
		sub.errs <- err
	}
	close(sub.events)
}

// Len returns the number of live subscribers.
func (f *TaskFeed) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}
