package concurrent

import "sync"

// Broadcaster fans a change signal out to any number of listeners. Signals
// coalesce: a listener that has not drained its channel sees one pending
// signal, never a backlog.
type Broadcaster struct {
	mu        sync.Mutex
	next      int
	listeners map[int]chan struct{}
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		listeners: make(map[int]chan struct{}),
	}
}

// Subscribe registers a listener. The returned func unregisters it and
// closes the channel; it is safe to call more than once.
func (b *Broadcaster) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	b.mu.Lock()
	id := b.next
	b.next++
	b.listeners[id] = ch
	b.mu.Unlock()

	return ch, sync.OnceFunc(func() {
		b.mu.Lock()
		defer b.mu.Unlock()

		delete(b.listeners, id)
		close(ch)
	})
}

// Notify signals every listener without blocking.
func (b *Broadcaster) Notify() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range b.listeners {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func (b *Broadcaster) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return len(b.listeners)
}
