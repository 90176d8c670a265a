// Package bus provides a small typed publish/subscribe utility used to
// decouple the session orchestrator from its consumers.
package bus

import "sync"

const defaultBuffer = 256

// Bus fans events of type T out to subscribers. Publish never blocks: a
// subscriber that stops draining its channel loses events rather than
// stalling the publisher.
type Bus[T any] struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]chan T
	closed bool
	buffer int
}

// New creates a bus with the default per-subscriber buffer.
func New[T any]() *Bus[T] {
	return NewBuffered[T](defaultBuffer)
}

// NewBuffered creates a bus with the given per-subscriber channel buffer.
func NewBuffered[T any](buffer int) *Bus[T] {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	return &Bus[T]{subs: make(map[int]chan T), buffer: buffer}
}

// Subscribe registers a new subscriber and returns its event channel plus an
// unsubscribe func. Unsubscribing closes the channel; it is safe to call more
// than once.
func (b *Bus[T]) Subscribe() (<-chan T, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan T, b.buffer)
	if b.closed {
		close(ch)
		return ch, func() {}
	}
	id := b.nextID
	b.nextID++
	b.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if sub, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(sub)
			}
		})
	}
	return ch, cancel
}

// Publish delivers event to every current subscriber in subscription order
// for each channel. Slow subscribers drop events instead of blocking.
func (b *Bus[T]) Publish(event T) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	for _, ch := range b.subs {
		select {
		case ch <- event:
		default:
			// Subscriber stopped draining; drop rather than deadlock.
		}
	}
}

// Close closes every subscriber channel. Publish and Subscribe become no-ops.
func (b *Bus[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
