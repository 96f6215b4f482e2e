// Package feed implements an in-process broadcast of whole-state snapshots.
//
// Every subscriber sees the latest published value. A subscriber that falls
// behind does not block the publisher; its pending value is replaced by the
// newer one, so a slow reader only ever skips stale states.
package feed

import "sync"

// Broadcaster fans published values out to subscribers.
// The zero value is not usable; create one with New.
type Broadcaster[T any] struct {
	mu   sync.Mutex
	subs map[*Subscription[T]]struct{}
	last   T
	has    bool
	closed bool
}

// Subscription is one reader of a Broadcaster.
type Subscription[T any] struct {
	c      chan T
	b      *Broadcaster[T]
	closed bool // guarded by b.mu
}

func New[T any]() *Broadcaster[T] {
	return &Broadcaster[T]{subs: make(map[*Subscription[T]]struct{})}
}

// Publish hands v to every subscriber without blocking.
func (b *Broadcaster[T]) Publish(v T) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.last, b.has = v, true
	for s := range b.subs {
		s.offer(v)
	}
}

// Subscribe returns a subscription primed with the last published value, if any.
func (b *Broadcaster[T]) Subscribe() *Subscription[T] {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := b.addLocked()
	if s.closed {
		return s
	}
	if b.has {
		s.offer(b.last)
	}
	return s
}

// SubscribeFrom is like Subscribe but primes the subscription with initial
// when nothing has been published yet.
func (b *Broadcaster[T]) SubscribeFrom(initial T) *Subscription[T] {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := b.addLocked()
	if s.closed {
		return s
	}
	if b.has {
		s.offer(b.last)
	} else {
		s.offer(initial)
	}
	return s
}

// Close closes every subscription's channel. Later publishes are dropped and
// later subscriptions are returned already closed. Safe to call twice.
func (b *Broadcaster[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = true
	for s := range b.subs {
		s.closeLocked()
	}
}

// Len returns the number of open subscriptions.
func (b *Broadcaster[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

func (b *Broadcaster[T]) addLocked() *Subscription[T] {
	s := &Subscription[T]{c: make(chan T, 1), b: b}
	if b.closed {
		s.closed = true
		close(s.c)
		return s
	}
	b.subs[s] = struct{}{}
	return s
}

// offer replaces any unread value with v. Callers hold b.mu, so no other
// sender can race between the drain and the send.
func (s *Subscription[T]) offer(v T) {
	select {
	case s.c <- v:
		return
	default:
	}
	select {
	case <-s.c:
	default:
	}
	select {
	case s.c <- v:
	default:
	}
}

// C delivers values. It is closed by Close.
func (s *Subscription[T]) C() <-chan T {
	return s.c
}

// Close detaches the subscription and closes its channel. Safe to call twice.
func (s *Subscription[T]) Close() {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	s.closeLocked()
}

func (s *Subscription[T]) closeLocked() {
	if s.closed {
		return
	}
	s.closed = true
	delete(s.b.subs, s)
	close(s.c)
}
