package streams

import "sync"

// Broker fans a stream of full snapshots out to any number of subscribers.
// Consumers always receive complete snapshots, never diffs; a slow consumer
// loses intermediate snapshots, not the latest one.
type Broker[T any] struct {
	mu     sync.RWMutex
	subs   map[*Subscription[T]]struct{}
	last   T
	seeded bool
	closed bool
}

// NewBroker creates an empty broker.
func NewBroker[T any]() *Broker[T] {
	return &Broker[T]{subs: make(map[*Subscription[T]]struct{})}
}

// Subscribe registers a consumer. If a snapshot has already been published
// the subscription is primed with it so late subscribers start current.
func (b *Broker[T]) Subscribe() *Subscription[T] {
	sub := &Subscription[T]{ch: make(chan T, subscriptionBuffer), broker: b}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(sub.ch)
		sub.done = true
		return sub
	}
	b.subs[sub] = struct{}{}
	if b.seeded {
		sub.ch <- b.last
	}
	return sub
}

// Publish delivers a new snapshot to every subscriber.
func (b *Broker[T]) Publish(snapshot T) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.last = snapshot
	b.seeded = true
	for sub := range b.subs {
		sub.deliver(snapshot)
	}
}

// Close cancels all subscriptions. Publish after Close is a no-op.
func (b *Broker[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for sub := range b.subs {
		close(sub.ch)
		sub.done = true
	}
	b.subs = make(map[*Subscription[T]]struct{})
}

func (b *Broker[T]) remove(sub *Subscription[T]) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subs[sub]; !ok {
		return
	}
	delete(b.subs, sub)
	close(sub.ch)
	sub.done = true
}

const subscriptionBuffer = 16

// Subscription is one consumer's handle on a broker stream. Cancel is
// idempotent; after Cancel no further snapshots are delivered.
type Subscription[T any] struct {
	ch     chan T
	broker *Broker[T]
	once   sync.Once
	done   bool
}

// C is the snapshot channel. It closes when the subscription is cancelled
// or the broker shuts down.
func (s *Subscription[T]) C() <-chan T { return s.ch }

// Cancel detaches the subscription from the broker.
func (s *Subscription[T]) Cancel() {
	s.once.Do(func() {
		if s.broker != nil {
			s.broker.remove(s)
		}
	})
}

// deliver pushes a snapshot without blocking the publisher. When the buffer
// is full the oldest pending snapshot is dropped in favor of the new one.
func (s *Subscription[T]) deliver(snapshot T) {
	if s.done {
		return
	}
	for {
		select {
		case s.ch <- snapshot:
			return
		default:
			select {
			case <-s.ch:
			default:
			}
		}
	}
}
