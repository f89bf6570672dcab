// Package timetrcpubsub fans out values to subscribers without ever blocking
// the publisher.
package timetrcpubsub

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
)

// Broker delivers published values to every subscriber whose allow func
// accepts them. Delivery is non-blocking: if a subscriber's channel is full,
// the value is dropped for that subscriber, and counted.
type Broker[T any] struct {
	mtx         sync.Mutex
	subscribers map[chan<- T]*subscriber[T]
	active      atomic.Bool
}

type subscriber[T any] struct {
	allow func(T) bool
	ch    chan<- T
	stats Stats
}

// NewBroker returns an empty broker.
func NewBroker[T any]() *Broker[T] {
	return &Broker[T]{
		subscribers: map[chan<- T]*subscriber[T]{},
	}
}

// Active returns true if there's at least one subscriber.
func (b *Broker[T]) Active() bool {
	return b.active.Load()
}

// Publish val to all current subscribers.
func (b *Broker[T]) Publish(val T) {
	if !b.active.Load() { // fast path
		return
	}

	b.mtx.Lock()
	defer b.mtx.Unlock()

	for _, sub := range b.subscribers {
		if sub.allow != nil && !sub.allow(val) {
			sub.stats.Skips++
			continue
		}
		select {
		case sub.ch <- val:
			sub.stats.Sends++
		default:
			sub.stats.Drops++
		}
	}
}

// Subscribe registers ch to receive published values, and blocks until the
// context is canceled. A nil allow func accepts every value. The final stats
// of the subscription are returned along with the context error.
func (b *Broker[T]) Subscribe(ctx context.Context, allow func(T) bool, ch chan<- T) (Stats, error) {
	if err := b.Register(allow, ch); err != nil {
		return Stats{}, err
	}

	<-ctx.Done()

	stats, _ := b.Unregister(ch)
	return stats, ctx.Err()
}

// Register ch to receive published values, starting with the next call to
// Publish. A nil allow func accepts every value. Callers must eventually
// Unregister ch.
func (b *Broker[T]) Register(allow func(T) bool, ch chan<- T) error {
	b.mtx.Lock()
	defer b.mtx.Unlock()

	if _, ok := b.subscribers[ch]; ok {
		return fmt.Errorf("already subscribed")
	}

	b.subscribers[ch] = &subscriber[T]{
		allow: allow,
		ch:    ch,
	}

	b.active.Store(true)

	return nil
}

// Unregister ch, and return the final stats of its subscription.
func (b *Broker[T]) Unregister(ch chan<- T) (Stats, error) {
	b.mtx.Lock()
	defer b.mtx.Unlock()

	sub, ok := b.subscribers[ch]
	if !ok {
		return Stats{}, fmt.Errorf("not subscribed")
	}

	delete(b.subscribers, ch)
	b.active.Store(len(b.subscribers) > 0)

	return sub.stats, nil
}

// Stats returns the current stats of the subscription for ch.
func (b *Broker[T]) Stats(ch chan<- T) (Stats, error) {
	b.mtx.Lock()
	defer b.mtx.Unlock()

	sub, ok := b.subscribers[ch]
	if !ok {
		return Stats{}, fmt.Errorf("not subscribed")
	}

	return sub.stats, nil
}

// Stats for a single subscription.
type Stats struct {
	Skips uint64 `json:"skips"`
	Sends uint64 `json:"sends"`
	Drops uint64 `json:"drops"`
}

// String implements fmt.Stringer.
func (s Stats) String() string {
	return fmt.Sprintf("skips=%d sends=%d drops=%d", s.Skips, s.Sends, s.Drops)
}
