// Package eventbus fans typed backup-engine events out to subscribers
// (§4, component M). Unlike a queued broker, dispatch is synchronous in the
// emitting goroutine: Publish returns only once every subscriber has run,
// and a subscriber's error fails the publish that triggered it.
package eventbus

import (
	"fmt"
	"sort"
	"sync"
)

// Kind names the category of a published Event.
type Kind string

const (
	// KindFileEvent wraps a fileevent.Event emitted by the FileAdder, or a
	// restorer.Result emitted by the FileRestorer.
	KindFileEvent Kind = "file_event"
	// KindRunStarted names a backup run beginning. No component in this
	// module publishes events of this kind.
	KindRunStarted Kind = "run_started"
	// KindRunFinished names a backup run ending. No component in this
	// module publishes events of this kind.
	KindRunFinished Kind = "run_finished"
)

// Event is the envelope delivered to subscribers. Payload is the
// domain-specific value (fileevent.Event, runrepo.Event, ...); subscribers
// type-assert on Kind.
type Event struct {
	Kind    Kind
	Payload interface{}
}

// Subscriber observes published events. A returned error aborts the publish
// that triggered it; later subscribers are not invoked.
type Subscriber func(Event) error

// Bus is a synchronous, in-process fan-out of Events to Subscribers. The
// zero value is not usable; construct with New.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[int]Subscriber
	nextID      int
}

// New constructs an empty Bus.
func New() *Bus {
	return &Bus{subscribers: make(map[int]Subscriber)}
}

// Handle identifies a subscription for Unsubscribe.
type Handle int

// Subscribe registers sub and returns a Handle for later Unsubscribe.
func (b *Bus) Subscribe(sub Subscriber) Handle {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	b.subscribers[id] = sub
	return Handle(id)
}

// Unsubscribe removes a previously registered subscription. It is a no-op
// if the handle is unknown or already removed.
func (b *Bus) Unsubscribe(h Handle) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subscribers, int(h))
}

// SubscriberCount reports the number of active subscriptions.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Publish delivers event to every current subscriber, in registration
// order, on the calling goroutine. It stops at the first subscriber error
// and returns it wrapped with the subscriber's handle.
func (b *Bus) Publish(event Event) error {
	b.mu.RLock()
	ids := make([]int, 0, len(b.subscribers))
	for id := range b.subscribers {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	subs := make([]Subscriber, len(ids))
	for i, id := range ids {
		subs[i] = b.subscribers[id]
	}
	b.mu.RUnlock()

	for i, sub := range subs {
		if err := sub(event); err != nil {
			return fmt.Errorf("eventbus: subscriber %d failed: %w", ids[i], err)
		}
	}
	return nil
}
