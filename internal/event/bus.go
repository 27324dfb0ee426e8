package event

import (
	"fmt"
	"log"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/gobwas/glob"
)

// Handler is a function that handles an event.
type Handler func(Event)

type subscription struct {
	id      string
	pattern string
	matcher glob.Glob
	handler Handler
}

// Bus is a synchronous pub-sub event bus. Subscriptions are glob patterns
// over event types with '.' as the separator, so "worker.*" matches
// "worker.started" and "worker.completed". The pattern "*" on its own
// matches every event.
//
// Publish may be called from many goroutines at once; handlers run on the
// publishing goroutine and must be safe for concurrent use.
type Bus struct {
	mu            sync.RWMutex
	subscriptions []subscription
	nextID        atomic.Uint64
}

// NewBus creates a new event bus.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers handler for every event whose type matches pattern.
// It returns a subscription ID for Unsubscribe.
func (b *Bus) Subscribe(pattern string, handler Handler) (string, error) {
	var matcher glob.Glob
	if pattern != "*" {
		g, err := glob.Compile(pattern, '.')
		if err != nil {
			return "", fmt.Errorf("invalid event pattern %q: %w", pattern, err)
		}
		matcher = g
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	id := fmt.Sprintf("sub-%d", b.nextID.Add(1))
	b.subscriptions = append(b.subscriptions, subscription{
		id:      id,
		pattern: pattern,
		matcher: matcher,
		handler: handler,
	})
	return id, nil
}

// SubscribeAll registers a handler for all event types.
func (b *Bus) SubscribeAll(handler Handler) string {
	id, _ := b.Subscribe("*", handler)
	return id
}

// Unsubscribe removes a subscription by ID.
// Returns true if the subscription was found and removed.
func (b *Bus) Unsubscribe(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, sub := range b.subscriptions {
		if sub.id == id {
			b.subscriptions = append(b.subscriptions[:i:i], b.subscriptions[i+1:]...)
			return true
		}
	}
	return false
}

// Publish dispatches an event to every matching handler in registration
// order. A panicking handler is logged and recovered; delivery continues.
func (b *Bus) Publish(event Event) {
	eventType := event.EventType()

	b.mu.RLock()
	matched := make([]Handler, 0, len(b.subscriptions))
	for _, sub := range b.subscriptions {
		if sub.matcher == nil || sub.matcher.Match(eventType) {
			matched = append(matched, sub.handler)
		}
	}
	b.mu.RUnlock()

	for _, h := range matched {
		b.safeCall(h, event)
	}
}

func (b *Bus) safeCall(handler Handler, event Event) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("ERROR: event handler panicked for event %s: %v\n%s",
				event.EventType(), r, debug.Stack())
		}
	}()
	handler(event)
}

// Clear removes all subscriptions.
func (b *Bus) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscriptions = nil
}

// SubscriptionCount returns the number of active subscriptions.
func (b *Bus) SubscriptionCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscriptions)
}
