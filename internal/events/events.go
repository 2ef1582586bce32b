// Package events provides a lightweight in-process event bus.
//
// Components publish typed events (summary refreshes, push channel state
// changes) and subscribers receive them synchronously. The SSE stream handler
// is the main consumer, forwarding events to connected dashboard clients.
package events

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// EventType identifies a class of event
type EventType string

const (
	// SummaryRefreshed is emitted when a summary feed replaces its cache entry
	SummaryRefreshed EventType = "summary.refreshed"
	// CacheWarmed is emitted when the scheduled warm job completes a full pass
	CacheWarmed EventType = "cache.warmed"
	// PushStatusChanged is emitted when the refresh relay connects or drops
	PushStatusChanged EventType = "push.status"
)

// Event is a single published event
type Event struct {
	Type      EventType              `json:"type"`
	Module    string                 `json:"module"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
}

// Handler receives published events
type Handler func(event *Event)

// Subscription identifies a registered handler so it can be removed when the
// subscriber goes away. SSE clients deregister on disconnect through it.
type Subscription struct {
	eventType EventType
	id        int
}

type subscriber struct {
	id      int
	handler Handler
}

// Bus is a simple synchronous publish/subscribe bus
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]subscriber
	nextID   int
	log      zerolog.Logger
}

// NewBus creates a new event bus
func NewBus(log zerolog.Logger) *Bus {
	return &Bus{
		handlers: make(map[EventType][]subscriber),
		log:      log.With().Str("component", "events").Logger(),
	}
}

// Subscribe registers a handler for an event type
func (b *Bus) Subscribe(eventType EventType, handler Handler) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	b.handlers[eventType] = append(b.handlers[eventType], subscriber{id: b.nextID, handler: handler})

	return Subscription{eventType: eventType, id: b.nextID}
}

// Unsubscribe removes a previously registered handler. Removing an already
// removed subscription is a no-op.
func (b *Bus) Unsubscribe(sub Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.handlers[sub.eventType]
	for i, s := range subs {
		if s.id == sub.id {
			// Copy so a concurrent Publish iterating its snapshot is unaffected
			replacement := make([]subscriber, 0, len(subs)-1)
			replacement = append(replacement, subs[:i]...)
			replacement = append(replacement, subs[i+1:]...)
			b.handlers[sub.eventType] = replacement
			return
		}
	}
}

// SubscriberCount reports how many handlers are registered for an event type
func (b *Bus) SubscriberCount(eventType EventType) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers[eventType])
}

// Publish delivers an event to all handlers subscribed to its type.
// Handlers run synchronously on the publisher's goroutine; handlers that may
// block must hand off to their own goroutine or channel.
func (b *Bus) Publish(event *Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	b.mu.RLock()
	subs := b.handlers[event.Type]
	b.mu.RUnlock()

	b.log.Debug().
		Str("event_type", string(event.Type)).
		Int("subscribers", len(subs)).
		Msg("Publishing event")

	for _, s := range subs {
		s.handler(event)
	}
}

// Emit is a convenience wrapper constructing and publishing an event
func (b *Bus) Emit(eventType EventType, module string, data map[string]interface{}) {
	b.Publish(&Event{
		Type:      eventType,
		Module:    module,
		Timestamp: time.Now(),
		Data:      data,
	})
}
