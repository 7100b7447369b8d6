package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/kkkppp/p2proto/internal/domain/events"
	"github.com/kkkppp/p2proto/internal/domain/ports"
	"github.com/kkkppp/p2proto/pkg/query"
)

// EventType is an alias to the domain type
type EventType = events.EventType

// RecordEventPayload represents payload for record events
type RecordEventPayload struct {
	Table  string       `json:"table"`
	ID     interface{}  `json:"id"`
	Record query.Record `json:"record,omitempty"`
	UserID int64        `json:"userId"`
}

// TableEventPayload represents payload for schema events
type TableEventPayload struct {
	TableID uuid.UUID `json:"tableId"`
	Name    string    `json:"name"`
	DDL     []string  `json:"ddl,omitempty"`
	UserID  int64     `json:"userId"`
	Error   string    `json:"error,omitempty"`
}

// EventHandler is a function that handles an event.
// Using the type from ports to ensure interface compatibility.
type EventHandler = ports.EventHandler

type subscription struct {
	id      uint64
	handler EventHandler
}

// EventBus is a synchronous publish-subscribe hub. Handlers run in the
// publisher's goroutine, in subscription order.
type EventBus struct {
	handlers map[EventType][]subscription
	nextID   uint64
	mu       sync.RWMutex
}

// Ensure EventBus implements ports.EventPublisher at compile time
var _ ports.EventPublisher = (*EventBus)(nil)

// NewEventBus creates a new EventBus instance
func NewEventBus() *EventBus {
	return &EventBus{
		handlers: make(map[EventType][]subscription),
	}
}

// Subscribe registers a handler for a specific event type
// Returns an unsubscribe function
func (eb *EventBus) Subscribe(eventType EventType, handler EventHandler) func() {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.nextID++
	id := eb.nextID
	eb.handlers[eventType] = append(eb.handlers[eventType], subscription{id: id, handler: handler})

	return func() {
		eb.mu.Lock()
		defer eb.mu.Unlock()

		subs := eb.handlers[eventType]
		for i, s := range subs {
			if s.id == id {
				eb.handlers[eventType] = append(subs[:i:i], subs[i+1:]...)
				break
			}
		}
	}
}

// Publish publishes an event to all registered handlers
func (eb *EventBus) Publish(ctx context.Context, eventType EventType, payload interface{}) error {
	eb.mu.RLock()
	subs := eb.handlers[eventType]
	eb.mu.RUnlock()

	for _, s := range subs {
		if err := s.handler(ctx, payload); err != nil {
			return fmt.Errorf("EventBus handler error for %s: %w", eventType, err)
		}
	}
	return nil
}

// Clear removes all handlers (useful for testing)
func (eb *EventBus) Clear() {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.handlers = make(map[EventType][]subscription)
}
