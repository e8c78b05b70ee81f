// Package events dispatches domain events to in-process subscribers.
//
// Dispatch is synchronous and runs inside the caller's transaction: a
// subscriber that fails aborts the dispatch and the caller rolls back.
package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"lingoquest/internal/database"
	"lingoquest/internal/logger"
)

// Type names a kind of domain event
type Type string

const (
	// TypeLessonCompleted fires once per (user, lesson) when progress is first recorded
	TypeLessonCompleted Type = "lesson.completed"
)

// Event is implemented by every domain event
type Event interface {
	EventType() Type
}

// LessonCompleted is published when a user completes a lesson for the first time
type LessonCompleted struct {
	UserID      int64
	LessonID    int64
	XPReward    int
	CompletedAt time.Time
}

func (LessonCompleted) EventType() Type { return TypeLessonCompleted }

// Handler reacts to an event using tx, the transaction the event was raised in
type Handler func(ctx context.Context, tx database.DBTX, ev Event) error

type subscription struct {
	name    string
	handler Handler
}

// Bus holds subscribers per event type and calls them in registration order
type Bus struct {
	mu       sync.RWMutex
	handlers map[Type][]subscription
	log      *logger.Logger
}

// NewBus creates an empty bus
func NewBus(log *logger.Logger) *Bus {
	return &Bus{
		handlers: make(map[Type][]subscription),
		log:      log.With("component", "events"),
	}
}

// Subscribe registers handler for eventType under name, used in logs and errors
func (b *Bus) Subscribe(eventType Type, name string, handler Handler) error {
	if handler == nil {
		return errors.New("handler cannot be nil")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], subscription{name: name, handler: handler})
	b.log.Debug("subscribed handler", "event_type", eventType, "handler", name)
	return nil
}

// Publish runs every subscriber of ev's type in order and stops at the first error
func (b *Bus) Publish(ctx context.Context, tx database.DBTX, ev Event) error {
	b.mu.RLock()
	subs := b.handlers[ev.EventType()]
	b.mu.RUnlock()

	for _, sub := range subs {
		if err := sub.handler(ctx, tx, ev); err != nil {
			b.log.Warn("event handler failed", "event_type", ev.EventType(), "handler", sub.name, "error", err)
			return fmt.Errorf("handler %s for %s: %w", sub.name, ev.EventType(), err)
		}
	}
	return nil
}

// Subscribers returns the names of the handlers registered for eventType
func (b *Bus) Subscribers(eventType Type) []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	names := make([]string, 0, len(b.handlers[eventType]))
	for _, sub := range b.handlers[eventType] {
		names = append(names, sub.name)
	}
	return names
}
