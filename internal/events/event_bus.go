package events

import (
	"fmt"
	"sync"
	"time"
)

// EventType defines the types of events that can be emitted
type EventType string

const (
	// Conversation events
	MessageAppended EventType = "chat:message_appended"
	MessageUpdated  EventType = "chat:message_updated"

	// Orchestrator events
	BusyChanged  EventType = "engine:busy_changed"
	StateChanged EventType = "engine:state_changed"

	// Generation events
	GenerationStarted  EventType = "generation:started"
	GenerationChunk    EventType = "generation:chunk"
	GenerationFinished EventType = "generation:finished"

	// File events
	FileCreated EventType = "file:created"
	FileWritten EventType = "file:written"
)

// Event represents an event in the system
type Event struct {
	Type      EventType `json:"type"`
	Data      any       `json:"data"`
	Timestamp int64     `json:"timestamp"`
}

// EventHandler is a function that handles events
type EventHandler func(event Event)

// EventBus fans events out to subscribers. Handlers run synchronously in
// subscription order so that consumers observe events in emission order; a
// slow handler should hand work off to its own goroutine.
type EventBus struct {
	mutex    sync.RWMutex
	handlers map[EventType][]subscription
	wildcard []subscription
	nextID   int
}

type subscription struct {
	id      int
	handler EventHandler
}

// NewEventBus creates a new event bus
func NewEventBus() *EventBus {
	return &EventBus{handlers: make(map[EventType][]subscription)}
}

// Subscribe adds a handler for the given event types, or for every event
// when no type is given. The returned func removes the handler.
func (eb *EventBus) Subscribe(handler EventHandler, types ...EventType) func() {
	eb.mutex.Lock()
	defer eb.mutex.Unlock()

	eb.nextID++
	sub := subscription{id: eb.nextID, handler: handler}
	if len(types) == 0 {
		eb.wildcard = append(eb.wildcard, sub)
	}
	for _, t := range types {
		eb.handlers[t] = append(eb.handlers[t], sub)
	}

	id := sub.id
	return func() { eb.unsubscribe(id) }
}

func (eb *EventBus) unsubscribe(id int) {
	eb.mutex.Lock()
	defer eb.mutex.Unlock()

	eb.wildcard = without(eb.wildcard, id)
	for t, subs := range eb.handlers {
		eb.handlers[t] = without(subs, id)
	}
}

func without(subs []subscription, id int) []subscription {
	out := subs[:0:0]
	for _, s := range subs {
		if s.id != id {
			out = append(out, s)
		}
	}
	return out
}

// Emit publishes an event to all registered handlers. A nil bus is a no-op.
func (eb *EventBus) Emit(eventType EventType, data any) {
	if eb == nil {
		return
	}
	eb.mutex.RLock()
	subs := append(append([]subscription(nil), eb.handlers[eventType]...), eb.wildcard...)
	eb.mutex.RUnlock()

	event := Event{
		Type:      eventType,
		Data:      data,
		Timestamp: time.Now().UnixMilli(),
	}
	for _, s := range subs {
		dispatch(s.handler, event)
	}
}

func dispatch(h EventHandler, event Event) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Printf("Event handler panic for %s: %v\n", event.Type, r)
		}
	}()
	h(event)
}
