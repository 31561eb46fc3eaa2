// Package bus provides the internal event bus connecting the voice
// assistant core to collaborating screens (navigation, chat, the
// hands-free overlay).
package bus

import (
	"sync"
)

// EventType identifies different event types
type EventType string

// Event types for the voice assistant session
const (
	// Assistant state events
	EventTypeStateChanged EventType = "assistant.state_changed"

	// Capture events
	EventTypeListeningStarted EventType = "capture.listening_started"
	EventTypeListeningStopped EventType = "capture.listening_stopped"
	EventTypeTranscriptDelta  EventType = "capture.transcript_delta"
	EventTypeUtterance        EventType = "capture.utterance_finalized"

	// Outcome events consumed by collaborating screens
	EventTypeNavigate EventType = "outcome.navigate"
	EventTypeLogData  EventType = "outcome.log_data"

	// Hands-free overlay events
	EventTypeHandsFreeEntered EventType = "handsfree.entered"
	EventTypeHandsFreeExited  EventType = "handsfree.exited"

	// Playback events
	EventTypeSpeakingStarted EventType = "playback.started"
	EventTypeSpeakingStopped EventType = "playback.stopped"

	// User-facing notifications (permission denied, unsupported platform)
	EventTypeNotificationShow EventType = "notification.show"
	EventTypeNotificationHide EventType = "notification.hide"
)

// Event represents a bus event
type Event struct {
	Type EventType
	Data map[string]any
}

// Handler is a function that handles events
type Handler func(Event)

// EventBus is a simple pub/sub event bus
type EventBus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
}

// NewEventBus creates a new event bus
func NewEventBus() *EventBus {
	return &EventBus{
		handlers: make(map[EventType][]Handler),
	}
}

// Subscribe adds a handler for an event type
func (b *EventBus) Subscribe(eventType EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], handler)
}

// SubscribeMultiple adds a handler for multiple event types
func (b *EventBus) SubscribeMultiple(eventTypes []EventType, handler Handler) {
	for _, et := range eventTypes {
		b.Subscribe(et, handler)
	}
}

// Publish sends an event to all subscribed handlers
func (b *EventBus) Publish(event Event) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers[event.Type]))
	copy(handlers, b.handlers[event.Type])
	b.mu.RUnlock()

	for _, handler := range handlers {
		// Call handlers in goroutines to avoid blocking
		go handler(event)
	}
}

// PublishSync sends an event and waits for all handlers to complete
func (b *EventBus) PublishSync(event Event) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers[event.Type]))
	copy(handlers, b.handlers[event.Type])
	b.mu.RUnlock()

	var wg sync.WaitGroup
	for _, handler := range handlers {
		wg.Add(1)
		go func(h Handler) {
			defer wg.Done()
			h(event)
		}(handler)
	}
	wg.Wait()
}

// Clear removes all handlers
func (b *EventBus) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = make(map[EventType][]Handler)
}
