package engine

import (
	"sync"
	"time"
)

// Listener receives production events. Dispatch is synchronous on the
// emitting goroutine, so handlers must not block on the tracker.
// Embed NopListener to handle only the events a component cares about.
type Listener interface {
	UnitsCreated(UnitsCreatedEvent)
	StageCompleted(StageCompletedEvent)
	StageUndone(StageUndoneEvent)
}

// NopListener is a Listener that ignores everything.
type NopListener struct{}

func (NopListener) UnitsCreated(UnitsCreatedEvent)     {}
func (NopListener) StageCompleted(StageCompletedEvent) {}
func (NopListener) StageUndone(StageUndoneEvent)       {}

// ListenerID identifies an attached listener so it can be detached.
type ListenerID uint64

type attachment struct {
	id ListenerID
	l  Listener
}

// EventBus fans unit lifecycle events out to attached listeners in
// attach order.
type EventBus struct {
	mu     sync.RWMutex
	lastID ListenerID
	active []attachment
}

func NewEventBus() *EventBus {
	return &EventBus{}
}

// Attach registers a listener for all subsequent emits.
func (eb *EventBus) Attach(l Listener) ListenerID {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	eb.lastID++
	eb.active = append(eb.active, attachment{id: eb.lastID, l: l})
	return eb.lastID
}

// Detach removes a previously attached listener.
func (eb *EventBus) Detach(id ListenerID) {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	for i, a := range eb.active {
		if a.id == id {
			eb.active = append(eb.active[:i], eb.active[i+1:]...)
			return
		}
	}
}

// snapshot copies the listener set so a handler can attach or detach
// without deadlocking the emit.
func (eb *EventBus) snapshot() []attachment {
	eb.mu.RLock()
	defer eb.mu.RUnlock()
	out := make([]attachment, len(eb.active))
	copy(out, eb.active)
	return out
}

func (eb *EventBus) EmitUnitsCreated(evt UnitsCreatedEvent) {
	if evt.At.IsZero() {
		evt.At = time.Now()
	}
	for _, a := range eb.snapshot() {
		a.l.UnitsCreated(evt)
	}
}

func (eb *EventBus) EmitStageCompleted(evt StageCompletedEvent) {
	if evt.At.IsZero() {
		evt.At = time.Now()
	}
	for _, a := range eb.snapshot() {
		a.l.StageCompleted(evt)
	}
}

func (eb *EventBus) EmitStageUndone(evt StageUndoneEvent) {
	if evt.At.IsZero() {
		evt.At = time.Now()
	}
	for _, a := range eb.snapshot() {
		a.l.StageUndone(evt)
	}
}
