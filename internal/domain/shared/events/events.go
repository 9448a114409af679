package events

import (
	"strings"
	"time"
)

// SchemaVersion is appended to event names on the wire.
const SchemaVersion = "v1"

type DomainEvent interface {
	EventName() string
	AggregateID() string
	OccurredAt() time.Time
}

// Family is the part of an event name before the first dot; every event of a
// family shares one stream. "interval.created" belongs to "interval".
func Family(name string) string {
	if idx := strings.IndexRune(name, '.'); idx > 0 {
		return name[:idx]
	}
	return name
}

// WireType is the versioned type published for name.
func WireType(name string) string {
	return name + "." + SchemaVersion
}

// EventRecorder is embedded by aggregates. Events stay pending until the
// writer drains them into the outbox.
type EventRecorder struct {
	pending []DomainEvent
}

func (r *EventRecorder) Record(event DomainEvent) {
	if event == nil {
		return
	}
	r.pending = append(r.pending, event)
}

func (r *EventRecorder) PendingEvents() []DomainEvent {
	return append([]DomainEvent(nil), r.pending...)
}

// DrainEvents returns the pending events and clears the recorder.
func (r *EventRecorder) DrainEvents() []DomainEvent {
	out := r.pending
	r.pending = nil
	return out
}
