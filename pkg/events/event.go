// Package events holds the domain event value and the pending-event buffer
// aggregates embed to announce their state changes.
package events

import "time"

// Event is an immutable fact recorded by an aggregate at the moment of a state change.
type Event struct {
	Type        string
	AggregateID string
	Payload     any
	OccurredAt  time.Time
}

// Source is implemented by aggregates that buffer events until they are persisted.
type Source interface {
	PendingEvents() []Event
	ClearEvents()
}

// Recorder is the pending-event buffer owned by a single aggregate instance.
// The zero value is ready to use.
type Recorder struct {
	pending []Event
}

// Record appends an event in call order.
func (r *Recorder) Record(eventType, aggregateID string, payload any) {
	r.pending = append(r.pending, Event{
		Type:        eventType,
		AggregateID: aggregateID,
		Payload:     payload,
		OccurredAt:  time.Now().UTC(),
	})
}

// PendingEvents returns a copy of the buffered events.
func (r *Recorder) PendingEvents() []Event {
	out := make([]Event, len(r.pending))
	copy(out, r.pending)
	return out
}

// ClearEvents drops the buffer once the events were handed to the outbox.
func (r *Recorder) ClearEvents() {
	r.pending = nil
}
