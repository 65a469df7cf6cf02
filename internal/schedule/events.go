package schedule

import (
	"context"
	"time"
)

type EventType string

const (
	EventCreated   EventType = "appointment_created"
	EventConfirmed EventType = "appointment_confirmed"
	EventCancelled EventType = "appointment_cancelled"
	EventCompleted EventType = "appointment_completed"
	EventNoShow    EventType = "appointment_no_show"
	EventReminder  EventType = "appointment_reminder"
)

// Event is a notification-worthy state change of an appointment. Patient is
// populated when contact details were available at dispatch time.
type Event struct {
	Type        EventType
	Appointment Appointment
	Patient     *Patient
	OccurredAt  time.Time
}

// Sink receives lifecycle events for out-of-band delivery. Dispatch is
// fire-and-forget: implementations log failures and never return them to the
// triggering operation.
type Sink interface {
	Notify(ctx context.Context, ev Event)
}

// NopSink discards events. Useful default for tests and tools.
type NopSink struct{}

func (NopSink) Notify(context.Context, Event) {}
