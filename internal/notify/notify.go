// Package notify delivers appointment lifecycle events out-of-band. The
// dispatcher fans an event out to every configured channel; a channel failure
// is logged and never reaches the operation that produced the event.
package notify

import (
	"context"
	"fmt"

	"github.com/clinicore/clinic-scheduling/internal/schedule"
	"github.com/clinicore/clinic-scheduling/pkg/logging"
)

// Channel is one delivery mechanism (email, SMS, log). Channels decide for
// themselves whether an event is deliverable, e.g. the email channel skips
// patients without an address.
type Channel interface {
	Kind() string
	Send(ctx context.Context, ev schedule.Event) error
}

// Dispatcher implements schedule.Sink over a set of channels.
type Dispatcher struct {
	channels []Channel
	logger   *logging.Logger
}

func NewDispatcher(logger *logging.Logger, channels ...Channel) *Dispatcher {
	if logger == nil {
		logger = logging.Default()
	}
	return &Dispatcher{channels: channels, logger: logger}
}

func (d *Dispatcher) Notify(ctx context.Context, ev schedule.Event) {
	for _, ch := range d.channels {
		if err := ch.Send(ctx, ev); err != nil {
			d.logger.Error("notification delivery failed",
				"channel", ch.Kind(),
				"event", string(ev.Type),
				"appointment_id", ev.Appointment.ID,
				"error", err,
			)
			continue
		}
		d.logger.Debug("notification delivered",
			"channel", ch.Kind(),
			"event", string(ev.Type),
			"appointment_id", ev.Appointment.ID,
		)
	}
}

// Subject and body shared by the text channels.

func subjectFor(ev schedule.Event) string {
	switch ev.Type {
	case schedule.EventCreated:
		return "Appointment requested: " + ev.Appointment.Code
	case schedule.EventConfirmed:
		return "Appointment confirmed: " + ev.Appointment.Code
	case schedule.EventCancelled:
		return "Appointment cancelled: " + ev.Appointment.Code
	case schedule.EventCompleted:
		return "Appointment completed: " + ev.Appointment.Code
	case schedule.EventNoShow:
		return "Missed appointment: " + ev.Appointment.Code
	case schedule.EventReminder:
		return "Appointment reminder: " + ev.Appointment.Code
	}
	return "Appointment update: " + ev.Appointment.Code
}

func bodyFor(ev schedule.Event) string {
	a := ev.Appointment
	name := "patient"
	if ev.Patient != nil && ev.Patient.Name != "" {
		name = ev.Patient.Name
	}
	return fmt.Sprintf(
		"Dear %s,\n\nYour appointment %s is scheduled for %s at %s (%d minutes). Current status: %s.\n",
		name, a.Code, a.Date.Format("Monday, January 2 2006"), a.Start, a.DurationMin, a.Status,
	)
}
