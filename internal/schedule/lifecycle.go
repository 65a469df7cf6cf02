package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/clinicore/clinic-scheduling/pkg/logging"
)

// transitions is the full set of legal status changes. Completed, cancelled
// and no_show are terminal; nothing leaves them.
var transitions = map[AppointmentStatus]map[AppointmentStatus]bool{
	StatusPending: {
		StatusConfirmed: true,
		StatusCancelled: true,
		StatusCompleted: true,
		StatusNoShow:    true,
	},
	StatusConfirmed: {
		StatusCancelled: true,
		StatusCompleted: true,
		StatusNoShow:    true,
	},
}

// CanTransition reports whether from → to is a legal lifecycle change.
func CanTransition(from, to AppointmentStatus) bool {
	return transitions[from][to]
}

// Lifecycle owns appointment status transitions. Cancelling or marking
// no-show frees the slot: those statuses are excluded from every overlap
// predicate, so the same time becomes bookable again.
type Lifecycle struct {
	store  Store
	sink   Sink
	logger *logging.Logger
}

func NewLifecycle(store Store, sink Sink, logger *logging.Logger) *Lifecycle {
	if sink == nil {
		sink = NopSink{}
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Lifecycle{store: store, sink: sink, logger: logger}
}

func (l *Lifecycle) Confirm(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return l.transition(ctx, id, StatusConfirmed, EventConfirmed)
}

func (l *Lifecycle) Cancel(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return l.transition(ctx, id, StatusCancelled, EventCancelled)
}

func (l *Lifecycle) Complete(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return l.transition(ctx, id, StatusCompleted, EventCompleted)
}

// MarkNoShow records that the patient did not attend. Feeds the no-show
// rate statistics.
func (l *Lifecycle) MarkNoShow(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return l.transition(ctx, id, StatusNoShow, EventNoShow)
}

func (l *Lifecycle) transition(ctx context.Context, id uuid.UUID, to AppointmentStatus, eventType EventType) (*Appointment, error) {
	appt, err := l.store.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !CanTransition(appt.Status, to) {
		return nil, &InvalidTransitionError{From: appt.Status, To: to}
	}

	// The update is a compare-and-set on (id, from). Losing the race to a
	// concurrent transition surfaces as an invalid transition, same as if
	// the other change had landed first.
	updated, err := l.store.UpdateAppointmentStatus(ctx, id, appt.Status, to)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			current, loadErr := l.store.GetAppointmentByID(ctx, id)
			if loadErr == nil {
				return nil, &InvalidTransitionError{From: current.Status, To: to}
			}
			return nil, err
		}
		return nil, fmt.Errorf("update appointment status: %w", err)
	}

	l.logger.Info("appointment status changed",
		"appointment_id", id,
		"code", updated.Code,
		"from", string(appt.Status),
		"to", string(to),
	)

	var patient *Patient
	if p, err := l.store.GetPatientByID(ctx, updated.PatientID); err == nil {
		patient = p
	}
	l.sink.Notify(ctx, Event{
		Type:        eventType,
		Appointment: *updated,
		Patient:     patient,
		OccurredAt:  time.Now(),
	})

	return updated, nil
}
