package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/clinicore/clinic-scheduling/internal/redislock"
	"github.com/clinicore/clinic-scheduling/pkg/logging"
)

const defaultCodeRetries = 3

// BookingEngine creates appointments while holding the per physician+date
// schedule lock, so two concurrent bookings can never both pass the overlap
// check. A partial unique index in the store backs the lock up: even if the
// lock expires mid-section, the second insert fails instead of double-booking.
type BookingEngine struct {
	store       Store
	locker      redislock.Locker
	sink        Sink
	metrics     *Metrics
	logger      *logging.Logger
	codeRetries int
}

func NewBookingEngine(store Store, locker redislock.Locker, sink Sink, metrics *Metrics, logger *logging.Logger) *BookingEngine {
	if sink == nil {
		sink = NopSink{}
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &BookingEngine{
		store:       store,
		locker:      locker,
		sink:        sink,
		metrics:     metrics,
		logger:      logger,
		codeRetries: defaultCodeRetries,
	}
}

// BookRequest carries everything needed to create an appointment. CreatedBy
// identifies the acting user; authorization happened at the transport layer.
type BookRequest struct {
	PatientID   uuid.UUID
	PhysicianID uuid.UUID
	LocationID  uuid.UUID
	Date        time.Time
	Start       TimeOfDay
	DurationMin int
	Reason      string
	CreatedBy   uuid.UUID
}

// Book validates the request against the physician's attending hours and
// current bookings, then persists a pending appointment with a fresh
// T-YYYYMMDD-NNNN code. The created event is dispatched best-effort after
// the critical section; notification failure never rolls a booking back.
func (e *BookingEngine) Book(ctx context.Context, req BookRequest) (*Appointment, error) {
	started := time.Now()
	appt, patient, err := e.book(ctx, req)
	e.metrics.ObserveBooking(bookingOutcome(err), time.Since(started).Seconds())
	if err != nil {
		return nil, err
	}

	e.sink.Notify(ctx, Event{
		Type:        EventCreated,
		Appointment: *appt,
		Patient:     patient,
		OccurredAt:  time.Now(),
	})
	return appt, nil
}

func (e *BookingEngine) book(ctx context.Context, req BookRequest) (*Appointment, *Patient, error) {
	if req.DurationMin <= 0 || req.DurationMin >= MinutesPerDay {
		return nil, nil, ErrInvalidDuration
	}
	// Bound check in int: TimeOfDay is int16 and would wrap on huge durations.
	if !req.Start.Valid() || int(req.Start)+req.DurationMin > MinutesPerDay {
		return nil, nil, &InvalidRangeError{Start: req.Start, End: req.Start.Add(req.DurationMin)}
	}
	date := DateOnly(req.Date)

	patient, err := e.store.GetPatientByID(ctx, req.PatientID)
	if err != nil {
		if errors.Is(err, ErrPatientNotFound) {
			return nil, nil, err
		}
		return nil, nil, fmt.Errorf("load patient: %w", err)
	}
	if !patient.Active {
		return nil, nil, ErrPatientInactive
	}

	var created *Appointment

	err = e.locker.WithScheduleLock(ctx, req.PhysicianID, date, func(lockCtx context.Context) error {
		end := req.Start.Add(req.DurationMin)

		windows, err := e.store.GetActiveWindows(lockCtx, req.PhysicianID, date.Weekday())
		if err != nil {
			return fmt.Errorf("load windows: %w", err)
		}
		if !anyWindowCovers(windows, req.Start, end) {
			return &SlotUnavailableError{Reason: ReasonOutsideHours}
		}

		booked, err := e.store.GetAppointments(lockCtx, req.PhysicianID, date, BlockingStatuses...)
		if err != nil {
			return fmt.Errorf("load appointments: %w", err)
		}
		if conflicts := overlapping(booked, req.Start, end); len(conflicts) > 0 {
			return &SlotUnavailableError{Reason: ReasonOverlap, Conflicts: conflicts}
		}

		created, err = e.insertWithCode(lockCtx, req, date)
		return err
	})

	if err != nil {
		if errors.Is(err, redislock.ErrNotAcquired) {
			// Indistinguishable from a genuine conflict on purpose: either
			// way the client should pick another slot or retry.
			return nil, nil, &SlotUnavailableError{Reason: ReasonBusy}
		}
		return nil, nil, err
	}

	e.logger.Info("appointment booked",
		"appointment_id", created.ID,
		"code", created.Code,
		"physician_id", created.PhysicianID,
		"patient_id", created.PatientID,
		"date", created.Date.Format("2006-01-02"),
		"start", created.Start.String(),
	)
	return created, patient, nil
}

// insertWithCode generates the next free code for the date and inserts the
// pending appointment. A concurrent booking on another date can race the
// scan-and-increment, so a code collision re-derives the sequence and tries
// again a bounded number of times.
func (e *BookingEngine) insertWithCode(ctx context.Context, req BookRequest, date time.Time) (*Appointment, error) {
	var reason *string
	if req.Reason != "" {
		r := req.Reason
		reason = &r
	}
	var createdBy *uuid.UUID
	if req.CreatedBy != uuid.Nil {
		u := req.CreatedBy
		createdBy = &u
	}

	for attempt := 0; attempt <= e.codeRetries; attempt++ {
		seq, err := e.store.NextCodeSeq(ctx, date)
		if err != nil {
			return nil, fmt.Errorf("next code sequence: %w", err)
		}

		a := Appointment{
			ID:          uuid.New(),
			Code:        fmt.Sprintf("T-%s-%04d", date.Format("20060102"), seq),
			PatientID:   req.PatientID,
			PhysicianID: req.PhysicianID,
			LocationID:  req.LocationID,
			Date:        date,
			Start:       req.Start,
			DurationMin: req.DurationMin,
			Status:      StatusPending,
			Reason:      reason,
			CreatedBy:   createdBy,
		}

		created, err := e.store.InsertAppointment(ctx, a)
		if err == nil {
			return created, nil
		}
		if errors.Is(err, ErrCodeTaken) {
			e.logger.Warn("appointment code collision, retrying", "code", a.Code, "attempt", attempt+1)
			continue
		}
		if errors.Is(err, ErrSlotTaken) {
			// The unique-index backstop fired: another writer slipped in.
			return nil, &SlotUnavailableError{Reason: ReasonOverlap}
		}
		return nil, fmt.Errorf("insert appointment: %w", err)
	}

	return nil, &SlotUnavailableError{Reason: ReasonBusy}
}

func anyWindowCovers(windows []WeeklyWindow, start, end TimeOfDay) bool {
	for _, w := range windows {
		if w.Covers(start, end) {
			return true
		}
	}
	return false
}

func overlapping(booked []Appointment, start, end TimeOfDay) []uuid.UUID {
	var ids []uuid.UUID
	for _, a := range booked {
		if a.Overlaps(start, end) {
			ids = append(ids, a.ID)
		}
	}
	return ids
}

func bookingOutcome(err error) string {
	switch {
	case err == nil:
		return "booked"
	case errors.As(err, new(*SlotUnavailableError)):
		return "slot_unavailable"
	case errors.Is(err, ErrPatientNotFound), errors.Is(err, ErrPatientInactive):
		return "patient_rejected"
	default:
		return "error"
	}
}
