package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Planner derives the free booking slots of a physician on a calendar date.
type Planner struct {
	store   Store
	metrics *Metrics
}

func NewPlanner(store Store, metrics *Metrics) *Planner {
	return &Planner{store: store, metrics: metrics}
}

// AvailableSlots maps the date to its weekday, expands every active window
// into back-to-back candidates of durationMin minutes, and drops candidates
// colliding with pending, confirmed or completed appointments.
//
// The result is a snapshot, not a reservation: a returned slot can be taken
// by the time the caller books it. Book re-validates under the schedule lock.
func (p *Planner) AvailableSlots(ctx context.Context, physicianID uuid.UUID, date time.Time, durationMin int) ([]Slot, error) {
	if durationMin <= 0 || durationMin >= MinutesPerDay {
		return nil, ErrInvalidDuration
	}
	date = DateOnly(date)

	windows, err := p.store.GetActiveWindows(ctx, physicianID, date.Weekday())
	if err != nil {
		return nil, fmt.Errorf("load windows: %w", err)
	}
	if len(windows) == 0 {
		return nil, nil
	}

	booked, err := p.store.GetAppointments(ctx, physicianID, date, BlockingStatuses...)
	if err != nil {
		return nil, fmt.Errorf("load appointments: %w", err)
	}

	var slots []Slot
	for _, w := range windows {
		for start := w.Start; start.Add(durationMin) <= w.End; start = start.Add(durationMin) {
			if conflictsAny(booked, start, start.Add(durationMin)) {
				continue
			}
			slots = append(slots, Slot{Date: date, Start: start, DurationMin: durationMin})
		}
	}

	p.metrics.ObserveSlotQuery(len(slots))
	return slots, nil
}

func conflictsAny(booked []Appointment, start, end TimeOfDay) bool {
	for _, a := range booked {
		if a.Overlaps(start, end) {
			return true
		}
	}
	return false
}
