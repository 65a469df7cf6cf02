package schedule

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	ErrPatientNotFound     = errors.New("patient not found")
	ErrPatientInactive     = errors.New("patient is inactive")
	ErrWindowNotFound      = errors.New("schedule window not found")
	ErrAppointmentNotFound = errors.New("appointment not found")

	// ErrInvalidDuration rejects non-positive slot durations before any
	// store access happens.
	ErrInvalidDuration = errors.New("duration must be a positive number of minutes")

	// Store-level insert conflicts. The booking engine translates both into
	// caller-facing errors.
	ErrCodeTaken = errors.New("appointment code already taken")
	ErrSlotTaken = errors.New("appointment slot already taken")
)

// InvalidRangeError rejects a window whose end does not come after its start.
type InvalidRangeError struct {
	Start TimeOfDay
	End   TimeOfDay
}

func (e *InvalidRangeError) Error() string {
	return fmt.Sprintf("invalid time range: end %s must be after start %s", e.End, e.Start)
}

// OverlapError carries the windows a new or updated window would collide
// with, so the caller can show the conflicting hours.
type OverlapError struct {
	Conflicts []WeeklyWindow
}

func (e *OverlapError) Error() string {
	if len(e.Conflicts) == 1 {
		c := e.Conflicts[0]
		return fmt.Sprintf("window overlaps existing window %s (%s %s-%s)", c.ID, c.Weekday, c.Start, c.End)
	}
	return fmt.Sprintf("window overlaps %d existing windows", len(e.Conflicts))
}

// Booking rejection reasons surfaced inside SlotUnavailableError.
const (
	ReasonOutsideHours = "no attending hours"
	ReasonOverlap      = "overlaps existing appointment"
	ReasonBusy         = "schedule busy, please retry"
)

// SlotUnavailableError means the requested booking time cannot be used:
// outside attending hours, colliding with existing appointments, or lost to a
// concurrent booking after retries. All three look the same to the client,
// which should simply pick another slot.
type SlotUnavailableError struct {
	Reason    string
	Conflicts []uuid.UUID // appointment IDs for the overlap case
}

func (e *SlotUnavailableError) Error() string {
	return "slot unavailable: " + e.Reason
}

// InvalidTransitionError rejects an illegal lifecycle change.
type InvalidTransitionError struct {
	From AppointmentStatus
	To   AppointmentStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid status transition from %s to %s", e.From, e.To)
}
