package schedule

import (
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	StatusPending   AppointmentStatus = "pending"
	StatusConfirmed AppointmentStatus = "confirmed"
	StatusCompleted AppointmentStatus = "completed"
	StatusCancelled AppointmentStatus = "cancelled"
	StatusNoShow    AppointmentStatus = "no_show"
)

// Terminal reports whether no further transitions are allowed from s.
func (s AppointmentStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusCancelled, StatusNoShow:
		return true
	}
	return false
}

// BlockingStatuses are the statuses that occupy a physician's time.
// Cancelled and no-show appointments free their slot.
var BlockingStatuses = []AppointmentStatus{StatusPending, StatusConfirmed, StatusCompleted}

type Patient struct {
	ID        uuid.UUID
	Name      string
	Email     *string
	Phone     *string
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// WeeklyWindow is a recurring block of attending time for a physician at a
// location. Windows are soft-deactivated, never deleted.
type WeeklyWindow struct {
	ID          uuid.UUID
	PhysicianID uuid.UUID
	LocationID  uuid.UUID
	Weekday     time.Weekday
	Start       TimeOfDay
	End         TimeOfDay
	Active      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Overlaps reports whether the window's [Start,End) intersects [start,end).
func (w WeeklyWindow) Overlaps(start, end TimeOfDay) bool {
	return w.Start < end && start < w.End
}

// Covers reports whether [start,end) lies fully inside the window.
func (w WeeklyWindow) Covers(start, end TimeOfDay) bool {
	return w.Start <= start && end <= w.End
}

type Appointment struct {
	ID          uuid.UUID
	Code        string
	PatientID   uuid.UUID
	PhysicianID uuid.UUID
	LocationID  uuid.UUID
	Date        time.Time
	Start       TimeOfDay
	DurationMin int
	Status      AppointmentStatus
	Reason      *string
	CreatedBy   *uuid.UUID
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// End is the exclusive end of the appointment's effective interval.
func (a Appointment) End() TimeOfDay {
	return a.Start.Add(a.DurationMin)
}

// Overlaps reports whether a's effective interval intersects [start,end).
func (a Appointment) Overlaps(start, end TimeOfDay) bool {
	return a.Start < end && start < a.End()
}

// Slot is a derived candidate booking time. It is never persisted.
type Slot struct {
	Date        time.Time `json:"date"`
	Start       TimeOfDay `json:"start"`
	DurationMin int       `json:"duration_min"`
}

// DateOnly normalizes t to midnight UTC so dates compare by equality.
// All scheduling times are naive local time; the UTC location is only a
// uniform carrier.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
