package schedule

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Store contains all persistence interactions the scheduling services need.
// Every method returns plain value objects; nothing is lazily loaded.
type Store interface {
	GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error)

	// Weekly windows
	GetWindowByID(ctx context.Context, id uuid.UUID) (*WeeklyWindow, error)
	GetActiveWindows(ctx context.Context, physicianID uuid.UUID, weekday time.Weekday) ([]WeeklyWindow, error)
	ListWindows(ctx context.Context, physicianID uuid.UUID, activeOnly bool) ([]WeeklyWindow, error)
	InsertWindow(ctx context.Context, w WeeklyWindow) (*WeeklyWindow, error)
	UpdateWindow(ctx context.Context, w WeeklyWindow) (*WeeklyWindow, error)
	DeactivateWindowsForPhysician(ctx context.Context, physicianID uuid.UUID) (int, error)

	// Appointments
	GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	GetAppointmentByCode(ctx context.Context, code string) (*Appointment, error)
	// GetAppointments returns the physician's appointments on date whose
	// status is in statuses, ordered by start time.
	GetAppointments(ctx context.Context, physicianID uuid.UUID, date time.Time, statuses ...AppointmentStatus) ([]Appointment, error)
	// InsertAppointment persists a new appointment. It fails with
	// ErrCodeTaken or ErrSlotTaken when a unique constraint rejects the row.
	InsertAppointment(ctx context.Context, a Appointment) (*Appointment, error)
	// UpdateAppointmentStatus transitions id from one status to another and
	// fails with ErrAppointmentNotFound when no row matches both id and from.
	UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, from, to AppointmentStatus) (*Appointment, error)
	// NextCodeSeq returns the next unused sequence number for date's
	// T-YYYYMMDD-NNNN codes.
	NextCodeSeq(ctx context.Context, date time.Time) (int, error)

	// Queries
	ListAppointmentsByPatient(ctx context.Context, patientID uuid.UUID, filter AppointmentFilter) ([]Appointment, error)
	ListAppointmentsByPhysician(ctx context.Context, physicianID uuid.UUID, filter AppointmentFilter) ([]Appointment, error)
	ListAppointmentsByDate(ctx context.Context, date time.Time) ([]Appointment, error)

	// Reporting and reminders
	CountByStatus(ctx context.Context, from, to time.Time) (map[AppointmentStatus]int, error)
	FindOnDate(ctx context.Context, date time.Time, statuses ...AppointmentStatus) ([]Appointment, error)
}

// AppointmentFilter narrows appointment listings. Nil fields are ignored.
type AppointmentFilter struct {
	From     *time.Time
	To       *time.Time
	Statuses []AppointmentStatus
}
