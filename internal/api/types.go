package api

import (
	"github.com/google/uuid"

	"github.com/clinicore/clinic-scheduling/internal/schedule"
)

type AddWindowRequest struct {
	LocationID string `json:"location_id"`
	Weekday    string `json:"weekday"` // Monday..Sunday
	Start      string `json:"start"`   // HH:MM
	End        string `json:"end"`     // HH:MM
}

type UpdateWindowRequest struct {
	LocationID *string `json:"location_id,omitempty"`
	Weekday    *string `json:"weekday,omitempty"`
	Start      *string `json:"start,omitempty"`
	End        *string `json:"end,omitempty"`
}

type WindowResponse struct {
	ID          uuid.UUID `json:"id"`
	PhysicianID uuid.UUID `json:"physician_id"`
	LocationID  uuid.UUID `json:"location_id"`
	Weekday     string    `json:"weekday"`
	Start       string    `json:"start"`
	End         string    `json:"end"`
	Active      bool      `json:"active"`
}

func toWindowResponse(w schedule.WeeklyWindow) WindowResponse {
	return WindowResponse{
		ID:          w.ID,
		PhysicianID: w.PhysicianID,
		LocationID:  w.LocationID,
		Weekday:     w.Weekday.String(),
		Start:       w.Start.String(),
		End:         w.End.String(),
		Active:      w.Active,
	}
}

type BookRequest struct {
	PatientID   string `json:"patient_id"`
	PhysicianID string `json:"physician_id"`
	LocationID  string `json:"location_id"`
	Date        string `json:"date"`  // YYYY-MM-DD
	Start       string `json:"start"` // HH:MM
	DurationMin int    `json:"duration_min"`
	Reason      string `json:"reason,omitempty"`
	CreatedBy   string `json:"created_by,omitempty"`
}

type AppointmentResponse struct {
	ID          uuid.UUID `json:"id"`
	Code        string    `json:"code"`
	PatientID   uuid.UUID `json:"patient_id"`
	PhysicianID uuid.UUID `json:"physician_id"`
	LocationID  uuid.UUID `json:"location_id"`
	Date        string    `json:"date"`
	Start       string    `json:"start"`
	DurationMin int       `json:"duration_min"`
	Status      string    `json:"status"`
	Reason      *string   `json:"reason,omitempty"`
}

func toAppointmentResponse(a schedule.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:          a.ID,
		Code:        a.Code,
		PatientID:   a.PatientID,
		PhysicianID: a.PhysicianID,
		LocationID:  a.LocationID,
		Date:        a.Date.Format("2006-01-02"),
		Start:       a.Start.String(),
		DurationMin: a.DurationMin,
		Status:      string(a.Status),
		Reason:      a.Reason,
	}
}

type SlotsResponse struct {
	PhysicianID uuid.UUID `json:"physician_id"`
	Date        string    `json:"date"`
	DurationMin int       `json:"duration_min"`
	Slots       []string  `json:"slots"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
