package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/clinicore/clinic-scheduling/internal/schedule"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, details string) {
	writeJSON(w, status, ErrorResponse{Error: code, Details: details})
}

// handleScheduleError maps domain errors onto HTTP statuses. Everything the
// core returns is caller-facing; only unknown errors become a 500.
func handleScheduleError(w http.ResponseWriter, err error) {
	var (
		invalidRange  *schedule.InvalidRangeError
		overlap       *schedule.OverlapError
		unavailable   *schedule.SlotUnavailableError
		badTransition *schedule.InvalidTransitionError
	)

	switch {
	case errors.Is(err, schedule.ErrPatientNotFound):
		writeError(w, http.StatusNotFound, "patient_not_found", err.Error())
	case errors.Is(err, schedule.ErrPatientInactive):
		writeError(w, http.StatusConflict, "patient_inactive", err.Error())
	case errors.Is(err, schedule.ErrWindowNotFound):
		writeError(w, http.StatusNotFound, "window_not_found", err.Error())
	case errors.Is(err, schedule.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
	case errors.Is(err, schedule.ErrInvalidDuration):
		writeError(w, http.StatusBadRequest, "invalid_duration", err.Error())
	case errors.As(err, &invalidRange):
		writeError(w, http.StatusBadRequest, "invalid_time_range", err.Error())
	case errors.As(err, &overlap):
		writeJSON(w, http.StatusConflict, overlapPayload(overlap))
	case errors.As(err, &unavailable):
		writeJSON(w, http.StatusConflict, unavailablePayload(unavailable))
	case errors.As(err, &badTransition):
		writeError(w, http.StatusConflict, "invalid_status_transition", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

type conflictResponse struct {
	Error     string   `json:"error"`
	Details   string   `json:"details"`
	Conflicts []string `json:"conflicts,omitempty"`
}

func overlapPayload(e *schedule.OverlapError) conflictResponse {
	conflicts := make([]string, 0, len(e.Conflicts))
	for _, w := range e.Conflicts {
		conflicts = append(conflicts, w.ID.String())
	}
	return conflictResponse{
		Error:     "window_overlap",
		Details:   e.Error(),
		Conflicts: conflicts,
	}
}

func unavailablePayload(e *schedule.SlotUnavailableError) conflictResponse {
	conflicts := make([]string, 0, len(e.Conflicts))
	for _, id := range e.Conflicts {
		conflicts = append(conflicts, id.String())
	}
	return conflictResponse{
		Error:     "slot_unavailable",
		Details:   e.Error(),
		Conflicts: conflicts,
	}
}
