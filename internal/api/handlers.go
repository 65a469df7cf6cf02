package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/clinicore/clinic-scheduling/internal/schedule"
)

// defaultSlotDurationMin applies when a slot query omits the duration param.
const defaultSlotDurationMin = 30

// Weekly availability

func addWindowHandler(svc *schedule.Availability) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		physicianID, ok := parseUUIDParam(w, r, "physicianID")
		if !ok {
			return
		}

		var req AddWindowRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		locationID, err := uuid.Parse(req.LocationID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_location_id", "location_id must be a valid UUID")
			return
		}
		weekday, ok := parseWeekday(req.Weekday)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_weekday", "weekday must be Monday..Sunday")
			return
		}
		start, err := schedule.ParseTimeOfDay(req.Start)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_start", "start must be HH:MM")
			return
		}
		end, err := schedule.ParseTimeOfDay(req.End)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_end", "end must be HH:MM")
			return
		}

		window, err := svc.AddWindow(r.Context(), physicianID, locationID, weekday, start, end)
		if err != nil {
			handleScheduleError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toWindowResponse(*window))
	}
}

func updateWindowHandler(svc *schedule.Availability) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseUUIDParam(w, r, "id")
		if !ok {
			return
		}

		var req UpdateWindowRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		var params schedule.UpdateWindowParams
		if req.LocationID != nil {
			locationID, err := uuid.Parse(*req.LocationID)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_location_id", "location_id must be a valid UUID")
				return
			}
			params.LocationID = &locationID
		}
		if req.Weekday != nil {
			weekday, ok := parseWeekday(*req.Weekday)
			if !ok {
				writeError(w, http.StatusBadRequest, "invalid_weekday", "weekday must be Monday..Sunday")
				return
			}
			params.Weekday = &weekday
		}
		if req.Start != nil {
			start, err := schedule.ParseTimeOfDay(*req.Start)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_start", "start must be HH:MM")
				return
			}
			params.Start = &start
		}
		if req.End != nil {
			end, err := schedule.ParseTimeOfDay(*req.End)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_end", "end must be HH:MM")
				return
			}
			params.End = &end
		}

		window, err := svc.UpdateWindow(r.Context(), id, params)
		if err != nil {
			handleScheduleError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toWindowResponse(*window))
	}
}

func deactivateWindowHandler(svc *schedule.Availability) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseUUIDParam(w, r, "id")
		if !ok {
			return
		}
		window, err := svc.DeactivateWindow(r.Context(), id)
		if err != nil {
			handleScheduleError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toWindowResponse(*window))
	}
}

func deactivatePhysicianHandler(svc *schedule.Availability) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		physicianID, ok := parseUUIDParam(w, r, "physicianID")
		if !ok {
			return
		}
		count, err := svc.DeactivatePhysician(r.Context(), physicianID)
		if err != nil {
			handleScheduleError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]int{"deactivated": count})
	}
}

func listWindowsHandler(svc *schedule.Availability) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		physicianID, ok := parseUUIDParam(w, r, "physicianID")
		if !ok {
			return
		}
		activeOnly := r.URL.Query().Get("all") != "true"

		windows, err := svc.ListWindows(r.Context(), physicianID, activeOnly)
		if err != nil {
			handleScheduleError(w, err)
			return
		}

		out := make([]WindowResponse, 0, len(windows))
		for _, win := range windows {
			out = append(out, toWindowResponse(win))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// Slots

func availableSlotsHandler(planner *schedule.Planner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		physicianID, ok := parseUUIDParam(w, r, "physicianID")
		if !ok {
			return
		}

		date, err := time.Parse("2006-01-02", r.URL.Query().Get("date"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
			return
		}
		duration := defaultSlotDurationMin
		if d := r.URL.Query().Get("duration"); d != "" {
			duration, err = strconv.Atoi(d)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_duration", "duration must be an integer")
				return
			}
		}

		slots, err := planner.AvailableSlots(r.Context(), physicianID, date, duration)
		if err != nil {
			handleScheduleError(w, err)
			return
		}

		starts := make([]string, 0, len(slots))
		for _, s := range slots {
			starts = append(starts, s.Start.String())
		}
		writeJSON(w, http.StatusOK, SlotsResponse{
			PhysicianID: physicianID,
			Date:        date.Format("2006-01-02"),
			DurationMin: duration,
			Slots:       starts,
		})
	}
}

// Booking

func bookHandler(engine *schedule.BookingEngine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req BookRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		patientID, err := uuid.Parse(req.PatientID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_patient_id", "patient_id must be a valid UUID")
			return
		}
		physicianID, err := uuid.Parse(req.PhysicianID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_physician_id", "physician_id must be a valid UUID")
			return
		}
		locationID, err := uuid.Parse(req.LocationID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_location_id", "location_id must be a valid UUID")
			return
		}
		date, err := time.Parse("2006-01-02", req.Date)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
			return
		}
		start, err := schedule.ParseTimeOfDay(req.Start)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_start", "start must be HH:MM")
			return
		}
		var createdBy uuid.UUID
		if req.CreatedBy != "" {
			createdBy, err = uuid.Parse(req.CreatedBy)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_created_by", "created_by must be a valid UUID")
				return
			}
		}

		appt, err := engine.Book(r.Context(), schedule.BookRequest{
			PatientID:   patientID,
			PhysicianID: physicianID,
			LocationID:  locationID,
			Date:        date,
			Start:       start,
			DurationMin: req.DurationMin,
			Reason:      req.Reason,
			CreatedBy:   createdBy,
		})
		if err != nil {
			handleScheduleError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toAppointmentResponse(*appt))
	}
}

// Lifecycle

func transitionHandler(fn func(ctx context.Context, id uuid.UUID) (*schedule.Appointment, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseUUIDParam(w, r, "id")
		if !ok {
			return
		}
		appt, err := fn(r.Context(), id)
		if err != nil {
			handleScheduleError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentResponse(*appt))
	}
}

// Listings and reporting

func getAppointmentHandler(store schedule.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseUUIDParam(w, r, "id")
		if !ok {
			return
		}
		appt, err := store.GetAppointmentByID(r.Context(), id)
		if err != nil {
			handleScheduleError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentResponse(*appt))
	}
}

func getAppointmentByCodeHandler(store schedule.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := chi.URLParam(r, "code")
		appt, err := store.GetAppointmentByCode(r.Context(), code)
		if err != nil {
			handleScheduleError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentResponse(*appt))
	}
}

// dayAgendaHandler lists every appointment on one date across physicians.
func dayAgendaHandler(store schedule.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		date, err := time.Parse("2006-01-02", r.URL.Query().Get("date"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
			return
		}
		appts, err := store.ListAppointmentsByDate(r.Context(), date)
		if err != nil {
			handleScheduleError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentResponses(appts))
	}
}

func listByPatientHandler(store schedule.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		patientID, ok := parseUUIDParam(w, r, "patientID")
		if !ok {
			return
		}
		filter, ok := parseFilter(w, r)
		if !ok {
			return
		}
		appts, err := store.ListAppointmentsByPatient(r.Context(), patientID, filter)
		if err != nil {
			handleScheduleError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentResponses(appts))
	}
}

func listByPhysicianHandler(store schedule.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		physicianID, ok := parseUUIDParam(w, r, "physicianID")
		if !ok {
			return
		}
		filter, ok := parseFilter(w, r)
		if !ok {
			return
		}
		appts, err := store.ListAppointmentsByPhysician(r.Context(), physicianID, filter)
		if err != nil {
			handleScheduleError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentResponses(appts))
	}
}

func statsHandler(stats *schedule.Stats) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		from, err := time.Parse("2006-01-02", r.URL.Query().Get("from"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_from", "from must be YYYY-MM-DD")
			return
		}
		to, err := time.Parse("2006-01-02", r.URL.Query().Get("to"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_to", "to must be YYYY-MM-DD")
			return
		}
		summary, err := stats.Summary(r.Context(), from, to)
		if err != nil {
			handleScheduleError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, summary)
	}
}

// Helpers

func parseUUIDParam(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_"+name, name+" must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}

func parseWeekday(s string) (time.Weekday, bool) {
	for d := time.Sunday; d <= time.Saturday; d++ {
		if s == d.String() {
			return d, true
		}
	}
	return 0, false
}

func parseFilter(w http.ResponseWriter, r *http.Request) (schedule.AppointmentFilter, bool) {
	var filter schedule.AppointmentFilter
	if v := r.URL.Query().Get("from"); v != "" {
		from, err := time.Parse("2006-01-02", v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_from", "from must be YYYY-MM-DD")
			return filter, false
		}
		filter.From = &from
	}
	if v := r.URL.Query().Get("to"); v != "" {
		to, err := time.Parse("2006-01-02", v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_to", "to must be YYYY-MM-DD")
			return filter, false
		}
		filter.To = &to
	}
	if v := r.URL.Query()["status"]; len(v) > 0 {
		for _, s := range v {
			filter.Statuses = append(filter.Statuses, schedule.AppointmentStatus(s))
		}
	}
	return filter, true
}

func toAppointmentResponses(appts []schedule.Appointment) []AppointmentResponse {
	out := make([]AppointmentResponse, 0, len(appts))
	for _, a := range appts {
		out = append(out, toAppointmentResponse(a))
	}
	return out
}
