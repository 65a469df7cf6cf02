package schedule

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the subset of pgxpool.Pool the store uses. pgxmock satisfies it too.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type PgStore struct {
	db DB
}

func NewPgStore(db DB) *PgStore {
	return &PgStore{db: db}
}

// Helpers

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(&p.ID, &p.Name, &p.Email, &p.Phone, &p.Active, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPatientNotFound
		}
		return nil, err
	}
	return &p, nil
}

func scanWindow(row pgx.Row) (*WeeklyWindow, error) {
	var w WeeklyWindow
	var weekday, start, end int16
	err := row.Scan(&w.ID, &w.PhysicianID, &w.LocationID, &weekday, &start, &end, &w.Active, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrWindowNotFound
		}
		return nil, err
	}
	w.Weekday = time.Weekday(weekday)
	w.Start = TimeOfDay(start)
	w.End = TimeOfDay(end)
	return &w, nil
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var start, duration int16
	err := row.Scan(
		&a.ID, &a.Code, &a.PatientID, &a.PhysicianID, &a.LocationID,
		&a.Date, &start, &duration, &a.Status, &a.Reason, &a.CreatedBy,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}
	a.Date = DateOnly(a.Date)
	a.Start = TimeOfDay(start)
	a.DurationMin = int(duration)
	return &a, nil
}

func collectAppointments(rows pgx.Rows) ([]Appointment, error) {
	defer rows.Close()
	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

const appointmentColumns = `id, code, patient_id, physician_id, location_id, date, start_min, duration_min, status, reason, created_by, created_at, updated_at`

const windowColumns = `id, physician_id, location_id, weekday, start_min, end_min, active, created_at, updated_at`

// Patients

func (s *PgStore) GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, name, email, phone, active, created_at, updated_at
		FROM patients
		WHERE id = $1
	`, id)
	return scanPatient(row)
}

// Weekly windows

func (s *PgStore) GetWindowByID(ctx context.Context, id uuid.UUID) (*WeeklyWindow, error) {
	row := s.db.QueryRow(ctx, `
		SELECT `+windowColumns+`
		FROM weekly_windows
		WHERE id = $1
	`, id)
	return scanWindow(row)
}

func (s *PgStore) GetActiveWindows(ctx context.Context, physicianID uuid.UUID, weekday time.Weekday) ([]WeeklyWindow, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+windowColumns+`
		FROM weekly_windows
		WHERE physician_id = $1 AND weekday = $2 AND active
		ORDER BY start_min
	`, physicianID, int16(weekday))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []WeeklyWindow
	for rows.Next() {
		w, err := scanWindow(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *w)
	}
	return result, rows.Err()
}

func (s *PgStore) ListWindows(ctx context.Context, physicianID uuid.UUID, activeOnly bool) ([]WeeklyWindow, error) {
	q := `
		SELECT ` + windowColumns + `
		FROM weekly_windows
		WHERE physician_id = $1
	`
	if activeOnly {
		q += ` AND active`
	}
	q += ` ORDER BY weekday, start_min`

	rows, err := s.db.Query(ctx, q, physicianID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []WeeklyWindow
	for rows.Next() {
		w, err := scanWindow(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *w)
	}
	return result, rows.Err()
}

func (s *PgStore) InsertWindow(ctx context.Context, w WeeklyWindow) (*WeeklyWindow, error) {
	row := s.db.QueryRow(ctx, `
		INSERT INTO weekly_windows (id, physician_id, location_id, weekday, start_min, end_min, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())
		RETURNING `+windowColumns+`
	`, w.ID, w.PhysicianID, w.LocationID, int16(w.Weekday), int16(w.Start), int16(w.End), w.Active)
	return scanWindow(row)
}

func (s *PgStore) UpdateWindow(ctx context.Context, w WeeklyWindow) (*WeeklyWindow, error) {
	row := s.db.QueryRow(ctx, `
		UPDATE weekly_windows
		SET location_id = $2,
		    weekday = $3,
		    start_min = $4,
		    end_min = $5,
		    active = $6,
		    updated_at = now()
		WHERE id = $1
		RETURNING `+windowColumns+`
	`, w.ID, w.LocationID, int16(w.Weekday), int16(w.Start), int16(w.End), w.Active)
	return scanWindow(row)
}

func (s *PgStore) DeactivateWindowsForPhysician(ctx context.Context, physicianID uuid.UUID) (int, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE weekly_windows
		SET active = false, updated_at = now()
		WHERE physician_id = $1 AND active
	`, physicianID)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

// Appointments

func (s *PgStore) GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := s.db.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

func (s *PgStore) GetAppointmentByCode(ctx context.Context, code string) (*Appointment, error) {
	row := s.db.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE code = $1
	`, code)
	return scanAppointment(row)
}

func (s *PgStore) GetAppointments(ctx context.Context, physicianID uuid.UUID, date time.Time, statuses ...AppointmentStatus) ([]Appointment, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE physician_id = $1 AND date = $2 AND status = ANY($3)
		ORDER BY start_min
	`, physicianID, DateOnly(date), statusStrings(statuses))
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

func (s *PgStore) InsertAppointment(ctx context.Context, a Appointment) (*Appointment, error) {
	row := s.db.QueryRow(ctx, `
		INSERT INTO appointments (id, code, patient_id, physician_id, location_id, date, start_min, duration_min, status, reason, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, now(), now())
		RETURNING `+appointmentColumns+`
	`, a.ID, a.Code, a.PatientID, a.PhysicianID, a.LocationID, DateOnly(a.Date),
		int16(a.Start), int16(a.DurationMin), a.Status, a.Reason, a.CreatedBy)

	created, err := scanAppointment(row)
	if err != nil {
		return nil, mapInsertConflict(err)
	}
	return created, nil
}

// mapInsertConflict translates unique violations into store sentinels the
// booking engine can act on.
func mapInsertConflict(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		switch pgErr.ConstraintName {
		case "appointments_code_key":
			return ErrCodeTaken
		case "uq_appointments_active_slot":
			return ErrSlotTaken
		}
		return ErrSlotTaken
	}
	return err
}

func (s *PgStore) UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, from, to AppointmentStatus) (*Appointment, error) {
	row := s.db.QueryRow(ctx, `
		UPDATE appointments
		SET status = $2,
		    updated_at = now()
		WHERE id = $1
		  AND status = $3
		RETURNING `+appointmentColumns+`
	`, id, to, from)
	return scanAppointment(row)
}

// NextCodeSeq scans the highest existing code for the date and returns its
// sequence plus one. The suffix is ordered numerically, not lexically, so
// days past 9999 bookings keep advancing ("…-10000" > "…-9999"). The code
// unique constraint catches concurrent scans; the caller retries on
// ErrCodeTaken.
func (s *PgStore) NextCodeSeq(ctx context.Context, date time.Time) (int, error) {
	prefix := "T-" + DateOnly(date).Format("20060102")

	var last string
	err := s.db.QueryRow(ctx, `
		SELECT code
		FROM appointments
		WHERE code LIKE $1
		ORDER BY split_part(code, '-', 3)::int DESC
		LIMIT 1
	`, prefix+"%").Scan(&last)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 1, nil
		}
		return 0, err
	}

	parts := strings.Split(last, "-")
	seq, err := strconv.Atoi(parts[len(parts)-1])
	if err != nil {
		return 0, fmt.Errorf("malformed appointment code %q: %w", last, err)
	}
	return seq + 1, nil
}

// Queries

func (s *PgStore) ListAppointmentsByPatient(ctx context.Context, patientID uuid.UUID, filter AppointmentFilter) ([]Appointment, error) {
	return s.listBy(ctx, "patient_id", patientID, filter, "date DESC, start_min DESC")
}

func (s *PgStore) ListAppointmentsByPhysician(ctx context.Context, physicianID uuid.UUID, filter AppointmentFilter) ([]Appointment, error) {
	return s.listBy(ctx, "physician_id", physicianID, filter, "date, start_min")
}

func (s *PgStore) listBy(ctx context.Context, column string, id uuid.UUID, filter AppointmentFilter, order string) ([]Appointment, error) {
	q := `SELECT ` + appointmentColumns + ` FROM appointments WHERE ` + column + ` = $1`
	args := []any{id}

	if filter.From != nil {
		args = append(args, DateOnly(*filter.From))
		q += fmt.Sprintf(" AND date >= $%d", len(args))
	}
	if filter.To != nil {
		args = append(args, DateOnly(*filter.To))
		q += fmt.Sprintf(" AND date <= $%d", len(args))
	}
	if len(filter.Statuses) > 0 {
		args = append(args, statusStrings(filter.Statuses))
		q += fmt.Sprintf(" AND status = ANY($%d)", len(args))
	}
	q += " ORDER BY " + order

	rows, err := s.db.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

func (s *PgStore) ListAppointmentsByDate(ctx context.Context, date time.Time) ([]Appointment, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE date = $1
		ORDER BY start_min
	`, DateOnly(date))
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

// Reporting and reminders

func (s *PgStore) CountByStatus(ctx context.Context, from, to time.Time) (map[AppointmentStatus]int, error) {
	rows, err := s.db.Query(ctx, `
		SELECT status, count(*)
		FROM appointments
		WHERE date >= $1 AND date <= $2
		GROUP BY status
	`, DateOnly(from), DateOnly(to))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[AppointmentStatus]int)
	for rows.Next() {
		var status AppointmentStatus
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = int(n)
	}
	return counts, rows.Err()
}

func (s *PgStore) FindOnDate(ctx context.Context, date time.Time, statuses ...AppointmentStatus) ([]Appointment, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE date = $1 AND status = ANY($2)
		ORDER BY start_min
	`, DateOnly(date), statusStrings(statuses))
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

func statusStrings(statuses []AppointmentStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}
