package schedule

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*PgStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewPgStore(mock), mock
}

var windowRowColumns = []string{"id", "physician_id", "location_id", "weekday", "start_min", "end_min", "active", "created_at", "updated_at"}

var appointmentRowColumns = []string{"id", "code", "patient_id", "physician_id", "location_id", "date", "start_min", "duration_min", "status", "reason", "created_by", "created_at", "updated_at"}

func TestPgStoreGetPatientByID(t *testing.T) {
	store, mock := newMockStore(t)
	id := uuid.New()
	now := time.Now()
	email := "ada@example.com"

	mock.ExpectQuery(`SELECT id, name, email, phone, active, created_at, updated_at\s+FROM patients`).
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "email", "phone", "active", "created_at", "updated_at"}).
			AddRow(id, "Ada Rivas", &email, nil, true, now, now))

	p, err := store.GetPatientByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "Ada Rivas", p.Name)
	require.NotNil(t, p.Email)
	assert.Equal(t, email, *p.Email)
	assert.Nil(t, p.Phone)
	assert.True(t, p.Active)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPgStoreGetPatientByIDNotFound(t *testing.T) {
	store, mock := newMockStore(t)
	id := uuid.New()

	mock.ExpectQuery(`SELECT id, name, email, phone, active, created_at, updated_at\s+FROM patients`).
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "email", "phone", "active", "created_at", "updated_at"}))

	_, err := store.GetPatientByID(context.Background(), id)
	assert.ErrorIs(t, err, ErrPatientNotFound)
}

func TestPgStoreGetActiveWindows(t *testing.T) {
	store, mock := newMockStore(t)
	physicianID := uuid.New()
	now := time.Now()

	mock.ExpectQuery(`(?s)SELECT .+ FROM weekly_windows\s+WHERE physician_id = \$1 AND weekday = \$2 AND active`).
		WithArgs(physicianID, int16(time.Monday)).
		WillReturnRows(pgxmock.NewRows(windowRowColumns).
			AddRow(uuid.New(), physicianID, uuid.New(), int16(1), int16(480), int16(720), true, now, now))

	windows, err := store.GetActiveWindows(context.Background(), physicianID, time.Monday)
	require.NoError(t, err)
	require.Len(t, windows, 1)
	assert.Equal(t, time.Monday, windows[0].Weekday)
	assert.Equal(t, MustTimeOfDay("08:00"), windows[0].Start)
	assert.Equal(t, MustTimeOfDay("12:00"), windows[0].End)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPgStoreGetAppointmentsFiltersByStatus(t *testing.T) {
	store, mock := newMockStore(t)
	physicianID := uuid.New()
	date := testMonday
	now := time.Now()

	mock.ExpectQuery(`(?s)SELECT .+ FROM appointments\s+WHERE physician_id = \$1 AND date = \$2 AND status = ANY\(\$3\)`).
		WithArgs(physicianID, date, []string{"pending", "confirmed", "completed"}).
		WillReturnRows(pgxmock.NewRows(appointmentRowColumns).
			AddRow(uuid.New(), "T-20260907-0001", uuid.New(), physicianID, uuid.New(),
				date, int16(540), int16(30), StatusPending, nil, nil, now, now))

	appts, err := store.GetAppointments(context.Background(), physicianID, date, BlockingStatuses...)
	require.NoError(t, err)
	require.Len(t, appts, 1)
	assert.Equal(t, MustTimeOfDay("09:00"), appts[0].Start)
	assert.Equal(t, 30, appts[0].DurationMin)
	assert.Equal(t, StatusPending, appts[0].Status)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPgStoreInsertAppointmentConflictMapping(t *testing.T) {
	cases := []struct {
		constraint string
		want       error
	}{
		{"appointments_code_key", ErrCodeTaken},
		{"uq_appointments_active_slot", ErrSlotTaken},
		{"some_other_unique", ErrSlotTaken},
	}

	for _, tc := range cases {
		t.Run(tc.constraint, func(t *testing.T) {
			store, mock := newMockStore(t)

			mock.ExpectQuery(`INSERT INTO appointments`).
				WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
					pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
					pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
				WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: tc.constraint})

			_, err := store.InsertAppointment(context.Background(), Appointment{
				ID:          uuid.New(),
				Code:        "T-20260907-0001",
				PatientID:   uuid.New(),
				PhysicianID: uuid.New(),
				LocationID:  uuid.New(),
				Date:        testMonday,
				Start:       MustTimeOfDay("09:00"),
				DurationMin: 30,
				Status:      StatusPending,
			})
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestPgStoreNextCodeSeq(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT code\s+FROM appointments\s+WHERE code LIKE \$1`).
		WithArgs("T-20260907%").
		WillReturnRows(pgxmock.NewRows([]string{"code"}).AddRow("T-20260907-0007"))

	seq, err := store.NextCodeSeq(context.Background(), testMonday)
	require.NoError(t, err)
	assert.Equal(t, 8, seq)
}

func TestPgStoreNextCodeSeqPastFourDigits(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT code\s+FROM appointments\s+WHERE code LIKE \$1\s+ORDER BY split_part\(code, '-', 3\)::int DESC`).
		WithArgs("T-20260907%").
		WillReturnRows(pgxmock.NewRows([]string{"code"}).AddRow("T-20260907-10000"))

	seq, err := store.NextCodeSeq(context.Background(), testMonday)
	require.NoError(t, err)
	assert.Equal(t, 10001, seq)
}

func TestPgStoreNextCodeSeqFirstOfDay(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT code\s+FROM appointments\s+WHERE code LIKE \$1`).
		WithArgs("T-20260907%").
		WillReturnRows(pgxmock.NewRows([]string{"code"}))

	seq, err := store.NextCodeSeq(context.Background(), testMonday)
	require.NoError(t, err)
	assert.Equal(t, 1, seq)
}

func TestPgStoreUpdateAppointmentStatusCASMiss(t *testing.T) {
	store, mock := newMockStore(t)
	id := uuid.New()

	mock.ExpectQuery(`UPDATE appointments\s+SET status = \$2`).
		WithArgs(id, StatusConfirmed, StatusPending).
		WillReturnRows(pgxmock.NewRows(appointmentRowColumns))

	_, err := store.UpdateAppointmentStatus(context.Background(), id, StatusPending, StatusConfirmed)
	assert.ErrorIs(t, err, ErrAppointmentNotFound)
}

func TestPgStoreDeactivateWindowsForPhysician(t *testing.T) {
	store, mock := newMockStore(t)
	physicianID := uuid.New()

	mock.ExpectExec(`UPDATE weekly_windows\s+SET active = false`).
		WithArgs(physicianID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 3))

	count, err := store.DeactivateWindowsForPhysician(context.Background(), physicianID)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestPgStoreCountByStatus(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT status, count\(\*\)\s+FROM appointments`).
		WithArgs(testMonday, testMonday.AddDate(0, 0, 6)).
		WillReturnRows(pgxmock.NewRows([]string{"status", "count"}).
			AddRow(StatusCompleted, int64(12)).
			AddRow(StatusNoShow, int64(3)))

	counts, err := store.CountByStatus(context.Background(), testMonday, testMonday.AddDate(0, 0, 6))
	require.NoError(t, err)
	assert.Equal(t, 12, counts[StatusCompleted])
	assert.Equal(t, 3, counts[StatusNoShow])
}

func TestPgStoreListAppointmentsByPatientBuildsFilter(t *testing.T) {
	store, mock := newMockStore(t)
	patientID := uuid.New()
	from := testMonday
	now := time.Now()

	mock.ExpectQuery(`SELECT .+ FROM appointments WHERE patient_id = \$1 AND date >= \$2 AND status = ANY\(\$3\) ORDER BY date DESC, start_min DESC`).
		WithArgs(patientID, from, []string{"confirmed"}).
		WillReturnRows(pgxmock.NewRows(appointmentRowColumns).
			AddRow(uuid.New(), "T-20260907-0002", patientID, uuid.New(), uuid.New(),
				testMonday, int16(600), int16(30), StatusConfirmed, nil, nil, now, now))

	appts, err := store.ListAppointmentsByPatient(context.Background(), patientID, AppointmentFilter{
		From:     &from,
		Statuses: []AppointmentStatus{StatusConfirmed},
	})
	require.NoError(t, err)
	require.Len(t, appts, 1)
	assert.Equal(t, StatusConfirmed, appts[0].Status)

	require.NoError(t, mock.ExpectationsWereMet())
}
