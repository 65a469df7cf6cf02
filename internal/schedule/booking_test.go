package schedule

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicore/clinic-scheduling/internal/redislock"
)

func newEngine(f *fixture, sink Sink) *BookingEngine {
	return NewBookingEngine(f.store, redislock.NewMemoryLocker(), sink, nil, nil)
}

func TestBookCreatesPendingAppointment(t *testing.T) {
	f := newFixture(t)
	sink := &recordSink{}
	engine := newEngine(f, sink)

	req := f.bookRequest("09:00", 30)
	req.Reason = "annual checkup"

	appt, err := engine.Book(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, StatusPending, appt.Status)
	assert.Equal(t, "T-20260907-0001", appt.Code)
	assert.Equal(t, testMonday, appt.Date)
	assert.Equal(t, MustTimeOfDay("09:00"), appt.Start)
	assert.Equal(t, MustTimeOfDay("09:30"), appt.End())
	require.NotNil(t, appt.Reason)
	assert.Equal(t, "annual checkup", *appt.Reason)

	events := sink.Events()
	require.Len(t, events, 1)
	assert.Equal(t, EventCreated, events[0].Type)
	assert.Equal(t, appt.ID, events[0].Appointment.ID)
	require.NotNil(t, events[0].Patient)
	assert.Equal(t, f.patientID, events[0].Patient.ID)
}

func TestBookCodesIncrementPerDate(t *testing.T) {
	f := newFixture(t)
	engine := newEngine(f, nil)

	first, err := engine.Book(context.Background(), f.bookRequest("08:00", 30))
	require.NoError(t, err)
	second, err := engine.Book(context.Background(), f.bookRequest("08:30", 30))
	require.NoError(t, err)

	assert.Equal(t, "T-20260907-0001", first.Code)
	assert.Equal(t, "T-20260907-0002", second.Code)

	// A different date starts its own sequence.
	nextWeek := f.bookRequest("08:00", 30)
	nextWeek.Date = testMonday.AddDate(0, 0, 7)
	third, err := engine.Book(context.Background(), nextWeek)
	require.NoError(t, err)
	assert.Equal(t, "T-20260914-0001", third.Code)
}

func TestBookCodesAdvancePastFourDigits(t *testing.T) {
	f := newFixture(t)
	engine := newEngine(f, nil)

	// Suffixes must compare numerically once they outgrow the zero-padded
	// width, otherwise 9999 would stay the scan maximum forever.
	for i, code := range []string{"T-20260907-9999", "T-20260907-10000"} {
		_, err := f.store.InsertAppointment(context.Background(), Appointment{
			ID:          uuid.New(),
			Code:        code,
			PatientID:   f.patientID,
			PhysicianID: f.physicianID,
			LocationID:  f.locationID,
			Date:        testMonday,
			Start:       MustTimeOfDay("08:00").Add(30 * i),
			DurationMin: 30,
			Status:      StatusPending,
		})
		require.NoError(t, err)
	}

	booked, err := engine.Book(context.Background(), f.bookRequest("10:00", 30))
	require.NoError(t, err)
	assert.Equal(t, "T-20260907-10001", booked.Code)
}

func TestBookOutsideAttendingHours(t *testing.T) {
	f := newFixture(t)
	engine := newEngine(f, nil)

	cases := []struct {
		name  string
		start string
		dur   int
	}{
		{"before window", "07:00", 30},
		{"after window", "13:00", 30},
		{"straddles window end", "11:45", 30},
		{"wrong weekday", "09:00", 30},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := f.bookRequest(tc.start, tc.dur)
			if tc.name == "wrong weekday" {
				req.Date = testMonday.AddDate(0, 0, 1)
			}
			_, err := engine.Book(context.Background(), req)

			var slotErr *SlotUnavailableError
			require.ErrorAs(t, err, &slotErr)
			assert.Equal(t, ReasonOutsideHours, slotErr.Reason)
		})
	}
}

func TestBookOverlapRejectedWithConflictIDs(t *testing.T) {
	f := newFixture(t)
	engine := newEngine(f, nil)

	booked, err := engine.Book(context.Background(), f.bookRequest("09:00", 30))
	require.NoError(t, err)

	// Partial overlaps on either side and full containment all collide.
	for _, start := range []string{"09:15", "08:45", "09:00"} {
		_, err := engine.Book(context.Background(), f.bookRequest(start, 30))

		var slotErr *SlotUnavailableError
		require.ErrorAs(t, err, &slotErr, start)
		assert.Equal(t, ReasonOverlap, slotErr.Reason, start)
		assert.Equal(t, []uuid.UUID{booked.ID}, slotErr.Conflicts, start)
	}

	// Exclusive interval ends touch without conflict.
	_, err = engine.Book(context.Background(), f.bookRequest("09:30", 30))
	assert.NoError(t, err)
}

func TestBookAfterCancellationReusesSlot(t *testing.T) {
	f := newFixture(t)
	engine := newEngine(f, nil)
	lifecycle := NewLifecycle(f.store, nil, nil)

	first, err := engine.Book(context.Background(), f.bookRequest("10:00", 30))
	require.NoError(t, err)
	_, err = lifecycle.Cancel(context.Background(), first.ID)
	require.NoError(t, err)

	second, err := engine.Book(context.Background(), f.bookRequest("10:00", 30))
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
	assert.NotEqual(t, first.Code, second.Code)
}

func TestBookPatientValidation(t *testing.T) {
	f := newFixture(t)
	engine := newEngine(f, nil)

	unknown := f.bookRequest("09:00", 30)
	unknown.PatientID = uuid.New()
	_, err := engine.Book(context.Background(), unknown)
	assert.ErrorIs(t, err, ErrPatientNotFound)

	inactiveID := uuid.New()
	f.store.PutPatient(Patient{ID: inactiveID, Name: "Former Patient", Active: false})
	inactive := f.bookRequest("09:00", 30)
	inactive.PatientID = inactiveID
	_, err = engine.Book(context.Background(), inactive)
	assert.ErrorIs(t, err, ErrPatientInactive)
}

func TestBookRejectsBadDurationAndRange(t *testing.T) {
	f := newFixture(t)
	engine := newEngine(f, nil)

	_, err := engine.Book(context.Background(), f.bookRequest("09:00", 0))
	assert.ErrorIs(t, err, ErrInvalidDuration)

	past := f.bookRequest("23:00", 120)
	_, err = engine.Book(context.Background(), past)
	var rangeErr *InvalidRangeError
	assert.ErrorAs(t, err, &rangeErr)
}

func TestBookRejectsDayLengthDuration(t *testing.T) {
	f := newFixture(t)
	engine := newEngine(f, nil)

	// 65536 wraps TimeOfDay's int16 so start+duration would compare equal
	// to start, slipping a zero-width interval past the overlap checks.
	for _, d := range []int{MinutesPerDay, 65536} {
		_, err := engine.Book(context.Background(), f.bookRequest("09:00", d))
		assert.ErrorIs(t, err, ErrInvalidDuration, "duration %d", d)
	}

	appts, err := f.store.GetAppointments(context.Background(), f.physicianID, testMonday, BlockingStatuses...)
	require.NoError(t, err)
	assert.Empty(t, appts)
}

func TestBookNoEventOnFailure(t *testing.T) {
	f := newFixture(t)
	sink := &recordSink{}
	engine := newEngine(f, sink)

	_, err := engine.Book(context.Background(), f.bookRequest("07:00", 30))
	require.Error(t, err)
	assert.Empty(t, sink.Events())
}

func TestBookConcurrentSameSlotExactlyOneWins(t *testing.T) {
	f := newFixture(t)
	engine := newEngine(f, nil)

	const workers = 64

	var wg sync.WaitGroup
	results := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = engine.Book(context.Background(), f.bookRequest("09:00", 30))
		}(i)
	}
	wg.Wait()

	won := 0
	for i, err := range results {
		if err == nil {
			won++
			continue
		}
		var slotErr *SlotUnavailableError
		require.ErrorAs(t, err, &slotErr, "worker %d", i)
	}
	assert.Equal(t, 1, won, "exactly one concurrent booking must win")

	booked, err := f.store.GetAppointments(context.Background(), f.physicianID, testMonday, BlockingStatuses...)
	require.NoError(t, err)
	assert.Len(t, booked, 1)
}

func TestBookConcurrentDistinctSlotsAllWin(t *testing.T) {
	f := newFixture(t)
	engine := newEngine(f, nil)

	starts := []string{"08:00", "08:30", "09:00", "09:30", "10:00", "10:30", "11:00", "11:30"}

	var wg sync.WaitGroup
	results := make([]error, len(starts))
	for i, start := range starts {
		wg.Add(1)
		go func(i int, start string) {
			defer wg.Done()
			_, results[i] = engine.Book(context.Background(), f.bookRequest(start, 30))
		}(i, start)
	}
	wg.Wait()

	for i, err := range results {
		assert.NoError(t, err, "slot %s", starts[i])
	}

	booked, err := f.store.GetAppointments(context.Background(), f.physicianID, testMonday, BlockingStatuses...)
	require.NoError(t, err)
	require.Len(t, booked, len(starts))

	seen := map[string]bool{}
	for _, a := range booked {
		require.False(t, seen[a.Code], "duplicate code %s", a.Code)
		seen[a.Code] = true
	}
}

// lockerFunc adapts a plain error func into a Locker that never runs the
// critical section.
type lockerFunc func() error

func (l lockerFunc) WithScheduleLock(_ context.Context, _ uuid.UUID, _ time.Time, _ func(context.Context) error) error {
	return l()
}

func TestBookLockNotAcquiredMapsToSlotUnavailable(t *testing.T) {
	f := newFixture(t)
	engine := NewBookingEngine(f.store, lockerFunc(func() error { return redislock.ErrNotAcquired }), nil, nil, nil)

	_, err := engine.Book(context.Background(), f.bookRequest("09:00", 30))

	var slotErr *SlotUnavailableError
	require.ErrorAs(t, err, &slotErr)
	assert.Equal(t, ReasonBusy, slotErr.Reason)
}

func TestBookStoreInsertConflictSurfacesAsOverlap(t *testing.T) {
	f := newFixture(t)
	engine := newEngine(f, nil)

	_, err := engine.Book(context.Background(), f.bookRequest("09:00", 30))
	require.NoError(t, err)

	// Bypass the engine to simulate a write that slipped past the lock; the
	// store's slot constraint must reject it.
	_, err = f.store.InsertAppointment(context.Background(), Appointment{
		Code:        "T-20260907-9999",
		PatientID:   f.patientID,
		PhysicianID: f.physicianID,
		LocationID:  f.locationID,
		Date:        testMonday,
		Start:       MustTimeOfDay("09:00"),
		DurationMin: 30,
		Status:      StatusPending,
	})
	assert.ErrorIs(t, err, ErrSlotTaken)
}

func TestBookingOutcomeLabels(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{nil, "booked"},
		{&SlotUnavailableError{Reason: ReasonOverlap}, "slot_unavailable"},
		{ErrPatientNotFound, "patient_rejected"},
		{ErrPatientInactive, "patient_rejected"},
		{errors.New("boom"), "error"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, bookingOutcome(tc.err), fmt.Sprintf("%v", tc.err))
	}
}
