package schedule

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicore/clinic-scheduling/internal/redislock"
)

func TestAvailableSlotsExpandsWindow(t *testing.T) {
	f := newFixture(t)
	planner := NewPlanner(f.store, nil)

	slots, err := planner.AvailableSlots(context.Background(), f.physicianID, testMonday, 30)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"08:00", "08:30", "09:00", "09:30", "10:00", "10:30", "11:00", "11:30",
	}, slotStarts(slots))
	for _, s := range slots {
		assert.Equal(t, testMonday, s.Date)
		assert.Equal(t, 30, s.DurationMin)
	}
}

func TestAvailableSlotsDropCandidatesPastWindowEnd(t *testing.T) {
	f := newFixture(t)
	planner := NewPlanner(f.store, nil)

	// 50-minute slots in a 4-hour window: the fifth candidate would end at
	// 12:10 and is dropped.
	slots, err := planner.AvailableSlots(context.Background(), f.physicianID, testMonday, 50)
	require.NoError(t, err)
	assert.Equal(t, []string{"08:00", "08:50", "09:40", "10:30"}, slotStarts(slots))
}

func TestAvailableSlotsExcludesBookedTimes(t *testing.T) {
	f := newFixture(t)
	planner := NewPlanner(f.store, nil)
	engine := NewBookingEngine(f.store, redislock.NewMemoryLocker(), nil, nil, nil)

	_, err := engine.Book(context.Background(), f.bookRequest("09:00", 30))
	require.NoError(t, err)

	slots, err := planner.AvailableSlots(context.Background(), f.physicianID, testMonday, 30)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"08:00", "08:30", "09:30", "10:00", "10:30", "11:00", "11:30",
	}, slotStarts(slots))
}

func TestAvailableSlotsCancelledAppointmentFreesSlot(t *testing.T) {
	f := newFixture(t)
	planner := NewPlanner(f.store, nil)
	engine := NewBookingEngine(f.store, redislock.NewMemoryLocker(), nil, nil, nil)
	lifecycle := NewLifecycle(f.store, nil, nil)

	appt, err := engine.Book(context.Background(), f.bookRequest("09:00", 30))
	require.NoError(t, err)
	_, err = lifecycle.Cancel(context.Background(), appt.ID)
	require.NoError(t, err)

	slots, err := planner.AvailableSlots(context.Background(), f.physicianID, testMonday, 30)
	require.NoError(t, err)
	assert.Len(t, slots, 8)
}

func TestAvailableSlotsNoWindows(t *testing.T) {
	f := newFixture(t)
	planner := NewPlanner(f.store, nil)

	// Tuesday has no window at all.
	slots, err := planner.AvailableSlots(context.Background(), f.physicianID, testMonday.AddDate(0, 0, 1), 30)
	require.NoError(t, err)
	assert.Nil(t, slots)
}

func TestAvailableSlotsMultipleWindows(t *testing.T) {
	f := newFixture(t)
	planner := NewPlanner(f.store, nil)

	_, err := f.store.InsertWindow(context.Background(), WeeklyWindow{
		PhysicianID: f.physicianID,
		LocationID:  f.locationID,
		Weekday:     time.Monday,
		Start:       MustTimeOfDay("14:00"),
		End:         MustTimeOfDay("15:00"),
		Active:      true,
	})
	require.NoError(t, err)

	slots, err := planner.AvailableSlots(context.Background(), f.physicianID, testMonday, 60)
	require.NoError(t, err)
	assert.Equal(t, []string{"08:00", "09:00", "10:00", "11:00", "14:00"}, slotStarts(slots))
}

func TestAvailableSlotsInvalidDuration(t *testing.T) {
	f := newFixture(t)
	planner := NewPlanner(f.store, nil)

	_, err := planner.AvailableSlots(context.Background(), f.physicianID, testMonday, 0)
	assert.ErrorIs(t, err, ErrInvalidDuration)

	_, err = planner.AvailableSlots(context.Background(), f.physicianID, testMonday, -15)
	assert.ErrorIs(t, err, ErrInvalidDuration)
}

func TestAvailableSlotsRejectsDayLengthDuration(t *testing.T) {
	f := newFixture(t)
	planner := NewPlanner(f.store, nil)

	// Durations of a day or more must be rejected up front: 65536 in
	// particular wraps TimeOfDay's int16 to zero, which would stall the
	// candidate loop forever.
	for _, d := range []int{MinutesPerDay, 65536, 65536 + 30} {
		_, err := planner.AvailableSlots(context.Background(), f.physicianID, testMonday, d)
		assert.ErrorIs(t, err, ErrInvalidDuration, "duration %d", d)
	}
}
