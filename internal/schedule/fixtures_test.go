package schedule

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// testMonday is a known Monday, kept fixed so weekday math in tests is stable.
var testMonday = time.Date(2026, time.September, 7, 0, 0, 0, 0, time.UTC)

type fixture struct {
	store       *MemStore
	patientID   uuid.UUID
	physicianID uuid.UUID
	locationID  uuid.UUID
}

// newFixture seeds a store with one active patient and one physician holding
// a Monday 08:00-12:00 window.
func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		store:       NewMemStore(),
		patientID:   uuid.New(),
		physicianID: uuid.New(),
		locationID:  uuid.New(),
	}

	f.store.PutPatient(Patient{ID: f.patientID, Name: "Ada Rivas", Active: true})

	_, err := f.store.InsertWindow(context.Background(), WeeklyWindow{
		PhysicianID: f.physicianID,
		LocationID:  f.locationID,
		Weekday:     time.Monday,
		Start:       MustTimeOfDay("08:00"),
		End:         MustTimeOfDay("12:00"),
		Active:      true,
	})
	require.NoError(t, err)

	return f
}

func (f *fixture) bookRequest(start string, durationMin int) BookRequest {
	return BookRequest{
		PatientID:   f.patientID,
		PhysicianID: f.physicianID,
		LocationID:  f.locationID,
		Date:        testMonday,
		Start:       MustTimeOfDay(start),
		DurationMin: durationMin,
	}
}

// recordSink captures events for assertions.
type recordSink struct {
	mu     sync.Mutex
	events []Event
}

func (s *recordSink) Notify(_ context.Context, ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

func (s *recordSink) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}

func slotStarts(slots []Slot) []string {
	out := make([]string, len(slots))
	for i, s := range slots {
		out[i] = s.Start.String()
	}
	return out
}
