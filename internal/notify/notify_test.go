package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/clinicore/clinic-scheduling/internal/schedule"
)

type fakeChannel struct {
	kind string
	err  error
	sent []schedule.Event
}

func (c *fakeChannel) Kind() string { return c.kind }

func (c *fakeChannel) Send(_ context.Context, ev schedule.Event) error {
	if c.err != nil {
		return c.err
	}
	c.sent = append(c.sent, ev)
	return nil
}

func testEvent(t schedule.EventType) schedule.Event {
	name := "Ada Rivas"
	return schedule.Event{
		Type: t,
		Appointment: schedule.Appointment{
			ID:          uuid.New(),
			Code:        "T-20260907-0001",
			Date:        time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC),
			Start:       schedule.MustTimeOfDay("09:00"),
			DurationMin: 30,
			Status:      schedule.StatusPending,
		},
		Patient:    &schedule.Patient{ID: uuid.New(), Name: name},
		OccurredAt: time.Now(),
	}
}

func TestDispatcherFansOutToAllChannels(t *testing.T) {
	first := &fakeChannel{kind: "email"}
	second := &fakeChannel{kind: "sms"}
	d := NewDispatcher(nil, first, second)

	ev := testEvent(schedule.EventCreated)
	d.Notify(context.Background(), ev)

	assert.Len(t, first.sent, 1)
	assert.Len(t, second.sent, 1)
	assert.Equal(t, ev.Appointment.ID, first.sent[0].Appointment.ID)
}

func TestDispatcherChannelFailureDoesNotStopOthers(t *testing.T) {
	failing := &fakeChannel{kind: "email", err: errors.New("smtp down")}
	healthy := &fakeChannel{kind: "log"}
	d := NewDispatcher(nil, failing, healthy)

	// Must not panic or propagate; the healthy channel still delivers.
	d.Notify(context.Background(), testEvent(schedule.EventConfirmed))
	assert.Len(t, healthy.sent, 1)
}

func TestDispatcherNoChannels(t *testing.T) {
	d := NewDispatcher(nil)
	d.Notify(context.Background(), testEvent(schedule.EventCancelled))
}

func TestSubjectForCoversEveryEventType(t *testing.T) {
	cases := map[schedule.EventType]string{
		schedule.EventCreated:   "Appointment requested: T-20260907-0001",
		schedule.EventConfirmed: "Appointment confirmed: T-20260907-0001",
		schedule.EventCancelled: "Appointment cancelled: T-20260907-0001",
		schedule.EventCompleted: "Appointment completed: T-20260907-0001",
		schedule.EventNoShow:    "Missed appointment: T-20260907-0001",
		schedule.EventReminder:  "Appointment reminder: T-20260907-0001",
	}
	for eventType, want := range cases {
		assert.Equal(t, want, subjectFor(testEvent(eventType)))
	}
}

func TestBodyForUsesPatientName(t *testing.T) {
	ev := testEvent(schedule.EventReminder)
	body := bodyFor(ev)
	assert.Contains(t, body, "Dear Ada Rivas")
	assert.Contains(t, body, "T-20260907-0001")
	assert.Contains(t, body, "Monday, September 7 2026")
	assert.Contains(t, body, "09:00")

	ev.Patient = nil
	assert.Contains(t, bodyFor(ev), "Dear patient")
}

func TestEmailChannelSkipsPatientsWithoutAddress(t *testing.T) {
	ch := NewEmailChannel(SMTPConfig{Host: "localhost", Port: 25, From: "clinic@example.com"})

	ev := testEvent(schedule.EventCreated)
	ev.Patient.Email = nil
	assert.NoError(t, ch.Send(context.Background(), ev))

	empty := ""
	ev.Patient.Email = &empty
	assert.NoError(t, ch.Send(context.Background(), ev))

	ev.Patient = nil
	assert.NoError(t, ch.Send(context.Background(), ev))
}
