package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicore/clinic-scheduling/internal/schedule"
)

func TestSMSChannelPostsToGateway(t *testing.T) {
	var got smsPayload
	var auth string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	ch := NewSMSChannel(srv.URL, "test-key")

	phone := "+34600111222"
	ev := testEvent(schedule.EventReminder)
	ev.Patient.Phone = &phone

	require.NoError(t, ch.Send(context.Background(), ev))
	assert.Equal(t, "Bearer test-key", auth)
	assert.Equal(t, phone, got.To)
	assert.Contains(t, got.Body, "Appointment reminder: T-20260907-0001")
	assert.Contains(t, got.Body, "2026-09-07 09:00")
}

func TestSMSChannelGatewayErrorSurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	ch := NewSMSChannel(srv.URL, "test-key")

	phone := "+34600111222"
	ev := testEvent(schedule.EventCreated)
	ev.Patient.Phone = &phone

	err := ch.Send(context.Background(), ev)
	assert.ErrorContains(t, err, "502")
}

func TestSMSChannelSkipsPatientsWithoutPhone(t *testing.T) {
	ch := NewSMSChannel("http://unreachable.invalid", "test-key")

	ev := testEvent(schedule.EventCreated)
	ev.Patient.Phone = nil
	assert.NoError(t, ch.Send(context.Background(), ev))

	ev.Patient = nil
	assert.NoError(t, ch.Send(context.Background(), ev))
}
