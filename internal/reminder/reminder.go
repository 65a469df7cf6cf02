// Package reminder sends day-before appointment reminders. A periodic scan
// enqueues one asynq task per upcoming appointment; the worker delivers the
// reminder through the notification sink. Task IDs are derived from the
// appointment, so re-scanning the same day never duplicates a reminder.
package reminder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/clinicore/clinic-scheduling/internal/schedule"
	"github.com/clinicore/clinic-scheduling/pkg/logging"
)

const TaskReminderSend = "reminder:send"

type sendPayload struct {
	AppointmentID uuid.UUID `json:"appointment_id"`
}

// Enqueuer scans for appointments that need a reminder and queues one task
// per appointment.
type Enqueuer struct {
	store    schedule.Store
	client   *asynq.Client
	leadDays int
	logger   *logging.Logger
}

func NewEnqueuer(store schedule.Store, client *asynq.Client, leadDays int, logger *logging.Logger) *Enqueuer {
	if leadDays < 0 {
		leadDays = 1
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Enqueuer{store: store, client: client, leadDays: leadDays, logger: logger}
}

// EnqueueDue queues reminders for every pending or confirmed appointment
// happening leadDays after now's date. Returns the number of tasks enqueued;
// already-queued duplicates are skipped, not counted.
func (e *Enqueuer) EnqueueDue(ctx context.Context, now time.Time) (int, error) {
	target := schedule.DateOnly(now).AddDate(0, 0, e.leadDays)

	due, err := e.store.FindOnDate(ctx, target, schedule.StatusPending, schedule.StatusConfirmed)
	if err != nil {
		return 0, fmt.Errorf("find due appointments: %w", err)
	}

	queued := 0
	for _, appt := range due {
		payload, err := json.Marshal(sendPayload{AppointmentID: appt.ID})
		if err != nil {
			return queued, fmt.Errorf("marshal reminder payload: %w", err)
		}

		task := asynq.NewTask(TaskReminderSend, payload)
		_, err = e.client.EnqueueContext(ctx, task,
			asynq.TaskID(fmt.Sprintf("reminder:%s:%s", appt.ID, target.Format("20060102"))),
			asynq.MaxRetry(3),
			asynq.Timeout(30*time.Second),
		)
		if err != nil {
			if errors.Is(err, asynq.ErrTaskIDConflict) {
				continue
			}
			e.logger.Error("enqueue reminder failed", "appointment_id", appt.ID, "error", err)
			continue
		}
		queued++
	}

	e.logger.Info("reminder scan complete", "date", target.Format("2006-01-02"), "due", len(due), "queued", queued)
	return queued, nil
}

// Handler processes reminder:send tasks.
type Handler struct {
	store  schedule.Store
	sink   schedule.Sink
	logger *logging.Logger
}

func NewHandler(store schedule.Store, sink schedule.Sink, logger *logging.Logger) *Handler {
	if sink == nil {
		sink = schedule.NopSink{}
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{store: store, sink: sink, logger: logger}
}

// HandleReminderSend re-loads the appointment and only reminds if it is
// still pending or confirmed; a cancellation between scan and delivery
// silently drops the task.
func (h *Handler) HandleReminderSend(ctx context.Context, t *asynq.Task) error {
	var payload sendPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal reminder payload: %w", asynq.SkipRetry)
	}

	appt, err := h.store.GetAppointmentByID(ctx, payload.AppointmentID)
	if err != nil {
		if errors.Is(err, schedule.ErrAppointmentNotFound) {
			return nil
		}
		return fmt.Errorf("load appointment: %w", err)
	}
	if appt.Status != schedule.StatusPending && appt.Status != schedule.StatusConfirmed {
		return nil
	}

	var patient *schedule.Patient
	if p, err := h.store.GetPatientByID(ctx, appt.PatientID); err == nil {
		patient = p
	}

	h.sink.Notify(ctx, schedule.Event{
		Type:        schedule.EventReminder,
		Appointment: *appt,
		Patient:     patient,
		OccurredAt:  time.Now(),
	})
	return nil
}

// Mux returns the asynq mux serving this package's task types.
func Mux(h *Handler) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskReminderSend, h.HandleReminderSend)
	return mux
}
