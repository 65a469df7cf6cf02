package notify

import (
	"context"

	"github.com/clinicore/clinic-scheduling/internal/schedule"
	"github.com/clinicore/clinic-scheduling/pkg/logging"
)

// LogChannel records events in the structured log. Always configured in dev
// environments where no SMTP or SMS gateway exists.
type LogChannel struct {
	logger *logging.Logger
}

func NewLogChannel(logger *logging.Logger) *LogChannel {
	if logger == nil {
		logger = logging.Default()
	}
	return &LogChannel{logger: logger}
}

func (c *LogChannel) Kind() string { return "log" }

func (c *LogChannel) Send(_ context.Context, ev schedule.Event) error {
	c.logger.Info("lifecycle event",
		"event", string(ev.Type),
		"appointment_id", ev.Appointment.ID,
		"code", ev.Appointment.Code,
		"status", string(ev.Appointment.Status),
		"date", ev.Appointment.Date.Format("2006-01-02"),
		"start", ev.Appointment.Start.String(),
	)
	return nil
}
