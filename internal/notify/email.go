package notify

import (
	"context"

	gomail "gopkg.in/gomail.v2"

	"github.com/clinicore/clinic-scheduling/internal/schedule"
)

// SMTPConfig holds the mail relay settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// EmailChannel sends plain-text appointment mails through SMTP.
type EmailChannel struct {
	cfg    SMTPConfig
	dialer *gomail.Dialer
}

func NewEmailChannel(cfg SMTPConfig) *EmailChannel {
	return &EmailChannel{
		cfg:    cfg,
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
	}
}

func (c *EmailChannel) Kind() string { return "email" }

func (c *EmailChannel) Send(_ context.Context, ev schedule.Event) error {
	if ev.Patient == nil || ev.Patient.Email == nil || *ev.Patient.Email == "" {
		// Nothing to deliver to; not an error.
		return nil
	}

	m := gomail.NewMessage()
	m.SetHeader("From", c.cfg.From)
	m.SetHeader("To", *ev.Patient.Email)
	m.SetHeader("Subject", subjectFor(ev))
	m.SetBody("text/plain", bodyFor(ev))

	return c.dialer.DialAndSend(m)
}
