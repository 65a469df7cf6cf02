package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/clinicore/clinic-scheduling/internal/schedule"
)

// SMSChannel posts short messages to an HTTP SMS gateway.
type SMSChannel struct {
	gatewayURL string
	apiKey     string
	client     *http.Client
}

func NewSMSChannel(gatewayURL, apiKey string) *SMSChannel {
	return &SMSChannel{
		gatewayURL: gatewayURL,
		apiKey:     apiKey,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *SMSChannel) Kind() string { return "sms" }

type smsPayload struct {
	To   string `json:"to"`
	Body string `json:"body"`
}

func (c *SMSChannel) Send(ctx context.Context, ev schedule.Event) error {
	if ev.Patient == nil || ev.Patient.Phone == nil || *ev.Patient.Phone == "" {
		return nil
	}

	a := ev.Appointment
	body, err := json.Marshal(smsPayload{
		To:   *ev.Patient.Phone,
		Body: fmt.Sprintf("%s - %s %s", subjectFor(ev), a.Date.Format("2006-01-02"), a.Start),
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.gatewayURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("sms gateway returned %d", resp.StatusCode)
	}
	return nil
}
