package provision

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/router-panel/router-panel-pro/internal/device"
	"github.com/router-panel/router-panel-pro/internal/models"
)

// PaymentResult reports the outcome of a payment workflow
type PaymentResult struct {
	SecretID   string `json:"secret_id"`
	NextDue    string `json:"next_due,omitempty"`
	Reenabled  bool   `json:"reenabled"`
	TimerReset bool   `json:"timer_reset"`
}

// ApplyPayment rolls a subscriber's due date forward by one billing cycle,
// re-enables the credential if it was restricted, rewrites the embedded
// comment payload and replaces the deactivation timer. An empty cycle means
// the obligation is cleared outright: the timer is removed and the due date
// dropped from the comment.
func (o *Orchestrator) ApplyPayment(ctx context.Context, c device.Client, in *models.SubscriberPayment) (*PaymentResult, error) {
	if in.Name == "" {
		return nil, fmt.Errorf("subscriber name is required")
	}

	secret, err := device.FindOne(ctx, c, pathSecret, map[string]string{"name": in.Name})
	if err != nil {
		return nil, fmt.Errorf("find subscriber: %w", err)
	}
	if secret == nil {
		return nil, fmt.Errorf("subscriber %q does not exist", in.Name)
	}
	secretID := device.RecordID(secret)

	paid := time.Now()
	if in.Date != "" {
		if paid, err = ParsePanelDate(in.Date); err != nil {
			return nil, err
		}
	}

	comment := models.ParseComment(device.RecordString(secret, "comment"))
	if in.Plan != "" {
		comment.Plan = in.Plan
	}

	result := &PaymentResult{SecretID: secretID}

	months := in.Cycle.Months()
	if months > 0 {
		nextDue := AddBillingCycle(paid, months)
		comment.DueDate = FormatPanelDate(nextDue)
		// a payment without an explicit time keeps the stored one
		dueTime := in.DueTime
		if dueTime == "" {
			dueTime = comment.DueTime
		}
		comment.DueTime = normalizeTime(dueTime)
		result.NextDue = comment.DueDate

		// one-shot timers do not reschedule reliably in place, so the
		// entity is replaced
		if err := o.replaceDeactivation(ctx, c, in.Name, nextDue, comment.DueTime); err != nil {
			return nil, fmt.Errorf("reschedule deactivation: %w", err)
		}
		result.TimerReset = true
	} else {
		comment.DueDate = ""
		comment.DueTime = ""
		if err := o.removeDeactivation(ctx, c, in.Name); err != nil {
			return nil, fmt.Errorf("remove deactivation: %w", err)
		}
	}

	params := device.Record{
		"disabled": false,
		"comment":  comment.Encode(),
	}
	if in.Profile != "" {
		params["profile"] = in.Profile
	}
	if _, err := c.Set(ctx, pathSecret, secretID, params); err != nil {
		return nil, fmt.Errorf("update subscriber: %w", err)
	}
	result.Reenabled = true

	log.Info().
		Str("subscriber", in.Name).
		Str("next_due", result.NextDue).
		Msg("Payment applied")

	return result, nil
}

// replaceDeactivation deletes any existing timer and creates a fresh one
// for the new due date
func (o *Orchestrator) replaceDeactivation(ctx context.Context, c device.Client, name string, due time.Time, dueTime string) error {
	if err := o.removeDeactivation(ctx, c, name); err != nil {
		return err
	}

	params := device.Record{
		"name":       schedulerPrefix + name,
		"start-date": formatDeviceDate(due),
		"start-time": dueTime,
		"interval":   "0",
		"on-event":   deactivationScript(name),
	}
	_, err := c.Add(ctx, pathScheduler, params)
	return err
}

// removeDeactivation deletes the subscriber's timer if present
func (o *Orchestrator) removeDeactivation(ctx context.Context, c device.Client, name string) error {
	existing, err := device.FindOne(ctx, c, pathScheduler, map[string]string{"name": schedulerPrefix + name})
	if err != nil {
		return err
	}
	if existing == nil {
		return nil
	}
	return c.Remove(ctx, pathScheduler, device.RecordID(existing))
}
