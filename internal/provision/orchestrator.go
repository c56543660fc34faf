package provision

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/router-panel/router-panel-pro/internal/device"
	"github.com/router-panel/router-panel-pro/internal/models"
	"github.com/router-panel/router-panel-pro/internal/upstream"
)

// Device paths the subscriber lifecycle touches
const (
	pathProfile   = "/ppp/profile"
	pathSecret    = "/ppp/secret"
	pathActive    = "/ppp/active"
	pathScheduler = "/system/scheduler"
	pathQueue     = "/queue/simple"
)

// schedulerPrefix derives the deterministic one-shot timer name for a
// subscriber. At most one timer exists per subscriber.
const schedulerPrefix = "deactivate-"

// Orchestrator runs composite provisioning workflows against one device at
// a time. Every step is an idempotent upsert, so a retried request
// converges instead of duplicating device state; there is no rollback.
type Orchestrator struct {
	store upstream.Store // optional, best-effort metadata
}

// NewOrchestrator creates a provisioning orchestrator. store may be nil
// when customer metadata recording is not wired.
func NewOrchestrator(store upstream.Store) *Orchestrator {
	return &Orchestrator{store: store}
}

// SaveResult reports what the subscriber workflow did, for logging and the
// API response
type SaveResult struct {
	SecretID       string `json:"secret_id"`
	SecretCreated  bool   `json:"secret_created"`
	ProfileCreated bool   `json:"profile_created"`
	SchedulerSet   bool   `json:"scheduler_set"`
	QueueSet       bool   `json:"queue_set"`
	QueueAddress   string `json:"queue_address,omitempty"`
}

// SaveSubscriber runs the subscriber lifecycle workflow: ensure profile,
// upsert credential, upsert scheduled deactivation, upsert rate-limit
// queue, then best-effort customer metadata. Steps run in order; a failure
// leaves earlier steps applied and reports which step broke.
func (o *Orchestrator) SaveSubscriber(ctx context.Context, c device.Client, authorization string, in *models.SubscriberSave) (*SaveResult, error) {
	if in.Name == "" {
		return nil, fmt.Errorf("subscriber name is required")
	}

	// Reject a malformed due date up front: accepting it would write a
	// comment payload claiming a date no timer will ever enforce.
	due, scheduleSet, err := deactivationTime(in)
	if err != nil {
		return nil, fmt.Errorf("invalid due date: %w", err)
	}

	result := &SaveResult{}

	// Step 1: ensure the policy profile exists
	profileRecord, created, err := o.ensureProfile(ctx, c, in.Profile, in.RateLimit)
	if err != nil {
		return nil, fmt.Errorf("ensure profile: %w", err)
	}
	result.ProfileCreated = created

	// Step 2: resolve the subscriber identifier; absence means "new"
	existing, err := device.FindOne(ctx, c, pathSecret, map[string]string{"name": in.Name})
	if err != nil {
		return nil, fmt.Errorf("find subscriber: %w", err)
	}

	// Step 3: upsert the credential
	comment := models.CommentPayload{
		Plan:     in.Plan,
		DueDate:  in.DueDate,
		DueTime:  in.DueTime,
		Type:     in.PlanType,
		Customer: in.Customer,
	}
	params := device.Record{
		"name":     in.Name,
		"comment":  comment.Encode(),
		"disabled": in.Disabled,
	}
	if in.Password != "" {
		params["password"] = in.Password
	}
	if in.Profile != "" {
		params["profile"] = in.Profile
	}
	if in.Service != "" {
		params["service"] = in.Service
	}

	if existing != nil {
		id := device.RecordID(existing)
		if _, err := c.Set(ctx, pathSecret, id, params); err != nil {
			return nil, fmt.Errorf("update subscriber: %w", err)
		}
		result.SecretID = id
	} else {
		record, err := c.Add(ctx, pathSecret, params)
		if err != nil {
			return nil, fmt.Errorf("create subscriber: %w", err)
		}
		result.SecretID = device.RecordID(record)
		result.SecretCreated = true
	}

	// Step 4: upsert the scheduled deactivation. With neither a due date
	// nor a grace period any existing timer is left untouched.
	if scheduleSet {
		if err := o.upsertDeactivation(ctx, c, in.Name, due, normalizeTime(in.DueTime)); err != nil {
			return nil, fmt.Errorf("schedule deactivation: %w", err)
		}
		result.SchedulerSet = true
	}

	// Step 5: upsert the rate-limit queue, skipped when either the rate
	// or an active address is unavailable
	rate := in.RateLimit
	if rate == "" {
		rate = device.RecordString(profileRecord, "rate-limit")
	}
	address, queueSet, err := o.upsertQueue(ctx, c, in.Name, rate)
	if err != nil {
		// best-effort: queue maintenance never fails the save
		log.Warn().Err(err).Str("subscriber", in.Name).Msg("Rate-limit queue upsert failed")
	}
	result.QueueSet = queueSet
	result.QueueAddress = address

	// Step 6: best-effort customer metadata in the panel datastore
	if o.store != nil && in.Customer != "" {
		meta := map[string]any{
			"plan":     in.Plan,
			"due_date": in.DueDate,
			"summary":  in.Customer,
		}
		if err := o.store.UpsertCustomer(ctx, authorization, in.Name, meta); err != nil {
			log.Warn().Err(err).Str("subscriber", in.Name).Msg("Customer metadata save failed")
		}
	}

	log.Info().
		Str("subscriber", in.Name).
		Bool("created", result.SecretCreated).
		Bool("scheduler", result.SchedulerSet).
		Bool("queue", result.QueueSet).
		Msg("Subscriber saved")

	return result, nil
}

// ensureProfile looks up the policy profile and creates it only if missing
func (o *Orchestrator) ensureProfile(ctx context.Context, c device.Client, name, rateLimit string) (device.Record, bool, error) {
	if name == "" {
		return nil, false, nil
	}

	record, err := device.FindOne(ctx, c, pathProfile, map[string]string{"name": name})
	if err != nil {
		return nil, false, err
	}
	if record != nil {
		return record, false, nil
	}

	params := device.Record{"name": name}
	if rateLimit != "" {
		params["rate-limit"] = rateLimit
	}
	if _, err := c.Add(ctx, pathProfile, params); err != nil {
		return nil, false, err
	}

	created := device.Record{"name": name}
	if rateLimit != "" {
		created["rate-limit"] = rateLimit
	}
	return created, true, nil
}

// deactivationTime computes the timer target from an explicit due date or a
// grace period. ok=false means no deactivation change was requested; a due
// date that does not parse is an error, not a skip.
func deactivationTime(in *models.SubscriberSave) (time.Time, bool, error) {
	if in.DueDate != "" {
		due, err := ParsePanelDate(in.DueDate)
		if err != nil {
			return time.Time{}, false, err
		}
		return due, true, nil
	}
	if in.GraceDays > 0 {
		return time.Now().AddDate(0, 0, in.GraceDays), true, nil
	}
	return time.Time{}, false, nil
}

// upsertDeactivation finds or creates the subscriber's one-shot timer and
// points it at the target time
func (o *Orchestrator) upsertDeactivation(ctx context.Context, c device.Client, name string, due time.Time, dueTime string) error {
	timerName := schedulerPrefix + name
	params := device.Record{
		"name":       timerName,
		"start-date": formatDeviceDate(due),
		"start-time": dueTime,
		"interval":   "0",
		"on-event":   deactivationScript(name),
	}

	existing, err := device.FindOne(ctx, c, pathScheduler, map[string]string{"name": timerName})
	if err != nil {
		return err
	}
	if existing != nil {
		_, err = c.Set(ctx, pathScheduler, device.RecordID(existing), params)
		return err
	}
	_, err = c.Add(ctx, pathScheduler, params)
	return err
}

// deactivationScript is the script the timer runs: disable the credential
// and kick any live session so the policy change takes effect immediately
func deactivationScript(name string) string {
	return fmt.Sprintf("/ppp secret set [find name=%q] disabled=yes; /ppp active remove [find name=%q]", name, name)
}

// UpsertDeactivation is the standalone deactivation upsert used by the
// dedicated scheduler endpoint
func (o *Orchestrator) UpsertDeactivation(ctx context.Context, c device.Client, name, dueDate, dueTime string) error {
	due, err := ParsePanelDate(dueDate)
	if err != nil {
		return err
	}
	return o.upsertDeactivation(ctx, c, name, due, normalizeTime(dueTime))
}

// UpsertQueue is the standalone rate-limit queue upsert. An empty rate is
// resolved from the subscriber's profile.
func (o *Orchestrator) UpsertQueue(ctx context.Context, c device.Client, name, rate string) (string, bool, error) {
	if rate == "" {
		secret, err := device.FindOne(ctx, c, pathSecret, map[string]string{"name": name})
		if err != nil {
			return "", false, err
		}
		if profileName := device.RecordString(secret, "profile"); profileName != "" {
			profile, err := device.FindOne(ctx, c, pathProfile, map[string]string{"name": profileName})
			if err != nil {
				return "", false, err
			}
			rate = device.RecordString(profile, "rate-limit")
		}
	}
	return o.upsertQueue(ctx, c, name, rate)
}

// RemoveSubscriber deletes a credential and the timer and queue derived
// from it. Missing entities are skipped, so removal is idempotent too.
func (o *Orchestrator) RemoveSubscriber(ctx context.Context, c device.Client, name string) error {
	if name == "" {
		return fmt.Errorf("subscriber name is required")
	}

	if err := o.removeDeactivation(ctx, c, name); err != nil {
		return fmt.Errorf("remove deactivation: %w", err)
	}

	queue, err := device.FindOne(ctx, c, pathQueue, map[string]string{"name": name})
	if err != nil {
		return fmt.Errorf("find queue: %w", err)
	}
	if queue != nil {
		if err := c.Remove(ctx, pathQueue, device.RecordID(queue)); err != nil {
			return fmt.Errorf("remove queue: %w", err)
		}
	}

	secret, err := device.FindOne(ctx, c, pathSecret, map[string]string{"name": name})
	if err != nil {
		return fmt.Errorf("find subscriber: %w", err)
	}
	if secret != nil {
		if err := c.Remove(ctx, pathSecret, device.RecordID(secret)); err != nil {
			return fmt.Errorf("remove subscriber: %w", err)
		}
	}

	log.Info().Str("subscriber", name).Msg("Subscriber removed")
	return nil
}

// upsertQueue binds the subscriber's rate limit to its currently active
// address. Skips cleanly when the rate or the address is unavailable.
func (o *Orchestrator) upsertQueue(ctx context.Context, c device.Client, name, rate string) (string, bool, error) {
	if rate == "" {
		return "", false, nil
	}

	session, err := device.FindOne(ctx, c, pathActive, map[string]string{"name": name})
	if err != nil {
		return "", false, err
	}
	address := device.RecordString(session, "address")
	if address == "" {
		return "", false, nil
	}

	target := address + "/32"
	params := device.Record{
		"name":      name,
		"target":    target,
		"max-limit": rate,
	}

	existing, err := device.FindOne(ctx, c, pathQueue, map[string]string{"name": name})
	if err != nil {
		return address, false, err
	}
	if existing != nil {
		// rebinds in place when the active address moved
		if _, err := c.Set(ctx, pathQueue, device.RecordID(existing), params); err != nil {
			return address, false, err
		}
		return address, true, nil
	}
	if _, err := c.Add(ctx, pathQueue, params); err != nil {
		return address, false, err
	}
	return address, true, nil
}
