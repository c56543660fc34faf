package models

import (
	"encoding/json"
)

// BillingCycle is how often a subscriber is billed
type BillingCycle string

const (
	CycleMonthly   BillingCycle = "monthly"
	CycleQuarterly BillingCycle = "quarterly"
	CycleAnnually  BillingCycle = "annually"
)

// Months returns the cycle length in months, 0 for an unknown or empty cycle
func (c BillingCycle) Months() int {
	switch c {
	case CycleMonthly:
		return 1
	case CycleQuarterly:
		return 3
	case CycleAnnually:
		return 12
	default:
		return 0
	}
}

// CommentPayload is the structured payload the orchestrator embeds in a
// subscriber's free-form comment field. The device treats it as opaque text;
// the panel relies on it always being valid JSON.
type CommentPayload struct {
	Plan     string `json:"plan,omitempty"`
	DueDate  string `json:"dueDate,omitempty"`
	DueTime  string `json:"dueTime,omitempty"`
	Type     string `json:"type,omitempty"`
	Customer string `json:"customer,omitempty"`
}

// Encode serializes the payload. The result is always valid JSON.
func (p CommentPayload) Encode() string {
	b, err := json.Marshal(p)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// ParseComment decodes a comment payload, tolerating legacy free-form
// comments by returning an empty payload when the text is not JSON.
func ParseComment(s string) CommentPayload {
	var p CommentPayload
	if err := json.Unmarshal([]byte(s), &p); err != nil {
		return CommentPayload{}
	}
	return p
}

// SubscriberSave is the composite request for the subscriber lifecycle
// workflow. Profile/rate describe the plan; due date or grace days drive the
// scheduled deactivation.
type SubscriberSave struct {
	Name     string `json:"name"`
	Password string `json:"password"`
	Service  string `json:"service"`
	Disabled bool   `json:"disabled"`

	Profile   string `json:"profile"`
	RateLimit string `json:"rate_limit"`

	Plan     string `json:"plan"`
	PlanType string `json:"plan_type"`
	Customer string `json:"customer"`

	DueDate   string `json:"due_date"`
	DueTime   string `json:"due_time"`
	GraceDays int    `json:"grace_days"`
}

// SubscriberPayment is the composite request recording a payment against a
// subscriber and rolling the due date forward by one billing cycle.
type SubscriberPayment struct {
	Name    string       `json:"name"`
	Date    string       `json:"date"`
	Cycle   BillingCycle `json:"cycle"`
	Plan    string       `json:"plan"`
	Profile string       `json:"profile"`
	DueTime string       `json:"due_time"`
}
