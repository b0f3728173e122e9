// Package audit captures pipeline decisions as structured events. Emission
// is fire-and-forget through an inbox channel; a background worker drains
// the inbox into a sink so the request path never waits on the broker.
package audit

import (
	"context"
	"time"
)

// Event is one pipeline decision. Subject is a masked contact or an
// account-scoped id, never a raw email or phone.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
	Action    string    `json:"action"`
	Subject   string    `json:"subject,omitempty"`
	AccountID string    `json:"account_id,omitempty"`
	Challenge string    `json:"challenge,omitempty"`
	Outcome   string    `json:"outcome,omitempty"`
	Delegate  bool      `json:"delegate,omitempty"`
}

// Actions emitted by the registration pipeline and enrollment service.
const (
	ActionRegistrationStarted   = "registration.started"
	ActionChallengeIssued       = "registration.challenge_issued"
	ActionChallengeVerified     = "registration.challenge_verified"
	ActionChallengeFailed       = "registration.challenge_failed"
	ActionRegistrationVerified  = "registration.verified"
	ActionRegistrationCompleted = "registration.completed"
	ActionEnrollmentHintServed  = "enrollment.hint_served"
)

// Store is the event sink behind the worker.
type Store interface {
	Append(ctx context.Context, event Event) error
}
