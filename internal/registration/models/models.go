// Package models holds the data shapes threaded through the registration
// pipeline: the record being verified, the challenge vocabulary, and the
// continuation payload carried between requests.
package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"membergate/internal/enrollment"
)

// ChallengeType names one verification step.
type ChallengeType string

const (
	ChallengeEnrollment  ChallengeType = "enrollment"
	ChallengeEmail       ChallengeType = "email"
	ChallengePhone       ChallengeType = "phone"
	ChallengePatient     ChallengeType = "patient"
	ChallengeEligibility ChallengeType = "eligibility"
)

// ChallengeOrder is the fixed sequence the pipeline walks. The set is
// closed; dispatch is by type over exactly these five.
var ChallengeOrder = []ChallengeType{
	ChallengeEnrollment,
	ChallengeEmail,
	ChallengePhone,
	ChallengePatient,
	ChallengeEligibility,
}

// NewUserRecord is the would-be account, constructed once per attempt and
// threaded through the pipeline accumulating verified facts. It is never
// persisted until every challenge passes.
type NewUserRecord struct {
	IdentityID uuid.UUID  `json:"identity_id,omitempty"`
	FirstName  string     `json:"first_name,omitempty"`
	LastName   string     `json:"last_name,omitempty"`
	ZipCode    string     `json:"zip_code,omitempty"`
	Birthday   *time.Time `json:"birthday,omitempty"`

	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`

	AccountID  string `json:"account_id,omitempty"`
	EligibleID string `json:"eligible_id,omitempty"`
	LeadID     string `json:"lead_id,omitempty"`

	Enrollment *enrollment.Token `json:"enrollment,omitempty"`

	// PasswordHash is the bcrypt hash of the optional signup password; the
	// plaintext never rides a token.
	PasswordHash string `json:"password_hash,omitempty"`

	// EligibilityVerified records that the enrollment challenge already
	// proved the eligibility binding, so the eligibility challenge skips.
	EligibilityVerified bool `json:"eligibility_verified,omitempty"`
}

// HasIdentity reports whether the record is bound to a known identity.
func (r NewUserRecord) HasIdentity() bool {
	return r.IdentityID != uuid.Nil
}

// ActiveChallenge is the challenge currently awaiting a response. Data is
// the challenger's private state (for example a verification id); it rides
// inside the signed token and is never shown to the caller.
type ActiveChallenge struct {
	Type ChallengeType   `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Continuation is the signed registration-progress payload. A nil Challenge
// means the record is fully verified.
type Continuation struct {
	Info      NewUserRecord    `json:"info"`
	Pending   []ChallengeType  `json:"pending,omitempty"`
	Challenge *ActiveChallenge `json:"challenge,omitempty"`
}

// Verified reports whether every challenge has passed.
func (c Continuation) Verified() bool {
	return c.Challenge == nil
}

// ChallengeResponse is the caller's answer to the active challenge. Each
// challenger parses only the fields it expects.
type ChallengeResponse struct {
	Code     string `json:"code,omitempty"`
	MemberID string `json:"member_id,omitempty"`
	Birthday string `json:"birthday,omitempty"`
}
