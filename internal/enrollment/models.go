// Package enrollment issues and interprets enrollment tokens: signed,
// non-expiring invitations to register under an account, optionally pinned
// to a specific row of the eligibility extract. The tokens ride in static
// marketing links, which is why they never expire.
package enrollment

import (
	dErrors "membergate/pkg/domain-errors"
)

// TokenType distinguishes the two enrollment shapes.
type TokenType string

const (
	// TypeOpen invites anyone to enroll under the account.
	TypeOpen TokenType = "open"

	// TypeEligibility invites one specific eligible person.
	TypeEligibility TokenType = "eligibility"
)

// Token is the signed enrollment payload.
type Token struct {
	Type       TokenType `json:"type"`
	AccountID  string    `json:"account_id"`
	EligibleID string    `json:"eligible_id,omitempty"`
	LeadID     string    `json:"lead_id,omitempty"`
}

// Validate enforces the shape invariants of a parsed token.
func (t Token) Validate() error {
	switch t.Type {
	case TypeOpen:
		if t.EligibleID != "" {
			return dErrors.New(dErrors.CodeInvalidArgument, "open enrollment token cannot carry an eligible id")
		}
	case TypeEligibility:
		if t.EligibleID == "" {
			return dErrors.New(dErrors.CodeInvalidArgument, "eligibility enrollment token requires an eligible id")
		}
	default:
		return dErrors.New(dErrors.CodeInvalidArgument, "unknown enrollment token type")
	}
	if t.AccountID == "" {
		return dErrors.New(dErrors.CodeInvalidArgument, "enrollment token requires an account id")
	}
	return nil
}

// Hint is the UI pre-fill answer for an enrollment token. For eligibility
// tokens it confirms who the invitation is for without exposing the name;
// for open tokens it tells the UI which fields the signup form must collect.
type Hint struct {
	AccountID           string    `json:"account_id"`
	Type                TokenType `json:"type"`
	MaskedName          string    `json:"masked_name,omitempty"`
	LoginExists         bool      `json:"login_exists,omitempty"`
	RequiresEligibility bool      `json:"requires_eligibility,omitempty"`
	LimitReached        bool      `json:"limit_reached,omitempty"`
}
