// Package identity exposes read-mostly lookups into the identity graph: the
// people we know about, the logins that reference them, their clinical
// patient records, and call-center leads. The registration pipeline treats
// all of it as a system of record; only Finalize writes.
package identity

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Identity is a person in the graph, matched or creatable from demographic
// attributes. EligibleID links to the insurance-eligibility extract when the
// person arrived through one.
type Identity struct {
	ID         uuid.UUID
	FirstName  string
	LastName   string
	ZipCode    string
	Birthday   time.Time
	EligibleID string
}

// User is a login bound to an identity. AccountID names the employer or plan
// account the login enrolled under.
type User struct {
	ID           uuid.UUID
	IdentityID   uuid.UUID
	AccountID    string
	Email        string
	Phone        string
	PasswordHash string
	CreatedAt    time.Time
}

// Patient is a clinical record owned by an identity, carrying the contact
// points the clinic has on file.
type Patient struct {
	ID         uuid.UUID
	IdentityID uuid.UUID
	Email      string
	Phone      string
}

// Lead is a call-center record; its phone numbers are considered known-good
// for delegate-entered registrations.
type Lead struct {
	ID     string
	Phones []string
}

// Attributes is the demographic tuple that resolves an identity when no id
// is known.
type Attributes struct {
	FirstName string
	LastName  string
	ZipCode   string
	Birthday  time.Time
}

// NormalizePhone strips formatting so phone comparisons are stable.
func NormalizePhone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NormalizeEmail lowercases and trims an email for comparison.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// HasLeadPhone reports whether the lead has the given number on file.
func (l Lead) HasLeadPhone(phone string) bool {
	want := NormalizePhone(phone)
	if want == "" {
		return false
	}
	for _, p := range l.Phones {
		if NormalizePhone(p) == want {
			return true
		}
	}
	return false
}
