// Package eligibility exposes read-only lookups into the insurance
// eligibility extract. The extract is populated by an external ingestion
// pipeline; this package only answers "who does this member id belong to".
package eligibility

import (
	"strings"
	"time"
)

// Record is one row of the eligibility extract.
type Record struct {
	EligibleID string
	AccountID  string
	MemberID   string
	FirstName  string
	LastName   string
	Birthday   time.Time
	Email      string
	Phone      string
}

// NormalizeMemberID canonicalizes a member id for comparison: case and
// separator differences between what the carrier prints on a card and what
// the extract carries must not fail a match.
func NormalizeMemberID(memberID string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(memberID) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}
