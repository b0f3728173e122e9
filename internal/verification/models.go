// Package verification owns one-time-code records: create, deliver, check.
// Records are consumed exactly once by a matching (id, code) check and expire
// per type; nothing here survives past its TTL on purpose.
package verification

import (
	"time"

	"membergate/internal/notify"
)

// Type classifies a verification record and decides its TTL.
type Type string

const (
	TypeRegistration  Type = "registration"
	TypePasswordReset Type = "password-reset"
	TypePatient       Type = "patient"
	TypeReferral      Type = "referral"
)

// Valid reports whether the type is one of the supported values.
func (t Type) Valid() bool {
	switch t {
	case TypeRegistration, TypePasswordReset, TypePatient, TypeReferral:
		return true
	}
	return false
}

// TTL returns how long a record of this type stays checkable.
func (t Type) TTL() time.Duration {
	if t == TypePasswordReset {
		return 24 * time.Hour
	}
	return 60 * time.Minute
}

// Record is one verification row. Code is a six-digit numeric string; the
// channel targets are fixed at creation so delivery can never be redirected.
type Record struct {
	ID        int64
	Type      Type
	Subject   string
	Code      string
	Email     string
	SMS       string
	Call      string
	Attempts  int
	CreatedAt time.Time
}

// Target returns the delivery target for a channel, or "" when the record
// has none for it.
func (r Record) Target(channel notify.Channel) string {
	switch channel {
	case notify.ChannelEmail:
		return r.Email
	case notify.ChannelSMS:
		return r.SMS
	case notify.ChannelCall:
		return r.Call
	}
	return ""
}

// Channels lists the channels this record can deliver on.
func (r Record) Channels() []notify.Channel {
	var out []notify.Channel
	if r.Email != "" {
		out = append(out, notify.ChannelEmail)
	}
	if r.SMS != "" {
		out = append(out, notify.ChannelSMS)
	}
	if r.Call != "" {
		out = append(out, notify.ChannelCall)
	}
	return out
}

// ExpiresAt is the instant the record stops being checkable.
func (r Record) ExpiresAt() time.Time {
	return r.CreatedAt.Add(r.Type.TTL())
}
