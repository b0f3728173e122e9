// Package mask shapes contact values into hints that identify an existing
// login without revealing it. AlreadyExists payloads and challenge hints use
// these; the literal value never leaves the service.
package mask

import "strings"

// Email masks the local part to its first and last character with stars
// between. "jdoe@example.com" becomes "j**e@example.com".
func Email(email string) string {
	at := strings.IndexByte(email, '@')
	if at <= 0 {
		return strings.Repeat("*", len(email))
	}
	local, domain := email[:at], email[at:]
	if len(local) <= 2 {
		return strings.Repeat("*", len(local)) + domain
	}
	return local[:1] + strings.Repeat("*", len(local)-2) + local[len(local)-1:] + domain
}

// Phone masks all but the last four digits. Formatting characters are
// dropped so the hint is stable regardless of how the number was entered.
func Phone(phone string) string {
	digits := digitsOnly(phone)
	if len(digits) <= 4 {
		return strings.Repeat("*", len(digits))
	}
	return strings.Repeat("*", len(digits)-4) + digits[len(digits)-4:]
}

// Name masks a person's name to its initial. "Ramirez" becomes "R."
// so eligibility hints can confirm a match without exposing the full name.
func Name(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	return name[:1] + "."
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
