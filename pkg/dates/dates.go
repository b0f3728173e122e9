// Package dates holds calendar-day helpers for birthday handling. Birthdays
// are dates, not instants: comparisons are same-calendar-day equality on the
// stored value and never timezone-normalized.
package dates

import "time"

// Layout is the wire format for birthdays.
const Layout = "2006-01-02"

// Parse parses a YYYY-MM-DD birthday into a date-only UTC value.
func Parse(s string) (time.Time, error) {
	return time.Parse(Layout, s)
}

// Format renders a birthday in wire format.
func Format(t time.Time) string {
	return t.Format(Layout)
}

// SameDay reports calendar-day equality of two date values.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// Age returns full years elapsed between the birthday and now.
func Age(birthday, now time.Time) int {
	years := now.Year() - birthday.Year()
	anniversary := time.Date(now.Year(), birthday.Month(), birthday.Day(), 0, 0, 0, 0, time.UTC)
	if anniversary.After(time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)) {
		years--
	}
	return years
}
