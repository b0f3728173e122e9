package dates

import (
	"testing"
	"time"
)

func TestSameDayIgnoresClockComponents(t *testing.T) {
	a := time.Date(1990, time.January, 1, 0, 0, 0, 0, time.UTC)
	b := time.Date(1990, time.January, 1, 23, 59, 59, 0, time.UTC)
	if !SameDay(a, b) {
		t.Fatalf("expected same calendar day")
	}
	c := time.Date(1990, time.January, 2, 0, 0, 0, 0, time.UTC)
	if SameDay(a, c) {
		t.Fatalf("expected different calendar days")
	}
}

func TestAge(t *testing.T) {
	birthday := time.Date(2010, time.June, 15, 0, 0, 0, 0, time.UTC)

	beforeAnniversary := time.Date(2023, time.June, 14, 12, 0, 0, 0, time.UTC)
	if got := Age(birthday, beforeAnniversary); got != 12 {
		t.Fatalf("expected 12 before anniversary, got %d", got)
	}
	onAnniversary := time.Date(2023, time.June, 15, 0, 0, 0, 0, time.UTC)
	if got := Age(birthday, onAnniversary); got != 13 {
		t.Fatalf("expected 13 on anniversary, got %d", got)
	}
}

func TestParseRejectsTimestamps(t *testing.T) {
	if _, err := Parse("1990-01-01T00:00:00Z"); err == nil {
		t.Fatalf("expected datetime input to be rejected")
	}
	got, err := Parse("1990-01-01")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Location() != time.UTC {
		t.Fatalf("expected UTC date value")
	}
}
