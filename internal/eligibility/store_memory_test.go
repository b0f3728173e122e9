package eligibility

import (
	"context"
	"errors"
	"testing"
	"time"

	"membergate/pkg/platform/sentinel"
)

func TestNormalizeMemberID(t *testing.T) {
	cases := map[string]string{
		"abc-123":  "ABC123",
		" ABC 123": "ABC123",
		"abc123":   "ABC123",
	}
	for in, want := range cases {
		if got := NormalizeMemberID(in); got != want {
			t.Errorf("NormalizeMemberID(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFindByMember(t *testing.T) {
	store := NewMemoryStore()
	store.Seed(Record{
		EligibleID: "elig-1",
		AccountID:  "acme",
		MemberID:   "ABC123",
		Birthday:   time.Date(1990, time.January, 1, 0, 0, 0, 0, time.UTC),
	})
	ctx := context.Background()
	birthday := time.Date(1990, time.January, 1, 0, 0, 0, 0, time.UTC)

	rec, err := store.FindByMember(ctx, "acme", "abc-123", birthday)
	if err != nil {
		t.Fatalf("expected normalized member id to match: %v", err)
	}
	if rec.EligibleID != "elig-1" {
		t.Fatalf("matched wrong record")
	}

	// A wrong birthday and an unknown member id are the same miss.
	_, errBirthday := store.FindByMember(ctx, "acme", "ABC123", birthday.AddDate(0, 0, 1))
	_, errMember := store.FindByMember(ctx, "acme", "XYZ999", birthday)
	if !errors.Is(errBirthday, sentinel.ErrNotFound) || !errors.Is(errMember, sentinel.ErrNotFound) {
		t.Fatalf("expected identical not-found for both miss kinds, got %v / %v", errBirthday, errMember)
	}

	if _, err := store.FindByMember(ctx, "globex", "ABC123", birthday); !errors.Is(err, sentinel.ErrNotFound) {
		t.Fatalf("expected account scoping, got %v", err)
	}
}
