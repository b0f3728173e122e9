package eligibility

import (
	"context"
	"sync"
	"time"

	"membergate/pkg/dates"
	"membergate/pkg/platform/sentinel"
)

// MemoryStore holds eligibility rows in memory for tests and local runs.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]Record
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]Record)}
}

func (s *MemoryStore) Seed(rec Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.EligibleID] = rec
}

func (s *MemoryStore) FindByID(ctx context.Context, eligibleID string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[eligibleID]
	if !ok {
		return Record{}, sentinel.ErrNotFound
	}
	return rec, nil
}

func (s *MemoryStore) FindByMember(ctx context.Context, accountID, memberID string, birthday time.Time) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	want := NormalizeMemberID(memberID)
	if want == "" {
		return Record{}, sentinel.ErrNotFound
	}
	for _, rec := range s.records {
		if rec.AccountID == accountID &&
			NormalizeMemberID(rec.MemberID) == want &&
			dates.SameDay(rec.Birthday, birthday) {
			return rec, nil
		}
	}
	return Record{}, sentinel.ErrNotFound
}
