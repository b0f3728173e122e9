package verification

import (
	"context"
	"sync"

	"membergate/pkg/platform/sentinel"
	"membergate/pkg/requestcontext"
)

// MemoryStore keeps verification records in memory. The id sequence is
// shared between real records and fake ids, matching the production
// sequence semantics.
type MemoryStore struct {
	mu      sync.Mutex
	seq     int64
	records map[int64]Record
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[int64]Record)}
}

func (s *MemoryStore) Create(ctx context.Context, rec Record) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	rec.ID = s.seq
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = requestcontext.Now(ctx)
	}
	s.records[rec.ID] = rec
	return rec, nil
}

func (s *MemoryStore) FindByID(ctx context.Context, id int64) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return Record{}, sentinel.ErrNotFound
	}
	return rec, nil
}

func (s *MemoryStore) FindByIDAndCode(ctx context.Context, id int64, code string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok || rec.Code != code {
		return Record{}, sentinel.ErrNotFound
	}
	return rec, nil
}

func (s *MemoryStore) IncrementAttempts(ctx context.Context, id int64, max int) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return Record{}, sentinel.ErrNotFound
	}
	if rec.Attempts >= max {
		return Record{}, sentinel.ErrInvalidState
	}
	rec.Attempts++
	s.records[id] = rec
	return rec, nil
}

func (s *MemoryStore) NextFakeID(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	return s.seq, nil
}
