// Package account models the employer/plan accounts that enrollments run
// under. Adapted from the tenant concept: an account gates whether signups
// must match the eligibility extract.
package account

import (
	"context"
	"sync"

	"membergate/pkg/platform/sentinel"
)

// Account is an employer or plan account.
type Account struct {
	ID   string
	Name string

	// RequiresEligibility forces Open-enrollment signups on this account to
	// present a member id + birthday that match the eligibility extract.
	RequiresEligibility bool
}

// Store resolves accounts. Implementations return sentinel.ErrNotFound for
// misses.
type Store interface {
	FindByID(ctx context.Context, accountID string) (Account, error)
}

// MemoryStore holds accounts in memory.
type MemoryStore struct {
	mu       sync.RWMutex
	accounts map[string]Account
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{accounts: make(map[string]Account)}
}

func (s *MemoryStore) Seed(a Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[a.ID] = a
}

func (s *MemoryStore) FindByID(ctx context.Context, accountID string) (Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts[accountID]
	if !ok {
		return Account{}, sentinel.ErrNotFound
	}
	return a, nil
}
