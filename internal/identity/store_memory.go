package identity

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"

	"membergate/pkg/dates"
	"membergate/pkg/platform/sentinel"
	"membergate/pkg/requestcontext"
)

// MemoryStore is the in-memory identity graph used in tests and local runs.
type MemoryStore struct {
	mu         sync.RWMutex
	identities map[uuid.UUID]Identity
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{identities: make(map[uuid.UUID]Identity)}
}

// Seed inserts an identity directly, for tests and local fixtures.
func (s *MemoryStore) Seed(ident Identity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.identities[ident.ID] = ident
}

func (s *MemoryStore) FindByID(ctx context.Context, id uuid.UUID) (Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ident, ok := s.identities[id]
	if !ok {
		return Identity{}, sentinel.ErrNotFound
	}
	return ident, nil
}

func (s *MemoryStore) FindByAttributes(ctx context.Context, attrs Attributes) (Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, ident := range s.identities {
		if strings.EqualFold(ident.FirstName, attrs.FirstName) &&
			strings.EqualFold(ident.LastName, attrs.LastName) &&
			ident.ZipCode == attrs.ZipCode &&
			dates.SameDay(ident.Birthday, attrs.Birthday) {
			return ident, nil
		}
	}
	return Identity{}, sentinel.ErrNotFound
}

func (s *MemoryStore) FindByEligibleID(ctx context.Context, eligibleID string) (Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, ident := range s.identities {
		if ident.EligibleID != "" && ident.EligibleID == eligibleID {
			return ident, nil
		}
	}
	return Identity{}, sentinel.ErrNotFound
}

func (s *MemoryStore) Create(ctx context.Context, ident Identity) (Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ident.ID == uuid.Nil {
		ident.ID = uuid.New()
	}
	s.identities[ident.ID] = ident
	return ident, nil
}

// MemoryUserStore keeps logins in memory.
type MemoryUserStore struct {
	mu    sync.RWMutex
	users map[uuid.UUID]User
}

func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{users: make(map[uuid.UUID]User)}
}

func (s *MemoryUserStore) Seed(user User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user.ID] = user
}

func (s *MemoryUserStore) FindByEmail(ctx context.Context, email string) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	want := NormalizeEmail(email)
	if want == "" {
		return User{}, sentinel.ErrNotFound
	}
	for _, u := range s.users {
		if NormalizeEmail(u.Email) == want {
			return u, nil
		}
	}
	return User{}, sentinel.ErrNotFound
}

func (s *MemoryUserStore) FindByPhone(ctx context.Context, phone string) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	want := NormalizePhone(phone)
	if want == "" {
		return User{}, sentinel.ErrNotFound
	}
	for _, u := range s.users {
		if NormalizePhone(u.Phone) == want {
			return u, nil
		}
	}
	return User{}, sentinel.ErrNotFound
}

func (s *MemoryUserStore) FindByIdentity(ctx context.Context, identityID uuid.UUID) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.IdentityID == identityID {
			return u, nil
		}
	}
	return User{}, sentinel.ErrNotFound
}

func (s *MemoryUserStore) CountByAccount(ctx context.Context, accountID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, u := range s.users {
		if u.AccountID == accountID {
			count++
		}
	}
	return count, nil
}

func (s *MemoryUserStore) Create(ctx context.Context, user User) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = requestcontext.Now(ctx)
	}
	for _, existing := range s.users {
		if existing.IdentityID == user.IdentityID {
			return User{}, sentinel.ErrConflict
		}
		if user.Email != "" && NormalizeEmail(existing.Email) == NormalizeEmail(user.Email) {
			return User{}, sentinel.ErrConflict
		}
		if user.Phone != "" && existing.Phone != "" && NormalizePhone(existing.Phone) == NormalizePhone(user.Phone) {
			return User{}, sentinel.ErrConflict
		}
	}
	s.users[user.ID] = user
	return user, nil
}

// MemoryPatientStore keeps patient records in memory.
type MemoryPatientStore struct {
	mu       sync.RWMutex
	patients map[uuid.UUID]Patient
}

func NewMemoryPatientStore() *MemoryPatientStore {
	return &MemoryPatientStore{patients: make(map[uuid.UUID]Patient)}
}

func (s *MemoryPatientStore) Seed(p Patient) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.patients[p.ID] = p
}

func (s *MemoryPatientStore) FindByIdentity(ctx context.Context, identityID uuid.UUID) (Patient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.patients {
		if p.IdentityID == identityID {
			return p, nil
		}
	}
	return Patient{}, sentinel.ErrNotFound
}

// MemoryLeadStore keeps call-center leads in memory.
type MemoryLeadStore struct {
	mu    sync.RWMutex
	leads map[string]Lead
}

func NewMemoryLeadStore() *MemoryLeadStore {
	return &MemoryLeadStore{leads: make(map[string]Lead)}
}

func (s *MemoryLeadStore) Seed(l Lead) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.leads[l.ID] = l
}

func (s *MemoryLeadStore) FindByID(ctx context.Context, leadID string) (Lead, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.leads[leadID]
	if !ok {
		return Lead{}, sentinel.ErrNotFound
	}
	return l, nil
}
