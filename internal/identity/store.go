package identity

import (
	"context"

	"github.com/google/uuid"
)

// Store is the read surface over identities plus the single write the
// pipeline needs (creating an identity at finalize). Implementations return
// sentinel.ErrNotFound for misses.
type Store interface {
	FindByID(ctx context.Context, id uuid.UUID) (Identity, error)
	FindByAttributes(ctx context.Context, attrs Attributes) (Identity, error)
	FindByEligibleID(ctx context.Context, eligibleID string) (Identity, error)
	Create(ctx context.Context, ident Identity) (Identity, error)
}

// UserStore resolves existing logins and records new ones.
type UserStore interface {
	FindByEmail(ctx context.Context, email string) (User, error)
	FindByPhone(ctx context.Context, phone string) (User, error)
	FindByIdentity(ctx context.Context, identityID uuid.UUID) (User, error)
	CountByAccount(ctx context.Context, accountID string) (int, error)
	Create(ctx context.Context, user User) (User, error)
}

// PatientStore resolves the clinical record owned by an identity, if any.
type PatientStore interface {
	FindByIdentity(ctx context.Context, identityID uuid.UUID) (Patient, error)
}

// LeadStore resolves call-center leads referenced by enrollment tokens.
type LeadStore interface {
	FindByID(ctx context.Context, leadID string) (Lead, error)
}
