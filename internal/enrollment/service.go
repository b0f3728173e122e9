package enrollment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"membergate/internal/account"
	"membergate/internal/eligibility"
	"membergate/internal/identity"
	"membergate/internal/token"
	dErrors "membergate/pkg/domain-errors"
	"membergate/pkg/mask"
	"membergate/pkg/platform/sentinel"
)

// Service issues enrollment tokens and answers questions about them.
type Service struct {
	codec       *token.Codec
	accounts    account.Store
	eligibility eligibility.Store
	identities  identity.Store
	users       identity.UserStore
	caps        map[string]int
	logger      *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func New(
	codec *token.Codec,
	accounts account.Store,
	eligibilityStore eligibility.Store,
	identities identity.Store,
	users identity.UserStore,
	caps map[string]int,
	opts ...Option,
) (*Service, error) {
	if codec == nil {
		return nil, fmt.Errorf("token codec is required")
	}
	if accounts == nil || eligibilityStore == nil || identities == nil || users == nil {
		return nil, fmt.Errorf("account, eligibility, identity, and user stores are required")
	}

	svc := &Service{
		codec:       codec,
		accounts:    accounts,
		eligibility: eligibilityStore,
		identities:  identities,
		users:       users,
		caps:        caps,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Issue signs an enrollment token for the account. The token type is
// Eligibility exactly when an eligible id is given.
func (s *Service) Issue(ctx context.Context, accountID, eligibleID, leadID string) (string, error) {
	if _, err := s.accounts.FindByID(ctx, accountID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return "", dErrors.New(dErrors.CodeNotFound, "account not found")
		}
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to load account")
	}

	t := Token{Type: TypeOpen, AccountID: accountID, LeadID: leadID}
	if eligibleID != "" {
		t.Type = TypeEligibility
		t.EligibleID = eligibleID
	}

	signed, err := s.codec.Sign(t, token.NoExpiry)
	if err != nil {
		return "", err
	}
	return signed, nil
}

// Parse verifies and shape-checks an enrollment token.
func (s *Service) Parse(tokenString string) (Token, error) {
	t, err := token.Parse[Token](s.codec, tokenString, true)
	if err != nil {
		return Token{}, err
	}
	if err := t.Validate(); err != nil {
		return Token{}, err
	}
	return t, nil
}

// CanEnroll compares the account's current login count against the static
// capacity table. Accounts absent from the table are uncapped.
func (s *Service) CanEnroll(ctx context.Context, accountID string) (bool, error) {
	cap, capped := s.caps[accountID]
	if !capped {
		return true, nil
	}
	count, err := s.users.CountByAccount(ctx, accountID)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count account logins")
	}
	return count < cap, nil
}

// Hint answers the UI pre-fill question for a token. It never fails on a
// reached cap; the caller renders the hint and decides what to show.
func (s *Service) Hint(ctx context.Context, tokenString string) (Hint, error) {
	t, err := s.Parse(tokenString)
	if err != nil {
		return Hint{}, err
	}

	if t.Type == TypeEligibility {
		return s.eligibilityHint(ctx, t)
	}
	return s.openHint(ctx, t)
}

func (s *Service) eligibilityHint(ctx context.Context, t Token) (Hint, error) {
	rec, err := s.eligibility.FindByID(ctx, t.EligibleID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return Hint{}, dErrors.New(dErrors.CodeNotFound, "eligibility record not found")
		}
		return Hint{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load eligibility record")
	}

	hint := Hint{
		AccountID:  t.AccountID,
		Type:       t.Type,
		MaskedName: mask.Name(rec.FirstName) + " " + mask.Name(rec.LastName),
	}

	ident, err := s.identities.FindByEligibleID(ctx, t.EligibleID)
	switch {
	case err == nil:
		if _, err := s.users.FindByIdentity(ctx, ident.ID); err == nil {
			hint.LoginExists = true
		} else if !errors.Is(err, sentinel.ErrNotFound) {
			return Hint{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check existing login")
		}
	case errors.Is(err, sentinel.ErrNotFound):
		// No matched identity yet; the registration will create one.
	default:
		return Hint{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to match identity")
	}

	return hint, nil
}

func (s *Service) openHint(ctx context.Context, t Token) (Hint, error) {
	var (
		acct        account.Account
		canEnroll   bool
		g, groupCtx = errgroup.WithContext(ctx)
	)

	g.Go(func() error {
		var err error
		acct, err = s.accounts.FindByID(groupCtx, t.AccountID)
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "account not found")
		}
		return err
	})
	g.Go(func() error {
		var err error
		canEnroll, err = s.CanEnroll(groupCtx, t.AccountID)
		return err
	})
	if err := g.Wait(); err != nil {
		return Hint{}, err
	}

	return Hint{
		AccountID:           t.AccountID,
		Type:                t.Type,
		RequiresEligibility: acct.RequiresEligibility,
		LimitReached:        !canEnroll,
	}, nil
}
