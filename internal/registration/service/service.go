// Package service orchestrates the registration pipeline: resolving a
// NewUserRecord from raw input or a continuation token, walking the fixed
// challenge order, and finalizing verified records into real accounts. The
// pipeline is a pure reduction over (info, remaining challenges); every bit
// of cross-request state rides the signed token.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"membergate/internal/account"
	"membergate/internal/audit"
	"membergate/internal/eligibility"
	"membergate/internal/enrollment"
	"membergate/internal/identity"
	"membergate/internal/notify"
	"membergate/internal/registration/challenge"
	"membergate/internal/registration/continuation"
	"membergate/internal/registration/metrics"
	"membergate/internal/registration/models"
	"membergate/internal/verification"
	"membergate/pkg/dates"
	dErrors "membergate/pkg/domain-errors"
	"membergate/pkg/mask"
	"membergate/pkg/platform/sentinel"
	"membergate/pkg/requestcontext"
)

const minAgeYears = 13

// Input is the verify entrypoint's payload: either raw registration fields
// or a continuation token plus a challenge response.
type Input struct {
	Token    string          `json:"token,omitempty"`
	Response json.RawMessage `json:"challenge_response,omitempty"`

	EnrollmentToken string `json:"enrollment_token,omitempty"`
	Email           string `json:"email,omitempty"`
	Phone           string `json:"phone,omitempty"`
	FirstName       string `json:"first_name,omitempty"`
	LastName        string `json:"last_name,omitempty"`
	ZipCode         string `json:"zip_code,omitempty"`
	Birthday        string `json:"birthday,omitempty"`
	MemberID        string `json:"member_id,omitempty"`
	Password        string `json:"password,omitempty"`
	LeadID          string `json:"lead_id,omitempty"`
}

// ChallengeView is the caller-visible slice of an active challenge.
type ChallengeView struct {
	Type models.ChallengeType `json:"type"`
	Hint any                  `json:"hint,omitempty"`
}

// Result is one pipeline step's outcome.
type Result struct {
	Token     string         `json:"token"`
	Verified  bool           `json:"verified"`
	Challenge *ChallengeView `json:"challenge,omitempty"`
}

// Service drives the challenge pipeline.
type Service struct {
	continuations *continuation.Service
	enrollments   *enrollment.Service
	accounts      account.Store
	identities    identity.Store
	users         identity.UserStore
	eligibility   eligibility.Store
	verifications *verification.Service
	challengers   map[models.ChallengeType]challenge.Challenger
	logger        *slog.Logger
	metrics       *metrics.Metrics
	audit         *audit.Publisher
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithAudit(p *audit.Publisher) Option {
	return func(s *Service) {
		s.audit = p
	}
}

func New(
	continuations *continuation.Service,
	enrollments *enrollment.Service,
	accounts account.Store,
	identities identity.Store,
	users identity.UserStore,
	eligibilityStore eligibility.Store,
	verifications *verification.Service,
	challengers []challenge.Challenger,
	opts ...Option,
) (*Service, error) {
	if continuations == nil || enrollments == nil || verifications == nil {
		return nil, errors.New("continuation, enrollment, and verification services are required")
	}
	if accounts == nil || identities == nil || users == nil || eligibilityStore == nil {
		return nil, errors.New("account, identity, user, and eligibility stores are required")
	}

	byType := make(map[models.ChallengeType]challenge.Challenger, len(challengers))
	for _, c := range challengers {
		byType[c.Type()] = c
	}
	for _, t := range models.ChallengeOrder {
		if _, ok := byType[t]; !ok {
			return nil, errors.New("missing challenger for type " + string(t))
		}
	}

	svc := &Service{
		continuations: continuations,
		enrollments:   enrollments,
		accounts:      accounts,
		identities:    identities,
		users:         users,
		eligibility:   eligibilityStore,
		verifications: verifications,
		challengers:   byType,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Verify is the single pipeline entrypoint. Without a token it resolves a
// fresh record and issues the first applicable challenge; with a token it
// verifies the active challenge's response and issues the next one.
func (s *Service) Verify(ctx context.Context, input Input) (Result, error) {
	if input.Token != "" {
		return s.continueVerification(ctx, input)
	}
	return s.startVerification(ctx, input)
}

func (s *Service) startVerification(ctx context.Context, input Input) (Result, error) {
	info, pending, err := s.resolve(ctx, input)
	if err != nil {
		return Result{}, err
	}

	path := "self_service"
	if info.Enrollment != nil {
		path = "enrollment"
	}
	s.metrics.RecordStarted(path)
	s.audit.Emit(ctx, audit.Event{
		Action:    audit.ActionRegistrationStarted,
		AccountID: info.AccountID,
		Subject:   mask.Email(info.Email),
		Delegate:  requestcontext.Delegate(ctx),
	})

	return s.issueNext(ctx, info, pending)
}

func (s *Service) continueVerification(ctx context.Context, input Input) (Result, error) {
	cont, err := s.continuations.Parse(input.Token, true)
	if err != nil {
		return Result{}, err
	}

	// A verified token stays verified. No new challenge, same info.
	if cont.Verified() {
		return Result{Token: input.Token, Verified: true}, nil
	}

	active := cont.Challenge
	challenger, ok := s.challengers[active.Type]
	if !ok {
		return Result{}, dErrors.Newf(dErrors.CodeInternal, "no challenger for type %q", active.Type)
	}

	if len(input.Response) == 0 {
		return Result{}, dErrors.New(dErrors.CodeInvalidArgument, "a challenge response is required")
	}
	resp, err := challenger.ParseResponse(input.Response)
	if err != nil {
		return Result{}, err
	}

	if err := challenger.Verify(ctx, &cont.Info, active.Data, resp); err != nil {
		s.metrics.RecordChallenge(string(active.Type), "failed")
		s.audit.Emit(ctx, audit.Event{
			Action:    audit.ActionChallengeFailed,
			AccountID: cont.Info.AccountID,
			Challenge: string(active.Type),
			Outcome:   string(dErrors.CodeOf(err)),
		})
		return Result{}, err
	}

	s.metrics.RecordChallenge(string(active.Type), "verified")
	s.audit.Emit(ctx, audit.Event{
		Action:    audit.ActionChallengeVerified,
		AccountID: cont.Info.AccountID,
		Challenge: string(active.Type),
	})

	return s.issueNext(ctx, cont.Info, cont.Pending)
}

// issueNext walks the pending queue until a challenger wants a round trip.
// Skips are invisible to the caller. The queue is at most five entries, so
// a plain loop does.
func (s *Service) issueNext(ctx context.Context, info models.NewUserRecord, pending []models.ChallengeType) (Result, error) {
	delegate := requestcontext.Delegate(ctx)

	for len(pending) > 0 {
		next := pending[0]
		pending = pending[1:]

		challenger, ok := s.challengers[next]
		if !ok {
			return Result{}, dErrors.Newf(dErrors.CodeInternal, "no challenger for type %q", next)
		}

		issued, err := challenger.Issue(ctx, &info, delegate)
		if err != nil {
			return Result{}, err
		}
		if issued == nil {
			s.metrics.RecordChallenge(string(next), "skipped")
			continue
		}

		token, err := s.continuations.Pending(info, pending, &models.ActiveChallenge{
			Type: next,
			Data: issued.Data,
		})
		if err != nil {
			return Result{}, err
		}

		s.metrics.RecordChallenge(string(next), "issued")
		s.audit.Emit(ctx, audit.Event{
			Action:    audit.ActionChallengeIssued,
			AccountID: info.AccountID,
			Challenge: string(next),
			Delegate:  delegate,
		})
		return Result{
			Token:     token,
			Challenge: &ChallengeView{Type: next, Hint: issued.Hint},
		}, nil
	}

	token, err := s.continuations.Verified(info)
	if err != nil {
		return Result{}, err
	}

	s.audit.Emit(ctx, audit.Event{
		Action:    audit.ActionRegistrationVerified,
		AccountID: info.AccountID,
	})
	return Result{Token: token, Verified: true}, nil
}

// resolve builds the NewUserRecord for a fresh attempt and decides which
// challenges it runs.
func (s *Service) resolve(ctx context.Context, input Input) (models.NewUserRecord, []models.ChallengeType, error) {
	info := models.NewUserRecord{
		Email:  identity.NormalizeEmail(input.Email),
		Phone:  strings.TrimSpace(input.Phone),
		LeadID: strings.TrimSpace(input.LeadID),
	}
	if info.Email == "" && info.Phone == "" {
		return info, nil, dErrors.New(dErrors.CodeInvalidState, "an email or phone is required")
	}

	if input.EnrollmentToken != "" {
		if err := s.resolveEnrollment(ctx, &info, input); err != nil {
			return info, nil, err
		}
	} else {
		if err := s.resolveAttributes(ctx, &info, input); err != nil {
			return info, nil, err
		}
	}

	if info.Birthday != nil {
		if dates.Age(*info.Birthday, requestcontext.Now(ctx)) < minAgeYears {
			return info, nil, dErrors.New(dErrors.CodeInvalidAge, "you must be at least 13 years old to register")
		}
	}

	if input.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
		if err != nil {
			return info, nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash password")
		}
		info.PasswordHash = string(hash)
	}

	// A caller who already has a login only re-proves their contact
	// channels; everything else is known.
	existing, err := s.existingUser(ctx, info)
	if err != nil {
		return info, nil, err
	}
	if existing {
		return info, []models.ChallengeType{models.ChallengeEmail, models.ChallengePhone}, nil
	}

	if info.HasIdentity() {
		if err := s.requireUnlinked(ctx, info.IdentityID); err != nil {
			return info, nil, err
		}
	}

	return info, append([]models.ChallengeType(nil), models.ChallengeOrder...), nil
}

func (s *Service) resolveEnrollment(ctx context.Context, info *models.NewUserRecord, input Input) error {
	t, err := s.enrollments.Parse(input.EnrollmentToken)
	if err != nil {
		return err
	}
	info.Enrollment = &t
	info.AccountID = t.AccountID
	if t.LeadID != "" {
		info.LeadID = t.LeadID
	}

	ok, err := s.enrollments.CanEnroll(ctx, t.AccountID)
	if err != nil {
		return err
	}
	if !ok {
		return dErrors.New(dErrors.CodeInvalidState, "this account has reached its enrollment limit")
	}

	switch t.Type {
	case enrollment.TypeEligibility:
		info.EligibleID = t.EligibleID
		return s.bindIdentityByEligibleID(ctx, info, t.EligibleID)

	case enrollment.TypeOpen:
		acct, err := s.accounts.FindByID(ctx, t.AccountID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "account not found")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load account")
		}
		if acct.RequiresEligibility {
			return s.matchEligibility(ctx, info, input)
		}
		return s.resolveAttributes(ctx, info, input)

	default:
		return dErrors.Newf(dErrors.CodeInvalidArgument, "unsupported enrollment type %q", t.Type)
	}
}

// matchEligibility handles Open enrollment on a gated account: member id
// plus birthday, matched against the extract. No match is one user-facing
// error; which field was wrong is deliberately not disclosed.
func (s *Service) matchEligibility(ctx context.Context, info *models.NewUserRecord, input Input) error {
	if input.MemberID == "" || input.Birthday == "" {
		return dErrors.New(dErrors.CodeInvalidState, "a member id and birthday are required for this account")
	}
	birthday, err := dates.Parse(input.Birthday)
	if err != nil {
		return dErrors.New(dErrors.CodeInvalidArgument, "birthday must be YYYY-MM-DD")
	}

	rec, err := s.eligibility.FindByMember(ctx, info.AccountID, input.MemberID, birthday)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeInvalidArgument, "we could not match your information; check your member id and birthday")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to match eligibility")
	}

	info.EligibleID = rec.EligibleID
	info.Birthday = &birthday
	info.EligibilityVerified = true
	return s.bindIdentityByEligibleID(ctx, info, rec.EligibleID)
}

func (s *Service) bindIdentityByEligibleID(ctx context.Context, info *models.NewUserRecord, eligibleID string) error {
	ident, err := s.identities.FindByEligibleID(ctx, eligibleID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			// No identity yet; Finalize creates one from the extract.
			return nil
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up identity")
	}
	info.IdentityID = ident.ID
	return nil
}

// resolveAttributes handles the paths that carry full demographics: plain
// self-service signup and Open enrollment on a non-gated account.
func (s *Service) resolveAttributes(ctx context.Context, info *models.NewUserRecord, input Input) error {
	if input.FirstName == "" || input.LastName == "" || input.ZipCode == "" || input.Birthday == "" {
		return dErrors.New(dErrors.CodeInvalidState, "first name, last name, zip code, and birthday are required")
	}
	birthday, err := dates.Parse(input.Birthday)
	if err != nil {
		return dErrors.New(dErrors.CodeInvalidArgument, "birthday must be YYYY-MM-DD")
	}

	info.FirstName = strings.TrimSpace(input.FirstName)
	info.LastName = strings.TrimSpace(input.LastName)
	info.ZipCode = strings.TrimSpace(input.ZipCode)
	info.Birthday = &birthday

	ident, err := s.identities.FindByAttributes(ctx, identity.Attributes{
		FirstName: info.FirstName,
		LastName:  info.LastName,
		ZipCode:   info.ZipCode,
		Birthday:  birthday,
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up identity")
	}
	info.IdentityID = ident.ID
	return nil
}

func (s *Service) existingUser(ctx context.Context, info models.NewUserRecord) (bool, error) {
	if info.Email != "" {
		_, err := s.users.FindByEmail(ctx, info.Email)
		switch {
		case err == nil:
			return true, nil
		case !errors.Is(err, sentinel.ErrNotFound):
			return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up user")
		}
	}
	if info.Phone != "" {
		_, err := s.users.FindByPhone(ctx, info.Phone)
		switch {
		case err == nil:
			return true, nil
		case !errors.Is(err, sentinel.ErrNotFound):
			return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up user")
		}
	}
	return false, nil
}

// requireUnlinked fails AlreadyExists when the identity already owns a
// login. The masked contacts in the details point the caller at sign-in
// without disclosing the account.
func (s *Service) requireUnlinked(ctx context.Context, identityID uuid.UUID) error {
	user, err := s.users.FindByIdentity(ctx, identityID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up user")
	}
	return dErrors.New(dErrors.CodeAlreadyExists, "an account already exists for this person").
		WithDetails(maskedContacts(user))
}

func maskedContacts(user identity.User) map[string]any {
	details := make(map[string]any, 2)
	if user.Email != "" {
		details["email"] = mask.Email(user.Email)
	}
	if user.Phone != "" {
		details["phone"] = mask.Phone(user.Phone)
	}
	return details
}

// Resend re-delivers the active challenge's code over the given channel.
// The continuation token is untouched; the attempt cap and throttle still
// apply inside the verification service.
func (s *Service) Resend(ctx context.Context, tokenString string, channel notify.Channel) error {
	cont, err := s.continuations.Parse(tokenString, true)
	if err != nil {
		return err
	}
	if cont.Verified() {
		return dErrors.New(dErrors.CodeInvalidState, "registration is already verified")
	}

	id, err := challenge.VerificationID(cont.Challenge.Data)
	if err != nil {
		return dErrors.New(dErrors.CodeInvalidState, "the active challenge has nothing to resend")
	}
	return s.verifications.Deliver(ctx, id, channel, "")
}

// Finalize turns a Verified continuation into a persisted login, creating
// the identity first when the pipeline never matched one.
func (s *Service) Finalize(ctx context.Context, tokenString string) (identity.User, error) {
	cont, err := s.continuations.Parse(tokenString, true)
	if err != nil {
		return identity.User{}, err
	}
	if !cont.Verified() {
		return identity.User{}, dErrors.New(dErrors.CodeInvalidState, "registration is not verified yet")
	}
	info := cont.Info

	if info.AccountID != "" {
		ok, err := s.enrollments.CanEnroll(ctx, info.AccountID)
		if err != nil {
			return identity.User{}, err
		}
		if !ok {
			return identity.User{}, dErrors.New(dErrors.CodeInvalidState, "this account has reached its enrollment limit")
		}
	}

	// Re-check on the write path: the token may outlive a concurrent
	// registration for the same person.
	taken, err := s.existingUser(ctx, info)
	if err != nil {
		return identity.User{}, err
	}
	if taken {
		return identity.User{}, dErrors.New(dErrors.CodeAlreadyExists, "an account already exists with this email or phone")
	}

	if !info.HasIdentity() {
		ident, err := s.createIdentity(ctx, info)
		if err != nil {
			return identity.User{}, err
		}
		info.IdentityID = ident.ID
	} else if err := s.requireUnlinked(ctx, info.IdentityID); err != nil {
		return identity.User{}, err
	}

	user, err := s.users.Create(ctx, identity.User{
		IdentityID:   info.IdentityID,
		AccountID:    info.AccountID,
		Email:        info.Email,
		Phone:        info.Phone,
		PasswordHash: info.PasswordHash,
		CreatedAt:    requestcontext.Now(ctx),
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return identity.User{}, dErrors.New(dErrors.CodeAlreadyExists, "an account already exists for this person")
		}
		return identity.User{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create user")
	}

	s.metrics.RecordCompleted("created")
	s.audit.Emit(ctx, audit.Event{
		Action:    audit.ActionRegistrationCompleted,
		AccountID: user.AccountID,
		Subject:   mask.Email(user.Email),
	})
	s.logger.InfoContext(ctx, "registration completed",
		"user_id", user.ID,
		"account_id", user.AccountID,
		"request_id", requestcontext.RequestID(ctx),
	)
	return user, nil
}

// createIdentity builds the identity row from what the pipeline verified:
// submitted demographics when present, otherwise the eligibility extract.
func (s *Service) createIdentity(ctx context.Context, info models.NewUserRecord) (identity.Identity, error) {
	ident := identity.Identity{
		FirstName:  info.FirstName,
		LastName:   info.LastName,
		ZipCode:    info.ZipCode,
		EligibleID: info.EligibleID,
	}
	if info.Birthday != nil {
		ident.Birthday = *info.Birthday
	}

	if ident.FirstName == "" && info.EligibleID != "" {
		rec, err := s.eligibility.FindByID(ctx, info.EligibleID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return identity.Identity{}, dErrors.New(dErrors.CodeNotFound, "eligibility record not found")
			}
			return identity.Identity{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load eligibility record")
		}
		ident.FirstName = rec.FirstName
		ident.LastName = rec.LastName
		if ident.Birthday.IsZero() {
			ident.Birthday = rec.Birthday
		}
	}

	created, err := s.identities.Create(ctx, ident)
	if err != nil {
		return identity.Identity{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create identity")
	}
	return created, nil
}
