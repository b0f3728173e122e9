package challenge

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"membergate/internal/eligibility"
	"membergate/internal/enrollment"
	"membergate/internal/identity"
	"membergate/internal/registration/models"
	"membergate/pkg/dates"
	dErrors "membergate/pkg/domain-errors"
	"membergate/pkg/platform/sentinel"
)

// Enrollment asks the invited person for their birthday and checks it
// against the eligibility-matched identity. It only applies to
// Eligibility-type enrollments from self-service callers: a delegate has
// already identified the person over the phone.
type Enrollment struct {
	identities  identity.Store
	eligibility eligibility.Store
}

func NewEnrollment(identities identity.Store, eligibilityStore eligibility.Store) *Enrollment {
	return &Enrollment{identities: identities, eligibility: eligibilityStore}
}

func (c *Enrollment) Type() models.ChallengeType { return models.ChallengeEnrollment }

func (c *Enrollment) Issue(ctx context.Context, info *models.NewUserRecord, delegate bool) (*Issued, error) {
	if info.Enrollment == nil || info.Enrollment.Type != enrollment.TypeEligibility || delegate {
		return nil, nil
	}
	return &Issued{
		Hint: map[string]string{"question": "birthday"},
	}, nil
}

func (c *Enrollment) ParseResponse(raw json.RawMessage) (models.ChallengeResponse, error) {
	var resp models.ChallengeResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return models.ChallengeResponse{}, dErrors.New(dErrors.CodeInvalidArgument, "challenge response must be a JSON object")
	}
	if resp.Birthday == "" {
		return models.ChallengeResponse{}, dErrors.New(dErrors.CodeInvalidArgument, "a birthday is required")
	}
	return resp, nil
}

func (c *Enrollment) Verify(ctx context.Context, info *models.NewUserRecord, data json.RawMessage, resp models.ChallengeResponse) error {
	submitted, err := dates.Parse(resp.Birthday)
	if err != nil {
		return dErrors.New(dErrors.CodeInvalidArgument, "birthday must be YYYY-MM-DD")
	}

	onFile, err := c.birthdayOnFile(ctx, info)
	if err != nil {
		return err
	}

	// Strict same-calendar-day equality on the date value; no timezone math.
	if !dates.SameDay(onFile, submitted) {
		return dErrors.New(dErrors.CodeInvalidArgument, "birthday does not match our records")
	}

	info.EligibilityVerified = true
	return nil
}

// birthdayOnFile resolves the birthday to verify against: the matched
// identity's when one is bound, otherwise the eligibility record's (the
// extract row exists even before an identity has been created for it).
func (c *Enrollment) birthdayOnFile(ctx context.Context, info *models.NewUserRecord) (time.Time, error) {
	if info.HasIdentity() {
		ident, err := c.identities.FindByID(ctx, info.IdentityID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return time.Time{}, dErrors.New(dErrors.CodeNotFound, "identity not found")
			}
			return time.Time{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load identity")
		}
		return ident.Birthday, nil
	}

	rec, err := c.eligibility.FindByID(ctx, info.EligibleID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return time.Time{}, dErrors.New(dErrors.CodeNotFound, "eligibility record not found")
		}
		return time.Time{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load eligibility record")
	}
	return rec.Birthday, nil
}
