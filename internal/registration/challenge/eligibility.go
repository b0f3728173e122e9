package challenge

import (
	"context"
	"encoding/json"
	"errors"

	"membergate/internal/eligibility"
	"membergate/internal/identity"
	"membergate/internal/registration/models"
	dErrors "membergate/pkg/domain-errors"
	"membergate/pkg/platform/sentinel"
)

// Eligibility asks for the identifying field the extract has on file, today
// the member id. Only applies when the identity carries an eligibility id,
// and skips when the enrollment challenge already proved the binding.
type Eligibility struct {
	identities  identity.Store
	eligibility eligibility.Store
}

func NewEligibility(identities identity.Store, eligibilityStore eligibility.Store) *Eligibility {
	return &Eligibility{identities: identities, eligibility: eligibilityStore}
}

func (c *Eligibility) Type() models.ChallengeType { return models.ChallengeEligibility }

func (c *Eligibility) Issue(ctx context.Context, info *models.NewUserRecord, delegate bool) (*Issued, error) {
	if info.EligibilityVerified {
		return nil, nil
	}
	eligibleID, err := c.eligibleID(ctx, info)
	if err != nil {
		return nil, err
	}
	if eligibleID == "" {
		return nil, nil
	}
	return &Issued{
		Hint: map[string]string{"question": "member_id"},
	}, nil
}

func (c *Eligibility) ParseResponse(raw json.RawMessage) (models.ChallengeResponse, error) {
	var resp models.ChallengeResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return models.ChallengeResponse{}, dErrors.New(dErrors.CodeInvalidArgument, "challenge response must be a JSON object")
	}
	if resp.MemberID == "" {
		return models.ChallengeResponse{}, dErrors.New(dErrors.CodeInvalidArgument, "a member id is required")
	}
	return resp, nil
}

func (c *Eligibility) Verify(ctx context.Context, info *models.NewUserRecord, data json.RawMessage, resp models.ChallengeResponse) error {
	eligibleID, err := c.eligibleID(ctx, info)
	if err != nil {
		return err
	}
	if eligibleID == "" {
		return dErrors.New(dErrors.CodeInvalidState, "record carries no eligibility id")
	}

	rec, err := c.eligibility.FindByID(ctx, eligibleID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "eligibility record not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load eligibility record")
	}

	if eligibility.NormalizeMemberID(resp.MemberID) != eligibility.NormalizeMemberID(rec.MemberID) {
		return dErrors.New(dErrors.CodeInvalidArgument, "member id does not match our records")
	}

	info.EligibleID = rec.EligibleID
	info.EligibilityVerified = true
	return nil
}

// eligibleID resolves the eligibility binding: the record's own when it
// arrived through an enrollment link, otherwise the matched identity's.
func (c *Eligibility) eligibleID(ctx context.Context, info *models.NewUserRecord) (string, error) {
	if info.EligibleID != "" {
		return info.EligibleID, nil
	}
	if !info.HasIdentity() {
		return "", nil
	}
	ident, err := c.identities.FindByID(ctx, info.IdentityID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return "", dErrors.New(dErrors.CodeNotFound, "identity not found")
		}
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to load identity")
	}
	return ident.EligibleID, nil
}
