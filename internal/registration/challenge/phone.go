package challenge

import (
	"context"
	"encoding/json"
	"errors"

	"membergate/internal/eligibility"
	"membergate/internal/identity"
	"membergate/internal/notify"
	"membergate/internal/registration/models"
	"membergate/internal/verification"
	dErrors "membergate/pkg/domain-errors"
	"membergate/pkg/mask"
	"membergate/pkg/platform/sentinel"
)

// Phone proves control of the submitted phone number with a one-time code.
// Delegates skip it when the number is already on file for the referenced
// lead or the eligibility record; an agent reading a known-good number back
// over the phone gains nothing from an extra code round trip.
type Phone struct {
	verifications *verification.Service
	leads         identity.LeadStore
	eligibility   eligibility.Store
}

func NewPhone(verifications *verification.Service, leads identity.LeadStore, eligibilityStore eligibility.Store) *Phone {
	return &Phone{verifications: verifications, leads: leads, eligibility: eligibilityStore}
}

func (c *Phone) Type() models.ChallengeType { return models.ChallengePhone }

func (c *Phone) Issue(ctx context.Context, info *models.NewUserRecord, delegate bool) (*Issued, error) {
	if info.Phone == "" {
		return nil, nil
	}

	if delegate {
		known, err := c.phoneOnFile(ctx, info)
		if err != nil {
			return nil, err
		}
		if known {
			return nil, nil
		}
	}

	rec, err := c.verifications.Create(ctx, verification.TypeRegistration, info.Phone, "", info.Phone, "")
	if err != nil {
		return nil, err
	}
	if err := c.verifications.Deliver(ctx, rec.ID, notify.ChannelSMS, ""); err != nil {
		return nil, err
	}

	data, err := marshalOTPState(rec.ID)
	if err != nil {
		return nil, err
	}
	return &Issued{
		Data: data,
		Hint: map[string]string{"sent_to": mask.Phone(info.Phone)},
	}, nil
}

func (c *Phone) ParseResponse(raw json.RawMessage) (models.ChallengeResponse, error) {
	return parseCodeResponse(raw)
}

func (c *Phone) Verify(ctx context.Context, info *models.NewUserRecord, data json.RawMessage, resp models.ChallengeResponse) error {
	return checkOTP(ctx, c.verifications, data, resp.Code)
}

// phoneOnFile reports whether the submitted number already appears on the
// referenced lead or eligibility record. A dangling reference is not an
// error here; it just means the number is not known good.
func (c *Phone) phoneOnFile(ctx context.Context, info *models.NewUserRecord) (bool, error) {
	if info.LeadID != "" {
		lead, err := c.leads.FindByID(ctx, info.LeadID)
		switch {
		case err == nil:
			if lead.HasLeadPhone(info.Phone) {
				return true, nil
			}
		case !errors.Is(err, sentinel.ErrNotFound):
			return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load lead")
		}
	}

	if info.EligibleID != "" {
		rec, err := c.eligibility.FindByID(ctx, info.EligibleID)
		switch {
		case err == nil:
			if rec.Phone != "" && identity.NormalizePhone(rec.Phone) == identity.NormalizePhone(info.Phone) {
				return true, nil
			}
		case !errors.Is(err, sentinel.ErrNotFound):
			return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load eligibility record")
		}
	}

	return false, nil
}
