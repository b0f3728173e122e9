package challenge

import (
	"context"
	"encoding/json"

	"membergate/internal/notify"
	"membergate/internal/registration/models"
	"membergate/internal/verification"
	"membergate/pkg/mask"
)

// Email proves control of the submitted email address with a one-time code.
type Email struct {
	verifications *verification.Service
}

func NewEmail(verifications *verification.Service) *Email {
	return &Email{verifications: verifications}
}

func (c *Email) Type() models.ChallengeType { return models.ChallengeEmail }

func (c *Email) Issue(ctx context.Context, info *models.NewUserRecord, delegate bool) (*Issued, error) {
	if info.Email == "" {
		return nil, nil
	}

	rec, err := c.verifications.Create(ctx, verification.TypeRegistration, info.Email, info.Email, "", "")
	if err != nil {
		return nil, err
	}
	if err := c.verifications.Deliver(ctx, rec.ID, notify.ChannelEmail, ""); err != nil {
		return nil, err
	}

	data, err := marshalOTPState(rec.ID)
	if err != nil {
		return nil, err
	}
	return &Issued{
		Data: data,
		Hint: map[string]string{"sent_to": mask.Email(info.Email)},
	}, nil
}

func (c *Email) ParseResponse(raw json.RawMessage) (models.ChallengeResponse, error) {
	return parseCodeResponse(raw)
}

func (c *Email) Verify(ctx context.Context, info *models.NewUserRecord, data json.RawMessage, resp models.ChallengeResponse) error {
	return checkOTP(ctx, c.verifications, data, resp.Code)
}
