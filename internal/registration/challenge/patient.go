package challenge

import (
	"context"
	"encoding/json"
	"errors"

	"membergate/internal/identity"
	"membergate/internal/notify"
	"membergate/internal/registration/models"
	"membergate/internal/verification"
	dErrors "membergate/pkg/domain-errors"
	"membergate/pkg/mask"
	"membergate/pkg/platform/sentinel"
)

// Patient guards identities that already own a clinical patient record. The
// code goes to the contacts the clinic has on file, not the ones submitted,
// so a stranger who knows someone's demographics cannot claim their chart.
// Skipped for delegates, and when a submitted contact already equals the
// patient's stored one (the channel challenge covers it).
type Patient struct {
	verifications *verification.Service
	patients      identity.PatientStore
}

func NewPatient(verifications *verification.Service, patients identity.PatientStore) *Patient {
	return &Patient{verifications: verifications, patients: patients}
}

func (c *Patient) Type() models.ChallengeType { return models.ChallengePatient }

func (c *Patient) Issue(ctx context.Context, info *models.NewUserRecord, delegate bool) (*Issued, error) {
	if delegate || !info.HasIdentity() {
		return nil, nil
	}

	patient, err := c.patients.FindByIdentity(ctx, info.IdentityID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load patient record")
	}

	if contactsMatch(info, patient) {
		return nil, nil
	}
	if patient.Email == "" && patient.Phone == "" {
		// Nothing to deliver to; the remaining challenges still stand
		// between the caller and the account.
		return nil, nil
	}

	rec, err := c.verifications.Create(ctx, verification.TypePatient, patient.ID.String(), patient.Email, patient.Phone, "")
	if err != nil {
		return nil, err
	}
	hint := map[string]string{}
	if patient.Email != "" {
		if err := c.verifications.Deliver(ctx, rec.ID, notify.ChannelEmail, ""); err != nil {
			return nil, err
		}
		hint["sent_to_email"] = mask.Email(patient.Email)
	}
	if patient.Phone != "" {
		if err := c.verifications.Deliver(ctx, rec.ID, notify.ChannelSMS, ""); err != nil {
			return nil, err
		}
		hint["sent_to_phone"] = mask.Phone(patient.Phone)
	}

	data, err := marshalOTPState(rec.ID)
	if err != nil {
		return nil, err
	}
	return &Issued{Data: data, Hint: hint}, nil
}

func (c *Patient) ParseResponse(raw json.RawMessage) (models.ChallengeResponse, error) {
	return parseCodeResponse(raw)
}

func (c *Patient) Verify(ctx context.Context, info *models.NewUserRecord, data json.RawMessage, resp models.ChallengeResponse) error {
	return checkOTP(ctx, c.verifications, data, resp.Code)
}

func contactsMatch(info *models.NewUserRecord, patient identity.Patient) bool {
	if info.Email != "" && patient.Email != "" && identity.NormalizeEmail(info.Email) == identity.NormalizeEmail(patient.Email) {
		return true
	}
	if info.Phone != "" && patient.Phone != "" && identity.NormalizePhone(info.Phone) == identity.NormalizePhone(patient.Phone) {
		return true
	}
	return false
}
