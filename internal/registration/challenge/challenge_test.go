package challenge

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"membergate/internal/eligibility"
	"membergate/internal/enrollment"
	"membergate/internal/identity"
	"membergate/internal/notify"
	"membergate/internal/registration/models"
	"membergate/internal/verification"
	dErrors "membergate/pkg/domain-errors"
)

type ChallengeSuite struct {
	suite.Suite
	identities    *identity.MemoryStore
	patients      *identity.MemoryPatientStore
	leads         *identity.MemoryLeadStore
	eligibilities *eligibility.MemoryStore
	sender        *notify.CaptureSender
	verifications *verification.Service
	otpStore      *verification.MemoryStore
}

func TestChallengeSuite(t *testing.T) {
	suite.Run(t, new(ChallengeSuite))
}

func (s *ChallengeSuite) SetupTest() {
	s.identities = identity.NewMemoryStore()
	s.patients = identity.NewMemoryPatientStore()
	s.leads = identity.NewMemoryLeadStore()
	s.eligibilities = eligibility.NewMemoryStore()
	s.sender = &notify.CaptureSender{}
	s.otpStore = verification.NewMemoryStore()

	var err error
	s.verifications, err = verification.New(s.otpStore, s.sender)
	s.Require().NoError(err)
}

func (s *ChallengeSuite) issuedCode(id int64) string {
	rec, err := s.otpStore.FindByID(context.Background(), id)
	s.Require().NoError(err)
	return rec.Code
}

func (s *ChallengeSuite) TestEnrollmentSkipsOpenType() {
	c := NewEnrollment(s.identities, s.eligibilities)
	info := &models.NewUserRecord{
		Enrollment: &enrollment.Token{Type: enrollment.TypeOpen, AccountID: "acme"},
	}
	issued, err := c.Issue(context.Background(), info, false)
	s.Require().NoError(err)
	s.Nil(issued)
}

func (s *ChallengeSuite) TestEnrollmentSkipsDelegates() {
	c := NewEnrollment(s.identities, s.eligibilities)
	info := &models.NewUserRecord{
		EligibleID: "elig-1",
		Enrollment: &enrollment.Token{Type: enrollment.TypeEligibility, AccountID: "acme", EligibleID: "elig-1"},
	}
	issued, err := c.Issue(context.Background(), info, true)
	s.Require().NoError(err)
	s.Nil(issued)
}

func (s *ChallengeSuite) TestEnrollmentVerifiesBirthday() {
	birthday := time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC)
	s.eligibilities.Seed(eligibility.Record{EligibleID: "elig-1", AccountID: "acme", MemberID: "ABC123", Birthday: birthday})

	c := NewEnrollment(s.identities, s.eligibilities)
	info := &models.NewUserRecord{
		EligibleID: "elig-1",
		Enrollment: &enrollment.Token{Type: enrollment.TypeEligibility, AccountID: "acme", EligibleID: "elig-1"},
	}

	issued, err := c.Issue(context.Background(), info, false)
	s.Require().NoError(err)
	s.Require().NotNil(issued)

	resp, err := c.ParseResponse(json.RawMessage(`{"birthday":"1990-01-02"}`))
	s.Require().NoError(err)
	err = c.Verify(context.Background(), info, issued.Data, resp)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidArgument))
	s.False(info.EligibilityVerified)

	resp, err = c.ParseResponse(json.RawMessage(`{"birthday":"1990-01-01"}`))
	s.Require().NoError(err)
	s.Require().NoError(c.Verify(context.Background(), info, issued.Data, resp))
	s.True(info.EligibilityVerified)
}

func (s *ChallengeSuite) TestEmailSkipsWithoutAddress() {
	c := NewEmail(s.verifications)
	issued, err := c.Issue(context.Background(), &models.NewUserRecord{}, false)
	s.Require().NoError(err)
	s.Nil(issued)
}

func (s *ChallengeSuite) TestEmailRoundTrip() {
	c := NewEmail(s.verifications)
	info := &models.NewUserRecord{Email: "jdoe@example.com"}

	issued, err := c.Issue(context.Background(), info, false)
	s.Require().NoError(err)
	s.Require().NotNil(issued)
	s.Require().Len(s.sender.Sent, 1)
	s.Equal(notify.ChannelEmail, s.sender.Sent[0].Channel)
	s.Equal("jdoe@example.com", s.sender.Sent[0].Target)
	s.Equal(map[string]string{"sent_to": "j**e@example.com"}, issued.Hint)

	state, err := unmarshalOTPState(issued.Data)
	s.Require().NoError(err)

	resp, err := c.ParseResponse(json.RawMessage(`{"code":"000000"}`))
	s.Require().NoError(err)
	if s.issuedCode(state.VerificationID) == "000000" {
		resp.Code = "999999"
	}
	err = c.Verify(context.Background(), info, issued.Data, resp)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidArgument))

	resp.Code = s.issuedCode(state.VerificationID)
	s.NoError(c.Verify(context.Background(), info, issued.Data, resp))
}

func (s *ChallengeSuite) TestCodeResponseShape() {
	c := NewEmail(s.verifications)
	_, err := c.ParseResponse(json.RawMessage(`{"code":"12345"}`))
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidArgument))
	_, err = c.ParseResponse(json.RawMessage(`not json`))
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidArgument))
}

func (s *ChallengeSuite) TestPhoneDelegateSkipsLeadNumber() {
	s.leads.Seed(identity.Lead{ID: "lead-7", Phones: []string{"(212) 555-0142"}})

	c := NewPhone(s.verifications, s.leads, s.eligibilities)
	info := &models.NewUserRecord{Phone: "212.555.0142", LeadID: "lead-7"}

	issued, err := c.Issue(context.Background(), info, true)
	s.Require().NoError(err)
	s.Nil(issued)
	s.Empty(s.sender.Sent)
}

func (s *ChallengeSuite) TestPhoneDelegateSkipsEligibilityNumber() {
	s.eligibilities.Seed(eligibility.Record{EligibleID: "elig-1", AccountID: "acme", Phone: "212-555-0142"})

	c := NewPhone(s.verifications, s.leads, s.eligibilities)
	info := &models.NewUserRecord{Phone: "2125550142", EligibleID: "elig-1"}

	issued, err := c.Issue(context.Background(), info, true)
	s.Require().NoError(err)
	s.Nil(issued)
}

func (s *ChallengeSuite) TestPhoneSelfServiceAlwaysSendsCode() {
	s.leads.Seed(identity.Lead{ID: "lead-7", Phones: []string{"2125550142"}})

	c := NewPhone(s.verifications, s.leads, s.eligibilities)
	info := &models.NewUserRecord{Phone: "2125550142", LeadID: "lead-7"}

	issued, err := c.Issue(context.Background(), info, false)
	s.Require().NoError(err)
	s.Require().NotNil(issued)
	s.Require().Len(s.sender.Sent, 1)
	s.Equal(notify.ChannelSMS, s.sender.Sent[0].Channel)
}

func (s *ChallengeSuite) TestPatientSkipsWhenNoRecord() {
	c := NewPatient(s.verifications, s.patients)
	info := &models.NewUserRecord{IdentityID: uuid.New(), Email: "jdoe@example.com"}

	issued, err := c.Issue(context.Background(), info, false)
	s.Require().NoError(err)
	s.Nil(issued)
}

func (s *ChallengeSuite) TestPatientSkipsForDelegates() {
	identityID := uuid.New()
	s.patients.Seed(identity.Patient{ID: uuid.New(), IdentityID: identityID, Email: "chart@example.com"})

	c := NewPatient(s.verifications, s.patients)
	info := &models.NewUserRecord{IdentityID: identityID, Email: "jdoe@example.com"}

	issued, err := c.Issue(context.Background(), info, true)
	s.Require().NoError(err)
	s.Nil(issued)
}

func (s *ChallengeSuite) TestPatientSkipsWhenContactMatches() {
	identityID := uuid.New()
	s.patients.Seed(identity.Patient{ID: uuid.New(), IdentityID: identityID, Email: "JDoe@Example.com"})

	c := NewPatient(s.verifications, s.patients)
	info := &models.NewUserRecord{IdentityID: identityID, Email: "jdoe@example.com"}

	issued, err := c.Issue(context.Background(), info, false)
	s.Require().NoError(err)
	s.Nil(issued)
}

func (s *ChallengeSuite) TestPatientSendsToStoredContacts() {
	identityID := uuid.New()
	s.patients.Seed(identity.Patient{
		ID:         uuid.New(),
		IdentityID: identityID,
		Email:      "chart@example.com",
		Phone:      "2125550142",
	})

	c := NewPatient(s.verifications, s.patients)
	info := &models.NewUserRecord{IdentityID: identityID, Email: "attacker@example.com", Phone: "3015550199"}

	issued, err := c.Issue(context.Background(), info, false)
	s.Require().NoError(err)
	s.Require().NotNil(issued)

	s.Require().Len(s.sender.Sent, 2)
	s.Equal("chart@example.com", s.sender.Sent[0].Target)
	s.Equal("2125550142", s.sender.Sent[1].Target)
	s.Equal(map[string]string{
		"sent_to_email": "c***t@example.com",
		"sent_to_phone": "******0142",
	}, issued.Hint)
}

func (s *ChallengeSuite) TestEligibilitySkipsWhenAlreadyVerified() {
	c := NewEligibility(s.identities, s.eligibilities)
	info := &models.NewUserRecord{EligibleID: "elig-1", EligibilityVerified: true}

	issued, err := c.Issue(context.Background(), info, false)
	s.Require().NoError(err)
	s.Nil(issued)
}

func (s *ChallengeSuite) TestEligibilitySkipsWithoutBinding() {
	c := NewEligibility(s.identities, s.eligibilities)
	issued, err := c.Issue(context.Background(), &models.NewUserRecord{}, false)
	s.Require().NoError(err)
	s.Nil(issued)
}

func (s *ChallengeSuite) TestEligibilityVerifiesNormalizedMemberID() {
	ident := identity.Identity{ID: uuid.New(), FirstName: "Maria", LastName: "Lopez", EligibleID: "elig-1"}
	s.identities.Seed(ident)
	s.eligibilities.Seed(eligibility.Record{EligibleID: "elig-1", AccountID: "acme", MemberID: "ABC123"})

	c := NewEligibility(s.identities, s.eligibilities)
	info := &models.NewUserRecord{IdentityID: ident.ID}

	issued, err := c.Issue(context.Background(), info, false)
	s.Require().NoError(err)
	s.Require().NotNil(issued)

	resp, err := c.ParseResponse(json.RawMessage(`{"member_id":"XYZ999"}`))
	s.Require().NoError(err)
	err = c.Verify(context.Background(), info, nil, resp)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidArgument))

	resp, err = c.ParseResponse(json.RawMessage(`{"member_id":" abc-123 "}`))
	s.Require().NoError(err)
	s.Require().NoError(c.Verify(context.Background(), info, nil, resp))
	s.True(info.EligibilityVerified)
	s.Equal("elig-1", info.EligibleID)
}
