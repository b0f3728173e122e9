package verification

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"membergate/internal/notify"
	dErrors "membergate/pkg/domain-errors"
	"membergate/pkg/requestcontext"
)

type VerificationServiceSuite struct {
	suite.Suite
	store   *MemoryStore
	sender  *notify.CaptureSender
	service *Service
}

func TestVerificationServiceSuite(t *testing.T) {
	suite.Run(t, new(VerificationServiceSuite))
}

func (s *VerificationServiceSuite) SetupTest() {
	s.store = NewMemoryStore()
	s.sender = &notify.CaptureSender{}

	var err error
	s.service, err = New(s.store, s.sender)
	s.Require().NoError(err)
}

func (s *VerificationServiceSuite) TestCreateGeneratesSixDigitCode() {
	rec, err := s.service.Create(context.Background(), TypeRegistration, "", "jdoe@example.com", "", "")
	s.Require().NoError(err)
	s.Regexp(regexp.MustCompile(`^\d{6}$`), rec.Code)
	s.Equal(TypeRegistration, rec.Type)
	s.NotZero(rec.ID)
}

func (s *VerificationServiceSuite) TestCreateRequiresTarget() {
	_, err := s.service.Create(context.Background(), TypeRegistration, "", "", "", "")
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
}

func (s *VerificationServiceSuite) TestCheckAntiEnumeration() {
	ctx := context.Background()
	rec, err := s.service.Create(ctx, TypeRegistration, "", "jdoe@example.com", "", "")
	s.Require().NoError(err)

	_, errMissingID := s.service.Check(ctx, rec.ID+10_000, rec.Code)
	_, errWrongCode := s.service.Check(ctx, rec.ID, "000000")
	if rec.Code == "000000" {
		_, errWrongCode = s.service.Check(ctx, rec.ID, "999999")
	}

	s.Equal(dErrors.CodeOf(errMissingID), dErrors.CodeOf(errWrongCode))
	s.Equal(errMissingID.Error(), errWrongCode.Error())
}

func (s *VerificationServiceSuite) TestRegistrationExpiryBoundaries() {
	t0 := time.Date(2026, time.March, 1, 10, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(context.Background(), t0)

	rec, err := s.service.Create(ctx, TypeRegistration, "", "jdoe@example.com", "", "")
	s.Require().NoError(err)

	before := requestcontext.WithTime(context.Background(), t0.Add(59*time.Minute))
	_, err = s.service.Check(before, rec.ID, rec.Code)
	s.NoError(err, "59 minutes in, the code should still check")

	after := requestcontext.WithTime(context.Background(), t0.Add(61*time.Minute))
	_, err = s.service.Check(after, rec.ID, rec.Code)
	s.True(dErrors.HasCode(err, dErrors.CodeExpired), "61 minutes in, the code should be expired")
}

func (s *VerificationServiceSuite) TestPasswordResetGetsLongerTTL() {
	t0 := time.Date(2026, time.March, 1, 10, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(context.Background(), t0)

	rec, err := s.service.Create(ctx, TypePasswordReset, "", "jdoe@example.com", "", "")
	s.Require().NoError(err)

	later := requestcontext.WithTime(context.Background(), t0.Add(23*time.Hour))
	_, err = s.service.Check(later, rec.ID, rec.Code)
	s.NoError(err)
}

func (s *VerificationServiceSuite) TestDeliveryAttemptCap() {
	ctx := context.Background()
	rec, err := s.service.Create(ctx, TypeRegistration, "", "jdoe@example.com", "", "")
	s.Require().NoError(err)

	for i := 0; i < 3; i++ {
		s.Require().NoError(s.service.Deliver(ctx, rec.ID, notify.ChannelEmail, ""))
	}
	err = s.service.Deliver(ctx, rec.ID, notify.ChannelEmail, "")
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidState), "fourth delivery should be refused")
	s.Len(s.sender.Sent, 3)
}

func (s *VerificationServiceSuite) TestDeliverRefusesChannelWithoutTarget() {
	ctx := context.Background()
	rec, err := s.service.Create(ctx, TypeRegistration, "", "jdoe@example.com", "", "")
	s.Require().NoError(err)

	err = s.service.Deliver(ctx, rec.ID, notify.ChannelSMS, "")
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
	s.Empty(s.sender.Sent)
}

func (s *VerificationServiceSuite) TestReferralDeliveryUsesLinkTemplate() {
	ctx := context.Background()
	rec, err := s.service.Create(ctx, TypeReferral, "", "jdoe@example.com", "", "")
	s.Require().NoError(err)

	s.Require().NoError(s.service.Deliver(ctx, rec.ID, notify.ChannelEmail, "https://app.example.com/join?t={token}"))
	s.Require().Len(s.sender.Sent, 1)
	s.Equal("https://app.example.com/join?t="+LinkToken(rec), s.sender.Sent[0].Message)
	s.Contains(s.sender.Sent[0].Message, rec.Code)
}

func (s *VerificationServiceSuite) TestFakeIDAdvancesRealSequence() {
	ctx := context.Background()
	first, err := s.service.Create(ctx, TypeRegistration, "", "a@example.com", "", "")
	s.Require().NoError(err)

	fake, err := s.service.FakeID(ctx)
	s.Require().NoError(err)
	s.Equal(first.ID+1, fake)

	second, err := s.service.Create(ctx, TypeRegistration, "", "b@example.com", "", "")
	s.Require().NoError(err)
	s.Equal(fake+1, second.ID, "fake ids and real ids share one sequence")

	_, err = s.service.Check(ctx, fake, "123456")
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound), "a fake id never matches a row")
}
