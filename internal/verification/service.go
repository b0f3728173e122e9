package verification

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"

	"membergate/internal/notify"
	"membergate/internal/verification/metrics"
	dErrors "membergate/pkg/domain-errors"
	"membergate/pkg/platform/sentinel"
	"membergate/pkg/requestcontext"
)

// maxDeliveryAttempts caps cumulative deliveries per record across all
// channels.
const maxDeliveryAttempts = 3

const codeLength = 6

// Service creates, delivers, and checks one-time codes.
type Service struct {
	store    Store
	sender   notify.Sender
	throttle *Throttle
	logger   *slog.Logger
	metrics  *metrics.Metrics
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

func WithThrottle(t *Throttle) Option {
	return func(s *Service) {
		s.throttle = t
	}
}

func New(store Store, sender notify.Sender, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("verification store is required")
	}
	if sender == nil {
		return nil, fmt.Errorf("sender is required")
	}

	svc := &Service{
		store:  store,
		sender: sender,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Create mints a record with a fresh six-digit code. The code is never
// logged; delivery is a separate step.
func (s *Service) Create(ctx context.Context, typ Type, subject, email, sms, call string) (Record, error) {
	if !typ.Valid() {
		return Record{}, dErrors.Newf(dErrors.CodeInvalidArgument, "unsupported verification type %q", typ)
	}
	if email == "" && sms == "" && call == "" {
		return Record{}, dErrors.New(dErrors.CodeInvalidState, "verification needs at least one delivery target")
	}

	code, err := randomCode()
	if err != nil {
		return Record{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate code")
	}

	rec, err := s.store.Create(ctx, Record{
		Type:      typ,
		Subject:   subject,
		Code:      code,
		Email:     email,
		SMS:       sms,
		Call:      call,
		CreatedAt: requestcontext.Now(ctx),
	})
	if err != nil {
		return Record{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create verification")
	}

	s.metrics.RecordCreated(string(typ))
	s.logger.InfoContext(ctx, "verification created",
		"verification_id", rec.ID,
		"type", rec.Type,
		"request_id", requestcontext.RequestID(ctx),
	)
	return rec, nil
}

// Deliver sends the code over one channel. The attempt counter increments
// in the same store operation that authorizes the delivery, so concurrent
// deliveries cannot both slip under the cap. Send failures are logged, not
// surfaced: the record persisted, and the user can ask for a resend.
func (s *Service) Deliver(ctx context.Context, id int64, channel notify.Channel, linkTemplate string) error {
	if !channel.Valid() {
		return dErrors.Newf(dErrors.CodeInvalidArgument, "unsupported channel %q", channel)
	}

	rec, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "verification not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load verification")
	}

	target := rec.Target(channel)
	if target == "" {
		return dErrors.Newf(dErrors.CodeInvalidState, "verification has no %s target", channel)
	}

	if err := s.throttle.Allow(ctx, target); err != nil {
		s.metrics.RecordDelivery(string(channel), "throttled")
		return err
	}

	rec, err = s.store.IncrementAttempts(ctx, id, maxDeliveryAttempts)
	if err != nil {
		switch {
		case errors.Is(err, sentinel.ErrInvalidState):
			s.metrics.RecordDelivery(string(channel), "exhausted")
			return dErrors.New(dErrors.CodeInvalidState, "delivery attempts exhausted")
		case errors.Is(err, sentinel.ErrNotFound):
			return dErrors.New(dErrors.CodeNotFound, "verification not found")
		default:
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record delivery attempt")
		}
	}

	if err := s.sender.Send(ctx, channel, target, s.message(rec, linkTemplate)); err != nil {
		s.metrics.RecordDelivery(string(channel), "send_failed")
		s.logger.WarnContext(ctx, "delivery failed",
			"verification_id", rec.ID,
			"channel", channel,
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		return nil
	}

	s.metrics.RecordDelivery(string(channel), "sent")
	return nil
}

// Check consumes a submitted code. Lookup is by the (id, code) pair, never
// id alone: a wrong code is indistinguishable from a wrong id.
func (s *Service) Check(ctx context.Context, id int64, code string) (Record, error) {
	rec, err := s.store.FindByIDAndCode(ctx, id, strings.TrimSpace(code))
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.metrics.RecordCheck("not_found")
			return Record{}, dErrors.New(dErrors.CodeNotFound, "verification not found")
		}
		return Record{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check verification")
	}

	if requestcontext.Now(ctx).After(rec.ExpiresAt()) {
		s.metrics.RecordCheck("expired")
		return Record{}, dErrors.New(dErrors.CodeExpired, "verification has expired")
	}

	s.metrics.RecordCheck("ok")
	return rec, nil
}

// FakeID draws the next value from the real id sequence without inserting a
// row. Flows that must answer unknown subjects with a plausible verification
// id, the password-reset path foremost, use it so callers cannot probe
// whether an email or phone is already registered.
func (s *Service) FakeID(ctx context.Context) (int64, error) {
	id, err := s.store.NextFakeID(ctx)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to draw fake verification id")
	}
	return id, nil
}

// LinkToken renders the composite id-code token for referral links.
func LinkToken(rec Record) string {
	return fmt.Sprintf("%d-%s", rec.ID, rec.Code)
}

func (s *Service) message(rec Record, linkTemplate string) string {
	if rec.Type == TypeReferral && linkTemplate != "" {
		return strings.ReplaceAll(linkTemplate, "{token}", LinkToken(rec))
	}
	return fmt.Sprintf("Your verification code is %s. It expires in %d minutes.",
		rec.Code, int(rec.Type.TTL().Minutes()))
}

func randomCode() (string, error) {
	max := big.NewInt(1)
	for i := 0; i < codeLength; i++ {
		max.Mul(max, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", codeLength, n), nil
}
