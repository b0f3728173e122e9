// Package continuation builds and parses the short-lived token that carries
// registration progress between requests. All per-step state lives here:
// the server keeps nothing.
package continuation

import (
	"fmt"
	"time"

	"membergate/internal/registration/models"
	"membergate/internal/token"
)

// Service signs and verifies continuation tokens.
type Service struct {
	codec *token.Codec
	ttl   time.Duration
}

func New(codec *token.Codec, ttl time.Duration) (*Service, error) {
	if codec == nil {
		return nil, fmt.Errorf("token codec is required")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("continuation ttl must be positive")
	}
	return &Service{codec: codec, ttl: ttl}, nil
}

// Pending wraps in-progress state: accumulated info, the queue of challenge
// types still ahead, and the active challenge's private data.
func (s *Service) Pending(info models.NewUserRecord, pending []models.ChallengeType, active *models.ActiveChallenge) (string, error) {
	return s.codec.Sign(models.Continuation{
		Info:      info,
		Pending:   pending,
		Challenge: active,
	}, s.ttl)
}

// Verified wraps a fully verified record. The token still expires: a
// verified continuation is an input to finalization, not a credential.
func (s *Service) Verified(info models.NewUserRecord) (string, error) {
	return s.codec.Sign(models.Continuation{Info: info}, s.ttl)
}

// Parse verifies the signature and, when enforceExpiration is set,
// the token's age. Expiration is enforced on every parse once a challenge
// is outstanding; only the first token-less call skips it.
func (s *Service) Parse(tokenString string, enforceExpiration bool) (models.Continuation, error) {
	return token.Parse[models.Continuation](s.codec, tokenString, enforceExpiration)
}
