// Package token implements the generic signed-token codec underneath the
// enrollment and continuation token services. Payloads are JSON documents
// embedded in an HMAC-signed JWT; expiration is optional at signing time and
// optionally enforced at parse time.
package token

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	dErrors "membergate/pkg/domain-errors"
)

// NoExpiry signs a token without an exp claim. Enrollment tokens use this:
// they are embedded in static marketing links and must stay valid.
const NoExpiry time.Duration = 0

type claims struct {
	Data json.RawMessage `json:"dat"`
	jwt.RegisteredClaims
}

// Codec signs and verifies tokens under a single secret. Token kinds with
// independent trust domains get independent codecs.
type Codec struct {
	secret []byte
	issuer string
}

func NewCodec(secret, issuer string) *Codec {
	return &Codec{secret: []byte(secret), issuer: issuer}
}

// Sign serializes the payload and wraps it in a signed token. A ttl of
// NoExpiry omits the exp claim entirely.
func (c *Codec) Sign(payload any, ttl time.Duration) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to serialize token payload")
	}

	now := time.Now()
	cl := claims{
		Data: data,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(now),
			Issuer:   c.issuer,
			ID:       uuid.NewString(),
		},
	}
	if ttl > 0 {
		cl.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, cl).SignedString(c.secret)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to sign token")
	}
	return signed, nil
}

// Parse verifies the signature and deserializes the payload into T.
// With enforceExpiration false an expired-but-authentic token still parses;
// the very first token-less registration call is the only caller that needs
// this.
//
// Errors: CodeExpired past the exp claim, CodeInvalidArgument for anything
// unverifiable or shape-mismatched, CodeInternal for unexpected failures.
func Parse[T any](c *Codec, tokenString string, enforceExpiration bool) (T, error) {
	var out T

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if !enforceExpiration {
		opts = append(opts, jwt.WithoutClaimsValidation())
	}

	parsed, err := jwt.ParseWithClaims(tokenString, &claims{}, func(t *jwt.Token) (any, error) {
		return c.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return out, dErrors.New(dErrors.CodeExpired, "token has expired")
		}
		return out, dErrors.New(dErrors.CodeInvalidArgument, "invalid token")
	}

	cl, ok := parsed.Claims.(*claims)
	if !ok || !parsed.Valid {
		return out, dErrors.New(dErrors.CodeInvalidArgument, "invalid token")
	}

	if err := json.Unmarshal(cl.Data, &out); err != nil {
		return out, dErrors.New(dErrors.CodeInvalidArgument, "token payload does not match expected shape")
	}
	return out, nil
}

// Peek returns the raw payload without verifying the signature. It exists so
// transports that accept tokens minted under several secrets (sign-in and
// password-reset links share one entrypoint) can route a token to the right
// codec; it must never feed a trust decision.
func Peek(tokenString string) (json.RawMessage, error) {
	var cl claims
	_, _, err := jwt.NewParser().ParseUnverified(tokenString, &cl)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeInvalidArgument, "malformed token")
	}
	return cl.Data, nil
}
