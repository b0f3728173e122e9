package handler

import (
	"strings"

	"github.com/asaskevich/govalidator"

	"membergate/internal/notify"
	"membergate/internal/registration/service"
	dErrors "membergate/pkg/domain-errors"
)

// VerifyRequest is the HTTP request body for POST /registration/verify.
// It carries either raw registration fields or a continuation token plus a
// challenge response; the service decides which case applies.
type VerifyRequest struct {
	service.Input
}

// Validate normalizes and bounds the inputs. Semantic checks (attribute
// completeness, eligibility matching) belong to the pipeline; this layer
// only rejects shapes that can never be right.
func (r *VerifyRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeInvalidArgument, "request body is required")
	}

	r.Email = strings.TrimSpace(r.Email)
	if r.Email != "" {
		if !govalidator.StringLength(r.Email, "3", "255") || !govalidator.IsEmail(r.Email) {
			return dErrors.New(dErrors.CodeInvalidArgument, "email must be a valid address")
		}
	}
	if r.Phone != "" && !govalidator.StringLength(r.Phone, "7", "20") {
		return dErrors.New(dErrors.CodeInvalidArgument, "phone must be 7 to 20 characters")
	}
	if !govalidator.StringLength(r.FirstName, "0", "100") || !govalidator.StringLength(r.LastName, "0", "100") {
		return dErrors.New(dErrors.CodeInvalidArgument, "names must be at most 100 characters")
	}
	if !govalidator.StringLength(r.ZipCode, "0", "10") {
		return dErrors.New(dErrors.CodeInvalidArgument, "zip code must be at most 10 characters")
	}
	if !govalidator.StringLength(r.MemberID, "0", "50") {
		return dErrors.New(dErrors.CodeInvalidArgument, "member id must be at most 50 characters")
	}
	if r.Password != "" && !govalidator.StringLength(r.Password, "8", "72") {
		return dErrors.New(dErrors.CodeInvalidArgument, "password must be 8 to 72 characters")
	}

	if r.Token == "" && r.EnrollmentToken == "" && r.Email == "" && r.Phone == "" {
		return dErrors.New(dErrors.CodeInvalidArgument, "a token, enrollment token, email, or phone is required")
	}
	return nil
}

// ResendRequest is the HTTP request body for POST /registration/resend.
type ResendRequest struct {
	Token   string `json:"token"`
	Channel string `json:"channel"`
}

func (r *ResendRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeInvalidArgument, "request body is required")
	}
	if r.Token == "" {
		return dErrors.New(dErrors.CodeInvalidArgument, "a token is required")
	}
	if !notify.Channel(r.Channel).Valid() {
		return dErrors.Newf(dErrors.CodeInvalidArgument, "unsupported channel %q", r.Channel)
	}
	return nil
}

// CompleteRequest is the HTTP request body for POST /registration/complete.
type CompleteRequest struct {
	Token string `json:"token"`
}

func (r *CompleteRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeInvalidArgument, "request body is required")
	}
	if r.Token == "" {
		return dErrors.New(dErrors.CodeInvalidArgument, "a token is required")
	}
	return nil
}
