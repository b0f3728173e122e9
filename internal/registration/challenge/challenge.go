// Package challenge implements the five verification challenges. The set is
// closed and known at build time; the pipeline dispatches over an ordered
// slice of Challenger implementations, one per type.
package challenge

import (
	"context"
	"encoding/json"
	"regexp"

	"membergate/internal/registration/models"
	"membergate/internal/verification"
	dErrors "membergate/pkg/domain-errors"
)

// Issued is a challenge offered to the caller. Data is the challenger's
// private state and rides inside the signed continuation token; Hint is the
// caller-visible description of what to answer.
type Issued struct {
	Data json.RawMessage
	Hint any
}

// Challenger owns issue/verify/parse for one challenge type.
//
// Issue returns (nil, nil) when the challenge is not needed for this record;
// the pipeline moves straight to the next type, so the caller never observes
// skipped challenges. Verify mutates info with facts the challenge proved.
type Challenger interface {
	Type() models.ChallengeType
	Issue(ctx context.Context, info *models.NewUserRecord, delegate bool) (*Issued, error)
	ParseResponse(raw json.RawMessage) (models.ChallengeResponse, error)
	Verify(ctx context.Context, info *models.NewUserRecord, data json.RawMessage, resp models.ChallengeResponse) error
}

// otpState is the private data shared by the OTP-backed challenges.
type otpState struct {
	VerificationID int64 `json:"verification_id"`
}

func marshalOTPState(verificationID int64) (json.RawMessage, error) {
	raw, err := json.Marshal(otpState{VerificationID: verificationID})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to encode challenge state")
	}
	return raw, nil
}

func unmarshalOTPState(raw json.RawMessage) (otpState, error) {
	var state otpState
	if err := json.Unmarshal(raw, &state); err != nil || state.VerificationID == 0 {
		return otpState{}, dErrors.New(dErrors.CodeInvalidState, "challenge state is missing its verification id")
	}
	return state, nil
}

// VerificationID extracts the verification id from an OTP challenge's
// private data. Resend re-delivers against it without re-issuing the
// challenge. Fails when the active challenge is not OTP-backed.
func VerificationID(data json.RawMessage) (int64, error) {
	state, err := unmarshalOTPState(data)
	if err != nil {
		return 0, err
	}
	return state.VerificationID, nil
}

// checkOTP verifies a submitted code against the verification record named
// by the challenge state. A wrong code surfaces as a user-facing argument
// error so the same challenge is re-offered; expiry passes through so the
// caller knows to restart.
func checkOTP(ctx context.Context, svc *verification.Service, data json.RawMessage, code string) error {
	state, err := unmarshalOTPState(data)
	if err != nil {
		return err
	}
	if _, err := svc.Check(ctx, state.VerificationID, code); err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			return dErrors.New(dErrors.CodeInvalidArgument, "the code does not match")
		}
		return err
	}
	return nil
}

var codePattern = regexp.MustCompile(`^\d{6}$`)

// parseCodeResponse parses the OTP answer shared by email, phone, and
// patient challenges.
func parseCodeResponse(raw json.RawMessage) (models.ChallengeResponse, error) {
	var resp models.ChallengeResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return models.ChallengeResponse{}, dErrors.New(dErrors.CodeInvalidArgument, "challenge response must be a JSON object")
	}
	if !codePattern.MatchString(resp.Code) {
		return models.ChallengeResponse{}, dErrors.New(dErrors.CodeInvalidArgument, "a six-digit code is required")
	}
	return resp, nil
}
