// Package domainerrors defines the coded error type shared by all services.
//
// Services return *Error values so transports can translate outcomes into
// status codes without string matching. Stores return pkg/platform/sentinel
// errors; services wrap them into coded errors at the boundary.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies a domain error.
type Code string

const (
	// CodeInvalidArgument marks user-correctable input failures: a failed
	// challenge response, a malformed field, an eligibility match miss. Safe
	// to surface; the caller retries the same step.
	CodeInvalidArgument Code = "invalid_argument"

	// CodeInvalidState marks structurally impossible requests: missing fields
	// for the chosen enrollment type, delivery attempts exhausted. Surfaced as
	// a generic failure.
	CodeInvalidState Code = "invalid_state"

	// CodeAlreadyExists marks an identity that already owns a login.
	CodeAlreadyExists Code = "already_exists"

	// CodeNotFound marks a token or id that references nothing.
	CodeNotFound Code = "not_found"

	// CodeExpired marks a token or code past its TTL; the caller restarts.
	CodeExpired Code = "expired"

	// CodeInvalidAge marks a birthday failing the minimum-age rule.
	CodeInvalidAge Code = "invalid_age"

	// CodeUnauthorized marks a missing or unverifiable credential.
	CodeUnauthorized Code = "unauthorized"

	// CodeInternal marks unexpected failures. Details are logged, never returned.
	CodeInternal Code = "internal"
)

// Error is a coded domain error. Details carries structured data safe to
// return to the caller (masked contact hints, challenge metadata).
type Error struct {
	Code    Code
	Message string
	Details map[string]any
	err     error
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.err }

// New creates a coded error with a caller-safe message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates a coded error with a formatted caller-safe message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and caller-safe message to an underlying error. The
// underlying error is preserved for logs and errors.Is checks but is never
// serialized to the caller.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, err: err}
}

// WithDetails returns a copy of the error carrying structured details.
func (e *Error) WithDetails(details map[string]any) *Error {
	clone := *e
	clone.Details = details
	return &clone
}

// CodeOf extracts the code from an error chain. Unclassified errors report
// CodeInternal so unexpected failures never leak a misleading status.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// HasCode reports whether the error chain carries the given code.
func HasCode(err error, code Code) bool {
	return CodeOf(err) == code
}

// ToHTTPStatus maps a code to its HTTP response status.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeInvalidArgument, CodeInvalidAge:
		return http.StatusBadRequest
	case CodeInvalidState:
		return http.StatusConflict
	case CodeAlreadyExists:
		return http.StatusConflict
	case CodeNotFound:
		return http.StatusNotFound
	case CodeExpired:
		return http.StatusGone
	case CodeUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
