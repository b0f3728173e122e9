// Package httputil holds the thin JSON plumbing shared by handlers:
// decode-and-validate on the way in, coded errors on the way out.
package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "membergate/pkg/domain-errors"
)

// Validatable lets request types validate and normalize themselves after
// decoding.
type Validatable interface {
	Validate() error
}

// Decode reads a JSON body into T and runs its validation. A false return
// means the error response has already been written.
func Decode[T Validatable](w http.ResponseWriter, r *http.Request) (T, bool) {
	var req T
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, dErrors.New(dErrors.CodeInvalidArgument, "request body must be valid JSON"))
		var zero T
		return zero, false
	}
	if err := req.Validate(); err != nil {
		WriteError(w, err)
		var zero T
		return zero, false
	}
	return req, true
}

// WriteJSON writes a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

type errorBody struct {
	Error       string         `json:"error"`
	Description string         `json:"error_description,omitempty"`
	Details     map[string]any `json:"details,omitempty"`
}

// WriteError renders a coded error. Internal errors keep their message out
// of the response; everything else is safe to show.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	body := errorBody{Error: string(code)}

	if code != dErrors.CodeInternal {
		var derr *dErrors.Error
		if errors.As(err, &derr) {
			body.Description = derr.Message
			body.Details = derr.Details
		} else {
			body.Description = err.Error()
		}
	}

	WriteJSON(w, dErrors.ToHTTPStatus(code), body)
}
