package httputil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	dErrors "membergate/pkg/domain-errors"
)

func TestWriteError(t *testing.T) {
	t.Run("internal error omits description", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.New(dErrors.CodeInternal, "db failed"))

		if w.Code != http.StatusInternalServerError {
			t.Fatalf("expected status %d, got %d", http.StatusInternalServerError, w.Code)
		}

		var body map[string]string
		if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if body["error"] != string(dErrors.CodeInternal) {
			t.Fatalf("expected error code %q, got %q", dErrors.CodeInternal, body["error"])
		}
		if _, ok := body["error_description"]; ok {
			t.Fatalf("expected error_description to be omitted for internal errors")
		}
	})

	t.Run("invalid argument includes description and details", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.New(dErrors.CodeAlreadyExists, "an account already exists").
			WithDetails(map[string]any{"email": "j**e@example.com"}))

		if w.Code != http.StatusConflict {
			t.Fatalf("expected status %d, got %d", http.StatusConflict, w.Code)
		}

		var body struct {
			Error       string            `json:"error"`
			Description string            `json:"error_description"`
			Details     map[string]string `json:"details"`
		}
		if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if body.Description != "an account already exists" {
			t.Fatalf("expected description to be returned, got %q", body.Description)
		}
		if body.Details["email"] != "j**e@example.com" {
			t.Fatalf("expected masked email detail, got %q", body.Details["email"])
		}
	})
}
