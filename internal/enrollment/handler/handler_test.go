package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"membergate/internal/account"
	"membergate/internal/audit"
	"membergate/internal/eligibility"
	"membergate/internal/enrollment"
	"membergate/internal/identity"
	"membergate/internal/token"
	"membergate/pkg/requestcontext"
)

type testEnv struct {
	router        *chi.Mux
	service       *enrollment.Service
	eligibilities *eligibility.MemoryStore
	identities    *identity.MemoryStore
	auditor       *audit.Publisher
}

func newTestHandler(t *testing.T) testEnv {
	t.Helper()

	accounts := account.NewMemoryStore()
	accounts.Seed(account.Account{ID: "acme", Name: "Acme Health"})
	identities := identity.NewMemoryStore()
	users := identity.NewMemoryUserStore()
	eligibilities := eligibility.NewMemoryStore()

	svc, err := enrollment.New(
		token.NewCodec("enrollment-secret", "membergate"),
		accounts, eligibilities, identities, users, nil,
	)
	if err != nil {
		t.Fatalf("enrollment service: %v", err)
	}

	auditor := audit.NewPublisher(nil)
	router := chi.NewRouter()
	New(svc, auditor, nil).Register(router)
	return testEnv{router: router, service: svc, eligibilities: eligibilities, identities: identities, auditor: auditor}
}

func TestHintForEligibilityToken(t *testing.T) {
	env := newTestHandler(t)

	env.eligibilities.Seed(eligibility.Record{
		EligibleID: "elig-1", AccountID: "acme", MemberID: "ABC123",
		FirstName: "Maria", LastName: "Lopez",
		Birthday: time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	env.identities.Seed(identity.Identity{ID: uuid.New(), FirstName: "Maria", LastName: "Lopez", EligibleID: "elig-1"})

	tok, err := env.service.Issue(t.Context(), "acme", "elig-1", "")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/enrollment/hint?token="+tok, nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var hint enrollment.Hint
	if err := json.NewDecoder(w.Body).Decode(&hint); err != nil {
		t.Fatalf("decode hint: %v", err)
	}
	if hint.MaskedName != "M. L." {
		t.Fatalf("expected masked name, got %q", hint.MaskedName)
	}
	if hint.LoginExists {
		t.Fatalf("expected no existing login")
	}
}

func TestHintEmitsAuditEvent(t *testing.T) {
	env := newTestHandler(t)

	env.eligibilities.Seed(eligibility.Record{
		EligibleID: "elig-1", AccountID: "acme", MemberID: "ABC123",
		FirstName: "Maria", LastName: "Lopez",
		Birthday: time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC),
	})

	tok, err := env.service.Issue(t.Context(), "acme", "elig-1", "")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/enrollment/hint?token="+tok, nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	select {
	case event := <-env.auditor.Inbox():
		if event.Action != audit.ActionEnrollmentHintServed {
			t.Fatalf("expected %q, got %q", audit.ActionEnrollmentHintServed, event.Action)
		}
		if event.AccountID != "acme" {
			t.Fatalf("expected account acme, got %q", event.AccountID)
		}
	default:
		t.Fatal("expected an audit event in the inbox")
	}
}

func TestHintRequiresToken(t *testing.T) {
	env := newTestHandler(t)

	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/enrollment/hint", nil))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestIssueRequiresDelegate(t *testing.T) {
	env := newTestHandler(t)

	body, _ := json.Marshal(map[string]string{"account_id": "acme"})
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/enrollment/issue", bytes.NewReader(body)))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d: %s", w.Code, w.Body.String())
	}
}

func TestIssueAsDelegate(t *testing.T) {
	env := newTestHandler(t)

	body, _ := json.Marshal(map[string]string{"account_id": "acme"})
	req := httptest.NewRequest(http.MethodPost, "/enrollment/issue", bytes.NewReader(body))
	req = req.WithContext(requestcontext.WithDelegate(req.Context(), true))

	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var resp map[string]string
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["token"] == "" {
		t.Fatalf("expected a token in the response")
	}
}
