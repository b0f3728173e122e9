// Package handler exposes enrollment-token endpoints: a hint lookup for the
// signup UI and a delegate-only issue endpoint for minting invitation links.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"membergate/internal/audit"
	"membergate/internal/enrollment"
	dErrors "membergate/pkg/domain-errors"
	"membergate/pkg/platform/httputil"
	"membergate/pkg/requestcontext"
)

// Service is the slice of the enrollment service the handlers need.
type Service interface {
	Issue(ctx context.Context, accountID, eligibleID, leadID string) (string, error)
	Hint(ctx context.Context, token string) (enrollment.Hint, error)
}

// Handler wires enrollment endpoints to the enrollment service.
type Handler struct {
	service Service
	audit   *audit.Publisher
	logger  *slog.Logger
}

func New(service Service, auditor *audit.Publisher, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{service: service, audit: auditor, logger: logger}
}

// Register mounts enrollment endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/enrollment/hint", h.HandleHint)
	r.Post("/enrollment/issue", h.HandleIssue)
}

// HandleHint handles GET /enrollment/hint?token= requests.
func (h *Handler) HandleHint(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	token := strings.TrimSpace(r.URL.Query().Get("token"))
	if token == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidArgument, "a token query parameter is required"))
		return
	}

	hint, err := h.service.Hint(ctx, token)
	if err != nil {
		h.logger.WarnContext(ctx, "hint lookup failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.audit.Emit(ctx, audit.Event{
		Action:    audit.ActionEnrollmentHintServed,
		AccountID: hint.AccountID,
		Delegate:  requestcontext.Delegate(ctx),
	})

	httputil.WriteJSON(w, http.StatusOK, hint)
}

// IssueRequest is the HTTP request body for POST /enrollment/issue.
type IssueRequest struct {
	AccountID  string `json:"account_id"`
	EligibleID string `json:"eligible_id,omitempty"`
	LeadID     string `json:"lead_id,omitempty"`
}

func (r *IssueRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeInvalidArgument, "request body is required")
	}
	if strings.TrimSpace(r.AccountID) == "" {
		return dErrors.New(dErrors.CodeInvalidArgument, "an account id is required")
	}
	return nil
}

// HandleIssue handles POST /enrollment/issue requests. Only delegates mint
// invitation links.
func (h *Handler) HandleIssue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if !requestcontext.Delegate(ctx) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "delegate credentials are required"))
		return
	}

	req, ok := httputil.Decode[*IssueRequest](w, r)
	if !ok {
		return
	}

	token, err := h.service.Issue(ctx, req.AccountID, req.EligibleID, req.LeadID)
	if err != nil {
		h.logger.WarnContext(ctx, "enrollment issue failed",
			"request_id", requestcontext.RequestID(ctx),
			"account_id", req.AccountID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, map[string]string{"token": token})
}
