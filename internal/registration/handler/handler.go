// Package handler exposes the registration pipeline over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"membergate/internal/identity"
	"membergate/internal/notify"
	"membergate/internal/registration/service"
	"membergate/pkg/platform/httputil"
	"membergate/pkg/requestcontext"
)

// Service is the slice of the pipeline the handlers need.
type Service interface {
	Verify(ctx context.Context, input service.Input) (service.Result, error)
	Resend(ctx context.Context, token string, channel notify.Channel) error
	Finalize(ctx context.Context, token string) (identity.User, error)
}

// Handler wires registration endpoints to the pipeline.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{service: service, logger: logger}
}

// Register mounts registration endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/registration/verify", h.HandleVerify)
	r.Post("/registration/resend", h.HandleResend)
	r.Post("/registration/complete", h.HandleComplete)
}

// HandleVerify handles POST /registration/verify requests.
func (h *Handler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, ok := httputil.Decode[*VerifyRequest](w, r)
	if !ok {
		return
	}

	result, err := h.service.Verify(ctx, req.Input)
	if err != nil {
		h.logger.WarnContext(ctx, "verification step failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, result)
}

// HandleResend handles POST /registration/resend requests.
func (h *Handler) HandleResend(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, ok := httputil.Decode[*ResendRequest](w, r)
	if !ok {
		return
	}

	if err := h.service.Resend(ctx, req.Token, notify.Channel(req.Channel)); err != nil {
		h.logger.WarnContext(ctx, "resend failed",
			"request_id", requestcontext.RequestID(ctx),
			"channel", req.Channel,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusAccepted, map[string]string{"status": "sent"})
}

// HandleComplete handles POST /registration/complete requests.
func (h *Handler) HandleComplete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, ok := httputil.Decode[*CompleteRequest](w, r)
	if !ok {
		return
	}

	user, err := h.service.Finalize(ctx, req.Token)
	if err != nil {
		h.logger.WarnContext(ctx, "completion failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "registration completed",
		"request_id", requestcontext.RequestID(ctx),
		"user_id", user.ID,
		"account_id", user.AccountID,
	)
	httputil.WriteJSON(w, http.StatusCreated, map[string]string{
		"user_id":    user.ID.String(),
		"account_id": user.AccountID,
	})
}
