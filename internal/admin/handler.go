package admin

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	credmodels "attest/internal/credential/models"
	id "attest/pkg/domain"
	dErrors "attest/pkg/domain-errors"
	"attest/pkg/platform/audit"
	"attest/pkg/platform/httputil"
	"attest/pkg/platform/middleware/auth"
	"attest/pkg/requestcontext"
)

// Queries is the read side the handler needs.
type Queries interface {
	RecentAuditEvents(ctx context.Context, limit int) ([]audit.Event, error)
	CredentialAuditTrail(ctx context.Context, credentialID id.CredentialID) ([]audit.Event, error)
	RecipientCredentials(ctx context.Context, userID id.UserID) ([]*credmodels.IssuedCredential, error)
	RegisterRecipient(ctx context.Context, email, name string) (*credmodels.Recipient, error)
}

// Handler handles admin monitoring endpoints
type Handler struct {
	service Queries
	logger  *slog.Logger
}

func New(service Queries, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// RegisterAdmin mounts the admin routes; the parent router applies auth.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Get("/admin/audit/recent", h.HandleRecentAuditEvents)
	r.Get("/admin/credentials/{id}/audit", h.HandleCredentialAudit)
	r.Get("/admin/users/{id}/credentials", h.HandleRecipientCredentials)
	r.With(auth.RequireScope(auth.ScopeIssue)).Post("/admin/recipients", h.HandleRegisterRecipient)
}

// HandleRecentAuditEvents implements GET /admin/audit/recent?limit=N.
func (h *Handler) HandleRecentAuditEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "limit must be a positive integer"))
			return
		}
		limit = parsed
	}

	events, err := h.service.RecentAuditEvents(ctx, limit)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to get recent audit events",
			"error", err,
			"request_id", requestID,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "admin audit events retrieved",
		"request_id", requestID,
		"count", len(events),
	)
	httputil.WriteJSON(w, http.StatusOK, toAuditEventsResponse(events))
}

// HandleCredentialAudit implements GET /admin/credentials/{id}/audit.
func (h *Handler) HandleCredentialAudit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	credentialID, err := id.ParseCredentialID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid credential id"))
		return
	}

	events, err := h.service.CredentialAuditTrail(ctx, credentialID)
	if err != nil {
		if !dErrors.HasCode(err, dErrors.CodeNotFound) {
			h.logger.ErrorContext(ctx, "failed to get credential audit trail",
				"error", err,
				"request_id", requestID,
				"credential_id", credentialID.String(),
			)
		}
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toAuditEventsResponse(events))
}

// HandleRecipientCredentials implements GET /admin/users/{id}/credentials.
func (h *Handler) HandleRecipientCredentials(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, err := id.ParseUserID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid user id"))
		return
	}

	creds, err := h.service.RecipientCredentials(ctx, userID)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list recipient credentials",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
			"user_id", userID.String(),
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toHoldingsResponse(creds))
}

// HandleRegisterRecipient implements POST /admin/recipients.
func (h *Handler) HandleRegisterRecipient(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[RegisterRecipientRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	recipient, err := h.service.RegisterRecipient(ctx, req.Email, req.Name)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to register recipient",
			"error", err,
			"request_id", requestID,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "recipient registered",
		"request_id", requestID,
		"user_id", recipient.ID.String(),
	)
	httputil.WriteJSON(w, http.StatusCreated, &RecipientResponse{
		ID:    recipient.ID.String(),
		Email: recipient.Email,
		Name:  recipient.Name,
	})
}
