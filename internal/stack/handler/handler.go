// Package handler exposes stack recommendations and progress over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"attest/internal/stack/models"
	id "attest/pkg/domain"
	dErrors "attest/pkg/domain-errors"
	"attest/pkg/platform/httputil"
	"attest/pkg/requestcontext"
)

// Service answers stack queries for a user.
type Service interface {
	RecommendedStacks(ctx context.Context, userID id.UserID) ([]models.Recommendation, error)
	Progress(ctx context.Context, userID id.UserID, stackID id.StackID) (*models.Stack, *models.Progress, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/users/{id}/stacks/recommended", h.HandleRecommended)
	r.Get("/users/{id}/stacks/{stackID}/progress", h.HandleProgress)
}

// HandleRecommended implements GET /users/{id}/stacks/recommended.
func (h *Handler) HandleRecommended(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, err := id.ParseUserID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid user id"))
		return
	}

	recs, err := h.service.RecommendedStacks(ctx, userID)
	if err != nil {
		h.logger.ErrorContext(ctx, "recommend stacks failed",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
			"user_id", userID.String(),
		)
		httputil.WriteError(w, err)
		return
	}

	resp := &RecommendationsResponse{Stacks: make([]*StackProgressResponse, 0, len(recs))}
	for _, rec := range recs {
		resp.Stacks = append(resp.Stacks, toStackProgressResponse(rec.Stack, rec.Progress))
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// HandleProgress implements GET /users/{id}/stacks/{stackID}/progress.
func (h *Handler) HandleProgress(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, err := id.ParseUserID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid user id"))
		return
	}
	stackID, err := id.ParseStackID(chi.URLParam(r, "stackID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid stack id"))
		return
	}

	stack, progress, err := h.service.Progress(ctx, userID, stackID)
	if err != nil {
		h.logger.ErrorContext(ctx, "stack progress failed",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
			"user_id", userID.String(),
			"stack_id", stackID.String(),
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toStackProgressResponse(stack, progress))
}
