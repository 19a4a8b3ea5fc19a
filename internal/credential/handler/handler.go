// Package handler exposes issuance, verification, suspension and revocation
// over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"attest/internal/credential/models"
	revmodels "attest/internal/revocation/models"
	id "attest/pkg/domain"
	dErrors "attest/pkg/domain-errors"
	"attest/pkg/platform/httputil"
	"attest/pkg/platform/middleware/auth"
	"attest/pkg/requestcontext"
)

// Issuer issues and suspends credentials.
type Issuer interface {
	IssueCredential(ctx context.Context, req models.IssueRequest) (*models.IssuedCredential, error)
	Suspend(ctx context.Context, credentialID id.CredentialID, reason string) (*models.IssuedCredential, error)
}

// Verifier answers public verification requests.
type Verifier interface {
	Verify(ctx context.Context, credentialID id.CredentialID) (*models.VerifyResult, error)
}

// Revocations writes and reads the revocation ledger.
type Revocations interface {
	Revoke(ctx context.Context, req revmodels.RevokeRequest) (*revmodels.Entry, error)
	History(ctx context.Context, credentialID id.CredentialID) ([]*revmodels.Entry, error)
}

type Handler struct {
	issuer      Issuer
	verifier    Verifier
	revocations Revocations
	logger      *slog.Logger
}

func New(issuer Issuer, verifier Verifier, revocations Revocations, logger *slog.Logger) *Handler {
	return &Handler{
		issuer:      issuer,
		verifier:    verifier,
		revocations: revocations,
		logger:      logger,
	}
}

// Register mounts the public routes.
func (h *Handler) Register(r chi.Router) {
	r.Get("/verify/{id}", h.HandleVerify)
	r.Get("/credentials/{id}/revocations", h.HandleListRevocations)
}

// RegisterAdmin mounts the routes that require an authenticated actor. The
// parent router applies the auth middleware.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.With(auth.RequireScope(auth.ScopeIssue)).Post("/credentials", h.HandleIssue)
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireScope(auth.ScopeRevoke))
		r.Post("/credentials/{id}/revoke", h.HandleRevoke)
		r.Post("/credentials/{id}/suspend", h.HandleSuspend)
	})
}

// HandleIssue implements POST /credentials.
func (h *Handler) HandleIssue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	if _, err := httputil.RequireActor(ctx, h.logger); err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, ok := httputil.DecodeAndPrepare[IssueCredentialRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	issueReq, err := req.ToIssueRequest()
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	cred, err := h.issuer.IssueCredential(ctx, issueReq)
	if err != nil {
		h.logger.ErrorContext(ctx, "issue credential failed",
			"error", err,
			"request_id", requestID,
			"template_id", req.TemplateID,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, toCredentialResponse(cred))
}

// HandleVerify implements GET /verify/{id}. Every outcome is reported in the
// body; an unknown credential also answers 404.
func (h *Handler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	credentialID, ok := h.credentialIDParam(w, r)
	if !ok {
		return
	}

	result, err := h.verifier.Verify(ctx, credentialID)
	if err != nil {
		h.logger.ErrorContext(ctx, "verify credential failed",
			"error", err,
			"request_id", requestID,
			"credential_id", credentialID.String(),
		)
		httputil.WriteError(w, err)
		return
	}

	status := http.StatusOK
	if result.Reason == models.ReasonNotFound {
		status = http.StatusNotFound
	}
	httputil.WriteJSON(w, status, toVerifyResponse(result))
}

// HandleRevoke implements POST /credentials/{id}/revoke.
func (h *Handler) HandleRevoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	actor, err := httputil.RequireActor(ctx, h.logger)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	credentialID, ok := h.credentialIDParam(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[RevokeRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	entry, err := h.revocations.Revoke(ctx, revmodels.RevokeRequest{
		CredentialID: credentialID,
		RevokedBy:    actor,
		Reason:       revmodels.Reason(req.Reason),
		Notes:        req.Notes,
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "revoke credential failed",
			"error", err,
			"request_id", requestID,
			"credential_id", credentialID.String(),
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, entry)
}

// HandleSuspend implements POST /credentials/{id}/suspend.
func (h *Handler) HandleSuspend(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	if _, err := httputil.RequireActor(ctx, h.logger); err != nil {
		httputil.WriteError(w, err)
		return
	}
	credentialID, ok := h.credentialIDParam(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[SuspendRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	cred, err := h.issuer.Suspend(ctx, credentialID, req.Reason)
	if err != nil {
		h.logger.ErrorContext(ctx, "suspend credential failed",
			"error", err,
			"request_id", requestID,
			"credential_id", credentialID.String(),
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toCredentialResponse(cred))
}

// HandleListRevocations implements GET /credentials/{id}/revocations.
func (h *Handler) HandleListRevocations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	credentialID, ok := h.credentialIDParam(w, r)
	if !ok {
		return
	}

	entries, err := h.revocations.History(ctx, credentialID)
	if err != nil {
		h.logger.ErrorContext(ctx, "list revocations failed",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
			"credential_id", credentialID.String(),
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toRevocationsResponse(entries))
}

func (h *Handler) credentialIDParam(w http.ResponseWriter, r *http.Request) (id.CredentialID, bool) {
	credentialID, err := id.ParseCredentialID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid credential id"))
		return id.CredentialID{}, false
	}
	return credentialID, true
}
