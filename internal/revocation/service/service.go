// Package service maintains the revocation ledger and keeps credential status
// in step with it.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"unicode/utf8"

	credmodels "attest/internal/credential/models"
	"attest/internal/events"
	"attest/internal/platform/tracer"
	"attest/internal/revocation/metrics"
	"attest/internal/revocation/models"
	id "attest/pkg/domain"
	dErrors "attest/pkg/domain-errors"
	"attest/pkg/platform/audit"
	"attest/pkg/platform/sentinel"
	"attest/pkg/requestcontext"
	"attest/pkg/validation"
)

// Ledger is the insert-only revocation store.
type Ledger interface {
	Append(ctx context.Context, entry *models.Entry) error
	Exists(ctx context.Context, credentialID id.CredentialID) (bool, error)
	ListByCredential(ctx context.Context, credentialID id.CredentialID) ([]*models.Entry, error)
}

// Credentials is the subset of the credential store the registry touches.
type Credentials interface {
	FindByID(ctx context.Context, credentialID id.CredentialID) (*credmodels.IssuedCredential, error)
	UpdateStatus(ctx context.Context, credentialID id.CredentialID, next credmodels.Status) (credmodels.Status, error)
}

// Registry revokes credentials and answers revocation lookups.
type Registry struct {
	ledger      Ledger
	credentials Credentials
	logger      *slog.Logger
	auditor     *audit.Logger
	tracer      tracer.Tracer
	metrics     *metrics.Metrics
	dispatcher  events.Dispatcher
}

type Option func(*Registry)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) { r.logger = logger }
}

func WithAuditor(auditor *audit.Logger) Option {
	return func(r *Registry) { r.auditor = auditor }
}

func WithTracer(t tracer.Tracer) Option {
	return func(r *Registry) {
		if t != nil {
			r.tracer = t
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Registry) { r.metrics = m }
}

func WithDispatcher(d events.Dispatcher) Option {
	return func(r *Registry) {
		if d != nil {
			r.dispatcher = d
		}
	}
}

func New(ledger Ledger, credentials Credentials, opts ...Option) *Registry {
	r := &Registry{
		ledger:      ledger,
		credentials: credentials,
		tracer:      tracer.NewNoop(),
		dispatcher:  events.Noop{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Revoke appends a ledger entry and moves the credential to revoked. When
// several callers race, the ledger's uniqueness picks one winner and the rest
// get ErrAlreadyRevoked.
func (r *Registry) Revoke(ctx context.Context, req models.RevokeRequest) (entry *models.Entry, err error) {
	ctx, span := r.tracer.Start(ctx, tracer.SpanRevoke, tracer.String(tracer.AttrCredentialID, req.CredentialID.String()))
	defer func() { span.End(err) }()

	reason, err := validateRequest(req)
	if err != nil {
		return nil, err
	}

	cred, err := r.credentials.FindByID(ctx, req.CredentialID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(credmodels.ErrCredentialNotFound, dErrors.CodeNotFound, "credential not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load credential")
	}
	if cred.Status == credmodels.StatusRevoked {
		r.metrics.IncConflict()
		return nil, alreadyRevoked()
	}

	entry = &models.Entry{
		ID:           id.NewRevocationID(),
		CredentialID: cred.ID,
		RevokedBy:    req.RevokedBy,
		Reason:       reason,
		Notes:        req.Notes,
		RevokedAt:    requestcontext.Now(ctx).UTC(),
	}
	if err := r.ledger.Append(ctx, entry); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			r.metrics.IncConflict()
			return nil, alreadyRevoked()
		}
		r.logError(ctx, "failed to append revocation", err, "credential_id", cred.ID.String())
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record revocation")
	}

	// The ledger entry is authoritative for verification; a failed status
	// update is logged and left for the next revoke or verify to observe.
	if _, err := r.credentials.UpdateStatus(ctx, cred.ID, credmodels.StatusRevoked); err != nil && !errors.Is(err, sentinel.ErrInvalidState) {
		r.logError(ctx, "failed to mark credential revoked", err, "credential_id", cred.ID.String())
	}

	r.metrics.IncRevoked(string(entry.Reason))
	r.auditor.Log(ctx, audit.EventCredentialRevoked,
		"subject", cred.ID.String(),
		"reason", string(entry.Reason),
	)
	r.dispatcher.Dispatch(ctx, events.Event{
		Type:         events.CredentialRevoked,
		CredentialID: cred.ID,
		TemplateID:   cred.TemplateID,
		RecipientID:  cred.Recipient.ID,
		Reason:       string(entry.Reason),
		OccurredAt:   entry.RevokedAt,
		RequestID:    requestcontext.RequestID(ctx),
	})
	return entry, nil
}

// IsRevoked reports whether the ledger holds an entry for the credential.
func (r *Registry) IsRevoked(ctx context.Context, credentialID id.CredentialID) (bool, error) {
	revoked, err := r.ledger.Exists(ctx, credentialID)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check revocation ledger")
	}
	r.metrics.IncLookup(revoked)
	return revoked, nil
}

// History lists the ledger entries for a credential, newest first.
func (r *Registry) History(ctx context.Context, credentialID id.CredentialID) ([]*models.Entry, error) {
	if _, err := r.credentials.FindByID(ctx, credentialID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(credmodels.ErrCredentialNotFound, dErrors.CodeNotFound, "credential not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load credential")
	}
	entries, err := r.ledger.ListByCredential(ctx, credentialID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list revocations")
	}
	return entries, nil
}

// validateRequest returns the normalized reason that goes into the ledger.
func validateRequest(req models.RevokeRequest) (models.Reason, error) {
	if req.CredentialID.IsNil() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "credential_id is required")
	}
	if req.RevokedBy.IsNil() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "revoked_by is required")
	}
	reason, err := models.ParseReason(string(req.Reason))
	if err != nil {
		return "", err
	}
	if utf8.RuneCountInString(req.Notes) > validation.MaxNotesLength {
		return "", dErrors.New(dErrors.CodeValidation, fmt.Sprintf("notes must be at most %d characters", validation.MaxNotesLength))
	}
	return reason, nil
}

func alreadyRevoked() error {
	return dErrors.Wrap(credmodels.ErrAlreadyRevoked, dErrors.CodeConflict, "credential is already revoked")
}

func (r *Registry) logError(ctx context.Context, msg string, err error, attrs ...any) {
	if r.logger == nil {
		return
	}
	r.logger.ErrorContext(ctx, msg, append(attrs, "error", err)...)
}
