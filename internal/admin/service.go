// Package admin serves operator views over the audit trail and recipient
// holdings. Every route sits behind the bearer-token middleware.
package admin

import (
	"context"
	"errors"
	"fmt"

	credmodels "attest/internal/credential/models"
	id "attest/pkg/domain"
	dErrors "attest/pkg/domain-errors"
	"attest/pkg/platform/audit"
	"attest/pkg/platform/sentinel"
)

const (
	defaultAuditLimit = 50
	maxAuditLimit     = 500
)

// AuditStore reads the append-only audit trail.
type AuditStore interface {
	ListBySubject(ctx context.Context, subject string) ([]audit.Event, error)
	ListRecent(ctx context.Context, limit int) ([]audit.Event, error)
}

// CredentialStore reads issued credentials.
type CredentialStore interface {
	FindByID(ctx context.Context, credentialID id.CredentialID) (*credmodels.IssuedCredential, error)
	ListByRecipient(ctx context.Context, userID id.UserID) ([]*credmodels.IssuedCredential, error)
}

// RecipientStore is the recipient directory.
type RecipientStore interface {
	Save(ctx context.Context, r *credmodels.Recipient) error
}

// Service provides admin-level operations for monitoring and for enrolling
// recipients.
type Service struct {
	audit       AuditStore
	credentials CredentialStore
	recipients  RecipientStore
}

func NewService(auditStore AuditStore, credentials CredentialStore, recipients RecipientStore) *Service {
	return &Service{
		audit:       auditStore,
		credentials: credentials,
		recipients:  recipients,
	}
}

// RegisterRecipient adds a person to the directory so credentials can be
// issued to them.
func (s *Service) RegisterRecipient(ctx context.Context, email, name string) (*credmodels.Recipient, error) {
	r := &credmodels.Recipient{
		ID:    id.NewUserID(),
		Email: email,
		Name:  name,
	}
	if err := s.recipients.Save(ctx, r); err != nil {
		return nil, fmt.Errorf("save recipient: %w", err)
	}
	return r, nil
}

// RecentAuditEvents returns the newest events first. limit is clamped to
// [1, 500]; zero or negative means the default of 50.
func (s *Service) RecentAuditEvents(ctx context.Context, limit int) ([]audit.Event, error) {
	switch {
	case limit <= 0:
		limit = defaultAuditLimit
	case limit > maxAuditLimit:
		limit = maxAuditLimit
	}
	events, err := s.audit.ListRecent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent audit events: %w", err)
	}
	return events, nil
}

// CredentialAuditTrail returns every audit event recorded against one
// credential. Unknown credentials are a not-found error rather than an empty
// trail.
func (s *Service) CredentialAuditTrail(ctx context.Context, credentialID id.CredentialID) ([]audit.Event, error) {
	if _, err := s.credentials.FindByID(ctx, credentialID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(credmodels.ErrCredentialNotFound, dErrors.CodeNotFound, "credential not found")
		}
		return nil, fmt.Errorf("load credential: %w", err)
	}
	events, err := s.audit.ListBySubject(ctx, credentialID.String())
	if err != nil {
		return nil, fmt.Errorf("list audit events for %s: %w", credentialID, err)
	}
	return events, nil
}

// RecipientCredentials lists everything a recipient holds, in any status.
func (s *Service) RecipientCredentials(ctx context.Context, userID id.UserID) ([]*credmodels.IssuedCredential, error) {
	creds, err := s.credentials.ListByRecipient(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list credentials for %s: %w", userID, err)
	}
	return creds, nil
}
