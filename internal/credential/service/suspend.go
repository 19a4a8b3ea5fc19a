package service

import (
	"context"
	"errors"

	"attest/internal/credential/models"
	"attest/internal/events"
	id "attest/pkg/domain"
	dErrors "attest/pkg/domain-errors"
	"attest/pkg/platform/audit"
	"attest/pkg/platform/sentinel"
	"attest/pkg/requestcontext"
)

// Suspend takes an active credential out of circulation without revoking it.
// Suspended credentials can still be revoked later.
func (s *Issuer) Suspend(ctx context.Context, credentialID id.CredentialID, reason string) (*models.IssuedCredential, error) {
	prev, err := s.deps.Credentials.UpdateStatus(ctx, credentialID, models.StatusSuspended)
	if err != nil {
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			return nil, dErrors.Wrap(models.ErrCredentialNotFound, dErrors.CodeNotFound, "credential not found")
		case errors.Is(err, sentinel.ErrInvalidState):
			return nil, dErrors.Wrap(models.ErrInvalidTransition, dErrors.CodeConflict, "credential is "+string(prev)+" and cannot be suspended")
		default:
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to suspend credential")
		}
	}

	cred, err := s.deps.Credentials.FindByID(ctx, credentialID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to reload credential")
	}

	s.metrics.IncStatusChange(string(models.StatusSuspended))
	s.auditor.Log(ctx, audit.EventCredentialSuspended, "subject", credentialID.String(), "reason", reason)
	s.dispatcher.Dispatch(ctx, events.Event{
		Type:         events.CredentialSuspended,
		CredentialID: cred.ID,
		TemplateID:   cred.TemplateID,
		RecipientID:  cred.Recipient.ID,
		Reason:       reason,
		OccurredAt:   requestcontext.Now(ctx),
		RequestID:    requestcontext.RequestID(ctx),
	})
	return cred, nil
}
