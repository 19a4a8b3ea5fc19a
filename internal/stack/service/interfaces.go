package service

import (
	"context"
	"time"

	credmodels "attest/internal/credential/models"
	"attest/internal/stack/models"
	id "attest/pkg/domain"
)

// Store is the stack and progress persistence the evaluator needs.
type Store interface {
	FindStack(ctx context.Context, stackID id.StackID) (*models.Stack, error)
	ListActive(ctx context.Context) ([]*models.Stack, error)
	ListActiveContaining(ctx context.Context, templateID id.TemplateID) ([]*models.Stack, error)
	ListProgressByUser(ctx context.Context, userID id.UserID) ([]*models.Progress, error)
	ClaimCompletion(ctx context.Context, stackID id.StackID, userID id.UserID, matched []id.TemplateID, percent int, at time.Time) (*models.Progress, error)
	RecordResult(ctx context.Context, stackID id.StackID, userID id.UserID, credentialID id.CredentialID) error
	ReleaseClaim(ctx context.Context, stackID id.StackID, userID id.UserID, at time.Time) error
	ProgressStore
}

// ProgressStore is what the tracker reads and writes.
type ProgressStore interface {
	FindProgress(ctx context.Context, stackID id.StackID, userID id.UserID) (*models.Progress, error)
	SaveProgress(ctx context.Context, p *models.Progress) error
}

// Issuer mints the meta-credential.
type Issuer interface {
	IssueCredential(ctx context.Context, req credmodels.IssueRequest) (*credmodels.IssuedCredential, error)
}

// HeldCredentials lists what a user currently holds.
type HeldCredentials interface {
	ListByRecipient(ctx context.Context, userID id.UserID) ([]*credmodels.IssuedCredential, error)
}

// BonusAwarder grants whatever extra a completed stack carries in its
// BonusAttributes. The evaluator only calls it.
type BonusAwarder interface {
	Award(ctx context.Context, stack *models.Stack, userID id.UserID, credential *credmodels.IssuedCredential) error
}

// NoopBonusAwarder awards nothing.
type NoopBonusAwarder struct{}

func (NoopBonusAwarder) Award(context.Context, *models.Stack, id.UserID, *credmodels.IssuedCredential) error {
	return nil
}
