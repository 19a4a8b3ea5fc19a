package main

import (
	"context"
	"database/sql"
	"time"

	"attest/internal/credential/models"
	credstore "attest/internal/credential/store/credential"
	issuerstore "attest/internal/credential/store/issuer"
	recipientstore "attest/internal/credential/store/recipient"
	templatestore "attest/internal/credential/store/template"
	revservice "attest/internal/revocation/service"
	revstore "attest/internal/revocation/store"
	stackmodels "attest/internal/stack/models"
	stackservice "attest/internal/stack/service"
	stackstore "attest/internal/stack/store"
	id "attest/pkg/domain"
	"attest/pkg/platform/audit"
	auditmemory "attest/pkg/platform/audit/store/memory"
	auditpostgres "attest/pkg/platform/audit/store/postgres"
)

type issuerStore interface {
	Save(ctx context.Context, iss *models.Issuer) error
	FindByID(ctx context.Context, issuerID id.IssuerID) (*models.Issuer, error)
	FindDefault(ctx context.Context) (*models.Issuer, error)
}

type templateStore interface {
	Save(ctx context.Context, tmpl *models.Template) error
	FindByID(ctx context.Context, templateID id.TemplateID) (*models.Template, error)
}

type recipientStore interface {
	Save(ctx context.Context, r *models.Recipient) error
	FindByID(ctx context.Context, userID id.UserID) (*models.Recipient, error)
}

type credentialStore interface {
	Create(ctx context.Context, cred *models.IssuedCredential) error
	FindByID(ctx context.Context, credentialID id.CredentialID) (*models.IssuedCredential, error)
	ListByRecipient(ctx context.Context, userID id.UserID) ([]*models.IssuedCredential, error)
	ListExpired(ctx context.Context, now time.Time, limit int) ([]*models.IssuedCredential, error)
	UpdateStatus(ctx context.Context, credentialID id.CredentialID, next models.Status) (models.Status, error)
}

type stackStore interface {
	stackservice.Store
	SaveStack(ctx context.Context, stack *stackmodels.Stack) error
}

// stores is every repository the server wires, all memory or all Postgres.
type stores struct {
	issuers     issuerStore
	templates   templateStore
	recipients  recipientStore
	credentials credentialStore
	revocations revservice.Ledger
	stacks      stackStore
	audit       audit.Store
}

func memoryStores() stores {
	return stores{
		issuers:     issuerstore.New(),
		templates:   templatestore.New(),
		recipients:  recipientstore.New(),
		credentials: credstore.New(),
		revocations: revstore.New(),
		stacks:      stackstore.New(),
		audit:       auditmemory.NewInMemoryStore(),
	}
}

func postgresStores(db *sql.DB) stores {
	return stores{
		issuers:     issuerstore.NewPostgres(db),
		templates:   templatestore.NewPostgres(db),
		recipients:  recipientstore.NewPostgres(db),
		credentials: credstore.NewPostgres(db),
		revocations: revstore.NewPostgres(db),
		stacks:      stackstore.NewPostgres(db),
		audit:       auditpostgres.New(db),
	}
}
