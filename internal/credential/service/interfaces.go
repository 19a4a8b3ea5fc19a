package service

import (
	"context"

	"attest/internal/credential/models"
	id "attest/pkg/domain"
)

// CredentialStore persists issued credentials.
type CredentialStore interface {
	Create(ctx context.Context, cred *models.IssuedCredential) error
	FindByID(ctx context.Context, credentialID id.CredentialID) (*models.IssuedCredential, error)
	UpdateStatus(ctx context.Context, credentialID id.CredentialID, next models.Status) (models.Status, error)
}

type TemplateStore interface {
	FindByID(ctx context.Context, templateID id.TemplateID) (*models.Template, error)
}

type IssuerStore interface {
	FindByID(ctx context.Context, issuerID id.IssuerID) (*models.Issuer, error)
	FindDefault(ctx context.Context) (*models.Issuer, error)
}

// IssuerProfiles serves the public half of an issuer, possibly cached.
type IssuerProfiles interface {
	Profile(ctx context.Context, issuerID id.IssuerID) (*models.IssuerProfile, error)
}

// RecipientDirectory resolves who a credential is awarded to.
type RecipientDirectory interface {
	FindByID(ctx context.Context, userID id.UserID) (*models.Recipient, error)
}

// Signer signs with an issuer key that is encrypted at rest.
type Signer interface {
	SignWithEncryptedKey(message, encryptedKey []byte) ([]byte, error)
}

// SignatureVerifier checks a detached signature.
type SignatureVerifier interface {
	Verify(message, signature, publicKey []byte) bool
}

// RevocationChecker reports whether the revocation ledger holds an entry.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, credentialID id.CredentialID) (bool, error)
}
