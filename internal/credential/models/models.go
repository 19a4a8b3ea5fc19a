package models

import (
	"time"

	id "attest/pkg/domain"
)

// Template describes an achievement that can be awarded. Issued documents
// are stored whole, so editing a template never changes what was issued.
type Template struct {
	ID                id.TemplateID
	MachineName       string
	Name              string
	Description       string
	CriteriaNarrative string
	Kind              Kind
	// ValidityDays of 0 means credentials never expire.
	ValidityDays int
	PassingScore *float64
	// IssuerID is nil when the platform default issuer signs.
	IssuerID  *id.IssuerID
	ImageURL  string
	CreatedAt time.Time
}

// ExpiresAt returns the expiry for a credential issued at issuedAt, or nil.
func (t *Template) ExpiresAt(issuedAt time.Time) *time.Time {
	if t.ValidityDays <= 0 {
		return nil
	}
	exp := issuedAt.UTC().AddDate(0, 0, t.ValidityDays)
	return &exp
}

// MeetsPassingScore reports whether score clears the template threshold.
// Templates without a threshold accept any score.
func (t *Template) MeetsPassingScore(score float64) bool {
	return t.PassingScore == nil || score >= *t.PassingScore
}

// Issuer is an organization that signs credentials.
type Issuer struct {
	ID       id.IssuerID
	Name     string
	URL      string
	Email    string
	ImageURL string
	// PublicKey is the raw 32-byte Ed25519 key.
	PublicKey []byte
	// EncryptedPrivateKey is the at-rest blob; never logged, cached or returned.
	EncryptedPrivateKey []byte
	IsDefault           bool
	CreatedAt           time.Time
}

// HasKeys reports whether the issuer can sign.
func (i *Issuer) HasKeys() bool {
	return len(i.PublicKey) > 0 && len(i.EncryptedPrivateKey) > 0
}

// Profile returns the public view of the issuer.
func (i *Issuer) Profile() IssuerProfile {
	return IssuerProfile{
		ID:        i.ID,
		Name:      i.Name,
		URL:       i.URL,
		Email:     i.Email,
		ImageURL:  i.ImageURL,
		PublicKey: i.PublicKey,
		IsDefault: i.IsDefault,
	}
}

// IssuerProfile is the cacheable public half of an Issuer.
type IssuerProfile struct {
	ID        id.IssuerID `json:"id"`
	Name      string      `json:"name"`
	URL       string      `json:"url"`
	Email     string      `json:"email,omitempty"`
	ImageURL  string      `json:"image_url,omitempty"`
	PublicKey []byte      `json:"public_key"`
	IsDefault bool        `json:"is_default"`
}

// Recipient identifies who a credential was awarded to.
type Recipient struct {
	ID    id.UserID
	Email string
	Name  string
}

// Evidence is an opaque key/value item supplied by an activity system.
type Evidence map[string]any

// Document is a credential document before canonicalization.
type Document map[string]any

// IssuedCredential is a signed credential as persisted. Only Status changes
// after creation.
type IssuedCredential struct {
	ID              id.CredentialID
	TemplateID      id.TemplateID
	IssuerID        id.IssuerID
	Recipient       Recipient
	IssuedAt        time.Time
	ExpiresAt       *time.Time
	Evidence        []Evidence
	Status          Status
	Document        []byte
	Signature       []byte
	VerificationURL string
}

// IsExpiredAt reports whether the expiry has passed at now.
func (c *IssuedCredential) IsExpiredAt(now time.Time) bool {
	return c.ExpiresAt != nil && !now.Before(*c.ExpiresAt)
}

// IssueRequest carries everything needed to award a template to a recipient.
// Context is recorded in the document as an additional evidence item.
type IssueRequest struct {
	TemplateID  id.TemplateID
	RecipientID id.UserID
	Evidence    []Evidence
	Score       *float64
	Context     map[string]any
}

// VerifyResult is the outcome of verifying a credential. Negative outcomes
// are results rather than errors.
type VerifyResult struct {
	Valid      bool
	Reason     Reason
	Message    string
	Credential *IssuedCredential
	Template   *Template
	Issuer     *IssuerProfile
}

// Issued is published after a credential is persisted.
type Issued struct {
	CredentialID id.CredentialID
	TemplateID   id.TemplateID
	IssuerID     id.IssuerID
	RecipientID  id.UserID
	IssuedAt     time.Time
}
