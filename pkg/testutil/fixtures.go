package testutil

import (
	"time"

	"github.com/google/uuid"

	"attest/internal/credential/models"
	"attest/internal/keys"
	id "attest/pkg/domain"
)

// PlatformSecret is the at-rest key secret used by every test Manager.
var PlatformSecret = []byte("attest-test-platform-secret")

// TestIDs provides deterministic IDs for the Acme Academy scenario.
var TestIDs = struct {
	Alice        id.UserID
	Bob          id.UserID
	AcmeAcademy  id.IssuerID
	PythonBadge  id.TemplateID
	DataScience  id.TemplateID
	WebDev       id.TemplateID
	PythonExpert id.TemplateID
}{
	Alice:        id.UserID(uuid.MustParse("11111111-1111-1111-1111-111111111111")),
	Bob:          id.UserID(uuid.MustParse("22222222-2222-2222-2222-222222222222")),
	AcmeAcademy:  id.IssuerID(uuid.MustParse("aaaa0000-0000-0000-0000-000000000001")),
	PythonBadge:  id.TemplateID(uuid.MustParse("bbbb0000-0000-0000-0000-000000000001")),
	DataScience:  id.TemplateID(uuid.MustParse("bbbb0000-0000-0000-0000-000000000002")),
	WebDev:       id.TemplateID(uuid.MustParse("bbbb0000-0000-0000-0000-000000000003")),
	PythonExpert: id.TemplateID(uuid.MustParse("bbbb0000-0000-0000-0000-000000000004")),
}

// Alice is the recipient used across the end-to-end scenarios.
func Alice() *models.Recipient {
	return &models.Recipient{ID: TestIDs.Alice, Email: "alice@example.com", Name: "Alice Example"}
}

// NewIssuer returns Acme Academy with a fresh keypair encrypted under km.
// It is the platform default issuer.
func NewIssuer(km *keys.Manager) (*models.Issuer, error) {
	kp, err := km.GenerateKeyPair()
	if err != nil {
		return nil, err
	}
	defer keys.Zero(kp.PrivateKey)
	blob, err := km.EncryptAtRest(kp.PrivateKey)
	if err != nil {
		return nil, err
	}
	return &models.Issuer{
		ID:                  TestIDs.AcmeAcademy,
		Name:                "Acme Academy",
		URL:                 "https://acme.example",
		Email:               "credentials@acme.example",
		PublicKey:           kp.PublicKey,
		EncryptedPrivateKey: blob,
		IsDefault:           true,
		CreatedAt:           time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}, nil
}

// TemplateBuilder provides a fluent interface for building test templates.
type TemplateBuilder struct {
	tmpl *models.Template
}

// NewTemplateBuilder starts from the Python Fundamentals course badge.
func NewTemplateBuilder() *TemplateBuilder {
	return &TemplateBuilder{
		tmpl: &models.Template{
			ID:                TestIDs.PythonBadge,
			MachineName:       "python-fundamentals",
			Name:              "Python Fundamentals",
			Description:       "Core Python language skills",
			CriteriaNarrative: "Complete every module and pass the final assessment",
			Kind:              models.KindCourseBadge,
			CreatedAt:         time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		},
	}
}

func (b *TemplateBuilder) WithID(templateID id.TemplateID) *TemplateBuilder {
	b.tmpl.ID = templateID
	return b
}

func (b *TemplateBuilder) WithMachineName(name string) *TemplateBuilder {
	b.tmpl.MachineName = name
	return b
}

func (b *TemplateBuilder) WithName(name string) *TemplateBuilder {
	b.tmpl.Name = name
	return b
}

func (b *TemplateBuilder) WithKind(kind models.Kind) *TemplateBuilder {
	b.tmpl.Kind = kind
	return b
}

func (b *TemplateBuilder) WithValidityDays(days int) *TemplateBuilder {
	b.tmpl.ValidityDays = days
	return b
}

func (b *TemplateBuilder) WithPassingScore(score float64) *TemplateBuilder {
	b.tmpl.PassingScore = &score
	return b
}

func (b *TemplateBuilder) WithIssuer(issuerID id.IssuerID) *TemplateBuilder {
	b.tmpl.IssuerID = &issuerID
	return b
}

func (b *TemplateBuilder) Build() *models.Template {
	cp := *b.tmpl
	return &cp
}
