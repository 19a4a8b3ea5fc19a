// Package seeder loads issuers, templates, stacks and recipients from a YAML
// file into the configured stores. Seeding is idempotent: IDs not given in the
// file are derived from stable names, and issuers that already hold keys keep
// them.
package seeder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"attest/internal/credential/models"
	"attest/internal/keys"
	stackmodels "attest/internal/stack/models"
	id "attest/pkg/domain"
	"attest/pkg/platform/sentinel"
)

// IssuerStore defines methods for seeding issuers
type IssuerStore interface {
	Save(ctx context.Context, iss *models.Issuer) error
	FindByID(ctx context.Context, issuerID id.IssuerID) (*models.Issuer, error)
}

// TemplateStore defines methods for seeding templates
type TemplateStore interface {
	Save(ctx context.Context, tmpl *models.Template) error
}

// StackStore defines methods for seeding stacks
type StackStore interface {
	SaveStack(ctx context.Context, stack *stackmodels.Stack) error
}

// RecipientStore defines methods for seeding recipients
type RecipientStore interface {
	Save(ctx context.Context, r *models.Recipient) error
}

// ProfileInvalidator drops cached issuer profiles.
type ProfileInvalidator interface {
	Invalidate(ctx context.Context, issuerID id.IssuerID) error
}

// KeyGenerator creates issuer keypairs and seals the private half.
type KeyGenerator interface {
	GenerateKeyPair() (keys.KeyPair, error)
	EncryptAtRest(privateKey []byte) ([]byte, error)
}

// Stores groups the destinations of a seed run. Profiles is optional.
type Stores struct {
	Issuers    IssuerStore
	Templates  TemplateStore
	Stacks     StackStore
	Recipients RecipientStore
	Profiles   ProfileInvalidator
}

// Summary counts what a seed run wrote.
type Summary struct {
	Issuers       int
	KeysGenerated int
	Templates     int
	Stacks        int
	Recipients    int
}

// Seeder writes a parsed seed File into the stores.
type Seeder struct {
	stores Stores
	keys   KeyGenerator
	logger *slog.Logger
	now    func() time.Time
}

// New creates a new seeder
func New(stores Stores, keyGen KeyGenerator, logger *slog.Logger) *Seeder {
	return &Seeder{
		stores: stores,
		keys:   keyGen,
		logger: logger,
		now:    time.Now,
	}
}

// SeedFile loads path and seeds its contents.
func (s *Seeder) SeedFile(ctx context.Context, path string) (*Summary, error) {
	f, err := Load(path)
	if err != nil {
		return nil, err
	}
	return s.Seed(ctx, f)
}

// Seed writes issuers first, then templates that may name them, then stacks
// built from templates, then recipients.
func (s *Seeder) Seed(ctx context.Context, f *File) (*Summary, error) {
	s.logger.InfoContext(ctx, "seeding catalog...")
	summary := &Summary{}

	issuerIDs, err := s.seedIssuers(ctx, f.Issuers, summary)
	if err != nil {
		return nil, fmt.Errorf("failed to seed issuers: %w", err)
	}

	templateIDs, err := s.seedTemplates(ctx, f.Templates, issuerIDs, summary)
	if err != nil {
		return nil, fmt.Errorf("failed to seed templates: %w", err)
	}

	if err := s.seedStacks(ctx, f.Stacks, templateIDs, summary); err != nil {
		return nil, fmt.Errorf("failed to seed stacks: %w", err)
	}

	if err := s.seedRecipients(ctx, f.Recipients, summary); err != nil {
		return nil, fmt.Errorf("failed to seed recipients: %w", err)
	}

	s.logger.InfoContext(ctx, "catalog seeded",
		"issuers", summary.Issuers,
		"keys_generated", summary.KeysGenerated,
		"templates", summary.Templates,
		"stacks", summary.Stacks,
		"recipients", summary.Recipients,
	)
	return summary, nil
}

func (s *Seeder) seedIssuers(ctx context.Context, seeds []IssuerSeed, summary *Summary) (map[string]id.IssuerID, error) {
	byKey := make(map[string]id.IssuerID, len(seeds))
	for _, seed := range seeds {
		issuerID, err := seed.issuerID()
		if err != nil {
			return nil, err
		}
		iss := &models.Issuer{
			ID:        issuerID,
			Name:      seed.Name,
			URL:       seed.URL,
			Email:     seed.Email,
			ImageURL:  seed.ImageURL,
			IsDefault: seed.Default,
			CreatedAt: s.now().UTC(),
		}

		existing, err := s.stores.Issuers.FindByID(ctx, issuerID)
		rewrite := err == nil
		switch {
		case err == nil && existing.HasKeys():
			iss.PublicKey = existing.PublicKey
			iss.EncryptedPrivateKey = existing.EncryptedPrivateKey
			iss.CreatedAt = existing.CreatedAt
		case err != nil && !errors.Is(err, sentinel.ErrNotFound):
			return nil, fmt.Errorf("load issuer %s: %w", seed.Key, err)
		default:
			if err := s.generateKeys(iss); err != nil {
				return nil, fmt.Errorf("issuer %s: %w", seed.Key, err)
			}
			summary.KeysGenerated++
		}

		if err := s.stores.Issuers.Save(ctx, iss); err != nil {
			return nil, fmt.Errorf("save issuer %s: %w", seed.Key, err)
		}
		if rewrite {
			s.invalidateProfile(ctx, issuerID)
		}
		byKey[seed.Key] = issuerID
		summary.Issuers++
	}
	return byKey, nil
}

// invalidateProfile drops a stale cached profile. A failure is logged; the
// entry still expires with its TTL.
func (s *Seeder) invalidateProfile(ctx context.Context, issuerID id.IssuerID) {
	if s.stores.Profiles == nil {
		return
	}
	if err := s.stores.Profiles.Invalidate(ctx, issuerID); err != nil {
		s.logger.WarnContext(ctx, "issuer profile invalidation failed", "issuer_id", issuerID.String(), "error", err)
	}
}

func (s *Seeder) generateKeys(iss *models.Issuer) error {
	kp, err := s.keys.GenerateKeyPair()
	if err != nil {
		return err
	}
	defer keys.Zero(kp.PrivateKey)
	blob, err := s.keys.EncryptAtRest(kp.PrivateKey)
	if err != nil {
		return err
	}
	iss.PublicKey = kp.PublicKey
	iss.EncryptedPrivateKey = blob
	return nil
}

func (s *Seeder) seedTemplates(ctx context.Context, seeds []TemplateSeed, issuers map[string]id.IssuerID, summary *Summary) (map[string]id.TemplateID, error) {
	byName := make(map[string]id.TemplateID, len(seeds))
	for _, seed := range seeds {
		tmpl, err := seed.toTemplate(issuers, s.now().UTC())
		if err != nil {
			return nil, err
		}
		if err := s.stores.Templates.Save(ctx, tmpl); err != nil {
			return nil, fmt.Errorf("save template %s: %w", seed.MachineName, err)
		}
		byName[seed.MachineName] = tmpl.ID
		summary.Templates++
	}
	return byName, nil
}

func (s *Seeder) seedStacks(ctx context.Context, seeds []StackSeed, templates map[string]id.TemplateID, summary *Summary) error {
	for _, seed := range seeds {
		stack, err := seed.toStack(templates)
		if err != nil {
			return err
		}
		if err := stack.Validate(); err != nil {
			return fmt.Errorf("stack %s: %w", seed.MachineName, err)
		}
		if err := s.stores.Stacks.SaveStack(ctx, stack); err != nil {
			return fmt.Errorf("save stack %s: %w", seed.MachineName, err)
		}
		summary.Stacks++
	}
	return nil
}

func (s *Seeder) seedRecipients(ctx context.Context, seeds []RecipientSeed, summary *Summary) error {
	for _, seed := range seeds {
		userID, err := seed.userID()
		if err != nil {
			return err
		}
		if err := s.stores.Recipients.Save(ctx, &models.Recipient{ID: userID, Email: seed.Email, Name: seed.Name}); err != nil {
			return fmt.Errorf("save recipient %s: %w", seed.Email, err)
		}
		summary.Recipients++
	}
	return nil
}
