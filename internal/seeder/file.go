package seeder

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"attest/internal/credential/models"
	stackmodels "attest/internal/stack/models"
	id "attest/pkg/domain"
)

// namespace derives stable IDs for seeded rows that do not carry one.
var namespace = uuid.MustParse("6f1f0c2e-8a53-4d8e-9a4b-3c6f0e5d7a21")

// File is the seed document.
type File struct {
	Issuers    []IssuerSeed    `yaml:"issuers"`
	Templates  []TemplateSeed  `yaml:"templates"`
	Stacks     []StackSeed     `yaml:"stacks"`
	Recipients []RecipientSeed `yaml:"recipients"`
}

// IssuerSeed is referenced from templates by Key.
type IssuerSeed struct {
	Key      string `yaml:"key"`
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	URL      string `yaml:"url"`
	Email    string `yaml:"email"`
	ImageURL string `yaml:"image_url"`
	Default  bool   `yaml:"default"`
}

// TemplateSeed is referenced from stacks by MachineName.
type TemplateSeed struct {
	ID           string   `yaml:"id"`
	MachineName  string   `yaml:"machine_name"`
	Name         string   `yaml:"name"`
	Description  string   `yaml:"description"`
	Criteria     string   `yaml:"criteria"`
	Kind         string   `yaml:"kind"`
	ValidityDays int      `yaml:"validity_days"`
	PassingScore *float64 `yaml:"passing_score"`
	Issuer       string   `yaml:"issuer"`
	ImageURL     string   `yaml:"image_url"`
}

type StackSeed struct {
	ID          string         `yaml:"id"`
	MachineName string         `yaml:"machine_name"`
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Required    []string       `yaml:"required"`
	Optional    []string       `yaml:"optional"`
	MinRequired int            `yaml:"min_required"`
	Result      string         `yaml:"result"`
	Bonus       map[string]any `yaml:"bonus"`
	Active      *bool          `yaml:"active"`
}

type RecipientSeed struct {
	ID    string `yaml:"id"`
	Email string `yaml:"email"`
	Name  string `yaml:"name"`
}

// Load reads a seed file from disk.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a seed document. Unknown keys are rejected so typos surface
// at startup.
func Parse(data []byte) (*File, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var f File
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}
	return &f, nil
}

func (s IssuerSeed) issuerID() (id.IssuerID, error) {
	if s.Key == "" {
		return id.IssuerID{}, errors.New("issuer key is required")
	}
	if s.ID != "" {
		issuerID, err := id.ParseIssuerID(s.ID)
		if err != nil {
			return id.IssuerID{}, fmt.Errorf("issuer %s: %w", s.Key, err)
		}
		return issuerID, nil
	}
	return id.IssuerID(derive("issuer", s.Key)), nil
}

func (s TemplateSeed) toTemplate(issuers map[string]id.IssuerID, now time.Time) (*models.Template, error) {
	if s.MachineName == "" {
		return nil, errors.New("template machine_name is required")
	}
	templateID := id.TemplateID(derive("template", s.MachineName))
	if s.ID != "" {
		parsed, err := id.ParseTemplateID(s.ID)
		if err != nil {
			return nil, fmt.Errorf("template %s: %w", s.MachineName, err)
		}
		templateID = parsed
	}
	kind, err := models.ParseKind(s.Kind)
	if err != nil {
		return nil, fmt.Errorf("template %s: %w", s.MachineName, err)
	}
	tmpl := &models.Template{
		ID:                templateID,
		MachineName:       s.MachineName,
		Name:              s.Name,
		Description:       s.Description,
		CriteriaNarrative: s.Criteria,
		Kind:              kind,
		ValidityDays:      s.ValidityDays,
		PassingScore:      s.PassingScore,
		ImageURL:          s.ImageURL,
		CreatedAt:         now,
	}
	if s.Issuer != "" {
		issuerID, ok := issuers[s.Issuer]
		if !ok {
			return nil, fmt.Errorf("template %s: unknown issuer %q", s.MachineName, s.Issuer)
		}
		tmpl.IssuerID = &issuerID
	}
	return tmpl, nil
}

func (s StackSeed) toStack(templates map[string]id.TemplateID) (*stackmodels.Stack, error) {
	if s.MachineName == "" {
		return nil, errors.New("stack machine_name is required")
	}
	stackID := id.StackID(derive("stack", s.MachineName))
	if s.ID != "" {
		parsed, err := id.ParseStackID(s.ID)
		if err != nil {
			return nil, fmt.Errorf("stack %s: %w", s.MachineName, err)
		}
		stackID = parsed
	}
	resolve := func(names []string) ([]id.TemplateID, error) {
		out := make([]id.TemplateID, 0, len(names))
		for _, name := range names {
			templateID, ok := templates[strings.TrimSpace(name)]
			if !ok {
				return nil, fmt.Errorf("stack %s: unknown template %q", s.MachineName, name)
			}
			out = append(out, templateID)
		}
		return out, nil
	}
	required, err := resolve(s.Required)
	if err != nil {
		return nil, err
	}
	optional, err := resolve(s.Optional)
	if err != nil {
		return nil, err
	}
	result, err := resolve([]string{s.Result})
	if err != nil {
		return nil, err
	}
	active := true
	if s.Active != nil {
		active = *s.Active
	}
	return &stackmodels.Stack{
		ID:               stackID,
		MachineName:      s.MachineName,
		Name:             s.Name,
		Description:      s.Description,
		Required:         required,
		Optional:         optional,
		MinRequired:      s.MinRequired,
		ResultTemplateID: result[0],
		BonusAttributes:  s.Bonus,
		Active:           active,
	}, nil
}

func (s RecipientSeed) userID() (id.UserID, error) {
	if s.ID != "" {
		userID, err := id.ParseUserID(s.ID)
		if err != nil {
			return id.UserID{}, fmt.Errorf("recipient %s: %w", s.Email, err)
		}
		return userID, nil
	}
	if s.Email == "" {
		return id.UserID{}, errors.New("recipient needs an id or email")
	}
	return id.UserID(derive("recipient", strings.ToLower(s.Email))), nil
}

func derive(kind, name string) uuid.UUID {
	return uuid.NewSHA1(namespace, []byte(kind+"/"+name))
}
