// Package domain provides type-safe identifiers to prevent mixing up IDs at compile time.
package domain

import (
	"github.com/google/uuid"

	dErrors "attest/pkg/domain-errors"
)

// Distinct ID types - compiler prevents passing a TemplateID where a CredentialID is expected.
type (
	UserID       uuid.UUID
	IssuerID     uuid.UUID
	TemplateID   uuid.UUID
	CredentialID uuid.UUID
	StackID      uuid.UUID
	RevocationID uuid.UUID
)

// New constructors - use when minting records inside the service.

func NewUserID() UserID             { return UserID(uuid.New()) }
func NewIssuerID() IssuerID         { return IssuerID(uuid.New()) }
func NewTemplateID() TemplateID     { return TemplateID(uuid.New()) }
func NewCredentialID() CredentialID { return CredentialID(uuid.New()) }
func NewStackID() StackID           { return StackID(uuid.New()) }
func NewRevocationID() RevocationID { return RevocationID(uuid.New()) }

// Parse functions - use at trust boundaries (handlers, API inputs, seed files).

func ParseUserID(s string) (UserID, error) {
	id, err := parseUUID(s, "user ID")
	return UserID(id), err
}

func ParseIssuerID(s string) (IssuerID, error) {
	id, err := parseUUID(s, "issuer ID")
	return IssuerID(id), err
}

func ParseTemplateID(s string) (TemplateID, error) {
	id, err := parseUUID(s, "template ID")
	return TemplateID(id), err
}

func ParseCredentialID(s string) (CredentialID, error) {
	id, err := parseUUID(s, "credential ID")
	return CredentialID(id), err
}

func ParseStackID(s string) (StackID, error) {
	id, err := parseUUID(s, "stack ID")
	return StackID(id), err
}

// String methods - for logging and debugging.

func (id UserID) String() string       { return uuid.UUID(id).String() }
func (id IssuerID) String() string     { return uuid.UUID(id).String() }
func (id TemplateID) String() string   { return uuid.UUID(id).String() }
func (id CredentialID) String() string { return uuid.UUID(id).String() }
func (id StackID) String() string      { return uuid.UUID(id).String() }
func (id RevocationID) String() string { return uuid.UUID(id).String() }

// IsNil checks - used for service-layer validation.

func (id UserID) IsNil() bool       { return uuid.UUID(id) == uuid.Nil }
func (id IssuerID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id TemplateID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }
func (id CredentialID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id StackID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }
func (id RevocationID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// Text marshaling keeps JSON and YAML representations as plain UUID strings.

func (id UserID) MarshalText() ([]byte, error)       { return uuid.UUID(id).MarshalText() }
func (id TemplateID) MarshalText() ([]byte, error)   { return uuid.UUID(id).MarshalText() }
func (id IssuerID) MarshalText() ([]byte, error)     { return uuid.UUID(id).MarshalText() }
func (id CredentialID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }
func (id StackID) MarshalText() ([]byte, error)      { return uuid.UUID(id).MarshalText() }
func (id RevocationID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }

func (id *UserID) UnmarshalText(b []byte) error       { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *TemplateID) UnmarshalText(b []byte) error   { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *IssuerID) UnmarshalText(b []byte) error     { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *CredentialID) UnmarshalText(b []byte) error { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *StackID) UnmarshalText(b []byte) error      { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *RevocationID) UnmarshalText(b []byte) error { return (*uuid.UUID)(id).UnmarshalText(b) }

// parseUUID rejects empty, malformed and nil UUIDs. label names the ID in the
// error message.
func parseUUID(s, label string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" cannot be empty")
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+label+" format")
	}
	if id == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" cannot be nil")
	}
	return id, nil
}
