// Package models defines the revocation ledger entries.
package models

import (
	"strings"
	"time"

	id "attest/pkg/domain"
	dErrors "attest/pkg/domain-errors"
)

// Reason is why a credential was revoked.
type Reason string

const (
	ReasonFraud   Reason = "fraud"
	ReasonError   Reason = "error"
	ReasonRequest Reason = "request"
	ReasonPolicy  Reason = "policy"
)

// ParseReason validates a revocation reason.
func ParseReason(value string) (Reason, error) {
	r := Reason(strings.TrimSpace(strings.ToLower(value)))
	switch r {
	case ReasonFraud, ReasonError, ReasonRequest, ReasonPolicy:
		return r, nil
	default:
		return "", dErrors.New(dErrors.CodeValidation, "reason must be one of [fraud error request policy]")
	}
}

func (r Reason) IsValid() bool {
	_, err := ParseReason(string(r))
	return err == nil
}

// Entry is one insert-only row of the revocation ledger.
type Entry struct {
	ID           id.RevocationID `json:"id"`
	CredentialID id.CredentialID `json:"credential_id"`
	RevokedBy    id.UserID       `json:"revoked_by"`
	Reason       Reason          `json:"reason"`
	Notes        string          `json:"notes,omitempty"`
	RevokedAt    time.Time       `json:"revoked_at"`
}

// RevokeRequest asks the registry to revoke one credential.
type RevokeRequest struct {
	CredentialID id.CredentialID
	RevokedBy    id.UserID
	Reason       Reason
	Notes        string
}
