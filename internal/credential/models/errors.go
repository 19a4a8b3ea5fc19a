package models

import "errors"

// Sentinels are wrapped with a domain code at the point of return, so callers
// can match either the sentinel or the code.
var (
	ErrTemplateNotFound    = errors.New("template not found")
	ErrIssuerNotConfigured = errors.New("no issuer configured")
	ErrIssuerMissingKeys   = errors.New("issuer has no key material")
	ErrCredentialNotFound  = errors.New("credential not found")
	ErrAlreadyRevoked      = errors.New("credential already revoked")
	ErrAlreadyIssued       = errors.New("credential already issued for template and recipient")
	ErrRecipientNotFound   = errors.New("recipient not found")
	ErrBelowPassingScore   = errors.New("score below passing threshold")
	ErrInvalidTransition   = errors.New("invalid status transition")
)
