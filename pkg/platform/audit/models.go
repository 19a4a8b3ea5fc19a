package audit

import (
	"context"
	"time"

	id "attest/pkg/domain"
)

// Event is emitted from domain logic to capture key credential lifecycle
// actions. Keep it transport-agnostic so stores and sinks can fan out.
type Event struct {
	Timestamp time.Time
	// ActorID is the authenticated operator; nil for public verification.
	ActorID id.UserID
	// Subject is the credential (or stack) the action applies to.
	Subject   string
	Action    string
	Reason    string
	RequestID string
	IP        string
	UserAgent string
}

type AuditEvent string

const (
	EventCredentialIssued    AuditEvent = "credential_issued"
	EventCredentialRevoked   AuditEvent = "credential_revoked"
	EventCredentialSuspended AuditEvent = "credential_suspended"
	EventCredentialVerified  AuditEvent = "credential_verified"
	EventCredentialExpired   AuditEvent = "credential_expired"
	EventStackCompleted      AuditEvent = "stack_completed"
	EventIssuerKeyGenerated  AuditEvent = "issuer_key_generated"
)

// Store persists audit events. Implementations are append-only.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListBySubject(ctx context.Context, subject string) ([]Event, error)
	ListRecent(ctx context.Context, limit int) ([]Event, error)
}
