// Package events carries credential lifecycle events from the services to
// in-process subscribers (stack evaluation) and, asynchronously, to the
// outbound sink.
package events

import (
	"context"
	"time"

	id "attest/pkg/domain"
)

// Type names an event.
type Type string

const (
	CredentialIssued    Type = "credential.issued"
	CredentialRevoked   Type = "credential.revoked"
	CredentialSuspended Type = "credential.suspended"
	CredentialExpired   Type = "credential.expired"
	StackCompleted      Type = "stack.completed"
)

// Event is the payload shared by every event type. Fields that do not apply
// are left zero.
type Event struct {
	Type         Type            `json:"type"`
	CredentialID id.CredentialID `json:"credential_id"`
	TemplateID   id.TemplateID   `json:"template_id"`
	RecipientID  id.UserID       `json:"recipient_id"`
	StackID      *id.StackID     `json:"stack_id,omitempty"`
	Reason       string          `json:"reason,omitempty"`
	OccurredAt   time.Time       `json:"occurred_at"`
	RequestID    string          `json:"request_id,omitempty"`
}

// Dispatcher publishes events. Dispatch never fails the caller: delivery
// problems are logged and counted by the implementation.
type Dispatcher interface {
	Dispatch(ctx context.Context, event Event)
}

// Handler consumes an event.
type Handler func(ctx context.Context, event Event) error

// Noop discards events.
type Noop struct{}

func (Noop) Dispatch(context.Context, Event) {}
