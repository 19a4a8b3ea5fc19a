package admin

import (
	"time"

	credmodels "attest/internal/credential/models"
	"attest/pkg/platform/audit"
)

type AuditEventResponse struct {
	Timestamp time.Time `json:"timestamp"`
	ActorID   string    `json:"actor_id,omitempty"`
	Subject   string    `json:"subject"`
	Action    string    `json:"action"`
	Reason    string    `json:"reason,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
	IP        string    `json:"ip,omitempty"`
	UserAgent string    `json:"user_agent,omitempty"`
}

type AuditEventsResponse struct {
	Events []*AuditEventResponse `json:"events"`
	Total  int                   `json:"total"`
}

// HoldingResponse is one credential as seen by an operator. The signed
// document is left out; the public verify endpoint serves it.
type HoldingResponse struct {
	ID         string     `json:"id"`
	TemplateID string     `json:"template_id"`
	IssuerID   string     `json:"issuer_id"`
	Status     string     `json:"status"`
	IssuedAt   time.Time  `json:"issued_at"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
}

type HoldingsResponse struct {
	Credentials []*HoldingResponse `json:"credentials"`
	Total       int                `json:"total"`
}

type RecipientResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

func toAuditEventsResponse(events []audit.Event) *AuditEventsResponse {
	out := make([]*AuditEventResponse, len(events))
	for i, e := range events {
		resp := &AuditEventResponse{
			Timestamp: e.Timestamp,
			Subject:   e.Subject,
			Action:    e.Action,
			Reason:    e.Reason,
			RequestID: e.RequestID,
			IP:        e.IP,
			UserAgent: e.UserAgent,
		}
		if !e.ActorID.IsNil() {
			resp.ActorID = e.ActorID.String()
		}
		out[i] = resp
	}
	return &AuditEventsResponse{Events: out, Total: len(out)}
}

func toHoldingsResponse(creds []*credmodels.IssuedCredential) *HoldingsResponse {
	out := make([]*HoldingResponse, len(creds))
	for i, c := range creds {
		out[i] = &HoldingResponse{
			ID:         c.ID.String(),
			TemplateID: c.TemplateID.String(),
			IssuerID:   c.IssuerID.String(),
			Status:     string(c.Status),
			IssuedAt:   c.IssuedAt,
			ExpiresAt:  c.ExpiresAt,
		}
	}
	return &HoldingsResponse{Credentials: out, Total: len(out)}
}
