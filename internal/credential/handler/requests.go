package handler

import (
	"strings"

	"attest/internal/credential/models"
	id "attest/pkg/domain"
	dErrors "attest/pkg/domain-errors"
	"attest/pkg/validation"
)

type IssueCredentialRequest struct {
	TemplateID  string           `json:"template_id" validate:"required,uuid"`
	RecipientID string           `json:"recipient_id" validate:"required,uuid"`
	Evidence    []map[string]any `json:"evidence" validate:"max=20"`
	Score       *float64         `json:"score"`
	Context     map[string]any   `json:"context" validate:"max=32"`
}

func (r *IssueCredentialRequest) Normalize() {
	if r == nil {
		return
	}
	r.TemplateID = strings.TrimSpace(r.TemplateID)
	r.RecipientID = strings.TrimSpace(r.RecipientID)
}

func (r *IssueCredentialRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	return validation.Validate(r)
}

func (r *IssueCredentialRequest) ToIssueRequest() (models.IssueRequest, error) {
	templateID, err := id.ParseTemplateID(r.TemplateID)
	if err != nil {
		return models.IssueRequest{}, dErrors.New(dErrors.CodeBadRequest, "invalid template_id")
	}
	recipientID, err := id.ParseUserID(r.RecipientID)
	if err != nil {
		return models.IssueRequest{}, dErrors.New(dErrors.CodeBadRequest, "invalid recipient_id")
	}
	var evidence []models.Evidence
	for _, item := range r.Evidence {
		evidence = append(evidence, models.Evidence(item))
	}
	return models.IssueRequest{
		TemplateID:  templateID,
		RecipientID: recipientID,
		Evidence:    evidence,
		Score:       r.Score,
		Context:     r.Context,
	}, nil
}

type RevokeRequest struct {
	Reason string `json:"reason" validate:"required,oneof=fraud error request policy"`
	Notes  string `json:"notes" validate:"max=2000"`
}

func (r *RevokeRequest) Normalize() {
	if r == nil {
		return
	}
	r.Reason = strings.ToLower(strings.TrimSpace(r.Reason))
	r.Notes = strings.TrimSpace(r.Notes)
}

func (r *RevokeRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	return validation.Validate(r)
}

type SuspendRequest struct {
	Reason string `json:"reason" validate:"max=2000"`
}

func (r *SuspendRequest) Normalize() {
	if r == nil {
		return
	}
	r.Reason = strings.TrimSpace(r.Reason)
}

func (r *SuspendRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	return validation.Validate(r)
}
