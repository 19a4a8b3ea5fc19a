package handler

import (
	"encoding/json"
	"time"

	"attest/internal/credential/models"
	revmodels "attest/internal/revocation/models"
)

type CredentialResponse struct {
	ID              string            `json:"id"`
	TemplateID      string            `json:"template_id"`
	IssuerID        string            `json:"issuer_id"`
	RecipientID     string            `json:"recipient_id"`
	RecipientEmail  string            `json:"recipient_email,omitempty"`
	Status          models.Status     `json:"status"`
	IssuedAt        time.Time         `json:"issued_at"`
	ExpiresAt       *time.Time        `json:"expires_at,omitempty"`
	VerificationURL string            `json:"verification_url"`
	Evidence        []models.Evidence `json:"evidence,omitempty"`
	Document        json.RawMessage   `json:"document,omitempty"`
}

type TemplateResponse struct {
	ID          string      `json:"id"`
	MachineName string      `json:"machine_name"`
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	Kind        models.Kind `json:"kind"`
	ImageURL    string      `json:"image_url,omitempty"`
}

type VerifyResponse struct {
	IsValid    bool                  `json:"is_valid"`
	Message    string                `json:"message"`
	Reason     models.Reason         `json:"reason,omitempty"`
	Credential *CredentialResponse   `json:"credential,omitempty"`
	Template   *TemplateResponse     `json:"template,omitempty"`
	Issuer     *models.IssuerProfile `json:"issuer,omitempty"`
}

// RevocationResponse is the public view of a ledger entry. The acting
// admin and free-text notes stay internal.
type RevocationResponse struct {
	ID           string           `json:"id"`
	CredentialID string           `json:"credential_id"`
	Reason       revmodels.Reason `json:"reason"`
	RevokedAt    time.Time        `json:"revoked_at"`
}

type RevocationsResponse struct {
	Revocations []RevocationResponse `json:"revocations"`
}

func toCredentialResponse(cred *models.IssuedCredential) *CredentialResponse {
	if cred == nil {
		return nil
	}
	resp := &CredentialResponse{
		ID:              cred.ID.String(),
		TemplateID:      cred.TemplateID.String(),
		IssuerID:        cred.IssuerID.String(),
		RecipientID:     cred.Recipient.ID.String(),
		RecipientEmail:  cred.Recipient.Email,
		Status:          cred.Status,
		IssuedAt:        cred.IssuedAt,
		ExpiresAt:       cred.ExpiresAt,
		VerificationURL: cred.VerificationURL,
		Evidence:        cred.Evidence,
	}
	// A stored document that no longer parses is still reported, just not embedded.
	if json.Valid(cred.Document) {
		resp.Document = json.RawMessage(cred.Document)
	}
	return resp
}

func toTemplateResponse(tmpl *models.Template) *TemplateResponse {
	if tmpl == nil {
		return nil
	}
	return &TemplateResponse{
		ID:          tmpl.ID.String(),
		MachineName: tmpl.MachineName,
		Name:        tmpl.Name,
		Description: tmpl.Description,
		Kind:        tmpl.Kind,
		ImageURL:    tmpl.ImageURL,
	}
}

func toVerifyResponse(result *models.VerifyResult) *VerifyResponse {
	return &VerifyResponse{
		IsValid:    result.Valid,
		Message:    result.Message,
		Reason:     result.Reason,
		Credential: toCredentialResponse(result.Credential),
		Template:   toTemplateResponse(result.Template),
		Issuer:     result.Issuer,
	}
}

func toRevocationsResponse(entries []*revmodels.Entry) *RevocationsResponse {
	out := make([]RevocationResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, RevocationResponse{
			ID:           e.ID.String(),
			CredentialID: e.CredentialID.String(),
			Reason:       e.Reason,
			RevokedAt:    e.RevokedAt,
		})
	}
	return &RevocationsResponse{Revocations: out}
}
