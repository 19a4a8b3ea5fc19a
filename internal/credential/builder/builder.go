// Package builder assembles Open Badges 3.0 credential documents.
package builder

import (
	"encoding/base64"
	"strings"
	"time"

	"attest/internal/credential/models"
	id "attest/pkg/domain"
)

const (
	ContextCredentials = "https://www.w3.org/2018/credentials/v1"
	ContextOpenBadges  = "https://purl.imsglobal.org/spec/ob/v3p0/context.json"

	ProofType    = "Ed25519Signature2020"
	ProofPurpose = "assertionMethod"
)

// Input is everything a document is derived from.
type Input struct {
	BaseURL      string
	CredentialID id.CredentialID
	Template     *models.Template
	Issuer       *models.Issuer
	Recipient    models.Recipient
	IssuedAt     time.Time
	ExpiresAt    *time.Time
	Evidence     []models.Evidence
}

// Proof is the signature block attached after signing.
type Proof struct {
	Created            time.Time
	VerificationMethod string
	Signature          []byte
}

// Build returns the unsigned document for in.
func Build(in Input) models.Document {
	base := strings.TrimRight(in.BaseURL, "/")

	doc := models.Document{
		"@context":     []any{ContextCredentials, ContextOpenBadges},
		"id":           VerificationURL(base, in.CredentialID),
		"type":         []any{"VerifiableCredential", "OpenBadgeCredential"},
		"issuer":       issuerSection(base, in.Issuer),
		"issuanceDate": formatTime(in.IssuedAt),
		"credentialSubject": map[string]any{
			"id":          SubjectID(in.Recipient),
			"type":        "AchievementSubject",
			"name":        in.Recipient.Name,
			"achievement": achievementSection(base, in.Template),
		},
	}
	if in.ExpiresAt != nil {
		doc["expirationDate"] = formatTime(*in.ExpiresAt)
	}
	if len(in.Evidence) > 0 {
		items := make([]any, 0, len(in.Evidence))
		for _, ev := range in.Evidence {
			items = append(items, map[string]any(ev))
		}
		doc["evidence"] = items
	}
	return doc
}

// WithProof returns a copy of doc carrying the proof block.
func WithProof(doc models.Document, p Proof) models.Document {
	out := make(models.Document, len(doc)+1)
	for k, v := range doc {
		out[k] = v
	}
	out["proof"] = map[string]any{
		"type":               ProofType,
		"created":            formatTime(p.Created),
		"proofPurpose":       ProofPurpose,
		"verificationMethod": p.VerificationMethod,
		"proofValue":         base64.StdEncoding.EncodeToString(p.Signature),
	}
	return out
}

// VerificationURL is the public verification link and document id.
func VerificationURL(baseURL string, credentialID id.CredentialID) string {
	return strings.TrimRight(baseURL, "/") + "/verify/" + credentialID.String()
}

// IssuerURL identifies the issuer profile.
func IssuerURL(baseURL string, issuerID id.IssuerID) string {
	return strings.TrimRight(baseURL, "/") + "/issuers/" + issuerID.String()
}

// VerificationMethod identifies the issuer signing key.
func VerificationMethod(baseURL string, issuerID id.IssuerID) string {
	return IssuerURL(baseURL, issuerID) + "#key-1"
}

// SubjectID prefers the recipient email and falls back to the user id.
func SubjectID(r models.Recipient) string {
	if email := strings.TrimSpace(r.Email); email != "" {
		return "mailto:" + email
	}
	return "urn:uuid:" + r.ID.String()
}

// AchievementType maps a template kind to the Open Badges achievement type.
func AchievementType(kind models.Kind) string {
	switch kind {
	case models.KindBadge:
		return "Badge"
	case models.KindCourseBadge:
		return "CourseBadge"
	case models.KindCertificate, models.KindPathCertificate:
		return "Certificate"
	case models.KindDiploma:
		return "Diploma"
	case models.KindEndorsement, models.KindSkillEndorsement:
		return "Endorsement"
	default:
		return "Achievement"
	}
}

func issuerSection(base string, iss *models.Issuer) map[string]any {
	section := map[string]any{
		"id":   IssuerURL(base, iss.ID),
		"type": "Profile",
		"name": iss.Name,
	}
	putIfSet(section, "email", iss.Email)
	putIfSet(section, "url", iss.URL)
	putIfSet(section, "image", iss.ImageURL)
	return section
}

func achievementSection(base string, tmpl *models.Template) map[string]any {
	section := map[string]any{
		"id":          base + "/achievements/" + tmpl.ID.String(),
		"type":        "Achievement",
		"name":        tmpl.Name,
		"description": tmpl.Description,
		"criteria": map[string]any{
			"type":      "Criteria",
			"narrative": tmpl.CriteriaNarrative,
		},
		"achievementType": AchievementType(tmpl.Kind),
	}
	putIfSet(section, "image", tmpl.ImageURL)
	return section
}

func putIfSet(m map[string]any, key, value string) {
	if value != "" {
		m[key] = value
	}
}

func formatTime(t time.Time) string {
	return t.UTC().Truncate(time.Second).Format(time.RFC3339)
}
