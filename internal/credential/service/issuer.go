// Package service issues, verifies and suspends credentials.
package service

import (
	"context"
	"errors"
	"maps"
	"time"

	"attest/internal/credential/builder"
	"attest/internal/credential/canonical"
	"attest/internal/credential/models"
	"attest/internal/events"
	"attest/internal/platform/tracer"
	id "attest/pkg/domain"
	dErrors "attest/pkg/domain-errors"
	"attest/pkg/platform/audit"
	"attest/pkg/platform/sentinel"
	"attest/pkg/requestcontext"
)

// IssuerDeps are the collaborators the Issuer needs.
type IssuerDeps struct {
	Templates   TemplateStore
	Issuers     IssuerStore
	Recipients  RecipientDirectory
	Credentials CredentialStore
	Keys        Signer
}

// Issuer builds, signs and persists credentials.
type Issuer struct {
	deps    IssuerDeps
	baseURL string
	observability
}

// NewIssuer constructs an Issuer. baseURL prefixes verification and issuer
// URLs in issued documents.
func NewIssuer(deps IssuerDeps, baseURL string, opts ...Option) *Issuer {
	return &Issuer{
		deps:          deps,
		baseURL:       baseURL,
		observability: newObservability(opts),
	}
}

// IssueCredential awards req.TemplateID to req.RecipientID. Nothing is
// persisted unless the document was built and signed.
func (s *Issuer) IssueCredential(ctx context.Context, req models.IssueRequest) (cred *models.IssuedCredential, err error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, tracer.SpanIssue, tracer.String(tracer.AttrTemplateID, req.TemplateID.String()))
	defer func() {
		span.End(err)
		s.metrics.ObserveIssueDuration(time.Since(start).Seconds())
		if err != nil {
			s.metrics.IncIssueFailure(string(dErrors.CodeOf(err, dErrors.CodeInternal)))
		}
	}()

	if req.TemplateID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "template_id is required")
	}
	if req.RecipientID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "recipient_id is required")
	}

	tmpl, err := s.loadTemplate(ctx, req.TemplateID)
	if err != nil {
		return nil, err
	}
	iss, err := s.resolveIssuer(ctx, tmpl)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(tracer.String(tracer.AttrIssuerID, iss.ID.String()))

	recipient, err := s.deps.Recipients.FindByID(ctx, req.RecipientID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(models.ErrRecipientNotFound, dErrors.CodeNotFound, "recipient not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load recipient")
	}

	if req.Score != nil && !tmpl.MeetsPassingScore(*req.Score) {
		return nil, dErrors.Wrap(models.ErrBelowPassingScore, dErrors.CodeValidation, "score is below the template passing score")
	}

	issuedAt := requestcontext.Now(ctx).UTC().Truncate(time.Second)
	credID := id.NewCredentialID()
	span.SetAttributes(tracer.String(tracer.AttrCredentialID, credID.String()))

	in := builder.Input{
		BaseURL:      s.baseURL,
		CredentialID: credID,
		Template:     tmpl,
		Issuer:       iss,
		Recipient:    *recipient,
		IssuedAt:     issuedAt,
		ExpiresAt:    tmpl.ExpiresAt(issuedAt),
		Evidence:     evidenceFor(req),
	}
	document, signature, err := s.sign(ctx, in)
	if err != nil {
		return nil, err
	}

	cred = &models.IssuedCredential{
		ID:              credID,
		TemplateID:      tmpl.ID,
		IssuerID:        iss.ID,
		Recipient:       *recipient,
		IssuedAt:        issuedAt,
		ExpiresAt:       in.ExpiresAt,
		Evidence:        in.Evidence,
		Status:          models.StatusActive,
		Document:        document,
		Signature:       signature,
		VerificationURL: builder.VerificationURL(s.baseURL, credID),
	}
	if err := s.deps.Credentials.Create(ctx, cred); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.Wrap(models.ErrAlreadyIssued, dErrors.CodeConflict, "recipient already holds an active credential for this template")
		}
		s.logError(ctx, "failed to persist credential", err, "credential_id", credID.String())
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store credential")
	}

	s.metrics.IncIssued(string(tmpl.Kind))
	s.auditor.Log(ctx, audit.EventCredentialIssued,
		"subject", credID.String(),
		"template_id", tmpl.ID.String(),
		"recipient_id", recipient.ID.String(),
	)
	s.dispatcher.Dispatch(ctx, events.Event{
		Type:         events.CredentialIssued,
		CredentialID: credID,
		TemplateID:   tmpl.ID,
		RecipientID:  recipient.ID,
		OccurredAt:   issuedAt,
		RequestID:    requestcontext.RequestID(ctx),
	})
	return cred, nil
}

// sign canonicalizes the unsigned document, signs it and returns the stored
// form (proof attached) with the detached signature.
func (s *Issuer) sign(ctx context.Context, in builder.Input) (document, signature []byte, err error) {
	_, span := s.tracer.Start(ctx, tracer.SpanSign, tracer.String(tracer.AttrIssuerID, in.Issuer.ID.String()))
	defer func() { span.End(err) }()

	doc := builder.Build(in)
	message, err := canonical.Marshal(doc)
	if err != nil {
		return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to canonicalize document")
	}
	signature, err = s.deps.Keys.SignWithEncryptedKey(message, in.Issuer.EncryptedPrivateKey)
	if err != nil {
		s.logError(ctx, "failed to sign credential", err, "issuer_id", in.Issuer.ID.String())
		return nil, nil, err
	}
	signed := builder.WithProof(doc, builder.Proof{
		Created:            in.IssuedAt,
		VerificationMethod: builder.VerificationMethod(s.baseURL, in.Issuer.ID),
		Signature:          signature,
	})
	document, err = canonical.Encode(signed)
	if err != nil {
		return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to encode signed document")
	}
	return document, signature, nil
}

func (s *Issuer) loadTemplate(ctx context.Context, templateID id.TemplateID) (*models.Template, error) {
	tmpl, err := s.deps.Templates.FindByID(ctx, templateID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(models.ErrTemplateNotFound, dErrors.CodeNotFound, "template not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load template")
	}
	return tmpl, nil
}

// resolveIssuer picks the template's issuer, falling back to the platform
// default.
func (s *Issuer) resolveIssuer(ctx context.Context, tmpl *models.Template) (*models.Issuer, error) {
	var (
		iss *models.Issuer
		err error
	)
	if tmpl.IssuerID != nil {
		iss, err = s.deps.Issuers.FindByID(ctx, *tmpl.IssuerID)
	} else {
		iss, err = s.deps.Issuers.FindDefault(ctx)
	}
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(models.ErrIssuerNotConfigured, dErrors.CodeNotConfigured, "no issuer is configured for this template")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load issuer")
	}
	if !iss.HasKeys() {
		return nil, dErrors.Wrap(models.ErrIssuerMissingKeys, dErrors.CodeNotConfigured, "issuer has no signing keys")
	}
	return iss, nil
}

// evidenceFor appends the issuance context, when present, as one more
// evidence item.
func evidenceFor(req models.IssueRequest) []models.Evidence {
	out := make([]models.Evidence, 0, len(req.Evidence)+1)
	out = append(out, req.Evidence...)
	if len(req.Context) > 0 {
		item := make(models.Evidence, len(req.Context)+1)
		maps.Copy(item, req.Context)
		item["type"] = "IssuanceContext"
		out = append(out, item)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
