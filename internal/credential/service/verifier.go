package service

import (
	"context"
	"errors"
	"time"

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

// VerifierDeps are the collaborators the Verifier needs. Revocations may be
// nil, in which case only the stored status is consulted.
type VerifierDeps struct {
	Credentials CredentialStore
	Templates   TemplateStore
	Issuers     IssuerProfiles
	Revocations RevocationChecker
	Keys        SignatureVerifier
}

// Verifier answers whether a credential is authentic and currently valid.
type Verifier struct {
	deps VerifierDeps
	observability
}

func NewVerifier(deps VerifierDeps, opts ...Option) *Verifier {
	return &Verifier{deps: deps, observability: newObservability(opts)}
}

// Verify runs the checks in order: existence, revocation, suspension, expiry,
// signature. Negative outcomes are returned as results; only storage faults
// are errors.
func (v *Verifier) Verify(ctx context.Context, credentialID id.CredentialID) (result *models.VerifyResult, err error) {
	start := time.Now()
	ctx, span := v.tracer.Start(ctx, tracer.SpanVerify, tracer.String(tracer.AttrCredentialID, credentialID.String()))
	defer func() {
		if result != nil {
			outcome := string(result.Reason)
			if result.Valid {
				outcome = "valid"
			}
			span.SetAttributes(tracer.String(tracer.AttrOutcome, outcome))
			v.metrics.IncVerification(outcome)
			v.auditor.Log(ctx, audit.EventCredentialVerified, "subject", credentialID.String(), "reason", outcome)
		}
		v.metrics.ObserveVerifyDuration(time.Since(start).Seconds())
		span.End(err)
	}()

	cred, err := v.deps.Credentials.FindByID(ctx, credentialID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return outcome(models.ReasonNotFound, nil), nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load credential")
	}

	result = outcome(models.ReasonNone, cred)
	if err := v.attachContext(ctx, result); err != nil {
		return nil, err
	}

	revoked, err := v.isRevoked(ctx, cred)
	if err != nil {
		return nil, err
	}
	switch {
	case revoked:
		return withReason(result, models.ReasonRevoked), nil
	case cred.Status == models.StatusSuspended:
		return withReason(result, models.ReasonSuspended), nil
	case cred.Status == models.StatusExpired:
		return withReason(result, models.ReasonExpired), nil
	case cred.IsExpiredAt(requestcontext.Now(ctx)):
		if err := v.expire(ctx, cred); err != nil {
			return nil, err
		}
		return withReason(result, models.ReasonExpired), nil
	}

	if !v.signatureValid(cred, result.Issuer) {
		return withReason(result, models.ReasonBadSignature), nil
	}
	result.Valid = true
	return result, nil
}

func (v *Verifier) attachContext(ctx context.Context, result *models.VerifyResult) error {
	cred := result.Credential
	tmpl, err := v.deps.Templates.FindByID(ctx, cred.TemplateID)
	switch {
	case err == nil:
		result.Template = tmpl
	case !errors.Is(err, sentinel.ErrNotFound):
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load template")
	}

	profile, err := v.deps.Issuers.Profile(ctx, cred.IssuerID)
	switch {
	case err == nil:
		result.Issuer = profile
	case !errors.Is(err, sentinel.ErrNotFound):
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load issuer")
	}
	return nil
}

func (v *Verifier) isRevoked(ctx context.Context, cred *models.IssuedCredential) (bool, error) {
	if cred.Status == models.StatusRevoked {
		return true, nil
	}
	if v.deps.Revocations == nil {
		return false, nil
	}
	revoked, err := v.deps.Revocations.IsRevoked(ctx, cred.ID)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check revocation ledger")
	}
	return revoked, nil
}

// Expire applies the expiry transition outside a verification. It is a no-op
// for a credential that has not lapsed at the context time, and reports
// whether the credential is expired afterwards.
func (v *Verifier) Expire(ctx context.Context, cred *models.IssuedCredential) (bool, error) {
	if cred.Status != models.StatusActive || !cred.IsExpiredAt(requestcontext.Now(ctx)) {
		return cred.Status == models.StatusExpired, nil
	}
	if err := v.expire(ctx, cred); err != nil {
		return false, err
	}
	return cred.Status == models.StatusExpired, nil
}

// expire moves an active credential past its expiry to expired. Concurrent
// verifications race on the store; only the winner emits the event.
func (v *Verifier) expire(ctx context.Context, cred *models.IssuedCredential) error {
	prev, err := v.deps.Credentials.UpdateStatus(ctx, cred.ID, models.StatusExpired)
	switch {
	case err == nil:
	case errors.Is(err, sentinel.ErrInvalidState):
		cred.Status = prev
		return nil
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to mark credential expired")
	}

	cred.Status = models.StatusExpired
	v.metrics.IncStatusChange(string(models.StatusExpired))
	v.auditor.Log(ctx, audit.EventCredentialExpired, "subject", cred.ID.String(), "reason", "validity_elapsed")
	v.dispatcher.Dispatch(ctx, events.Event{
		Type:         events.CredentialExpired,
		CredentialID: cred.ID,
		TemplateID:   cred.TemplateID,
		RecipientID:  cred.Recipient.ID,
		OccurredAt:   requestcontext.Now(ctx),
		RequestID:    requestcontext.RequestID(ctx),
	})
	return nil
}

// signatureValid re-derives the signing input from the stored document and
// checks it against the issuer key. A document that no longer parses, or an
// issuer that no longer exists, cannot be valid.
func (v *Verifier) signatureValid(cred *models.IssuedCredential, issuer *models.IssuerProfile) bool {
	if issuer == nil {
		return false
	}
	doc, err := canonical.Decode(cred.Document)
	if err != nil {
		return false
	}
	message, err := canonical.Marshal(doc)
	if err != nil {
		return false
	}
	return v.deps.Keys.Verify(message, cred.Signature, issuer.PublicKey)
}

func outcome(reason models.Reason, cred *models.IssuedCredential) *models.VerifyResult {
	return &models.VerifyResult{
		Reason:     reason,
		Message:    reason.Message(),
		Credential: cred,
	}
}

func withReason(result *models.VerifyResult, reason models.Reason) *models.VerifyResult {
	result.Valid = false
	result.Reason = reason
	result.Message = reason.Message()
	return result
}
