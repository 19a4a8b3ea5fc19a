package service

import (
	"context"
	"fmt"
	"time"

	"attest/internal/credential/canonical"
	"attest/internal/credential/models"
	"attest/internal/events"
	id "attest/pkg/domain"
	"attest/pkg/requestcontext"
	"attest/pkg/testutil"
)

func (s *ServiceSuite) TestVerify_Valid() {
	cred := s.issuePython()

	result, err := s.verifier.Verify(s.ctx, cred.ID)
	s.Require().NoError(err)
	s.True(result.Valid)
	s.Equal(models.ReasonNone, result.Reason)
	s.Equal("Credential is valid", result.Message)
	s.Require().NotNil(result.Template)
	s.Equal("Python Fundamentals", result.Template.Name)
	s.Require().NotNil(result.Issuer)
	s.Equal("Acme Academy", result.Issuer.Name)
	s.Equal(cred.ID, result.Credential.ID)
}

func (s *ServiceSuite) TestVerify_NotFound() {
	result, err := s.verifier.Verify(s.ctx, id.NewCredentialID())
	s.Require().NoError(err)
	s.False(result.Valid)
	s.Equal(models.ReasonNotFound, result.Reason)
	s.Equal("Credential not found", result.Message)
	s.Nil(result.Credential)
}

func (s *ServiceSuite) TestVerify_TamperedDocument() {
	cred := s.issuePython()

	doc, err := canonical.Decode(cred.Document)
	s.Require().NoError(err)
	subject := doc["credentialSubject"].(map[string]any)
	subject["name"] = "Mallory"
	tampered, err := canonical.Encode(doc)
	s.Require().NoError(err)

	forged := *cred
	forged.ID = id.NewCredentialID()
	forged.Recipient = models.Recipient{ID: testutil.TestIDs.Bob, Email: "bob@example.com", Name: "Bob"}
	forged.Document = tampered
	s.Require().NoError(s.credentials.Create(s.ctx, &forged))

	result, err := s.verifier.Verify(s.ctx, forged.ID)
	s.Require().NoError(err)
	s.False(result.Valid)
	s.Equal(models.ReasonBadSignature, result.Reason)

	original, err := s.verifier.Verify(s.ctx, cred.ID)
	s.Require().NoError(err)
	s.True(original.Valid)
}

func (s *ServiceSuite) TestVerify_UnparsableDocument() {
	cred := s.issuePython()
	broken := *cred
	broken.ID = id.NewCredentialID()
	broken.Recipient = models.Recipient{ID: testutil.TestIDs.Bob}
	broken.Document = []byte("{not json")
	s.Require().NoError(s.credentials.Create(s.ctx, &broken))

	result, err := s.verifier.Verify(s.ctx, broken.ID)
	s.Require().NoError(err)
	s.Equal(models.ReasonBadSignature, result.Reason)
}

func (s *ServiceSuite) TestVerify_ExpiryTransitionsOnce() {
	tmpl := testutil.NewTemplateBuilder().
		WithID(testutil.TestIDs.WebDev).
		WithMachineName("web-dev").
		WithValidityDays(30).
		Build()
	s.Require().NoError(s.templates.Save(s.ctx, tmpl))
	cred, err := s.issuer.IssueCredential(s.ctx, models.IssueRequest{TemplateID: tmpl.ID, RecipientID: testutil.TestIDs.Alice})
	s.Require().NoError(err)

	before := requestcontext.WithTime(context.Background(), cred.ExpiresAt.Add(-time.Second))
	result, err := s.verifier.Verify(before, cred.ID)
	s.Require().NoError(err)
	s.True(result.Valid)

	later := requestcontext.WithTime(context.Background(), *cred.ExpiresAt)
	res := testutil.RunConcurrent(10, func(int) error {
		result, err := s.verifier.Verify(later, cred.ID)
		if err != nil {
			return err
		}
		if result.Reason != models.ReasonExpired {
			return fmt.Errorf("unexpected reason %q", result.Reason)
		}
		return nil
	})
	s.Equal(int32(10), res.Successes)
	s.Len(s.dispatcher.ofType(events.CredentialExpired), 1)

	stored, err := s.credentials.FindByID(s.ctx, cred.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusExpired, stored.Status)
}

func (s *ServiceSuite) TestVerify_RevokedInLedger() {
	cred := s.issuePython()
	s.revocations.revoked[cred.ID] = true

	result, err := s.verifier.Verify(s.ctx, cred.ID)
	s.Require().NoError(err)
	s.False(result.Valid)
	s.Equal(models.ReasonRevoked, result.Reason)
	s.Equal("Credential has been revoked", result.Message)
}

func (s *ServiceSuite) TestVerify_RevokedBeatsSuspended() {
	cred := s.issuePython()
	_, err := s.issuer.Suspend(s.ctx, cred.ID, "review")
	s.Require().NoError(err)

	result, err := s.verifier.Verify(s.ctx, cred.ID)
	s.Require().NoError(err)
	s.Equal(models.ReasonSuspended, result.Reason)

	s.revocations.revoked[cred.ID] = true
	result, err = s.verifier.Verify(s.ctx, cred.ID)
	s.Require().NoError(err)
	s.Equal(models.ReasonRevoked, result.Reason)
}

func (s *ServiceSuite) TestVerify_MissingIssuerIsBadSignature() {
	cred := s.issuePython()
	verifier := NewVerifier(VerifierDeps{
		Credentials: s.credentials,
		Templates:   s.templates,
		Issuers:     emptyProfiles{},
		Keys:        s.keys,
	})

	result, err := verifier.Verify(s.ctx, cred.ID)
	s.Require().NoError(err)
	s.Equal(models.ReasonBadSignature, result.Reason)
	s.Nil(result.Issuer)
}

func (s *ServiceSuite) TestExpire_OnlyOnceLapsed() {
	tmpl := testutil.NewTemplateBuilder().
		WithID(testutil.TestIDs.DataScience).
		WithMachineName("data-science").
		WithValidityDays(7).
		Build()
	s.Require().NoError(s.templates.Save(s.ctx, tmpl))
	cred, err := s.issuer.IssueCredential(s.ctx, models.IssueRequest{TemplateID: tmpl.ID, RecipientID: testutil.TestIDs.Alice})
	s.Require().NoError(err)

	expired, err := s.verifier.Expire(s.ctx, cred)
	s.Require().NoError(err)
	s.False(expired)
	s.Empty(s.dispatcher.ofType(events.CredentialExpired))

	later := requestcontext.WithTime(context.Background(), cred.ExpiresAt.Add(time.Hour))
	expired, err = s.verifier.Expire(later, cred)
	s.Require().NoError(err)
	s.True(expired)

	expired, err = s.verifier.Expire(later, cred)
	s.Require().NoError(err)
	s.True(expired)
	s.Len(s.dispatcher.ofType(events.CredentialExpired), 1)
}
