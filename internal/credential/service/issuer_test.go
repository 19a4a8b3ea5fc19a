package service

import (
	"encoding/base64"

	"attest/internal/credential/canonical"
	"attest/internal/credential/models"
	issuerstore "attest/internal/credential/store/issuer"
	"attest/internal/events"
	"attest/internal/keys"
	id "attest/pkg/domain"
	dErrors "attest/pkg/domain-errors"
	"attest/pkg/testutil"
)

func (s *ServiceSuite) TestIssue_AcmeAcademyPythonFundamentals() {
	cred := s.issuePython()

	s.Equal(models.StatusActive, cred.Status)
	s.Equal(s.acme.ID, cred.IssuerID)
	s.Equal("alice@example.com", cred.Recipient.Email)
	s.Equal(s.now, cred.IssuedAt)
	s.Nil(cred.ExpiresAt)
	s.Equal(baseURL+"/verify/"+cred.ID.String(), cred.VerificationURL)

	doc, err := canonical.Decode(cred.Document)
	s.Require().NoError(err)
	s.Equal(cred.VerificationURL, doc["id"])
	s.Equal("Acme Academy", doc["issuer"].(map[string]any)["name"])
	subject := doc["credentialSubject"].(map[string]any)
	s.Equal("mailto:alice@example.com", subject["id"])
	s.Equal("Python Fundamentals", subject["achievement"].(map[string]any)["name"])

	proof := doc["proof"].(map[string]any)
	s.Equal("Ed25519Signature2020", proof["type"])
	s.Equal("assertionMethod", proof["proofPurpose"])
	s.Equal(baseURL+"/issuers/"+s.acme.ID.String()+"#key-1", proof["verificationMethod"])
	s.Equal(base64.StdEncoding.EncodeToString(cred.Signature), proof["proofValue"])

	message, err := canonical.Marshal(doc)
	s.Require().NoError(err)
	s.True(s.keys.Verify(message, cred.Signature, s.acme.PublicKey))

	issued := s.dispatcher.ofType(events.CredentialIssued)
	s.Require().Len(issued, 1)
	s.Equal(cred.ID, issued[0].CredentialID)
	s.Equal(testutil.TestIDs.PythonBadge, issued[0].TemplateID)
}

func (s *ServiceSuite) TestIssue_ExpiryFromValidity() {
	tmpl := testutil.NewTemplateBuilder().
		WithID(testutil.TestIDs.DataScience).
		WithMachineName("data-science").
		WithValidityDays(30).
		Build()
	s.Require().NoError(s.templates.Save(s.ctx, tmpl))

	cred, err := s.issuer.IssueCredential(s.ctx, models.IssueRequest{TemplateID: tmpl.ID, RecipientID: testutil.TestIDs.Alice})
	s.Require().NoError(err)
	s.Require().NotNil(cred.ExpiresAt)
	s.Equal(s.now.AddDate(0, 0, 30), *cred.ExpiresAt)

	doc, err := canonical.Decode(cred.Document)
	s.Require().NoError(err)
	s.Equal("2026-03-31T12:00:00Z", doc["expirationDate"])
}

func (s *ServiceSuite) TestIssue_ContextRecordedAsEvidence() {
	cred, err := s.issuer.IssueCredential(s.ctx, models.IssueRequest{
		TemplateID:  testutil.TestIDs.PythonBadge,
		RecipientID: testutil.TestIDs.Alice,
		Evidence:    []models.Evidence{{"type": "Evidence", "name": "final exam"}},
		Context:     map[string]any{"stack_id": "s-1"},
	})
	s.Require().NoError(err)
	s.Require().Len(cred.Evidence, 2)
	s.Equal("IssuanceContext", cred.Evidence[1]["type"])
	s.Equal("s-1", cred.Evidence[1]["stack_id"])
}

func (s *ServiceSuite) TestIssue_ContextCannotOverrideEvidenceType() {
	cred, err := s.issuer.IssueCredential(s.ctx, models.IssueRequest{
		TemplateID:  testutil.TestIDs.PythonBadge,
		RecipientID: testutil.TestIDs.Alice,
		Context:     map[string]any{"type": "Evidence", "stack_id": "s-1"},
	})
	s.Require().NoError(err)
	s.Require().Len(cred.Evidence, 1)
	s.Equal("IssuanceContext", cred.Evidence[0]["type"])
	s.Equal("s-1", cred.Evidence[0]["stack_id"])
}

func (s *ServiceSuite) TestIssue_Failures() {
	s.Run("missing template", func() {
		_, err := s.issuer.IssueCredential(s.ctx, models.IssueRequest{TemplateID: id.NewTemplateID(), RecipientID: testutil.TestIDs.Alice})
		s.ErrorIs(err, models.ErrTemplateNotFound)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("missing recipient", func() {
		_, err := s.issuer.IssueCredential(s.ctx, models.IssueRequest{TemplateID: testutil.TestIDs.PythonBadge, RecipientID: id.NewUserID()})
		s.ErrorIs(err, models.ErrRecipientNotFound)
	})

	s.Run("nil ids", func() {
		_, err := s.issuer.IssueCredential(s.ctx, models.IssueRequest{})
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("template issuer missing", func() {
		tmpl := testutil.NewTemplateBuilder().WithID(id.NewTemplateID()).WithMachineName("orphan").WithIssuer(id.NewIssuerID()).Build()
		s.Require().NoError(s.templates.Save(s.ctx, tmpl))
		_, err := s.issuer.IssueCredential(s.ctx, models.IssueRequest{TemplateID: tmpl.ID, RecipientID: testutil.TestIDs.Alice})
		s.ErrorIs(err, models.ErrIssuerNotConfigured)
		s.True(dErrors.HasCode(err, dErrors.CodeNotConfigured))
	})

	s.Run("issuer without keys", func() {
		keyless := &models.Issuer{ID: id.NewIssuerID(), Name: "Keyless"}
		s.Require().NoError(s.issuers.Save(s.ctx, keyless))
		tmpl := testutil.NewTemplateBuilder().WithID(id.NewTemplateID()).WithMachineName("keyless").WithIssuer(keyless.ID).Build()
		s.Require().NoError(s.templates.Save(s.ctx, tmpl))
		_, err := s.issuer.IssueCredential(s.ctx, models.IssueRequest{TemplateID: tmpl.ID, RecipientID: testutil.TestIDs.Alice})
		s.ErrorIs(err, models.ErrIssuerMissingKeys)
	})

	s.Run("score below threshold", func() {
		tmpl := testutil.NewTemplateBuilder().WithID(id.NewTemplateID()).WithMachineName("gated").WithPassingScore(70).Build()
		s.Require().NoError(s.templates.Save(s.ctx, tmpl))
		score := 65.0
		_, err := s.issuer.IssueCredential(s.ctx, models.IssueRequest{TemplateID: tmpl.ID, RecipientID: testutil.TestIDs.Alice, Score: &score})
		s.ErrorIs(err, models.ErrBelowPassingScore)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))

		score = 70
		_, err = s.issuer.IssueCredential(s.ctx, models.IssueRequest{TemplateID: tmpl.ID, RecipientID: testutil.TestIDs.Alice, Score: &score})
		s.NoError(err)
	})
}

func (s *ServiceSuite) TestIssue_NoDefaultIssuer() {
	s.issuers = issuerstore.New()
	s.issuer = s.newIssuer(s.keys)

	_, err := s.issuer.IssueCredential(s.ctx, models.IssueRequest{TemplateID: testutil.TestIDs.PythonBadge, RecipientID: testutil.TestIDs.Alice})
	s.ErrorIs(err, models.ErrIssuerNotConfigured)
}

func (s *ServiceSuite) TestIssue_DuplicateActiveRejected() {
	s.issuePython()
	_, err := s.issuer.IssueCredential(s.ctx, models.IssueRequest{TemplateID: testutil.TestIDs.PythonBadge, RecipientID: testutil.TestIDs.Alice})
	s.ErrorIs(err, models.ErrAlreadyIssued)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	s.Len(s.dispatcher.ofType(events.CredentialIssued), 1)
}

func (s *ServiceSuite) TestIssue_SigningFailurePersistsNothing() {
	wrongSecret := s.newIssuer(keys.NewManager([]byte("a-different-platform-secret")))

	_, err := wrongSecret.IssueCredential(s.ctx, models.IssueRequest{TemplateID: testutil.TestIDs.PythonBadge, RecipientID: testutil.TestIDs.Alice})
	s.ErrorIs(err, keys.ErrCryptoFailure)

	held, err := s.credentials.ListByRecipient(s.ctx, testutil.TestIDs.Alice)
	s.Require().NoError(err)
	s.Empty(held)
	s.Empty(s.dispatcher.ofType(events.CredentialIssued))
}

func (s *ServiceSuite) TestIssue_CryptoUnavailable() {
	_, err := s.newIssuer(keys.NewManager(nil)).IssueCredential(s.ctx, models.IssueRequest{TemplateID: testutil.TestIDs.PythonBadge, RecipientID: testutil.TestIDs.Alice})
	s.ErrorIs(err, keys.ErrCryptoUnavailable)
	s.True(dErrors.HasCode(err, dErrors.CodeNotConfigured))
}

func (s *ServiceSuite) TestSuspend() {
	cred := s.issuePython()

	suspended, err := s.issuer.Suspend(s.ctx, cred.ID, "investigation")
	s.Require().NoError(err)
	s.Equal(models.StatusSuspended, suspended.Status)
	s.Len(s.dispatcher.ofType(events.CredentialSuspended), 1)

	_, err = s.issuer.Suspend(s.ctx, cred.ID, "again")
	s.ErrorIs(err, models.ErrInvalidTransition)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))

	_, err = s.issuer.Suspend(s.ctx, id.NewCredentialID(), "missing")
	s.ErrorIs(err, models.ErrCredentialNotFound)
}
