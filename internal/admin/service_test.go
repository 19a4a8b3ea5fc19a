package admin

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	credmodels "attest/internal/credential/models"
	credstore "attest/internal/credential/store/credential"
	recipientstore "attest/internal/credential/store/recipient"
	id "attest/pkg/domain"
	dErrors "attest/pkg/domain-errors"
	"attest/pkg/platform/audit"
	auditmemory "attest/pkg/platform/audit/store/memory"
	"attest/pkg/testutil"
)

type ServiceSuite struct {
	suite.Suite
	audit       *auditmemory.InMemoryStore
	credentials *credstore.InMemoryStore
	recipients  *recipientstore.InMemoryStore
	service     *Service
	credential  *credmodels.IssuedCredential
	base        time.Time
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	ctx := context.Background()
	s.audit = auditmemory.NewInMemoryStore()
	s.credentials = credstore.New()
	s.recipients = recipientstore.New()
	s.service = NewService(s.audit, s.credentials, s.recipients)
	s.base = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	s.credential = &credmodels.IssuedCredential{
		ID:         id.NewCredentialID(),
		TemplateID: testutil.TestIDs.PythonBadge,
		IssuerID:   testutil.TestIDs.AcmeAcademy,
		Recipient:  *testutil.Alice(),
		IssuedAt:   s.base,
		Status:     credmodels.StatusActive,
	}
	s.Require().NoError(s.credentials.Create(ctx, s.credential))
}

func (s *ServiceSuite) appendEvent(subject, action string, offset time.Duration) {
	s.Require().NoError(s.audit.Append(context.Background(), audit.Event{
		Timestamp: s.base.Add(offset),
		Subject:   subject,
		Action:    action,
	}))
}

func (s *ServiceSuite) TestCredentialAuditTrail() {
	subject := s.credential.ID.String()
	s.appendEvent(subject, string(audit.EventCredentialIssued), 0)
	s.appendEvent(id.NewCredentialID().String(), string(audit.EventCredentialIssued), time.Minute)
	s.appendEvent(subject, string(audit.EventCredentialRevoked), 2*time.Minute)

	events, err := s.service.CredentialAuditTrail(context.Background(), s.credential.ID)
	s.Require().NoError(err)
	s.Require().Len(events, 2)
	s.Equal(string(audit.EventCredentialRevoked), events[0].Action)
	s.Equal(string(audit.EventCredentialIssued), events[1].Action)
}

func (s *ServiceSuite) TestCredentialAuditTrailUnknownCredential() {
	_, err := s.service.CredentialAuditTrail(context.Background(), id.NewCredentialID())
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	s.ErrorIs(err, credmodels.ErrCredentialNotFound)
}

func (s *ServiceSuite) TestRecentAuditEventsClampsLimit() {
	for i := range 60 {
		s.appendEvent(s.credential.ID.String(), string(audit.EventCredentialVerified), time.Duration(i)*time.Second)
	}

	s.Run("default", func() {
		events, err := s.service.RecentAuditEvents(context.Background(), 0)
		s.Require().NoError(err)
		s.Len(events, defaultAuditLimit)
		s.Equal(s.base.Add(59*time.Second), events[0].Timestamp)
	})

	s.Run("explicit", func() {
		events, err := s.service.RecentAuditEvents(context.Background(), 5)
		s.Require().NoError(err)
		s.Len(events, 5)
	})

	s.Run("above max", func() {
		events, err := s.service.RecentAuditEvents(context.Background(), 10_000)
		s.Require().NoError(err)
		s.Len(events, 60)
	})
}

func (s *ServiceSuite) TestRecipientCredentials() {
	creds, err := s.service.RecipientCredentials(context.Background(), testutil.TestIDs.Alice)
	s.Require().NoError(err)
	s.Require().Len(creds, 1)
	s.Equal(s.credential.ID, creds[0].ID)

	creds, err = s.service.RecipientCredentials(context.Background(), testutil.TestIDs.Bob)
	s.Require().NoError(err)
	s.Empty(creds)
}

func (s *ServiceSuite) TestRegisterRecipient() {
	ctx := context.Background()
	r, err := s.service.RegisterRecipient(ctx, "carol@example.com", "Carol")
	s.Require().NoError(err)
	s.False(r.ID.IsNil())

	stored, err := s.recipients.FindByID(ctx, r.ID)
	s.Require().NoError(err)
	s.Equal("carol@example.com", stored.Email)
	s.Equal("Carol", stored.Name)
}
