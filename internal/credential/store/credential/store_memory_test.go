package credential

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"attest/internal/credential/models"
	id "attest/pkg/domain"
	"attest/pkg/platform/sentinel"
	"attest/pkg/testutil"
)

type InMemoryStoreSuite struct {
	suite.Suite
	store *InMemoryStore
	ctx   context.Context
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStoreSuite))
}

func (s *InMemoryStoreSuite) SetupTest() {
	s.store = New()
	s.ctx = context.Background()
}

func newCredential(templateID id.TemplateID, userID id.UserID) *models.IssuedCredential {
	return &models.IssuedCredential{
		ID:         id.NewCredentialID(),
		TemplateID: templateID,
		IssuerID:   id.NewIssuerID(),
		Recipient:  models.Recipient{ID: userID, Email: "alice@example.com", Name: "Alice"},
		IssuedAt:   time.Now().UTC(),
		Status:     models.StatusActive,
		Document:   []byte(`{"id":"x"}`),
		Signature:  []byte{1, 2, 3},
	}
}

func (s *InMemoryStoreSuite) TestCreateAndFind() {
	cred := newCredential(id.NewTemplateID(), id.NewUserID())
	s.Require().NoError(s.store.Create(s.ctx, cred))

	found, err := s.store.FindByID(s.ctx, cred.ID)
	s.Require().NoError(err)
	s.Equal(cred.Document, found.Document)

	found.Document[0] = 'X'
	again, err := s.store.FindByID(s.ctx, cred.ID)
	s.Require().NoError(err)
	s.Equal(byte('{'), again.Document[0], "stored document must not be mutable through a returned copy")
}

func (s *InMemoryStoreSuite) TestFindMissing() {
	_, err := s.store.FindByID(s.ctx, id.NewCredentialID())
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *InMemoryStoreSuite) TestRejectsSecondActiveForSameTemplateAndRecipient() {
	templateID, userID := id.NewTemplateID(), id.NewUserID()
	s.Require().NoError(s.store.Create(s.ctx, newCredential(templateID, userID)))

	err := s.store.Create(s.ctx, newCredential(templateID, userID))
	s.ErrorIs(err, ErrActiveDuplicate)
	s.ErrorIs(err, sentinel.ErrConflict)

	s.NoError(s.store.Create(s.ctx, newCredential(id.NewTemplateID(), userID)))
}

func (s *InMemoryStoreSuite) TestReissueAllowedAfterRevocation() {
	templateID, userID := id.NewTemplateID(), id.NewUserID()
	first := newCredential(templateID, userID)
	s.Require().NoError(s.store.Create(s.ctx, first))
	_, err := s.store.UpdateStatus(s.ctx, first.ID, models.StatusRevoked)
	s.Require().NoError(err)

	s.NoError(s.store.Create(s.ctx, newCredential(templateID, userID)))
}

func (s *InMemoryStoreSuite) TestConcurrentCreateHasOneWinner() {
	templateID, userID := id.NewTemplateID(), id.NewUserID()

	result := testutil.RunConcurrent(20, func(int) error {
		return s.store.Create(s.ctx, newCredential(templateID, userID))
	})

	s.Equal(int32(1), result.Successes)
	s.Equal(int32(19), result.Conflicts)
	s.Equal(int32(0), result.Errors)
}

func (s *InMemoryStoreSuite) TestUpdateStatus() {
	cred := newCredential(id.NewTemplateID(), id.NewUserID())
	s.Require().NoError(s.store.Create(s.ctx, cred))

	prev, err := s.store.UpdateStatus(s.ctx, cred.ID, models.StatusSuspended)
	s.Require().NoError(err)
	s.Equal(models.StatusActive, prev)

	prev, err = s.store.UpdateStatus(s.ctx, cred.ID, models.StatusExpired)
	s.ErrorIs(err, ErrInvalidTransition)
	s.ErrorIs(err, sentinel.ErrInvalidState)
	s.Equal(models.StatusSuspended, prev)

	_, err = s.store.UpdateStatus(s.ctx, cred.ID, models.StatusRevoked)
	s.Require().NoError(err)

	prev, err = s.store.UpdateStatus(s.ctx, cred.ID, models.StatusRevoked)
	s.ErrorIs(err, ErrInvalidTransition)
	s.Equal(models.StatusRevoked, prev)

	_, err = s.store.UpdateStatus(s.ctx, id.NewCredentialID(), models.StatusRevoked)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *InMemoryStoreSuite) TestListByRecipient() {
	userID := id.NewUserID()
	older := newCredential(id.NewTemplateID(), userID)
	older.IssuedAt = time.Now().Add(-time.Hour)
	newer := newCredential(id.NewTemplateID(), userID)
	s.Require().NoError(s.store.Create(s.ctx, newer))
	s.Require().NoError(s.store.Create(s.ctx, older))
	s.Require().NoError(s.store.Create(s.ctx, newCredential(id.NewTemplateID(), id.NewUserID())))

	list, err := s.store.ListByRecipient(s.ctx, userID)
	s.Require().NoError(err)
	s.Require().Len(list, 2)
	s.Equal(older.ID, list[0].ID)
	s.Equal(newer.ID, list[1].ID)
}

func (s *InMemoryStoreSuite) TestListExpired() {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	expiring := func(offset time.Duration) *models.IssuedCredential {
		cred := newCredential(id.NewTemplateID(), id.NewUserID())
		expires := now.Add(offset)
		cred.ExpiresAt = &expires
		return cred
	}
	oldest := expiring(-48 * time.Hour)
	recent := expiring(-time.Hour)
	suspended := expiring(-2 * time.Hour)
	future := expiring(time.Hour)
	for _, cred := range []*models.IssuedCredential{recent, oldest, suspended, future, newCredential(id.NewTemplateID(), id.NewUserID())} {
		s.Require().NoError(s.store.Create(s.ctx, cred))
	}
	_, err := s.store.UpdateStatus(s.ctx, suspended.ID, models.StatusSuspended)
	s.Require().NoError(err)

	list, err := s.store.ListExpired(s.ctx, now, 10)
	s.Require().NoError(err)
	s.Require().Len(list, 2)
	s.Equal(oldest.ID, list[0].ID)
	s.Equal(recent.ID, list[1].ID)

	list, err = s.store.ListExpired(s.ctx, now, 1)
	s.Require().NoError(err)
	s.Require().Len(list, 1)
	s.Equal(oldest.ID, list[0].ID)
}
