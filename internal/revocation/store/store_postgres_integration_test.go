//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"attest/internal/revocation/models"
	"attest/internal/revocation/store"
	id "attest/pkg/domain"
	"attest/pkg/platform/sentinel"
	"attest/pkg/testutil"
	"attest/pkg/testutil/containers"
)

type PostgresLedgerSuite struct {
	suite.Suite
	postgres     *containers.PostgresContainer
	store        *store.PostgresStore
	credentialID id.CredentialID
}

func TestPostgresLedgerSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresLedgerSuite))
}

func (s *PostgresLedgerSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
}

func (s *PostgresLedgerSuite) SetupTest() {
	ctx := context.Background()
	s.Require().NoError(s.postgres.TruncateAll(ctx))
	s.postgres.SeedCatalog(ctx, s.T())

	s.credentialID = id.NewCredentialID()
	_, err := s.postgres.Exec(ctx, `
		INSERT INTO credentials (id, template_id, issuer_id, recipient_id, issued_at, status, document, signature, verification_url)
		VALUES ($1, $2, $3, $4, NOW(), 'revoked', '\x7b7d', '\x00', 'https://attest.example/verify')
	`, uuid.UUID(s.credentialID), uuid.UUID(testutil.TestIDs.PythonBadge),
		uuid.UUID(testutil.TestIDs.AcmeAcademy), uuid.UUID(testutil.TestIDs.Alice))
	s.Require().NoError(err)
}

func (s *PostgresLedgerSuite) entry(reason models.Reason) *models.Entry {
	return &models.Entry{
		ID:           id.NewRevocationID(),
		CredentialID: s.credentialID,
		RevokedBy:    testutil.TestIDs.Bob,
		Reason:       reason,
		Notes:        "copied final project",
		RevokedAt:    time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC),
	}
}

func (s *PostgresLedgerSuite) TestAppendOnce() {
	ctx := context.Background()

	exists, err := s.store.Exists(ctx, s.credentialID)
	s.Require().NoError(err)
	s.False(exists)

	s.Require().NoError(s.store.Append(ctx, s.entry(models.ReasonFraud)))

	exists, err = s.store.Exists(ctx, s.credentialID)
	s.Require().NoError(err)
	s.True(exists)

	entries, err := s.store.ListByCredential(ctx, s.credentialID)
	s.Require().NoError(err)
	s.Require().Len(entries, 1)
	s.Equal(models.ReasonFraud, entries[0].Reason)
	s.Equal(testutil.TestIDs.Bob, entries[0].RevokedBy)
}

func (s *PostgresLedgerSuite) TestSecondEntryRejected() {
	ctx := context.Background()
	s.Require().NoError(s.store.Append(ctx, s.entry(models.ReasonFraud)))

	err := s.store.Append(ctx, s.entry(models.ReasonError))
	s.ErrorIs(err, store.ErrAlreadyRecorded)
	s.ErrorIs(err, sentinel.ErrConflict)
}

func (s *PostgresLedgerSuite) TestConcurrentAppendSingleWinner() {
	ctx := context.Background()
	result := testutil.RunConcurrent(25, func(int) error {
		return s.store.Append(ctx, s.entry(models.ReasonPolicy))
	})
	s.Equal(int32(1), result.Successes)
	s.Equal(int32(24), result.Conflicts)
}
