//go:build integration

package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"attest/pkg/platform/audit"
	"attest/pkg/platform/audit/store/postgres"
	"attest/pkg/testutil"
	"attest/pkg/testutil/containers"
)

type StoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *postgres.Store
}

func TestStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(StoreSuite))
}

func (s *StoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = postgres.New(s.postgres.DB)
}

func (s *StoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateAll(context.Background()))
}

func (s *StoreSuite) TestTrailIsNewestFirst() {
	ctx := context.Background()
	base := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	s.Require().NoError(s.store.Append(ctx, audit.Event{
		Timestamp: base, ActorID: testutil.TestIDs.Bob, Subject: "cred-1",
		Action: string(audit.EventCredentialIssued), RequestID: "req-1", IP: "10.0.0.1",
	}))
	s.Require().NoError(s.store.Append(ctx, audit.Event{
		Timestamp: base.Add(time.Hour), Subject: "cred-1", Action: string(audit.EventCredentialVerified),
	}))
	s.Require().NoError(s.store.Append(ctx, audit.Event{
		Timestamp: base.Add(2 * time.Hour), Subject: "cred-2", Action: string(audit.EventCredentialIssued),
	}))

	trail, err := s.store.ListBySubject(ctx, "cred-1")
	s.Require().NoError(err)
	s.Require().Len(trail, 2)
	s.Equal(string(audit.EventCredentialVerified), trail[0].Action)
	s.True(trail[0].ActorID.IsNil(), "public verification has no actor")
	s.Equal(testutil.TestIDs.Bob, trail[1].ActorID)
	s.Equal("10.0.0.1", trail[1].IP)
	s.True(base.Equal(trail[1].Timestamp))
}

func (s *StoreSuite) TestListRecent() {
	ctx := context.Background()
	base := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	for i := range 4 {
		s.Require().NoError(s.store.Append(ctx, audit.Event{
			Timestamp: base.Add(time.Duration(i) * time.Minute), Subject: "cred", Action: string(audit.EventCredentialVerified),
		}))
	}

	latest, err := s.store.ListRecent(ctx, 2)
	s.Require().NoError(err)
	s.Require().Len(latest, 2)
	s.True(base.Add(3 * time.Minute).Equal(latest[0].Timestamp))

	all, err := s.store.ListRecent(ctx, 0)
	s.Require().NoError(err)
	s.Len(all, 4)

	none, err := s.store.ListBySubject(ctx, "unknown")
	s.Require().NoError(err)
	s.Empty(none)
}
