package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	audit "attest/pkg/platform/audit"
)

func TestInMemoryStore_ListBySubjectNewestFirst(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, store.Append(ctx, audit.Event{Subject: "c1", Action: "credential_issued", Timestamp: base}))
	require.NoError(t, store.Append(ctx, audit.Event{Subject: "c2", Action: "credential_issued", Timestamp: base}))
	require.NoError(t, store.Append(ctx, audit.Event{Subject: "c1", Action: "credential_revoked", Timestamp: base.Add(time.Hour)}))

	events, err := store.ListBySubject(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "credential_revoked", events[0].Action)

	recent, err := store.ListRecent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "c1", recent[0].Subject)
}
