package store

import (
	"context"
	"slices"
	"sync"

	"attest/internal/revocation/models"
	id "attest/pkg/domain"
)

// InMemoryStore keeps the ledger in memory.
type InMemoryStore struct {
	mu      sync.RWMutex
	entries map[id.CredentialID][]*models.Entry
}

func New() *InMemoryStore {
	return &InMemoryStore{entries: make(map[id.CredentialID][]*models.Entry)}
}

// Append records entry unless the credential already has one. The check and
// the insert happen under one lock.
func (s *InMemoryStore) Append(_ context.Context, entry *models.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.entries[entry.CredentialID]) > 0 {
		return ErrAlreadyRecorded
	}
	cp := *entry
	s.entries[entry.CredentialID] = append(s.entries[entry.CredentialID], &cp)
	return nil
}

func (s *InMemoryStore) Exists(_ context.Context, credentialID id.CredentialID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries[credentialID]) > 0, nil
}

// ListByCredential returns entries newest first.
func (s *InMemoryStore) ListByCredential(_ context.Context, credentialID id.CredentialID) ([]*models.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Entry, 0, len(s.entries[credentialID]))
	for _, e := range s.entries[credentialID] {
		cp := *e
		out = append(out, &cp)
	}
	slices.SortStableFunc(out, func(a, b *models.Entry) int {
		return b.RevokedAt.Compare(a.RevokedAt)
	})
	return out, nil
}
