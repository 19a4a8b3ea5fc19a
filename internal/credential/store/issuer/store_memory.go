// Package issuer persists issuer profiles and their encrypted keys, and
// caches the public half in Redis.
package issuer

import (
	"context"
	"fmt"
	"sync"

	"attest/internal/credential/models"
	id "attest/pkg/domain"
	"attest/pkg/platform/sentinel"
)

// InMemoryStore keeps issuers in memory for tests and local runs.
type InMemoryStore struct {
	mu      sync.RWMutex
	issuers map[id.IssuerID]*models.Issuer
}

// New constructs an empty in-memory issuer store.
func New() *InMemoryStore {
	return &InMemoryStore{issuers: make(map[id.IssuerID]*models.Issuer)}
}

// Save inserts or replaces an issuer. Saving a default issuer clears the flag
// on every other issuer.
func (s *InMemoryStore) Save(_ context.Context, iss *models.Issuer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if iss.IsDefault {
		s.clearDefaultLocked()
	}
	s.issuers[iss.ID] = cloneIssuer(iss)
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, issuerID id.IssuerID) (*models.Issuer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	iss, ok := s.issuers[issuerID]
	if !ok {
		return nil, fmt.Errorf("issuer not found: %w", sentinel.ErrNotFound)
	}
	return cloneIssuer(iss), nil
}

func (s *InMemoryStore) FindDefault(_ context.Context) (*models.Issuer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, iss := range s.issuers {
		if iss.IsDefault {
			return cloneIssuer(iss), nil
		}
	}
	return nil, fmt.Errorf("default issuer not found: %w", sentinel.ErrNotFound)
}

func (s *InMemoryStore) clearDefaultLocked() {
	for _, iss := range s.issuers {
		iss.IsDefault = false
	}
}

func cloneIssuer(iss *models.Issuer) *models.Issuer {
	cp := *iss
	cp.PublicKey = append([]byte(nil), iss.PublicKey...)
	cp.EncryptedPrivateKey = append([]byte(nil), iss.EncryptedPrivateKey...)
	return &cp
}
