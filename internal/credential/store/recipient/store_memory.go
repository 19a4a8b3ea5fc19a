// Package recipient is the directory of people credentials are awarded to.
package recipient

import (
	"context"
	"fmt"
	"sync"

	"attest/internal/credential/models"
	id "attest/pkg/domain"
	"attest/pkg/platform/sentinel"
)

// InMemoryStore keeps recipients in memory for tests and local runs.
type InMemoryStore struct {
	mu         sync.RWMutex
	recipients map[id.UserID]models.Recipient
}

// New constructs an empty in-memory recipient directory.
func New() *InMemoryStore {
	return &InMemoryStore{recipients: make(map[id.UserID]models.Recipient)}
}

func (s *InMemoryStore) Save(_ context.Context, r *models.Recipient) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recipients[r.ID] = *r
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, userID id.UserID) (*models.Recipient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.recipients[userID]
	if !ok {
		return nil, fmt.Errorf("recipient not found: %w", sentinel.ErrNotFound)
	}
	return &r, nil
}
