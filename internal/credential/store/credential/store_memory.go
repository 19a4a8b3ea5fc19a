package credential

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"attest/internal/credential/models"
	id "attest/pkg/domain"
	"attest/pkg/platform/sentinel"
)

// InMemoryStore keeps credentials in memory for tests and local runs.
type InMemoryStore struct {
	mu          sync.RWMutex
	credentials map[id.CredentialID]*models.IssuedCredential
}

// New constructs an empty in-memory credential store.
func New() *InMemoryStore {
	return &InMemoryStore{credentials: make(map[id.CredentialID]*models.IssuedCredential)}
}

// Create inserts a credential. The duplicate-active check and the insert run
// under one lock.
func (s *InMemoryStore) Create(_ context.Context, cred *models.IssuedCredential) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.credentials[cred.ID]; exists {
		return fmt.Errorf("credential %s exists: %w", cred.ID, sentinel.ErrConflict)
	}
	if cred.Status == models.StatusActive {
		for _, existing := range s.credentials {
			if existing.Status == models.StatusActive &&
				existing.TemplateID == cred.TemplateID &&
				existing.Recipient.ID == cred.Recipient.ID {
				return ErrActiveDuplicate
			}
		}
	}
	s.credentials[cred.ID] = clone(cred)
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, credentialID id.CredentialID) (*models.IssuedCredential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cred, ok := s.credentials[credentialID]
	if !ok {
		return nil, fmt.Errorf("credential not found: %w", sentinel.ErrNotFound)
	}
	return clone(cred), nil
}

// ListByRecipient returns the recipient's credentials, oldest first.
func (s *InMemoryStore) ListByRecipient(_ context.Context, userID id.UserID) ([]*models.IssuedCredential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.IssuedCredential, 0)
	for _, cred := range s.credentials {
		if cred.Recipient.ID == userID {
			out = append(out, clone(cred))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].IssuedAt.Before(out[j].IssuedAt) })
	return out, nil
}

// ListExpired returns up to limit active credentials whose expiry is at or
// before now, soonest expiry first.
func (s *InMemoryStore) ListExpired(_ context.Context, now time.Time, limit int) ([]*models.IssuedCredential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.IssuedCredential, 0)
	for _, cred := range s.credentials {
		if cred.Status == models.StatusActive && cred.IsExpiredAt(now) {
			out = append(out, clone(cred))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExpiresAt.Before(*out[j].ExpiresAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// UpdateStatus moves the credential to next when the lifecycle allows it and
// returns the status it held before.
func (s *InMemoryStore) UpdateStatus(_ context.Context, credentialID id.CredentialID, next models.Status) (models.Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cred, ok := s.credentials[credentialID]
	if !ok {
		return "", fmt.Errorf("credential not found: %w", sentinel.ErrNotFound)
	}
	prev := cred.Status
	if !prev.CanTransitionTo(next) {
		return prev, ErrInvalidTransition
	}
	cred.Status = next
	return prev, nil
}
