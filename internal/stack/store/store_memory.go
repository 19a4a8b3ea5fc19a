package store

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"attest/internal/stack/models"
	id "attest/pkg/domain"
	"attest/pkg/platform/sentinel"
	platformsync "attest/pkg/platform/sync"
)

type progressKey struct {
	stackID id.StackID
	userID  id.UserID
}

func (k progressKey) String() string {
	return k.stackID.String() + ":" + k.userID.String()
}

// InMemoryStore keeps stacks and progress in memory. Read-check-write
// sequences on one (stack, user) pair are serialized by a sharded lock; the
// maps themselves are guarded by mu.
type InMemoryStore struct {
	mu       sync.RWMutex
	stacks   map[id.StackID]*models.Stack
	progress map[progressKey]*models.Progress
	claims   *platformsync.Striped
}

func New() *InMemoryStore {
	return &InMemoryStore{
		stacks:   make(map[id.StackID]*models.Stack),
		progress: make(map[progressKey]*models.Progress),
		claims:   platformsync.NewStriped(),
	}
}

func (s *InMemoryStore) SaveStack(_ context.Context, stack *models.Stack) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.stacks {
		if existing.ID != stack.ID && existing.MachineName == stack.MachineName {
			return fmt.Errorf("stack machine name %q in use: %w", stack.MachineName, sentinel.ErrConflict)
		}
	}
	s.stacks[stack.ID] = cloneStack(stack)
	return nil
}

func (s *InMemoryStore) FindStack(_ context.Context, stackID id.StackID) (*models.Stack, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stack, ok := s.stacks[stackID]
	if !ok {
		return nil, fmt.Errorf("stack not found: %w", sentinel.ErrNotFound)
	}
	return cloneStack(stack), nil
}

// ListActive returns active stacks ordered by name.
func (s *InMemoryStore) ListActive(_ context.Context) ([]*models.Stack, error) {
	return s.listActive(func(*models.Stack) bool { return true }), nil
}

func (s *InMemoryStore) ListActiveContaining(_ context.Context, templateID id.TemplateID) ([]*models.Stack, error) {
	return s.listActive(func(st *models.Stack) bool { return st.Contains(templateID) }), nil
}

func (s *InMemoryStore) listActive(keep func(*models.Stack) bool) []*models.Stack {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Stack, 0, len(s.stacks))
	for _, stack := range s.stacks {
		if stack.Active && keep(stack) {
			out = append(out, cloneStack(stack))
		}
	}
	slices.SortFunc(out, func(a, b *models.Stack) int {
		return strings.Compare(a.Name, b.Name)
	})
	return out
}

func (s *InMemoryStore) FindProgress(_ context.Context, stackID id.StackID, userID id.UserID) (*models.Progress, error) {
	p := s.get(progressKey{stackID, userID})
	if p == nil {
		return nil, fmt.Errorf("stack progress not found: %w", sentinel.ErrNotFound)
	}
	return p, nil
}

func (s *InMemoryStore) ListProgressByUser(_ context.Context, userID id.UserID) ([]*models.Progress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Progress
	for key, p := range s.progress {
		if key.userID == userID {
			out = append(out, cloneProgress(p))
		}
	}
	return out, nil
}

// SaveProgress upserts a row that is not yet completed.
func (s *InMemoryStore) SaveProgress(_ context.Context, p *models.Progress) error {
	key := progressKey{p.StackID, p.UserID}
	return s.claims.Do(key.String(), func() error {
		if existing := s.get(key); existing.IsCompleted() {
			return ErrProgressCompleted
		}
		s.put(key, p)
		return nil
	})
}

// ClaimCompletion marks the row completed unless it already is.
func (s *InMemoryStore) ClaimCompletion(_ context.Context, stackID id.StackID, userID id.UserID, matched []id.TemplateID, percent int, at time.Time) (*models.Progress, error) {
	key := progressKey{stackID, userID}
	var claimed *models.Progress
	err := s.claims.Do(key.String(), func() error {
		if existing := s.get(key); existing.IsCompleted() {
			return ErrAlreadyClaimed
		}
		claimed = &models.Progress{
			StackID:     stackID,
			UserID:      userID,
			Status:      models.ProgressCompleted,
			Matched:     slices.Clone(matched),
			Percent:     percent,
			CompletedAt: &at,
			UpdatedAt:   at,
		}
		s.put(key, claimed)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cloneProgress(claimed), nil
}

func (s *InMemoryStore) RecordResult(_ context.Context, stackID id.StackID, userID id.UserID, credentialID id.CredentialID) error {
	key := progressKey{stackID, userID}
	return s.claims.Do(key.String(), func() error {
		existing := s.get(key)
		if !existing.IsCompleted() {
			return fmt.Errorf("no completion claim to record: %w", sentinel.ErrInvalidState)
		}
		existing.ResultCredentialID = &credentialID
		s.put(key, existing)
		return nil
	})
}

// ReleaseClaim returns a claimed row without a result credential to in_progress.
func (s *InMemoryStore) ReleaseClaim(_ context.Context, stackID id.StackID, userID id.UserID, at time.Time) error {
	key := progressKey{stackID, userID}
	return s.claims.Do(key.String(), func() error {
		existing := s.get(key)
		if !existing.IsCompleted() || existing.ResultCredentialID != nil {
			return nil
		}
		existing.Status = models.ProgressInProgress
		existing.CompletedAt = nil
		existing.UpdatedAt = at
		s.put(key, existing)
		return nil
	})
}

func (s *InMemoryStore) get(key progressKey) *models.Progress {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.progress[key]
	if !ok {
		return nil
	}
	return cloneProgress(p)
}

func (s *InMemoryStore) put(key progressKey, p *models.Progress) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.progress[key] = cloneProgress(p)
}
