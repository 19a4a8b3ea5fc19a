// Package template persists credential templates.
package template

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"attest/internal/credential/models"
	id "attest/pkg/domain"
	"attest/pkg/platform/sentinel"
)

// InMemoryStore keeps templates in memory for tests and local runs.
type InMemoryStore struct {
	mu        sync.RWMutex
	templates map[id.TemplateID]*models.Template
}

// New constructs an empty in-memory template store.
func New() *InMemoryStore {
	return &InMemoryStore{templates: make(map[id.TemplateID]*models.Template)}
}

// Save inserts or replaces a template. Machine names are unique.
func (s *InMemoryStore) Save(_ context.Context, tmpl *models.Template) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.templates {
		if existing.ID != tmpl.ID && existing.MachineName == tmpl.MachineName {
			return fmt.Errorf("template machine name %q taken: %w", tmpl.MachineName, sentinel.ErrConflict)
		}
	}
	cp := *tmpl
	s.templates[tmpl.ID] = &cp
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, templateID id.TemplateID) (*models.Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tmpl, ok := s.templates[templateID]
	if !ok {
		return nil, fmt.Errorf("template not found: %w", sentinel.ErrNotFound)
	}
	cp := *tmpl
	return &cp, nil
}

func (s *InMemoryStore) FindByMachineName(_ context.Context, name string) (*models.Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, tmpl := range s.templates {
		if tmpl.MachineName == name {
			cp := *tmpl
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("template not found: %w", sentinel.ErrNotFound)
}

// List returns all templates ordered by machine name.
func (s *InMemoryStore) List(_ context.Context) ([]*models.Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Template, 0, len(s.templates))
	for _, tmpl := range s.templates {
		cp := *tmpl
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MachineName < out[j].MachineName })
	return out, nil
}
