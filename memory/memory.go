// Package memory is an in-process flow.ProjectStore.
package memory

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/meikuraledutech/flow"
)

// Store keeps projects in a map. Documents are cloned on the way in and out.
type Store struct {
	mu       sync.RWMutex
	projects map[string]*flow.Project
}

var _ flow.ProjectStore = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{projects: map[string]*flow.Project{}}
}

// ListProjects returns every project ordered by name.
func (s *Store) ListProjects(_ context.Context) ([]flow.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]flow.Project, 0, len(s.projects))
	for _, name := range slices.Sorted(maps.Keys(s.projects)) {
		out = append(out, *s.projects[name].Clone())
	}
	return out, nil
}

// GetProject returns a project by name.
// Returns nil, nil if not found.
func (s *Store) GetProject(_ context.Context, name string) (*flow.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.projects[name].Clone(), nil
}

// CreateProject stores p unless its name is taken, and returns the stored document.
func (s *Store) CreateProject(_ context.Context, p *flow.Project) (*flow.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.projects[p.Name]; ok {
		return existing.Clone(), nil
	}
	s.projects[p.Name] = p.Clone()
	return p.Clone(), nil
}

// DeleteProject removes a project. No error if it doesn't exist.
func (s *Store) DeleteProject(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.projects, name)
	return nil
}
