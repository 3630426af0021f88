package project

import (
	"context"
	"sync"
	"time"

	"aip/internal/verification/models"
	id "aip/pkg/domain"
	"aip/pkg/platform/sentinel"
)

// InMemoryStore keeps projects in a map. Callers get copies.
type InMemoryStore struct {
	mu       sync.RWMutex
	projects map[id.ProjectID]models.Project
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{projects: make(map[id.ProjectID]models.Project)}
}

// Create stores a project. Project lifecycle is owned elsewhere; this exists
// for seeding and tests.
func (s *InMemoryStore) Create(_ context.Context, p *models.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.projects[p.ID]; ok {
		return sentinel.ErrAlreadyUsed
	}
	s.projects[p.ID] = *p
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, projectID id.ProjectID) (*models.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.projects[projectID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &p, nil
}

func (s *InMemoryStore) AdvanceLevelIfLower(_ context.Context, projectID id.ProjectID, to models.Level, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[projectID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if p.CurrentLevel >= to {
		return sentinel.ErrConflict
	}
	p.CurrentLevel = to
	p.UpdatedAt = at
	s.projects[projectID] = p
	return nil
}
