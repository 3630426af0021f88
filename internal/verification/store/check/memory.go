package check

import (
	"context"
	"maps"
	"sort"
	"sync"

	"aip/internal/verification/models"
	id "aip/pkg/domain"
	"aip/pkg/platform/sentinel"
)

type InMemoryStore struct {
	mu     sync.RWMutex
	checks map[id.CheckID]*models.Check
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{checks: make(map[id.CheckID]*models.Check)}
}

func (s *InMemoryStore) Add(_ context.Context, c *models.Check) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.checks[c.ID]; ok {
		return sentinel.ErrAlreadyUsed
	}
	s.checks[c.ID] = clone(c)
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, requestID id.RequestID, checkID id.CheckID) (*models.Check, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.checks[checkID]
	if !ok || c.RequestID != requestID {
		return nil, sentinel.ErrNotFound
	}
	return clone(c), nil
}

func (s *InMemoryStore) Update(_ context.Context, c *models.Check) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.checks[c.ID]
	if !ok || stored.RequestID != c.RequestID {
		return sentinel.ErrNotFound
	}
	s.checks[c.ID] = clone(c)
	return nil
}

func (s *InMemoryStore) ListByRequest(_ context.Context, requestID id.RequestID) ([]*models.Check, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Check, 0)
	for _, c := range s.checks {
		if c.RequestID == requestID {
			out = append(out, clone(c))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func clone(c *models.Check) *models.Check {
	cp := *c
	if c.Score != nil {
		score := *c.Score
		cp.Score = &score
	}
	cp.Evidence = maps.Clone(c.Evidence)
	return &cp
}
