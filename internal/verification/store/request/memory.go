package request

import (
	"context"
	"sort"
	"sync"

	"aip/internal/verification/models"
	id "aip/pkg/domain"
	"aip/pkg/platform/sentinel"
)

// InMemoryStore keeps requests in a map. Row locks are provided by the
// in-memory transaction, so the ForUpdate/ForShare reads are plain reads.
type InMemoryStore struct {
	mu       sync.RWMutex
	requests map[id.RequestID]*models.Request
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{requests: make(map[id.RequestID]*models.Request)}
}

func (s *InMemoryStore) Create(_ context.Context, req *models.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.requests[req.ID]; ok {
		return sentinel.ErrAlreadyUsed
	}
	s.requests[req.ID] = clone(req)
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, requestID id.RequestID) (*models.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	req, ok := s.requests[requestID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(req), nil
}

func (s *InMemoryStore) FindByIDForUpdate(ctx context.Context, requestID id.RequestID) (*models.Request, error) {
	return s.FindByID(ctx, requestID)
}

func (s *InMemoryStore) FindByIDForShare(ctx context.Context, requestID id.RequestID) (*models.Request, error) {
	return s.FindByID(ctx, requestID)
}

func (s *InMemoryStore) List(_ context.Context, filter models.ListFilter) ([]*models.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Request, 0, len(s.requests))
	for _, req := range s.requests {
		if filter.ProjectID != nil && req.ProjectID != *filter.ProjectID {
			continue
		}
		if filter.Status != nil && req.Status != *filter.Status {
			continue
		}
		out = append(out, clone(req))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (s *InMemoryStore) SaveAssignmentIfOpen(_ context.Context, req *models.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, err := s.openLocked(req.ID)
	if err != nil {
		return err
	}
	stored.AssignedTo = req.AssignedTo
	stored.AssignedOrgID = req.AssignedOrgID
	stored.Status = req.Status
	stored.UpdatedAt = req.UpdatedAt
	return nil
}

func (s *InMemoryStore) SaveDecisionIfOpen(_ context.Context, req *models.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, err := s.openLocked(req.ID)
	if err != nil {
		return err
	}
	stored.Status = req.Status
	stored.Decision = req.Decision
	stored.DecisionNotes = req.DecisionNotes
	stored.DecidedBy = req.DecidedBy
	stored.DecidedAt = req.DecidedAt
	stored.UpdatedAt = req.UpdatedAt
	return nil
}

func (s *InMemoryStore) openLocked(requestID id.RequestID) (*models.Request, error) {
	stored, ok := s.requests[requestID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if stored.Status.IsTerminal() {
		return nil, sentinel.ErrConflict
	}
	return stored, nil
}

func clone(req *models.Request) *models.Request {
	c := *req
	c.Checks = nil
	return &c
}
