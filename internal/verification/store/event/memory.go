package event

import (
	"context"
	"maps"
	"sort"
	"sync"

	"aip/internal/verification/models"
	id "aip/pkg/domain"
)

// InMemoryStore is an append-only event log. Entries are never modified
// after Append.
type InMemoryStore struct {
	mu     sync.RWMutex
	seq    int64
	events map[id.RequestID][]models.Event
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{events: make(map[id.RequestID][]models.Event)}
}

func (s *InMemoryStore) Append(_ context.Context, e *models.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing := s.events[e.RequestID]
	if n := len(existing); n > 0 && e.CreatedAt.Before(existing[n-1].CreatedAt) {
		e.CreatedAt = existing[n-1].CreatedAt
	}
	s.seq++
	e.Seq = s.seq

	stored := *e
	stored.Metadata = maps.Clone(e.Metadata)
	s.events[e.RequestID] = append(existing, stored)
	return nil
}

func (s *InMemoryStore) ListByRequest(_ context.Context, requestID id.RequestID) ([]*models.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored := s.events[requestID]
	out := make([]*models.Event, 0, len(stored))
	for i := range stored {
		e := stored[i]
		e.Metadata = maps.Clone(e.Metadata)
		out = append(out, &e)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Before(out[j])
	})
	return out, nil
}
