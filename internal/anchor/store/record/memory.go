package record

import (
	"context"
	"sort"
	"sync"
	"time"

	"aip/internal/anchor/models"
	id "aip/pkg/domain"
	"aip/pkg/platform/sentinel"
)

type InMemoryStore struct {
	mu      sync.RWMutex
	records map[id.RecordID]*models.Record
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{records: make(map[id.RecordID]*models.Record)}
}

func (s *InMemoryStore) Create(_ context.Context, r *models.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[r.ID]; ok {
		return sentinel.ErrAlreadyUsed
	}
	if r.TxHash != "" {
		for _, existing := range s.records {
			if existing.TxHash == r.TxHash {
				return sentinel.ErrAlreadyUsed
			}
		}
	}
	s.records[r.ID] = clone(r)
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, recordID id.RecordID) (*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[recordID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(r), nil
}

func (s *InMemoryStore) ListByReference(_ context.Context, referenceID id.RequestID) ([]*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []*models.Record{}
	for _, r := range s.records {
		if r.ReferenceID == referenceID {
			out = append(out, clone(r))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *InMemoryStore) ListDue(_ context.Context, now time.Time, limit int) ([]*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Record
	for _, r := range s.records {
		if r.Status == models.StatusPending && !r.NextPollAt.After(now) {
			out = append(out, clone(r))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].NextPollAt.Before(out[j].NextPollAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// UpdateIfPending replaces the stored record only while it is still pending.
func (s *InMemoryStore) UpdateIfPending(_ context.Context, r *models.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.records[r.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if stored.Status != models.StatusPending {
		return sentinel.ErrConflict
	}
	s.records[r.ID] = clone(r)
	return nil
}

func clone(r *models.Record) *models.Record {
	c := *r
	if r.BlockNumber != nil {
		v := *r.BlockNumber
		c.BlockNumber = &v
	}
	if r.GasUsed != nil {
		v := *r.GasUsed
		c.GasUsed = &v
	}
	if r.GasPriceGwei != nil {
		v := *r.GasPriceGwei
		c.GasPriceGwei = &v
	}
	if r.ConfirmedAt != nil {
		v := *r.ConfirmedAt
		c.ConfirmedAt = &v
	}
	return &c
}
