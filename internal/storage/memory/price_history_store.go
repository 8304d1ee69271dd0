package memory

import (
	"context"
	"sort"
	"sync"

	"weighted-oracle/internal/domain"
	"weighted-oracle/internal/storage"
)

// PriceHistoryStore is an in-memory implementation of storage.PriceHistoryStore.
type PriceHistoryStore struct {
	mu   sync.RWMutex
	data map[submissionKey]*domain.PricePoint
}

// NewPriceHistoryStore creates a new in-memory price history store.
func NewPriceHistoryStore() *PriceHistoryStore {
	return &PriceHistoryStore{
		data: make(map[submissionKey]*domain.PricePoint),
	}
}

// InsertBulk adds multiple points. Fails entire batch on duplicate.
func (s *PriceHistoryStore) InsertBulk(_ context.Context, points []*domain.PricePoint) error {
	if len(points) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[submissionKey]struct{}, len(points))

	// First pass: check for duplicates (existing + intra-batch)
	for _, p := range points {
		if p == nil || p.Oracle == "" {
			return storage.ErrInvalidInput
		}
		key := submissionKey{p.Oracle, p.Index}
		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	// Second pass: insert all
	for _, p := range points {
		pointCopy := *p
		s.data[submissionKey{p.Oracle, p.Index}] = &pointCopy
	}

	return nil
}

// GetByOracle retrieves all points of an oracle, ordered by index ASC.
func (s *PriceHistoryStore) GetByOracle(_ context.Context, oracle domain.Address) ([]*domain.PricePoint, error) {
	return s.filter(oracle, 0, ^uint64(0)), nil
}

// GetByTimeRange retrieves points within [start, end] (inclusive).
func (s *PriceHistoryStore) GetByTimeRange(_ context.Context, oracle domain.Address, start, end uint64) ([]*domain.PricePoint, error) {
	return s.filter(oracle, start, end), nil
}

// DeleteFrom removes points of an oracle with index >= from.
func (s *PriceHistoryStore) DeleteFrom(_ context.Context, oracle domain.Address, from uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key := range s.data {
		if key.oracle == oracle && key.index >= from {
			delete(s.data, key)
		}
	}
	return nil
}

func (s *PriceHistoryStore) filter(oracle domain.Address, start, end uint64) []*domain.PricePoint {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.PricePoint
	for key, p := range s.data {
		if key.oracle == oracle && p.Timestamp >= start && p.Timestamp <= end {
			pointCopy := *p
			result = append(result, &pointCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Index < result[j].Index
	})

	return result
}

var _ storage.PriceHistoryStore = (*PriceHistoryStore)(nil)
