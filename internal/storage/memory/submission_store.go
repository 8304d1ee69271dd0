package memory

import (
	"context"
	"sort"
	"sync"

	"weighted-oracle/internal/domain"
	"weighted-oracle/internal/storage"
)

type submissionKey struct {
	oracle domain.Address
	index  uint64
}

// SubmissionStore is an in-memory implementation of storage.SubmissionStore.
type SubmissionStore struct {
	mu   sync.RWMutex
	data map[submissionKey]*domain.SubmissionRecord
}

// NewSubmissionStore creates a new in-memory submission store.
func NewSubmissionStore() *SubmissionStore {
	return &SubmissionStore{
		data: make(map[submissionKey]*domain.SubmissionRecord),
	}
}

// Insert adds a new submission. Returns ErrDuplicateKey if (oracle, index) exists.
func (s *SubmissionStore) Insert(_ context.Context, rec *domain.SubmissionRecord) error {
	if rec == nil || rec.Oracle == "" || rec.Submitter == "" {
		return storage.ErrInvalidInput
	}

	key := submissionKey{rec.Oracle, rec.Index}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[key]; exists {
		return storage.ErrDuplicateKey
	}

	recCopy := *rec
	s.data[key] = &recCopy
	return nil
}

// GetByIndex retrieves one submission.
func (s *SubmissionStore) GetByIndex(_ context.Context, oracle domain.Address, index uint64) (*domain.SubmissionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.data[submissionKey{oracle, index}]
	if !ok {
		return nil, storage.ErrNotFound
	}
	recCopy := *rec
	return &recCopy, nil
}

// GetByOracle retrieves all submissions of an oracle, ordered by index ASC.
func (s *SubmissionStore) GetByOracle(_ context.Context, oracle domain.Address) ([]*domain.SubmissionRecord, error) {
	return s.filter(oracle, func(*domain.SubmissionRecord) bool { return true }), nil
}

// GetByTimeRange retrieves submissions within [start, end] (inclusive).
func (s *SubmissionStore) GetByTimeRange(_ context.Context, oracle domain.Address, start, end uint64) ([]*domain.SubmissionRecord, error) {
	return s.filter(oracle, func(rec *domain.SubmissionRecord) bool {
		return rec.Timestamp >= start && rec.Timestamp <= end
	}), nil
}

// DeleteFrom removes submissions of an oracle with index >= from.
func (s *SubmissionStore) DeleteFrom(_ context.Context, oracle domain.Address, from uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key := range s.data {
		if key.oracle == oracle && key.index >= from {
			delete(s.data, key)
		}
	}
	return nil
}

func (s *SubmissionStore) filter(oracle domain.Address, keep func(*domain.SubmissionRecord) bool) []*domain.SubmissionRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.SubmissionRecord
	for key, rec := range s.data {
		if key.oracle == oracle && keep(rec) {
			recCopy := *rec
			result = append(result, &recCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Index < result[j].Index
	})

	return result
}

var _ storage.SubmissionStore = (*SubmissionStore)(nil)
