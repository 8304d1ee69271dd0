package memory

import (
	"context"
	"sort"
	"sync"

	"weighted-oracle/internal/domain"
	"weighted-oracle/internal/storage"
)

// OracleStore is an in-memory implementation of storage.OracleStore.
type OracleStore struct {
	mu   sync.RWMutex
	data map[domain.Address]*domain.OracleInfo
}

// NewOracleStore creates a new in-memory oracle store.
func NewOracleStore() *OracleStore {
	return &OracleStore{
		data: make(map[domain.Address]*domain.OracleInfo),
	}
}

// Insert adds a new registry entry. Returns ErrDuplicateKey if the address exists.
func (s *OracleStore) Insert(_ context.Context, info *domain.OracleInfo) error {
	if info == nil || info.Oracle == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[info.Oracle]; exists {
		return storage.ErrDuplicateKey
	}

	infoCopy := *info
	s.data[info.Oracle] = &infoCopy
	return nil
}

// GetByAddress retrieves an entry by oracle address.
func (s *OracleStore) GetByAddress(_ context.Context, oracle domain.Address) (*domain.OracleInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	info, ok := s.data[oracle]
	if !ok {
		return nil, storage.ErrNotFound
	}
	infoCopy := *info
	return &infoCopy, nil
}

// GetAll retrieves all entries, ordered by creation index ASC.
func (s *OracleStore) GetAll(_ context.Context) ([]*domain.OracleInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.OracleInfo, 0, len(s.data))
	for _, info := range s.data {
		infoCopy := *info
		result = append(result, &infoCopy)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Index < result[j].Index
	})

	return result, nil
}

var _ storage.OracleStore = (*OracleStore)(nil)
