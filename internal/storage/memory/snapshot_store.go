package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"weighted-oracle/internal/domain"
	"weighted-oracle/internal/storage"
)

// SnapshotStore is an in-memory implementation of storage.SnapshotStore.
// Snapshots are kept JSON-encoded so callers never share slices with the store.
type SnapshotStore struct {
	mu        sync.RWMutex
	data      map[domain.Address][]byte
	sequences map[domain.Address]uint64
}

// NewSnapshotStore creates a new in-memory snapshot store.
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{
		data:      make(map[domain.Address][]byte),
		sequences: make(map[domain.Address]uint64),
	}
}

// Upsert stores snap unless a newer one is already stored.
func (s *SnapshotStore) Upsert(_ context.Context, snap *domain.OracleSnapshot) error {
	if snap == nil || snap.Oracle == "" {
		return storage.ErrInvalidInput
	}

	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if seq, ok := s.sequences[snap.Oracle]; ok && seq > snap.Sequence {
		return nil
	}
	s.data[snap.Oracle] = raw
	s.sequences[snap.Oracle] = snap.Sequence
	return nil
}

// GetLatest retrieves the stored snapshot.
func (s *SnapshotStore) GetLatest(_ context.Context, oracle domain.Address) (*domain.OracleSnapshot, error) {
	s.mu.RLock()
	raw, ok := s.data[oracle]
	s.mu.RUnlock()

	if !ok {
		return nil, storage.ErrNotFound
	}

	var snap domain.OracleSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &snap, nil
}

var _ storage.SnapshotStore = (*SnapshotStore)(nil)
