package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"weighted-oracle/internal/domain"
	"weighted-oracle/internal/storage"
)

// SnapshotStore implements storage.SnapshotStore using PostgreSQL.
type SnapshotStore struct {
	pool *Pool
}

// NewSnapshotStore creates a new SnapshotStore.
func NewSnapshotStore(pool *Pool) *SnapshotStore {
	return &SnapshotStore{pool: pool}
}

var _ storage.SnapshotStore = (*SnapshotStore)(nil)

// Upsert stores snap unless a snapshot with a higher sequence is already stored.
func (s *SnapshotStore) Upsert(ctx context.Context, snap *domain.OracleSnapshot) error {
	state, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	query := `
		INSERT INTO oracle_snapshots (oracle, sequence, taken_at, state)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (oracle) DO UPDATE SET
			sequence = EXCLUDED.sequence,
			taken_at = EXCLUDED.taken_at,
			state = EXCLUDED.state,
			updated_at = NOW()
		WHERE oracle_snapshots.sequence <= EXCLUDED.sequence
	`

	_, err = s.pool.Exec(ctx, query,
		string(snap.Oracle),
		int64(snap.Sequence),
		int64(snap.TakenAt),
		state,
	)
	if err != nil {
		return fmt.Errorf("upsert snapshot: %w", err)
	}
	return nil
}

// GetLatest retrieves the stored snapshot. Returns ErrNotFound if none saved yet.
func (s *SnapshotStore) GetLatest(ctx context.Context, oracle domain.Address) (*domain.OracleSnapshot, error) {
	var state []byte
	err := s.pool.QueryRow(ctx, `SELECT state FROM oracle_snapshots WHERE oracle = $1`, string(oracle)).Scan(&state)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get snapshot: %w", err)
	}

	var snap domain.OracleSnapshot
	if err := json.Unmarshal(state, &snap); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot of %s: %w", oracle, err)
	}
	return &snap, nil
}
