package storage

import (
	"context"

	"weighted-oracle/internal/domain"
)

// OracleStore provides access to oracles (registry entries) storage.
type OracleStore interface {
	// Insert adds a new registry entry. Returns ErrDuplicateKey if the address exists.
	Insert(ctx context.Context, info *domain.OracleInfo) error

	// GetByAddress retrieves an entry by oracle address. Returns ErrNotFound if not exists.
	GetByAddress(ctx context.Context, oracle domain.Address) (*domain.OracleInfo, error)

	// GetAll retrieves all entries, ordered by creation index ASC.
	GetAll(ctx context.Context) ([]*domain.OracleInfo, error)
}

// EventStore provides access to oracle_events storage.
type EventStore interface {
	// InsertBulk adds multiple events atomically. Fails entire batch on duplicate (oracle, sequence).
	InsertBulk(ctx context.Context, events []*domain.Event) error

	// GetByOracle retrieves all events of an oracle, ordered by sequence ASC.
	GetByOracle(ctx context.Context, oracle domain.Address) ([]*domain.Event, error)

	// GetBySequenceRange retrieves events of an oracle with sequence in [from, to] (inclusive).
	GetBySequenceRange(ctx context.Context, oracle domain.Address, from, to uint64) ([]*domain.Event, error)

	// DeleteAfter removes events of an oracle with sequence > after.
	DeleteAfter(ctx context.Context, oracle domain.Address, after uint64) error
}

// SubmissionStore provides access to submissions storage.
type SubmissionStore interface {
	// Insert adds a new submission. Returns ErrDuplicateKey if (oracle, index) exists.
	Insert(ctx context.Context, s *domain.SubmissionRecord) error

	// GetByIndex retrieves one submission. Returns ErrNotFound if not exists.
	GetByIndex(ctx context.Context, oracle domain.Address, index uint64) (*domain.SubmissionRecord, error)

	// GetByOracle retrieves all submissions of an oracle, ordered by index ASC.
	GetByOracle(ctx context.Context, oracle domain.Address) ([]*domain.SubmissionRecord, error)

	// GetByTimeRange retrieves submissions of an oracle within [start, end] (inclusive), ordered by index ASC.
	GetByTimeRange(ctx context.Context, oracle domain.Address, start, end uint64) ([]*domain.SubmissionRecord, error)

	// DeleteFrom removes submissions of an oracle with index >= from.
	DeleteFrom(ctx context.Context, oracle domain.Address, from uint64) error
}

// SnapshotStore keeps the latest engine snapshot per oracle.
type SnapshotStore interface {
	// Upsert stores s unless a snapshot with a higher sequence is already stored.
	Upsert(ctx context.Context, s *domain.OracleSnapshot) error

	// GetLatest retrieves the stored snapshot. Returns ErrNotFound if none saved yet.
	GetLatest(ctx context.Context, oracle domain.Address) (*domain.OracleSnapshot, error)
}

// PriceHistoryStore provides access to price_history storage.
type PriceHistoryStore interface {
	// InsertBulk adds multiple points. Fails entire batch on duplicate (oracle, index).
	InsertBulk(ctx context.Context, points []*domain.PricePoint) error

	// GetByOracle retrieves all points of an oracle, ordered by index ASC.
	GetByOracle(ctx context.Context, oracle domain.Address) ([]*domain.PricePoint, error)

	// GetByTimeRange retrieves points of an oracle within [start, end] (inclusive).
	GetByTimeRange(ctx context.Context, oracle domain.Address, start, end uint64) ([]*domain.PricePoint, error)

	// DeleteFrom removes points of an oracle with index >= from.
	DeleteFrom(ctx context.Context, oracle domain.Address, from uint64) error
}
