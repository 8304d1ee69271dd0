package ingestion

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/rs/zerolog"

	"weighted-oracle/internal/domain"
	"weighted-oracle/internal/observability"
	"weighted-oracle/internal/oracle"
	"weighted-oracle/internal/registry"
	"weighted-oracle/internal/storage"
)

// Broadcaster fans committed operations out to live subscribers.
type Broadcaster interface {
	Broadcast(c oracle.Commit)
}

// Stores groups the persistence backends a Recorder writes to.
// Any store may be nil to skip that projection.
type Stores struct {
	Oracles      storage.OracleStore
	Events       storage.EventStore
	Submissions  storage.SubmissionStore
	Snapshots    storage.SnapshotStore
	PriceHistory storage.PriceHistoryStore
}

// RecorderOptions contains configuration for creating a Recorder.
type RecorderOptions struct {
	Stores      Stores
	Broadcaster Broadcaster // optional
	Database    string      // metrics label, e.g. "postgres" or "memory"
	Logger      *zerolog.Logger
}

// Recorder persists committed oracle operations and registry entries.
// It implements oracle.Sink and registry.Listener.
type Recorder struct {
	stores      Stores
	broadcaster Broadcaster
	database    string
	logger      zerolog.Logger
}

var (
	_ oracle.Sink       = (*Recorder)(nil)
	_ registry.Listener = (*Recorder)(nil)
)

// NewRecorder creates a recorder over the given stores.
func NewRecorder(opts RecorderOptions) *Recorder {
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	database := opts.Database
	if database == "" {
		database = "memory"
	}
	return &Recorder{
		stores:      opts.Stores,
		broadcaster: opts.Broadcaster,
		database:    database,
		logger:      logger,
	}
}

// Commit stores one committed operation: the submission first, then its
// events and price point, and finally the snapshot that covers all of them.
// Broadcast happens even when persistence fails so live clients stay current.
func (r *Recorder) Commit(ctx context.Context, c oracle.Commit) error {
	err := r.persist(ctx, c)

	if r.broadcaster != nil {
		r.broadcaster.Broadcast(c)
	}

	observability.RecordCommit(c.Snapshot.TakenAt)
	observability.UpdateTotalDeposited(string(c.Oracle), toFloat(c.Snapshot.TotalDeposited))
	for _, e := range c.Events {
		switch e.Type {
		case domain.EventPriceSubmitted:
			observability.RecordSubmission(string(c.Oracle), e.Flag, toFloat(e.Aggregate), toFloat(e.Amount))
		case domain.EventBlacklistStatusChanged:
			observability.RecordBlacklistChange(string(c.Oracle), e.Flag)
		}
	}

	return err
}

func (r *Recorder) persist(ctx context.Context, c oracle.Commit) error {
	if c.Submission != nil {
		sub := *c.Submission
		if r.stores.Submissions != nil {
			if err := r.timed("insert_submission", func() error {
				return r.stores.Submissions.Insert(ctx, &sub)
			}); err != nil {
				return fmt.Errorf("store submission %d of %s: %w", sub.Index, c.Oracle, err)
			}
		}
		if r.stores.PriceHistory != nil {
			point := domain.PricePointFromSubmission(sub)
			if err := r.timed("insert_price_history", func() error {
				return r.stores.PriceHistory.InsertBulk(ctx, []*domain.PricePoint{&point})
			}); err != nil {
				return fmt.Errorf("store price point %d of %s: %w", sub.Index, c.Oracle, err)
			}
		}
	}

	if r.stores.Events != nil && len(c.Events) > 0 {
		events := make([]*domain.Event, len(c.Events))
		for i := range c.Events {
			e := c.Events[i]
			events[i] = &e
		}
		if err := r.timed("insert_events", func() error {
			return r.stores.Events.InsertBulk(ctx, events)
		}); err != nil {
			return fmt.Errorf("store %d events of %s: %w", len(events), c.Oracle, err)
		}
	}

	if r.stores.Snapshots != nil {
		snap := c.Snapshot
		if err := r.timed("upsert_snapshot", func() error {
			return r.stores.Snapshots.Upsert(ctx, &snap)
		}); err != nil {
			return fmt.Errorf("store snapshot of %s: %w", c.Oracle, err)
		}
	}
	return nil
}

// OracleCreated stores a new registry entry.
func (r *Recorder) OracleCreated(ctx context.Context, info domain.OracleInfo) error {
	if r.stores.Oracles == nil {
		return nil
	}
	err := r.timed("insert_oracle", func() error {
		return r.stores.Oracles.Insert(ctx, &info)
	})
	if err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
		return fmt.Errorf("store oracle %s: %w", info.Oracle, err)
	}
	return nil
}

func (r *Recorder) timed(operation string, fn func() error) error {
	start := time.Now()
	err := fn()
	observability.RecordDBQuery(r.database, operation, time.Since(start).Seconds(), err)
	return err
}

func toFloat(v sdkmath.Int) float64 {
	if v.IsNil() {
		return 0
	}
	f, _ := new(big.Float).SetInt(v.BigInt()).Float64()
	return f
}
