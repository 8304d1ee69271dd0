package ingestion

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"weighted-oracle/internal/domain"
	"weighted-oracle/internal/registry"
	"weighted-oracle/internal/storage"
)

// RestoreRegistry re-registers every stored oracle with its latest snapshot and
// submission history. Oracles without a snapshot start from empty state.
// Returns the number of oracles restored.
func RestoreRegistry(ctx context.Context, reg *registry.Registry, stores Stores, logger zerolog.Logger) (int, error) {
	if stores.Oracles == nil {
		return 0, nil
	}

	infos, err := stores.Oracles.GetAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("load oracles: %w", err)
	}

	for _, info := range infos {
		snap, history, err := loadState(ctx, stores, info.Oracle)
		if err != nil {
			return 0, err
		}
		if snap != nil && uint64(len(history)) > snap.HistoryLength {
			logger.Warn().
				Str("oracle", string(info.Oracle)).
				Uint64("snapshot_length", snap.HistoryLength).
				Int("stored", len(history)).
				Msg("submission log is ahead of snapshot, truncating")
			history = history[:snap.HistoryLength]
		}
		if err := truncate(ctx, stores, info.Oracle, snap); err != nil {
			return 0, err
		}

		if _, err := reg.Restore(*info, snap, history); err != nil {
			return 0, err
		}
		logger.Info().
			Str("oracle", string(info.Oracle)).
			Str("name", info.Config.Name).
			Int("submissions", len(history)).
			Msg("oracle restored")
	}
	return len(infos), nil
}

// truncate drops stored rows the snapshot does not cover. They were written by
// a commit whose snapshot never landed, and the restored oracle reuses their
// indexes and sequence numbers.
func truncate(ctx context.Context, stores Stores, oracle domain.Address, snap *domain.OracleSnapshot) error {
	if stores.Snapshots == nil {
		return nil
	}
	var length, sequence uint64
	if snap != nil {
		length, sequence = snap.HistoryLength, snap.Sequence
	}
	if stores.Submissions != nil {
		if err := stores.Submissions.DeleteFrom(ctx, oracle, length); err != nil {
			return fmt.Errorf("truncate submissions of %s: %w", oracle, err)
		}
	}
	if stores.PriceHistory != nil {
		if err := stores.PriceHistory.DeleteFrom(ctx, oracle, length); err != nil {
			return fmt.Errorf("truncate price history of %s: %w", oracle, err)
		}
	}
	if stores.Events != nil {
		if err := stores.Events.DeleteAfter(ctx, oracle, sequence); err != nil {
			return fmt.Errorf("truncate events of %s: %w", oracle, err)
		}
	}
	return nil
}

func loadState(ctx context.Context, stores Stores, oracle domain.Address) (*domain.OracleSnapshot, []domain.SubmissionRecord, error) {
	if stores.Snapshots == nil {
		return nil, nil, nil
	}
	snap, err := stores.Snapshots.GetLatest(ctx, oracle)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("load snapshot of %s: %w", oracle, err)
	}

	var history []domain.SubmissionRecord
	if stores.Submissions != nil {
		records, err := stores.Submissions.GetByOracle(ctx, oracle)
		if err != nil {
			return nil, nil, fmt.Errorf("load submissions of %s: %w", oracle, err)
		}
		history = make([]domain.SubmissionRecord, len(records))
		for i, rec := range records {
			history[i] = *rec
		}
	}
	return snap, history, nil
}
