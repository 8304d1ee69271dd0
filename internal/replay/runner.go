package replay

import (
	"context"

	"weighted-oracle/internal/domain"
	"weighted-oracle/internal/storage"
)

// Runner loads an oracle's event log from storage and replays it in sequence order.
type Runner struct {
	eventStore storage.EventStore
}

// NewRunner creates a new replay runner.
func NewRunner(eventStore storage.EventStore) *Runner {
	return &Runner{eventStore: eventStore}
}

// Run replays events with sequence in [from, to] through the engine.
// The log must be contiguous from sequence from.
func (r *Runner) Run(ctx context.Context, oracle domain.Address, from, to uint64, engine ReplayEngine) error {
	if from == 0 {
		from = 1
	}
	events, err := r.eventStore.GetBySequenceRange(ctx, oracle, from, to)
	if err != nil {
		return err
	}
	return replay(ctx, oracle, events, from-1, engine)
}

// RunAll replays the whole event log of an oracle through the engine.
func (r *Runner) RunAll(ctx context.Context, oracle domain.Address, engine ReplayEngine) error {
	events, err := r.eventStore.GetByOracle(ctx, oracle)
	if err != nil {
		return err
	}
	return replay(ctx, oracle, events, 0, engine)
}

func replay(ctx context.Context, oracle domain.Address, events []*domain.Event, after uint64, engine ReplayEngine) error {
	SortEvents(events)
	if err := CheckSequence(oracle, events, after); err != nil {
		return err
	}

	for _, event := range events {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := engine.OnEvent(ctx, event); err != nil {
			return err
		}
	}
	return nil
}
