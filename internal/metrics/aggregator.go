// Package metrics computes statistics over recorded oracle histories.
package metrics

import (
	"context"
	"errors"
	"fmt"

	"weighted-oracle/internal/domain"
	"weighted-oracle/internal/storage"
)

// ErrNoSubmissions is returned when an oracle has no recorded submissions.
var ErrNoSubmissions = errors.New("no submissions available for statistics")

// Aggregator computes history statistics from stored submissions.
type Aggregator struct {
	submissionStore storage.SubmissionStore
}

// NewAggregator creates a new history aggregator.
func NewAggregator(submissionStore storage.SubmissionStore) *Aggregator {
	return &Aggregator{submissionStore: submissionStore}
}

// ComputeStats computes statistics for one oracle.
// Returns ErrNoSubmissions if the oracle has no history.
func (a *Aggregator) ComputeStats(ctx context.Context, oracle domain.Address) (*domain.HistoryStats, error) {
	subs, err := a.submissionStore.GetByOracle(ctx, oracle)
	if err != nil {
		return nil, err
	}
	if len(subs) == 0 {
		return nil, ErrNoSubmissions
	}
	return computeFromHistory(oracle, subs), nil
}

// ComputeWindow computes statistics over submissions within [start, end].
func (a *Aggregator) ComputeWindow(ctx context.Context, oracle domain.Address, start, end uint64) (*domain.HistoryStats, error) {
	subs, err := a.submissionStore.GetByTimeRange(ctx, oracle, start, end)
	if err != nil {
		return nil, err
	}
	if len(subs) == 0 {
		return nil, ErrNoSubmissions
	}
	return computeFromHistory(oracle, subs), nil
}

// ComputeAll computes statistics for every oracle in infos, in order.
// Oracles without history get empty statistics.
func (a *Aggregator) ComputeAll(ctx context.Context, infos []*domain.OracleInfo) ([]*domain.HistoryStats, error) {
	out := make([]*domain.HistoryStats, 0, len(infos))
	for _, info := range infos {
		stats, err := a.ComputeStats(ctx, info.Oracle)
		switch {
		case errors.Is(err, ErrNoSubmissions):
			stats = computeFromHistory(info.Oracle, nil)
		case err != nil:
			return nil, fmt.Errorf("stats for %s: %w", info.Oracle, err)
		}
		out = append(out, stats)
	}
	return out, nil
}
