package metrics

import (
	"context"
	"errors"
	"testing"

	sdkmath "cosmossdk.io/math"

	"weighted-oracle/internal/domain"
	"weighted-oracle/internal/storage/memory"
)

func makeSubmission(oracle domain.Address, index, ts uint64, value, agg int64, final bool) *domain.SubmissionRecord {
	return &domain.SubmissionRecord{
		Oracle:          oracle,
		Index:           index,
		Submitter:       "alice",
		Timestamp:       ts,
		Value:           sdkmath.NewInt(value),
		AggregatedPrice: sdkmath.NewInt(agg),
		Weight:          sdkmath.NewInt(100),
		RewardPaid:      sdkmath.NewInt(5),
		Final:           final,
	}
}

func setupStore(t *testing.T) *memory.SubmissionStore {
	t.Helper()
	ctx := context.Background()
	store := memory.NewSubmissionStore()
	subs := []*domain.SubmissionRecord{
		makeSubmission("eth", 0, 1000, 2500, 2500, true),
		makeSubmission("eth", 1, 2000, 2600, 2550, true),
		makeSubmission("eth", 2, 3000, 2700, 2625, false),
		makeSubmission("btc", 0, 1500, 60000, 60000, true),
	}
	for _, s := range subs {
		if err := store.Insert(ctx, s); err != nil {
			t.Fatalf("Insert submission failed: %v", err)
		}
	}
	return store
}

func TestComputeStats(t *testing.T) {
	agg := NewAggregator(setupStore(t))

	stats, err := agg.ComputeStats(context.Background(), "eth")
	if err != nil {
		t.Fatalf("ComputeStats failed: %v", err)
	}
	if stats.Oracle != "eth" || stats.Submissions != 3 {
		t.Errorf("expected 3 eth submissions, got %s/%d", stats.Oracle, stats.Submissions)
	}
	if stats.LastAggregate.String() != "2625" {
		t.Errorf("expected last aggregate 2625, got %s", stats.LastAggregate)
	}
	if !stats.ValueMean.Equal(dec("2600")) {
		t.Errorf("expected mean 2600, got %s", stats.ValueMean)
	}
	if stats.TotalRewardsPaid.String() != "15" {
		t.Errorf("expected rewards 15, got %s", stats.TotalRewardsPaid)
	}
	if stats.FinalizedRate < 0.66 || stats.FinalizedRate > 0.67 {
		t.Errorf("expected finalized rate 2/3, got %f", stats.FinalizedRate)
	}
}

func TestComputeStats_NoSubmissions(t *testing.T) {
	agg := NewAggregator(setupStore(t))

	_, err := agg.ComputeStats(context.Background(), "sol")
	if !errors.Is(err, ErrNoSubmissions) {
		t.Errorf("expected ErrNoSubmissions, got %v", err)
	}
}

func TestComputeWindow(t *testing.T) {
	agg := NewAggregator(setupStore(t))

	stats, err := agg.ComputeWindow(context.Background(), "eth", 1500, 3000)
	if err != nil {
		t.Fatalf("ComputeWindow failed: %v", err)
	}
	if stats.Submissions != 2 || stats.FirstTimestamp != 2000 {
		t.Errorf("expected 2 submissions from 2000, got %d from %d", stats.Submissions, stats.FirstTimestamp)
	}

	if _, err := agg.ComputeWindow(context.Background(), "eth", 5000, 6000); !errors.Is(err, ErrNoSubmissions) {
		t.Errorf("expected ErrNoSubmissions for empty window, got %v", err)
	}
}

func TestComputeAll_KeepsOrderAndEmptyOracles(t *testing.T) {
	agg := NewAggregator(setupStore(t))
	infos := []*domain.OracleInfo{{Oracle: "btc"}, {Oracle: "sol"}, {Oracle: "eth"}}

	all, err := agg.ComputeAll(context.Background(), infos)
	if err != nil {
		t.Fatalf("ComputeAll failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 results, got %d", len(all))
	}
	for i, want := range []domain.Address{"btc", "sol", "eth"} {
		if all[i].Oracle != want {
			t.Errorf("result %d: expected %s, got %s", i, want, all[i].Oracle)
		}
	}
	if all[1].Submissions != 0 {
		t.Errorf("expected empty stats for sol, got %d submissions", all[1].Submissions)
	}
}
