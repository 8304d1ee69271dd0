package postgres

import (
	"context"
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weighted-oracle/internal/domain"
	"weighted-oracle/internal/storage"
)

func testSubmission(oracle domain.Address, index uint64) *domain.SubmissionRecord {
	return &domain.SubmissionRecord{
		Oracle:          oracle,
		Index:           index,
		Submitter:       testAddr(1),
		Timestamp:       1700000000 + index*60,
		Value:           sdkmath.NewInt(2500 + int64(index)),
		AggregatedPrice: sdkmath.NewInt(2500),
		Weight:          sdkmath.NewInt(100),
		RewardPaid:      sdkmath.NewInt(250),
		Final:           true,
	}
}

func TestSubmissionStore_InsertAndGetByIndex(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewSubmissionStore(pool)
	sub := testSubmission(testAddr(10), 0)

	require.NoError(t, store.Insert(ctx, sub))

	got, err := store.GetByIndex(ctx, sub.Oracle, 0)
	require.NoError(t, err)
	assert.Equal(t, sub.Submitter, got.Submitter)
	assert.Equal(t, sub.Timestamp, got.Timestamp)
	assert.Equal(t, sub.Value.String(), got.Value.String())
	assert.Equal(t, sub.AggregatedPrice.String(), got.AggregatedPrice.String())
	assert.Equal(t, sub.RewardPaid.String(), got.RewardPaid.String())
	assert.True(t, got.Final)

	_, err = store.GetByIndex(ctx, sub.Oracle, 1)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestSubmissionStore_InsertDuplicate(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewSubmissionStore(pool)
	sub := testSubmission(testAddr(10), 0)

	require.NoError(t, store.Insert(ctx, sub))
	assert.ErrorIs(t, store.Insert(ctx, sub), storage.ErrDuplicateKey)
}

func TestSubmissionStore_GetByTimeRange(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewSubmissionStore(pool)
	oracle := testAddr(10)
	for i := uint64(0); i < 4; i++ {
		require.NoError(t, store.Insert(ctx, testSubmission(oracle, i)))
	}

	all, err := store.GetByOracle(ctx, oracle)
	require.NoError(t, err)
	assert.Len(t, all, 4)

	got, err := store.GetByTimeRange(ctx, oracle, 1700000060, 1700000120)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, uint64(1), got[0].Index)
	assert.Equal(t, uint64(2), got[1].Index)
}

func TestSubmissionStore_DeleteFrom(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewSubmissionStore(pool)
	oracle := testAddr(10)
	for i := uint64(0); i < 3; i++ {
		require.NoError(t, store.Insert(ctx, testSubmission(oracle, i)))
	}
	require.NoError(t, store.Insert(ctx, testSubmission(testAddr(11), 2)))

	require.NoError(t, store.DeleteFrom(ctx, oracle, 1))

	got, err := store.GetByOracle(ctx, oracle)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, uint64(0), got[0].Index)

	_, err = store.GetByIndex(ctx, testAddr(11), 2)
	require.NoError(t, err)
	require.NoError(t, store.Insert(ctx, testSubmission(oracle, 1)))
}
