package clickhouse

import (
	"context"
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weighted-oracle/internal/domain"
	"weighted-oracle/internal/storage"
)

func testPoints(oracle domain.Address, n int) []*domain.PricePoint {
	points := make([]*domain.PricePoint, n)
	for i := range points {
		points[i] = &domain.PricePoint{
			Oracle:          oracle,
			Index:           uint64(i),
			Timestamp:       1700000000 + uint64(i)*1800,
			Submitter:       testAddr(1),
			Value:           sdkmath.NewInt(2500 + int64(i)*10),
			AggregatedPrice: sdkmath.NewInt(2500 + int64(i)*5),
			Weight:          sdkmath.NewInt(100),
			Final:           i%2 == 0,
		}
	}
	return points
}

func TestPriceHistoryStore_InsertBulkAndGet(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewPriceHistoryStore(conn)
	oracle := testAddr(10)

	points := testPoints(oracle, 3)
	huge, ok := sdkmath.NewIntFromString("115792089237316195423570985008687907853269984665640564039457")
	require.True(t, ok)
	points[1].Weight = huge

	require.NoError(t, store.InsertBulk(ctx, points))

	got, err := store.GetByOracle(ctx, oracle)
	require.NoError(t, err)
	require.Len(t, got, 3)
	for i := range points {
		assert.Equal(t, points[i].Index, got[i].Index)
		assert.Equal(t, points[i].Timestamp, got[i].Timestamp)
		assert.Equal(t, points[i].Submitter, got[i].Submitter)
		assert.Equal(t, points[i].Value.String(), got[i].Value.String())
		assert.Equal(t, points[i].AggregatedPrice.String(), got[i].AggregatedPrice.String())
		assert.Equal(t, points[i].Weight.String(), got[i].Weight.String())
		assert.Equal(t, points[i].Final, got[i].Final)
	}
}

func TestPriceHistoryStore_RejectsDuplicates(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewPriceHistoryStore(conn)
	oracle := testAddr(10)
	points := testPoints(oracle, 2)

	err := store.InsertBulk(ctx, []*domain.PricePoint{points[0], points[0]})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	require.NoError(t, store.InsertBulk(ctx, points[:1]))
	err = store.InsertBulk(ctx, points)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	got, err := store.GetByOracle(ctx, oracle)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestPriceHistoryStore_GetByTimeRangeAndHourly(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewPriceHistoryStore(conn)
	oracle := testAddr(10)
	require.NoError(t, store.InsertBulk(ctx, testPoints(oracle, 4)))

	got, err := store.GetByTimeRange(ctx, oracle, 1700001800, 1700003600)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, uint64(1), got[0].Index)

	buckets, err := store.GetHourly(ctx, oracle)
	require.NoError(t, err)
	require.NotEmpty(t, buckets)

	var total uint64
	for _, b := range buckets {
		total += b.Submissions
		assert.LessOrEqual(t, b.MinValue.Cmp(b.MaxValue), 0)
	}
	assert.Equal(t, uint64(4), total)
}

func TestPriceHistoryStore_DeleteFrom(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewPriceHistoryStore(conn)
	oracle := testAddr(10)
	points := testPoints(oracle, 3)
	require.NoError(t, store.InsertBulk(ctx, points))

	require.NoError(t, store.DeleteFrom(ctx, oracle, 1))

	got, err := store.GetByOracle(ctx, oracle)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, uint64(0), got[0].Index)

	require.NoError(t, store.InsertBulk(ctx, points[1:]))
}
