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

func testEvents(oracle domain.Address, n int) []*domain.Event {
	events := make([]*domain.Event, n)
	for i := range events {
		e := domain.NewEvent(oracle, domain.EventPriceSubmitted, uint64(1700000000+i))
		e.Sequence = uint64(i + 1)
		e.ID = "evt-" + string(rune('a'+i))
		e.Account = testAddr(1)
		e.Value = sdkmath.NewInt(2500 + int64(i))
		e.Aggregate = sdkmath.NewInt(2500)
		e.Weight = sdkmath.NewInt(100)
		e.Flag = i%2 == 0
		events[i] = &e
	}
	return events
}

func TestEventStore_InsertBulkAndGet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewEventStore(pool)
	oracle := testAddr(10)

	events := testEvents(oracle, 3)
	// Values beyond int64 survive the NUMERIC round trip.
	big, ok := sdkmath.NewIntFromString("340282366920938463463374607431768211456")
	require.True(t, ok)
	events[2].Amount = big

	require.NoError(t, store.InsertBulk(ctx, events))

	got, err := store.GetByOracle(ctx, oracle)
	require.NoError(t, err)
	require.Len(t, got, 3)
	for i := range events {
		assert.Equal(t, events[i].ID, got[i].ID)
		assert.Equal(t, events[i].Sequence, got[i].Sequence)
		assert.Equal(t, events[i].Type, got[i].Type)
		assert.Equal(t, events[i].Account, got[i].Account)
		assert.Equal(t, events[i].Value.String(), got[i].Value.String())
		assert.Equal(t, events[i].Amount.String(), got[i].Amount.String())
		assert.Equal(t, events[i].Flag, got[i].Flag)
	}
}

func TestEventStore_InsertBulkDuplicateRollsBack(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewEventStore(pool)
	oracle := testAddr(10)

	events := testEvents(oracle, 2)
	require.NoError(t, store.InsertBulk(ctx, events[:1]))

	err := store.InsertBulk(ctx, events)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	got, err := store.GetByOracle(ctx, oracle)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestEventStore_GetBySequenceRange(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewEventStore(pool)
	oracle := testAddr(10)
	require.NoError(t, store.InsertBulk(ctx, testEvents(oracle, 5)))

	got, err := store.GetBySequenceRange(ctx, oracle, 2, 4)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, uint64(2), got[0].Sequence)
	assert.Equal(t, uint64(4), got[2].Sequence)

	got, err = store.GetBySequenceRange(ctx, testAddr(11), 1, 5)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestEventStore_DeleteAfter(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewEventStore(pool)
	oracle := testAddr(10)
	events := testEvents(oracle, 3)
	require.NoError(t, store.InsertBulk(ctx, events))

	require.NoError(t, store.DeleteAfter(ctx, oracle, 1))

	got, err := store.GetByOracle(ctx, oracle)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, uint64(1), got[0].Sequence)

	require.NoError(t, store.InsertBulk(ctx, events[1:]))
}
