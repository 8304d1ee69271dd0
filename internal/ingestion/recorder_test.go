package ingestion

import (
	"context"
	"sync"
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weighted-oracle/internal/domain"
	"weighted-oracle/internal/idhash"
	"weighted-oracle/internal/oracle"
	"weighted-oracle/internal/registry"
	"weighted-oracle/internal/signing"
	"weighted-oracle/internal/storage/memory"
	"weighted-oracle/internal/token"
)

type countingBroadcaster struct {
	mu      sync.Mutex
	commits []oracle.Commit
}

func (b *countingBroadcaster) Broadcast(c oracle.Commit) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.commits = append(b.commits, c)
}

func memoryStores() Stores {
	return Stores{
		Oracles:      memory.NewOracleStore(),
		Events:       memory.NewEventStore(),
		Submissions:  memory.NewSubmissionStore(),
		Snapshots:    memory.NewSnapshotStore(),
		PriceHistory: memory.NewPriceHistoryStore(),
	}
}

type world struct {
	reg   *registry.Registry
	clock *oracle.ManualClock
	wgt   *token.Ledger
	nat   *token.Ledger
}

func newWorld(t *testing.T, rec *Recorder) *world {
	t.Helper()

	factory, err := idhash.FactoryAddress("ingestion-test")
	require.NoError(t, err)

	nat := token.NewLedger("native", "NAT")
	wgt := token.NewLedger("wgt", "WGT")
	bank := token.NewBank(nat)
	require.NoError(t, bank.Add(wgt))

	clock := oracle.NewManualClock(1_700_000_000)
	opts := registry.Options{Factory: factory, Bank: bank, Clock: clock}
	if rec != nil {
		opts.Sink = rec
		opts.Listener = rec
	}
	reg, err := registry.New(opts)
	require.NoError(t, err)
	return &world{reg: reg, clock: clock, wgt: wgt, nat: nat}
}

func TestRecorder_PersistsCommits(t *testing.T) {
	ctx := context.Background()
	stores := memoryStores()
	hub := &countingBroadcaster{}
	rec := NewRecorder(RecorderOptions{Stores: stores, Broadcaster: hub})
	w := newWorld(t, rec)

	alice, err := signing.GenerateKey()
	require.NoError(t, err)

	info, err := w.reg.CreateOracle(ctx, alice.Address, domain.DefaultOracleConfig("", "wgt", "ETH/USD"))
	require.NoError(t, err)
	o, err := w.reg.Get(info.Oracle)
	require.NoError(t, err)

	require.NoError(t, w.wgt.Mint(alice.Address, sdkmath.NewInt(100)))
	require.NoError(t, w.wgt.Approve(alice.Address, info.Oracle, sdkmath.NewInt(100)))
	require.NoError(t, o.DepositTokens(ctx, alice.Address, sdkmath.NewInt(100)))
	w.clock.Advance(3600)
	_, err = o.SubmitValue(ctx, alice.Address, sdkmath.NewInt(2500))
	require.NoError(t, err)

	stored, err := stores.Oracles.GetByAddress(ctx, info.Oracle)
	require.NoError(t, err)
	assert.Equal(t, info.Config.Name, stored.Config.Name)

	events, err := stores.Events.GetByOracle(ctx, info.Oracle)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, domain.EventTokenDeposited, events[0].Type)
	assert.Equal(t, domain.EventPriceSubmitted, events[1].Type)

	sub, err := stores.Submissions.GetByIndex(ctx, info.Oracle, 0)
	require.NoError(t, err)
	assert.Equal(t, "2500", sub.AggregatedPrice.String())

	points, err := stores.PriceHistory.GetByOracle(ctx, info.Oracle)
	require.NoError(t, err)
	assert.Len(t, points, 1)

	snap, err := stores.Snapshots.GetLatest(ctx, info.Oracle)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), snap.Sequence)
	assert.Equal(t, uint64(1), snap.HistoryLength)

	assert.Len(t, hub.commits, 2)
}

func TestRestoreRegistry_RoundTrip(t *testing.T) {
	ctx := context.Background()
	stores := memoryStores()
	w := newWorld(t, NewRecorder(RecorderOptions{Stores: stores}))

	alice, err := signing.GenerateKey()
	require.NoError(t, err)
	info, err := w.reg.CreateOracle(ctx, alice.Address, domain.DefaultOracleConfig("", "wgt", "ETH/USD"))
	require.NoError(t, err)
	o, err := w.reg.Get(info.Oracle)
	require.NoError(t, err)

	require.NoError(t, w.wgt.Mint(alice.Address, sdkmath.NewInt(100)))
	require.NoError(t, w.wgt.Approve(alice.Address, info.Oracle, sdkmath.NewInt(100)))
	require.NoError(t, o.DepositTokens(ctx, alice.Address, sdkmath.NewInt(100)))
	w.clock.Advance(3600)
	_, err = o.SubmitValue(ctx, alice.Address, sdkmath.NewInt(2500))
	require.NoError(t, err)
	w.clock.Advance(3600)
	_, err = o.SubmitValue(ctx, alice.Address, sdkmath.NewInt(2600))
	require.NoError(t, err)

	fresh := newWorld(t, nil)
	n, err := RestoreRegistry(ctx, fresh.reg, stores, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	restored, err := fresh.reg.Get(info.Oracle)
	require.NoError(t, err)
	assert.Equal(t, o.Consensus(ctx).AggregatedPrice.String(), restored.Consensus(ctx).AggregatedPrice.String())
	assert.Equal(t, uint64(2), restored.GetPriceHistoryLength(ctx))
	assert.Equal(t, "100", restored.TotalDepositedTokens(ctx).String())
	assert.Equal(t, "100", fresh.wgt.BalanceOf(info.Oracle).String())
}

func TestRestoreRegistry_DropsRowsAheadOfSnapshot(t *testing.T) {
	ctx := context.Background()
	stores := memoryStores()
	w := newWorld(t, NewRecorder(RecorderOptions{Stores: stores}))

	alice, err := signing.GenerateKey()
	require.NoError(t, err)
	info, err := w.reg.CreateOracle(ctx, alice.Address, domain.DefaultOracleConfig("", "wgt", "ETH/USD"))
	require.NoError(t, err)
	o, err := w.reg.Get(info.Oracle)
	require.NoError(t, err)

	require.NoError(t, w.wgt.Mint(alice.Address, sdkmath.NewInt(100)))
	require.NoError(t, w.wgt.Approve(alice.Address, info.Oracle, sdkmath.NewInt(100)))
	require.NoError(t, o.DepositTokens(ctx, alice.Address, sdkmath.NewInt(100)))
	w.clock.Advance(3600)
	_, err = o.SubmitValue(ctx, alice.Address, sdkmath.NewInt(2500))
	require.NoError(t, err)

	// Rows of a commit whose snapshot was never written.
	orphan := domain.SubmissionRecord{
		Oracle:          info.Oracle,
		Index:           1,
		Submitter:       alice.Address,
		Timestamp:       w.clock.Now(),
		Value:           sdkmath.NewInt(9999),
		AggregatedPrice: sdkmath.NewInt(9999),
		Weight:          sdkmath.NewInt(100),
		RewardPaid:      sdkmath.ZeroInt(),
	}
	require.NoError(t, stores.Submissions.Insert(ctx, &orphan))
	point := domain.PricePointFromSubmission(orphan)
	require.NoError(t, stores.PriceHistory.InsertBulk(ctx, []*domain.PricePoint{&point}))
	orphanEvent := domain.NewEvent(info.Oracle, domain.EventPriceSubmitted, w.clock.Now())
	orphanEvent.Sequence = 3
	orphanEvent.ID = idhash.ComputeEventID(info.Oracle, 3, orphanEvent.Type, orphanEvent.Timestamp)
	require.NoError(t, stores.Events.InsertBulk(ctx, []*domain.Event{&orphanEvent}))

	fresh := newWorld(t, NewRecorder(RecorderOptions{Stores: stores}))
	n, err := RestoreRegistry(ctx, fresh.reg, stores, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = stores.Submissions.GetByIndex(ctx, info.Oracle, 1)
	assert.Error(t, err)
	events, err := stores.Events.GetByOracle(ctx, info.Oracle)
	require.NoError(t, err)
	assert.Len(t, events, 2)

	restored, err := fresh.reg.Get(info.Oracle)
	require.NoError(t, err)
	fresh.clock.Set(w.clock.Now() + 3600)
	rec, err := restored.SubmitValue(ctx, alice.Address, sdkmath.NewInt(2600))
	require.NoError(t, err)
	assert.Equal(t, "2550", rec.AggregatedPrice.String())

	sub, err := stores.Submissions.GetByIndex(ctx, info.Oracle, 1)
	require.NoError(t, err)
	assert.Equal(t, "2600", sub.Value.String())
	assert.Equal(t, "2550", sub.AggregatedPrice.String())

	points, err := stores.PriceHistory.GetByOracle(ctx, info.Oracle)
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, "2600", points[1].Value.String())

	events, err = stores.Events.GetByOracle(ctx, info.Oracle)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, uint64(3), events[2].Sequence)
	assert.Equal(t, "2550", events[2].Aggregate.String())

	snap, err := stores.Snapshots.GetLatest(ctx, info.Oracle)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), snap.Sequence)
	assert.Equal(t, uint64(2), snap.HistoryLength)
}
