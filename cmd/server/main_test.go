package main

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weighted-oracle/internal/config"
	"weighted-oracle/internal/ingestion"
	"weighted-oracle/internal/oracle"
	"weighted-oracle/internal/registry"
	"weighted-oracle/internal/signing"
)

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, splitList(" a, ,b ,"))
	assert.Nil(t, splitList(""))
}

func TestLoadBootstrap_Empty(t *testing.T) {
	boot, err := loadBootstrap("")
	require.NoError(t, err)
	assert.Empty(t, boot.Oracles)

	bank, _, err := boot.NewBank()
	require.NoError(t, err)
	assert.Len(t, bank.Ledgers(), 1)
}

func TestCreateStores_Memory(t *testing.T) {
	stores, database, cleanup, err := createStores(context.Background(), storeOptions{
		useMemory: true,
		logger:    zerolog.Nop(),
	})
	require.NoError(t, err)
	defer cleanup()

	assert.Equal(t, "memory", database)
	assert.NotNil(t, stores.Oracles)
	assert.NotNil(t, stores.Events)
	assert.NotNil(t, stores.Submissions)
	assert.NotNil(t, stores.Snapshots)
	assert.NotNil(t, stores.PriceHistory)
}

func newRegistry(t *testing.T, boot *config.Bootstrap, stores ingestion.Stores) *registry.Registry {
	t.Helper()
	bank, factory, err := boot.NewBank()
	require.NoError(t, err)
	rec := ingestion.NewRecorder(ingestion.RecorderOptions{Stores: stores, Database: "memory"})
	reg, err := registry.New(registry.Options{
		Factory:  factory,
		Bank:     bank,
		Clock:    oracle.NewManualClock(1_700_000_000),
		Sink:     rec,
		Listener: rec,
	})
	require.NoError(t, err)
	return reg
}

func TestPopulate_BootstrapThenRestore(t *testing.T) {
	ctx := context.Background()
	kp, err := signing.GenerateKey()
	require.NoError(t, err)

	boot, err := config.ParseBootstrap([]byte(`
factory: server-test
native:
  balances:
    ` + string(kp.Address) + `: "1000"
tokens:
  - symbol: WGT
oracles:
  - creator: ` + string(kp.Address) + `
    token: WGT
    name: ETH/USD
    fund: "400"
`))
	require.NoError(t, err)

	stores, _, cleanup, err := createStores(ctx, storeOptions{useMemory: true, logger: zerolog.Nop()})
	require.NoError(t, err)
	defer cleanup()

	s := &server{boot: boot, stores: stores, logger: zerolog.Nop()}

	first := newRegistry(t, boot, stores)
	require.NoError(t, s.populate(ctx, first))
	require.Len(t, first.AllOracles(), 1)

	second := newRegistry(t, boot, stores)
	require.NoError(t, s.populate(ctx, second))
	require.Len(t, second.AllOracles(), 1)
	restored := second.AllOracles()[0].Oracle
	assert.Equal(t, "400", second.Bank().Native().BalanceOf(restored).String())

	infos, err := stores.Oracles.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, infos, 1)
	assert.Equal(t, "ETH/USD", infos[0].Config.Name)
}
