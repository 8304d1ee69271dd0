package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weighted-oracle/internal/domain"
	"weighted-oracle/internal/oracle"
	"weighted-oracle/internal/registry"
	"weighted-oracle/internal/signing"
)

func TestLoadEnv_DoesNotOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("ORACLE_TEST_A=from-file\nORACLE_TEST_B=from-file\n"), 0o600))

	t.Setenv("ORACLE_TEST_A", "from-env")
	require.NoError(t, LoadEnv(path, filepath.Join(dir, "missing.env")))
	t.Cleanup(func() { os.Unsetenv("ORACLE_TEST_B") })

	assert.Equal(t, "from-env", os.Getenv("ORACLE_TEST_A"))
	assert.Equal(t, "from-file", os.Getenv("ORACLE_TEST_B"))
}

func TestEnvHelpers(t *testing.T) {
	t.Setenv("ORACLE_TEST_INT", "42")
	t.Setenv("ORACLE_TEST_BOOL", "true")
	t.Setenv("ORACLE_TEST_DUR", "90s")
	t.Setenv("ORACLE_TEST_BAD", "x")

	assert.Equal(t, 42, EnvInt("ORACLE_TEST_INT", 1))
	assert.Equal(t, 1, EnvInt("ORACLE_TEST_BAD", 1))
	assert.True(t, EnvBool("ORACLE_TEST_BOOL", false))
	assert.Equal(t, 90*time.Second, EnvDuration("ORACLE_TEST_DUR", time.Second))
	assert.Equal(t, 2.5, EnvFloat("ORACLE_TEST_BAD", 2.5))
	assert.Equal(t, "def", Env("ORACLE_TEST_UNSET", "def"))
}

func bootstrapDoc(t *testing.T) (string, domain.Address) {
	t.Helper()
	kp, err := signing.GenerateKey()
	require.NoError(t, err)

	doc := `
factory: test-deploy
native:
  balances:
    ` + string(kp.Address) + `: "1000"
tokens:
  - symbol: WGT
    balances:
      ` + string(kp.Address) + `: "500"
oracles:
  - creator: ` + string(kp.Address) + `
    token: WGT
    name: ETH/USD
    quorum: 5000
    fund: "400"
`
	return doc, kp.Address
}

func TestBootstrap_CreatesTokensAndOracles(t *testing.T) {
	ctx := context.Background()
	doc, creator := bootstrapDoc(t)

	b, err := ParseBootstrap([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, "NATIVE", b.Native.Symbol)

	bank, factory, err := b.NewBank()
	require.NoError(t, err)
	require.Len(t, bank.Ledgers(), 2)
	assert.Equal(t, "1000", bank.Native().BalanceOf(creator).String())

	reg, err := registry.New(registry.Options{Factory: factory, Bank: bank, Clock: oracle.NewManualClock(1)})
	require.NoError(t, err)

	created, err := b.CreateOracles(ctx, reg)
	require.NoError(t, err)
	require.Len(t, created, 1)

	cfg := created[0].Config
	assert.Equal(t, creator, cfg.Owner)
	assert.Equal(t, uint64(5000), cfg.Quorum)
	assert.Equal(t, uint64(domain.DefaultHalfLifeSeconds), cfg.HalfLifeSeconds)
	assert.Equal(t, uint64(domain.DefaultReward), cfg.Reward)

	o, err := reg.Get(created[0].Oracle)
	require.NoError(t, err)
	assert.Equal(t, "400", o.Balance(ctx).String())
	assert.Equal(t, "600", bank.Native().BalanceOf(creator).String())
}

func TestBootstrap_Validate(t *testing.T) {
	cases := map[string]string{
		"bad address":   "tokens:\n  - symbol: WGT\n    balances: {nope: \"1\"}\n",
		"bad amount":    "tokens:\n  - symbol: WGT\n    balances: {11111111111111111111111111111112: \"-1\"}\n",
		"duplicate":     "tokens:\n  - symbol: WGT\n  - symbol: WGT\n",
		"native clash":  "tokens:\n  - symbol: NATIVE\n",
		"unknown token": "oracles:\n  - creator: 11111111111111111111111111111112\n    token: XYZ\n    name: a\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseBootstrap([]byte(doc))
			assert.Error(t, err)
		})
	}
}
