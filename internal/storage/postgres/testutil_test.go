package postgres

import (
	"bytes"
	"context"
	"io/fs"
	"os"
	"testing"
	"time"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"weighted-oracle/internal/domain"
)

// schemaDir holds the PostgreSQL migrations, relative to this package.
const schemaDir = "../migrations/postgres"

// setupTestDB starts a disposable PostgreSQL container with the oracle schema
// applied. The returned func stops it.
func setupTestDB(t *testing.T) (*Pool, func()) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}

	ctx := context.Background()
	container, err := postgres.Run(ctx, "postgres:15-alpine",
		postgres.WithDatabase("oracle_test"),
		postgres.WithUsername("oracle"),
		postgres.WithPassword("oracle"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err, "start postgres container")

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := NewPool(ctx, dsn)
	require.NoError(t, err)

	applySchema(t, ctx, pool)

	return pool, func() {
		pool.Close()
		if err := container.Terminate(ctx); err != nil {
			t.Logf("terminate postgres container: %v", err)
		}
	}
}

// applySchema executes every migration file in name order. Versioning is
// covered by the migrations package; here a fresh database only needs tables.
func applySchema(t *testing.T, ctx context.Context, pool *Pool) {
	t.Helper()

	schema := os.DirFS(schemaDir)
	files, err := fs.Glob(schema, "*.sql")
	require.NoError(t, err)
	require.NotEmpty(t, files, "no migrations under %s", schemaDir)

	for _, name := range files {
		data, err := fs.ReadFile(schema, name)
		require.NoError(t, err)
		_, err = pool.Exec(ctx, string(data))
		require.NoError(t, err, "apply %s", name)
	}
}

// testAddr returns a deterministic address whose key bytes all equal b.
func testAddr(b byte) domain.Address {
	return domain.Address(base58.Encode(bytes.Repeat([]byte{b}, domain.AddressLength)))
}

func testConfig(owner domain.Address) domain.OracleConfig {
	return domain.DefaultOracleConfig(owner, testAddr(0xee), "ETH/USD")
}
