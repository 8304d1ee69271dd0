package clickhouse

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"weighted-oracle/internal/domain"
)

const schemaDir = "../migrations/clickhouse"

// setupTestDB starts a ClickHouse server with the price history schema and
// returns a connection to it. The returned func stops the container.
func setupTestDB(t *testing.T) (*Conn, func()) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping clickhouse integration test in short mode")
	}

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "clickhouse/clickhouse-server:24.1-alpine",
			ExposedPorts: []string{"9000/tcp"},
			Env: map[string]string{
				"CLICKHOUSE_DB":       "oracle_test",
				"CLICKHOUSE_USER":     "default",
				"CLICKHOUSE_PASSWORD": "",
			},
			WaitingFor: wait.ForAll(
				wait.ForLog("Application: Ready for connections").WithStartupTimeout(60*time.Second),
				wait.ForListeningPort("9000/tcp"),
			),
		},
		Started: true,
	})
	require.NoError(t, err, "start clickhouse container")

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "9000")
	require.NoError(t, err)

	conn, err := NewConn(ctx, fmt.Sprintf("clickhouse://default@%s:%s/oracle_test", host, port.Port()))
	require.NoError(t, err)

	applySchema(t, ctx, conn)

	return conn, func() {
		conn.Close()
		if err := container.Terminate(ctx); err != nil {
			t.Logf("terminate clickhouse container: %v", err)
		}
	}
}

// applySchema runs the migration files statement by statement. The files
// hold no string literals, so splitting on semicolons is enough here.
func applySchema(t *testing.T, ctx context.Context, conn *Conn) {
	t.Helper()

	schema := os.DirFS(schemaDir)
	files, err := fs.Glob(schema, "*.sql")
	require.NoError(t, err)
	require.NotEmpty(t, files, "no migrations under %s", schemaDir)

	for _, name := range files {
		data, err := fs.ReadFile(schema, name)
		require.NoError(t, err)

		var body []string
		for _, line := range strings.Split(string(data), "\n") {
			if !strings.HasPrefix(strings.TrimSpace(line), "--") {
				body = append(body, line)
			}
		}
		for _, stmt := range strings.Split(strings.Join(body, "\n"), ";") {
			if strings.TrimSpace(stmt) == "" {
				continue
			}
			require.NoError(t, conn.Exec(ctx, stmt), "apply %s", name)
		}
	}
}

func testAddr(b byte) domain.Address {
	return domain.Address(base58.Encode(bytes.Repeat([]byte{b}, domain.AddressLength)))
}
