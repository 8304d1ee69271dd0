package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"weighted-oracle/internal/ingestion"
	chstore "weighted-oracle/internal/storage/clickhouse"
	"weighted-oracle/internal/storage/memory"
	"weighted-oracle/internal/storage/migrations"
	pgstore "weighted-oracle/internal/storage/postgres"
)

type storeOptions struct {
	postgresDSN   string
	clickhouseDSN string
	useMemory     bool
	migrate       bool
	logger        zerolog.Logger
}

// createStores connects the persistence backends. Registry entries, events,
// submissions and snapshots live in PostgreSQL; price history additionally
// goes to ClickHouse when a DSN is given.
func createStores(ctx context.Context, opts storeOptions) (ingestion.Stores, string, func(), error) {
	if opts.useMemory {
		return ingestion.Stores{
			Oracles:      memory.NewOracleStore(),
			Events:       memory.NewEventStore(),
			Submissions:  memory.NewSubmissionStore(),
			Snapshots:    memory.NewSnapshotStore(),
			PriceHistory: memory.NewPriceHistoryStore(),
		}, "memory", func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, opts.postgresDSN)
	if err != nil {
		return ingestion.Stores{}, "", nil, err
	}
	if opts.migrate {
		applied, err := migrations.RunPostgresMigrations(ctx, pool)
		if err != nil {
			pool.Close()
			return ingestion.Stores{}, "", nil, fmt.Errorf("postgres migrations: %w", err)
		}
		opts.logger.Info().Strs("applied", applied).Msg("postgres migrations done")
	}

	stores := ingestion.Stores{
		Oracles:     pgstore.NewOracleStore(pool),
		Events:      pgstore.NewEventStore(pool),
		Submissions: pgstore.NewSubmissionStore(pool),
		Snapshots:   pgstore.NewSnapshotStore(pool),
	}
	cleanup := func() { pool.Close() }

	if opts.clickhouseDSN == "" {
		return stores, "postgres", cleanup, nil
	}

	var conn *chstore.Conn
	if opts.migrate {
		conn, err = migrations.RunClickhouseMigrations(ctx, opts.clickhouseDSN)
	} else {
		conn, err = chstore.NewConn(ctx, opts.clickhouseDSN)
	}
	if err != nil {
		pool.Close()
		return ingestion.Stores{}, "", nil, fmt.Errorf("connect to clickhouse: %w", err)
	}
	stores.PriceHistory = chstore.NewPriceHistoryStore(conn)

	return stores, "postgres", func() {
		conn.Close()
		pool.Close()
	}, nil
}
