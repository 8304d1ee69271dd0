// Package main runs the oracle service: it boots the registry from a bootstrap
// file or from persisted state and serves the HTTP/WebSocket API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"weighted-oracle/internal/api"
	"weighted-oracle/internal/config"
	"weighted-oracle/internal/domain"
	"weighted-oracle/internal/ingestion"
	"weighted-oracle/internal/logging"
	"weighted-oracle/internal/registry"
)

const shutdownTimeout = 30 * time.Second

func main() {
	if err := config.LoadEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "load .env: %v\n", err)
		os.Exit(2)
	}

	// Flags default to environment variables.
	addr := flag.String("addr", config.Env("ORACLE_ADDR", ":8080"), "HTTP listen address")
	bootstrapPath := flag.String("bootstrap", config.Env("ORACLE_BOOTSTRAP", ""), "YAML bootstrap file (tokens, balances, oracles)")
	postgresDSN := flag.String("postgres-dsn", config.Env("POSTGRES_DSN", ""), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", config.Env("CLICKHOUSE_DSN", ""), "ClickHouse connection string (optional)")
	useMemory := flag.Bool("use-memory", config.EnvBool("USE_MEMORY", false), "Use in-memory storage instead of PostgreSQL")
	migrate := flag.Bool("migrate", config.EnvBool("ORACLE_MIGRATE", true), "Apply schema migrations at startup")
	writeRate := flag.Float64("write-rate", config.EnvFloat("ORACLE_WRITE_RATE", api.DefaultWriteRate), "Signed requests per second per signer")
	writeBurst := flag.Int("write-burst", config.EnvInt("ORACLE_WRITE_BURST", api.DefaultWriteBurst), "Signed request burst per signer")
	origins := flag.String("allowed-origins", config.Env("ORACLE_ALLOWED_ORIGINS", "*"), "Comma-separated CORS/WebSocket origins")
	readTimeout := flag.Duration("read-timeout", config.EnvDuration("ORACLE_READ_TIMEOUT", 15*time.Second), "HTTP read timeout")
	logLevel := flag.String("log-level", config.Env("LOG_LEVEL", "info"), "Log level")
	logFormat := flag.String("log-format", config.Env("LOG_FORMAT", "json"), "Log format (json, console)")

	flag.Parse()

	logger := logging.MustNew("server", logging.Options{Level: *logLevel, Format: *logFormat})

	if !*useMemory && *postgresDSN == "" {
		logger.Fatal().Msg("--postgres-dsn is required (use --use-memory for in-memory storage)")
	}

	boot, err := loadBootstrap(*bootstrapPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("load bootstrap")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stores, database, cleanup, err := createStores(ctx, storeOptions{
		postgresDSN:   *postgresDSN,
		clickhouseDSN: *clickhouseDSN,
		useMemory:     *useMemory,
		migrate:       *migrate,
		logger:        logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("create stores")
	}
	defer cleanup()

	srv := &server{
		addr:        *addr,
		readTimeout: *readTimeout,
		boot:        boot,
		stores:      stores,
		database:    database,
		origins:     splitList(*origins),
		writeRate:   *writeRate,
		writeBurst:  *writeBurst,
		logger:      logger,
	}
	if err := srv.run(ctx); err != nil {
		logger.Fatal().Err(err).Msg("server stopped")
	}
	logger.Info().Msg("shutdown complete")
}

type server struct {
	addr        string
	readTimeout time.Duration
	boot        *config.Bootstrap
	stores      ingestion.Stores
	database    string
	origins     []string
	writeRate   float64
	writeBurst  int
	logger      zerolog.Logger
}

func (s *server) run(ctx context.Context) error {
	bank, factory, err := s.boot.NewBank()
	if err != nil {
		return fmt.Errorf("build token ledgers: %w", err)
	}

	var reg *registry.Registry
	hub := api.NewHub(api.HubOptions{
		Lookup: func(addr domain.Address) error {
			_, err := reg.Get(addr)
			return err
		},
		AllowedOrigins: s.origins,
		Logger:         *logging.Component(s.logger, "hub"),
	})

	rec := ingestion.NewRecorder(ingestion.RecorderOptions{
		Stores:      s.stores,
		Broadcaster: hub,
		Database:    s.database,
		Logger:      logging.Component(s.logger, "recorder"),
	})

	reg, err = registry.New(registry.Options{
		Factory:  factory,
		Bank:     bank,
		Sink:     rec,
		Listener: rec,
		Logger:   logging.Component(s.logger, "registry"),
	})
	if err != nil {
		return fmt.Errorf("create registry: %w", err)
	}

	if err := s.populate(ctx, reg); err != nil {
		return err
	}

	handler := api.New(api.Options{
		Registry:       reg,
		Hub:            hub,
		Events:         s.stores.Events,
		WriteRate:      s.writeRate,
		WriteBurst:     s.writeBurst,
		AllowedOrigins: s.origins,
		Logger:         *logging.Component(s.logger, "api"),
	}).Handler()

	httpServer := &http.Server{
		Addr:              s.addr,
		Handler:           handler,
		ReadHeaderTimeout: s.readTimeout,
		ReadTimeout:       s.readTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		hub.Run()
		return nil
	})

	g.Go(func() error {
		s.logger.Info().
			Str("addr", s.addr).
			Str("factory", string(factory)).
			Int("oracles", len(reg.AllOracles())).
			Msg("listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		s.logger.Info().Msg("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		hub.Stop()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}

// populate restores persisted oracles, or creates the bootstrap oracles on an
// empty store.
func (s *server) populate(ctx context.Context, reg *registry.Registry) error {
	restored, err := ingestion.RestoreRegistry(ctx, reg, s.stores, *logging.Component(s.logger, "restore"))
	if err != nil {
		return fmt.Errorf("restore registry: %w", err)
	}
	if restored > 0 {
		s.logger.Info().Int("oracles", restored).Msg("registry restored")
		return nil
	}

	created, err := s.boot.CreateOracles(ctx, reg)
	if err != nil {
		return fmt.Errorf("bootstrap oracles: %w", err)
	}
	for _, info := range created {
		s.logger.Info().
			Str("oracle", string(info.Oracle)).
			Str("name", info.Config.Name).
			Str("token", string(info.Token)).
			Msg("bootstrap oracle created")
	}
	return nil
}

// loadBootstrap reads path, or returns an empty deployment when path is unset.
func loadBootstrap(path string) (*config.Bootstrap, error) {
	if path == "" {
		return config.ParseBootstrap([]byte("{}"))
	}
	return config.LoadBootstrap(path)
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
