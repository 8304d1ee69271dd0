// Package main replays persisted oracle event logs and verifies the stored
// state against them.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"weighted-oracle/internal/config"
	"weighted-oracle/internal/domain"
	"weighted-oracle/internal/logging"
	"weighted-oracle/internal/replay"
	"weighted-oracle/internal/reporting"
	"weighted-oracle/internal/storage"
	pgstore "weighted-oracle/internal/storage/postgres"
	"weighted-oracle/internal/verification"
)

func main() {
	if err := config.LoadEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "load .env: %v\n", err)
		os.Exit(2)
	}

	postgresDSN := flag.String("postgres-dsn", config.Env("POSTGRES_DSN", ""), "PostgreSQL connection string")
	oracleAddr := flag.String("oracle", "", "Oracle address to replay (default: verify every oracle)")
	from := flag.Uint64("from", 0, "First event sequence (requires --to)")
	to := flag.Uint64("to", 0, "Last event sequence (requires --from)")
	outputJSON := flag.Bool("json", false, "Output as JSON")
	reportDir := flag.String("report-dir", "", "Write a Markdown/CSV report to this directory")
	logLevel := flag.String("log-level", config.Env("LOG_LEVEL", "info"), "Log level")
	flag.Parse()

	logger := logging.MustNew("replay", logging.Options{Level: *logLevel, Format: "console", Output: os.Stderr})

	if *postgresDSN == "" {
		logger.Fatal().Msg("--postgres-dsn is required")
	}
	// A partial range cannot be checked against a fresh rebuild.
	if (*from > 0) != (*to > 0) {
		logger.Fatal().Msg("--from and --to must be specified together")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgstore.NewPool(ctx, *postgresDSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect to postgres")
	}
	defer pool.Close()

	stores := replayStores{
		oracles:     pgstore.NewOracleStore(pool),
		events:      pgstore.NewEventStore(pool),
		submissions: pgstore.NewSubmissionStore(pool),
		snapshots:   pgstore.NewSnapshotStore(pool),
	}

	ok, err := run(ctx, stores, runOptions{
		oracle:    domain.Address(*oracleAddr),
		from:      *from,
		to:        *to,
		json:      *outputJSON,
		reportDir: *reportDir,
	}, os.Stdout, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("replay failed")
	}
	if !ok {
		os.Exit(1)
	}
}

type replayStores struct {
	oracles     storage.OracleStore
	events      storage.EventStore
	submissions storage.SubmissionStore
	snapshots   storage.SnapshotStore
}

type runOptions struct {
	oracle    domain.Address
	from, to  uint64
	json      bool
	reportDir string
}

// Summary is the replay outcome printed at the end of a run.
type Summary struct {
	Replay       *ReplayStats                    `json:"replay,omitempty"`
	Verification *verification.VerificationReport `json:"verification"`
	Passed       bool                            `json:"passed"`
}

// run replays one oracle when opts.oracle is set and verifies the stored
// state. It returns false when verification found problems.
func run(ctx context.Context, stores replayStores, opts runOptions, out io.Writer, logger zerolog.Logger) (bool, error) {
	verifier := verification.NewReplayVerifier(verification.ReplayVerifierOptions{
		OracleStore:     stores.oracles,
		EventStore:      stores.events,
		SubmissionStore: stores.submissions,
		SnapshotStore:   stores.snapshots,
	})

	var summary Summary
	if opts.oracle != "" {
		info, err := stores.oracles.GetByAddress(ctx, opts.oracle)
		if err != nil {
			return false, fmt.Errorf("load oracle %s: %w", opts.oracle, err)
		}

		engine := NewLoggingEngine(*info, opts.json, out)
		runner := replay.NewRunner(stores.events)
		if opts.from > 0 {
			logger.Info().Str("oracle", string(info.Oracle)).Uint64("from", opts.from).Uint64("to", opts.to).Msg("replaying range")
			err = runner.Run(ctx, info.Oracle, opts.from, opts.to, engine)
		} else {
			logger.Info().Str("oracle", string(info.Oracle)).Msg("replaying full event log")
			err = runner.RunAll(ctx, info.Oracle, engine)
		}
		if err != nil {
			return false, err
		}
		summary.Replay = engine.Stats()

		res, err := verifier.VerifyOracle(ctx, info.Oracle)
		if err != nil {
			return false, err
		}
		summary.Verification = &verification.VerificationReport{Results: []verification.OracleResult{*res}}
	} else {
		report, err := verifier.VerifyAll(ctx)
		if err != nil {
			return false, err
		}
		summary.Verification = report
	}
	summary.Passed = summary.Verification.Passed()

	if opts.reportDir != "" {
		if err := writeReport(ctx, stores, summary.Verification, opts.reportDir, logger); err != nil {
			return false, err
		}
	}

	if opts.json {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return summary.Passed, enc.Encode(summary)
	}
	printSummary(out, summary)
	return summary.Passed, nil
}

func writeReport(ctx context.Context, stores replayStores, v *verification.VerificationReport, dir string, logger zerolog.Logger) error {
	report, err := reporting.NewGenerator(reporting.GeneratorOptions{
		OracleStore:     stores.oracles,
		SubmissionStore: stores.submissions,
		SnapshotStore:   stores.snapshots,
		EventStore:      stores.events,
		Title:           "Replay Report",
	}).Generate(ctx)
	if err != nil {
		return fmt.Errorf("generate report: %w", err)
	}
	report.AddVerification(v)

	written, err := reporting.WriteFiles(dir, report)
	if err != nil {
		return err
	}
	for _, path := range written {
		logger.Info().Str("path", path).Msg("wrote")
	}
	return nil
}

func printSummary(out io.Writer, s Summary) {
	if st := s.Replay; st != nil {
		fmt.Fprintf(out, "\n=== Replay Summary ===\n")
		fmt.Fprintf(out, "Oracle:            %s (%s)\n", st.Oracle, st.Name)
		fmt.Fprintf(out, "Total Events:      %d\n", st.TotalEvents)
		for _, typ := range eventTypes {
			if n := st.ByType[typ]; n > 0 {
				fmt.Fprintf(out, "  %-22s %d\n", typ+":", n)
			}
		}
		if st.TotalEvents > 0 {
			fmt.Fprintf(out, "First Event Time:  %s\n", time.Unix(int64(st.FirstEventTime), 0).UTC().Format(time.RFC3339))
			fmt.Fprintf(out, "Last Event Time:   %s\n", time.Unix(int64(st.LastEventTime), 0).UTC().Format(time.RFC3339))
			fmt.Fprintf(out, "Duration:          %v\n", time.Duration(st.LastEventTime-st.FirstEventTime)*time.Second)
		}
		if st.Rebuilt != nil {
			fmt.Fprintf(out, "Aggregated Price:  %s\n", st.Rebuilt.AggregatedPrice)
			fmt.Fprintf(out, "Total Deposited:   %s\n", st.Rebuilt.TotalDeposited)
			fmt.Fprintf(out, "Divergences:       %d\n", len(st.Divergences))
		}
	}

	fmt.Fprintf(out, "\n=== Verification ===\n")
	for _, r := range s.Verification.Results {
		status := "PASS"
		if !r.Passed() {
			status = "FAIL"
		}
		fmt.Fprintf(out, "%-4s %s (%s): %d checks, %d events, %d submissions\n",
			status, r.Oracle, r.Name, r.Checks, r.Events, r.Submissions)
		for _, f := range r.Findings {
			fmt.Fprintf(out, "     [%s] %s\n", f.Check, f.Detail)
		}
	}
}
