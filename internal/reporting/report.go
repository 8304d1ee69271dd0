// Package reporting renders oracle histories, scenario runs and verification
// results as Markdown and CSV.
package reporting

import (
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/shopspring/decimal"
)

// Report represents a full oracle report.
type Report struct {
	// Metadata
	Title       string
	GeneratedAt time.Time

	Summary Summary

	// Oracles in registry order
	Oracles []OracleRow

	// History of every oracle, by oracle then index
	History []HistoryRow

	// Scenario steps, empty unless a scenario run was attached
	Scenario *ScenarioSection

	// Verification outcome, nil unless verification ran
	Verification *VerificationSection
}

// Summary aggregates totals across oracles.
type Summary struct {
	Oracles          int
	Submissions      int
	Events           int
	TotalDeposited   sdkmath.Int
	TotalBalance     sdkmath.Int
	TotalRewardsPaid sdkmath.Int
	FirstTimestamp   uint64 // unix seconds, 0 without history
	LastTimestamp    uint64
}

// OracleRow represents one row in the oracle table.
type OracleRow struct {
	Address          string
	Name             string
	Owner            string
	Paused           bool
	Blacklisted      int
	Submissions      int
	Submitters       int
	Aggregate        decimal.Decimal // 18-decimal EWMA state
	AggregatedPrice  string
	LastFinalized    string
	TotalDeposited   string
	Balance          string
	RewardsPaid      string
	FinalizedRate    float64
	ValueMedian      decimal.Decimal
	ValueP10         decimal.Decimal
	ValueP90         decimal.Decimal
	ValueStddev      float64
	MeanDeviationPct decimal.Decimal
	MaxDrawdownPct   decimal.Decimal
}

// HistoryRow is one accepted submission.
type HistoryRow struct {
	Oracle    string // oracle name
	Index     uint64
	Timestamp uint64
	Submitter string
	Value     string
	Aggregate string
	Weight    string
	Reward    string
	Final     bool
}

// ScenarioSection lists the steps of a scenario run.
type ScenarioSection struct {
	Name     string
	Start    uint64
	End      uint64
	Passed   bool
	Steps    []StepRow
	Failures []string
}

// StepRow is one scenario step.
type StepRow struct {
	Index     int
	Time      uint64
	Actor     string
	Op        string
	Oracle    string
	Input     string
	Output    string
	Aggregate string
	Reward    string
	Error     string
	Passed    bool
	Note      string
}

// VerificationSection summarizes invariant checks.
type VerificationSection struct {
	Passed   bool
	Checks   int
	Oracles  int
	Findings []string
}
