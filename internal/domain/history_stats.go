package domain

import (
	sdkmath "cosmossdk.io/math"
	"github.com/shopspring/decimal"
)

// HistoryStats summarizes the submission history of one oracle.
// Value statistics are exact decimals over the raw submitted values.
type HistoryStats struct {
	Oracle Address

	// Counts
	Submissions   int
	Submitters    int
	Finalized     int
	FinalizedRate float64 // Finalized / Submissions

	FirstTimestamp uint64
	LastTimestamp  uint64

	// Submitted value distribution
	ValueMean   decimal.Decimal
	ValueMedian decimal.Decimal
	ValueP10    decimal.Decimal
	ValueP90    decimal.Decimal
	ValueMin    decimal.Decimal
	ValueMax    decimal.Decimal
	ValueStddev float64

	// Aggregate behavior
	LastAggregate      sdkmath.Int
	MeanDeviationPct   decimal.Decimal // mean |value - aggregate| / aggregate * 100
	MaxDeviationPct    decimal.Decimal
	MaxDrawdownPct     decimal.Decimal // worst peak-to-trough fall of the aggregate, percent of peak
	MaxNonFinalStreak  int             // longest run of submissions without quorum
	TotalRewardsPaid   sdkmath.Int
	TotalWeightApplied sdkmath.Int
}
