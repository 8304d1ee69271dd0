package metrics

import (
	"math"
	"sort"

	sdkmath "cosmossdk.io/math"
	"github.com/shopspring/decimal"

	"weighted-oracle/internal/domain"
)

var hundred = decimal.NewFromInt(100)

// computeFromHistory calculates all statistics from one oracle's submissions.
// Submissions are sorted by Index ASC before computing order-dependent
// statistics (MaxDrawdownPct, MaxNonFinalStreak).
func computeFromHistory(oracle domain.Address, subs []*domain.SubmissionRecord) *domain.HistoryStats {
	stats := &domain.HistoryStats{
		Oracle:             oracle,
		LastAggregate:      sdkmath.ZeroInt(),
		TotalRewardsPaid:   sdkmath.ZeroInt(),
		TotalWeightApplied: sdkmath.ZeroInt(),
	}
	n := len(subs)
	if n == 0 {
		return stats
	}

	sorted := make([]*domain.SubmissionRecord, n)
	copy(sorted, subs)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Index < sorted[j].Index })

	values := make([]decimal.Decimal, n)
	aggregates := make([]decimal.Decimal, n)
	submitters := make(map[domain.Address]struct{})
	for i, s := range sorted {
		values[i] = toDecimal(s.Value)
		aggregates[i] = toDecimal(s.AggregatedPrice)
		submitters[s.Submitter] = struct{}{}
		if s.Final {
			stats.Finalized++
		}
		if !s.RewardPaid.IsNil() {
			stats.TotalRewardsPaid = stats.TotalRewardsPaid.Add(s.RewardPaid)
		}
		if !s.Weight.IsNil() {
			stats.TotalWeightApplied = stats.TotalWeightApplied.Add(s.Weight)
		}
	}

	sortedValues := make([]decimal.Decimal, n)
	copy(sortedValues, values)
	sort.Slice(sortedValues, func(i, j int) bool { return sortedValues[i].LessThan(sortedValues[j]) })

	mean := computeMean(values)
	meanDev, maxDev := computeDeviation(values, aggregates)

	stats.Submissions = n
	stats.Submitters = len(submitters)
	stats.FinalizedRate = float64(stats.Finalized) / float64(n)
	stats.FirstTimestamp = sorted[0].Timestamp
	stats.LastTimestamp = sorted[n-1].Timestamp

	stats.ValueMean = mean
	stats.ValueMedian = computePercentile(sortedValues, 0.50)
	stats.ValueP10 = computePercentile(sortedValues, 0.10)
	stats.ValueP90 = computePercentile(sortedValues, 0.90)
	stats.ValueMin = sortedValues[0]
	stats.ValueMax = sortedValues[n-1]
	stats.ValueStddev = computeStddev(values, mean)

	stats.LastAggregate = sorted[n-1].AggregatedPrice
	stats.MeanDeviationPct = meanDev
	stats.MaxDeviationPct = maxDev
	stats.MaxDrawdownPct = computeMaxDrawdownPct(aggregates)
	stats.MaxNonFinalStreak = computeMaxNonFinalStreak(sorted)
	return stats
}

func toDecimal(v sdkmath.Int) decimal.Decimal {
	if v.IsNil() {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(v.BigInt(), 0)
}

// computeMean calculates the arithmetic mean, rounded to 8 decimal places.
func computeMean(values []decimal.Decimal) decimal.Decimal {
	if len(values) == 0 {
		return decimal.Zero
	}
	return decimal.Sum(values[0], values[1:]...).DivRound(decimal.NewFromInt(int64(len(values))), 8)
}

// computeStddev calculates sample standard deviation (n-1 denominator).
func computeStddev(values []decimal.Decimal, mean decimal.Decimal) float64 {
	n := len(values)
	if n < 2 {
		return 0
	}
	sumSq := decimal.Zero
	for _, v := range values {
		diff := v.Sub(mean)
		sumSq = sumSq.Add(diff.Mul(diff))
	}
	return math.Sqrt(sumSq.Div(decimal.NewFromInt(int64(n - 1))).InexactFloat64())
}

// computePercentile uses linear interpolation.
// sorted must be pre-sorted ASC.
// p is percentile (0.10 = 10th percentile).
func computePercentile(sorted []decimal.Decimal, p float64) decimal.Decimal {
	n := len(sorted)
	if n == 0 {
		return decimal.Zero
	}
	if n == 1 {
		return sorted[0]
	}

	idx := p * float64(n-1)
	lower := int(idx)
	upper := lower + 1
	if upper >= n {
		return sorted[n-1]
	}

	frac := decimal.NewFromFloat(idx - float64(lower)).Round(8)
	return sorted[lower].Add(frac.Mul(sorted[upper].Sub(sorted[lower])))
}

// computeDeviation returns the mean and maximum distance between each
// submission and the aggregate it produced, in percent of the aggregate.
// Submissions with a zero aggregate are skipped.
func computeDeviation(values, aggregates []decimal.Decimal) (meanPct, maxPct decimal.Decimal) {
	sum := decimal.Zero
	counted := 0
	for i, v := range values {
		agg := aggregates[i]
		if agg.IsZero() {
			continue
		}
		pct := v.Sub(agg).Abs().Mul(hundred).DivRound(agg.Abs(), 8)
		sum = sum.Add(pct)
		counted++
		if pct.GreaterThan(maxPct) {
			maxPct = pct
		}
	}
	if counted == 0 {
		return decimal.Zero, decimal.Zero
	}
	return sum.DivRound(decimal.NewFromInt(int64(counted)), 8), maxPct
}

// computeMaxDrawdownPct calculates the worst peak-to-trough fall of the
// aggregate as a percentage of the peak. Aggregates must be in index order.
func computeMaxDrawdownPct(aggregates []decimal.Decimal) decimal.Decimal {
	maxDrawdown := decimal.Zero
	if len(aggregates) == 0 {
		return maxDrawdown
	}

	peak := aggregates[0]
	for _, a := range aggregates {
		if a.GreaterThan(peak) {
			peak = a
		}
		if !peak.IsPositive() {
			continue
		}
		drawdown := peak.Sub(a).Mul(hundred).DivRound(peak, 8)
		if drawdown.GreaterThan(maxDrawdown) {
			maxDrawdown = drawdown
		}
	}
	return maxDrawdown
}

// computeMaxNonFinalStreak finds the longest run of submissions that did not meet quorum.
// Submissions must be in index order.
func computeMaxNonFinalStreak(subs []*domain.SubmissionRecord) int {
	maxStreak := 0
	currentStreak := 0

	for _, s := range subs {
		if !s.Final {
			currentStreak++
			if currentStreak > maxStreak {
				maxStreak = currentStreak
			}
		} else {
			currentStreak = 0
		}
	}
	return maxStreak
}
