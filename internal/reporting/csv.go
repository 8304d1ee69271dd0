package reporting

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
)

// RenderHistoryCSV renders the submission history as CSV.
func RenderHistoryCSV(rows []HistoryRow) (string, error) {
	records := [][]string{{"oracle", "index", "timestamp", "submitter", "value", "aggregate", "weight", "reward", "final"}}
	for _, h := range rows {
		records = append(records, []string{
			h.Oracle,
			strconv.FormatUint(h.Index, 10),
			strconv.FormatUint(h.Timestamp, 10),
			h.Submitter,
			h.Value,
			h.Aggregate,
			h.Weight,
			h.Reward,
			strconv.FormatBool(h.Final),
		})
	}
	return writeCSV(records)
}

// RenderOraclesCSV renders the oracle table and its value statistics as CSV.
func RenderOraclesCSV(rows []OracleRow) (string, error) {
	records := [][]string{{
		"name", "address", "owner", "paused", "aggregate", "aggregated_price", "last_finalized",
		"total_deposited", "balance", "rewards_paid", "submissions", "submitters", "blacklisted",
		"finalized_rate", "value_median", "value_p10", "value_p90", "value_stddev",
		"mean_deviation_pct", "max_drawdown_pct",
	}}
	for _, o := range rows {
		records = append(records, []string{
			o.Name,
			o.Address,
			o.Owner,
			strconv.FormatBool(o.Paused),
			o.Aggregate.String(),
			o.AggregatedPrice,
			o.LastFinalized,
			o.TotalDeposited,
			o.Balance,
			o.RewardsPaid,
			strconv.Itoa(o.Submissions),
			strconv.Itoa(o.Submitters),
			strconv.Itoa(o.Blacklisted),
			fmt.Sprintf("%.6f", o.FinalizedRate),
			o.ValueMedian.String(),
			o.ValueP10.String(),
			o.ValueP90.String(),
			fmt.Sprintf("%.6f", o.ValueStddev),
			o.MeanDeviationPct.String(),
			o.MaxDrawdownPct.String(),
		})
	}
	return writeCSV(records)
}

// RenderStepsCSV renders scenario steps as CSV.
func RenderStepsCSV(rows []StepRow) (string, error) {
	records := [][]string{{"index", "time", "actor", "op", "oracle", "input", "output", "aggregate", "reward", "error", "passed", "note"}}
	for _, s := range rows {
		records = append(records, []string{
			strconv.Itoa(s.Index),
			strconv.FormatUint(s.Time, 10),
			s.Actor,
			s.Op,
			s.Oracle,
			s.Input,
			s.Output,
			s.Aggregate,
			s.Reward,
			s.Error,
			strconv.FormatBool(s.Passed),
			s.Note,
		})
	}
	return writeCSV(records)
}

func writeCSV(records [][]string) (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(records); err != nil {
		return "", fmt.Errorf("write csv: %w", err)
	}
	return buf.String(), nil
}
