package reporting

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString(fmt.Sprintf("# %s\n\n", r.Title))
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))

	// Summary
	sb.WriteString("## Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Oracles | %d |\n", r.Summary.Oracles))
	sb.WriteString(fmt.Sprintf("| Submissions | %d |\n", r.Summary.Submissions))
	sb.WriteString(fmt.Sprintf("| Events | %d |\n", r.Summary.Events))
	sb.WriteString(fmt.Sprintf("| Total Deposited | %s |\n", r.Summary.TotalDeposited))
	sb.WriteString(fmt.Sprintf("| Reward Balance | %s |\n", r.Summary.TotalBalance))
	sb.WriteString(fmt.Sprintf("| Rewards Paid | %s |\n", r.Summary.TotalRewardsPaid))
	sb.WriteString(fmt.Sprintf("| First Submission | %s |\n", formatUnix(r.Summary.FirstTimestamp)))
	sb.WriteString(fmt.Sprintf("| Last Submission | %s |\n", formatUnix(r.Summary.LastTimestamp)))
	sb.WriteString("\n")

	// Verification
	if v := r.Verification; v != nil {
		sb.WriteString("## Verification\n\n")
		if v.Passed {
			sb.WriteString(fmt.Sprintf("**All %d checks passed** across %d oracle(s).\n\n", v.Checks, v.Oracles))
		} else {
			sb.WriteString(fmt.Sprintf("**%d finding(s)** from %d checks across %d oracle(s):\n\n", len(v.Findings), v.Checks, v.Oracles))
			for _, f := range v.Findings {
				sb.WriteString(fmt.Sprintf("- %s\n", f))
			}
			sb.WriteString("\n")
		}
	}

	// Oracles
	sb.WriteString("## Oracles\n\n")
	if len(r.Oracles) > 0 {
		sb.WriteString("| Name | Address | Owner | Paused | Aggregate | Finalized | Deposited | Balance | Rewards | Submissions | Submitters | Blacklisted |\n")
		sb.WriteString("|------|---------|-------|--------|-----------|-----------|-----------|---------|---------|-------------|------------|-------------|\n")
		for _, o := range r.Oracles {
			sb.WriteString(fmt.Sprintf("| %s | `%s` | `%s` | %v | %s | %s | %s | %s | %s | %d | %d | %d |\n",
				o.Name, o.Address, shortAddress(o.Owner), o.Paused,
				o.Aggregate.StringFixed(4), o.LastFinalized, o.TotalDeposited, o.Balance, o.RewardsPaid,
				o.Submissions, o.Submitters, o.Blacklisted))
		}
		sb.WriteString("\n")

		sb.WriteString("### Value Statistics\n\n")
		sb.WriteString("| Name | Median | P10 | P90 | Stddev | FinalizedRate | MeanDev% | MaxDrawdown% |\n")
		sb.WriteString("|------|--------|-----|-----|--------|---------------|----------|--------------|\n")
		for _, o := range r.Oracles {
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %.4f | %.4f | %s | %s |\n",
				o.Name, fixed(o.ValueMedian), fixed(o.ValueP10), fixed(o.ValueP90), o.ValueStddev,
				o.FinalizedRate, fixed(o.MeanDeviationPct), fixed(o.MaxDrawdownPct)))
		}
	} else {
		sb.WriteString("No oracles registered.\n")
	}
	sb.WriteString("\n")

	// Scenario
	if s := r.Scenario; s != nil {
		sb.WriteString(fmt.Sprintf("## Scenario: %s\n\n", s.Name))
		status := "PASS"
		if !s.Passed {
			status = "FAIL"
		}
		sb.WriteString(fmt.Sprintf("%d steps from %s to %s. Status: **%s**\n\n",
			len(s.Steps), formatUnix(s.Start), formatUnix(s.End), status))
		if len(s.Steps) > 0 {
			sb.WriteString("| # | Time | Actor | Op | Oracle | Input | Output | Aggregate | Reward | Error | Status |\n")
			sb.WriteString("|---|------|-------|----|--------|-------|--------|-----------|--------|-------|--------|\n")
			for _, st := range s.Steps {
				status := "ok"
				if !st.Passed {
					status = "FAIL"
				}
				sb.WriteString(fmt.Sprintf("| %d | +%d | %s | %s | %s | %s | %s | %s | %s | %s | %s |\n",
					st.Index, st.Time-s.Start, st.Actor, st.Op, st.Oracle, st.Input, st.Output,
					st.Aggregate, st.Reward, escapeCell(st.Error), status))
			}
			sb.WriteString("\n")
		}
		if len(s.Failures) > 0 {
			sb.WriteString("### Unmet Expectations\n\n")
			for _, f := range s.Failures {
				sb.WriteString(fmt.Sprintf("- %s\n", f))
			}
			sb.WriteString("\n")
		}
	}

	// History
	sb.WriteString("## Price History\n\n")
	if len(r.History) > 0 {
		sb.WriteString("| Oracle | Index | Time | Submitter | Value | Aggregate | Weight | Reward | Final |\n")
		sb.WriteString("|--------|-------|------|-----------|-------|-----------|--------|--------|-------|\n")
		for _, h := range r.History {
			sb.WriteString(fmt.Sprintf("| %s | %d | %s | `%s` | %s | %s | %s | %s | %v |\n",
				h.Oracle, h.Index, formatUnix(h.Timestamp), shortAddress(h.Submitter),
				h.Value, h.Aggregate, h.Weight, h.Reward, h.Final))
		}
	} else {
		sb.WriteString("No submissions recorded.\n")
	}
	sb.WriteString("\n")

	return sb.String()
}

func formatUnix(ts uint64) string {
	if ts == 0 {
		return "-"
	}
	return time.Unix(int64(ts), 0).UTC().Format(time.RFC3339)
}

func fixed(d decimal.Decimal) string {
	return d.StringFixed(4)
}

func shortAddress(a string) string {
	if len(a) <= 12 {
		return a
	}
	return a[:4] + "…" + a[len(a)-4:]
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}
