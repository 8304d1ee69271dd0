package reporting

import (
	"context"
	"errors"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/shopspring/decimal"

	"weighted-oracle/internal/domain"
	"weighted-oracle/internal/metrics"
	"weighted-oracle/internal/scenario"
	"weighted-oracle/internal/storage"
	"weighted-oracle/internal/verification"
)

// DefaultTitle is used when GeneratorOptions.Title is empty.
const DefaultTitle = "Oracle Report"

// Generator produces reports from stored data.
type Generator struct {
	oracleStore     storage.OracleStore
	submissionStore storage.SubmissionStore
	snapshotStore   storage.SnapshotStore
	eventStore      storage.EventStore
	aggregator      *metrics.Aggregator
	title           string
	now             func() time.Time // Injectable clock for deterministic output
}

// GeneratorOptions contains configuration for creating a Generator.
type GeneratorOptions struct {
	OracleStore     storage.OracleStore
	SubmissionStore storage.SubmissionStore
	SnapshotStore   storage.SnapshotStore
	EventStore      storage.EventStore // optional, enables event counts
	Title           string
}

// NewGenerator creates a new report generator.
func NewGenerator(opts GeneratorOptions) *Generator {
	title := opts.Title
	if title == "" {
		title = DefaultTitle
	}
	return &Generator{
		oracleStore:     opts.OracleStore,
		submissionStore: opts.SubmissionStore,
		snapshotStore:   opts.SnapshotStore,
		eventStore:      opts.EventStore,
		aggregator:      metrics.NewAggregator(opts.SubmissionStore),
		title:           title,
		now:             func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate produces a report over every registered oracle.
func (g *Generator) Generate(ctx context.Context) (*Report, error) {
	infos, err := g.oracleStore.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	stats, err := g.aggregator.ComputeAll(ctx, infos)
	if err != nil {
		return nil, err
	}

	r := &Report{
		Title:       g.title,
		GeneratedAt: g.now(),
		Summary: Summary{
			Oracles:          len(infos),
			TotalDeposited:   sdkmath.ZeroInt(),
			TotalBalance:     sdkmath.ZeroInt(),
			TotalRewardsPaid: sdkmath.ZeroInt(),
		},
	}

	for i, info := range infos {
		snap, err := g.snapshot(ctx, info)
		if err != nil {
			return nil, err
		}
		r.Oracles = append(r.Oracles, oracleRow(info, snap, stats[i]))
		g.addSummary(&r.Summary, snap, stats[i])

		if err := g.addHistory(ctx, r, info); err != nil {
			return nil, err
		}
		if g.eventStore != nil {
			events, err := g.eventStore.GetByOracle(ctx, info.Oracle)
			if err != nil {
				return nil, err
			}
			r.Summary.Events += len(events)
		}
	}
	return r, nil
}

func (g *Generator) snapshot(ctx context.Context, info *domain.OracleInfo) (*domain.OracleSnapshot, error) {
	snap, err := g.snapshotStore.GetLatest(ctx, info.Oracle)
	if errors.Is(err, storage.ErrNotFound) {
		return &domain.OracleSnapshot{
			Oracle:         info.Oracle,
			Config:         info.Config,
			Owner:          info.Config.Owner,
			Consensus:      domain.NewConsensusState(),
			TotalDeposited: sdkmath.ZeroInt(),
			Balance:        sdkmath.ZeroInt(),
		}, nil
	}
	return snap, err
}

func (g *Generator) addSummary(s *Summary, snap *domain.OracleSnapshot, st *domain.HistoryStats) {
	s.Submissions += st.Submissions
	s.TotalDeposited = s.TotalDeposited.Add(intOrZero(snap.TotalDeposited))
	s.TotalBalance = s.TotalBalance.Add(intOrZero(snap.Balance))
	s.TotalRewardsPaid = s.TotalRewardsPaid.Add(st.TotalRewardsPaid)
	if st.Submissions == 0 {
		return
	}
	if s.FirstTimestamp == 0 || st.FirstTimestamp < s.FirstTimestamp {
		s.FirstTimestamp = st.FirstTimestamp
	}
	if st.LastTimestamp > s.LastTimestamp {
		s.LastTimestamp = st.LastTimestamp
	}
}

func (g *Generator) addHistory(ctx context.Context, r *Report, info *domain.OracleInfo) error {
	subs, err := g.submissionStore.GetByOracle(ctx, info.Oracle)
	if err != nil {
		return err
	}
	for _, s := range subs {
		r.History = append(r.History, HistoryRow{
			Oracle:    info.Config.Name,
			Index:     s.Index,
			Timestamp: s.Timestamp,
			Submitter: string(s.Submitter),
			Value:     s.Value.String(),
			Aggregate: s.AggregatedPrice.String(),
			Weight:    s.Weight.String(),
			Reward:    s.RewardPaid.String(),
			Final:     s.Final,
		})
	}
	return nil
}

func oracleRow(info *domain.OracleInfo, snap *domain.OracleSnapshot, st *domain.HistoryStats) OracleRow {
	return OracleRow{
		Address:          string(info.Oracle),
		Name:             info.Config.Name,
		Owner:            string(snap.Owner),
		Paused:           snap.Paused,
		Blacklisted:      len(snap.Blacklisted),
		Submissions:      st.Submissions,
		Submitters:       st.Submitters,
		Aggregate:        legacyDecimal(snap.Consensus.Aggregate),
		AggregatedPrice:  intOrZero(snap.Consensus.AggregatedPrice).String(),
		LastFinalized:    intOrZero(snap.Consensus.LastFinalizedPrice).String(),
		TotalDeposited:   intOrZero(snap.TotalDeposited).String(),
		Balance:          intOrZero(snap.Balance).String(),
		RewardsPaid:      st.TotalRewardsPaid.String(),
		FinalizedRate:    st.FinalizedRate,
		ValueMedian:      st.ValueMedian,
		ValueP10:         st.ValueP10,
		ValueP90:         st.ValueP90,
		ValueStddev:      st.ValueStddev,
		MeanDeviationPct: st.MeanDeviationPct,
		MaxDrawdownPct:   st.MaxDrawdownPct,
	}
}

// AddScenario attaches the steps of a scenario run.
func (r *Report) AddScenario(res *scenario.Result) {
	sec := &ScenarioSection{
		Name:     res.Scenario,
		Start:    res.Start,
		End:      res.End,
		Passed:   res.Passed(),
		Failures: res.Failures(),
	}
	for _, s := range res.Steps {
		row := StepRow{
			Index:  s.Index,
			Time:   s.Time,
			Actor:  s.Actor,
			Op:     string(s.Op),
			Oracle: s.Oracle,
			Input:  s.Input,
			Output: s.Output,
			Passed: s.Passed(),
			Note:   s.Note,
		}
		if !s.Aggregate.IsNil() {
			row.Aggregate = s.Aggregate.String()
		}
		if !s.Reward.IsNil() && s.Reward.IsPositive() {
			row.Reward = s.Reward.String()
		}
		if s.Err != nil {
			row.Error = s.Err.Error()
		}
		sec.Steps = append(sec.Steps, row)
	}
	r.Scenario = sec
}

// AddVerification attaches the outcome of invariant verification.
func (r *Report) AddVerification(v *verification.VerificationReport) {
	sec := &VerificationSection{Passed: v.Passed(), Oracles: len(v.Results)}
	for _, res := range v.Results {
		sec.Checks += res.Checks
	}
	for _, f := range v.Findings() {
		sec.Findings = append(sec.Findings, f.String())
	}
	r.Verification = sec
}

func intOrZero(v sdkmath.Int) sdkmath.Int {
	if v.IsNil() {
		return sdkmath.ZeroInt()
	}
	return v
}

// legacyDecimal converts an 18-decimal engine value for display.
func legacyDecimal(d sdkmath.LegacyDec) decimal.Decimal {
	if d.IsNil() {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(d.BigInt(), -sdkmath.LegacyPrecision)
}
