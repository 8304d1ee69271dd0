package scenario

import (
	"context"
	"errors"
	"fmt"
	"strings"

	sdkmath "cosmossdk.io/math"
	"github.com/rs/zerolog"

	"weighted-oracle/internal/domain"
	"weighted-oracle/internal/ingestion"
	"weighted-oracle/internal/oracle"
	"weighted-oracle/internal/registry"
	"weighted-oracle/internal/storage/memory"
	"weighted-oracle/internal/token"
)

// Result is the outcome of one scenario run.
type Result struct {
	Scenario string
	Start    uint64
	End      uint64
	Accounts []Account
	Oracles  []OracleOutcome
	Steps    []StepResult

	// Stores and Bank hold everything the run recorded, for verification.
	Stores ingestion.Stores
	Bank   *token.Bank
}

// OracleOutcome is the final state of one scenario oracle.
type OracleOutcome struct {
	ID       string
	Info     domain.OracleInfo
	Snapshot domain.OracleSnapshot
}

// StepResult records what one step did.
type StepResult struct {
	Index     int
	Time      uint64 // clock value the step ran at
	Actor     string
	Op        Op
	Oracle    string
	Input     string // amount, value or target
	Note      string
	Err       error
	Output    string      // value returned by a read
	Aggregate sdkmath.Int // aggregated price after the step
	Reward    sdkmath.Int // reward paid by a submission
	Final     bool
	Failures  []string // unmet expectations
}

// Passed reports whether the step met its expectations.
func (s *StepResult) Passed() bool { return len(s.Failures) == 0 }

// Passed reports whether every step met its expectations.
func (r *Result) Passed() bool {
	for i := range r.Steps {
		if !r.Steps[i].Passed() {
			return false
		}
	}
	return true
}

// Failures lists every unmet expectation as "step N: detail".
func (r *Result) Failures() []string {
	var out []string
	for _, s := range r.Steps {
		for _, f := range s.Failures {
			out = append(out, fmt.Sprintf("step %d (%s %s): %s", s.Index, s.Actor, s.Op, f))
		}
	}
	return out
}

// Outcome returns the outcome of the oracle with the given scenario id.
func (r *Result) Outcome(id string) (OracleOutcome, bool) {
	for _, o := range r.Oracles {
		if o.ID == id {
			return o, true
		}
	}
	return OracleOutcome{}, false
}

// RunnerOptions contains configuration for creating a Runner.
type RunnerOptions struct {
	// Broadcaster receives every commit. Optional.
	Broadcaster ingestion.Broadcaster
	Logger      *zerolog.Logger
}

// Runner executes scenarios. Every run starts from fresh memory stores.
type Runner struct {
	broadcaster ingestion.Broadcaster
	logger      zerolog.Logger
}

// NewRunner creates a scenario runner.
func NewRunner(opts RunnerOptions) *Runner {
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	return &Runner{broadcaster: opts.Broadcaster, logger: logger}
}

type run struct {
	sc      *Scenario
	clock   *oracle.ManualClock
	reg     *registry.Registry
	addrs   map[string]domain.Address
	oracles map[string]*oracle.Oracle
}

// Run sets up the scenario and applies its steps in order. Step failures are
// recorded in the result; an error is returned only when setup fails.
func (r *Runner) Run(ctx context.Context, sc *Scenario) (*Result, error) {
	res := &Result{Scenario: sc.Name, Start: sc.Start}

	addrs := make(map[string]domain.Address, len(sc.Accounts))
	for _, name := range sc.Accounts {
		key, err := AccountKey(sc.Name, name)
		if err != nil {
			return nil, fmt.Errorf("derive account %s: %w", name, err)
		}
		addrs[name] = key.Address
		res.Accounts = append(res.Accounts, Account{Name: name, Key: key})
	}

	boot := sc.bootstrap(addrs)
	if err := boot.Validate(); err != nil {
		return nil, err
	}
	bank, factory, err := boot.NewBank()
	if err != nil {
		return nil, err
	}

	res.Stores = ingestion.Stores{
		Oracles:      memory.NewOracleStore(),
		Events:       memory.NewEventStore(),
		Submissions:  memory.NewSubmissionStore(),
		Snapshots:    memory.NewSnapshotStore(),
		PriceHistory: memory.NewPriceHistoryStore(),
	}
	res.Bank = bank
	recorder := ingestion.NewRecorder(ingestion.RecorderOptions{
		Stores:      res.Stores,
		Broadcaster: r.broadcaster,
		Logger:      &r.logger,
	})

	clock := oracle.NewManualClock(sc.Start)
	reg, err := registry.New(registry.Options{
		Factory:  factory,
		Bank:     bank,
		Clock:    clock,
		Sink:     recorder,
		Listener: recorder,
		Logger:   &r.logger,
	})
	if err != nil {
		return nil, err
	}

	infos, err := boot.CreateOracles(ctx, reg)
	if err != nil {
		return nil, err
	}

	st := &run{sc: sc, clock: clock, reg: reg, addrs: addrs, oracles: make(map[string]*oracle.Oracle)}
	for i, info := range infos {
		o, err := reg.Get(info.Oracle)
		if err != nil {
			return nil, err
		}
		st.oracles[sc.Oracles[i].ID] = o
	}

	r.logger.Info().
		Str("scenario", sc.Name).
		Int("accounts", len(sc.Accounts)).
		Int("oracles", len(infos)).
		Int("steps", len(sc.Steps)).
		Msg("scenario started")

	for i, step := range sc.Steps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		sr := st.apply(ctx, i, step)
		if !sr.Passed() {
			r.logger.Warn().Int("step", i).Str("op", string(step.Op)).Strs("failures", sr.Failures).Msg("step expectation failed")
		}
		res.Steps = append(res.Steps, sr)
	}

	for i, info := range infos {
		o := st.oracles[sc.Oracles[i].ID]
		res.Oracles = append(res.Oracles, OracleOutcome{
			ID:       sc.Oracles[i].ID,
			Info:     info,
			Snapshot: o.Snapshot(ctx),
		})
	}
	res.End = clock.Now()

	r.logger.Info().
		Str("scenario", sc.Name).
		Bool("passed", res.Passed()).
		Msg("scenario finished")
	return res, nil
}

func (st *run) apply(ctx context.Context, index int, step Step) StepResult {
	if step.At != nil {
		st.clock.Set(st.sc.Start + *step.At)
	}
	st.clock.Advance(step.Wait)

	sr := StepResult{
		Index:  index,
		Time:   st.clock.Now(),
		Actor:  step.Actor,
		Op:     step.Op,
		Oracle: step.Oracle,
		Note:   step.Note,
		Reward: sdkmath.ZeroInt(),
	}
	if step.Op == OpAdvance {
		return sr
	}

	o := st.oracles[step.Oracle]
	caller := st.addrs[step.Actor]
	target := st.addrs[step.Target]

	switch {
	case step.Amount != "":
		sr.Input = step.Amount
	case step.Value != "":
		sr.Input = step.Value
	case step.Target != "":
		sr.Input = step.Target
	}

	var (
		err   error
		value sdkmath.Int
	)
	switch step.Op {
	case OpApprove:
		var amount sdkmath.Int
		if amount, err = parseInt(step.Amount); err == nil {
			var l *token.Ledger
			if l, err = st.reg.Bank().Ledger(o.Config().WeightToken); err == nil {
				err = l.Approve(caller, o.Address(), amount)
			}
		}
	case OpDeposit, OpWithdraw, OpFund:
		var amount sdkmath.Int
		if amount, err = parseInt(step.Amount); err == nil {
			err = amountOp(step.Op, o)(ctx, caller, amount)
		}
	case OpSubmit:
		var rec domain.SubmissionRecord
		if value, err = parseInt(step.Value); err == nil {
			if rec, err = o.SubmitValue(ctx, caller, value); err == nil {
				sr.Reward = rec.RewardPaid
				sr.Final = rec.Final
			}
		}
	case OpRead:
		if value, err = o.ReadValue(ctx, caller); err == nil {
			sr.Output = value.String()
		}
	case OpReadLatest:
		if value, err = o.ReadLatestValue(ctx, caller); err == nil {
			sr.Output = value.String()
		}
	case OpVoteBlacklist:
		err = o.VoteBlacklist(ctx, caller, target)
	case OpVoteWhitelist:
		err = o.VoteWhitelist(ctx, caller, target)
	case OpTransferOwnership:
		err = o.TransferOwnership(ctx, caller, target)
	case OpRenounceOwnership:
		err = o.RenounceOwnership(ctx, caller)
	case OpPause:
		err = o.Pause(ctx, caller)
	case OpUnpause:
		err = o.Unpause(ctx, caller)
	}

	sr.Err = err
	sr.Aggregate = o.Consensus(ctx).AggregatedPrice
	sr.Failures = check(step.Expect, &sr)
	return sr
}

func amountOp(op Op, o *oracle.Oracle) func(context.Context, domain.Address, sdkmath.Int) error {
	switch op {
	case OpDeposit:
		return o.DepositTokens
	case OpWithdraw:
		return o.WithdrawTokens
	default:
		return o.Fund
	}
}

// check compares a step outcome with its expectations.
func check(exp Expect, sr *StepResult) []string {
	var failures []string

	switch {
	case exp.Error == "" && sr.Err != nil:
		failures = append(failures, fmt.Sprintf("unexpected error: %v", sr.Err))
	case exp.Error != "" && sr.Err == nil:
		failures = append(failures, fmt.Sprintf("expected error %s, step succeeded", exp.Error))
	case exp.Error != "" && exp.Error != AnyError && !errors.Is(sr.Err, ErrorNames[exp.Error]):
		failures = append(failures, fmt.Sprintf("expected error %s, got %v", exp.Error, sr.Err))
	}

	if exp.Aggregate != "" && sr.Aggregate.String() != strings.TrimSpace(exp.Aggregate) {
		failures = append(failures, fmt.Sprintf("aggregate %s, expected %s", sr.Aggregate, exp.Aggregate))
	}
	if exp.Value != "" && sr.Output != strings.TrimSpace(exp.Value) {
		failures = append(failures, fmt.Sprintf("read %q, expected %s", sr.Output, exp.Value))
	}
	if exp.Final != nil && sr.Err == nil && sr.Final != *exp.Final {
		failures = append(failures, fmt.Sprintf("final %v, expected %v", sr.Final, *exp.Final))
	}
	return failures
}

// parseInt accepts any integer, so that steps can exercise the engine's own
// validation of zero and negative amounts.
func parseInt(s string) (sdkmath.Int, error) {
	v, ok := sdkmath.NewIntFromString(strings.TrimSpace(s))
	if !ok {
		return sdkmath.Int{}, fmt.Errorf("%w: %q", oracle.ErrInvalidAmount, s)
	}
	return v, nil
}
