// Package oracle implements the token-weighted, time-decayed aggregation engine
// of a single oracle instance.
package oracle

import (
	"context"
	"sync"
	"time"

	errorsmod "cosmossdk.io/errors"
	sdkmath "cosmossdk.io/math"
	"github.com/rs/zerolog"

	"weighted-oracle/internal/domain"
	"weighted-oracle/internal/idhash"
	"weighted-oracle/internal/observability"
)

// TokenLedger is the token contract an oracle moves funds through.
type TokenLedger interface {
	Address() domain.Address
	BalanceOf(account domain.Address) sdkmath.Int
	Transfer(ctx context.Context, from, to domain.Address, amount sdkmath.Int) error
	TransferFrom(ctx context.Context, spender, from, to domain.Address, amount sdkmath.Int) error
}

// Commit is the result of one successful operation, handed to the Sink after
// the state change is applied.
type Commit struct {
	Oracle     domain.Address
	Events     []domain.Event
	Submission *domain.SubmissionRecord // set by SubmitValue only
	Snapshot   domain.OracleSnapshot
}

// Sink receives committed operations in commit order.
type Sink interface {
	Commit(ctx context.Context, c Commit) error
}

// Options configures an Oracle.
type Options struct {
	Address     domain.Address
	Config      domain.OracleConfig
	WeightToken TokenLedger
	Native      TokenLedger
	Clock       Clock          // defaults to SystemClock
	Weight      WeightFunc     // defaults to MaturedStakeWeight
	Reward      RewardStrategy // defaults to ProportionalReward
	Sink        Sink           // optional
	Logger      *zerolog.Logger
}

// Oracle is one aggregation instance. All operations are serialized.
type Oracle struct {
	address     domain.Address
	cfg         domain.OracleConfig
	weightToken TokenLedger
	native      TokenLedger
	clock       Clock
	weight      WeightFunc
	reward      RewardStrategy
	sink        Sink
	logger      zerolog.Logger

	mu    sync.Mutex // guards everything below
	pubMu sync.Mutex // orders sink publication

	owner      domain.Address
	paused     bool
	sequence   uint64
	consensus  domain.ConsensusState
	ledger     *stakeLedger
	submitters map[domain.Address]domain.SubmitterInfo
	history    []domain.SubmissionRecord
	gov        *governance
}

// New creates an oracle with empty state.
func New(opts Options) (*Oracle, error) {
	if err := ValidateConfig(opts.Config); err != nil {
		return nil, err
	}
	if opts.Address.IsZero() {
		return nil, errorsmod.Wrap(ErrInvalidAddress, "oracle address is required")
	}
	if opts.WeightToken == nil || opts.Native == nil {
		return nil, errorsmod.Wrap(ErrInvalidConfig, "weight token and native ledgers are required")
	}
	if opts.WeightToken.Address() != opts.Config.WeightToken {
		return nil, errorsmod.Wrapf(ErrInvalidConfig, "weight token ledger %s does not match config %s",
			opts.WeightToken.Address(), opts.Config.WeightToken)
	}

	o := &Oracle{
		address:     opts.Address,
		cfg:         opts.Config,
		weightToken: opts.WeightToken,
		native:      opts.Native,
		clock:       opts.Clock,
		weight:      opts.Weight,
		reward:      opts.Reward,
		sink:        opts.Sink,
		owner:       opts.Config.Owner,
		consensus:   domain.NewConsensusState(),
		ledger:      newStakeLedger(),
		submitters:  make(map[domain.Address]domain.SubmitterInfo),
		gov:         newGovernance(),
	}
	if o.clock == nil {
		o.clock = SystemClock{}
	}
	if o.weight == nil {
		o.weight = MaturedStakeWeight
	}
	if o.reward == nil {
		o.reward = ProportionalReward{}
	}
	if opts.Logger != nil {
		o.logger = opts.Logger.With().Str("oracle", string(opts.Address)).Logger()
	} else {
		o.logger = zerolog.Nop()
	}
	return o, nil
}

// ValidateConfig checks construction parameters.
func ValidateConfig(cfg domain.OracleConfig) error {
	if cfg.Owner.IsZero() {
		return errorsmod.Wrap(ErrInvalidOwner, "owner is required")
	}
	if cfg.WeightToken == "" {
		return errorsmod.Wrap(ErrInvalidConfig, "weight token is required")
	}
	if cfg.Name == "" {
		return errorsmod.Wrap(ErrInvalidConfig, "name is required")
	}
	if cfg.Quorum > domain.BasisPoints {
		return errorsmod.Wrapf(ErrInvalidConfig, "quorum %d exceeds %d basis points", cfg.Quorum, domain.BasisPoints)
	}
	if cfg.Reward > domain.RewardDenominator {
		return errorsmod.Wrapf(ErrInvalidConfig, "reward %d exceeds %d", cfg.Reward, domain.RewardDenominator)
	}
	return nil
}

// guardKey marks a context as running inside an operation of o.
type guardKey struct{ o *Oracle }

func (o *Oracle) guarded(ctx context.Context) bool {
	return ctx.Value(guardKey{o}) != nil
}

// tx is the state of one in-flight operation.
type tx struct {
	ctx        context.Context
	now        uint64
	j          journal
	events     []domain.Event
	submission *domain.SubmissionRecord
}

func (t *tx) emit(e domain.Event) {
	t.events = append(t.events, e)
}

// exec runs fn as one atomic operation. On error or panic every recorded state
// change is undone, the oracle is unlocked and nothing is published.
func (o *Oracle) exec(ctx context.Context, op string, fn func(t *tx) error) (err error) {
	start := time.Now()
	defer func() { observability.RecordOperation(op, time.Since(start).Seconds(), err) }()

	if o.guarded(ctx) {
		return errorsmod.Wrapf(ErrReentrantCall, "%s called during another operation", op)
	}
	ctx = context.WithValue(ctx, guardKey{o}, struct{}{})

	o.mu.Lock()
	t := &tx{ctx: ctx, now: o.clock.Now()}
	held := true
	defer func() {
		// Also runs while a panic unwinds.
		if held {
			t.j.revert()
			o.mu.Unlock()
		}
	}()

	if err := fn(t); err != nil {
		o.logger.Debug().Str("op", op).Err(err).Msg("operation rejected")
		return err
	}

	prevSeq := o.sequence
	t.j.record(func() { o.sequence = prevSeq })
	for i := range t.events {
		o.sequence++
		e := &t.events[i]
		e.Sequence = o.sequence
		e.ID = idhash.ComputeEventID(o.address, e.Sequence, e.Type, e.Timestamp)
	}
	c := Commit{
		Oracle:     o.address,
		Events:     t.events,
		Submission: t.submission,
		Snapshot:   o.snapshotLocked(t.now),
	}

	o.pubMu.Lock()
	held = false
	o.mu.Unlock()
	defer o.pubMu.Unlock()

	o.logger.Debug().Str("op", op).Int("events", len(c.Events)).Msg("operation committed")
	if o.sink == nil {
		return nil
	}
	if err := o.sink.Commit(ctx, c); err != nil {
		o.logger.Error().Err(err).Str("op", op).Msg("failed to publish commit")
	}
	return nil
}

// view locks o for a read unless ctx already runs inside one of its operations.
func (o *Oracle) view(ctx context.Context) func() {
	if o.guarded(ctx) {
		return func() {}
	}
	o.mu.Lock()
	return o.mu.Unlock
}

func (o *Oracle) newEvent(t *tx, typ domain.EventType) domain.Event {
	return domain.NewEvent(o.address, typ, t.now)
}

// requireOwner fails unless caller owns the oracle.
func (o *Oracle) requireOwner(caller domain.Address) error {
	if caller != o.owner || o.owner.IsZero() {
		return errorsmod.Wrapf(ErrUnauthorized, "%s", caller)
	}
	return nil
}

func (o *Oracle) requireNotPaused() error {
	if o.paused {
		return ErrPaused
	}
	return nil
}

func validAmount(amount sdkmath.Int) error {
	if !positive(amount) {
		return errorsmod.Wrap(ErrInvalidAmount, "amount must be positive")
	}
	return nil
}

func transferFailed(err error) error {
	return errorsmod.Wrapf(ErrTokenTransferFailed, "%v", err)
}
