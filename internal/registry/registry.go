// Package registry is the oracle factory: it derives instance addresses,
// creates oracles and enumerates them for discovery.
package registry

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	sdkmath "cosmossdk.io/math"
	"github.com/rs/zerolog"

	"weighted-oracle/internal/domain"
	"weighted-oracle/internal/idhash"
	"weighted-oracle/internal/observability"
	"weighted-oracle/internal/oracle"
	"weighted-oracle/internal/token"
)

// Registry errors
var (
	ErrOracleNotFound = errors.New("oracle not found")
	ErrOracleExists   = errors.New("oracle already registered")
)

// Listener is notified of registry changes after they are applied.
type Listener interface {
	OracleCreated(ctx context.Context, info domain.OracleInfo) error
}

// Options configures a Registry.
type Options struct {
	Factory  domain.Address // program ID used for oracle address derivation
	Bank     *token.Bank    // weight tokens and the native ledger
	Clock    oracle.Clock
	Weight   oracle.WeightFunc
	Reward   oracle.RewardStrategy
	Sink     oracle.Sink // passed to every oracle
	Listener Listener    // optional
	Logger   *zerolog.Logger
}

// Registry holds every oracle instance of one factory.
type Registry struct {
	opts   Options
	logger zerolog.Logger

	mu      sync.RWMutex
	infos   []domain.OracleInfo
	oracles map[domain.Address]*oracle.Oracle
}

// New creates an empty registry.
func New(opts Options) (*Registry, error) {
	if opts.Factory.IsZero() {
		return nil, errors.New("factory address is required")
	}
	if opts.Bank == nil {
		return nil, errors.New("token bank is required")
	}
	if opts.Clock == nil {
		opts.Clock = oracle.SystemClock{}
	}

	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = opts.Logger.With().Str("factory", string(opts.Factory)).Logger()
	}

	return &Registry{
		opts:    opts,
		logger:  logger,
		oracles: make(map[domain.Address]*oracle.Oracle),
	}, nil
}

// Factory returns the factory address.
func (r *Registry) Factory() domain.Address { return r.opts.Factory }

// Bank returns the token bank oracles are wired to.
func (r *Registry) Bank() *token.Bank { return r.opts.Bank }

// CreateOracle deploys a new oracle for creator. An empty cfg.Owner defaults to creator.
func (r *Registry) CreateOracle(ctx context.Context, creator domain.Address, cfg domain.OracleConfig) (domain.OracleInfo, error) {
	if _, err := creator.Bytes(); err != nil || creator.IsZero() {
		return domain.OracleInfo{}, fmt.Errorf("%w: creator %q", oracle.ErrInvalidAddress, creator)
	}
	if cfg.Owner == "" {
		cfg.Owner = creator
	}
	if err := oracle.ValidateConfig(cfg); err != nil {
		return domain.OracleInfo{}, err
	}

	r.mu.Lock()
	index := uint64(len(r.infos))
	addr, err := idhash.OracleAddress(r.opts.Factory, creator, index)
	if err != nil {
		r.mu.Unlock()
		return domain.OracleInfo{}, fmt.Errorf("derive oracle address: %w", err)
	}
	if _, exists := r.oracles[addr]; exists {
		r.mu.Unlock()
		return domain.OracleInfo{}, fmt.Errorf("%w: %s", ErrOracleExists, addr)
	}

	o, err := r.build(addr, cfg)
	if err != nil {
		r.mu.Unlock()
		return domain.OracleInfo{}, err
	}

	info := domain.OracleInfo{
		Oracle:    addr,
		Token:     cfg.WeightToken,
		Creator:   creator,
		Index:     index,
		Config:    cfg,
		CreatedAt: r.opts.Clock.Now(),
	}
	r.infos = append(r.infos, info)
	r.oracles[addr] = o
	count := len(r.infos)
	r.mu.Unlock()
	observability.SetOracleCount(count)

	r.logger.Info().
		Str("oracle", string(addr)).
		Str("creator", string(creator)).
		Str("name", cfg.Name).
		Msg("oracle created")

	if r.opts.Listener != nil {
		if err := r.opts.Listener.OracleCreated(ctx, info); err != nil {
			r.logger.Error().Err(err).Str("oracle", string(addr)).Msg("failed to record oracle creation")
		}
	}
	return info, nil
}

// Restore re-registers a previously created oracle. A nil snapshot starts the
// oracle from empty state.
func (r *Registry) Restore(info domain.OracleInfo, snap *domain.OracleSnapshot, history []domain.SubmissionRecord) (*oracle.Oracle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.oracles[info.Oracle]; exists {
		return nil, fmt.Errorf("%w: %s", ErrOracleExists, info.Oracle)
	}

	var (
		o   *oracle.Oracle
		err error
	)
	if snap == nil {
		o, err = r.build(info.Oracle, info.Config)
	} else {
		var opts oracle.Options
		opts, err = r.oracleOptions(info.Oracle, info.Config)
		if err == nil {
			o, err = oracle.Restore(opts, *snap, history)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("restore %s: %w", info.Oracle, err)
	}
	if snap != nil {
		if err := r.reconcile(info, snap); err != nil {
			return nil, fmt.Errorf("restore %s: %w", info.Oracle, err)
		}
	}

	r.infos = append(r.infos, info)
	sort.Slice(r.infos, func(i, k int) bool { return r.infos[i].Index < r.infos[k].Index })
	r.oracles[info.Oracle] = o
	observability.SetOracleCount(len(r.infos))
	return o, nil
}

// AllOracles lists every registry entry in creation order.
func (r *Registry) AllOracles() []domain.OracleInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.OracleInfo, len(r.infos))
	copy(out, r.infos)
	return out
}

// Get returns the oracle at addr.
func (r *Registry) Get(addr domain.Address) (*oracle.Oracle, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.oracles[addr]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrOracleNotFound, addr)
	}
	return o, nil
}

// Info returns the registry entry of addr.
func (r *Registry) Info(addr domain.Address) (domain.OracleInfo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, info := range r.infos {
		if info.Oracle == addr {
			return info, nil
		}
	}
	return domain.OracleInfo{}, fmt.Errorf("%w: %s", ErrOracleNotFound, addr)
}

// reconcile mints into the oracle account whatever the process-local ledgers
// are missing relative to the snapshot: deposited weight tokens and the native
// reward balance.
func (r *Registry) reconcile(info domain.OracleInfo, snap *domain.OracleSnapshot) error {
	weightToken, err := r.opts.Bank.Ledger(info.Config.WeightToken)
	if err != nil {
		return err
	}
	for _, held := range []struct {
		ledger *token.Ledger
		want   sdkmath.Int
	}{
		{weightToken, snap.TotalDeposited},
		{r.opts.Bank.Native(), snap.Balance},
	} {
		if held.want.IsNil() {
			continue
		}
		missing := held.want.Sub(held.ledger.BalanceOf(info.Oracle))
		if !missing.IsPositive() {
			continue
		}
		if err := held.ledger.Mint(info.Oracle, missing); err != nil {
			return fmt.Errorf("reconcile %s balance: %w", held.ledger.Symbol(), err)
		}
		r.logger.Info().
			Str("oracle", string(info.Oracle)).
			Str("token", held.ledger.Symbol()).
			Str("minted", missing.String()).
			Msg("reconciled oracle balance")
	}
	return nil
}

func (r *Registry) build(addr domain.Address, cfg domain.OracleConfig) (*oracle.Oracle, error) {
	opts, err := r.oracleOptions(addr, cfg)
	if err != nil {
		return nil, err
	}
	return oracle.New(opts)
}

func (r *Registry) oracleOptions(addr domain.Address, cfg domain.OracleConfig) (oracle.Options, error) {
	weightToken, err := r.opts.Bank.Ledger(cfg.WeightToken)
	if err != nil {
		return oracle.Options{}, fmt.Errorf("%w: weight token %s", oracle.ErrInvalidConfig, cfg.WeightToken)
	}
	return oracle.Options{
		Address:     addr,
		Config:      cfg,
		WeightToken: weightToken,
		Native:      r.opts.Bank.Native(),
		Clock:       r.opts.Clock,
		Weight:      r.opts.Weight,
		Reward:      r.opts.Reward,
		Sink:        r.opts.Sink,
		Logger:      r.opts.Logger,
	}, nil
}
