package replay

import (
	"context"
	"fmt"
	"sort"

	sdkmath "cosmossdk.io/math"

	"weighted-oracle/internal/domain"
	"weighted-oracle/internal/oracle"
)

// State is the part of an oracle's state that can be derived from its event log.
type State struct {
	Oracle         domain.Address
	Sequence       uint64
	Consensus      domain.ConsensusState
	Owner          domain.Address
	Paused         bool
	TotalDeposited sdkmath.Int
	Balance        sdkmath.Int
	RewardsPaid    sdkmath.Int
	Deposits       map[domain.Address]sdkmath.Int // per account, net of withdrawals
	Blacklisted    map[domain.Address]bool
	Submissions    uint64
	Reads          uint64
}

// BlacklistedList returns the blacklisted accounts in address order.
func (s *State) BlacklistedList() []domain.Address {
	out := make([]domain.Address, 0, len(s.Blacklisted))
	for addr, flag := range s.Blacklisted {
		if flag {
			out = append(out, addr)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Divergence is a recorded value that the rebuilt state does not reproduce.
type Divergence struct {
	Sequence uint64
	Field    string
	Expected string // recorded in the event
	Actual   string // recomputed
}

// Rebuilder reconstructs oracle state by applying events in order. It
// recomputes the consensus aggregate of every PriceSubmitted event and records
// a Divergence when it differs from the recorded aggregate.
type Rebuilder struct {
	cfg         domain.OracleConfig
	state       State
	divergences []Divergence
}

var _ ReplayEngine = (*Rebuilder)(nil)

// NewRebuilder starts from the state of a freshly created oracle.
func NewRebuilder(info domain.OracleInfo) *Rebuilder {
	return &Rebuilder{
		cfg: info.Config,
		state: State{
			Oracle:         info.Oracle,
			Consensus:      domain.NewConsensusState(),
			Owner:          info.Config.Owner,
			TotalDeposited: sdkmath.ZeroInt(),
			Balance:        sdkmath.ZeroInt(),
			RewardsPaid:    sdkmath.ZeroInt(),
			Deposits:       make(map[domain.Address]sdkmath.Int),
			Blacklisted:    make(map[domain.Address]bool),
		},
	}
}

// State returns the rebuilt state.
func (b *Rebuilder) State() *State { return &b.state }

// Divergences returns the aggregate mismatches found so far.
func (b *Rebuilder) Divergences() []Divergence { return b.divergences }

// OnEvent implements ReplayEngine.
func (b *Rebuilder) OnEvent(_ context.Context, e *domain.Event) error {
	s := &b.state
	if e.Oracle != s.Oracle {
		return fmt.Errorf("%w: %s", ErrForeignEvent, e.Oracle)
	}
	s.Sequence = e.Sequence

	switch e.Type {
	case domain.EventPriceSubmitted:
		s.Consensus = oracle.NextConsensus(s.Consensus, e.Value, e.Timestamp, b.cfg.HalfLifeSeconds)
		if e.Flag {
			s.Consensus.LastFinalizedPrice = s.Consensus.AggregatedPrice
			s.Consensus.LastFinalizedTime = e.Timestamp
		}
		if !s.Consensus.AggregatedPrice.Equal(e.Aggregate) {
			b.divergences = append(b.divergences, Divergence{
				Sequence: e.Sequence,
				Field:    "aggregate",
				Expected: e.Aggregate.String(),
				Actual:   s.Consensus.AggregatedPrice.String(),
			})
		}
		s.Balance = s.Balance.Sub(e.Amount)
		s.RewardsPaid = s.RewardsPaid.Add(e.Amount)
		s.Submissions++

	case domain.EventTokenDeposited:
		s.TotalDeposited = s.TotalDeposited.Add(e.Amount)
		s.Deposits[e.Account] = b.deposit(e.Account).Add(e.Amount)

	case domain.EventTokenWithdrawn:
		s.TotalDeposited = s.TotalDeposited.Sub(e.Amount)
		s.Deposits[e.Account] = b.deposit(e.Account).Sub(e.Amount)

	case domain.EventFunded:
		s.Balance = s.Balance.Add(e.Amount)

	case domain.EventOwnershipTransferred:
		s.Owner = e.Target

	case domain.EventPaused:
		s.Paused = true

	case domain.EventUnpaused:
		s.Paused = false

	case domain.EventBlacklistStatusChanged:
		s.Blacklisted[e.Target] = e.Flag

	case domain.EventValueRead:
		s.Reads++

	case domain.EventVoted:
		// ballots do not move stake

	default:
		return fmt.Errorf("unknown event type %q at sequence %d", e.Type, e.Sequence)
	}
	return nil
}

func (b *Rebuilder) deposit(addr domain.Address) sdkmath.Int {
	if v, ok := b.state.Deposits[addr]; ok {
		return v
	}
	return sdkmath.ZeroInt()
}
