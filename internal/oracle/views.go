package oracle

import (
	"context"

	errorsmod "cosmossdk.io/errors"
	sdkmath "cosmossdk.io/math"

	"weighted-oracle/internal/domain"
)

// Address returns the oracle address.
func (o *Oracle) Address() domain.Address { return o.address }

// Config returns the construction parameters.
func (o *Oracle) Config() domain.OracleConfig { return o.cfg }

// Owner returns the current owner.
func (o *Oracle) Owner(ctx context.Context) domain.Address {
	defer o.view(ctx)()
	return o.owner
}

// Paused reports whether the oracle is paused.
func (o *Oracle) Paused(ctx context.Context) bool {
	defer o.view(ctx)()
	return o.paused
}

// Consensus returns the current aggregate state.
func (o *Oracle) Consensus(ctx context.Context) domain.ConsensusState {
	defer o.view(ctx)()
	return o.consensus
}

// Participant returns the stake entry of addr with the lock transitions due
// now applied. Unknown accounts yield an empty entry.
func (o *Oracle) Participant(ctx context.Context, addr domain.Address) domain.Participant {
	defer o.view(ctx)()
	return settled(o.ledger.getOrEmpty(addr), o.clock.Now(), o.cfg)
}

// Weight returns the current weight of addr.
func (o *Oracle) Weight(ctx context.Context, addr domain.Address) sdkmath.Int {
	defer o.view(ctx)()
	return o.weight(o.ledger.getOrEmpty(addr), o.clock.Now(), o.cfg)
}

// TotalDepositedTokens returns the sum of all participant stake.
func (o *Oracle) TotalDepositedTokens(ctx context.Context) sdkmath.Int {
	defer o.view(ctx)()
	return o.ledger.total
}

// Balance returns the native balance available for rewards.
func (o *Oracle) Balance(_ context.Context) sdkmath.Int {
	return o.native.BalanceOf(o.address)
}

// GetTokenUnlockTime returns when every lock on addr has elapsed.
func (o *Oracle) GetTokenUnlockTime(ctx context.Context, addr domain.Address) uint64 {
	defer o.view(ctx)()
	return unlockTime(o.ledger.getOrEmpty(addr), o.cfg)
}

// GetSubmitterInfo returns the last submission made by addr.
func (o *Oracle) GetSubmitterInfo(ctx context.Context, addr domain.Address) domain.SubmitterInfo {
	defer o.view(ctx)()
	if info, ok := o.submitters[addr]; ok {
		return info
	}
	return domain.NewSubmitterInfo(addr)
}

// GetPriceHistoryLength returns the number of accepted submissions.
func (o *Oracle) GetPriceHistoryLength(ctx context.Context) uint64 {
	defer o.view(ctx)()
	return uint64(len(o.history))
}

// GetPriceHistoryRange returns submissions [start, end) as parallel arrays.
func (o *Oracle) GetPriceHistoryRange(ctx context.Context, start, end uint64) (domain.PriceHistory, error) {
	defer o.view(ctx)()
	if start > end || end > uint64(len(o.history)) {
		return domain.PriceHistory{}, errorsmod.Wrapf(ErrInvalidRange, "[%d, %d) of %d", start, end, len(o.history))
	}

	n := end - start
	h := domain.PriceHistory{
		Timestamps:       make([]uint64, 0, n),
		AggregatedPrices: make([]sdkmath.Int, 0, n),
		LatestValues:     make([]sdkmath.Int, 0, n),
	}
	for _, rec := range o.history[start:end] {
		h.Timestamps = append(h.Timestamps, rec.Timestamp)
		h.AggregatedPrices = append(h.AggregatedPrices, rec.AggregatedPrice)
		h.LatestValues = append(h.LatestValues, rec.Value)
	}
	return h, nil
}

// Submission returns the record at index.
func (o *Oracle) Submission(ctx context.Context, index uint64) (domain.SubmissionRecord, error) {
	defer o.view(ctx)()
	if index >= uint64(len(o.history)) {
		return domain.SubmissionRecord{}, errorsmod.Wrapf(ErrInvalidRange, "index %d of %d", index, len(o.history))
	}
	return o.history[index], nil
}

// BlacklistVotes returns the cumulative blacklist weight against target.
func (o *Oracle) BlacklistVotes(ctx context.Context, target domain.Address) sdkmath.Int {
	defer o.view(ctx)()
	return o.gov.total(domain.BallotBlacklist, target)
}

// WhitelistVotes returns the cumulative whitelist weight for target.
func (o *Oracle) WhitelistVotes(ctx context.Context, target domain.Address) sdkmath.Int {
	defer o.view(ctx)()
	return o.gov.total(domain.BallotWhitelist, target)
}

// VoteWeight returns the weight voter cast on (kind, target), or zero.
func (o *Oracle) VoteWeight(ctx context.Context, kind domain.BallotKind, target, voter domain.Address) sdkmath.Int {
	defer o.view(ctx)()
	return o.gov.voteWeight(kind, target, voter)
}

// HasVoted reports whether voter has an active vote on (kind, target).
func (o *Oracle) HasVoted(ctx context.Context, kind domain.BallotKind, target, voter domain.Address) bool {
	defer o.view(ctx)()
	return o.gov.hasVoted(kind, target, voter)
}

// UserVotes returns the targets voter has active votes on, in cast order.
func (o *Oracle) UserVotes(ctx context.Context, kind domain.BallotKind, voter domain.Address) []domain.Address {
	defer o.view(ctx)()
	return o.gov.targets(kind, voter)
}

// IsBlacklisted reports whether target is blacklisted.
func (o *Oracle) IsBlacklisted(ctx context.Context, target domain.Address) bool {
	defer o.view(ctx)()
	return o.gov.isBlacklisted(target)
}
