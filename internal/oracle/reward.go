package oracle

import (
	sdkmath "cosmossdk.io/math"

	"weighted-oracle/internal/domain"
)

// RewardInput carries everything a reward strategy may depend on.
type RewardInput struct {
	Reward      uint64      // rate out of domain.RewardDenominator
	Alpha       uint64      // weight multiplier
	Weight      sdkmath.Int // submitter weight
	TotalWeight sdkmath.Int // total deposited stake
	Balance     sdkmath.Int // oracle native balance before payment
}

// RewardStrategy computes the payout for one accepted submission.
type RewardStrategy interface {
	Reward(in RewardInput) sdkmath.Int
}

// RewardFunc adapts a plain function to RewardStrategy.
type RewardFunc func(in RewardInput) sdkmath.Int

// Reward implements RewardStrategy.
func (f RewardFunc) Reward(in RewardInput) sdkmath.Int { return f(in) }

// ProportionalReward pays Balance*Reward/RewardDenominator scaled by
// min(1, Alpha*Weight/TotalWeight).
type ProportionalReward struct{}

// Reward implements RewardStrategy.
func (ProportionalReward) Reward(in RewardInput) sdkmath.Int {
	if !positive(in.Balance) || !positive(in.Weight) || !positive(in.TotalWeight) || in.Reward == 0 || in.Alpha == 0 {
		return sdkmath.ZeroInt()
	}

	slice := in.Balance.Mul(sdkmath.NewIntFromUint64(in.Reward)).QuoRaw(domain.RewardDenominator)
	share := in.Weight.Mul(sdkmath.NewIntFromUint64(in.Alpha))
	if share.GTE(in.TotalWeight) {
		return slice
	}
	return slice.Mul(share).Quo(in.TotalWeight)
}

// capReward bounds a strategy result to [0, balance].
func capReward(amount, balance sdkmath.Int) sdkmath.Int {
	if !positive(amount) || !positive(balance) {
		return sdkmath.ZeroInt()
	}
	if amount.GT(balance) {
		return balance
	}
	return amount
}

func positive(v sdkmath.Int) bool {
	return !v.IsNil() && v.IsPositive()
}
