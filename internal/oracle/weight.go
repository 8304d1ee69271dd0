package oracle

import (
	sdkmath "cosmossdk.io/math"

	"weighted-oracle/internal/domain"
)

// WeightFunc derives a participant's submission and vote weight.
// p is the stored entry and may predate lock transitions that are due at now.
// Implementations must be pure, return zero for an account without matured
// stake and be non-decreasing in matured stake.
type WeightFunc func(p domain.Participant, now uint64, cfg domain.OracleConfig) sdkmath.Int

// MaturedStakeWeight counts every token whose deposit lock has elapsed, whether
// it is currently withdrawable or still inside the withdrawal lock.
func MaturedStakeWeight(p domain.Participant, now uint64, cfg domain.OracleConfig) sdkmath.Int {
	s := settled(p, now, cfg)
	return s.UnlockedTokens.Add(s.LockedForWithdrawal)
}
