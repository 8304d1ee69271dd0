package domain

import (
	sdkmath "cosmossdk.io/math"
)

// Parameter scales.
const (
	// RewardDenominator is the scale of OracleConfig.Reward: 1000 pays 1% of the balance per slice.
	RewardDenominator = 100000
	// BasisPoints is the scale of OracleConfig.Quorum.
	BasisPoints = 10000
)

// Defaults applied when an oracle is created without explicit parameters.
const (
	DefaultReward                  = 1000
	DefaultHalfLifeSeconds         = 3600
	DefaultQuorum                  = 2000
	DefaultDepositLockingPeriod    = 3600
	DefaultWithdrawalLockingPeriod = 3600
	DefaultAlpha                   = 1
)

// OracleConfig holds the parameters fixed at oracle construction.
type OracleConfig struct {
	Owner                   Address `json:"owner" yaml:"owner"`                                     // initial owner
	Name                    string  `json:"name" yaml:"name"`                                       // display name
	Description             string  `json:"description" yaml:"description"`                         // free-form description
	WeightToken             Address `json:"weightToken" yaml:"weightToken"`                         // token staked for weight
	Reward                  uint64  `json:"reward" yaml:"reward"`                                   // reward rate out of RewardDenominator
	HalfLifeSeconds         uint64  `json:"halfLifeSeconds" yaml:"halfLifeSeconds"`                 // EWMA half-life
	Quorum                  uint64  `json:"quorum" yaml:"quorum"`                                   // basis points of total deposits
	DepositLockingPeriod    uint64  `json:"depositLockingPeriod" yaml:"depositLockingPeriod"`       // seconds before deposits count
	WithdrawalLockingPeriod uint64  `json:"withdrawalLockingPeriod" yaml:"withdrawalLockingPeriod"` // seconds after last operation before withdrawal
	Alpha                   uint64  `json:"alpha" yaml:"alpha"`                                     // reward weight multiplier
}

// DefaultOracleConfig returns a config populated with the default parameters.
func DefaultOracleConfig(owner, weightToken Address, name string) OracleConfig {
	return OracleConfig{
		Owner:                   owner,
		Name:                    name,
		WeightToken:             weightToken,
		Reward:                  DefaultReward,
		HalfLifeSeconds:         DefaultHalfLifeSeconds,
		Quorum:                  DefaultQuorum,
		DepositLockingPeriod:    DefaultDepositLockingPeriod,
		WithdrawalLockingPeriod: DefaultWithdrawalLockingPeriod,
		Alpha:                   DefaultAlpha,
	}
}

// OracleInfo is a registry entry. Mirrors the factory's allOracles() tuple.
type OracleInfo struct {
	Oracle    Address      `json:"oracle"`    // oracle instance address
	Token     Address      `json:"token"`     // weight token
	Creator   Address      `json:"creator"`   // account that created the instance
	Index     uint64       `json:"index"`     // creation order within the registry
	Config    OracleConfig `json:"config"`    // construction parameters
	CreatedAt uint64       `json:"createdAt"` // unix seconds
}

// ConsensusState is the EWMA aggregate of an oracle.
type ConsensusState struct {
	Aggregate          sdkmath.LegacyDec `json:"aggregate"`          // 18-decimal aggregate
	AggregatedPrice    sdkmath.Int       `json:"aggregatedPrice"`    // aggregate rounded to an integer
	LatestValue        sdkmath.Int       `json:"latestValue"`        // most recent raw submission
	LastTimestamp      uint64            `json:"lastTimestamp"`      // time of the last accepted submission
	Initialized        bool              `json:"initialized"`        // false until the first submission
	LastFinalizedPrice sdkmath.Int       `json:"lastFinalizedPrice"` // aggregate at the last quorum-backed submission
	LastFinalizedTime  uint64            `json:"lastFinalizedTime"`  // time of the last quorum-backed submission
}

// NewConsensusState returns an uninitialized state with zero values.
func NewConsensusState() ConsensusState {
	return ConsensusState{
		Aggregate:          sdkmath.LegacyZeroDec(),
		AggregatedPrice:    sdkmath.ZeroInt(),
		LatestValue:        sdkmath.ZeroInt(),
		LastFinalizedPrice: sdkmath.ZeroInt(),
	}
}

// PriceHistory holds parallel arrays for a range of submissions.
type PriceHistory struct {
	Timestamps       []uint64      `json:"timestamps"`
	AggregatedPrices []sdkmath.Int `json:"aggregatedPrices"`
	LatestValues     []sdkmath.Int `json:"latestValues"`
}
