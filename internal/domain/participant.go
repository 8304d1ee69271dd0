package domain

import (
	sdkmath "cosmossdk.io/math"
)

// Participant is the stake ledger entry of one account.
// Locked + Unlocked + LockedForWithdrawal equals deposits minus completed withdrawals.
type Participant struct {
	Address                Address     `json:"address"`
	LockedTokens           sdkmath.Int `json:"lockedTokens"`           // inside the deposit lock, no weight
	UnlockedTokens         sdkmath.Int `json:"unlockedTokens"`         // matured and withdrawable
	LockedForWithdrawal    sdkmath.Int `json:"lockedForWithdrawal"`    // matured, waiting out the withdrawal lock
	DepositTimestamp       uint64      `json:"depositTimestamp"`       // last deposit
	LastOperationTimestamp uint64      `json:"lastOperationTimestamp"` // last deposit, withdrawal, submission or vote
}

// NewParticipant returns an empty ledger entry for addr.
func NewParticipant(addr Address) Participant {
	return Participant{
		Address:             addr,
		LockedTokens:        sdkmath.ZeroInt(),
		UnlockedTokens:      sdkmath.ZeroInt(),
		LockedForWithdrawal: sdkmath.ZeroInt(),
	}
}

// Deposited returns the participant's total stake across all buckets.
func (p Participant) Deposited() sdkmath.Int {
	return p.LockedTokens.Add(p.UnlockedTokens).Add(p.LockedForWithdrawal)
}

// SubmitterInfo is the last submission made by an account.
type SubmitterInfo struct {
	Submitter          Address     `json:"submitter"`
	LastSubmittedPrice sdkmath.Int `json:"lastSubmittedPrice"`
	LastWeight         sdkmath.Int `json:"lastWeight"`
	LastSubmittedTime  uint64      `json:"lastSubmittedTime"`
}

// NewSubmitterInfo returns an empty record for addr.
func NewSubmitterInfo(addr Address) SubmitterInfo {
	return SubmitterInfo{
		Submitter:          addr,
		LastSubmittedPrice: sdkmath.ZeroInt(),
		LastWeight:         sdkmath.ZeroInt(),
	}
}
