package domain

import (
	sdkmath "cosmossdk.io/math"
)

// OracleSnapshot is the full engine state of one oracle except its submission history,
// which is restored from the submission store.
type OracleSnapshot struct {
	Oracle         Address         `json:"oracle"`
	Config         OracleConfig    `json:"config"`
	Owner          Address         `json:"owner"`
	Paused         bool            `json:"paused"`
	Sequence       uint64          `json:"sequence"` // last emitted event sequence
	Consensus      ConsensusState  `json:"consensus"`
	TotalDeposited sdkmath.Int     `json:"totalDeposited"`
	Balance        sdkmath.Int     `json:"balance"` // native balance held for rewards
	Participants   []Participant   `json:"participants"`
	Submitters     []SubmitterInfo `json:"submitters"`
	Ballots        []BallotSummary `json:"ballots"`
	UserVotes      []UserVotes     `json:"userVotes"`
	Blacklisted    []Address       `json:"blacklisted"`
	HistoryLength  uint64          `json:"historyLength"`
	TakenAt        uint64          `json:"takenAt"`
}
