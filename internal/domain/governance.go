package domain

import (
	"fmt"

	sdkmath "cosmossdk.io/math"
)

// BallotKind distinguishes blacklist from whitelist votes.
type BallotKind string

// Ballot kinds.
const (
	BallotBlacklist BallotKind = "blacklist"
	BallotWhitelist BallotKind = "whitelist"
)

// ParseBallotKind validates a ballot kind string.
func ParseBallotKind(s string) (BallotKind, error) {
	switch BallotKind(s) {
	case BallotBlacklist, BallotWhitelist:
		return BallotKind(s), nil
	default:
		return "", fmt.Errorf("unknown ballot kind %q", s)
	}
}

// Opposite returns the ballot kind that undoes k.
func (k BallotKind) Opposite() BallotKind {
	if k == BallotBlacklist {
		return BallotWhitelist
	}
	return BallotBlacklist
}

// VoteRecord is one cast vote with the weight snapshotted at cast time.
type VoteRecord struct {
	Voter  Address     `json:"voter"`
	Weight sdkmath.Int `json:"weight"`
}

// BallotSummary is the tally of one (kind, target) ballot.
type BallotSummary struct {
	Kind   BallotKind   `json:"kind"`
	Target Address      `json:"target"`
	Total  sdkmath.Int  `json:"total"`
	Votes  []VoteRecord `json:"votes"` // ordered by cast time
}

// UserVotes lists the targets one voter has voted on, in cast order.
type UserVotes struct {
	Kind    BallotKind `json:"kind"`
	Voter   Address    `json:"voter"`
	Targets []Address  `json:"targets"`
}
