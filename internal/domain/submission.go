package domain

import (
	sdkmath "cosmossdk.io/math"
)

// SubmissionRecord is one accepted value submission.
// Records are append-only and indexed by their position in the oracle history.
type SubmissionRecord struct {
	Oracle          Address     `json:"oracle"`
	Index           uint64      `json:"index"`           // position in history
	Submitter       Address     `json:"submitter"`       // submitting account
	Timestamp       uint64      `json:"timestamp"`       // unix seconds
	Value           sdkmath.Int `json:"value"`           // submitted value
	AggregatedPrice sdkmath.Int `json:"aggregatedPrice"` // aggregate after this submission
	Weight          sdkmath.Int `json:"weight"`          // submitter weight at submission time
	RewardPaid      sdkmath.Int `json:"rewardPaid"`      // native currency paid to the submitter
	Final           bool        `json:"final"`           // participation quorum met
}

// PricePoint is a submission projected for timeseries analytics.
// Corresponds to price_history table in ClickHouse.
type PricePoint struct {
	Oracle          Address     // oracle address
	Index           uint64      // submission index
	Timestamp       uint64      // unix seconds
	Submitter       Address     // submitting account
	Value           sdkmath.Int // submitted value
	AggregatedPrice sdkmath.Int // aggregate after the submission
	Weight          sdkmath.Int // submitter weight
	Final           bool        // participation quorum met
}

// PricePointFromSubmission projects a submission record.
func PricePointFromSubmission(s SubmissionRecord) PricePoint {
	return PricePoint{
		Oracle:          s.Oracle,
		Index:           s.Index,
		Timestamp:       s.Timestamp,
		Submitter:       s.Submitter,
		Value:           s.Value,
		AggregatedPrice: s.AggregatedPrice,
		Weight:          s.Weight,
		Final:           s.Final,
	}
}
