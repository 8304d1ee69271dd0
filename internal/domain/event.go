package domain

import (
	sdkmath "cosmossdk.io/math"
)

// EventType names an oracle event.
type EventType string

// Oracle events.
const (
	EventPriceSubmitted         EventType = "PriceSubmitted"
	EventTokenDeposited         EventType = "TokenDeposited"
	EventTokenWithdrawn         EventType = "TokenWithdrawn"
	EventVoted                  EventType = "Voted"
	EventBlacklistStatusChanged EventType = "BlacklistStatusChanged"
	EventFunded                 EventType = "Funded"
	EventOwnershipTransferred   EventType = "OwnershipTransferred"
	EventPaused                 EventType = "Paused"
	EventUnpaused               EventType = "Unpaused"
	EventValueRead              EventType = "ValueRead"
)

// Event is an entry of an oracle's append-only event log.
// Fields not used by a given Type are left at their zero values.
//
//	PriceSubmitted:         Account=submitter Value Aggregate Weight Amount=reward Flag=final
//	TokenDeposited:         Account Amount
//	TokenWithdrawn:         Account Amount
//	Voted:                  Account=voter Target Kind Weight
//	BlacklistStatusChanged: Target Flag=blacklisted
//	Funded:                 Account Amount
//	OwnershipTransferred:   Account=previous owner Target=new owner
//	Paused, Unpaused:       Account
//	ValueRead:              Account Value Flag=latest value requested
type Event struct {
	ID        string      `json:"id"`        // deterministic event ID
	Oracle    Address     `json:"oracle"`    // emitting oracle
	Sequence  uint64      `json:"sequence"`  // per-oracle sequence, starting at 1
	Type      EventType   `json:"type"`      // event name
	Timestamp uint64      `json:"timestamp"` // unix seconds
	Account   Address     `json:"account,omitempty"`
	Target    Address     `json:"target,omitempty"`
	Kind      BallotKind  `json:"kind,omitempty"`
	Amount    sdkmath.Int `json:"amount"`
	Value     sdkmath.Int `json:"value"`
	Aggregate sdkmath.Int `json:"aggregate"`
	Weight    sdkmath.Int `json:"weight"`
	Flag      bool        `json:"flag"`
}

// NewEvent returns an event of the given type with all amounts set to zero.
func NewEvent(oracle Address, typ EventType, timestamp uint64) Event {
	return Event{
		Oracle:    oracle,
		Type:      typ,
		Timestamp: timestamp,
		Amount:    sdkmath.ZeroInt(),
		Value:     sdkmath.ZeroInt(),
		Aggregate: sdkmath.ZeroInt(),
		Weight:    sdkmath.ZeroInt(),
	}
}
