package api

import (
	sdkmath "cosmossdk.io/math"

	"weighted-oracle/internal/domain"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code      uint32 `json:"code"`
	Codespace string `json:"codespace"`
	Error     string `json:"error"`
}

// OKResponse acknowledges a state change.
type OKResponse struct {
	OK bool `json:"ok"`
}

// StatusResponse describes the running server.
type StatusResponse struct {
	Factory       domain.Address `json:"factory"`
	Oracles       int            `json:"oracles"`
	Tokens        int            `json:"tokens"`
	WSClients     int            `json:"wsClients"`
	UptimeSeconds int64          `json:"uptimeSeconds"`
}

// OracleView is the public state of one oracle.
type OracleView struct {
	Info           domain.OracleInfo     `json:"info"`
	Owner          domain.Address        `json:"owner"`
	Paused         bool                  `json:"paused"`
	Consensus      domain.ConsensusState `json:"consensus"`
	TotalDeposited sdkmath.Int           `json:"totalDeposited"`
	Balance        sdkmath.Int           `json:"balance"`
	HistoryLength  uint64                `json:"historyLength"`
}

// CreateOracleRequest creates an oracle owned by the signer unless Config.Owner is set.
type CreateOracleRequest struct {
	Config domain.OracleConfig `json:"config"`
}

// AmountRequest is the body of deposit, withdraw and fund.
type AmountRequest struct {
	Amount sdkmath.Int `json:"amount"`
}

// SubmitRequest is the body of submit.
type SubmitRequest struct {
	Value sdkmath.Int `json:"value"`
}

// VoteRequest is the body of voteBlacklist and voteWhitelist.
type VoteRequest struct {
	Target domain.Address `json:"target"`
}

// TransferOwnershipRequest is the body of transferOwnership.
type TransferOwnershipRequest struct {
	NewOwner domain.Address `json:"newOwner"`
}

// ReadResponse carries the value returned by read and readLatest.
type ReadResponse struct {
	Value sdkmath.Int `json:"value"`
}

// ParticipantView is the stake and submission state of one account.
type ParticipantView struct {
	Participant domain.Participant   `json:"participant"`
	Weight      sdkmath.Int          `json:"weight"`
	UnlockTime  uint64               `json:"unlockTime"`
	Submitter   domain.SubmitterInfo `json:"submitter"`
	Blacklisted bool                 `json:"blacklisted"`
}

// VoterView lists the ballots one voter took part in.
type VoterView struct {
	Voter            domain.Address   `json:"voter"`
	BlacklistWeight  sdkmath.Int      `json:"blacklistWeight"`
	WhitelistWeight  sdkmath.Int      `json:"whitelistWeight"`
	BlacklistTargets []domain.Address `json:"blacklistTargets"`
	WhitelistTargets []domain.Address `json:"whitelistTargets"`
}

// VotesView is the governance state of one target.
type VotesView struct {
	Target         domain.Address `json:"target"`
	Blacklisted    bool           `json:"blacklisted"`
	BlacklistVotes sdkmath.Int    `json:"blacklistVotes"`
	WhitelistVotes sdkmath.Int    `json:"whitelistVotes"`
	Voter          *VoterView     `json:"voter,omitempty"` // set when ?voter= is given
}

// TokenView describes one hosted token ledger.
type TokenView struct {
	Address     domain.Address `json:"address"`
	Symbol      string         `json:"symbol"`
	TotalSupply sdkmath.Int    `json:"totalSupply"`
}

// ApproveRequest sets the signer's allowance for spender.
type ApproveRequest struct {
	Spender domain.Address `json:"spender"`
	Amount  sdkmath.Int    `json:"amount"`
}

// BalanceResponse is the balance of one account on one token.
type BalanceResponse struct {
	Token   domain.Address `json:"token"`
	Symbol  string         `json:"symbol"`
	Owner   domain.Address `json:"owner"`
	Balance sdkmath.Int    `json:"balance"`
}

// WebSocket actions sent by clients.
const (
	ActionSubscribe   = "subscribe"
	ActionUnsubscribe = "unsubscribe"
)

// WebSocket message types sent by the server.
const (
	MessageSubscribed   = "subscribed"
	MessageUnsubscribed = "unsubscribed"
	MessageEvent        = "event"
	MessageError        = "error"
)

// AllOracles subscribes to the events of every oracle.
const AllOracles = "*"

// WSRequest is a client to server WebSocket message.
type WSRequest struct {
	Action string `json:"action"`
	Oracle string `json:"oracle"`
}

// WSMessage is a server to client WebSocket message.
type WSMessage struct {
	Type   string        `json:"type"`
	Oracle string        `json:"oracle,omitempty"`
	Event  *domain.Event `json:"event,omitempty"`
	Error  string        `json:"error,omitempty"`
}
