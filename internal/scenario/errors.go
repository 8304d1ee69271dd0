package scenario

import (
	"weighted-oracle/internal/oracle"
)

// AnyError matches every failure.
const AnyError = "any"

// ErrorNames maps the error names a step may expect to engine errors.
var ErrorNames = map[string]error{
	AnyError:                nil,
	"unauthorized":          oracle.ErrUnauthorized,
	"invalid_owner":         oracle.ErrInvalidOwner,
	"reentrant_call":        oracle.ErrReentrantCall,
	"invalid_amount":        oracle.ErrInvalidAmount,
	"invalid_address":       oracle.ErrInvalidAddress,
	"insufficient_unlocked": oracle.ErrInsufficientUnlocked,
	"withdrawal_locked":     oracle.ErrWithdrawalLocked,
	"blacklisted":           oracle.ErrBlacklisted,
	"zero_weight":           oracle.ErrZeroWeight,
	"already_voted":         oracle.ErrAlreadyVoted,
	"paused":                oracle.ErrPaused,
	"not_paused":            oracle.ErrNotPaused,
	"no_value":              oracle.ErrNoValue,
	"transfer_failed":       oracle.ErrTokenTransferFailed,
}
