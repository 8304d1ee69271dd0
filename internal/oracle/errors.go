package oracle

import (
	"errors"

	errorsmod "cosmossdk.io/errors"
)

// Codespace is the error codespace of the oracle engine.
const Codespace = "oracle"

// Authorization errors
var (
	ErrUnauthorized = errorsmod.Register(Codespace, 2, "OwnableUnauthorizedAccount")
	ErrInvalidOwner = errorsmod.Register(Codespace, 3, "OwnableInvalidOwner")
)

// Reentrancy errors
var (
	ErrReentrantCall = errorsmod.Register(Codespace, 4, "ReentrancyGuardReentrantCall")
)

// Input errors
var (
	ErrInvalidAmount  = errorsmod.Register(Codespace, 5, "invalid amount")
	ErrInvalidRange   = errorsmod.Register(Codespace, 6, "invalid history range")
	ErrInvalidConfig  = errorsmod.Register(Codespace, 7, "invalid oracle config")
	ErrInvalidAddress = errorsmod.Register(Codespace, 8, "invalid address")
	ErrInvalidBallot  = errorsmod.Register(Codespace, 9, "invalid ballot kind")
)

// State precondition errors
var (
	ErrInsufficientUnlocked = errorsmod.Register(Codespace, 10, "insufficient unlocked tokens")
	ErrWithdrawalLocked     = errorsmod.Register(Codespace, 12, "withdrawal locking period not elapsed")
	ErrBlacklisted          = errorsmod.Register(Codespace, 14, "account is blacklisted")
	ErrZeroWeight           = errorsmod.Register(Codespace, 15, "account has no weight")
	ErrAlreadyVoted         = errorsmod.Register(Codespace, 16, "already voted")
	ErrPaused               = errorsmod.Register(Codespace, 17, "oracle is paused")
	ErrNotPaused            = errorsmod.Register(Codespace, 18, "oracle is not paused")
	ErrNoValue              = errorsmod.Register(Codespace, 19, "no value submitted yet")
)

// External dependency errors
var (
	ErrTokenTransferFailed = errorsmod.Register(Codespace, 30, "token transfer failed")
)

// IsAuthorizationError reports whether err is an ownership failure.
func IsAuthorizationError(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

// IsInputError reports whether err was caused by malformed arguments.
func IsInputError(err error) bool {
	return errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrInvalidRange) ||
		errors.Is(err, ErrInvalidConfig) ||
		errors.Is(err, ErrInvalidAddress) ||
		errors.Is(err, ErrInvalidBallot) ||
		errors.Is(err, ErrInvalidOwner)
}

// IsExternalError reports whether err came from a token ledger.
func IsExternalError(err error) bool {
	return errors.Is(err, ErrTokenTransferFailed)
}
