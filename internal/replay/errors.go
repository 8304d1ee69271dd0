package replay

import "errors"

// Replay errors
var (
	// ErrInvalidOrdering is returned when events are not in sequence order.
	ErrInvalidOrdering = errors.New("events are not in sequence order")

	// ErrSequenceGap is returned when the event log skips a sequence number.
	ErrSequenceGap = errors.New("event sequence has a gap")

	// ErrForeignEvent is returned when an event belongs to another oracle.
	ErrForeignEvent = errors.New("event belongs to another oracle")
)
