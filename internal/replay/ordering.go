package replay

import (
	"fmt"
	"sort"

	"weighted-oracle/internal/domain"
)

// SortEvents orders events by (oracle ASC, sequence ASC).
func SortEvents(events []*domain.Event) {
	sort.SliceStable(events, func(i, j int) bool {
		return compareEvents(events[i], events[j]) < 0
	})
}

// CheckSequence verifies that events of one oracle are ordered and contiguous,
// starting right after the sequence from.
func CheckSequence(oracle domain.Address, events []*domain.Event, from uint64) error {
	expected := from + 1
	for _, e := range events {
		if e.Oracle != oracle {
			return fmt.Errorf("%w: %s at sequence %d", ErrForeignEvent, e.Oracle, e.Sequence)
		}
		switch {
		case e.Sequence < expected:
			return fmt.Errorf("%w: sequence %d after %d", ErrInvalidOrdering, e.Sequence, expected-1)
		case e.Sequence > expected:
			return fmt.Errorf("%w: expected %d, got %d", ErrSequenceGap, expected, e.Sequence)
		}
		expected++
	}
	return nil
}

// compareEvents returns:
//   - negative if a < b
//   - zero if a == b
//   - positive if a > b
//
// Order: (oracle ASC, sequence ASC)
func compareEvents(a, b *domain.Event) int {
	if a.Oracle != b.Oracle {
		if a.Oracle < b.Oracle {
			return -1
		}
		return 1
	}
	if a.Sequence != b.Sequence {
		if a.Sequence < b.Sequence {
			return -1
		}
		return 1
	}
	return 0
}
