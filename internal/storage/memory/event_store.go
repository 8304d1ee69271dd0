package memory

import (
	"context"
	"sort"
	"sync"

	"weighted-oracle/internal/domain"
	"weighted-oracle/internal/storage"
)

type eventKey struct {
	oracle   domain.Address
	sequence uint64
}

// EventStore is an in-memory implementation of storage.EventStore.
type EventStore struct {
	mu   sync.RWMutex
	data map[eventKey]*domain.Event
}

// NewEventStore creates a new in-memory event store.
func NewEventStore() *EventStore {
	return &EventStore{
		data: make(map[eventKey]*domain.Event),
	}
}

// InsertBulk adds multiple events atomically. Fails entire batch on any duplicate.
func (s *EventStore) InsertBulk(_ context.Context, events []*domain.Event) error {
	if len(events) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Track keys in this batch to detect intra-batch duplicates
	batchKeys := make(map[eventKey]struct{}, len(events))

	for _, e := range events {
		if e == nil || e.Oracle == "" || e.Sequence == 0 {
			return storage.ErrInvalidInput
		}
		key := eventKey{e.Oracle, e.Sequence}
		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	for _, e := range events {
		eventCopy := *e
		s.data[eventKey{e.Oracle, e.Sequence}] = &eventCopy
	}

	return nil
}

// GetByOracle retrieves all events of an oracle, ordered by sequence ASC.
func (s *EventStore) GetByOracle(_ context.Context, oracle domain.Address) ([]*domain.Event, error) {
	return s.filter(oracle, func(*domain.Event) bool { return true }), nil
}

// GetBySequenceRange retrieves events with sequence in [from, to] (inclusive).
func (s *EventStore) GetBySequenceRange(_ context.Context, oracle domain.Address, from, to uint64) ([]*domain.Event, error) {
	return s.filter(oracle, func(e *domain.Event) bool {
		return e.Sequence >= from && e.Sequence <= to
	}), nil
}

// DeleteAfter removes events of an oracle with sequence > after.
func (s *EventStore) DeleteAfter(_ context.Context, oracle domain.Address, after uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key := range s.data {
		if key.oracle == oracle && key.sequence > after {
			delete(s.data, key)
		}
	}
	return nil
}

func (s *EventStore) filter(oracle domain.Address, keep func(*domain.Event) bool) []*domain.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Event
	for key, e := range s.data {
		if key.oracle == oracle && keep(e) {
			eventCopy := *e
			result = append(result, &eventCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Sequence < result[j].Sequence
	})

	return result
}

var _ storage.EventStore = (*EventStore)(nil)
