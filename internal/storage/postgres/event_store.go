package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"weighted-oracle/internal/domain"
	"weighted-oracle/internal/storage"
)

// EventStore implements storage.EventStore using PostgreSQL.
type EventStore struct {
	pool *Pool
}

// NewEventStore creates a new EventStore.
func NewEventStore(pool *Pool) *EventStore {
	return &EventStore{pool: pool}
}

var _ storage.EventStore = (*EventStore)(nil)

const selectEvents = `
	SELECT oracle, sequence, event_id, type, timestamp, account, target, kind,
		amount::text, value::text, aggregate::text, weight::text, flag
	FROM oracle_events
`

// InsertBulk adds multiple events atomically. Fails entire batch on any duplicate.
func (s *EventStore) InsertBulk(ctx context.Context, events []*domain.Event) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO oracle_events (
			oracle, sequence, event_id, type, timestamp, account, target, kind,
			amount, value, aggregate, weight, flag
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9::numeric, $10::numeric, $11::numeric, $12::numeric, $13)
	`

	for _, e := range events {
		_, err := tx.Exec(ctx, query,
			string(e.Oracle),
			int64(e.Sequence),
			e.ID,
			string(e.Type),
			int64(e.Timestamp),
			string(e.Account),
			string(e.Target),
			string(e.Kind),
			numericArg(e.Amount),
			numericArg(e.Value),
			numericArg(e.Aggregate),
			numericArg(e.Weight),
			e.Flag,
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert event in bulk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// GetByOracle retrieves all events of an oracle, ordered by sequence ASC.
func (s *EventStore) GetByOracle(ctx context.Context, oracle domain.Address) ([]*domain.Event, error) {
	rows, err := s.pool.Query(ctx, selectEvents+`
		WHERE oracle = $1
		ORDER BY sequence ASC
	`, string(oracle))
	if err != nil {
		return nil, fmt.Errorf("get events by oracle: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// GetBySequenceRange retrieves events of an oracle with sequence in [from, to] (inclusive).
func (s *EventStore) GetBySequenceRange(ctx context.Context, oracle domain.Address, from, to uint64) ([]*domain.Event, error) {
	rows, err := s.pool.Query(ctx, selectEvents+`
		WHERE oracle = $1 AND sequence >= $2 AND sequence <= $3
		ORDER BY sequence ASC
	`, string(oracle), int64(from), int64(to))
	if err != nil {
		return nil, fmt.Errorf("get events by sequence range: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// DeleteAfter removes events of an oracle with sequence > after.
func (s *EventStore) DeleteAfter(ctx context.Context, oracle domain.Address, after uint64) error {
	_, err := s.pool.Exec(ctx, `
		DELETE FROM oracle_events WHERE oracle = $1 AND sequence > $2
	`, string(oracle), int64(after))
	if err != nil {
		return fmt.Errorf("delete events: %w", err)
	}
	return nil
}

func scanEvents(rows pgx.Rows) ([]*domain.Event, error) {
	var events []*domain.Event

	for rows.Next() {
		var (
			oracle, id, typ, account, target, kind string
			sequence, timestamp                    int64
			amount, value, aggregate, weight       string
			e                                      domain.Event
		)
		err := rows.Scan(
			&oracle, &sequence, &id, &typ, &timestamp, &account, &target, &kind,
			&amount, &value, &aggregate, &weight, &e.Flag,
		)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}

		e.Oracle = domain.Address(oracle)
		e.Sequence = uint64(sequence)
		e.ID = id
		e.Type = domain.EventType(typ)
		e.Timestamp = uint64(timestamp)
		e.Account = domain.Address(account)
		e.Target = domain.Address(target)
		e.Kind = domain.BallotKind(kind)
		if e.Amount, err = parseNumeric("amount", amount); err != nil {
			return nil, err
		}
		if e.Value, err = parseNumeric("value", value); err != nil {
			return nil, err
		}
		if e.Aggregate, err = parseNumeric("aggregate", aggregate); err != nil {
			return nil, err
		}
		if e.Weight, err = parseNumeric("weight", weight); err != nil {
			return nil, err
		}
		events = append(events, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}
