package clickhouse

import (
	"context"
	"fmt"
	"math/big"

	"weighted-oracle/internal/domain"
	"weighted-oracle/internal/storage"
)

// PriceHistoryStore implements storage.PriceHistoryStore using ClickHouse.
type PriceHistoryStore struct {
	conn *Conn
}

// NewPriceHistoryStore creates a new PriceHistoryStore.
func NewPriceHistoryStore(conn *Conn) *PriceHistoryStore {
	return &PriceHistoryStore{conn: conn}
}

var _ storage.PriceHistoryStore = (*PriceHistoryStore)(nil)

const selectPriceHistory = `
	SELECT oracle, idx, timestamp, submitter, value, aggregated_price, weight, final
	FROM price_history
`

// InsertBulk adds multiple points. Fails entire batch on duplicate (oracle, index).
// MergeTree does not enforce keys, so duplicates are checked before the insert.
func (s *PriceHistoryStore) InsertBulk(ctx context.Context, points []*domain.PricePoint) error {
	if len(points) == 0 {
		return nil
	}

	type key struct {
		oracle domain.Address
		index  uint64
	}
	seen := make(map[key]struct{}, len(points))
	for _, p := range points {
		k := key{p.Oracle, p.Index}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
	}

	for _, p := range points {
		exists, err := s.exists(ctx, p.Oracle, p.Index)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO price_history (
			oracle, idx, timestamp, submitter, value, aggregated_price, weight, final
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, p := range points {
		err = batch.Append(
			string(p.Oracle), p.Index, p.Timestamp, string(p.Submitter),
			toBig(p.Value), toBig(p.AggregatedPrice), toBig(p.Weight), p.Final,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetByOracle retrieves all points of an oracle, ordered by index ASC.
func (s *PriceHistoryStore) GetByOracle(ctx context.Context, oracle domain.Address) ([]*domain.PricePoint, error) {
	rows, err := s.conn.Query(ctx, selectPriceHistory+`
		WHERE oracle = ?
		ORDER BY idx ASC
	`, string(oracle))
	if err != nil {
		return nil, fmt.Errorf("query by oracle: %w", err)
	}
	defer rows.Close()

	return scanPricePoints(rows)
}

// GetByTimeRange retrieves points of an oracle within [start, end] (inclusive).
func (s *PriceHistoryStore) GetByTimeRange(ctx context.Context, oracle domain.Address, start, end uint64) ([]*domain.PricePoint, error) {
	rows, err := s.conn.Query(ctx, selectPriceHistory+`
		WHERE oracle = ? AND timestamp >= ? AND timestamp <= ?
		ORDER BY idx ASC
	`, string(oracle), start, end)
	if err != nil {
		return nil, fmt.Errorf("query by time range: %w", err)
	}
	defer rows.Close()

	return scanPricePoints(rows)
}

// DeleteFrom removes points of an oracle with index >= from. The hourly
// rollup keeps the rows it already aggregated.
func (s *PriceHistoryStore) DeleteFrom(ctx context.Context, oracle domain.Address, from uint64) error {
	err := s.conn.Exec(ctx, `
		DELETE FROM price_history WHERE oracle = ? AND idx >= ?
	`, string(oracle), from)
	if err != nil {
		return fmt.Errorf("delete price history: %w", err)
	}
	return nil
}

// HourlyBucket is one row of the price_history_hourly rollup.
type HourlyBucket struct {
	Hour             uint64
	Submissions      uint64
	FinalSubmissions uint64
	CloseAggregate   *big.Int
	MinValue         *big.Int
	MaxValue         *big.Int
}

// GetHourly returns the hourly rollup of an oracle, ordered by hour ASC.
func (s *PriceHistoryStore) GetHourly(ctx context.Context, oracle domain.Address) ([]HourlyBucket, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT hour, submissions, final_submissions, close_aggregate, min_value, max_value
		FROM price_history_hourly
		WHERE oracle = ?
		ORDER BY hour ASC
	`, string(oracle))
	if err != nil {
		return nil, fmt.Errorf("query hourly rollup: %w", err)
	}
	defer rows.Close()

	var buckets []HourlyBucket
	for rows.Next() {
		b := HourlyBucket{
			CloseAggregate: new(big.Int),
			MinValue:       new(big.Int),
			MaxValue:       new(big.Int),
		}
		if err := rows.Scan(&b.Hour, &b.Submissions, &b.FinalSubmissions,
			b.CloseAggregate, b.MinValue, b.MaxValue); err != nil {
			return nil, fmt.Errorf("scan hourly row: %w", err)
		}
		buckets = append(buckets, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate hourly rows: %w", err)
	}
	return buckets, nil
}

func (s *PriceHistoryStore) exists(ctx context.Context, oracle domain.Address, index uint64) (bool, error) {
	var count uint64
	err := s.conn.QueryRow(ctx, `
		SELECT count(*) FROM price_history
		WHERE oracle = ? AND idx = ?
	`, string(oracle), index).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func scanPricePoints(rows chRows) ([]*domain.PricePoint, error) {
	var points []*domain.PricePoint

	for rows.Next() {
		var (
			p                         domain.PricePoint
			oracle, submitter         string
			value, aggregated, weight = new(big.Int), new(big.Int), new(big.Int)
		)
		err := rows.Scan(
			&oracle, &p.Index, &p.Timestamp, &submitter,
			value, aggregated, weight, &p.Final,
		)
		if err != nil {
			return nil, fmt.Errorf("scan price history row: %w", err)
		}

		p.Oracle = domain.Address(oracle)
		p.Submitter = domain.Address(submitter)
		p.Value = fromBig(value)
		p.AggregatedPrice = fromBig(aggregated)
		p.Weight = fromBig(weight)
		points = append(points, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate price history rows: %w", err)
	}
	return points, nil
}
