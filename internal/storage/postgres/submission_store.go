package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"weighted-oracle/internal/domain"
	"weighted-oracle/internal/storage"
)

// SubmissionStore implements storage.SubmissionStore using PostgreSQL.
type SubmissionStore struct {
	pool *Pool
}

// NewSubmissionStore creates a new SubmissionStore.
func NewSubmissionStore(pool *Pool) *SubmissionStore {
	return &SubmissionStore{pool: pool}
}

var _ storage.SubmissionStore = (*SubmissionStore)(nil)

const selectSubmissions = `
	SELECT oracle, idx, submitter, timestamp,
		value::text, aggregated_price::text, weight::text, reward_paid::text, final
	FROM submissions
`

// Insert adds a submission. Returns ErrDuplicateKey if (oracle, index) exists.
func (s *SubmissionStore) Insert(ctx context.Context, sub *domain.SubmissionRecord) error {
	query := `
		INSERT INTO submissions (
			oracle, idx, submitter, timestamp, value, aggregated_price, weight, reward_paid, final
		) VALUES ($1, $2, $3, $4, $5::numeric, $6::numeric, $7::numeric, $8::numeric, $9)
	`

	_, err := s.pool.Exec(ctx, query,
		string(sub.Oracle),
		int64(sub.Index),
		string(sub.Submitter),
		int64(sub.Timestamp),
		numericArg(sub.Value),
		numericArg(sub.AggregatedPrice),
		numericArg(sub.Weight),
		numericArg(sub.RewardPaid),
		sub.Final,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert submission: %w", err)
	}
	return nil
}

// GetByIndex retrieves one submission. Returns ErrNotFound if not exists.
func (s *SubmissionStore) GetByIndex(ctx context.Context, oracle domain.Address, index uint64) (*domain.SubmissionRecord, error) {
	row := s.pool.QueryRow(ctx, selectSubmissions+`
		WHERE oracle = $1 AND idx = $2
	`, string(oracle), int64(index))

	sub, err := scanSubmission(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	return sub, nil
}

// GetByOracle retrieves all submissions of an oracle, ordered by index ASC.
func (s *SubmissionStore) GetByOracle(ctx context.Context, oracle domain.Address) ([]*domain.SubmissionRecord, error) {
	rows, err := s.pool.Query(ctx, selectSubmissions+`
		WHERE oracle = $1
		ORDER BY idx ASC
	`, string(oracle))
	if err != nil {
		return nil, fmt.Errorf("get submissions by oracle: %w", err)
	}
	defer rows.Close()

	return scanSubmissions(rows)
}

// GetByTimeRange retrieves submissions of an oracle within [start, end] (inclusive), ordered by index ASC.
func (s *SubmissionStore) GetByTimeRange(ctx context.Context, oracle domain.Address, start, end uint64) ([]*domain.SubmissionRecord, error) {
	rows, err := s.pool.Query(ctx, selectSubmissions+`
		WHERE oracle = $1 AND timestamp >= $2 AND timestamp <= $3
		ORDER BY idx ASC
	`, string(oracle), int64(start), int64(end))
	if err != nil {
		return nil, fmt.Errorf("get submissions by time range: %w", err)
	}
	defer rows.Close()

	return scanSubmissions(rows)
}

// DeleteFrom removes submissions of an oracle with index >= from.
func (s *SubmissionStore) DeleteFrom(ctx context.Context, oracle domain.Address, from uint64) error {
	_, err := s.pool.Exec(ctx, `
		DELETE FROM submissions WHERE oracle = $1 AND idx >= $2
	`, string(oracle), int64(from))
	if err != nil {
		return fmt.Errorf("delete submissions: %w", err)
	}
	return nil
}

func scanSubmissions(rows pgx.Rows) ([]*domain.SubmissionRecord, error) {
	var subs []*domain.SubmissionRecord
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate submissions: %w", err)
	}
	return subs, nil
}

func scanSubmission(row pgx.Row) (*domain.SubmissionRecord, error) {
	var (
		oracle, submitter                     string
		idx, timestamp                        int64
		value, aggregated, weight, rewardPaid string
		sub                                   domain.SubmissionRecord
	)
	err := row.Scan(&oracle, &idx, &submitter, &timestamp,
		&value, &aggregated, &weight, &rewardPaid, &sub.Final)
	if err != nil {
		if isNotFoundError(err) {
			return nil, err
		}
		return nil, fmt.Errorf("scan submission: %w", err)
	}

	sub.Oracle = domain.Address(oracle)
	sub.Index = uint64(idx)
	sub.Submitter = domain.Address(submitter)
	sub.Timestamp = uint64(timestamp)
	if sub.Value, err = parseNumeric("value", value); err != nil {
		return nil, err
	}
	if sub.AggregatedPrice, err = parseNumeric("aggregated_price", aggregated); err != nil {
		return nil, err
	}
	if sub.Weight, err = parseNumeric("weight", weight); err != nil {
		return nil, err
	}
	if sub.RewardPaid, err = parseNumeric("reward_paid", rewardPaid); err != nil {
		return nil, err
	}
	return &sub, nil
}
