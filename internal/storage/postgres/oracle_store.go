package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"weighted-oracle/internal/domain"
	"weighted-oracle/internal/storage"
)

// OracleStore implements storage.OracleStore using PostgreSQL.
type OracleStore struct {
	pool *Pool
}

// NewOracleStore creates a new OracleStore.
func NewOracleStore(pool *Pool) *OracleStore {
	return &OracleStore{pool: pool}
}

var _ storage.OracleStore = (*OracleStore)(nil)

// Insert adds a registry entry. Returns ErrDuplicateKey if the address or index exists.
func (s *OracleStore) Insert(ctx context.Context, info *domain.OracleInfo) error {
	cfg, err := json.Marshal(info.Config)
	if err != nil {
		return fmt.Errorf("marshal oracle config: %w", err)
	}

	query := `
		INSERT INTO oracles (address, token, creator, idx, config, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err = s.pool.Exec(ctx, query,
		string(info.Oracle),
		string(info.Token),
		string(info.Creator),
		int64(info.Index),
		cfg,
		int64(info.CreatedAt),
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert oracle: %w", err)
	}
	return nil
}

// GetByAddress retrieves an entry by oracle address. Returns ErrNotFound if not exists.
func (s *OracleStore) GetByAddress(ctx context.Context, oracle domain.Address) (*domain.OracleInfo, error) {
	query := `
		SELECT address, token, creator, idx, config, created_at
		FROM oracles
		WHERE address = $1
	`

	rows, err := s.pool.Query(ctx, query, string(oracle))
	if err != nil {
		return nil, fmt.Errorf("get oracle: %w", err)
	}
	defer rows.Close()

	infos, err := scanOracles(rows)
	if err != nil {
		return nil, err
	}
	if len(infos) == 0 {
		return nil, storage.ErrNotFound
	}
	return infos[0], nil
}

// GetAll retrieves all entries, ordered by creation index ASC.
func (s *OracleStore) GetAll(ctx context.Context) ([]*domain.OracleInfo, error) {
	query := `
		SELECT address, token, creator, idx, config, created_at
		FROM oracles
		ORDER BY idx ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get all oracles: %w", err)
	}
	defer rows.Close()

	return scanOracles(rows)
}

func scanOracles(rows pgx.Rows) ([]*domain.OracleInfo, error) {
	var infos []*domain.OracleInfo

	for rows.Next() {
		var (
			address, token, creator string
			idx, createdAt          int64
			cfg                     []byte
		)
		if err := rows.Scan(&address, &token, &creator, &idx, &cfg, &createdAt); err != nil {
			return nil, fmt.Errorf("scan oracle: %w", err)
		}

		info := &domain.OracleInfo{
			Oracle:    domain.Address(address),
			Token:     domain.Address(token),
			Creator:   domain.Address(creator),
			Index:     uint64(idx),
			CreatedAt: uint64(createdAt),
		}
		if err := json.Unmarshal(cfg, &info.Config); err != nil {
			return nil, fmt.Errorf("unmarshal config of %s: %w", address, err)
		}
		infos = append(infos, info)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate oracles: %w", err)
	}
	return infos, nil
}
