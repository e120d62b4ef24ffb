package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hungfnt/torrust-tracker/internal/domain"
)

type WhitelistRepo struct {
	pool *pgxpool.Pool
}

func NewWhitelistRepo(pool *pgxpool.Pool) *WhitelistRepo {
	return &WhitelistRepo{pool: pool}
}

func (r *WhitelistRepo) Add(ctx context.Context, hash domain.InfoHash) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}

	_, err := r.pool.Exec(ctx, `
INSERT INTO whitelist (info_hash)
VALUES ($1)
ON CONFLICT (info_hash) DO NOTHING
`, hash.String())
	if err != nil {
		return fmt.Errorf("add infohash to whitelist: %w", err)
	}

	return nil
}

func (r *WhitelistRepo) Remove(ctx context.Context, hash domain.InfoHash) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}

	_, err := r.pool.Exec(ctx, `
DELETE FROM whitelist
WHERE info_hash = $1
`, hash.String())
	if err != nil {
		return fmt.Errorf("remove infohash from whitelist: %w", err)
	}

	return nil
}

func (r *WhitelistRepo) Contains(ctx context.Context, hash domain.InfoHash) (bool, error) {
	if r.pool == nil {
		return false, fmt.Errorf("postgres pool is nil")
	}

	var one int
	err := r.pool.QueryRow(ctx, `
SELECT 1
FROM whitelist
WHERE info_hash = $1
LIMIT 1
`, hash.String()).Scan(&one)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check whitelist membership: %w", err)
	}

	return true, nil
}

func (r *WhitelistRepo) List(ctx context.Context) ([]domain.InfoHash, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}

	rows, err := r.pool.Query(ctx, `
SELECT info_hash
FROM whitelist
ORDER BY info_hash
`)
	if err != nil {
		return nil, fmt.Errorf("list whitelist: %w", err)
	}
	defer rows.Close()

	var hashes []domain.InfoHash
	for rows.Next() {
		var hashHex string
		if err := rows.Scan(&hashHex); err != nil {
			return nil, fmt.Errorf("scan whitelist row: %w", err)
		}
		hash, err := domain.InfoHashFromHex(hashHex)
		if err != nil {
			return nil, fmt.Errorf("stored infohash is invalid: %w", err)
		}
		hashes = append(hashes, hash)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate whitelist rows: %w", err)
	}

	return hashes, nil
}
