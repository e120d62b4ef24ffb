package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hungfnt/torrust-tracker/internal/domain"
)

type TorrentRepo struct {
	pool *pgxpool.Pool
}

func NewTorrentRepo(pool *pgxpool.Pool) *TorrentRepo {
	return &TorrentRepo{pool: pool}
}

type TorrentStatsRecord struct {
	InfoHash  domain.InfoHash
	Seeders   int32
	Leechers  int32
	Completed int32
}

// IncrementCompleted bumps the persistent download counter for hash and
// returns the new value.
func (r *TorrentRepo) IncrementCompleted(ctx context.Context, hash domain.InfoHash) (int32, error) {
	if r.pool == nil {
		return 0, fmt.Errorf("postgres pool is nil")
	}

	var completed int32
	err := r.pool.QueryRow(ctx, `
INSERT INTO torrents (info_hash, completed)
VALUES ($1, 1)
ON CONFLICT (info_hash)
DO UPDATE SET completed = torrents.completed + 1
RETURNING completed
`, hash.String()).Scan(&completed)
	if err != nil {
		return 0, fmt.Errorf("increment completed counter: %w", err)
	}

	return completed, nil
}

// CompletedCount reads the persistent download counter for hash. A
// torrent never announced completed reports zero.
func (r *TorrentRepo) CompletedCount(ctx context.Context, hash domain.InfoHash) (int32, error) {
	if r.pool == nil {
		return 0, fmt.Errorf("postgres pool is nil")
	}

	var completed int32
	err := r.pool.QueryRow(ctx, `
SELECT completed
FROM torrents
WHERE info_hash = $1
LIMIT 1
`, hash.String()).Scan(&completed)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("get completed counter: %w", err)
	}

	return completed, nil
}

// UpsertStats snapshots live swarm counts for hash, preserving the
// completed counter already stored.
func (r *TorrentRepo) UpsertStats(ctx context.Context, hash domain.InfoHash, stats domain.SwarmStats) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}

	_, err := r.pool.Exec(ctx, `
INSERT INTO torrents (info_hash, seeders, leechers, completed)
VALUES ($1, $2, $3, 0)
ON CONFLICT (info_hash)
DO UPDATE SET seeders = $2, leechers = $3
`, hash.String(), stats.Seeders, stats.Leechers)
	if err != nil {
		return fmt.Errorf("upsert torrent stats: %w", err)
	}

	return nil
}

// ListStats returns the stored per-torrent stats ordered by infohash.
func (r *TorrentRepo) ListStats(ctx context.Context, limit int) ([]TorrentStatsRecord, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}
	if limit <= 0 {
		limit = 100
	}

	rows, err := r.pool.Query(ctx, `
SELECT info_hash, seeders, leechers, completed
FROM torrents
ORDER BY info_hash
LIMIT $1
`, limit)
	if err != nil {
		return nil, fmt.Errorf("list torrent stats: %w", err)
	}
	defer rows.Close()

	var records []TorrentStatsRecord
	for rows.Next() {
		var (
			rec     TorrentStatsRecord
			hashHex string
		)
		if err := rows.Scan(&hashHex, &rec.Seeders, &rec.Leechers, &rec.Completed); err != nil {
			return nil, fmt.Errorf("scan torrent stats row: %w", err)
		}
		hash, err := domain.InfoHashFromHex(hashHex)
		if err != nil {
			return nil, fmt.Errorf("stored infohash is invalid: %w", err)
		}
		rec.InfoHash = hash
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate torrent stats rows: %w", err)
	}

	return records, nil
}
