// Package scrape serves per-torrent swarm summaries.
package scrape

import (
	"context"
	"errors"
	"fmt"

	"github.com/hungfnt/torrust-tracker/internal/domain"
)

// MaxHashesPerRequest caps one scrape. The UDP protocol fits at most 74
// infohashes in a packet; the same cap applies to the HTTP API.
const MaxHashesPerRequest = 74

var ErrTooManyHashes = errors.New("too many infohashes in one scrape")

type SwarmStats interface {
	Stats(hash domain.InfoHash) domain.SwarmStats
}

type CompletedStore interface {
	CompletedCount(ctx context.Context, hash domain.InfoHash) (int32, error)
}

type Service struct {
	swarms    SwarmStats
	completed CompletedStore
}

func NewService(swarms SwarmStats, completed CompletedStore) *Service {
	return &Service{
		swarms:    swarms,
		completed: completed,
	}
}

// Scrape returns stats for each requested hash, in request order. A
// torrent nobody announced reports all zeroes rather than an error.
func (s *Service) Scrape(ctx context.Context, hashes []domain.InfoHash) ([]domain.SwarmStats, error) {
	if s.swarms == nil {
		return nil, fmt.Errorf("swarm store is nil")
	}
	if len(hashes) > MaxHashesPerRequest {
		return nil, fmt.Errorf("%w: %d > %d", ErrTooManyHashes, len(hashes), MaxHashesPerRequest)
	}

	results := make([]domain.SwarmStats, 0, len(hashes))
	for _, hash := range hashes {
		stats := s.swarms.Stats(hash)
		if s.completed != nil {
			completed, err := s.completed.CompletedCount(ctx, hash)
			if err != nil {
				return nil, fmt.Errorf("read completed count: %w", err)
			}
			stats.Completed = completed
		}
		results = append(results, stats)
	}

	return results, nil
}
