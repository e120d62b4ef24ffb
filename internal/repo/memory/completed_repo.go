package memory

import (
	"context"
	"sync"

	"github.com/hungfnt/torrust-tracker/internal/domain"
)

// CompletedRepo counts finished downloads per torrent in memory. It is
// the fallback when the tracker runs without postgres; counts reset on
// restart.
type CompletedRepo struct {
	mu     sync.Mutex
	counts map[domain.InfoHash]int32
}

func NewCompletedRepo() *CompletedRepo {
	return &CompletedRepo{
		counts: make(map[domain.InfoHash]int32),
	}
}

func (r *CompletedRepo) IncrementCompleted(_ context.Context, hash domain.InfoHash) (int32, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.counts[hash]++
	return r.counts[hash], nil
}

func (r *CompletedRepo) CompletedCount(_ context.Context, hash domain.InfoHash) (int32, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.counts[hash], nil
}
