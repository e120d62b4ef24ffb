// Package cleanup reaps peers that stopped announcing without sending a
// stopped event, and optionally snapshots swarm stats to postgres.
package cleanup

import (
	"context"
	"fmt"
	"time"

	"github.com/hungfnt/torrust-tracker/internal/domain"
	"github.com/hungfnt/torrust-tracker/internal/logging"
)

type SwarmStore interface {
	ExpireBefore(cutoff time.Time) int
	Hashes() []domain.InfoHash
	Stats(hash domain.InfoHash) domain.SwarmStats
}

type EventSink interface {
	PeersExpired(n int)
}

type statsFlusher interface {
	UpsertStats(ctx context.Context, hash domain.InfoHash, stats domain.SwarmStats) error
}

type Job struct {
	swarms      SwarmStore
	events      EventSink
	flusher     statsFlusher
	peerTimeout time.Duration
	now         func() time.Time
	logger      *logging.Logger
}

func New(swarms SwarmStore, events EventSink, peerTimeout time.Duration, logger *logging.Logger) *Job {
	if peerTimeout <= 0 {
		peerTimeout = 45 * time.Minute
	}
	if logger == nil {
		logger = logging.Discard()
	}

	return &Job{
		swarms:      swarms,
		events:      events,
		peerTimeout: peerTimeout,
		now:         time.Now,
		logger:      logger,
	}
}

// AttachStatsFlush wires the postgres snapshot target. Without it the
// job only expires peers.
func (j *Job) AttachStatsFlush(flusher statsFlusher) {
	j.flusher = flusher
}

func (j *Job) Run(ctx context.Context) error {
	if j.swarms == nil {
		return nil
	}

	cutoff := j.now().Add(-j.peerTimeout)
	removed := j.swarms.ExpireBefore(cutoff)
	if removed > 0 {
		if j.events != nil {
			j.events.PeersExpired(removed)
		}
		j.logger.Infof("expired %d stale peers", removed)
	}

	if j.flusher == nil {
		return nil
	}

	for _, hash := range j.swarms.Hashes() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := j.flusher.UpsertStats(ctx, hash, j.swarms.Stats(hash)); err != nil {
			return fmt.Errorf("flush stats for %s: %w", hash, err)
		}
	}

	return nil
}
