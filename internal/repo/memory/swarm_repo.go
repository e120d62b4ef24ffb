// Package memory holds the process-local swarm store. It is the hot
// path of the tracker: one announce touches one swarm under a single
// lock.
package memory

import (
	"sync"
	"time"

	"github.com/hungfnt/torrust-tracker/internal/domain"
)

type SwarmRepo struct {
	mu     sync.RWMutex
	swarms map[domain.InfoHash]map[string]domain.Peer
}

func NewSwarmRepo() *SwarmRepo {
	return &SwarmRepo{
		swarms: make(map[domain.InfoHash]map[string]domain.Peer),
	}
}

// Put inserts or refreshes a peer in the swarm for hash.
func (r *SwarmRepo) Put(hash domain.InfoHash, peer domain.Peer) {
	r.mu.Lock()
	defer r.mu.Unlock()

	swarm, ok := r.swarms[hash]
	if !ok {
		swarm = make(map[string]domain.Peer)
		r.swarms[hash] = swarm
	}
	swarm[peer.Key()] = peer
}

// Drop removes a peer from the swarm for hash, deleting the swarm when
// it becomes empty.
func (r *SwarmRepo) Drop(hash domain.InfoHash, key string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	swarm, ok := r.swarms[hash]
	if !ok {
		return
	}
	delete(swarm, key)
	if len(swarm) == 0 {
		delete(r.swarms, hash)
	}
}

// Peers returns up to limit peers from the swarm for hash, never
// including the peer identified by excludeKey.
func (r *SwarmRepo) Peers(hash domain.InfoHash, limit int, excludeKey string) []domain.Peer {
	r.mu.RLock()
	defer r.mu.RUnlock()

	swarm := r.swarms[hash]
	if len(swarm) == 0 || limit <= 0 {
		return nil
	}

	peers := make([]domain.Peer, 0, limit)
	for key, peer := range swarm {
		if key == excludeKey {
			continue
		}
		peers = append(peers, peer)
		if len(peers) == limit {
			break
		}
	}
	return peers
}

// Stats counts seeders and leechers in the swarm for hash. Completed is
// tracked elsewhere and left zero here.
func (r *SwarmRepo) Stats(hash domain.InfoHash) domain.SwarmStats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var stats domain.SwarmStats
	for _, peer := range r.swarms[hash] {
		if peer.Seeding() {
			stats.Seeders++
		} else {
			stats.Leechers++
		}
	}
	return stats
}

// Hashes returns the infohashes of all known swarms.
func (r *SwarmRepo) Hashes() []domain.InfoHash {
	r.mu.RLock()
	defer r.mu.RUnlock()

	hashes := make([]domain.InfoHash, 0, len(r.swarms))
	for hash := range r.swarms {
		hashes = append(hashes, hash)
	}
	return hashes
}

// ExpireBefore drops every peer whose LastSeen is before cutoff and
// returns the number of peers removed.
func (r *SwarmRepo) ExpireBefore(cutoff time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	var removed int
	for hash, swarm := range r.swarms {
		for key, peer := range swarm {
			if peer.LastSeen.Before(cutoff) {
				delete(swarm, key)
				removed++
			}
		}
		if len(swarm) == 0 {
			delete(r.swarms, hash)
		}
	}
	return removed
}

// Len reports the total number of peers across all swarms.
func (r *SwarmRepo) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var n int
	for _, swarm := range r.swarms {
		n += len(swarm)
	}
	return n
}
