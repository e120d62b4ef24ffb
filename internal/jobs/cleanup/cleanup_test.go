package cleanup

import (
	"context"
	"net/netip"
	"testing"
	"time"

	"github.com/hungfnt/torrust-tracker/internal/domain"
	"github.com/hungfnt/torrust-tracker/internal/repo/memory"
	statsvc "github.com/hungfnt/torrust-tracker/internal/services/stats"
)

func TestRunExpiresPeersOlderThanTimeout(t *testing.T) {
	now := time.Date(2026, time.June, 1, 12, 0, 0, 0, time.UTC)

	swarms := memory.NewSwarmRepo()
	events := statsvc.NewService()

	var hash domain.InfoHash
	hash[0] = 0xAA

	stale := testPeer(1)
	stale.LastSeen = now.Add(-2 * time.Hour)
	fresh := testPeer(2)
	fresh.LastSeen = now.Add(-10 * time.Minute)
	swarms.Put(hash, stale)
	swarms.Put(hash, fresh)

	job := New(swarms, events, 45*time.Minute, nil)
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run cleanup job: %v", err)
	}

	if swarms.Len() != 1 {
		t.Fatalf("expected one peer left, got %d", swarms.Len())
	}
	if events.Snapshot().ExpiredPeers != 1 {
		t.Fatalf("expected one expired peer counted")
	}
}

func TestRunFlushesStatsWhenAttached(t *testing.T) {
	swarms := memory.NewSwarmRepo()

	var hash domain.InfoHash
	hash[0] = 0xBB
	peer := testPeer(1)
	peer.Left = 0
	peer.LastSeen = time.Now()
	swarms.Put(hash, peer)

	flusher := &fakeFlusher{snapshots: make(map[domain.InfoHash]domain.SwarmStats)}
	job := New(swarms, nil, time.Hour, nil)
	job.AttachStatsFlush(flusher)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run cleanup job: %v", err)
	}

	snap, ok := flusher.snapshots[hash]
	if !ok {
		t.Fatalf("expected stats flushed for swarm")
	}
	if snap.Seeders != 1 || snap.Leechers != 0 {
		t.Fatalf("unexpected flushed stats: %+v", snap)
	}
}

type fakeFlusher struct {
	snapshots map[domain.InfoHash]domain.SwarmStats
}

func (f *fakeFlusher) UpsertStats(_ context.Context, hash domain.InfoHash, stats domain.SwarmStats) error {
	f.snapshots[hash] = stats
	return nil
}

func testPeer(b byte) domain.Peer {
	var id domain.PeerID
	id[0] = b
	return domain.Peer{
		ID:   id,
		Addr: netip.AddrPortFrom(netip.AddrFrom4([4]byte{10, 0, 0, b}), 6880+uint16(b)),
		Left: 100,
	}
}
