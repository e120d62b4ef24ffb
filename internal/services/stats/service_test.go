package stats

import (
	"sync"
	"testing"
)

func TestSnapshotReflectsCounters(t *testing.T) {
	s := NewService()

	s.ConnectReceived()
	s.AnnounceReceived()
	s.AnnounceReceived()
	s.ScrapeReceived()
	s.ErrorSent()
	s.PeerStarted()
	s.PeerStopped()
	s.DownloadCompleted()
	s.PeersExpired(3)
	s.PeersExpired(0)
	s.RateLimited()

	snap := s.Snapshot()
	if snap.Connects != 1 || snap.Announces != 2 || snap.Scrapes != 1 || snap.Errors != 1 {
		t.Fatalf("unexpected packet counters: %+v", snap)
	}
	if snap.Started != 1 || snap.Stopped != 1 || snap.Completed != 1 {
		t.Fatalf("unexpected event counters: %+v", snap)
	}
	if snap.ExpiredPeers != 3 {
		t.Fatalf("unexpected expired peers: %d", snap.ExpiredPeers)
	}
	if snap.RateLimited != 1 {
		t.Fatalf("unexpected rate limited count: %d", snap.RateLimited)
	}
}

func TestCountersAreSafeForConcurrentUse(t *testing.T) {
	s := NewService()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				s.AnnounceReceived()
			}
		}()
	}
	wg.Wait()

	if got := s.Snapshot().Announces; got != 1000 {
		t.Fatalf("unexpected announce count: %d", got)
	}
}
