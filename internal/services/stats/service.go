// Package stats keeps the tracker's packet and event counters. All
// counters are atomics so transports can bump them without locking.
package stats

import (
	"sync/atomic"
	"time"
)

type Service struct {
	startedAt time.Time

	connects      atomic.Int64
	announces     atomic.Int64
	scrapes       atomic.Int64
	errors        atomic.Int64
	eventStarted  atomic.Int64
	eventStopped  atomic.Int64
	eventComplete atomic.Int64
	expiredPeers  atomic.Int64
	rateLimited   atomic.Int64
}

func NewService() *Service {
	return &Service{startedAt: time.Now()}
}

func (s *Service) ConnectReceived()   { s.connects.Add(1) }
func (s *Service) AnnounceReceived()  { s.announces.Add(1) }
func (s *Service) ScrapeReceived()    { s.scrapes.Add(1) }
func (s *Service) ErrorSent()         { s.errors.Add(1) }
func (s *Service) PeerStarted()       { s.eventStarted.Add(1) }
func (s *Service) PeerStopped()       { s.eventStopped.Add(1) }
func (s *Service) DownloadCompleted() { s.eventComplete.Add(1) }
func (s *Service) RateLimited()       { s.rateLimited.Add(1) }

func (s *Service) PeersExpired(n int) {
	if n > 0 {
		s.expiredPeers.Add(int64(n))
	}
}

type Snapshot struct {
	UptimeSeconds int64
	Connects      int64
	Announces     int64
	Scrapes       int64
	Errors        int64
	Started       int64
	Stopped       int64
	Completed     int64
	ExpiredPeers  int64
	RateLimited   int64
}

func (s *Service) Snapshot() Snapshot {
	return Snapshot{
		UptimeSeconds: int64(time.Since(s.startedAt).Seconds()),
		Connects:      s.connects.Load(),
		Announces:     s.announces.Load(),
		Scrapes:       s.scrapes.Load(),
		Errors:        s.errors.Load(),
		Started:       s.eventStarted.Load(),
		Stopped:       s.eventStopped.Load(),
		Completed:     s.eventComplete.Load(),
		ExpiredPeers:  s.expiredPeers.Load(),
		RateLimited:   s.rateLimited.Load(),
	}
}
