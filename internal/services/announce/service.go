// Package announce implements the tracker's core operation: admitting
// a peer into a swarm and handing back the peers it should contact.
package announce

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"time"

	"github.com/hungfnt/torrust-tracker/internal/domain"
)

var (
	ErrInvalidRequest = errors.New("invalid announce request")
	ErrNotAdmitted    = errors.New("torrent is not admitted by this tracker")
)

// SwarmStore is the live peer registry, normally the in-memory repo.
type SwarmStore interface {
	Put(hash domain.InfoHash, peer domain.Peer)
	Drop(hash domain.InfoHash, key string)
	Peers(hash domain.InfoHash, limit int, excludeKey string) []domain.Peer
	Stats(hash domain.InfoHash) domain.SwarmStats
}

// CompletedStore keeps per-torrent finished-download counters.
type CompletedStore interface {
	IncrementCompleted(ctx context.Context, hash domain.InfoHash) (int32, error)
	CompletedCount(ctx context.Context, hash domain.InfoHash) (int32, error)
}

// Admitter decides whether a torrent may be tracked at all.
type Admitter interface {
	Admit(ctx context.Context, hash domain.InfoHash) error
}

// EventSink receives announce lifecycle events for the stats counters.
type EventSink interface {
	PeerStarted()
	PeerStopped()
	DownloadCompleted()
}

type Dependencies struct {
	Swarms    SwarmStore
	Completed CompletedStore
	Admitter  Admitter
	Events    EventSink
}

type Config struct {
	AnnounceInterval    time.Duration
	MinAnnounceInterval time.Duration
	MaxNumWant          int
}

type Request struct {
	InfoHash   domain.InfoHash
	PeerID     domain.PeerID
	Addr       netip.AddrPort
	Uploaded   uint64
	Downloaded uint64
	Left       uint64
	Event      domain.AnnounceEvent
	NumWant    int32
}

type Response struct {
	Interval    time.Duration
	MinInterval time.Duration
	Seeders     int32
	Leechers    int32
	Peers       []domain.Peer
}

type Service struct {
	deps Dependencies
	cfg  Config
	now  func() time.Time
}

func NewService(deps Dependencies, cfg Config) *Service {
	if cfg.AnnounceInterval <= 0 {
		cfg.AnnounceInterval = 30 * time.Minute
	}
	if cfg.MinAnnounceInterval <= 0 {
		cfg.MinAnnounceInterval = 2 * time.Minute
	}
	if cfg.MaxNumWant <= 0 {
		cfg.MaxNumWant = 74
	}

	return &Service{
		deps: deps,
		cfg:  cfg,
		now:  time.Now,
	}
}

// Announce processes one announce request and returns the interval and
// peer list for the client.
func (s *Service) Announce(ctx context.Context, req Request) (Response, error) {
	if s.deps.Swarms == nil {
		return Response{}, fmt.Errorf("swarm store is nil")
	}
	if !req.Addr.IsValid() || req.Addr.Port() == 0 {
		return Response{}, fmt.Errorf("%w: missing peer address", ErrInvalidRequest)
	}
	if !req.Event.Valid() {
		return Response{}, fmt.Errorf("%w: unknown event %d", ErrInvalidRequest, req.Event)
	}

	if s.deps.Admitter != nil {
		if err := s.deps.Admitter.Admit(ctx, req.InfoHash); err != nil {
			return Response{}, fmt.Errorf("%w: %v", ErrNotAdmitted, err)
		}
	}

	peer := domain.Peer{
		ID:         req.PeerID,
		Addr:       req.Addr,
		Uploaded:   req.Uploaded,
		Downloaded: req.Downloaded,
		Left:       req.Left,
		LastSeen:   s.now(),
	}

	switch req.Event {
	case domain.EventStopped:
		s.deps.Swarms.Drop(req.InfoHash, peer.Key())
		if s.deps.Events != nil {
			s.deps.Events.PeerStopped()
		}
		stats := s.deps.Swarms.Stats(req.InfoHash)
		return s.response(stats, nil), nil

	case domain.EventCompleted:
		if s.deps.Completed != nil {
			if _, err := s.deps.Completed.IncrementCompleted(ctx, req.InfoHash); err != nil {
				return Response{}, fmt.Errorf("count completed download: %w", err)
			}
		}
		if s.deps.Events != nil {
			s.deps.Events.DownloadCompleted()
		}

	case domain.EventStarted:
		if s.deps.Events != nil {
			s.deps.Events.PeerStarted()
		}
	}

	s.deps.Swarms.Put(req.InfoHash, peer)

	numWant := int(req.NumWant)
	if numWant <= 0 || numWant > s.cfg.MaxNumWant {
		numWant = s.cfg.MaxNumWant
	}

	peers := s.deps.Swarms.Peers(req.InfoHash, numWant, peer.Key())
	stats := s.deps.Swarms.Stats(req.InfoHash)
	return s.response(stats, peers), nil
}

func (s *Service) response(stats domain.SwarmStats, peers []domain.Peer) Response {
	return Response{
		Interval:    s.cfg.AnnounceInterval,
		MinInterval: s.cfg.MinAnnounceInterval,
		Seeders:     stats.Seeders,
		Leechers:    stats.Leechers,
		Peers:       peers,
	}
}
