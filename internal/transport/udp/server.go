package udp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"

	"github.com/hungfnt/torrust-tracker/internal/logging"
	announcesvc "github.com/hungfnt/torrust-tracker/internal/services/announce"
	ratesvc "github.com/hungfnt/torrust-tracker/internal/services/rate"
	scrapesvc "github.com/hungfnt/torrust-tracker/internal/services/scrape"
	statsvc "github.com/hungfnt/torrust-tracker/internal/services/stats"
)

// maxPacketLen bounds one datagram: a full scrape request is the
// largest frame we accept.
const maxPacketLen = 2048

type Dependencies struct {
	Announce *announcesvc.Service
	Scrape   *scrapesvc.Service
	Stats    *statsvc.Service
	Limiter  *ratesvc.Limiter
	Logger   *logging.Logger
}

type Server struct {
	addr   string
	issuer *connectionIDIssuer
	deps   Dependencies

	conn *net.UDPConn
}

func NewServer(addr, connectionSecret string, deps Dependencies) (*Server, error) {
	if deps.Announce == nil || deps.Scrape == nil {
		return nil, fmt.Errorf("announce and scrape services are required")
	}
	if deps.Logger == nil {
		deps.Logger = logging.Discard()
	}

	return &Server{
		addr:   addr,
		issuer: newConnectionIDIssuer(connectionSecret),
		deps:   deps,
	}, nil
}

// Run binds the socket and serves datagrams until Shutdown closes it.
func (s *Server) Run(ctx context.Context) error {
	udpAddr, err := net.ResolveUDPAddr("udp", s.addr)
	if err != nil {
		return fmt.Errorf("resolve udp addr %q: %w", s.addr, err)
	}

	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return fmt.Errorf("listen udp %q: %w", s.addr, err)
	}
	s.conn = conn

	s.deps.Logger.Infof("udp tracker listening on %s", conn.LocalAddr())

	buf := make([]byte, maxPacketLen)
	for {
		n, addr, err := conn.ReadFromUDPAddrPort(buf)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("read udp packet: %w", err)
		}

		resp := s.handlePacket(ctx, buf[:n], addr)
		if resp == nil {
			continue
		}
		if _, err := conn.WriteToUDPAddrPort(resp, addr); err != nil {
			s.deps.Logger.Warningf("write udp response to %s: %v", addr, err)
		}
	}
}

// Shutdown closes the socket, unblocking Run.
func (s *Server) Shutdown() error {
	if s.conn == nil {
		return nil
	}
	if err := s.conn.Close(); err != nil {
		return fmt.Errorf("close udp socket: %w", err)
	}
	return nil
}

// handlePacket processes one datagram and returns the reply to send, or
// nil when the packet earns no reply.
func (s *Server) handlePacket(ctx context.Context, buf []byte, addr netip.AddrPort) []byte {
	action, err := PacketAction(buf)
	if err != nil {
		s.deps.Logger.Debugf("dropping short packet from %s: %v", addr, err)
		return nil
	}

	switch action {
	case actionConnect:
		return s.handleConnect(buf, addr)
	case actionAnnounce:
		return s.handleAnnounce(ctx, buf, addr)
	case actionScrape:
		return s.handleScrape(ctx, buf, addr)
	default:
		txID, ok := TransactionID(buf)
		if !ok {
			return nil
		}
		s.deps.Logger.Debugf("unknown action %d from %s", action, addr)
		return s.errorResponse(txID, "unknown action")
	}
}

func (s *Server) handleConnect(buf []byte, addr netip.AddrPort) []byte {
	req, err := ParseConnectRequest(buf)
	if err != nil {
		s.deps.Logger.Debugf("invalid connect from %s: %v", addr, err)
		return nil
	}

	if s.deps.Stats != nil {
		s.deps.Stats.ConnectReceived()
	}

	id := s.issuer.Issue(addr)
	s.deps.Logger.Debugf("connect from %s", addr)
	return EncodeConnectResponse(req.TransactionID, id)
}

func (s *Server) handleAnnounce(ctx context.Context, buf []byte, addr netip.AddrPort) []byte {
	req, err := ParseAnnounceRequest(buf)
	if err != nil {
		s.deps.Logger.Debugf("invalid announce from %s: %v", addr, err)
		txID, ok := TransactionID(buf)
		if !ok {
			return nil
		}
		return s.errorResponse(txID, "malformed announce")
	}

	if !s.issuer.Verify(req.ConnectionID, addr) {
		s.deps.Logger.Debugf("stale connection id from %s", addr)
		return s.errorResponse(req.TransactionID, "invalid connection id")
	}

	if s.deps.Stats != nil {
		s.deps.Stats.AnnounceReceived()
	}

	if s.deps.Limiter != nil {
		ip := addr.Addr().Unmap().String()
		retryAfter, allowed, err := s.deps.Limiter.AllowAnnounce(ctx, ip)
		if err != nil {
			// Limiter outages fail open.
			s.deps.Logger.Warningf("announce rate limiter unavailable: %v", err)
		} else if !allowed {
			if s.deps.Stats != nil {
				s.deps.Stats.RateLimited()
			}
			return s.errorResponse(req.TransactionID, fmt.Sprintf("announce rate exceeded, retry in %ds", retryAfter))
		}
	}

	// The optional IP field in the packet is ignored: the source
	// address is authoritative, only the port comes from the client.
	resp, err := s.deps.Announce.Announce(ctx, announcesvc.Request{
		InfoHash:   req.InfoHash,
		PeerID:     req.PeerID,
		Addr:       netip.AddrPortFrom(addr.Addr().Unmap(), req.Port),
		Uploaded:   req.Uploaded,
		Downloaded: req.Downloaded,
		Left:       req.Left,
		Event:      req.Event,
		NumWant:    req.NumWant,
	})
	if err != nil {
		switch {
		case errors.Is(err, announcesvc.ErrNotAdmitted):
			return s.errorResponse(req.TransactionID, "info_hash not whitelisted")
		case errors.Is(err, announcesvc.ErrInvalidRequest):
			return s.errorResponse(req.TransactionID, "malformed announce")
		default:
			s.deps.Logger.Errorf("announce from %s failed: %v", addr, err)
			return s.errorResponse(req.TransactionID, "tracker error")
		}
	}

	s.deps.Logger.Debugf("announce %s from %s event=%s", req.InfoHash, addr, req.Event)
	return EncodeAnnounceResponse(
		req.TransactionID,
		int32(resp.Interval.Seconds()),
		resp.Leechers,
		resp.Seeders,
		resp.Peers,
	)
}

func (s *Server) handleScrape(ctx context.Context, buf []byte, addr netip.AddrPort) []byte {
	req, err := ParseScrapeRequest(buf)
	if err != nil {
		s.deps.Logger.Debugf("invalid scrape from %s: %v", addr, err)
		txID, ok := TransactionID(buf)
		if !ok {
			return nil
		}
		return s.errorResponse(txID, "malformed scrape")
	}

	if !s.issuer.Verify(req.ConnectionID, addr) {
		s.deps.Logger.Debugf("stale connection id from %s", addr)
		return s.errorResponse(req.TransactionID, "invalid connection id")
	}

	if s.deps.Stats != nil {
		s.deps.Stats.ScrapeReceived()
	}

	stats, err := s.deps.Scrape.Scrape(ctx, req.InfoHashes)
	if err != nil {
		if errors.Is(err, scrapesvc.ErrTooManyHashes) {
			return s.errorResponse(req.TransactionID, "too many info_hashes")
		}
		s.deps.Logger.Errorf("scrape from %s failed: %v", addr, err)
		return s.errorResponse(req.TransactionID, "tracker error")
	}

	s.deps.Logger.Debugf("scrape of %d torrents from %s", len(req.InfoHashes), addr)
	return EncodeScrapeResponse(req.TransactionID, stats)
}

func (s *Server) errorResponse(transactionID uint32, message string) []byte {
	if s.deps.Stats != nil {
		s.deps.Stats.ErrorSent()
	}
	return EncodeErrorResponse(transactionID, message)
}
