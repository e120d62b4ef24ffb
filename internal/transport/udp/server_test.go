package udp

import (
	"context"
	"encoding/binary"
	"net/netip"
	"testing"
	"time"

	"github.com/hungfnt/torrust-tracker/internal/config"
	"github.com/hungfnt/torrust-tracker/internal/repo/memory"
	announcesvc "github.com/hungfnt/torrust-tracker/internal/services/announce"
	scrapesvc "github.com/hungfnt/torrust-tracker/internal/services/scrape"
	statsvc "github.com/hungfnt/torrust-tracker/internal/services/stats"
	whitelistsvc "github.com/hungfnt/torrust-tracker/internal/services/whitelist"
)

func newTestServer(t *testing.T, mode string) (*Server, *statsvc.Service, *whitelistsvc.Service) {
	t.Helper()

	swarms := memory.NewSwarmRepo()
	completed := memory.NewCompletedRepo()
	stats := statsvc.NewService()
	admitter := whitelistsvc.NewService(mode)

	announce := announcesvc.NewService(announcesvc.Dependencies{
		Swarms:    swarms,
		Completed: completed,
		Admitter:  admitter,
		Events:    stats,
	}, announcesvc.Config{
		AnnounceInterval:    30 * time.Minute,
		MinAnnounceInterval: time.Minute,
		MaxNumWant:          50,
	})
	scrape := scrapesvc.NewService(swarms, completed)

	srv, err := NewServer(":0", "test-secret", Dependencies{
		Announce: announce,
		Scrape:   scrape,
		Stats:    stats,
	})
	if err != nil {
		t.Fatalf("create server: %v", err)
	}
	return srv, stats, admitter
}

func clientAddr(b byte) netip.AddrPort {
	return netip.AddrPortFrom(netip.AddrFrom4([4]byte{198, 51, 100, b}), 40000+uint16(b))
}

func connectPacket(txID uint32) []byte {
	buf := make([]byte, connectRequestLen)
	binary.BigEndian.PutUint64(buf[0:8], protocolMagic)
	binary.BigEndian.PutUint32(buf[8:12], actionConnect)
	binary.BigEndian.PutUint32(buf[12:16], txID)
	return buf
}

func announcePacket(connID uint64, txID uint32, hashByte byte, port uint16, event uint32) []byte {
	buf := make([]byte, announceRequestLen)
	binary.BigEndian.PutUint64(buf[0:8], connID)
	binary.BigEndian.PutUint32(buf[8:12], actionAnnounce)
	binary.BigEndian.PutUint32(buf[12:16], txID)
	buf[16] = hashByte
	buf[36] = hashByte // peer id, distinct enough per caller
	binary.BigEndian.PutUint64(buf[64:72], 100) // left
	binary.BigEndian.PutUint32(buf[80:84], event)
	binary.BigEndian.PutUint32(buf[92:96], 10) // numwant
	binary.BigEndian.PutUint16(buf[96:98], port)
	return buf
}

func obtainConnectionID(t *testing.T, srv *Server, addr netip.AddrPort) uint64 {
	t.Helper()

	resp := srv.handlePacket(context.Background(), connectPacket(1), addr)
	if resp == nil {
		t.Fatalf("expected connect response")
	}
	if binary.BigEndian.Uint32(resp[0:4]) != actionConnect {
		t.Fatalf("unexpected connect response action")
	}
	return binary.BigEndian.Uint64(resp[8:16])
}

func TestConnectThenAnnounceFlow(t *testing.T) {
	srv, stats, _ := newTestServer(t, config.ModeDynamic)
	addr := clientAddr(1)

	connID := obtainConnectionID(t, srv, addr)
	resp := srv.handlePacket(context.Background(), announcePacket(connID, 2, 0xAA, 6881, 2), addr)
	if resp == nil {
		t.Fatalf("expected announce response")
	}

	if got := binary.BigEndian.Uint32(resp[0:4]); got != actionAnnounce {
		t.Fatalf("unexpected action: %d", got)
	}
	if got := binary.BigEndian.Uint32(resp[4:8]); got != 2 {
		t.Fatalf("unexpected transaction id: %d", got)
	}
	if got := binary.BigEndian.Uint32(resp[8:12]); got != 1800 {
		t.Fatalf("unexpected interval: %d", got)
	}
	if got := binary.BigEndian.Uint32(resp[12:16]); got != 1 {
		t.Fatalf("expected one leecher, got %d", got)
	}
	if len(resp) != announceHeaderLen {
		t.Fatalf("first announce should carry no peers, got %d extra bytes", len(resp)-announceHeaderLen)
	}

	snap := stats.Snapshot()
	if snap.Connects != 1 || snap.Announces != 1 || snap.Started != 1 {
		t.Fatalf("unexpected stats: %+v", snap)
	}
}

func TestAnnounceReturnsOtherPeers(t *testing.T) {
	srv, _, _ := newTestServer(t, config.ModeDynamic)
	ctx := context.Background()

	first := clientAddr(1)
	firstID := obtainConnectionID(t, srv, first)
	if resp := srv.handlePacket(ctx, announcePacket(firstID, 2, 0xAA, 6881, 2), first); resp == nil {
		t.Fatalf("first announce failed")
	}

	second := clientAddr(2)
	secondID := obtainConnectionID(t, srv, second)
	resp := srv.handlePacket(ctx, announcePacket(secondID, 3, 0xAA, 6882, 2), second)
	if resp == nil {
		t.Fatalf("second announce failed")
	}

	if len(resp) != announceHeaderLen+peerEntryLen {
		t.Fatalf("expected one peer entry, got %d extra bytes", len(resp)-announceHeaderLen)
	}
	if resp[20] != 198 || resp[21] != 51 || resp[22] != 100 || resp[23] != 1 {
		t.Fatalf("unexpected peer ip: %v", resp[20:24])
	}
	if binary.BigEndian.Uint16(resp[24:26]) != 6881 {
		t.Fatalf("unexpected peer port")
	}
}

func TestAnnounceRejectsForgedConnectionID(t *testing.T) {
	srv, stats, _ := newTestServer(t, config.ModeDynamic)
	addr := clientAddr(3)

	resp := srv.handlePacket(context.Background(), announcePacket(0xBAD, 5, 0xAA, 6881, 2), addr)
	if resp == nil {
		t.Fatalf("expected error response")
	}
	if binary.BigEndian.Uint32(resp[0:4]) != actionError {
		t.Fatalf("expected error action")
	}
	if binary.BigEndian.Uint32(resp[4:8]) != 5 {
		t.Fatalf("error must echo the transaction id")
	}
	if stats.Snapshot().Errors != 1 {
		t.Fatalf("expected one error counted")
	}
}

func TestConnectionIDFromOtherAddressIsRejected(t *testing.T) {
	srv, _, _ := newTestServer(t, config.ModeDynamic)

	victim := clientAddr(4)
	connID := obtainConnectionID(t, srv, victim)

	attacker := clientAddr(5)
	resp := srv.handlePacket(context.Background(), announcePacket(connID, 6, 0xAA, 6881, 2), attacker)
	if resp == nil || binary.BigEndian.Uint32(resp[0:4]) != actionError {
		t.Fatalf("expected error for connection id replay from another address")
	}
}

func TestAnnounceUnlistedTorrentReturnsError(t *testing.T) {
	srv, _, admitter := newTestServer(t, config.ModeListed)
	ctx := context.Background()
	addr := clientAddr(6)

	connID := obtainConnectionID(t, srv, addr)
	resp := srv.handlePacket(ctx, announcePacket(connID, 7, 0xAA, 6881, 2), addr)
	if resp == nil || binary.BigEndian.Uint32(resp[0:4]) != actionError {
		t.Fatalf("expected whitelist rejection")
	}
	if string(resp[8:]) != "info_hash not whitelisted" {
		t.Fatalf("unexpected error message: %q", string(resp[8:]))
	}

	var hash [20]byte
	hash[0] = 0xAA
	if err := admitter.Add(ctx, hash); err != nil {
		t.Fatalf("whitelist add: %v", err)
	}
	resp = srv.handlePacket(ctx, announcePacket(connID, 8, 0xAA, 6881, 2), addr)
	if resp == nil || binary.BigEndian.Uint32(resp[0:4]) != actionAnnounce {
		t.Fatalf("expected successful announce after whitelisting")
	}
}

func TestScrapeFlow(t *testing.T) {
	srv, stats, _ := newTestServer(t, config.ModeDynamic)
	ctx := context.Background()
	addr := clientAddr(7)

	connID := obtainConnectionID(t, srv, addr)
	if resp := srv.handlePacket(ctx, announcePacket(connID, 2, 0xAA, 6881, 2), addr); resp == nil {
		t.Fatalf("announce failed")
	}

	buf := make([]byte, scrapeHeaderLen+20)
	binary.BigEndian.PutUint64(buf[0:8], connID)
	binary.BigEndian.PutUint32(buf[8:12], actionScrape)
	binary.BigEndian.PutUint32(buf[12:16], 9)
	buf[16] = 0xAA

	resp := srv.handlePacket(ctx, buf, addr)
	if resp == nil {
		t.Fatalf("expected scrape response")
	}
	if binary.BigEndian.Uint32(resp[0:4]) != actionScrape {
		t.Fatalf("unexpected action")
	}
	if len(resp) != errorHeaderLen+scrapeEntryLen {
		t.Fatalf("expected one scrape entry")
	}
	if leechers := binary.BigEndian.Uint32(resp[16:20]); leechers != 1 {
		t.Fatalf("expected one leecher, got %d", leechers)
	}
	if stats.Snapshot().Scrapes != 1 {
		t.Fatalf("expected one scrape counted")
	}
}

func TestGarbagePacketsEarnNoReply(t *testing.T) {
	srv, _, _ := newTestServer(t, config.ModeDynamic)

	if resp := srv.handlePacket(context.Background(), []byte{1, 2, 3}, clientAddr(8)); resp != nil {
		t.Fatalf("short garbage must be dropped silently")
	}

	bad := connectPacket(1)
	binary.BigEndian.PutUint64(bad[0:8], 0x1234)
	if resp := srv.handlePacket(context.Background(), bad, clientAddr(8)); resp != nil {
		t.Fatalf("bad magic must be dropped silently")
	}
}

func TestConnectionIDExpiresAfterWindow(t *testing.T) {
	srv, _, _ := newTestServer(t, config.ModeDynamic)
	addr := clientAddr(9)

	base := time.Date(2026, time.May, 1, 12, 0, 0, 0, time.UTC)
	srv.issuer.now = func() time.Time { return base }
	connID := srv.issuer.Issue(addr)

	srv.issuer.now = func() time.Time { return base.Add(2 * connectionIDWindow) }
	if srv.issuer.Verify(connID, addr) {
		t.Fatalf("connection id must expire after two windows")
	}

	srv.issuer.now = func() time.Time { return base.Add(connectionIDWindow) }
	if !srv.issuer.Verify(connID, addr) {
		t.Fatalf("connection id must stay valid in the previous bucket")
	}
}
