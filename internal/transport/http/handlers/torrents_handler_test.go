package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hungfnt/torrust-tracker/internal/domain"
	"github.com/hungfnt/torrust-tracker/internal/repo/memory"
	scrapesvc "github.com/hungfnt/torrust-tracker/internal/services/scrape"
	"github.com/hungfnt/torrust-tracker/internal/transport/http/dto"
)

func newTorrentsFixture(t *testing.T) (*chi.Mux, *memory.SwarmRepo, *memory.CompletedRepo) {
	t.Helper()

	swarms := memory.NewSwarmRepo()
	completed := memory.NewCompletedRepo()
	handler := NewTorrentsHandler(swarms, scrapesvc.NewService(swarms, completed))

	r := chi.NewRouter()
	r.Get("/api/v1/torrents", handler.List)
	r.Get("/api/v1/torrents/{infohash}", handler.Get)
	return r, swarms, completed
}

func seedPeer(swarms *memory.SwarmRepo, hashByte, peerByte byte, left uint64) domain.InfoHash {
	var hash domain.InfoHash
	hash[0] = hashByte
	var id domain.PeerID
	id[0] = peerByte
	swarms.Put(hash, domain.Peer{
		ID:       id,
		Addr:     netip.AddrPortFrom(netip.AddrFrom4([4]byte{10, 0, 0, peerByte}), 6880+uint16(peerByte)),
		Left:     left,
		LastSeen: time.Now(),
	})
	return hash
}

func TestTorrentsListReportsSwarms(t *testing.T) {
	r, swarms, completed := newTorrentsFixture(t)

	hash := seedPeer(swarms, 0xAA, 1, 0)
	seedPeer(swarms, 0xAA, 2, 100)
	if _, err := completed.IncrementCompleted(context.Background(), hash); err != nil {
		t.Fatalf("increment completed: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/torrents", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusOK)
	}

	var resp dto.TorrentListResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Torrents) != 1 {
		t.Fatalf("expected one torrent, got %d", len(resp.Torrents))
	}

	torrent := resp.Torrents[0]
	if torrent.InfoHash != hash.String() {
		t.Fatalf("unexpected infohash: %s", torrent.InfoHash)
	}
	if torrent.Seeders != 1 || torrent.Leechers != 1 || torrent.Completed != 1 {
		t.Fatalf("unexpected torrent stats: %+v", torrent)
	}
}

func TestTorrentGetByInfohash(t *testing.T) {
	r, swarms, _ := newTorrentsFixture(t)
	hash := seedPeer(swarms, 0xBB, 3, 50)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/torrents/"+hash.String(), nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusOK)
	}

	var resp dto.TorrentResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Leechers != 1 || resp.Seeders != 0 {
		t.Fatalf("unexpected stats: %+v", resp)
	}
}

func TestTorrentGetRejectsBadInfohash(t *testing.T) {
	r, _, _ := newTorrentsFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/torrents/nothex", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusBadRequest)
	}
	if !strings.Contains(rr.Body.String(), "VALIDATION_ERROR") {
		t.Fatalf("expected validation error envelope, got %s", rr.Body.String())
	}
}

func TestTorrentGetUnknownHashIs404(t *testing.T) {
	r, _, _ := newTorrentsFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/torrents/"+strings.Repeat("00", 20), nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusNotFound)
	}
}
