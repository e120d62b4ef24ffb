package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hungfnt/torrust-tracker/internal/repo/memory"
	statsvc "github.com/hungfnt/torrust-tracker/internal/services/stats"
	"github.com/hungfnt/torrust-tracker/internal/transport/http/dto"
)

func TestStatsHandlerResponseShape(t *testing.T) {
	stats := statsvc.NewService()
	swarms := memory.NewSwarmRepo()
	handler := NewStatsHandler(stats, swarms)

	stats.ConnectReceived()
	stats.AnnounceReceived()
	stats.DownloadCompleted()
	seedPeer(swarms, 0xAA, 1, 0)
	seedPeer(swarms, 0xBB, 2, 10)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil)
	rr := httptest.NewRecorder()
	handler.Get(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusOK)
	}

	var resp dto.StatsResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	if resp.Torrents != 2 || resp.Peers != 2 {
		t.Fatalf("unexpected swarm totals: %+v", resp)
	}
	if resp.UDP.Connects != 1 || resp.UDP.Announces != 1 {
		t.Fatalf("unexpected udp counters: %+v", resp.UDP)
	}
	if resp.Events.Completed != 1 {
		t.Fatalf("unexpected event counters: %+v", resp.Events)
	}
}

func TestStatsHandlerWithoutServiceIs500(t *testing.T) {
	handler := NewStatsHandler(nil, nil)

	rr := httptest.NewRecorder()
	handler.Get(rr, httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusInternalServerError)
	}
}
