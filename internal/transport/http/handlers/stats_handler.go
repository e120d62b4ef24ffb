package handlers

import (
	"net/http"

	"github.com/hungfnt/torrust-tracker/internal/domain"
	statsvc "github.com/hungfnt/torrust-tracker/internal/services/stats"
	"github.com/hungfnt/torrust-tracker/internal/transport/http/dto"
	httperrors "github.com/hungfnt/torrust-tracker/internal/transport/http/errors"
)

// SwarmIndex is the read-only view of the live swarm store used by the
// management API.
type SwarmIndex interface {
	Hashes() []domain.InfoHash
	Stats(hash domain.InfoHash) domain.SwarmStats
	Len() int
}

type StatsHandler struct {
	stats  *statsvc.Service
	swarms SwarmIndex
}

func NewStatsHandler(stats *statsvc.Service, swarms SwarmIndex) *StatsHandler {
	return &StatsHandler{stats: stats, swarms: swarms}
}

func (h *StatsHandler) Get(w http.ResponseWriter, _ *http.Request) {
	if h.stats == nil || h.swarms == nil {
		writeInternal(w, "STATS_UNAVAILABLE", "stats service is unavailable")
		return
	}

	snap := h.stats.Snapshot()
	resp := dto.StatsResponse{
		UptimeSeconds: snap.UptimeSeconds,
		Torrents:      len(h.swarms.Hashes()),
		Peers:         h.swarms.Len(),
		UDP: dto.UDPStatsResponse{
			Connects:    snap.Connects,
			Announces:   snap.Announces,
			Scrapes:     snap.Scrapes,
			Errors:      snap.Errors,
			RateLimited: snap.RateLimited,
		},
		Events: dto.EventStatsResponse{
			Started:      snap.Started,
			Stopped:      snap.Stopped,
			Completed:    snap.Completed,
			ExpiredPeers: snap.ExpiredPeers,
		},
	}

	httperrors.Write(w, http.StatusOK, resp)
}
