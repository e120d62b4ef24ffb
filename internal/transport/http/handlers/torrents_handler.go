package handlers

import (
	"net/http"
	"sort"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hungfnt/torrust-tracker/internal/domain"
	scrapesvc "github.com/hungfnt/torrust-tracker/internal/services/scrape"
	"github.com/hungfnt/torrust-tracker/internal/transport/http/dto"
	httperrors "github.com/hungfnt/torrust-tracker/internal/transport/http/errors"
)

type TorrentsHandler struct {
	swarms SwarmIndex
	scrape *scrapesvc.Service
}

func NewTorrentsHandler(swarms SwarmIndex, scrape *scrapesvc.Service) *TorrentsHandler {
	return &TorrentsHandler{swarms: swarms, scrape: scrape}
}

func (h *TorrentsHandler) List(w http.ResponseWriter, r *http.Request) {
	if h.swarms == nil || h.scrape == nil {
		writeInternal(w, "TORRENTS_UNAVAILABLE", "torrent view is unavailable")
		return
	}

	limit := parseIntOrDefault(r.URL.Query().Get("limit"), 100)
	if limit <= 0 {
		limit = 100
	}

	hashes := h.swarms.Hashes()
	sort.Slice(hashes, func(i, j int) bool {
		return hashes[i].String() < hashes[j].String()
	})
	if len(hashes) > limit {
		hashes = hashes[:limit]
	}

	resp := dto.TorrentListResponse{Torrents: make([]dto.TorrentResponse, 0, len(hashes))}
	for _, hash := range hashes {
		stats, err := h.scrape.Scrape(r.Context(), []domain.InfoHash{hash})
		if err != nil || len(stats) != 1 {
			writeInternal(w, "INTERNAL_ERROR", "failed to load torrent stats")
			return
		}
		resp.Torrents = append(resp.Torrents, dto.TorrentResponse{
			InfoHash:  hash.String(),
			Seeders:   stats[0].Seeders,
			Leechers:  stats[0].Leechers,
			Completed: stats[0].Completed,
		})
	}

	httperrors.Write(w, http.StatusOK, resp)
}

func (h *TorrentsHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h.swarms == nil || h.scrape == nil {
		writeInternal(w, "TORRENTS_UNAVAILABLE", "torrent view is unavailable")
		return
	}

	hash, err := domain.InfoHashFromHex(chi.URLParam(r, "infohash"))
	if err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "infohash must be 40 hex characters")
		return
	}

	stats, err := h.scrape.Scrape(r.Context(), []domain.InfoHash{hash})
	if err != nil || len(stats) != 1 {
		writeInternal(w, "INTERNAL_ERROR", "failed to load torrent stats")
		return
	}

	st := stats[0]
	if st.Seeders == 0 && st.Leechers == 0 && st.Completed == 0 {
		writeNotFound(w, "TORRENT_NOT_FOUND", "no peers known for this infohash")
		return
	}

	httperrors.Write(w, http.StatusOK, dto.TorrentResponse{
		InfoHash:  hash.String(),
		Seeders:   st.Seeders,
		Leechers:  st.Leechers,
		Completed: st.Completed,
	})
}

func parseIntOrDefault(value string, fallback int) int {
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}
