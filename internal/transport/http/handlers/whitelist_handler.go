package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hungfnt/torrust-tracker/internal/domain"
	whitelistsvc "github.com/hungfnt/torrust-tracker/internal/services/whitelist"
	"github.com/hungfnt/torrust-tracker/internal/transport/http/dto"
	httperrors "github.com/hungfnt/torrust-tracker/internal/transport/http/errors"
)

type WhitelistHandler struct {
	service *whitelistsvc.Service
}

func NewWhitelistHandler(service *whitelistsvc.Service) *WhitelistHandler {
	return &WhitelistHandler{service: service}
}

func (h *WhitelistHandler) List(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "WHITELIST_UNAVAILABLE", "whitelist service is unavailable")
		return
	}

	hashes, err := h.service.List(r.Context())
	if err != nil {
		writeInternal(w, "INTERNAL_ERROR", "failed to load whitelist")
		return
	}

	resp := dto.WhitelistResponse{InfoHashes: make([]string, 0, len(hashes))}
	for _, hash := range hashes {
		resp.InfoHashes = append(resp.InfoHashes, hash.String())
	}
	httperrors.Write(w, http.StatusOK, resp)
}

func (h *WhitelistHandler) Add(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, h.serviceAdd)
}

func (h *WhitelistHandler) Remove(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, h.serviceRemove)
}

func (h *WhitelistHandler) mutate(w http.ResponseWriter, r *http.Request, op func(*http.Request, domain.InfoHash) error) {
	if h.service == nil {
		writeInternal(w, "WHITELIST_UNAVAILABLE", "whitelist service is unavailable")
		return
	}

	hash, err := domain.InfoHashFromHex(chi.URLParam(r, "infohash"))
	if err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "infohash must be 40 hex characters")
		return
	}

	if err := op(r, hash); err != nil {
		writeInternal(w, "INTERNAL_ERROR", "failed to update whitelist")
		return
	}

	httperrors.Write(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *WhitelistHandler) serviceAdd(r *http.Request, hash domain.InfoHash) error {
	return h.service.Add(r.Context(), hash)
}

func (h *WhitelistHandler) serviceRemove(r *http.Request, hash domain.InfoHash) error {
	return h.service.Remove(r.Context(), hash)
}
