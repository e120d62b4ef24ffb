package trackerapp

import (
	"github.com/go-chi/chi/v5"

	"github.com/hungfnt/torrust-tracker/internal/config"
	"github.com/hungfnt/torrust-tracker/internal/logging"
	scrapesvc "github.com/hungfnt/torrust-tracker/internal/services/scrape"
	statsvc "github.com/hungfnt/torrust-tracker/internal/services/stats"
	whitelistsvc "github.com/hungfnt/torrust-tracker/internal/services/whitelist"
	"github.com/hungfnt/torrust-tracker/internal/transport/http/handlers"
)

type Dependencies struct {
	StatsService     *statsvc.Service
	ScrapeService    *scrapesvc.Service
	WhitelistService *whitelistsvc.Service
	Swarms           handlers.SwarmIndex
	AdminToken       string
	Logger           *logging.Logger
	Config           config.Config
}

func RegisterRoutes(r chi.Router, deps Dependencies) {
	healthHandler := handlers.NewHealthHandler()
	statsHandler := handlers.NewStatsHandler(deps.StatsService, deps.Swarms)
	torrentsHandler := handlers.NewTorrentsHandler(deps.Swarms, deps.ScrapeService)
	whitelistHandler := handlers.NewWhitelistHandler(deps.WhitelistService)
	adminMW := AdminAuthMiddleware(deps.AdminToken, deps.Logger)

	r.Get("/healthz", healthHandler.Get)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/stats", statsHandler.Get)
		r.Get("/torrents", torrentsHandler.List)
		r.Get("/torrents/{infohash}", torrentsHandler.Get)

		r.Route("/whitelist", func(r chi.Router) {
			r.Use(adminMW)
			r.Get("/", whitelistHandler.List)
			r.Post("/{infohash}", whitelistHandler.Add)
			r.Delete("/{infohash}", whitelistHandler.Remove)
		})
	})
}
