package trackerapp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"

	"github.com/hungfnt/torrust-tracker/internal/config"
	"github.com/hungfnt/torrust-tracker/internal/jobs/cleanup"
	"github.com/hungfnt/torrust-tracker/internal/logging"
	"github.com/hungfnt/torrust-tracker/internal/repo/memory"
	pgrepo "github.com/hungfnt/torrust-tracker/internal/repo/postgres"
	redrepo "github.com/hungfnt/torrust-tracker/internal/repo/redis"
	announcesvc "github.com/hungfnt/torrust-tracker/internal/services/announce"
	ratesvc "github.com/hungfnt/torrust-tracker/internal/services/rate"
	scrapesvc "github.com/hungfnt/torrust-tracker/internal/services/scrape"
	statsvc "github.com/hungfnt/torrust-tracker/internal/services/stats"
	whitelistsvc "github.com/hungfnt/torrust-tracker/internal/services/whitelist"
	udptransport "github.com/hungfnt/torrust-tracker/internal/transport/udp"
)

type App struct {
	cfg    config.Config
	logger *logging.Logger

	server     *http.Server
	udpServer  *udptransport.Server
	cleanupJob *cleanup.Job

	postgres   *pgxpool.Pool
	redis      *goredis.Client
	httpRouter http.Handler

	baseCtx     context.Context
	stopCleanup chan struct{}
	stopOnce    sync.Once
}

func New(ctx context.Context, cfg config.Config, log *logging.Logger) (*App, error) {
	if log == nil {
		return nil, fmt.Errorf("logger is nil")
	}

	r := chi.NewRouter()
	ApplyMiddlewares(r, log)

	var pool *pgxpool.Pool
	if p, err := pgrepo.NewPool(ctx, cfg.Postgres.DSN); err != nil {
		log.Warningf("postgres init failed, continuing in degraded mode: %v", err)
	} else {
		pool = p
	}

	redisClient := redrepo.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)

	swarms := memory.NewSwarmRepo()
	statsService := statsvc.NewService()

	whitelistService := whitelistsvc.NewService(cfg.Tracker.Mode)
	var completedStore announcesvc.CompletedStore = memory.NewCompletedRepo()
	if pool != nil {
		whitelistService.AttachStore(pgrepo.NewWhitelistRepo(pool))
		completedStore = pgrepo.NewTorrentRepo(pool)
	} else if cfg.Tracker.Mode == config.ModeListed {
		log.Warningf("listed mode without postgres: whitelist is in-memory only")
	}

	var limiter *ratesvc.Limiter
	if cfg.RateLimit.AnnouncesPerWindow > 0 {
		limiter = ratesvc.NewLimiter(
			redrepo.NewRateRepo(redisClient),
			cfg.RateLimit.AnnouncesPerWindow,
			cfg.RateLimit.Window,
		)
	}

	announceService := announcesvc.NewService(announcesvc.Dependencies{
		Swarms:    swarms,
		Completed: completedStore,
		Admitter:  whitelistService,
		Events:    statsService,
	}, announcesvc.Config{
		AnnounceInterval:    cfg.Tracker.AnnounceInterval,
		MinAnnounceInterval: cfg.Tracker.MinAnnounceInterval,
		MaxNumWant:          cfg.Tracker.MaxNumWant,
	})
	scrapeService := scrapesvc.NewService(swarms, completedStore)

	udpServer, err := udptransport.NewServer(cfg.UDP.Addr, cfg.UDP.ConnectionSecret, udptransport.Dependencies{
		Announce: announceService,
		Scrape:   scrapeService,
		Stats:    statsService,
		Limiter:  limiter,
		Logger:   log,
	})
	if err != nil {
		return nil, fmt.Errorf("create udp server: %w", err)
	}

	adminToken := cfg.Admin.Token
	if adminToken == "" {
		adminToken = uuid.NewString()
		log.Infof("generated admin api token: %s", adminToken)
	}

	RegisterRoutes(r, Dependencies{
		StatsService:     statsService,
		ScrapeService:    scrapeService,
		WhitelistService: whitelistService,
		Swarms:           swarms,
		AdminToken:       adminToken,
		Logger:           log,
		Config:           cfg,
	})

	cleanupJob := cleanup.New(swarms, statsService, cfg.Tracker.PeerTimeout, log)
	if pool != nil {
		cleanupJob.AttachStatsFlush(pgrepo.NewTorrentRepo(pool))
	}

	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      r,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	return &App{
		cfg:         cfg,
		logger:      log,
		server:      server,
		udpServer:   udpServer,
		cleanupJob:  cleanupJob,
		postgres:    pool,
		redis:       redisClient,
		httpRouter:  r,
		baseCtx:     ctx,
		stopCleanup: make(chan struct{}),
	}, nil
}

// Run serves the UDP tracker and the HTTP API until Shutdown, returning
// the first server failure.
func (a *App) Run() error {
	a.logger.Infof("http api listening on %s", a.cfg.HTTP.Addr)

	errCh := make(chan error, 2)
	go func() {
		errCh <- a.udpServer.Run(a.baseCtx)
	}()
	go func() {
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		errCh <- err
	}()
	go a.runCleanupLoop()

	for i := 0; i < 2; i++ {
		if err := <-errCh; err != nil {
			return err
		}
	}
	return nil
}

func (a *App) runCleanupLoop() {
	interval := a.cfg.Tracker.CleanupInterval
	if interval <= 0 {
		interval = 10 * time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-a.stopCleanup:
			return
		case <-a.baseCtx.Done():
			return
		case <-ticker.C:
			if err := a.cleanupJob.Run(a.baseCtx); err != nil {
				a.logger.Errorf("cleanup run failed: %v", err)
			}
		}
	}
}

func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error

	a.stopOnce.Do(func() {
		close(a.stopCleanup)
	})

	if err := a.udpServer.Shutdown(); err != nil {
		shutdownErr = err
	}
	if err := a.server.Shutdown(ctx); err != nil && shutdownErr == nil {
		shutdownErr = err
	}
	if a.postgres != nil {
		a.postgres.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil && shutdownErr == nil {
			shutdownErr = err
		}
	}

	return shutdownErr
}

func (a *App) Handler() http.Handler {
	return a.httpRouter
}
