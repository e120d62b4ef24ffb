package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hungfnt/torrust-tracker/internal/app/trackerapp"
	"github.com/hungfnt/torrust-tracker/internal/config"
	"github.com/hungfnt/torrust-tracker/internal/logging"
)

func main() {
	cfgPath := os.Getenv("APP_CONFIG")
	if cfgPath == "" {
		cfgPath = "configs/config.yaml"
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		panic(err)
	}

	log, err := logging.Open(cfg.Log.Level, cfg.Log.File)
	if err != nil {
		panic(err)
	}
	defer func() {
		_ = log.Close()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := trackerapp.New(ctx, cfg, log)
	if err != nil {
		log.Errorf("create tracker app: %v", err)
		os.Exit(1)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Run()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := app.Shutdown(shutdownCtx); err != nil {
			log.Errorf("shutdown tracker app: %v", err)
		}
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("tracker failed: %v", err)
			_ = log.Close()
			os.Exit(1)
		}
	}
}
