package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"dash2hls/internal/httpapi"
	"dash2hls/internal/manager"
	"dash2hls/internal/platform/config"
	"dash2hls/internal/platform/logger"
	"dash2hls/internal/platform/metrics"
	"dash2hls/internal/session"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	met := metrics.New()
	mgr := manager.New(cfg.OutputRoot, log, met)
	mgr.SetDefaults(session.Config{
		PollInterval:      cfg.DefaultPollInterval,
		WindowSize:        cfg.DefaultWindowSize,
		HistorySize:       cfg.DefaultHistorySize,
		Mp4decryptPath:    cfg.Mp4decryptPath,
		HTTPClientTimeout: cfg.HTTPClientTimeout,
		SubprocessTimeout: cfg.SubprocessTimeout,
	})
	h := httpapi.NewHandler(mgr, log, met)

	r := chi.NewRouter()
	r.Use(logger.RequestLogger(log))
	r.Use(metrics.RequestMiddleware(met))
	httpapi.Routes(r, h, met, mgr.ActiveCount)

	addr := ":" + cfg.Port
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	log.Info("server starting",
		"port", cfg.Port,
		"output_root", cfg.OutputRoot,
		"default_poll_interval", cfg.DefaultPollInterval,
		"log_level", cfg.LogLevel,
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Info("shutdown signal received, draining connections")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("shutdown error", "error", err)
		os.Exit(1)
	}

	log.Info("server stopped")
}
