package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hls-downloader/internal/downloader"
	"hls-downloader/internal/platform/config"
	"hls-downloader/internal/platform/logger"
	"hls-downloader/internal/platform/metrics"
)

const shutdownTimeout = 10 * time.Second

func main() {
	_ = config.Load()
	cfg := config.FromEnv()

	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	workspaces, err := downloader.NewWorkspaces(cfg.WorkDir)
	if err != nil {
		log.Error("work dir unavailable", "work_dir", cfg.WorkDir, "error", err)
		os.Exit(1)
	}

	met := metrics.New()
	registry := downloader.NewInMemoryRegistry()
	fetcher := downloader.NewFetcher(cfg.FetchTimeout, cfg.UserAgent, cfg.MaxManifestBytes)
	runner := downloader.NewRunner(cfg.FFmpegPath)
	svc := downloader.NewService(fetcher, runner, workspaces, registry, met, cfg.TranscodeTimeout)
	h := downloader.NewHandler(svc, log, met)

	r := newRouter(cfg, h, met, registry, log)

	addr := ":" + cfg.Port
	// No WriteTimeout: downloads stream for as long as the transcode runs.
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	log.Info("server starting",
		"port", cfg.Port,
		"ffmpeg", cfg.FFmpegPath,
		"work_dir", workspaces.Root(),
		"fetch_timeout", cfg.FetchTimeout.String(),
		"transcode_timeout", cfg.TranscodeTimeout.String(),
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
