package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kensaku-dev/kensaku/api"
	"github.com/kensaku-dev/kensaku/config"
	"github.com/kensaku-dev/kensaku/fetcher"
	"github.com/kensaku-dev/kensaku/harvester"
	"github.com/kensaku-dev/kensaku/search"
	"github.com/kensaku-dev/kensaku/store"
)

func main() {
	// ── 1. Load configuration ───────────────────────────────────────
	cfg := config.Load()

	// ── 2. Initialise structured logging ────────────────────────────
	initLogger(cfg.Log)
	slog.Info("kensaku starting",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"mode", cfg.Server.Mode,
		"imageMirroring", cfg.Storage.Enabled(),
		"searchConfigured", cfg.Search.APIKey != "",
	)

	// ── 3. Initialise components ────────────────────────────────────
	f := fetcher.New(cfg.Fetch)
	sc := search.NewClient(cfg.Search)

	var hv *harvester.Harvester
	if cfg.Storage.Enabled() {
		st, err := store.New(context.Background(), cfg.Storage)
		if err != nil {
			slog.Error("failed to initialise asset store", "error", err)
			os.Exit(1)
		}
		hv = harvester.New(f, st, cfg.Fetch.MaxImages)
		slog.Info("image mirroring enabled", "bucket", cfg.Storage.Bucket, "region", cfg.Storage.Region)
	} else {
		// No bucket configured: requests still succeed, images stay empty.
		hv = harvester.New(f, nil, cfg.Fetch.MaxImages)
	}

	// ── 4. Setup router ─────────────────────────────────────────────
	startTime := time.Now()
	router := api.NewRouter(f, sc, hv, cfg, startTime)

	// ── 5. Start HTTP server ────────────────────────────────────────
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		slog.Info("HTTP server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// ── 6. Graceful shutdown ────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig.String())

	// Give in-flight requests 5 seconds to complete.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("HTTP server forced shutdown", "error", err)
	} else {
		slog.Info("HTTP server drained gracefully")
	}

	slog.Info("kensaku stopped")
}

// initLogger configures slog based on the LogConfig.
func initLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
