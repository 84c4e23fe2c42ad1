package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgallion1/docinsight/internal/api"
	"github.com/dgallion1/docinsight/internal/app"
	"github.com/dgallion1/docinsight/internal/config"
	"github.com/dgallion1/docinsight/internal/watch"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stdout, nil)).Error("load configuration", "error", err)
		os.Exit(1)
	}
	log := app.NewLogger(os.Stdout, cfg.LogLevel, true)
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Error("initialise app", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	// Initialize pipeline.
	orch := a.NewOrchestrator()
	orch.Start(ctx)

	if cfg.WatchDir != "" {
		w := watch.New(cfg.WatchDir, orch, watch.DefaultDebounce, log.With("component", "watch"))
		go func() {
			if err := w.Run(ctx); err != nil {
				log.Error("watcher stopped", "error", err)
			}
		}()
	}

	a.Engine.RefreshIndex(ctx)

	srv := api.NewServer(api.Deps{
		Pipeline:       orch,
		Uploads:        a.Collector,
		Engine:         a.Engine,
		Store:          a.Store,
		QueryLatency:   a.QueryLatency,
		RefreshLatency: a.RefreshLatency,
	}, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	done := make(chan struct{})
	go func() {
		defer close(done)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Warn("http shutdown", "error", err)
		}
		cancel()
		orch.Stop()
	}()

	log.Info("starting docinsight", "port", cfg.Port, "store", cfg.StoreBackend, "index_sections", a.Engine.IndexStats().Sections)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
	<-done
}
