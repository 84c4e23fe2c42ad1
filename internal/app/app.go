// Package app wires configuration into the store, collector, retrieval
// engine and ingestion pipeline shared by the server and CLI binaries.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/dgallion1/docinsight/internal/chunker"
	"github.com/dgallion1/docinsight/internal/collector"
	"github.com/dgallion1/docinsight/internal/config"
	"github.com/dgallion1/docinsight/internal/insight"
	"github.com/dgallion1/docinsight/internal/parser"
	"github.com/dgallion1/docinsight/internal/pathstore"
	"github.com/dgallion1/docinsight/internal/pipeline"
	"github.com/dgallion1/docinsight/internal/stats"
	"github.com/dgallion1/docinsight/internal/store"
	"github.com/dgallion1/docinsight/internal/store/postgres"
	"github.com/dgallion1/docinsight/internal/store/sqlite"
)

type App struct {
	Config    config.Config
	Log       *slog.Logger
	Store     store.Store
	Collector *collector.Collector
	Engine    *insight.Engine
	Worker    *pipeline.Worker

	QueryLatency   *stats.Latency
	RefreshLatency *stats.Latency
}

// New opens the configured store and builds the components on top of it.
func New(ctx context.Context, cfg config.Config, log *slog.Logger) (*App, error) {
	st, err := OpenStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	col, err := collector.New(collector.Config{
		Dir:       cfg.CollectedDir,
		Timeout:   cfg.DownloadTimeout,
		Rate:      cfg.DownloadRate,
		Burst:     cfg.DownloadBurst,
		UserAgent: cfg.UserAgent,
		MaxBytes:  cfg.MaxUploadBytes,
	}, log.With("component", "collector"))
	if err != nil {
		st.Close()
		return nil, err
	}

	queryLat := stats.NewLatency(cfg.StatsWindow)
	refreshLat := stats.NewLatency(cfg.StatsWindow)
	engine := insight.NewEngine(st,
		insight.NewFormatter(cfg.MaxResults, cfg.MinScore),
		log.With("component", "insight"),
		insight.WithLatency(queryLat, refreshLat),
	)

	worker := pipeline.NewWorker(pipeline.WorkerDeps{
		Collector: col,
		Store:     st,
		Indexer:   engine,
		Parser:    parser.Options{PDFFallbackPdftotext: cfg.PDFFallbackPdftotext},
		Chunker: chunker.Config{
			MaxTokens: cfg.SectionMaxTokens,
			Overlap:   cfg.SectionOverlap,
			MinTokens: 1,
		},
		MaxRetries: cfg.MaxRetries,
	}, log.With("component", "pipeline"))

	return &App{
		Config:         cfg,
		Log:            log,
		Store:          st,
		Collector:      col,
		Engine:         engine,
		Worker:         worker,
		QueryLatency:   queryLat,
		RefreshLatency: refreshLat,
	}, nil
}

// NewOrchestrator returns an unstarted job pipeline driven by the app's worker.
func (a *App) NewOrchestrator() *pipeline.Orchestrator {
	return pipeline.NewOrchestrator(a.Worker, pipeline.Options{
		Workers:   a.Config.WorkerCount,
		QueueSize: a.Config.MaxQueueSize,
		JobTTL:    a.Config.JobTTL,
	}, a.Log.With("component", "orchestrator"))
}

func (a *App) Close() error {
	return a.Store.Close()
}

// OpenStore opens the section store named by cfg.StoreBackend.
func OpenStore(ctx context.Context, cfg config.Config) (store.Store, error) {
	switch cfg.StoreBackend {
	case config.BackendSQLite, "":
		return sqlite.Open(cfg.DBPath)
	case config.BackendPostgres:
		return postgres.Open(ctx, cfg.PostgresDSN)
	case config.BackendPathstore:
		client := pathstore.NewClient(cfg.PathstoreURL, cfg.PathstoreAPIKey)
		return pathstore.NewSectionStore(client, cfg.PathstorePrefix, cfg.PathstoreListLimit), nil
	}
	return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
}

// NewLogger builds a slog logger at the named level ("debug", "info",
// "warn", "error"). Unknown levels fall back to info.
func NewLogger(w io.Writer, level string, json bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}
	if json {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
