package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dgallion1/docinsight/internal/collector"
	"github.com/dgallion1/docinsight/internal/config"
	"github.com/dgallion1/docinsight/internal/insight"
	"github.com/dgallion1/docinsight/internal/pipeline"
	"github.com/dgallion1/docinsight/internal/stats"
	"github.com/dgallion1/docinsight/internal/store"
)

// Pipeline queues ingestion jobs.
type Pipeline interface {
	Submit(job *pipeline.Job) error
	GetJob(id string) *pipeline.Job
	QueueDepth() int
}

// Uploads stores uploaded files where the pipeline can collect them.
type Uploads interface {
	Save(key, name string, r io.Reader) (collector.Collected, error)
}

// Retriever answers queries against the section index.
type Retriever interface {
	AnswerQuery(ctx context.Context, query string) []insight.Insight
	RefreshIndex(ctx context.Context)
	IndexStats() insight.IndexStats
}

// Deps are the collaborators behind the HTTP API.
type Deps struct {
	Pipeline       Pipeline
	Uploads        Uploads
	Engine         Retriever
	Store          store.Store
	QueryLatency   *stats.Latency
	RefreshLatency *stats.Latency
}

// Server is the HTTP API server for docinsight.
type Server struct {
	router chi.Router
	deps   Deps
	log    *slog.Logger
	cfg    config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(deps Deps, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		deps: deps,
		log:  log,
		cfg:  cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	r.Get("/health", s.handleHealth)

	r.Group(func(r chi.Router) {
		if s.cfg.APIKey != "" {
			r.Use(AuthMiddleware(s.cfg.APIKey, s.log))
		}

		r.Post("/api/collect", s.handleCollect)
		r.Post("/api/upload", s.handleUpload)
		r.Post("/api/upload/batch", s.handleBatchUpload)
		r.Get("/api/jobs/{jobID}", s.handleJobStatus)

		r.Get("/api/query", s.handleQuery)
		r.Post("/api/query", s.handleQuery)
		r.Get("/api/index", s.handleIndexStats)
		r.Post("/api/index/refresh", s.handleRefresh)
		r.Get("/api/sections/search", s.handleSearchSections)

		r.Get("/api/documents", s.handleListDocuments)
		r.Delete("/api/documents/{docID}", s.handleDeleteDocument)

		r.Get("/api/stats", s.handleStats)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}
