// Package mcp exposes query answering and section search to MCP clients.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/dgallion1/docinsight/internal/doctree"
	"github.com/dgallion1/docinsight/internal/insight"
)

const Version = "0.1.0"

var (
	ErrMissingRetriever = errors.New("mcp: retriever is required")
	ErrMissingSearcher  = errors.New("mcp: section searcher is required")
)

// Retriever answers queries and rebuilds the index.
type Retriever interface {
	AnswerQuery(ctx context.Context, query string) []insight.Insight
	RefreshIndex(ctx context.Context)
	IndexStats() insight.IndexStats
}

// Searcher does keyword search over stored sections.
type Searcher interface {
	SearchSections(ctx context.Context, keywords string, limit int) ([]doctree.SectionRecord, error)
}

// Server is the MCP server for docinsight.
type Server struct {
	retriever Retriever
	searcher  Searcher
	server    *mcp.Server
}

func NewServer(retriever Retriever, searcher Searcher) (*Server, error) {
	if retriever == nil {
		return nil, ErrMissingRetriever
	}
	if searcher == nil {
		return nil, ErrMissingSearcher
	}
	s := &Server{
		retriever: retriever,
		searcher:  searcher,
		server: mcp.NewServer(&mcp.Implementation{
			Name:    "docinsight",
			Version: Version,
		}, nil),
	}
	s.registerTools()
	return s, nil
}

// Run serves over stdio until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// Handler returns the streamable HTTP handler for this server.
func (s *Server) Handler() http.Handler {
	return mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return s.server
	}, nil)
}

// RunHTTP serves streamable HTTP on addr until ctx is cancelled.
func (s *Server) RunHTTP(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	err := httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("mcp http: %w", err)
	}
	return nil
}
