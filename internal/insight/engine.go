package insight

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dgallion1/docinsight/internal/doctree"
)

// SectionSource supplies a complete, ordered snapshot of stored sections.
type SectionSource interface {
	FetchAllSections(ctx context.Context) ([]doctree.SectionRecord, error)
}

// LatencyRecorder receives operation durations in milliseconds.
type LatencyRecorder interface {
	Record(durationMs int64)
}

// IndexStats describes the currently published index.
type IndexStats struct {
	Sections int       `json:"sections"`
	Terms    int       `json:"terms"`
	BuiltAt  time.Time `json:"built_at,omitzero"`
}

// Engine owns the process-wide index. The index starts empty, is built
// lazily or by RefreshIndex, and is replaced wholesale on every rebuild.
type Engine struct {
	source    SectionSource
	formatter Formatter
	log       *slog.Logger

	mu      sync.Mutex // serializes rebuilds
	current atomic.Pointer[Index]

	queryLatency   LatencyRecorder
	refreshLatency LatencyRecorder
}

// Option configures an Engine.
type Option func(*Engine)

// WithLatency records query and refresh durations.
func WithLatency(query, refresh LatencyRecorder) Option {
	return func(e *Engine) {
		e.queryLatency = query
		e.refreshLatency = refresh
	}
}

func NewEngine(source SectionSource, formatter Formatter, log *slog.Logger, opts ...Option) *Engine {
	e := &Engine{
		source:    source,
		formatter: formatter,
		log:       log,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RefreshIndex rebuilds the index from the source. Failures are logged and
// leave the index empty; nothing is returned to the caller.
func (e *Engine) RefreshIndex(ctx context.Context) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			e.current.Store(nil)
			e.log.Error("index refresh panicked", "panic", fmt.Sprint(r))
		}
		if e.refreshLatency != nil {
			e.refreshLatency.Record(time.Since(start).Milliseconds())
		}
	}()

	if err := e.rebuild(ctx); err != nil {
		e.log.Error("index refresh failed", "error", err)
	}
}

// AnswerQuery returns up to MaxResults insights for query, or nothing when
// the query is blank, nothing matches, or ranking fails.
func (e *Engine) AnswerQuery(ctx context.Context, query string) (insights []Insight) {
	if strings.TrimSpace(query) == "" {
		return nil
	}
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			insights = nil
			e.log.Error("query panicked", "query", query, "panic", fmt.Sprint(r))
		}
		if e.queryLatency != nil {
			e.queryLatency.Record(time.Since(start).Milliseconds())
		}
	}()

	candidates, err := e.search(ctx, query)
	if err != nil {
		e.log.Error("query failed", "query", query, "error", err)
		return nil
	}
	return e.formatter.Format(candidates)
}

// IndexStats reports on the currently published index.
func (e *Engine) IndexStats() IndexStats {
	ix := e.current.Load()
	if ix == nil {
		return IndexStats{}
	}
	return IndexStats{Sections: ix.Len(), Terms: ix.Terms(), BuiltAt: ix.builtAt}
}

// Formatter returns the formatter applied to query results.
func (e *Engine) Formatter() Formatter {
	return e.formatter
}

func (e *Engine) rebuild(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	sections, err := e.source.FetchAllSections(ctx)
	if err != nil {
		e.current.Store(nil)
		return fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
	}
	if len(sections) == 0 {
		e.current.Store(nil)
		e.log.Info("index cleared", "sections", 0)
		return nil
	}

	ix := BuildIndex(sections)
	e.current.Store(ix)
	e.log.Info("index rebuilt", "sections", ix.Len(), "terms", ix.Terms())
	return nil
}

// search ranks all sections, building the index once if it is empty.
func (e *Engine) search(ctx context.Context, query string) ([]Candidate, error) {
	ix := e.current.Load()
	if ix.Len() == 0 {
		if err := e.rebuild(ctx); err != nil {
			return nil, err
		}
		ix = e.current.Load()
		if ix.Len() == 0 {
			return nil, nil
		}
	}
	return ix.Rank(query)
}
