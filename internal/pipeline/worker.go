package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dgallion1/docinsight/internal/chunker"
	"github.com/dgallion1/docinsight/internal/collector"
	"github.com/dgallion1/docinsight/internal/doctree"
	"github.com/dgallion1/docinsight/internal/parser"
	"github.com/dgallion1/docinsight/internal/store"
)

// Collector fetches a source into local storage under a per-document key,
// so concurrent jobs never share a collected file.
type Collector interface {
	CollectFor(ctx context.Context, key, source string) (collector.Collected, error)
}

// Indexer rebuilds the retrieval index after new sections are stored.
type Indexer interface {
	RefreshIndex(ctx context.Context)
}

// WorkerDeps are the collaborators a Worker drives.
type WorkerDeps struct {
	Collector  Collector
	Store      store.Store
	Indexer    Indexer // optional
	Parser     parser.Options
	Chunker    chunker.Config
	MaxRetries int
}

// Worker runs the ingestion phases for a job. It holds no per-job
// state and may be shared by many goroutines.
type Worker struct {
	deps WorkerDeps
	log  *slog.Logger
}

func NewWorker(deps WorkerDeps, log *slog.Logger) *Worker {
	if deps.MaxRetries <= 0 {
		deps.MaxRetries = DefaultMaxRetries
	}
	return &Worker{deps: deps, log: log}
}

// Process runs the full pipeline for a job, refreshing the index when
// a new document was stored.
func (w *Worker) Process(ctx context.Context, job *Job) {
	if w.ingest(ctx, job) {
		w.refresh(ctx, job)
	}
}

// Ingest collects, parses and stores every source, then refreshes the
// index once. It blocks until all sources are handled.
func (w *Worker) Ingest(ctx context.Context, sources []string) []JobSnapshot {
	var all, stored []*Job
	for _, src := range sources {
		if strings.TrimSpace(src) == "" {
			continue
		}
		job := NewJob(src, "", false)
		if w.ingest(ctx, job) {
			stored = append(stored, job)
		}
		all = append(all, job)
	}
	if len(stored) > 0 {
		w.refresh(ctx, stored...)
	}

	snaps := make([]JobSnapshot, len(all))
	for i, j := range all {
		snaps[i] = j.Snapshot()
	}
	return snaps
}

// ingest runs every phase up to storage and reports whether a document
// was stored. Terminal failures are recorded on the job.
func (w *Worker) ingest(ctx context.Context, job *Job) bool {
	log := w.log.With("job_id", job.ID, "doc_id", job.DocID, "source", job.Source)

	// Phase 1: Collect
	job.SetStatus(StatusCollecting, "collecting")
	collected, err := w.collect(ctx, job, log)
	if err != nil {
		log.Error("collect failed", "error", err)
		job.Fail("collecting", err)
		return false
	}

	// Phase 2: Parse
	job.SetStatus(StatusParsing, "parsing")
	tree, err := w.parse(collected)
	if err != nil {
		log.Error("parse failed", "error", err)
		job.Fail("parsing", err)
		return false
	}
	if job.Title != "" {
		tree.Title = job.Title
	}
	if tree.CreatedAt == nil && !collected.ModTime.IsZero() {
		mod := collected.ModTime.UTC()
		tree.CreatedAt = &mod
	}
	job.SetTitle(tree.Title)

	// Phase 2.5: Dedup
	hash := ContentHashHex([]byte(flattenTreeText(tree)))
	job.SetContentHash(hash)
	if !job.Force {
		existing, found, err := w.deps.Store.FindByContentHash(ctx, hash)
		switch {
		case err != nil:
			log.Warn("dedup check failed, proceeding", "error", err)
		case found:
			log.Info("duplicate document, skipping", "existing_doc_id", existing)
			job.MarkDuplicate(existing)
			return false
		}
	}

	// Phase 3: Section
	job.SetStatus(StatusSectioning, "sectioning")
	sections := chunker.Sections(tree, w.deps.Chunker)
	if len(sections) == 0 {
		log.Warn("no sections produced")
	}
	job.SetSections(len(sections), 0)

	// Phase 4: Store
	job.SetStatus(StatusStoring, "storing")
	doc := doctree.ParsedDocument{
		ID:          job.DocID,
		SourcePath:  collected.LocalPath,
		Title:       tree.Title,
		Author:      tree.Author,
		CreatedAt:   tree.CreatedAt,
		Metadata:    tree.Metadata,
		ContentHash: hash,
		Sections:    sections,
	}
	if err := w.deps.Store.StoreDocuments(ctx, []doctree.ParsedDocument{doc}); err != nil {
		log.Error("store failed", "error", err)
		job.Fail("storing", err)
		return false
	}
	job.SetSections(len(sections), len(sections))
	log.Info("document stored", "title", tree.Title, "sections", len(sections))

	if w.deps.Indexer == nil {
		job.SetStatus(StatusCompleted, "done")
	}
	return true
}

// refresh runs the indexing phase for jobs whose documents were stored.
func (w *Worker) refresh(ctx context.Context, jobs ...*Job) {
	if w.deps.Indexer == nil {
		return
	}
	for _, j := range jobs {
		j.SetStatus(StatusIndexing, "indexing")
	}
	w.deps.Indexer.RefreshIndex(ctx)
	for _, j := range jobs {
		j.SetStatus(StatusCompleted, "done")
	}
}

func (w *Worker) collect(ctx context.Context, job *Job, log *slog.Logger) (collector.Collected, error) {
	for attempt := 0; ; attempt++ {
		job.IncrAttempts()
		c, err := w.deps.Collector.CollectFor(ctx, job.DocID, job.Source)
		if err == nil {
			return c, nil
		}
		if !IsRetryable(err) || attempt+1 >= w.deps.MaxRetries {
			return collector.Collected{}, err
		}
		wait := Backoff(attempt)
		log.Warn("retryable collect error", "attempt", attempt, "wait", wait, "error", err)
		job.AddError(err.Error())
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return collector.Collected{}, errors.Join(err, ctx.Err())
		}
	}
}

func (w *Worker) parse(c collector.Collected) (*doctree.DocTree, error) {
	name := filepath.Base(c.LocalPath)
	p, err := parser.ForFile(name, w.deps.Parser)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(c.LocalPath)
	if err != nil {
		return nil, fmt.Errorf("open collected file: %w", err)
	}
	defer f.Close()

	tree, err := p.Parse(f, name)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}
	return tree, nil
}

// flattenTreeText joins all node text in document order for hashing.
func flattenTreeText(tree *doctree.DocTree) string {
	var sb strings.Builder
	var walk func(nodes []*doctree.DocNode)
	walk = func(nodes []*doctree.DocNode) {
		for _, n := range nodes {
			if n.Text != "" {
				if sb.Len() > 0 {
					sb.WriteString("\n")
				}
				sb.WriteString(n.Text)
			}
			walk(n.Children)
		}
	}
	walk(tree.Children)
	return sb.String()
}
