// Package watch queues ingestion jobs for documents dropped into a directory.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/dgallion1/docinsight/internal/parser"
	"github.com/dgallion1/docinsight/internal/pipeline"
)

const DefaultDebounce = 2 * time.Second

// Submitter accepts ingestion jobs.
type Submitter interface {
	Submit(job *pipeline.Job) error
}

// Watcher submits one job per supported file created or written in dir,
// once writes to that file have been quiet for the debounce interval.
type Watcher struct {
	dir      string
	debounce time.Duration
	submit   Submitter
	log      *slog.Logger

	mu      sync.Mutex
	pending map[string]*time.Timer
	closed  bool
}

func New(dir string, submit Submitter, debounce time.Duration, log *slog.Logger) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		dir:      dir,
		debounce: debounce,
		submit:   submit,
		log:      log,
		pending:  make(map[string]*time.Timer),
	}
}

// Run watches until ctx is cancelled. Pending debounced files are dropped
// on exit, including timers already firing, so no job is submitted after
// Run returns. A Watcher runs once.
func (w *Watcher) Run(ctx context.Context) error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("create watch dir: %w", err)
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()
	if err := fw.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}
	w.log.Info("watching drop directory", "dir", w.dir, "debounce", w.debounce)

	defer w.stopPending()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if w.accept(ev) {
				w.schedule(ev.Name)
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watch error", "error", err)
		}
	}
}

// accept reports whether ev concerns a supported, visible regular file
// that was created or written.
func (w *Watcher) accept(ev fsnotify.Event) bool {
	if !ev.Op.Has(fsnotify.Create) && !ev.Op.Has(fsnotify.Write) {
		return false
	}
	base := filepath.Base(ev.Name)
	if strings.HasPrefix(base, ".") || !parser.IsSupportedExtension(base) {
		return false
	}
	info, err := os.Stat(ev.Name)
	return err == nil && info.Mode().IsRegular()
}

func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	if t, ok := w.pending[path]; ok {
		t.Reset(w.debounce)
		return
	}
	w.pending[path] = time.AfterFunc(w.debounce, func() { w.fire(path) })
}

func (w *Watcher) fire(path string) {
	w.mu.Lock()
	closed := w.closed
	delete(w.pending, path)
	w.mu.Unlock()
	if closed {
		return
	}

	job := pipeline.NewJob(path, "", false)
	if err := w.submit.Submit(job); err != nil {
		w.log.Error("submit dropped file", "path", path, "error", err)
		return
	}
	w.log.Info("queued dropped file", "path", path, "job_id", job.ID)
}

func (w *Watcher) stopPending() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	for path, t := range w.pending {
		t.Stop()
		delete(w.pending, path)
	}
}
