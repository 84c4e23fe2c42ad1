package app

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/docinsight/internal/config"
	"github.com/dgallion1/docinsight/internal/pathstore"
	"github.com/dgallion1/docinsight/internal/pipeline"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Defaults()
	cfg.DataDir = dir
	cfg.CollectedDir = filepath.Join(dir, "collected")
	cfg.DBPath = filepath.Join(dir, "test.db")
	return cfg
}

func TestNew_IngestAndAnswer(t *testing.T) {
	cfg := testConfig(t)
	var logs bytes.Buffer
	a, err := New(context.Background(), cfg, NewLogger(&logs, "debug", false))
	require.NoError(t, err)
	defer a.Close()

	src := filepath.Join(t.TempDir(), "memo.txt")
	require.NoError(t, os.WriteFile(src, []byte("The wire transfer was approved by the controller."), 0o644))

	snaps := a.Worker.Ingest(context.Background(), []string{src})
	require.Len(t, snaps, 1)
	require.Equal(t, pipeline.StatusCompleted, snaps[0].Status, "errors: %v", snaps[0].Progress.Errors)

	got := a.Engine.AnswerQuery(context.Background(), "wire transfer")
	require.Len(t, got, 1)
	want := "memo (" + filepath.Join(cfg.CollectedDir, snaps[0].DocID, "memo.txt") + ")"
	assert.Equal(t, want, got[0].Citation)
	assert.Equal(t, 1, a.QueryLatency.Snapshot().Count)
	assert.Equal(t, 1, a.RefreshLatency.Snapshot().Count)
	assert.Contains(t, logs.String(), "component=pipeline")
}

func TestNewOrchestrator_UsesConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.MaxQueueSize = 7
	a, err := New(context.Background(), cfg, NewLogger(&bytes.Buffer{}, "info", true))
	require.NoError(t, err)
	defer a.Close()

	o := a.NewOrchestrator()
	assert.Equal(t, 7, o.QueueCapacity())
}

func TestOpenStore(t *testing.T) {
	cfg := testConfig(t)
	cfg.StoreBackend = config.BackendPathstore
	cfg.PathstoreURL = "http://127.0.0.1:1"
	cfg.PathstoreAPIKey = "k"
	st, err := OpenStore(context.Background(), cfg)
	require.NoError(t, err)
	assert.IsType(t, &pathstore.SectionStore{}, st)

	cfg.StoreBackend = "mongo"
	_, err = OpenStore(context.Background(), cfg)
	assert.ErrorContains(t, err, "unknown store backend")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}
