package collector

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCollector(t *testing.T, maxBytes int64) *Collector {
	t.Helper()
	c, err := New(Config{
		Dir:      filepath.Join(t.TempDir(), "collected"),
		Rate:     1000,
		Burst:    10,
		MaxBytes: maxBytes,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return c
}

func TestCollectOne_LocalFile(t *testing.T) {
	c := newTestCollector(t, 0)
	src := filepath.Join(t.TempDir(), "memo.txt")
	require.NoError(t, os.WriteFile(src, []byte("privileged"), 0o644))
	mtime := time.Date(2023, 6, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, os.Chtimes(src, mtime, mtime))

	doc, err := c.CollectOne(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, src, doc.Source)
	assert.Equal(t, filepath.Join(c.Dir(), "memo.txt"), doc.LocalPath)
	assert.True(t, doc.ModTime.Equal(mtime))

	data, err := os.ReadFile(doc.LocalPath)
	require.NoError(t, err)
	assert.Equal(t, "privileged", string(data))
}

func TestCollectOne_FileAlreadyInCollectionDir(t *testing.T) {
	c := newTestCollector(t, 0)
	dest := filepath.Join(c.Dir(), "inplace.txt")
	require.NoError(t, os.WriteFile(dest, []byte("kept"), 0o644))

	doc, err := c.CollectOne(context.Background(), dest)
	require.NoError(t, err)
	assert.Equal(t, dest, doc.LocalPath)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "kept", string(data))
}

func TestCollectOne_Errors(t *testing.T) {
	c := newTestCollector(t, 0)

	_, err := c.CollectOne(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrUnsupportedSource)

	_, err = c.CollectOne(context.Background(), "ftp://example.com/a.txt")
	assert.ErrorIs(t, err, ErrUnsupportedSource)

	_, err = c.CollectOne(context.Background(), filepath.Join(t.TempDir(), "missing.txt"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = c.CollectOne(context.Background(), t.TempDir())
	assert.Error(t, err)
}

func TestCollectOne_Download(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Last-Modified", "Wed, 21 Oct 2015 07:28:00 GMT")
		io.WriteString(w, "downloaded body")
	}))
	defer srv.Close()

	c := newTestCollector(t, 0)
	doc, err := c.CollectOne(context.Background(), srv.URL+"/files/report.txt")
	require.NoError(t, err)

	assert.Equal(t, "docinsight/1.0 (Go)", gotUA)
	assert.Equal(t, filepath.Join(c.Dir(), "report.txt"), doc.LocalPath)
	assert.Equal(t, 2015, doc.ModTime.Year())
	data, err := os.ReadFile(doc.LocalPath)
	require.NoError(t, err)
	assert.Equal(t, "downloaded body", string(data))
}

func TestCollectOne_DownloadDefaultName(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "x")
	}))
	defer srv.Close()

	c := newTestCollector(t, 0)
	doc, err := c.CollectOne(context.Background(), srv.URL+"/")
	require.NoError(t, err)
	assert.Equal(t, DefaultDownloadName, filepath.Base(doc.LocalPath))
}

func TestCollectOne_DownloadStatusMapping(t *testing.T) {
	tests := []struct {
		status    int
		retryable bool
	}{
		{http.StatusTooManyRequests, true},
		{http.StatusBadGateway, true},
		{http.StatusNotFound, false},
		{http.StatusForbidden, false},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "nope", tt.status)
			}))
			defer srv.Close()

			c := newTestCollector(t, 0)
			_, err := c.CollectOne(context.Background(), srv.URL+"/doc.pdf")
			require.Error(t, err)

			var re *RetryableError
			assert.Equal(t, tt.retryable, errors.As(err, &re))
			if tt.retryable {
				assert.Equal(t, tt.status, re.StatusCode)
			}
			entries, _ := os.ReadDir(c.Dir())
			assert.Empty(t, entries, "failed downloads leave nothing behind")
		})
	}
}

func TestCollectOne_DownloadTooLarge(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, strings.Repeat("a", 100))
	}))
	defer srv.Close()

	c := newTestCollector(t, 10)
	_, err := c.CollectOne(context.Background(), srv.URL+"/big.txt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds max size")
	_, statErr := os.Stat(filepath.Join(c.Dir(), "big.txt"))
	assert.ErrorIs(t, statErr, os.ErrNotExist)
}

func TestCollect_SkipsBlankAndFailing(t *testing.T) {
	c := newTestCollector(t, 0)
	good := filepath.Join(t.TempDir(), "good.txt")
	require.NoError(t, os.WriteFile(good, []byte("ok"), 0o644))

	docs := c.Collect(context.Background(), []string{"", good, "/nonexistent/file.txt", "  "})
	require.Len(t, docs, 1)
	assert.Equal(t, good, docs[0].Source)
}

func TestSave(t *testing.T) {
	c := newTestCollector(t, 0)
	doc, err := c.Save("", "../../etc/passwd.txt", strings.NewReader("uploaded"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(c.Dir(), "passwd.txt"), doc.LocalPath)

	data, err := os.ReadFile(doc.LocalPath)
	require.NoError(t, err)
	assert.Equal(t, "uploaded", string(data))

	doc, err = c.Save("../01H8", "passwd.txt", strings.NewReader("keyed"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(c.Dir(), "01H8", "passwd.txt"), doc.LocalPath)
	data, err = os.ReadFile(doc.LocalPath)
	require.NoError(t, err)
	assert.Equal(t, "keyed", string(data))
}

func TestCollectFor_SameBasenameDifferentKeys(t *testing.T) {
	c := newTestCollector(t, 0)
	east := filepath.Join(t.TempDir(), "report.txt")
	west := filepath.Join(t.TempDir(), "report.txt")
	require.NoError(t, os.WriteFile(east, []byte("east ledger"), 0o644))
	require.NoError(t, os.WriteFile(west, []byte("west ledger"), 0o644))

	a, err := c.CollectFor(context.Background(), "01A", east)
	require.NoError(t, err)
	b, err := c.CollectFor(context.Background(), "01B", west)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(c.Dir(), "01A", "report.txt"), a.LocalPath)
	assert.Equal(t, filepath.Join(c.Dir(), "01B", "report.txt"), b.LocalPath)
	for path, want := range map[string]string{a.LocalPath: "east ledger", b.LocalPath: "west ledger"} {
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, want, string(data))
	}

	// Collecting a file already in its key directory leaves it in place.
	again, err := c.CollectFor(context.Background(), "01A", a.LocalPath)
	require.NoError(t, err)
	assert.Equal(t, a.LocalPath, again.LocalPath)
}

func TestCollectFor_DownloadUsesKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "from "+r.URL.Path)
	}))
	defer srv.Close()

	c := newTestCollector(t, 0)
	a, err := c.CollectFor(context.Background(), "01A", srv.URL+"/east/report.txt")
	require.NoError(t, err)
	b, err := c.CollectFor(context.Background(), "01B", srv.URL+"/west/report.txt")
	require.NoError(t, err)
	require.NotEqual(t, a.LocalPath, b.LocalPath)

	data, err := os.ReadFile(a.LocalPath)
	require.NoError(t, err)
	assert.Equal(t, "from /east/report.txt", string(data))
	data, err = os.ReadFile(b.LocalPath)
	require.NoError(t, err)
	assert.Equal(t, "from /west/report.txt", string(data))
}

func TestSanitizeFilename(t *testing.T) {
	tests := map[string]string{
		"report.pdf":       "report.pdf",
		"a/b/c.txt":        "c.txt",
		"..":               "_",
		"":                 "unnamed",
		`dir\evil..name.md`: `dir_evil_name.md`,
	}
	for in, want := range tests {
		assert.Equal(t, want, SanitizeFilename(in), "input %q", in)
	}
}
