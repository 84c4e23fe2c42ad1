// Package collector copies local files and downloads URLs into the
// collection directory, where the pipeline picks them up for parsing.
package collector

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// DefaultDownloadName names downloads whose URL path has no base name.
const DefaultDownloadName = "downloaded_document"

var (
	// ErrUnsupportedSource is returned for blank sources and non-http(s) URLs.
	ErrUnsupportedSource = errors.New("unsupported source")
	ErrTooLarge          = errors.New("file exceeds max size")
)

// RetryableError marks a download failure that may succeed on retry
// (HTTP 429 and 5xx).
type RetryableError struct {
	StatusCode int
	Message    string
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("retryable error (status %d): %s", e.StatusCode, e.Message)
}

type Config struct {
	Dir       string
	Timeout   time.Duration
	Rate      float64 // downloads per second
	Burst     int
	UserAgent string
	MaxBytes  int64
}

// Collected is a document placed in the collection directory.
type Collected struct {
	Source    string    `json:"source"`
	LocalPath string    `json:"local_path"`
	ModTime   time.Time `json:"mod_time"`
}

// Collector places documents in one directory. Callers that may collect
// concurrently pass a distinct key so each document gets its own
// subdirectory and same-named files cannot overwrite each other.
type Collector struct {
	cfg     Config
	client  *http.Client
	limiter *rate.Limiter
	log     *slog.Logger
}

func New(cfg Config, log *slog.Logger) (*Collector, error) {
	if cfg.Dir == "" {
		return nil, errors.New("collector: directory is required")
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create collection dir: %w", err)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.Rate <= 0 {
		cfg.Rate = 2
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "docinsight/1.0 (Go)"
	}
	return &Collector{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.Rate), cfg.Burst),
		log:     log,
	}, nil
}

// Dir is the collection directory.
func (c *Collector) Dir() string {
	return c.cfg.Dir
}

// Collect gathers every source, logging and skipping the ones that fail.
func (c *Collector) Collect(ctx context.Context, sources []string) []Collected {
	var out []Collected
	for _, src := range sources {
		if strings.TrimSpace(src) == "" {
			continue
		}
		doc, err := c.CollectOne(ctx, src)
		if err != nil {
			c.log.Warn("collect failed", "source", src, "error", err)
			continue
		}
		out = append(out, doc)
	}
	return out
}

// CollectOne copies a local file or downloads an http(s) URL into the
// collection directory itself.
func (c *Collector) CollectOne(ctx context.Context, source string) (Collected, error) {
	return c.CollectFor(ctx, "", source)
}

// CollectFor is CollectOne placing the file under the key subdirectory.
// An empty key uses the collection directory itself.
func (c *Collector) CollectFor(ctx context.Context, key, source string) (Collected, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return Collected{}, fmt.Errorf("%w: empty source", ErrUnsupportedSource)
	}
	if u, err := url.Parse(source); err == nil && strings.Contains(source, "://") {
		switch strings.ToLower(u.Scheme) {
		case "http", "https":
			dir, err := c.subdir(key)
			if err != nil {
				return Collected{}, err
			}
			return c.download(ctx, u, dir)
		case "file":
			source = u.Path
		default:
			return Collected{}, fmt.Errorf("%w: scheme %q", ErrUnsupportedSource, u.Scheme)
		}
	}
	dir, err := c.subdir(key)
	if err != nil {
		return Collected{}, err
	}
	return c.copyLocal(source, dir)
}

// Save stores uploaded bytes under a sanitised name in the key
// subdirectory.
func (c *Collector) Save(key, name string, r io.Reader) (Collected, error) {
	dir, err := c.subdir(key)
	if err != nil {
		return Collected{}, err
	}
	name = SanitizeFilename(name)
	dest := filepath.Join(dir, name)
	if err := c.writeAtomic(dest, r); err != nil {
		return Collected{}, err
	}
	return Collected{Source: name, LocalPath: dest, ModTime: time.Now()}, nil
}

func (c *Collector) subdir(key string) (string, error) {
	if key == "" {
		return c.cfg.Dir, nil
	}
	dir := filepath.Join(c.cfg.Dir, SanitizeFilename(key))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create collection subdir: %w", err)
	}
	return dir, nil
}

func (c *Collector) copyLocal(src, dir string) (Collected, error) {
	info, err := os.Stat(src)
	if err != nil {
		return Collected{}, fmt.Errorf("stat %s: %w", src, err)
	}
	if info.IsDir() {
		return Collected{}, fmt.Errorf("%s is a directory", src)
	}

	dest := filepath.Join(dir, filepath.Base(src))
	doc := Collected{Source: src, LocalPath: dest, ModTime: info.ModTime()}
	if samePath(src, dest) {
		return doc, nil
	}

	f, err := os.Open(src)
	if err != nil {
		return Collected{}, fmt.Errorf("open %s: %w", src, err)
	}
	defer f.Close()
	if err := c.writeAtomic(dest, f); err != nil {
		return Collected{}, err
	}
	c.log.Debug("copied local file", "source", src, "dest", dest)
	return doc, nil
}

func (c *Collector) download(ctx context.Context, u *url.URL, dir string) (Collected, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return Collected{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return Collected{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return Collected{}, fmt.Errorf("download %s: %w", u, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Collected{}, &RetryableError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(body))}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Collected{}, fmt.Errorf("download %s: status %d", u, resp.StatusCode)
	}

	dest := filepath.Join(dir, downloadName(u))
	if err := c.writeAtomic(dest, resp.Body); err != nil {
		return Collected{}, fmt.Errorf("download %s: %w", u, err)
	}

	modTime := time.Now()
	if lm, err := http.ParseTime(resp.Header.Get("Last-Modified")); err == nil {
		modTime = lm
	}
	c.log.Info("downloaded document", "url", u.String(), "dest", dest)
	return Collected{Source: u.String(), LocalPath: dest, ModTime: modTime}, nil
}

// writeAtomic streams r into a temp file beside dest and renames it into
// place, enforcing the size cap.
func (c *Collector) writeAtomic(dest string, r io.Reader) error {
	tmp, err := os.CreateTemp(c.cfg.Dir, ".collect-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	src := r
	if c.cfg.MaxBytes > 0 {
		src = io.LimitReader(r, c.cfg.MaxBytes+1)
	}
	n, err := io.Copy(tmp, src)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if c.cfg.MaxBytes > 0 && n > c.cfg.MaxBytes {
		return fmt.Errorf("%w (%d bytes)", ErrTooLarge, c.cfg.MaxBytes)
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		return fmt.Errorf("move into place: %w", err)
	}
	return nil
}

func downloadName(u *url.URL) string {
	base := path.Base(u.Path)
	if base == "" || base == "." || base == "/" {
		return DefaultDownloadName
	}
	return SanitizeFilename(base)
}

// SanitizeFilename reduces name to a safe base filename.
func SanitizeFilename(name string) string {
	name = filepath.Base(name)
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." {
		name = "unnamed"
	}
	return name
}

func samePath(a, b string) bool {
	aa, err1 := filepath.Abs(a)
	bb, err2 := filepath.Abs(b)
	return err1 == nil && err2 == nil && aa == bb
}
