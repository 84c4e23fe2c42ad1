package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	BackendSQLite    = "sqlite"
	BackendPostgres  = "postgres"
	BackendPathstore = "pathstore"
)

type Config struct {
	Port string `yaml:"port"`

	// Auth. Empty disables bearer auth on /api routes.
	APIKey string `yaml:"api_key"`

	// Paths
	DataDir      string `yaml:"data_dir"`
	CollectedDir string `yaml:"collected_dir"`
	DBPath       string `yaml:"db_path"`

	// Section store
	StoreBackend       string `yaml:"store_backend"`
	PostgresDSN        string `yaml:"postgres_dsn"`
	PathstoreURL       string `yaml:"pathstore_url"`
	PathstoreAPIKey    string `yaml:"pathstore_api_key"`
	PathstorePrefix    string `yaml:"pathstore_prefix"`
	PathstoreListLimit int    `yaml:"pathstore_list_limit"`

	// Retrieval
	MaxResults int     `yaml:"max_results"`
	MinScore   float64 `yaml:"min_score"`

	// Worker pool
	WorkerCount  int `yaml:"worker_count"`
	MaxQueueSize int `yaml:"max_queue_size"`
	MaxRetries   int `yaml:"max_retries"`

	// Upload limits
	MaxUploadBytes int64 `yaml:"max_upload_bytes"`

	// Sectioning
	SectionMaxTokens int `yaml:"section_max_tokens"`
	SectionOverlap   int `yaml:"section_overlap"`

	// Job state
	JobTTL time.Duration `yaml:"job_ttl"`

	// PDF
	PDFFallbackPdftotext bool `yaml:"pdf_fallback_pdftotext"`

	// Collector
	DownloadTimeout time.Duration `yaml:"download_timeout"`
	DownloadRate    float64       `yaml:"download_rate"`
	DownloadBurst   int           `yaml:"download_burst"`
	UserAgent       string        `yaml:"user_agent"`

	// Drop directory watched for new documents. Empty disables it.
	WatchDir string `yaml:"watch_dir"`

	StatsWindow time.Duration `yaml:"stats_window"`
	LogLevel    string        `yaml:"log_level"`
}

// Defaults returns the configuration used when nothing else is set.
func Defaults() Config {
	return Config{
		Port:                 "8090",
		DataDir:              "data",
		StoreBackend:         BackendSQLite,
		PathstoreURL:         "http://localhost:8080",
		PathstorePrefix:      "ediscovery",
		PathstoreListLimit:   10000,
		MaxResults:           3,
		MinScore:             0.05,
		WorkerCount:          4,
		MaxQueueSize:         100,
		MaxRetries:           3,
		MaxUploadBytes:       52428800, // 50MB
		SectionMaxTokens:     1500,
		SectionOverlap:       0,
		JobTTL:               1 * time.Hour,
		PDFFallbackPdftotext: true,
		DownloadTimeout:      60 * time.Second,
		DownloadRate:         2,
		DownloadBurst:        2,
		UserAgent:            "docinsight/1.0 (Go)",
		StatsWindow:          1 * time.Hour,
		LogLevel:             "info",
	}
}

// Load reads .env (if present), the YAML file named by CONFIG_FILE (if set)
// and then the environment, in increasing order of precedence.
func Load() (Config, error) {
	return LoadFile(os.Getenv("CONFIG_FILE"))
}

// LoadFile is Load with an explicit YAML path. An empty path skips the file.
func LoadFile(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := Defaults()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	cfg.clamp()
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Port = envOr("PORT", c.Port)
	c.APIKey = envOr("DOCINSIGHT_API_KEY", c.APIKey)

	c.DataDir = envOr("DATA_DIR", c.DataDir)
	c.CollectedDir = envOr("COLLECTED_DIR", c.CollectedDir)
	c.DBPath = envOr("DB_PATH", c.DBPath)

	c.StoreBackend = envOr("STORE_BACKEND", c.StoreBackend)
	c.PostgresDSN = envOr("POSTGRES_DSN", c.PostgresDSN)
	c.PathstoreURL = envOr("PATHSTORE_URL", c.PathstoreURL)
	c.PathstoreAPIKey = envOr("PATHSTORE_API_KEY", c.PathstoreAPIKey)
	c.PathstorePrefix = envOr("PATHSTORE_PREFIX", c.PathstorePrefix)
	c.PathstoreListLimit = envInt("PATHSTORE_LIST_LIMIT", c.PathstoreListLimit)

	c.MaxResults = envInt("MAX_RESULTS", c.MaxResults)
	c.MinScore = envFloat("MIN_SCORE", c.MinScore)

	c.WorkerCount = envInt("WORKER_COUNT", c.WorkerCount)
	c.MaxQueueSize = envInt("MAX_QUEUE_SIZE", c.MaxQueueSize)
	c.MaxRetries = envInt("MAX_RETRIES", c.MaxRetries)

	c.MaxUploadBytes = envInt64("MAX_UPLOAD_BYTES", c.MaxUploadBytes)

	c.SectionMaxTokens = envInt("SECTION_MAX_TOKENS", c.SectionMaxTokens)
	c.SectionOverlap = envInt("SECTION_OVERLAP", c.SectionOverlap)

	c.JobTTL = envDuration("JOB_TTL", c.JobTTL)
	c.PDFFallbackPdftotext = envBool("PDF_FALLBACK_PDFTOTEXT", c.PDFFallbackPdftotext)

	c.DownloadTimeout = envDuration("DOWNLOAD_TIMEOUT", c.DownloadTimeout)
	c.DownloadRate = envFloat("DOWNLOAD_RATE", c.DownloadRate)
	c.DownloadBurst = envInt("DOWNLOAD_BURST", c.DownloadBurst)
	c.UserAgent = envOr("USER_AGENT", c.UserAgent)

	c.WatchDir = envOr("WATCH_DIR", c.WatchDir)
	c.StatsWindow = envDuration("STATS_WINDOW", c.StatsWindow)
	c.LogLevel = envOr("LOG_LEVEL", c.LogLevel)
}

func (c *Config) clamp() {
	d := Defaults()
	if c.DataDir == "" {
		c.DataDir = d.DataDir
	}
	if c.CollectedDir == "" {
		c.CollectedDir = filepath.Join(c.DataDir, "collected")
	}
	if c.DBPath == "" {
		c.DBPath = filepath.Join(c.DataDir, "ediscovery.db")
	}
	if c.StoreBackend == "" {
		c.StoreBackend = d.StoreBackend
	}
	if c.PathstoreListLimit <= 0 {
		c.PathstoreListLimit = d.PathstoreListLimit
	}
	if c.WorkerCount <= 0 {
		c.WorkerCount = d.WorkerCount
	}
	if c.MaxQueueSize <= 0 {
		c.MaxQueueSize = d.MaxQueueSize
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = d.MaxRetries
	}
	if c.MaxUploadBytes <= 0 {
		c.MaxUploadBytes = d.MaxUploadBytes
	}
	if c.SectionMaxTokens <= 0 {
		c.SectionMaxTokens = d.SectionMaxTokens
	}
	if c.SectionOverlap < 0 {
		c.SectionOverlap = 0
	}
	if c.JobTTL <= 0 {
		c.JobTTL = d.JobTTL
	}
	if c.DownloadTimeout <= 0 {
		c.DownloadTimeout = d.DownloadTimeout
	}
	if c.DownloadRate <= 0 {
		c.DownloadRate = d.DownloadRate
	}
	if c.DownloadBurst <= 0 {
		c.DownloadBurst = d.DownloadBurst
	}
	if c.StatsWindow <= 0 {
		c.StatsWindow = d.StatsWindow
	}
}

func (c Config) Validate() error {
	switch c.StoreBackend {
	case BackendSQLite:
	case BackendPostgres:
		if c.PostgresDSN == "" {
			return fmt.Errorf("POSTGRES_DSN is required for the postgres backend")
		}
	case BackendPathstore:
		if c.PathstoreURL == "" {
			return fmt.Errorf("PATHSTORE_URL is required for the pathstore backend")
		}
		if c.PathstoreAPIKey == "" {
			return fmt.Errorf("PATHSTORE_API_KEY is required for the pathstore backend")
		}
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}
	if c.MaxResults < 1 {
		return fmt.Errorf("MAX_RESULTS must be at least 1, got %d", c.MaxResults)
	}
	if c.MinScore < 0 || c.MinScore > 1 {
		return fmt.Errorf("MIN_SCORE must be within [0,1], got %g", c.MinScore)
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
