package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadFile_Defaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	cfg, err := LoadFile("")
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.MaxResults != 3 || cfg.MinScore != 0.05 {
		t.Errorf("retrieval defaults = %d/%g, want 3/0.05", cfg.MaxResults, cfg.MinScore)
	}
	if cfg.StoreBackend != BackendSQLite {
		t.Errorf("StoreBackend = %q", cfg.StoreBackend)
	}
	if cfg.DBPath != filepath.Join("data", "ediscovery.db") {
		t.Errorf("DBPath = %q", cfg.DBPath)
	}
	if cfg.CollectedDir != filepath.Join("data", "collected") {
		t.Errorf("CollectedDir = %q", cfg.CollectedDir)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoadFile_YAMLThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "docinsight.yaml")
	yml := strings.Join([]string{
		"max_results: 5",
		"min_score: 0.2",
		"data_dir: " + dir,
		"job_ttl: 30m",
		"store_backend: postgres",
		"postgres_dsn: postgres://localhost/test",
	}, "\n")
	if err := os.WriteFile(path, []byte(yml), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("MAX_RESULTS", "8")

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.MaxResults != 8 {
		t.Errorf("env should win over file: MaxResults = %d", cfg.MaxResults)
	}
	if cfg.MinScore != 0.2 {
		t.Errorf("MinScore = %g, want 0.2 from file", cfg.MinScore)
	}
	if cfg.JobTTL != 30*time.Minute {
		t.Errorf("JobTTL = %v", cfg.JobTTL)
	}
	if cfg.DBPath != filepath.Join(dir, "ediscovery.db") {
		t.Errorf("DBPath should follow data_dir, got %q", cfg.DBPath)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLoadFile_MissingFile(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestLoad_InvalidEnvKeepsFallback(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("WORKER_COUNT", "lots")
	t.Setenv("MIN_SCORE", "high")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.WorkerCount != 4 {
		t.Errorf("WorkerCount = %d, want 4", cfg.WorkerCount)
	}
	if cfg.MinScore != 0.05 {
		t.Errorf("MinScore = %g, want 0.05", cfg.MinScore)
	}
}

func TestLoad_ClampsNonPositive(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("WORKER_COUNT", "0")
	t.Setenv("SECTION_OVERLAP", "-3")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.WorkerCount != 4 {
		t.Errorf("WorkerCount = %d, want default", cfg.WorkerCount)
	}
	if cfg.SectionOverlap != 0 {
		t.Errorf("SectionOverlap = %d, want 0", cfg.SectionOverlap)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"ok", func(*Config) {}, ""},
		{"unknown backend", func(c *Config) { c.StoreBackend = "mongo" }, "unknown STORE_BACKEND"},
		{"postgres without dsn", func(c *Config) { c.StoreBackend = BackendPostgres }, "POSTGRES_DSN"},
		{"pathstore without key", func(c *Config) { c.StoreBackend = BackendPathstore }, "PATHSTORE_API_KEY"},
		{"pathstore without url", func(c *Config) {
			c.StoreBackend = BackendPathstore
			c.PathstoreURL = ""
			c.PathstoreAPIKey = "k"
		}, "PATHSTORE_URL"},
		{"min score above one", func(c *Config) { c.MinScore = 1.5 }, "MIN_SCORE"},
		{"negative min score", func(c *Config) { c.MinScore = -0.1 }, "MIN_SCORE"},
		{"zero max results", func(c *Config) { c.MaxResults = 0 }, "MAX_RESULTS"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}
