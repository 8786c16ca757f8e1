package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "https://api.instagram.com", cfg.Instagram.BaseURL)
	assert.Equal(t, 5000, cfg.RateLimit.RequestsPerHour)
	assert.Equal(t, 1, cfg.Crawl.Concurrency)
	assert.InDelta(t, 0.10, cfg.Crawl.EdgeTolerance, 1e-9)
	assert.Equal(t, "instagram.sqlite", cfg.Storage.Path)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("IGCRAWL_ACCESS_TOKEN", "token-123")
	t.Setenv("IGCRAWL_REQUESTS_PER_HOUR", "500")
	t.Setenv("IGCRAWL_DB", "/tmp/crawl.sqlite")
	t.Setenv("IGCRAWL_CONCURRENCY", "4")
	t.Setenv("IGCRAWL_EDGE_TOLERANCE", "0.2")
	t.Setenv("IGCRAWL_RETRY_ENABLED", "false")
	t.Setenv("IGCRAWL_LOG_LEVEL", "debug")

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromEnv())

	assert.Equal(t, "token-123", cfg.Instagram.AccessToken)
	assert.Equal(t, 500, cfg.RateLimit.RequestsPerHour)
	assert.Equal(t, "/tmp/crawl.sqlite", cfg.Storage.Path)
	assert.Equal(t, 4, cfg.Crawl.Concurrency)
	assert.InDelta(t, 0.2, cfg.Crawl.EdgeTolerance, 1e-9)
	assert.False(t, cfg.Retry.Enabled)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadFromEnvInvalidNumber(t *testing.T) {
	t.Setenv("IGCRAWL_CONCURRENCY", "lots")

	cfg := DefaultConfig()
	err := cfg.LoadFromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "IGCRAWL_CONCURRENCY")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"no base url", func(c *Config) { c.Instagram.BaseURL = "" }, "base URL"},
		{"zero rate", func(c *Config) { c.RateLimit.RequestsPerHour = 0 }, "requests per hour"},
		{"no storage", func(c *Config) { c.Storage.Path = "" }, "storage path"},
		{"zero concurrency", func(c *Config) { c.Crawl.Concurrency = 0 }, "concurrency must be positive"},
		{"too much concurrency", func(c *Config) { c.Crawl.Concurrency = 64 }, "should not exceed"},
		{"tolerance out of range", func(c *Config) { c.Crawl.EdgeTolerance = 1.5 }, "edge tolerance"},
		{"bad log level", func(c *Config) { c.Logging.Level = "chatty" }, "invalid log level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateJoinsErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Storage.Path = ""
	cfg.Crawl.Concurrency = 0

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "storage path")
	assert.Contains(t, err.Error(), "concurrency")
}

func TestMergeCommandLineFlags(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MergeCommandLineFlags(map[string]interface{}{
		"access-token": "flag-token",
		"db":           "flag.sqlite",
		"concurrency":  3,
		"rate-limit":   100,
		"log-level":    "warn",
		"unknown":      true,
	})

	assert.Equal(t, "flag-token", cfg.Instagram.AccessToken)
	assert.Equal(t, "flag.sqlite", cfg.Storage.Path)
	assert.Equal(t, 3, cfg.Crawl.Concurrency)
	assert.Equal(t, 100, cfg.RateLimit.RequestsPerHour)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestSaveAndLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.Storage.Path = "saved.sqlite"
	cfg.Crawl.Concurrency = 2
	cfg.Instagram.Timeout = 5 * time.Second
	require.NoError(t, cfg.Save(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded := DefaultConfig()
	require.NoError(t, loaded.LoadFromFile(path))
	assert.Equal(t, "saved.sqlite", loaded.Storage.Path)
	assert.Equal(t, 2, loaded.Crawl.Concurrency)
	assert.Equal(t, 5*time.Second, loaded.Instagram.Timeout)
}

func TestLoadFromFileInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("crawl: [unterminated"), 0600))

	err := DefaultConfig().LoadFromFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

func TestLoadPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("storage:\n  path: file.sqlite\ncrawl:\n  concurrency: 2\n"), 0600))
	t.Setenv("IGCRAWL_CONCURRENCY", "5")

	cfg, err := Load(path, map[string]interface{}{"db": "flag.sqlite"})
	require.NoError(t, err)

	assert.Equal(t, "flag.sqlite", cfg.Storage.Path)
	assert.Equal(t, 5, cfg.Crawl.Concurrency)
}
