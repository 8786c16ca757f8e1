package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const envPrefix = "IGCRAWL_"

// Config holds all configuration options for the graph crawler
type Config struct {
	Instagram InstagramConfig `yaml:"instagram" json:"instagram"`
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`
	Retry     RetryConfig     `yaml:"retry" json:"retry"`
	Storage   StorageConfig   `yaml:"storage" json:"storage"`
	Crawl     CrawlConfig     `yaml:"crawl" json:"crawl"`
	Metrics   MetricsConfig   `yaml:"metrics" json:"metrics"`
	Logging   LoggingConfig   `yaml:"logging" json:"logging"`
}

// InstagramConfig holds the remote graph API settings
type InstagramConfig struct {
	BaseURL     string        `yaml:"base_url" json:"base_url"`
	AccessToken string        `yaml:"access_token" json:"access_token"`
	ClientID    string        `yaml:"client_id" json:"client_id"`
	Account     string        `yaml:"account" json:"account"`
	Timeout     time.Duration `yaml:"timeout" json:"timeout"`
}

// RateLimitConfig paces calls against the API's hourly budget
type RateLimitConfig struct {
	RequestsPerHour int `yaml:"requests_per_hour" json:"requests_per_hour"`
	Burst           int `yaml:"burst" json:"burst"`
}

// RetryConfig controls transport-level retries in the graph client
type RetryConfig struct {
	Enabled     bool          `yaml:"enabled" json:"enabled"`
	MaxAttempts int           `yaml:"max_attempts" json:"max_attempts"`
	BaseDelay   time.Duration `yaml:"base_delay" json:"base_delay"`
	MaxDelay    time.Duration `yaml:"max_delay" json:"max_delay"`
	Multiplier  float64       `yaml:"multiplier" json:"multiplier"`
	Jitter      float64       `yaml:"jitter" json:"jitter"`
}

// StorageConfig locates the account database
type StorageConfig struct {
	Path string `yaml:"path" json:"path"`
}

// CrawlConfig tunes the crawl controller
type CrawlConfig struct {
	Concurrency   int     `yaml:"concurrency" json:"concurrency"`
	EdgeTolerance float64 `yaml:"edge_tolerance" json:"edge_tolerance"`
	MaxEdgePages  int     `yaml:"max_edge_pages" json:"max_edge_pages"`
}

// MetricsConfig enables the Prometheus endpoint when Addr is set
type MetricsConfig struct {
	Addr string `yaml:"addr" json:"addr"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Instagram: InstagramConfig{
			BaseURL: "https://api.instagram.com",
			Timeout: 30 * time.Second,
		},
		RateLimit: RateLimitConfig{
			// legacy API budget per token
			RequestsPerHour: 5000,
			Burst:           10,
		},
		Retry: RetryConfig{
			Enabled:     true,
			MaxAttempts: 3,
			BaseDelay:   time.Second,
			MaxDelay:    30 * time.Second,
			Multiplier:  2.0,
			Jitter:      0.1,
		},
		Storage: StorageConfig{
			Path: "instagram.sqlite",
		},
		Crawl: CrawlConfig{
			Concurrency:   1,
			EdgeTolerance: 0.10,
			MaxEdgePages:  0,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadFromEnv loads configuration from IGCRAWL_* environment variables
func (c *Config) LoadFromEnv() error {
	var errs []error

	setString := func(name string, dst *string) {
		if v := os.Getenv(envPrefix + name); v != "" {
			*dst = v
		}
	}
	setInt := func(name string, dst *int) {
		if v := os.Getenv(envPrefix + name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", envPrefix, name, err))
				return
			}
			*dst = n
		}
	}

	setString("BASE_URL", &c.Instagram.BaseURL)
	setString("ACCESS_TOKEN", &c.Instagram.AccessToken)
	setString("CLIENT_ID", &c.Instagram.ClientID)
	setString("ACCOUNT", &c.Instagram.Account)
	setInt("REQUESTS_PER_HOUR", &c.RateLimit.RequestsPerHour)
	setInt("MAX_RETRIES", &c.Retry.MaxAttempts)
	setString("DB", &c.Storage.Path)
	setInt("CONCURRENCY", &c.Crawl.Concurrency)
	setString("METRICS_ADDR", &c.Metrics.Addr)
	setString("LOG_LEVEL", &c.Logging.Level)
	setString("LOG_FILE", &c.Logging.File)

	if v := os.Getenv(envPrefix + "EDGE_TOLERANCE"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sEDGE_TOLERANCE: %w", envPrefix, err))
		} else {
			c.Crawl.EdgeTolerance = f
		}
	}
	if v := os.Getenv(envPrefix + "RETRY_ENABLED"); v != "" {
		c.Retry.Enabled = strings.EqualFold(v, "true")
	}

	return errors.Join(errs...)
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	if path == "" {
		path = findConfigFile()
		if path == "" {
			return nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for a config file in standard locations
func findConfigFile() string {
	home := os.Getenv("HOME")
	locations := []string{
		".igcrawl.yaml",
		".igcrawl.yml",
		filepath.Join(home, ".config", "igcrawl", "config.yaml"),
		filepath.Join(home, ".config", "igcrawl", "config.yml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}
	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if c.Instagram.BaseURL == "" {
		errs = append(errs, errors.New("instagram base URL is required"))
	}
	if c.Instagram.Timeout <= 0 {
		errs = append(errs, errors.New("instagram timeout must be positive"))
	}
	if c.RateLimit.RequestsPerHour <= 0 {
		errs = append(errs, errors.New("requests per hour must be positive"))
	}
	if c.RateLimit.Burst <= 0 {
		errs = append(errs, errors.New("burst size must be positive"))
	}
	if c.Retry.MaxAttempts < 0 {
		errs = append(errs, errors.New("max retry attempts cannot be negative"))
	}
	if c.Retry.Enabled && c.Retry.BaseDelay <= 0 {
		errs = append(errs, errors.New("retry base delay must be positive"))
	}
	if c.Storage.Path == "" {
		errs = append(errs, errors.New("storage path is required"))
	}
	if c.Crawl.Concurrency <= 0 {
		errs = append(errs, errors.New("crawl concurrency must be positive"))
	}
	if c.Crawl.Concurrency > 16 {
		errs = append(errs, errors.New("crawl concurrency should not exceed 16"))
	}
	if c.Crawl.EdgeTolerance < 0 || c.Crawl.EdgeTolerance >= 1 {
		errs = append(errs, errors.New("edge tolerance must be in [0, 1)"))
	}
	if c.Crawl.MaxEdgePages < 0 {
		errs = append(errs, errors.New("max edge pages cannot be negative"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "disabled": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Errorf("invalid log level %q", c.Logging.Level))
	}

	return errors.Join(errs...)
}

// Save writes the configuration as YAML. Tokens are written too, so the file
// is created with owner-only permissions.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// MergeCommandLineFlags applies flag overrides. Keys match the CLI flag names.
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if v, ok := flags["access-token"].(string); ok && v != "" {
		c.Instagram.AccessToken = v
	}
	if v, ok := flags["account"].(string); ok && v != "" {
		c.Instagram.Account = v
	}
	if v, ok := flags["base-url"].(string); ok && v != "" {
		c.Instagram.BaseURL = v
	}
	if v, ok := flags["db"].(string); ok && v != "" {
		c.Storage.Path = v
	}
	if v, ok := flags["concurrency"].(int); ok && v > 0 {
		c.Crawl.Concurrency = v
	}
	if v, ok := flags["rate-limit"].(int); ok && v > 0 {
		c.RateLimit.RequestsPerHour = v
	}
	if v, ok := flags["max-retries"].(int); ok && v >= 0 {
		c.Retry.MaxAttempts = v
	}
	if v, ok := flags["metrics-addr"].(string); ok && v != "" {
		c.Metrics.Addr = v
	}
	if v, ok := flags["log-level"].(string); ok && v != "" {
		c.Logging.Level = v
	}
}

// Load loads configuration from all sources with proper precedence:
// flags > environment > .env files > config file > defaults.
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".igcrawl.env"))

	cfg := DefaultConfig()

	if err := cfg.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := cfg.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg.MergeCommandLineFlags(flags)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}
