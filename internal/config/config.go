// Package config loads and validates harvester configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	DataRoot string         `mapstructure:"data_root"`
	Harvest  HarvestConfig  `mapstructure:"harvest"`
	Headless HeadlessConfig `mapstructure:"headless"`
	Ops      OpsConfig      `mapstructure:"ops"`
	Enrich   EnrichConfig   `mapstructure:"enrich"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// HarvestConfig governs the worker pool, retry policy and checkpointing.
type HarvestConfig struct {
	Concurrency      int    `mapstructure:"concurrency"`
	MaxRetries       int    `mapstructure:"max_retries"`
	CheckpointEvery  int    `mapstructure:"checkpoint_every"`
	MinContentLength int    `mapstructure:"min_content_length"`
	FetchTimeoutSec  int    `mapstructure:"fetch_timeout_seconds"`
	BackoffBaseMs    int    `mapstructure:"backoff_base_ms"`
	BackoffMaxMs     int    `mapstructure:"backoff_max_ms"`
	ListDelaySeconds int    `mapstructure:"list_delay_seconds"`
	QueueDepth       int    `mapstructure:"queue_depth"`
	UserAgent        string `mapstructure:"user_agent"`
}

// HeadlessConfig configures the browser-backed fetch sessions.
type HeadlessConfig struct {
	NavTimeoutSec int `mapstructure:"nav_timeout_seconds"`
}

// OpsConfig controls the optional health/metrics listener.
type OpsConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// EnrichConfig configures the LLM enrichment pass.
type EnrichConfig struct {
	Model        string `mapstructure:"model"`
	APIKey       string `mapstructure:"api_key"`
	DelaySeconds int    `mapstructure:"delay_seconds"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("HARVESTER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("data_root", "./data")
	v.SetDefault("harvest.concurrency", 8)
	v.SetDefault("harvest.max_retries", 3)
	v.SetDefault("harvest.checkpoint_every", 15)
	v.SetDefault("harvest.min_content_length", 50)
	v.SetDefault("harvest.fetch_timeout_seconds", 45)
	v.SetDefault("harvest.backoff_base_ms", 500)
	v.SetDefault("harvest.backoff_max_ms", 5000)
	v.SetDefault("harvest.list_delay_seconds", 1)
	v.SetDefault("harvest.queue_depth", 256)
	v.SetDefault("harvest.user_agent", "newsroomlab-harvester/0.1")
	v.SetDefault("headless.nav_timeout_seconds", 45)
	v.SetDefault("ops.enabled", false)
	v.SetDefault("ops.port", 9090)
	v.SetDefault("enrich.model", "gemini-1.5-flash-latest")
	v.SetDefault("enrich.delay_seconds", 1)
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if strings.TrimSpace(c.DataRoot) == "" {
		return fmt.Errorf("data_root must be set")
	}
	if c.Harvest.Concurrency <= 0 {
		return fmt.Errorf("harvest.concurrency must be > 0")
	}
	if c.Harvest.MaxRetries <= 0 {
		return fmt.Errorf("harvest.max_retries must be > 0")
	}
	if c.Harvest.CheckpointEvery <= 0 {
		return fmt.Errorf("harvest.checkpoint_every must be > 0")
	}
	if c.Harvest.MinContentLength < 0 {
		return fmt.Errorf("harvest.min_content_length must be >= 0")
	}
	if c.Harvest.FetchTimeoutSec <= 0 {
		return fmt.Errorf("harvest.fetch_timeout_seconds must be > 0")
	}
	if c.Ops.Enabled && c.Ops.Port <= 0 {
		return fmt.Errorf("ops.port must be > 0 when ops is enabled")
	}
	return nil
}

// FetchTimeout returns the per-fetch budget as a duration.
func (c Config) FetchTimeout() time.Duration {
	return time.Duration(c.Harvest.FetchTimeoutSec) * time.Second
}

// BackoffBase returns the base retry delay as a duration.
func (c Config) BackoffBase() time.Duration {
	return time.Duration(c.Harvest.BackoffBaseMs) * time.Millisecond
}

// BackoffMax returns the retry delay cap as a duration.
func (c Config) BackoffMax() time.Duration {
	return time.Duration(c.Harvest.BackoffMaxMs) * time.Millisecond
}
