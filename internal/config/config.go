// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/parsalaw/lawfetch/internal/fetch"
	"github.com/parsalaw/lawfetch/internal/scorer"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server       ServerConfig                   `mapstructure:"server"`
	Auth         AuthConfig                     `mapstructure:"auth"`
	Fetch        FetchConfig                    `mapstructure:"fetch"`
	Strategies   StrategiesConfig               `mapstructure:"strategies"`
	DNS          DNSConfig                      `mapstructure:"dns"`
	Detector     DetectorConfig                 `mapstructure:"detector"`
	Scoring      ScoringConfig                  `mapstructure:"scoring"`
	RateLimit    RateLimitConfig                `mapstructure:"rate_limit"`
	Headless     HeadlessConfig                 `mapstructure:"headless"`
	Store        StoreConfig                    `mapstructure:"store"`
	Archive      ArchiveConfig                  `mapstructure:"archive"`
	PubSub       PubSubConfig                   `mapstructure:"pubsub"`
	Logging      LoggingConfig                  `mapstructure:"logging"`
	StandardJobs map[string]fetch.JobParameters `mapstructure:"standard_jobs"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// AuthConfig defines API authentication toggles.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

// FetchConfig governs the retry loop and worker pool.
type FetchConfig struct {
	Concurrency         int      `mapstructure:"concurrency"`
	QueueDepth          int      `mapstructure:"queue_depth"`
	MaxAttempts         int      `mapstructure:"max_attempts"`
	StrategyOrder       []string `mapstructure:"strategy_order"`
	TimeoutSeconds      int      `mapstructure:"timeout_seconds"`
	StrategyDelayMs     int      `mapstructure:"strategy_delay_ms"`
	RoundDelayInitialMs int      `mapstructure:"round_delay_initial_ms"`
	RoundDelayMaxMs     int      `mapstructure:"round_delay_max_ms"`
	MinContentBytes     int      `mapstructure:"min_content_bytes"`
	InsecureTLS         bool     `mapstructure:"insecure_tls"`
}

// StrategiesConfig configures the per-strategy request shaping.
type StrategiesConfig struct {
	RelayBase        string            `mapstructure:"relay_base"`
	BrowserUserAgent string            `mapstructure:"browser_user_agent"`
	BotUserAgent     string            `mapstructure:"bot_user_agent"`
	AcceptLanguage   string            `mapstructure:"accept_language"`
	MirrorHosts      map[string]string `mapstructure:"mirror_hosts"`
}

// DNSConfig lists alternate resolvers for the DNS strategy.
type DNSConfig struct {
	Servers        []string `mapstructure:"servers"`
	TimeoutSeconds int      `mapstructure:"timeout_seconds"`
}

// DetectorConfig extends the built-in blocked-content markers.
type DetectorConfig struct {
	ExtraMarkers []string `mapstructure:"extra_markers"`
}

// ScoringConfig optionally replaces the built-in keyword categories.
type ScoringConfig struct {
	Categories []scorer.Category `mapstructure:"categories"`
}

// RateLimitConfig bounds outbound request rates per host.
type RateLimitConfig struct {
	DefaultRPS   float64            `mapstructure:"default_rps"`
	DefaultBurst int                `mapstructure:"default_burst"`
	HostRPS      map[string]float64 `mapstructure:"host_rps"`
}

// HeadlessConfig configures the headless rendering subsystem.
type HeadlessConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxParallel   int  `mapstructure:"max_parallel"`
	NavTimeoutSec int  `mapstructure:"nav_timeout_seconds"`
}

// StoreConfig selects the document store backend.
type StoreConfig struct {
	Backend      string `mapstructure:"backend"`
	DSN          string `mapstructure:"dsn"`
	Path         string `mapstructure:"path"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MinOpenConns int    `mapstructure:"min_open_conns"`
}

// ArchiveConfig selects where raw page snapshots are written.
type ArchiveConfig struct {
	Backend   string `mapstructure:"backend"`
	BaseDir   string `mapstructure:"base_dir"`
	GCSBucket string `mapstructure:"gcs_bucket"`
}

// PubSubConfig holds metadata for publish-subscribe notifications.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// LoggingConfig controls the zap logger mode and minimum level.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("LAWFETCH")
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
	v.SetDefault("server.port", 8080)
	v.SetDefault("fetch.concurrency", 4)
	v.SetDefault("fetch.queue_depth", 64)
	v.SetDefault("fetch.max_attempts", 3)
	v.SetDefault("fetch.timeout_seconds", 15)
	v.SetDefault("fetch.strategy_delay_ms", 1000)
	v.SetDefault("fetch.round_delay_initial_ms", 2000)
	v.SetDefault("fetch.round_delay_max_ms", 30000)
	v.SetDefault("fetch.min_content_bytes", 500)
	v.SetDefault("dns.servers", []string{"8.8.8.8", "1.1.1.1", "9.9.9.9"})
	v.SetDefault("dns.timeout_seconds", 5)
	v.SetDefault("rate_limit.default_rps", 1.0)
	v.SetDefault("rate_limit.default_burst", 2)
	v.SetDefault("headless.enabled", false)
	v.SetDefault("headless.max_parallel", 1)
	v.SetDefault("headless.nav_timeout_seconds", 45)
	v.SetDefault("store.backend", "memory")
	v.SetDefault("archive.backend", "memory")
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Fetch.Concurrency <= 0 {
		return fmt.Errorf("fetch.concurrency must be > 0")
	}
	if c.Fetch.MaxAttempts <= 0 {
		return fmt.Errorf("fetch.max_attempts must be > 0")
	}
	if c.Fetch.TimeoutSeconds <= 0 {
		return fmt.Errorf("fetch.timeout_seconds must be > 0")
	}
	switch c.Store.Backend {
	case "memory", "sqlite", "postgres":
	default:
		return fmt.Errorf("store.backend must be one of memory, sqlite, postgres")
	}
	if c.Store.Backend == "postgres" && c.Store.DSN == "" {
		return fmt.Errorf("store.dsn must be set for the postgres backend")
	}
	if c.Store.Backend == "sqlite" && c.Store.Path == "" {
		return fmt.Errorf("store.path must be set for the sqlite backend")
	}
	switch c.Archive.Backend {
	case "memory", "local", "gcs":
	default:
		return fmt.Errorf("archive.backend must be one of memory, local, gcs")
	}
	if c.Archive.Backend == "local" && c.Archive.BaseDir == "" {
		return fmt.Errorf("archive.base_dir must be set for the local backend")
	}
	if c.Archive.Backend == "gcs" && c.Archive.GCSBucket == "" {
		return fmt.Errorf("archive.gcs_bucket must be set for the gcs backend")
	}
	if c.Headless.Enabled && c.Headless.MaxParallel <= 0 {
		return fmt.Errorf("headless.max_parallel must be > 0 when headless is enabled")
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key must be set when auth is enabled")
	}
	return nil
}

// Policy converts the fetch section into the orchestrator's retry policy.
func (c Config) Policy() fetch.Policy {
	order := make([]fetch.StrategyName, 0, len(c.Fetch.StrategyOrder))
	for _, name := range c.Fetch.StrategyOrder {
		order = append(order, fetch.StrategyName(name))
	}
	return fetch.Policy{
		MaxAttempts:        c.Fetch.MaxAttempts,
		StrategyOrder:      order,
		PerStrategyTimeout: time.Duration(c.Fetch.TimeoutSeconds) * time.Second,
		MinContentBytes:    c.Fetch.MinContentBytes,
		Backoff: &fetch.ExponentialBackoff{
			Strategy:  time.Duration(c.Fetch.StrategyDelayMs) * time.Millisecond,
			BaseRound: time.Duration(c.Fetch.RoundDelayInitialMs) * time.Millisecond,
			MaxRound:  time.Duration(c.Fetch.RoundDelayMaxMs) * time.Millisecond,
			Jitter:    true,
		},
	}
}

// RegistryConfig converts the strategies section into registry settings.
func (c Config) RegistryConfig() fetch.RegistryConfig {
	return fetch.RegistryConfig{
		RelayBase:        c.Strategies.RelayBase,
		BrowserUserAgent: c.Strategies.BrowserUserAgent,
		BotUserAgent:     c.Strategies.BotUserAgent,
		AcceptLanguage:   c.Strategies.AcceptLanguage,
		MirrorHosts:      c.Strategies.MirrorHosts,
	}
}

// DNSTimeout returns the resolver dial timeout.
func (c Config) DNSTimeout() time.Duration {
	return time.Duration(c.DNS.TimeoutSeconds) * time.Second
}
