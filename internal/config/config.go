// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/JakeFAU/llmstxt-generator/internal/llmstxt"
)

// Cache backends selectable via cache.backend.
const (
	CacheMemory   = "memory"
	CacheLocal    = "local"
	CacheGCS      = "gcs"
	CachePostgres = "postgres"
	CacheMongo    = "mongo"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Provider ProviderConfig `mapstructure:"provider"`
	Jobs     JobsConfig     `mapstructure:"jobs"`
	Cache    CacheConfig    `mapstructure:"cache"`
	PubSub   PubSubConfig   `mapstructure:"pubsub"`
	Tracing  TracingConfig  `mapstructure:"tracing"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port                  int `mapstructure:"port"`
	RequestTimeoutSeconds int `mapstructure:"request_timeout_seconds"`
}

// AuthConfig defines API authentication toggles.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

// ProviderConfig configures the Firecrawl client and the crawl options sent
// with every submission.
type ProviderConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	APIKey         string `mapstructure:"api_key"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`

	// PagingTimeoutSeconds bounds fetching a completed crawl's result pages.
	PagingTimeoutSeconds int     `mapstructure:"paging_timeout_seconds"`
	MaxConcurrency       int     `mapstructure:"max_concurrency"`
	Proxy                string  `mapstructure:"proxy"`
	Country              string  `mapstructure:"country"`
	CacheMaxAgeMs        int64   `mapstructure:"cache_max_age_ms"`
	RequestsPerSecond    float64 `mapstructure:"requests_per_second"`
	Burst                int     `mapstructure:"burst"`
	CheckURL             string  `mapstructure:"check_url"`
}

// JobsConfig holds orchestration policy.
type JobsConfig struct {
	DefaultPageLimit    int      `mapstructure:"default_page_limit"`
	MaxPageLimit        int      `mapstructure:"max_page_limit"`
	StalenessHours      int      `mapstructure:"staleness_hours"`
	ReapAfterHours      int      `mapstructure:"reap_after_hours"`
	ReapIntervalMinutes int      `mapstructure:"reap_interval_minutes"`
	Languages           []string `mapstructure:"languages"`
}

// CacheConfig selects and configures the manifest cache backend.
type CacheConfig struct {
	Backend         string `mapstructure:"backend"`
	LocalDir        string `mapstructure:"local_dir"`
	GCSBucket       string `mapstructure:"gcs_bucket"`
	GCSPrefix       string `mapstructure:"gcs_prefix"`
	PostgresDSN     string `mapstructure:"postgres_dsn"`
	PostgresTable   string `mapstructure:"postgres_table"`
	PostgresMaxConn int32  `mapstructure:"postgres_max_conns"`
	MongoURI        string `mapstructure:"mongo_uri"`
	MongoDatabase   string `mapstructure:"mongo_database"`
	MongoCollection string `mapstructure:"mongo_collection"`
}

// PubSubConfig holds metadata for completion notifications. An empty
// project ID keeps events in process.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// TracingConfig toggles OpenTelemetry tracing.
type TracingConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	ServiceName string  `mapstructure:"service_name"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("LLMSTXT")
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
	cfg.Cache.Backend = strings.ToLower(strings.TrimSpace(cfg.Cache.Backend))

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// setDefaults registers every key so AutomaticEnv can override it.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.request_timeout_seconds", 60)
	v.SetDefault("auth.enabled", false)
	v.SetDefault("auth.api_key", "")
	v.SetDefault("provider.base_url", "https://api.firecrawl.dev")
	v.SetDefault("provider.api_key", "")
	v.SetDefault("provider.timeout_seconds", 30)
	v.SetDefault("provider.paging_timeout_seconds", 120)
	v.SetDefault("provider.max_concurrency", 20)
	v.SetDefault("provider.proxy", "stealth")
	v.SetDefault("provider.country", "US")
	v.SetDefault("provider.cache_max_age_ms", 604800000)
	v.SetDefault("provider.requests_per_second", 2)
	v.SetDefault("provider.burst", 4)
	v.SetDefault("provider.check_url", "https://www.scrapethissite.com/pages/simple/")
	v.SetDefault("jobs.default_page_limit", llmstxt.DefaultPageLimit)
	v.SetDefault("jobs.max_page_limit", llmstxt.MaxPageLimit)
	v.SetDefault("jobs.staleness_hours", 168)
	v.SetDefault("jobs.reap_after_hours", 24)
	v.SetDefault("jobs.reap_interval_minutes", 10)
	v.SetDefault("jobs.languages", []string{})
	v.SetDefault("cache.backend", CacheMemory)
	v.SetDefault("cache.local_dir", "")
	v.SetDefault("cache.gcs_bucket", "")
	v.SetDefault("cache.gcs_prefix", "manifests")
	v.SetDefault("cache.postgres_dsn", "")
	v.SetDefault("cache.postgres_table", "manifest_cache")
	v.SetDefault("cache.postgres_max_conns", 4)
	v.SetDefault("cache.mongo_uri", "")
	v.SetDefault("cache.mongo_database", "llmstxt")
	v.SetDefault("cache.mongo_collection", "manifests")
	v.SetDefault("pubsub.project_id", "")
	v.SetDefault("pubsub.topic_name", "llmstxt-manifests")
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.service_name", "llmstxt-generator")
	v.SetDefault("tracing.sample_ratio", 1.0)
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Server.RequestTimeoutSeconds <= 0 {
		return fmt.Errorf("server.request_timeout_seconds must be > 0")
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key must be set when auth is enabled")
	}
	if strings.TrimSpace(c.Provider.BaseURL) == "" {
		return fmt.Errorf("provider.base_url is required")
	}
	if strings.TrimSpace(c.Provider.APIKey) == "" {
		return fmt.Errorf("provider.api_key is required")
	}
	if c.Provider.TimeoutSeconds <= 0 {
		return fmt.Errorf("provider.timeout_seconds must be > 0")
	}
	if c.Jobs.MaxPageLimit < llmstxt.MinPageLimit || c.Jobs.MaxPageLimit > llmstxt.MaxPageLimit {
		return fmt.Errorf("jobs.max_page_limit must be between %d and %d", llmstxt.MinPageLimit, llmstxt.MaxPageLimit)
	}
	if c.Jobs.DefaultPageLimit < llmstxt.MinPageLimit || c.Jobs.DefaultPageLimit > c.Jobs.MaxPageLimit {
		return fmt.Errorf("jobs.default_page_limit must be between %d and jobs.max_page_limit", llmstxt.MinPageLimit)
	}
	if c.Jobs.StalenessHours <= 0 {
		return fmt.Errorf("jobs.staleness_hours must be > 0")
	}
	if c.Jobs.ReapAfterHours <= 0 || c.Jobs.ReapIntervalMinutes <= 0 {
		return fmt.Errorf("jobs.reap_after_hours and jobs.reap_interval_minutes must be > 0")
	}
	if c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1 {
		return fmt.Errorf("tracing.sample_ratio must be between 0 and 1")
	}
	return c.Cache.validate()
}

func (c CacheConfig) validate() error {
	switch c.Backend {
	case CacheMemory:
	case CacheLocal:
		if c.LocalDir == "" {
			return fmt.Errorf("cache.local_dir is required for the local backend")
		}
	case CacheGCS:
		if c.GCSBucket == "" {
			return fmt.Errorf("cache.gcs_bucket is required for the gcs backend")
		}
	case CachePostgres:
		if c.PostgresDSN == "" {
			return fmt.Errorf("cache.postgres_dsn is required for the postgres backend")
		}
	case CacheMongo:
		if c.MongoURI == "" {
			return fmt.Errorf("cache.mongo_uri is required for the mongo backend")
		}
	default:
		return fmt.Errorf("unknown cache.backend %q", c.Backend)
	}
	return nil
}

// StalenessThreshold converts jobs.staleness_hours into a duration.
func (c Config) StalenessThreshold() time.Duration {
	return time.Duration(c.Jobs.StalenessHours) * time.Hour
}

// PagingTimeout converts provider.paging_timeout_seconds into a duration.
// Zero leaves the provider client's default in place.
func (c Config) PagingTimeout() time.Duration {
	return time.Duration(c.Provider.PagingTimeoutSeconds) * time.Second
}

// ProviderTimeout converts provider.timeout_seconds into a duration.
func (c Config) ProviderTimeout() time.Duration {
	return time.Duration(c.Provider.TimeoutSeconds) * time.Second
}

// RequestTimeout bounds a single API request.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.Server.RequestTimeoutSeconds) * time.Second
}

// SubmitOptions returns the provider options applied to every crawl.
func (c Config) SubmitOptions() llmstxt.SubmitOptions {
	return llmstxt.SubmitOptions{
		MaxConcurrency: c.Provider.MaxConcurrency,
		Proxy:          c.Provider.Proxy,
		Country:        c.Provider.Country,
		CacheMaxAgeMs:  c.Provider.CacheMaxAgeMs,
	}
}
