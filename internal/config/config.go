package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/ncbi/ncbi-cxx-toolkit-public-sub014/internal/model"
)

// Config represents the gateway configuration
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Cache       CacheConfig       `mapstructure:"cache"`
	Storage     StorageConfig     `mapstructure:"storage"`
	Fetch       FetchConfig       `mapstructure:"fetch"`
	Resolve     ResolveConfig     `mapstructure:"resolve"`
	Exclude     ExcludeConfig     `mapstructure:"exclude"`
	Admission   AdmissionConfig   `mapstructure:"admission"`
	RateLimiter RateLimiterConfig `mapstructure:"rate_limiter"`
	Metrics     MetricsConfig     `mapstructure:"metrics"`
	Logging     LoggingConfig     `mapstructure:"logging"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
}

// CacheConfig selects the local cache tier
type CacheConfig struct {
	Backend string      `mapstructure:"backend"` // bolt, redis, memory or none
	Bolt    BoltConfig  `mapstructure:"bolt"`
	Redis   RedisConfig `mapstructure:"redis"`
}

// BoltConfig represents the bbolt cache file
type BoltConfig struct {
	Path string `mapstructure:"path"`
}

// RedisConfig represents the redis cache tier
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// StorageConfig selects the remote storage tier
type StorageConfig struct {
	Backend  string         `mapstructure:"backend"` // postgres or memory
	Postgres PostgresConfig `mapstructure:"postgres"`
	Fixtures string         `mapstructure:"fixtures"`
}

// PostgresConfig represents PostgreSQL storage configuration
type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MinConnections int    `mapstructure:"min_connections"`
}

// FetchConfig sizes the pool running storage queries
type FetchConfig struct {
	Workers   int `mapstructure:"workers"`
	QueueSize int `mapstructure:"queue_size"`
}

// ResolveConfig represents resolution defaults
type ResolveConfig struct {
	AccSubstitution string        `mapstructure:"acc_substitution"`
	RaceTiers       bool          `mapstructure:"race_tiers"`
	AnnounceTimeout time.Duration `mapstructure:"announce_timeout"`
}

// ExcludeConfig represents exclude cache limits
type ExcludeConfig struct {
	MaxEntriesPerClient int           `mapstructure:"max_entries_per_client"`
	StaleAfter          time.Duration `mapstructure:"stale_after"`
	PurgeInterval       time.Duration `mapstructure:"purge_interval"`
}

// AdmissionConfig limits concurrently running processors
type AdmissionConfig struct {
	MaxActivePerType int `mapstructure:"max_active_per_type"`
}

// RateLimiterConfig represents per-client rate limiting
type RateLimiterConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

// MetricsConfig represents Prometheus metrics configuration
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Host == "" {
		return errors.New("server.host is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return errors.New("server.port must be between 1 and 65535")
	}

	switch c.Cache.Backend {
	case "bolt":
		if c.Cache.Bolt.Path == "" {
			return errors.New("cache.bolt.path is required for the bolt backend")
		}
	case "redis":
		if c.Cache.Redis.Host == "" {
			return errors.New("cache.redis.host is required for the redis backend")
		}
	case "memory", "none":
	default:
		return fmt.Errorf("cache.backend must be one of: bolt, redis, memory, none (got %q)", c.Cache.Backend)
	}

	switch c.Storage.Backend {
	case "postgres":
		if c.Storage.Postgres.Host == "" {
			return errors.New("storage.postgres.host is required")
		}
		if c.Storage.Postgres.Database == "" {
			return errors.New("storage.postgres.database is required")
		}
		if c.Storage.Postgres.User == "" {
			return errors.New("storage.postgres.user is required")
		}
	case "memory":
	default:
		return fmt.Errorf("storage.backend must be one of: postgres, memory (got %q)", c.Storage.Backend)
	}

	if c.Fetch.Workers <= 0 {
		return errors.New("fetch.workers must be positive")
	}
	if c.Fetch.QueueSize <= 0 {
		return errors.New("fetch.queue_size must be positive")
	}
	if _, err := model.ParseAccSubstitution(c.Resolve.AccSubstitution); err != nil {
		return fmt.Errorf("resolve.acc_substitution: %w", err)
	}
	if c.Resolve.AnnounceTimeout <= 0 {
		return errors.New("resolve.announce_timeout must be positive")
	}
	if c.Exclude.MaxEntriesPerClient <= 0 {
		return errors.New("exclude.max_entries_per_client must be positive")
	}
	if c.Admission.MaxActivePerType <= 0 {
		return errors.New("admission.max_active_per_type must be positive")
	}
	if c.RateLimiter.Enabled && c.RateLimiter.RequestsPerSecond <= 0 {
		return errors.New("rate_limiter.requests_per_second must be positive")
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
	return nil
}

// DefaultConfig returns default configuration values
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            2180,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			RequestTimeout:  20 * time.Second,
		},
		Cache: CacheConfig{
			Backend: "bolt",
			Bolt: BoltConfig{
				Path: "/var/lib/seqgate/cache.db",
			},
			Redis: RedisConfig{
				Host: "localhost",
				Port: 6379,
			},
		},
		Storage: StorageConfig{
			Backend: "postgres",
			Postgres: PostgresConfig{
				Host:           "localhost",
				Port:           5432,
				Database:       "seqgate",
				User:           "seqgate",
				MaxConnections: 50,
				MinConnections: 5,
			},
		},
		Fetch: FetchConfig{
			Workers:   64,
			QueueSize: 4096,
		},
		Resolve: ResolveConfig{
			AccSubstitution: "default",
			RaceTiers:       false,
			AnnounceTimeout: 5 * time.Second,
		},
		Exclude: ExcludeConfig{
			MaxEntriesPerClient: 1000,
			StaleAfter:          10 * time.Minute,
			PurgeInterval:       time.Minute,
		},
		Admission: AdmissionConfig{
			MaxActivePerType: 512,
		},
		RateLimiter: RateLimiterConfig{
			Enabled:           false,
			RequestsPerSecond: 1000,
			Burst:             2000,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}
