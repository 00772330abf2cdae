package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/viper"
)

// Load loads configuration from an optional YAML file and SEQGATE_*
// environment variables
func Load(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if configPath != "" {
		v := viper.New()
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")

		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
		}
		if err := v.Unmarshal(cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config: %w", err)
		}
	}

	// Environment variables take precedence over the file
	applyEnvironmentOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// applyEnvironmentOverrides applies environment variable overrides to config
func applyEnvironmentOverrides(cfg *Config) {
	// Server configuration
	if host := os.Getenv("SEQGATE_SERVER_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if port := os.Getenv("SEQGATE_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Server.Port = p
		}
	}

	// Cache configuration
	if backend := os.Getenv("SEQGATE_CACHE_BACKEND"); backend != "" {
		cfg.Cache.Backend = backend
	}
	if path := os.Getenv("SEQGATE_CACHE_BOLT_PATH"); path != "" {
		cfg.Cache.Bolt.Path = path
	}
	if redisHost := os.Getenv("SEQGATE_REDIS_HOST"); redisHost != "" {
		cfg.Cache.Redis.Host = redisHost
	}
	if redisPort := os.Getenv("SEQGATE_REDIS_PORT"); redisPort != "" {
		if p, err := strconv.Atoi(redisPort); err == nil {
			cfg.Cache.Redis.Port = p
		}
	}
	if redisPassword := os.Getenv("SEQGATE_REDIS_PASSWORD"); redisPassword != "" {
		cfg.Cache.Redis.Password = redisPassword
	}

	// Storage configuration
	if backend := os.Getenv("SEQGATE_STORAGE_BACKEND"); backend != "" {
		cfg.Storage.Backend = backend
	}
	if fixtures := os.Getenv("SEQGATE_STORAGE_FIXTURES"); fixtures != "" {
		cfg.Storage.Fixtures = fixtures
	}
	if dbHost := os.Getenv("SEQGATE_DATABASE_HOST"); dbHost != "" {
		cfg.Storage.Postgres.Host = dbHost
	}
	if dbPort := os.Getenv("SEQGATE_DATABASE_PORT"); dbPort != "" {
		if p, err := strconv.Atoi(dbPort); err == nil {
			cfg.Storage.Postgres.Port = p
		}
	}
	if dbName := os.Getenv("SEQGATE_DATABASE_NAME"); dbName != "" {
		cfg.Storage.Postgres.Database = dbName
	}
	if dbUser := os.Getenv("SEQGATE_DATABASE_USER"); dbUser != "" {
		cfg.Storage.Postgres.User = dbUser
	}
	if dbPassword := os.Getenv("SEQGATE_DATABASE_PASSWORD"); dbPassword != "" {
		cfg.Storage.Postgres.Password = dbPassword
	}

	// Resolution
	if sub := os.Getenv("SEQGATE_ACC_SUBSTITUTION"); sub != "" {
		cfg.Resolve.AccSubstitution = sub
	}
	if race := os.Getenv("SEQGATE_RACE_TIERS"); race != "" {
		if b, err := strconv.ParseBool(race); err == nil {
			cfg.Resolve.RaceTiers = b
		}
	}

	// Logging configuration
	if logLevel := os.Getenv("SEQGATE_LOG_LEVEL"); logLevel != "" {
		cfg.Logging.Level = logLevel
	}
}
