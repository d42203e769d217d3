// Package config loads and validates application configuration.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/cds-rules-server/internal/domain"
)

// Manager loads configuration via Viper: YAML file, CDS_-prefixed
// environment variables, and defaults, in that order of precedence.
type Manager struct {
	config *domain.Config
}

// NewManager creates a configuration manager and loads configuration.
func NewManager() (*Manager, error) {
	m := &Manager{}
	if err := m.loadConfig(); err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	return m, nil
}

func (m *Manager) loadConfig() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/cds-rules-server/")

	viper.SetEnvPrefix("CDS")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	m.setDefaults()

	// The config file is optional; defaults and env vars suffice.
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("reading config file: %w", err)
		}
	}

	config := &domain.Config{}
	if err := viper.Unmarshal(config); err != nil {
		return fmt.Errorf("unmarshaling config: %w", err)
	}

	m.config = config
	return nil
}

func (m *Manager) setDefaults() {
	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "30s")
	viper.SetDefault("server.idle_timeout", "120s")
	viper.SetDefault("server.rate_limit_rps", 20)
	viper.SetDefault("server.rate_limit_burst", 40)

	// Database defaults
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.database", "cds_rules")
	viper.SetDefault("database.username", "postgres")
	viper.SetDefault("database.password", "")
	viper.SetDefault("database.ssl_mode", "disable")
	viper.SetDefault("database.max_conns", 25)
	viper.SetDefault("database.min_conns", 5)
	viper.SetDefault("database.conn_max_lifetime", "5m")
	viper.SetDefault("database.conn_max_idle_time", "30m")
	viper.SetDefault("database.migrations_path", "migrations")

	// Redis defaults
	viper.SetDefault("redis.url", "redis://localhost:6379")
	viper.SetDefault("redis.pool_size", 10)
	viper.SetDefault("redis.pool_timeout", "4s")
	viper.SetDefault("redis.max_retries", 3)

	// Measurement store defaults
	viper.SetDefault("measurement.backend", "postgres")
	viper.SetDefault("measurement.cache_enabled", false)
	viper.SetDefault("measurement.cache_size", 1024)
	viper.SetDefault("measurement.cache_ttl", "30s")
	viper.SetDefault("measurement.breaker_enabled", true)

	// Rules defaults: empty path means compiled-in tables.
	viper.SetDefault("rules.path", "")

	// History defaults
	viper.SetDefault("history.backend", "sqlite")
	viper.SetDefault("history.sqlite_path", "data/history.db")
	viper.SetDefault("history.dsn", "")

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
}

// GetConfig returns the complete configuration.
func (m *Manager) GetConfig() *domain.Config {
	return m.config
}

// Validate checks the configuration for inconsistencies.
func (m *Manager) Validate() error {
	config := m.config

	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	switch config.Measurement.Backend {
	case "postgres":
		if config.Database.Host == "" {
			return fmt.Errorf("database host is required")
		}
		if config.Database.Database == "" {
			return fmt.Errorf("database name is required")
		}
		if config.Database.Username == "" {
			return fmt.Errorf("database username is required")
		}
	case "redis":
		if config.Redis.URL == "" {
			return fmt.Errorf("redis URL is required")
		}
	default:
		return fmt.Errorf("unknown measurement backend: %s", config.Measurement.Backend)
	}

	switch config.History.Backend {
	case "sqlite":
		if config.History.SQLitePath == "" {
			return fmt.Errorf("history sqlite path is required")
		}
	case "postgres":
		if config.History.DSN == "" {
			return fmt.Errorf("history DSN is required")
		}
	default:
		return fmt.Errorf("unknown history backend: %s", config.History.Backend)
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(config.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", config.Logging.Level)
	}

	return nil
}
