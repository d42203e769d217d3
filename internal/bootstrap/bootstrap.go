// Package bootstrap wires configured backends into running services.
// Both entrypoints (HTTP and MCP) share this assembly.
package bootstrap

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/cds-rules-server/internal/database"
	"github.com/cds-rules-server/internal/domain"
	"github.com/cds-rules-server/internal/history"
	"github.com/cds-rules-server/internal/repository"
	"github.com/cds-rules-server/internal/rules"
)

// NewLogger builds the application logger from configuration.
func NewLogger(cfg domain.LoggingConfig) *logrus.Logger {
	logger := logrus.New()

	if strings.ToLower(cfg.Format) == "text" {
		logger.SetFormatter(&logrus.TextFormatter{})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	return logger
}

// NewRegistry loads the rule tables named in configuration, or the
// compiled-in defaults when no path is set.
func NewRegistry(cfg domain.RulesConfig, logger *logrus.Logger) (*rules.Registry, error) {
	return rules.Load(cfg.Path, logger)
}

// NewMeasurementStore builds the configured measurement backend and
// applies the cache and circuit breaker decorators around it. The
// returned cleanup releases the backend's resources.
func NewMeasurementStore(ctx context.Context, cfg *domain.Config, logger *logrus.Logger) (domain.MeasurementStore, func(), error) {
	var store domain.MeasurementStore
	var cleanup func()

	switch cfg.Measurement.Backend {
	case "postgres":
		db, err := database.NewConnection(ctx, cfg.Database, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to measurement database: %w", err)
		}
		store = repository.NewMeasurementRepository(db.Pool, logger)
		cleanup = db.Close

	case "redis":
		redisStore, err := repository.NewRedisMeasurementStore(cfg.Redis, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to redis: %w", err)
		}
		store = redisStore
		cleanup = func() { redisStore.Close() }

	default:
		return nil, nil, fmt.Errorf("unknown measurement backend: %s", cfg.Measurement.Backend)
	}

	if cfg.Measurement.CacheEnabled {
		store = repository.NewCachedStore(store, cfg.Measurement.CacheSize, cfg.Measurement.CacheTTL, logger)
	}
	if cfg.Measurement.BreakerEnabled {
		store = repository.NewResilientStore(store, logger)
	}

	return store, cleanup, nil
}

// NewHistoryStore builds the configured analysis history backend.
func NewHistoryStore(cfg domain.HistoryConfig) (history.Store, error) {
	switch cfg.Backend {
	case "sqlite":
		return history.NewSQLiteStore(cfg.SQLitePath)
	case "postgres":
		return history.NewPostgresStoreFromDSN(cfg.DSN)
	default:
		return nil, fmt.Errorf("unknown history backend: %s", cfg.Backend)
	}
}

// RunMigrations applies pending schema migrations when the measurement
// store runs on Postgres. A blank migrations path disables them.
func RunMigrations(cfg *domain.Config, logger *logrus.Logger) error {
	if cfg.Measurement.Backend != "postgres" || cfg.Database.MigrationsPath == "" {
		return nil
	}

	runner, err := database.NewMigrationRunner(database.URL(cfg.Database), cfg.Database.MigrationsPath, logger)
	if err != nil {
		return fmt.Errorf("creating migration runner: %w", err)
	}
	defer runner.Close()

	return runner.Up()
}
