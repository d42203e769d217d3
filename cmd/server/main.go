package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/cds-rules-server/internal/api"
	"github.com/cds-rules-server/internal/bootstrap"
	"github.com/cds-rules-server/internal/config"
	"github.com/cds-rules-server/internal/service"
)

func main() {
	// Load configuration
	configManager, err := config.NewManager()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Validate configuration
	if err := configManager.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	cfg := configManager.GetConfig()
	logger := bootstrap.NewLogger(cfg.Logging)
	logger.WithField("addr", cfg.Server.Host).Info("Starting CDS rules server")

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Apply schema migrations before opening the pool
	if err := bootstrap.RunMigrations(cfg, logger); err != nil {
		log.Fatalf("Migrations failed: %v", err)
	}

	// Wire backends
	registry, err := bootstrap.NewRegistry(cfg.Rules, logger)
	if err != nil {
		log.Fatalf("Failed to load rule tables: %v", err)
	}

	store, cleanup, err := bootstrap.NewMeasurementStore(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("Failed to create measurement store: %v", err)
	}
	defer cleanup()

	historyStore, err := bootstrap.NewHistoryStore(cfg.History)
	if err != nil {
		log.Fatalf("Failed to create history store: %v", err)
	}
	defer historyStore.Close()

	analysis := service.NewAnalysisService(store, registry, logger)
	server := api.NewServer(cfg, logger, analysis, registry, historyStore)

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, gracefully shutting down...")
		cancel()
	}()

	// Start server
	if err := server.Start(ctx); err != nil {
		log.Fatalf("Server failed: %v", err)
	}

	logger.Info("Server stopped")
}
