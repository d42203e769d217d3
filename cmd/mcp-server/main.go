package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/cds-rules-server/internal/bootstrap"
	"github.com/cds-rules-server/internal/config"
	"github.com/cds-rules-server/internal/mcp"
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
	// Stdout carries the MCP protocol; keep logs on stderr.
	logger.SetOutput(os.Stderr)
	logger.Info("Starting CDS rules MCP server")

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

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
	mcpServer, err := mcp.NewServer(analysis, registry, historyStore, logger)
	if err != nil {
		log.Fatalf("Failed to create MCP server: %v", err)
	}

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, gracefully shutting down MCP server...")
		cancel()
	}()

	// Run MCP server on stdio
	if err := mcpServer.Run(ctx); err != nil {
		log.Fatalf("MCP server failed: %v", err)
	}

	logger.Info("MCP server stopped")
}
