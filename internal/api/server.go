// Package api exposes the clinical analyses over HTTP.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/cds-rules-server/internal/domain"
	"github.com/cds-rules-server/internal/history"
	"github.com/cds-rules-server/internal/middleware"
	"github.com/cds-rules-server/internal/rules"
	"github.com/cds-rules-server/internal/service"
)

// Server represents the HTTP server
type Server struct {
	config   *domain.Config
	logger   *logrus.Logger
	analysis *service.AnalysisService
	registry *rules.Registry
	history  history.Store
	hub      *Hub
	router   *gin.Engine
	server   *http.Server
}

// NewServer creates a new HTTP server instance
func NewServer(
	cfg *domain.Config,
	logger *logrus.Logger,
	analysis *service.AnalysisService,
	registry *rules.Registry,
	historyStore history.Store,
) *Server {
	// Set Gin mode based on environment
	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Add middleware
	router.Use(gin.Recovery())
	router.Use(middleware.CorrelationID())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.RequestLogger(logger))
	router.Use(corsMiddleware())

	if cfg.Server.RateLimitRPS > 0 {
		limiter := middleware.NewRateLimiter(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst)
		router.Use(limiter.Middleware())
	}

	server := &Server{
		config:   cfg,
		logger:   logger,
		analysis: analysis,
		registry: registry,
		history:  historyStore,
		hub:      NewHub(logger),
		router:   router,
	}

	// Setup routes
	server.setupRoutes()

	return server
}

// Start starts the HTTP server and blocks until the context is
// cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	cfg := s.config.Server
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	go s.hub.Run(ctx)

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", addr).Info("HTTP server listening")
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return s.server.Shutdown(shutdownCtx)
}

// Router exposes the underlying engine for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	// Health check endpoint
	s.router.GET("/health", s.handleHealth)

	// API v1 routes
	v1 := s.router.Group("/api/v1")
	{
		patients := v1.Group("/patients/:id")
		{
			patients.GET("/hematological-state", s.handleHematologicalState)
			patients.GET("/systemic-toxicity", s.handleSystemicToxicity)
			patients.GET("/treatment", s.handleTreatment)
		}

		v1.GET("/rules", s.handleListRules)
		v1.GET("/rules/:name", s.handleGetRuleTable)
		v1.GET("/history/:id", s.handlePatientHistory)
		v1.GET("/export", s.handleExportHistory)
		v1.GET("/stream", s.hub.ServeWS)
	}
}

// corsMiddleware adds CORS headers to responses
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Content-Length, Accept-Encoding, X-Correlation-ID")
		c.Header("Access-Control-Expose-Headers", "Content-Length")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
