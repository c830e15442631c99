package http

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/aescanero/ytscope/internal/application/orchestrator"
	"github.com/aescanero/ytscope/internal/application/pipeline"
	"github.com/aescanero/ytscope/pkg/adapters/report"
	"github.com/aescanero/ytscope/pkg/ports"
)

// Server represents the HTTP API server
type Server struct {
	router       *gin.Engine
	server       *http.Server
	orchestrator *orchestrator.Manager
	tasks        *pipeline.TaskManager
	repo         ports.ContentRepository
	renderer     *report.Renderer
	logger       *zap.Logger
}

// Config holds HTTP server configuration
type Config struct {
	Port         int
	Orchestrator *orchestrator.Manager
	Tasks        *pipeline.TaskManager
	Repository   ports.ContentRepository
	Renderer     *report.Renderer
	// Gatherer backs /metrics; nil uses the default registry
	Gatherer prometheus.Gatherer
	Logger   *zap.Logger
}

// NewServer creates a new HTTP server
func NewServer(cfg *Config) *Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(cfg.Logger))
	router.Use(corsMiddleware())

	s := &Server{
		router:       router,
		orchestrator: cfg.Orchestrator,
		tasks:        cfg.Tasks,
		repo:         cfg.Repository,
		renderer:     cfg.Renderer,
		logger:       cfg.Logger,
	}

	gatherer := cfg.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	s.setupRoutes(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: router,
	}

	return s
}

// setupRoutes configures API routes
func (s *Server) setupRoutes(metrics http.Handler) {
	s.router.GET("/health", s.handleHealth)
	s.router.GET("/metrics", gin.WrapH(metrics))

	v1 := s.router.Group("/api/v1")
	{
		providers := v1.Group("/providers")
		providers.GET("", s.handleListProviders)
		providers.GET("/config", s.handleGetConfig)
		providers.PUT("/config", s.handleUpdateConfig)
		providers.PUT("/primary", s.handleSetPrimary)
		providers.PUT("/fallback", s.handleSetFallback)
		providers.GET("/stats", s.handleGetStats)
		providers.POST("/stats/reset", s.handleResetStats)
		providers.GET("/health", s.handleProviderHealth)
		providers.POST("/test", s.handleTestProviders)
		providers.POST("/autoconfigure", s.handleAutoConfigure)

		v1.POST("/analyze", s.handleAnalyze)
		v1.POST("/storyboard", s.handleStoryboard)

		v1.POST("/tasks", s.handleSubmitTask)
		v1.GET("/tasks", s.handleListTasks)
		v1.GET("/tasks/:id", s.handleGetTask)
		v1.POST("/tasks/:id/cancel", s.handleCancelTask)

		v1.GET("/content", s.handleListContent)
		v1.GET("/content/:id", s.handleGetContent)
		v1.DELETE("/content/:id", s.handleDeleteContent)
		v1.GET("/content/:id/analysis", s.handleGetAnalysis)
		v1.GET("/content/:id/storyboard", s.handleGetStoryboard)

		v1.GET("/reports", s.handleListReports)
		v1.GET("/reports/:id", s.handleGetReport)
		v1.DELETE("/reports/:id", s.handleDeleteReport)
		v1.GET("/reports/:id/html", s.handleReportHTML)
		v1.GET("/reports/:id/markdown", s.handleReportMarkdown)
	}
}

// SetupWebSocket adds the task streaming handler to the server
func (s *Server) SetupWebSocket(handler interface {
	HandleTaskStream(*gin.Context)
}) {
	s.router.GET("/api/v1/tasks/:id/ws", handler.HandleTaskStream)
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown HTTP server: %w", err)
	}

	s.logger.Info("HTTP server shut down complete")
	return nil
}
