package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/aescanero/ytscope/internal/application/pipeline"
	"github.com/aescanero/ytscope/internal/application/workers"
	"github.com/aescanero/ytscope/internal/config"
	"github.com/aescanero/ytscope/pkg/api/grpc"
	"github.com/aescanero/ytscope/pkg/api/http"
	"github.com/aescanero/ytscope/pkg/api/websocket"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the API daemon and task workers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := newLogger(cfg.LogLevel)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			return serve(cmd.Context(), cfg, logger)
		},
	}
}

func serve(parent context.Context, cfg *config.Config, logger *zap.Logger) error {
	logger.Info("starting ytscope",
		zap.String("version", Version),
		zap.String("build_time", BuildTime))

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	lock := flock.New(cfg.LockPath())
	ok, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("another ytscope daemon is using %s", cfg.DataDir)
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			logger.Warn("failed to release daemon lock", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	taskStorage, eventBus, err := a.taskBackends()
	if err != nil {
		return err
	}
	defer func() { _ = eventBus.Close() }()

	tasks := pipeline.NewTaskManager(a.pipeline, taskStorage, eventBus, logger,
		pipeline.WithTaskTimeout(cfg.Timeouts.TaskExecution),
		pipeline.WithTaskMetrics(a.metrics))

	workerPool := workers.NewPool(
		cfg.Workers.PoolSize,
		eventBus,
		tasks,
		a.metrics,
		logger,
		cfg.Workers.HealthCheckInterval,
		a.manager,
	)

	grpcServer, err := grpc.NewServer(&grpc.Config{
		Port:   cfg.GRPCPort,
		Logger: logger,
	})
	if err != nil {
		return err
	}
	workerPool.Health().AddObserver(grpcServer.SetProviderHealth)

	if err := workerPool.Start(); err != nil {
		return err
	}

	go a.cache.Run(ctx, cfg.Cache.AnalysisTTL/4)

	httpServer := http.NewServer(&http.Config{
		Port:         cfg.HTTPPort,
		Orchestrator: a.manager,
		Tasks:        tasks,
		Repository:   a.store,
		Renderer:     a.renderer,
		Gatherer:     a.registry,
		Logger:       logger,
	})
	httpServer.SetupWebSocket(websocket.NewHandler(tasks, 0, logger))

	errCh := make(chan error, 2)
	go func() { errCh <- httpServer.Start() }()
	go func() { errCh <- grpcServer.Start() }()

	logger.Info("ytscope started",
		zap.Int("http_port", cfg.HTTPPort),
		zap.Int("grpc_port", cfg.GRPCPort),
		zap.Int("worker_pool_size", cfg.Workers.PoolSize),
		zap.Strings("providers", providerNames(a.manager.Providers())))

	var serveErr error
	select {
	case <-ctx.Done():
		logger.Info("received shutdown signal")
	case serveErr = <-errCh:
		logger.Error("server failed", zap.Error(serveErr))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Timeouts.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}
	if err := grpcServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("gRPC server shutdown error", zap.Error(err))
	}
	if err := workerPool.Shutdown(shutdownCtx); err != nil {
		logger.Error("worker pool shutdown error", zap.Error(err))
	}

	logger.Info("ytscope shut down complete")
	return serveErr
}
