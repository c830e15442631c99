package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/aescanero/ytscope/internal/application/orchestrator"
	"github.com/aescanero/ytscope/internal/application/pipeline"
	"github.com/aescanero/ytscope/internal/config"
	"github.com/aescanero/ytscope/pkg/adapters/cache"
	"github.com/aescanero/ytscope/pkg/adapters/events/memory"
	redisevents "github.com/aescanero/ytscope/pkg/adapters/events/redis"
	"github.com/aescanero/ytscope/pkg/adapters/llm"
	promcollector "github.com/aescanero/ytscope/pkg/adapters/metrics/prometheus"
	"github.com/aescanero/ytscope/pkg/adapters/report"
	"github.com/aescanero/ytscope/pkg/adapters/scraper/reddit"
	"github.com/aescanero/ytscope/pkg/adapters/scraper/youtube"
	memstorage "github.com/aescanero/ytscope/pkg/adapters/storage/memory"
	redisstorage "github.com/aescanero/ytscope/pkg/adapters/storage/redis"
	"github.com/aescanero/ytscope/pkg/adapters/storage/sqlite"
	"github.com/aescanero/ytscope/pkg/ports"
)

// app holds the components shared by every command
type app struct {
	cfg    *config.Config
	logger *zap.Logger

	redis    goredis.UniversalClient
	store    *sqlite.Store
	cache    *cache.AnalysisCache
	registry *prometheus.Registry
	metrics  *promcollector.Collector
	manager  *orchestrator.Manager
	pipeline *pipeline.Pipeline
	renderer *report.Renderer
}

// newApp wires storage, providers and the pipeline. Redis is used for the
// cache second tier when configured.
func newApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	if cfg.Redis.Enabled() {
		client := goredis.NewClient(&goredis.Options{
			Addr:         cfg.Redis.Addr,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			MaxRetries:   cfg.Redis.MaxRetries,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		logger.Info("connected to Redis", zap.String("addr", cfg.Redis.Addr))
		a.redis = client
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		a.Close()
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	store, err := sqlite.Open(ctx, cfg.DatabasePath(), logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.store = store

	a.registry = prometheus.NewRegistry()
	a.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	a.metrics = promcollector.NewCollector(a.registry)

	manager, err := newManager(cfg, logger, a.metrics)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.manager = manager

	a.cache = cache.New(a.redis, cfg.Cache.AnalysisTTL, cfg.Cache.AnalysisMaxEntries, logger)

	opts := []pipeline.Option{
		pipeline.WithScraper(youtube.New(youtube.Config{
			UserAgent: cfg.Scraper.UserAgent,
			Timeout:   cfg.Scraper.Timeout,
			Enrich:    cfg.Scraper.EnrichPages,
		}, logger)),
		pipeline.WithCache(a.cache, cache.Key),
		pipeline.WithMetrics(a.metrics),
	}
	if cfg.Scraper.RedditEnabled {
		opts = append(opts, pipeline.WithScraper(reddit.New(reddit.Config{
			UserAgent: cfg.Scraper.RedditUserAgent,
			Timeout:   cfg.Scraper.Timeout,
		}, logger)))
	}
	a.pipeline = pipeline.New(manager, store, logger, opts...)

	if a.renderer, err = report.NewRenderer(); err != nil {
		a.Close()
		return nil, err
	}

	return a, nil
}

// newManager registers every provider that has an API key and builds the
// orchestrator over them.
func newManager(cfg *config.Config, logger *zap.Logger, metrics ports.MetricsCollector) (*orchestrator.Manager, error) {
	factoryCfg := cfg.FactoryConfig()
	factoryCfg.Logger = logger

	registry := orchestrator.NewRegistry()
	for name, factory := range llm.NewFactories(factoryCfg) {
		if err := registry.Register(name, factory); err != nil {
			return nil, err
		}
	}

	var opts []orchestrator.Option
	if metrics != nil {
		opts = append(opts, orchestrator.WithMetrics(metrics))
	}
	return orchestrator.NewManager(registry, cfg.OrchestratorConfig(), logger, opts...)
}

// taskBackends returns Redis-backed task storage and events when Redis is
// configured, in-memory ones otherwise.
func (a *app) taskBackends() (ports.TaskStorage, ports.EventBus, error) {
	if a.redis == nil {
		a.logger.Info("Redis not configured, using in-memory task storage and events")
		return memstorage.NewTaskStorage(), memory.NewInMemoryEventBus(a.logger), nil
	}

	hostname, _ := os.Hostname()
	bus, err := redisevents.NewStreamsEventBus(
		a.redis,
		"ytscope-workers",
		fmt.Sprintf("ytscope-%s-%d", hostname, os.Getpid()),
		a.logger,
	)
	if err != nil {
		return nil, nil, err
	}
	return redisstorage.NewTaskStorage(a.redis, a.cfg.Cache.TaskTTL, a.logger), bus, nil
}

// Close releases storage and connections
func (a *app) Close() {
	var errs []error
	if a.store != nil {
		errs = append(errs, a.store.Close())
	}
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	if err := errors.Join(errs...); err != nil {
		a.logger.Error("close error", zap.Error(err))
	}
}
