package pipeline

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/aescanero/ytscope/internal/application/orchestrator"
	"github.com/aescanero/ytscope/pkg/adapters/llm"
	"github.com/aescanero/ytscope/pkg/domain"
	"github.com/aescanero/ytscope/pkg/ports"
)

var (
	// ErrNothingScraped is returned when every requested source failed or came back empty.
	ErrNothingScraped = errors.New("no content scraped")

	// ErrInvalidRequest wraps request validation failures.
	ErrInvalidRequest = errors.New("invalid run request")
)

// Stages reported through ProgressFunc and recorded on item errors.
const (
	StageScrape     = "scrape"
	StageAnalyze    = "analyze"
	StageStoryboard = "storyboard"
	StageSummary    = "summary"
	StageReport     = "report"
	StageDone       = "done"
)

const (
	defaultLimit = 10
	maxLimit     = 50
)

// ProgressFunc receives a snapshot after every step of a run
type ProgressFunc func(domain.Progress)

// CacheKeyFunc derives the analysis cache key of an item
type CacheKeyFunc func(item *domain.ContentItem, provider domain.ProviderName) string

// Option configures a Pipeline
type Option func(*Pipeline)

// WithScraper registers a scraper for its source
func WithScraper(s ports.Scraper) Option {
	return func(p *Pipeline) {
		p.scrapers[s.Source()] = s
	}
}

// WithCache enables analysis caching
func WithCache(cache ports.AnalysisCache, key CacheKeyFunc) Option {
	return func(p *Pipeline) {
		p.cache = cache
		p.cacheKey = key
	}
}

// WithMetrics sets the metrics collector
func WithMetrics(m ports.MetricsCollector) Option {
	return func(p *Pipeline) {
		if m != nil {
			p.metrics = m
		}
	}
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		p.now = now
	}
}

// Pipeline runs one analysis flow end to end
type Pipeline struct {
	manager  *orchestrator.Manager
	repo     ports.ContentRepository
	scrapers map[domain.Source]ports.Scraper
	cache    ports.AnalysisCache
	cacheKey CacheKeyFunc
	metrics  ports.MetricsCollector
	logger   *zap.Logger
	now      func() time.Time
}

// New creates a pipeline
func New(manager *orchestrator.Manager, repo ports.ContentRepository, logger *zap.Logger, opts ...Option) *Pipeline {
	p := &Pipeline{
		manager:  manager,
		repo:     repo,
		scrapers: make(map[domain.Source]ports.Scraper),
		metrics:  noopMetrics{},
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Normalize fills defaults and validates req
func (p *Pipeline) Normalize(req domain.RunRequest) (domain.RunRequest, error) {
	req.Query = strings.TrimSpace(req.Query)
	if req.Query == "" && req.Channel == "" && req.Subreddit == "" {
		return req, fmt.Errorf("%w: query is required", ErrInvalidRequest)
	}

	if len(req.Sources) == 0 {
		req.Sources = []domain.Source{domain.SourceYouTube}
	}
	seen := make(map[domain.Source]bool, len(req.Sources))
	sources := make([]domain.Source, 0, len(req.Sources))
	for _, s := range req.Sources {
		if !s.Valid() {
			return req, fmt.Errorf("%w: unknown source %q", ErrInvalidRequest, s)
		}
		if _, ok := p.scrapers[s]; !ok {
			return req, fmt.Errorf("%w: source %q is not enabled", ErrInvalidRequest, s)
		}
		if !seen[s] {
			seen[s] = true
			sources = append(sources, s)
		}
	}
	req.Sources = sources

	switch {
	case req.Limit <= 0:
		req.Limit = defaultLimit
	case req.Limit > maxLimit:
		req.Limit = maxLimit
	}

	if req.Provider != "" && !req.Provider.Valid() {
		return req, fmt.Errorf("%w: %w", ErrInvalidRequest, domain.ErrInvalidProviderName)
	}
	return req, nil
}

// Run executes the full flow and returns the persisted report. Per-item
// failures are recorded on the report; only scrape and persistence failures
// abort the run.
func (p *Pipeline) Run(ctx context.Context, req domain.RunRequest, progress ProgressFunc) (*domain.Report, error) {
	req, err := p.Normalize(req)
	if err != nil {
		return nil, err
	}
	if progress == nil {
		progress = func(domain.Progress) {}
	}

	report := &domain.Report{
		ID:          uuid.New().String(),
		Query:       req.Query,
		Sources:     req.Sources,
		Analyses:    make(map[string]*domain.Analysis),
		Storyboards: make(map[string]*domain.Storyboard),
		StartedAt:   p.now(),
	}

	// Scrape
	progress(domain.Progress{Stage: StageScrape, Message: "scraping " + joinSources(req.Sources)})
	items := p.scrape(ctx, req)
	if len(items) == 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return nil, ErrNothingScraped
	}
	report.Items = items

	for _, item := range items {
		if err := p.repo.SaveContent(ctx, item); err != nil {
			return nil, fmt.Errorf("failed to save content %s: %w", item.ID, err)
		}
	}

	// Analyze and storyboard
	rec := &recorder{report: report}
	p.processItems(ctx, req, items, rec, progress)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Summarize
	progress(domain.Progress{Stage: StageSummary, Processed: len(items), Total: len(items)})
	report.Summary = p.summarize(ctx, req, items, report, rec)

	// Persist
	progress(domain.Progress{Stage: StageReport, Processed: len(items), Total: len(items)})
	report.Stats = p.manager.GetServiceStats()
	report.Health = p.manager.GetServiceHealth()
	report.GeneratedAt = p.now()

	if err := p.repo.SaveReport(ctx, report); err != nil {
		return nil, fmt.Errorf("failed to save report: %w", err)
	}

	p.logger.Info("pipeline run completed",
		zap.String("report_id", report.ID),
		zap.String("query", req.Query),
		zap.Int("items", len(items)),
		zap.Int("analyses", len(report.Analyses)),
		zap.Int("errors", len(report.Errors)),
		zap.Duration("duration", report.GeneratedAt.Sub(report.StartedAt)))

	progress(domain.Progress{Stage: StageDone, Processed: len(items), Total: len(items), Message: report.ID})
	return report, nil
}

func (p *Pipeline) scrape(ctx context.Context, req domain.RunRequest) []*domain.ContentItem {
	var items []*domain.ContentItem
	seen := make(map[string]bool)

	for _, source := range req.Sources {
		scraped, err := p.scrapers[source].Scrape(ctx, ports.ScrapeRequest{
			Query:     req.Query,
			Limit:     req.Limit,
			Channel:   req.Channel,
			Subreddit: req.Subreddit,
		})
		if err != nil {
			p.logger.Warn("scrape failed",
				zap.String("source", string(source)),
				zap.String("query", req.Query),
				zap.Error(err))
			continue
		}

		p.metrics.RecordItemsScraped(string(source), len(scraped))
		for _, item := range scraped {
			if item == nil || seen[item.ID] {
				continue
			}
			seen[item.ID] = true
			items = append(items, item)
		}
	}
	return items
}

// processItems analyzes items in batches of the configured size. Items of a
// batch run concurrently; every call start waits on the limiter.
func (p *Pipeline) processItems(ctx context.Context, req domain.RunRequest, items []*domain.ContentItem, rec *recorder, progress ProgressFunc) {
	cfg := p.manager.GetConfig()
	limiter := newLimiter(cfg.RateLimitDelay)
	batchSize := max(cfg.BatchSize, 1)
	total := len(items)

	var done int
	for batch := range slices.Chunk(items, batchSize) {
		if ctx.Err() != nil {
			return
		}

		var g errgroup.Group
		for _, item := range batch {
			g.Go(func() error {
				p.processItem(ctx, req, item, limiter, rec)
				return nil
			})
		}
		_ = g.Wait()

		done += len(batch)
		progress(domain.Progress{
			Stage:     StageAnalyze,
			Processed: done,
			Total:     total,
			Message:   fmt.Sprintf("analyzed %d of %d items", done, total),
		})
	}
}

func (p *Pipeline) processItem(ctx context.Context, req domain.RunRequest, item *domain.ContentItem, limiter *rate.Limiter, rec *recorder) {
	analysis, err := p.analyze(ctx, req, item, limiter)
	if err != nil {
		rec.fail(item.ID, StageAnalyze, err)
		p.logger.Warn("analysis failed",
			zap.String("content_id", item.ID),
			zap.Error(err))
		return
	}
	rec.analysis(item.ID, analysis)

	if !req.Storyboards {
		return
	}

	if err := limiter.Wait(ctx); err != nil {
		rec.fail(item.ID, StageStoryboard, err)
		return
	}
	board, err := p.storyboard(ctx, req, item, analysis)
	if err != nil {
		rec.fail(item.ID, StageStoryboard, err)
		p.logger.Warn("storyboard failed",
			zap.String("content_id", item.ID),
			zap.Error(err))
		return
	}
	board.ContentID = item.ID
	if err := p.repo.SaveStoryboard(ctx, board); err != nil {
		p.logger.Warn("failed to save storyboard", zap.String("content_id", item.ID), zap.Error(err))
	}
	rec.storyboard(item.ID, board)
}

func (p *Pipeline) analyze(ctx context.Context, req domain.RunRequest, item *domain.ContentItem, limiter *rate.Limiter) (*domain.Analysis, error) {
	var key string
	if p.cache != nil {
		key = p.cacheKey(item, req.Provider)
		if cached, ok := p.cache.Get(ctx, key); ok {
			p.logger.Debug("analysis cache hit", zap.String("content_id", item.ID))
			return cached, nil
		}
	}

	if err := limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var analysis *domain.Analysis
	var err error
	if req.Provider != "" {
		analysis, err = orchestrator.ExecuteOn(ctx, p.manager, req.Provider, orchestrator.OperationAnalyze,
			func(ctx context.Context, client ports.ProviderClient) (*domain.Analysis, error) {
				return client.AnalyzeContent(ctx, item)
			})
	} else {
		analysis, err = p.manager.AnalyzeContent(ctx, item)
	}
	if err != nil {
		return nil, err
	}
	if analysis == nil {
		return nil, errors.New("provider returned no analysis")
	}

	analysis.ContentID = item.ID
	if analysis.CreatedAt.IsZero() {
		analysis.CreatedAt = p.now()
	}

	if err := p.repo.SaveAnalysis(ctx, analysis); err != nil {
		p.logger.Warn("failed to save analysis", zap.String("content_id", item.ID), zap.Error(err))
	}
	// Defaults are not worth remembering
	if p.cache != nil && !analysis.Fallback {
		p.cache.Set(ctx, key, analysis)
	}
	return analysis, nil
}

func (p *Pipeline) storyboard(ctx context.Context, req domain.RunRequest, item *domain.ContentItem, analysis *domain.Analysis) (*domain.Storyboard, error) {
	var board *domain.Storyboard
	var err error
	if req.Provider != "" {
		board, err = orchestrator.ExecuteOn(ctx, p.manager, req.Provider, orchestrator.OperationStoryboard,
			func(ctx context.Context, client ports.ProviderClient) (*domain.Storyboard, error) {
				return client.GenerateStoryboard(ctx, item, analysis)
			})
	} else {
		board, err = p.manager.GenerateStoryboard(ctx, item, analysis)
	}
	if err != nil {
		return nil, err
	}
	if board == nil {
		return nil, errors.New("provider returned no storyboard")
	}
	return board, nil
}

func (p *Pipeline) summarize(ctx context.Context, req domain.RunRequest, items []*domain.ContentItem, report *domain.Report, rec *recorder) string {
	// Summarize only what was analyzed, in scrape order
	var analyzedItems []*domain.ContentItem
	var analyses []*domain.Analysis
	for _, item := range items {
		if a, ok := report.Analyses[item.ID]; ok {
			analyzedItems = append(analyzedItems, item)
			analyses = append(analyses, a)
		}
	}

	var summary string
	var err error
	if req.Provider != "" {
		summary, err = orchestrator.ExecuteOn(ctx, p.manager, req.Provider, orchestrator.OperationSummary,
			func(ctx context.Context, client ports.ProviderClient) (string, error) {
				return client.GenerateSummary(ctx, analyzedItems, analyses)
			})
	} else {
		summary, err = p.manager.GenerateSummary(ctx, analyzedItems, analyses)
	}
	if err != nil || strings.TrimSpace(summary) == "" {
		if err == nil {
			err = errors.New("empty summary")
		}
		rec.fail("", StageSummary, err)
		p.logger.Warn("summary failed, using default", zap.Error(err))
		return llm.DefaultSummary(analyzedItems)
	}
	return summary
}

// recorder serializes report writes from concurrent item workers
type recorder struct {
	mu     sync.Mutex
	report *domain.Report
}

func (r *recorder) analysis(id string, a *domain.Analysis) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.report.Analyses[id] = a
}

func (r *recorder) storyboard(id string, s *domain.Storyboard) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.report.Storyboards[id] = s
}

func (r *recorder) fail(id, stage string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.report.Errors = append(r.report.Errors, domain.ItemError{ContentID: id, Stage: stage, Message: err.Error()})
}

// newLimiter allows one call start per delay; a zero delay disables pacing.
func newLimiter(delay time.Duration) *rate.Limiter {
	if delay <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(delay), 1)
}

func joinSources(sources []domain.Source) string {
	names := make([]string, len(sources))
	for i, s := range sources {
		names[i] = string(s)
	}
	return strings.Join(names, ", ")
}

type noopMetrics struct{}

func (noopMetrics) RecordProviderAttempt(string, string, string, time.Duration) {}
func (noopMetrics) RecordFallback(string, string, string)                      {}
func (noopMetrics) RecordOperationResult(string, string)                       {}
func (noopMetrics) SetProviderHealth(string, float64)                          {}
func (noopMetrics) RecordTaskSubmitted()                                       {}
func (noopMetrics) RecordTaskCompleted(string, time.Duration)                  {}
func (noopMetrics) RecordItemsScraped(string, int)                             {}
func (noopMetrics) RecordWorkerPoolStatus(int, int, int)                       {}
