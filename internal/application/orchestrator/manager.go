package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/aescanero/ytscope/pkg/domain"
	"github.com/aescanero/ytscope/pkg/ports"
)

// Operation names used by the typed helpers
const (
	OperationAnalyze    = "analyze"
	OperationStoryboard = "storyboard"
	OperationSummary    = "summary"
)

// Sleeper waits for d or until ctx is done
type Sleeper func(ctx context.Context, d time.Duration) error

// Option configures a Manager
type Option func(*Manager)

// WithMetrics records attempts, fallbacks and results on collector
func WithMetrics(collector ports.MetricsCollector) Option {
	return func(m *Manager) {
		if collector != nil {
			m.metrics = collector
		}
	}
}

// WithSleeper overrides the backoff wait
func WithSleeper(sleeper Sleeper) Option {
	return func(m *Manager) {
		if sleeper != nil {
			m.sleep = sleeper
		}
	}
}

// WithClock overrides the clock used to time attempts
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// Manager applies retry, timeout and fallback policy to provider calls
type Manager struct {
	registry *Registry
	metrics  ports.MetricsCollector
	logger   *zap.Logger
	sleep    Sleeper
	now      func() time.Time

	mu     sync.RWMutex
	config Config

	stats *statsBook
}

// operationFunc is the untyped form of a provider call
type operationFunc func(ctx context.Context, client ports.ProviderClient) (any, error)

// outcome is the settled result of one provider's retry budget
type outcome struct {
	data any
	err  error
}

// NewManager creates a manager over registry. Stats entries are created for
// every provider registered at this point.
func NewManager(registry *Registry, cfg Config, logger *zap.Logger, opts ...Option) (*Manager, error) {
	if registry == nil {
		return nil, errors.New("orchestrator: nil registry")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := cfg.validate(registry); err != nil {
		return nil, err
	}

	m := &Manager{
		registry: registry,
		metrics:  nopMetrics{},
		logger:   logger,
		sleep:    sleepContext,
		now:      time.Now,
		config:   cfg,
		stats:    newStatsBook(registry.Names()),
	}
	for _, opt := range opts {
		opt(m)
	}

	logger.Info("orchestration manager initialized",
		zap.String("primary", string(cfg.Primary)),
		zap.String("fallback", string(cfg.Fallback)),
		zap.Int("retry_attempts", cfg.RetryAttempts),
		zap.Duration("timeout", cfg.Timeout),
		zap.Bool("fallback_enabled", cfg.FallbackEnabled))

	return m, nil
}

// ExecuteWithFallback runs call on the primary provider and, once the
// primary's retry budget is spent, on the fallback provider.
func ExecuteWithFallback[T any](ctx context.Context, m *Manager, operation string, call func(context.Context, ports.ProviderClient) (T, error)) (T, error) {
	var zero T
	data, err := m.execute(ctx, operation, func(ctx context.Context, client ports.ProviderClient) (any, error) {
		return call(ctx, client)
	})
	if err != nil {
		return zero, err
	}
	value, _ := data.(T)
	return value, nil
}

// ExecuteOn runs call on a single provider with the configured retry and
// timeout policy and no fallback. The provider is resolved as GetService does.
func ExecuteOn[T any](ctx context.Context, m *Manager, preferred domain.ProviderName, operation string, call func(context.Context, ports.ProviderClient) (T, error)) (T, error) {
	var zero T
	cfg := m.GetConfig()
	name := m.resolve(preferred, cfg)

	res := m.tryServiceOperation(ctx, cfg, name, operation, func(ctx context.Context, client ports.ProviderClient) (any, error) {
		return call(ctx, client)
	})
	if res.err != nil {
		m.metrics.RecordOperationResult(operation, "failure")
		if ctxErr := ctx.Err(); ctxErr != nil {
			return zero, fmt.Errorf("%s: %w", operation, ctxErr)
		}
		return zero, &ExhaustedError{Operation: operation, Primary: name, PrimaryErr: res.err}
	}
	m.metrics.RecordOperationResult(operation, "success")
	value, _ := res.data.(T)
	return value, nil
}

// AnalyzeContent analyzes one content item
func (m *Manager) AnalyzeContent(ctx context.Context, item *domain.ContentItem) (*domain.Analysis, error) {
	return ExecuteWithFallback(ctx, m, OperationAnalyze, func(ctx context.Context, client ports.ProviderClient) (*domain.Analysis, error) {
		return client.AnalyzeContent(ctx, item)
	})
}

// GenerateStoryboard builds a storyboard for an analyzed item
func (m *Manager) GenerateStoryboard(ctx context.Context, item *domain.ContentItem, analysis *domain.Analysis) (*domain.Storyboard, error) {
	return ExecuteWithFallback(ctx, m, OperationStoryboard, func(ctx context.Context, client ports.ProviderClient) (*domain.Storyboard, error) {
		return client.GenerateStoryboard(ctx, item, analysis)
	})
}

// GenerateSummary summarizes a batch of analyzed items
func (m *Manager) GenerateSummary(ctx context.Context, items []*domain.ContentItem, analyses []*domain.Analysis) (string, error) {
	return ExecuteWithFallback(ctx, m, OperationSummary, func(ctx context.Context, client ports.ProviderClient) (string, error) {
		return client.GenerateSummary(ctx, items, analyses)
	})
}

func (m *Manager) execute(ctx context.Context, operation string, call operationFunc) (any, error) {
	cfg := m.GetConfig()

	primary := m.tryServiceOperation(ctx, cfg, cfg.Primary, operation, call)
	if primary.err == nil {
		m.metrics.RecordOperationResult(operation, "success")
		return primary.data, nil
	}

	// Caller gave up, the fallback would only burn its budget on a dead context
	if ctxErr := ctx.Err(); ctxErr != nil {
		m.metrics.RecordOperationResult(operation, "failure")
		return nil, fmt.Errorf("%s: %w", operation, ctxErr)
	}

	exhausted := &ExhaustedError{
		Operation:  operation,
		Primary:    cfg.Primary,
		PrimaryErr: primary.err,
	}

	if cfg.FallbackEnabled && cfg.Fallback != "" && cfg.Fallback != cfg.Primary {
		m.logger.Warn("primary provider exhausted, trying fallback",
			zap.String("operation", operation),
			zap.String("primary", string(cfg.Primary)),
			zap.String("fallback", string(cfg.Fallback)),
			zap.Error(primary.err))
		m.metrics.RecordFallback(operation, string(cfg.Primary), string(cfg.Fallback))

		fallback := m.tryServiceOperation(ctx, cfg, cfg.Fallback, operation, call)
		if fallback.err == nil {
			m.metrics.RecordOperationResult(operation, "fallback_success")
			return fallback.data, nil
		}

		m.logger.Error("fallback provider failed",
			zap.String("operation", operation),
			zap.String("fallback", string(cfg.Fallback)),
			zap.Error(fallback.err))
		exhausted.Fallback = cfg.Fallback
		exhausted.FallbackErr = fallback.err
	}

	m.metrics.RecordOperationResult(operation, "failure")
	return nil, exhausted
}

// tryServiceOperation spends one provider's retry budget on call
func (m *Manager) tryServiceOperation(ctx context.Context, cfg Config, name domain.ProviderName, operation string, call operationFunc) outcome {
	client, err := m.registry.GetInstance(name)
	if err != nil {
		m.logger.Error("provider unavailable",
			zap.String("provider", string(name)),
			zap.String("operation", operation),
			zap.Error(err))
		return outcome{err: err}
	}

	var lastErr error
	for attempt := 1; attempt <= cfg.RetryAttempts; attempt++ {
		m.stats.begin(name)
		start := m.now()

		data, err := m.callWithTimeout(ctx, cfg.Timeout, client, call)
		elapsed := m.now().Sub(start)

		if err == nil {
			m.stats.succeed(name, elapsed)
			m.metrics.RecordProviderAttempt(string(name), operation, "success", elapsed)
			if attempt > 1 {
				m.logger.Info("provider recovered after retry",
					zap.String("provider", string(name)),
					zap.String("operation", operation),
					zap.Int("attempt", attempt))
			}
			return outcome{data: data}
		}

		m.stats.fail(name)
		label := "error"
		if errors.Is(err, ErrOperationTimeout) {
			label = "timeout"
		}
		m.metrics.RecordProviderAttempt(string(name), operation, label, elapsed)
		m.logger.Warn("provider attempt failed",
			zap.String("provider", string(name)),
			zap.String("operation", operation),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", cfg.RetryAttempts),
			zap.Error(err))
		lastErr = err

		if attempt == cfg.RetryAttempts {
			break
		}
		if err := m.sleep(ctx, cfg.RateLimitDelay*time.Duration(attempt)); err != nil {
			break
		}
	}

	return outcome{err: lastErr}
}

// callWithTimeout bounds one attempt. A call that ignores its context is
// abandoned once the deadline passes; its result is discarded.
func (m *Manager) callWithTimeout(ctx context.Context, timeout time.Duration, client ports.ProviderClient, call operationFunc) (any, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		data any
		err  error
	}
	done := make(chan result, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result{err: fmt.Errorf("provider panic: %v", r)}
			}
		}()
		data, err := call(attemptCtx, client)
		done <- result{data: data, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil && ctx.Err() == nil && errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
			return nil, ErrOperationTimeout
		}
		return r.data, r.err
	case <-attemptCtx.Done():
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return nil, ErrOperationTimeout
	}
}

// GetService returns the client for preferred. An empty name resolves to the
// primary; an unregistered one is logged and replaced by the primary.
func (m *Manager) GetService(preferred domain.ProviderName) (ports.ProviderClient, error) {
	return m.registry.GetInstance(m.resolve(preferred, m.GetConfig()))
}

func (m *Manager) resolve(preferred domain.ProviderName, cfg Config) domain.ProviderName {
	if preferred == "" {
		return cfg.Primary
	}
	if !m.registry.Has(preferred) {
		m.logger.Warn("requested provider not available, using primary",
			zap.String("requested", string(preferred)),
			zap.String("primary", string(cfg.Primary)))
		return cfg.Primary
	}
	return preferred
}

// Providers returns the registered provider names
func (m *Manager) Providers() []domain.ProviderName {
	return m.registry.Names()
}

// GetConfig returns a copy of the current configuration
func (m *Manager) GetConfig() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config
}

// SetPrimaryService changes the primary provider
func (m *Manager) SetPrimaryService(name domain.ProviderName) error {
	if !m.registry.Has(name) {
		return fmt.Errorf("set primary: %w: %s", ErrUnknownProvider, name)
	}

	m.mu.Lock()
	previous := m.config.Primary
	m.config.Primary = name
	m.mu.Unlock()

	m.logger.Info("primary provider changed",
		zap.String("from", string(previous)),
		zap.String("to", string(name)))
	return nil
}

// SetFallbackService changes the fallback provider. An empty name disables
// the fallback slot.
func (m *Manager) SetFallbackService(name domain.ProviderName) error {
	if name != "" && !m.registry.Has(name) {
		return fmt.Errorf("set fallback: %w: %s", ErrUnknownProvider, name)
	}

	m.mu.Lock()
	previous := m.config.Fallback
	m.config.Fallback = name
	m.mu.Unlock()

	m.logger.Info("fallback provider changed",
		zap.String("from", string(previous)),
		zap.String("to", string(name)))
	return nil
}

// UpdateConfig merges update into the configuration. The merged result is
// validated as a whole and nothing changes when it is rejected.
func (m *Manager) UpdateConfig(update ConfigUpdate) (Config, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	next := update.apply(m.config)
	if err := next.validate(m.registry); err != nil {
		return m.config, err
	}
	m.config = next

	m.logger.Info("orchestration config updated",
		zap.String("primary", string(next.Primary)),
		zap.String("fallback", string(next.Fallback)),
		zap.Int("retry_attempts", next.RetryAttempts),
		zap.Duration("timeout", next.Timeout),
		zap.Duration("rate_limit_delay", next.RateLimitDelay),
		zap.Bool("fallback_enabled", next.FallbackEnabled),
		zap.Int("batch_size", next.BatchSize))
	return next, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

type nopMetrics struct{}

func (nopMetrics) RecordProviderAttempt(string, string, string, time.Duration) {}
func (nopMetrics) RecordFallback(string, string, string)                      {}
func (nopMetrics) RecordOperationResult(string, string)                       {}
func (nopMetrics) SetProviderHealth(string, float64)                          {}
func (nopMetrics) RecordTaskSubmitted()                                       {}
func (nopMetrics) RecordTaskCompleted(string, time.Duration)                  {}
func (nopMetrics) RecordItemsScraped(string, int)                             {}
func (nopMetrics) RecordWorkerPoolStatus(int, int, int)                       {}
