package workers

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

// TaskRunner runs one stored task to completion
type TaskRunner interface {
	RunTask(ctx context.Context, id string) error
}

// Pool manages a pool of worker goroutines
type Pool struct {
	size     int
	eventBus ports.EventBus
	runner   TaskRunner
	metrics  ports.MetricsCollector
	logger   *zap.Logger
	health   *HealthMonitor

	jobs    chan string
	workers []*worker
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
}

// worker represents a single worker goroutine
type worker struct {
	id      string
	pool    *Pool
	status  WorkerStatus
	mu      sync.RWMutex
	lastJob time.Time
}

// WorkerStatus represents worker status
type WorkerStatus string

const (
	WorkerStatusIdle    WorkerStatus = "idle"
	WorkerStatusBusy    WorkerStatus = "busy"
	WorkerStatusStopped WorkerStatus = "stopped"
)

// NewPool creates a new worker pool
func NewPool(
	size int,
	eventBus ports.EventBus,
	runner TaskRunner,
	metrics ports.MetricsCollector,
	logger *zap.Logger,
	healthCheckInterval time.Duration,
	providers ProviderHealthSource,
) *Pool {
	if size < 1 {
		size = 1
	}
	ctx, cancel := context.WithCancel(context.Background())

	pool := &Pool{
		size:     size,
		eventBus: eventBus,
		runner:   runner,
		metrics:  metrics,
		logger:   logger,
		jobs:     make(chan string, size),
		workers:  make([]*worker, size),
		ctx:      ctx,
		cancel:   cancel,
	}

	pool.health = NewHealthMonitor(pool, providers, metrics, healthCheckInterval, logger)

	return pool
}

// Health returns the pool's health monitor
func (p *Pool) Health() *HealthMonitor {
	return p.health
}

// Start subscribes to task events and starts the workers
func (p *Pool) Start() error {
	p.logger.Info("starting worker pool", zap.Int("size", p.size))

	for i := 0; i < p.size; i++ {
		w := &worker{
			id:      fmt.Sprintf("worker-%d", i),
			pool:    p,
			status:  WorkerStatusIdle,
			lastJob: time.Now(),
		}
		p.workers[i] = w

		p.wg.Add(1)
		go w.run(p.ctx)
	}

	// One subscription for the whole pool; workers share the job channel
	if err := p.eventBus.Subscribe(p.ctx, domain.TopicTaskEvents, p.dispatch); err != nil {
		p.cancel()
		p.wg.Wait()
		return fmt.Errorf("failed to subscribe to task events: %w", err)
	}

	p.health.Start()

	p.logger.Info("worker pool started", zap.Int("workers", p.size))
	return nil
}

// dispatch queues submitted tasks and ignores every other event type.
// It blocks while all workers are busy so the bus applies backpressure.
func (p *Pool) dispatch(ctx context.Context, event domain.Event) error {
	if event.Type != domain.EventTypeTaskSubmitted {
		return nil
	}
	if event.TaskID == "" {
		p.logger.Error("submitted event without task id", zap.String("event_id", event.ID))
		return nil
	}

	select {
	case p.jobs <- event.TaskID:
		return nil
	case <-p.ctx.Done():
		return p.ctx.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown gracefully shuts down the worker pool
func (p *Pool) Shutdown(ctx context.Context) error {
	p.logger.Info("shutting down worker pool")

	p.health.Stop()

	// Cancel context to signal workers to stop
	p.cancel()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("worker pool shut down complete")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("shutdown timeout")
	}
}

// GetStatus returns the status of all workers
func (p *Pool) GetStatus() map[string]WorkerStatus {
	status := make(map[string]WorkerStatus)
	for _, w := range p.workers {
		if w == nil {
			continue
		}
		w.mu.RLock()
		status[w.id] = w.status
		w.mu.RUnlock()
	}
	return status
}

// run is the main worker loop
func (w *worker) run(ctx context.Context) {
	defer w.pool.wg.Done()

	w.pool.logger.Debug("worker started", zap.String("worker_id", w.id))

	for {
		select {
		case <-ctx.Done():
			w.setStatus(WorkerStatusStopped)
			w.pool.logger.Debug("worker stopped", zap.String("worker_id", w.id))
			return
		case taskID := <-w.pool.jobs:
			w.handleTask(ctx, taskID)
		}
	}
}

// handleTask runs one task. Cancelling the pool cancels the running task.
func (w *worker) handleTask(ctx context.Context, taskID string) {
	w.mu.Lock()
	w.status = WorkerStatusBusy
	w.lastJob = time.Now()
	w.mu.Unlock()

	defer w.setStatus(WorkerStatusIdle)

	w.pool.logger.Info("executing task",
		zap.String("worker_id", w.id),
		zap.String("task_id", taskID))

	startTime := time.Now()
	err := w.pool.runner.RunTask(ctx, taskID)
	duration := time.Since(startTime)

	switch {
	case err == nil:
		w.pool.logger.Info("task execution completed",
			zap.String("worker_id", w.id),
			zap.String("task_id", taskID),
			zap.Duration("duration", duration))
	case errors.Is(err, context.Canceled):
		w.pool.logger.Info("task execution cancelled",
			zap.String("worker_id", w.id),
			zap.String("task_id", taskID))
	default:
		w.pool.logger.Warn("task execution failed",
			zap.String("worker_id", w.id),
			zap.String("task_id", taskID),
			zap.Duration("duration", duration),
			zap.Error(err))
	}
}

func (w *worker) setStatus(s WorkerStatus) {
	w.mu.Lock()
	w.status = s
	w.mu.Unlock()
}
