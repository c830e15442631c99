package workers

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/aescanero/ytscope/pkg/domain"
	"github.com/aescanero/ytscope/pkg/ports"
)

// ProviderHealthSource reports provider health. The orchestrator manager
// satisfies it.
type ProviderHealthSource interface {
	GetServiceHealth() map[domain.ProviderName]domain.HealthStatus
}

// HealthObserver is notified after every health check
type HealthObserver func(providers map[domain.ProviderName]domain.HealthStatus, pool *HealthStatus)

// HealthMonitor monitors worker and provider health
type HealthMonitor struct {
	pool      *Pool
	providers ProviderHealthSource
	metrics   ports.MetricsCollector
	interval  time.Duration
	logger    *zap.Logger

	mu        sync.RWMutex
	running   bool
	stopCh    chan struct{}
	observers []HealthObserver
}

// HealthStatus represents the health status of the worker pool
type HealthStatus struct {
	TotalWorkers   int       `json:"total_workers"`
	IdleWorkers    int       `json:"idle_workers"`
	BusyWorkers    int       `json:"busy_workers"`
	StoppedWorkers int       `json:"stopped_workers"`
	Healthy        bool      `json:"healthy"`
	Timestamp      time.Time `json:"timestamp"`
}

// NewHealthMonitor creates a new health monitor
func NewHealthMonitor(pool *Pool, providers ProviderHealthSource, metrics ports.MetricsCollector, interval time.Duration, logger *zap.Logger) *HealthMonitor {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &HealthMonitor{
		pool:      pool,
		providers: providers,
		metrics:   metrics,
		interval:  interval,
		logger:    logger,
		stopCh:    make(chan struct{}),
	}
}

// AddObserver registers fn to run after every check
func (h *HealthMonitor) AddObserver(fn HealthObserver) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.observers = append(h.observers, fn)
}

// Start starts the health monitor
func (h *HealthMonitor) Start() {
	h.mu.Lock()
	if h.running {
		h.mu.Unlock()
		return
	}
	h.running = true
	h.mu.Unlock()

	go h.run()
}

// Stop stops the health monitor
func (h *HealthMonitor) Stop() {
	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		return
	}
	h.running = false
	h.mu.Unlock()

	close(h.stopCh)
}

func (h *HealthMonitor) run() {
	h.Check()

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-h.stopCh:
			return
		case <-ticker.C:
			h.Check()
		}
	}
}

// Check runs one health check: logs, records metrics, notifies observers
func (h *HealthMonitor) Check() {
	status := h.GetStatus()

	h.logger.Info("worker pool health check",
		zap.Int("total", status.TotalWorkers),
		zap.Int("idle", status.IdleWorkers),
		zap.Int("busy", status.BusyWorkers),
		zap.Int("stopped", status.StoppedWorkers),
		zap.Bool("healthy", status.Healthy))

	if h.metrics != nil {
		h.metrics.RecordWorkerPoolStatus(status.IdleWorkers, status.BusyWorkers, status.StoppedWorkers)
	}

	if status.TotalWorkers > 0 && status.BusyWorkers == status.TotalWorkers {
		h.logger.Warn("all workers are busy - consider scaling up",
			zap.Int("total", status.TotalWorkers))
	}

	var providers map[domain.ProviderName]domain.HealthStatus
	if h.providers != nil {
		providers = h.providers.GetServiceHealth()
		for name, ph := range providers {
			if h.metrics != nil {
				h.metrics.SetProviderHealth(string(name), HealthGauge(ph.Status))
			}
			if ph.Status == domain.HealthUnhealthy {
				h.logger.Warn("provider is unhealthy",
					zap.String("provider", string(name)),
					zap.Float64("success_rate", ph.SuccessRate),
					zap.Int64("requests", ph.Requests))
			}
		}
	}

	h.mu.RLock()
	observers := append([]HealthObserver(nil), h.observers...)
	h.mu.RUnlock()
	for _, fn := range observers {
		fn(providers, status)
	}
}

// GetStatus returns the current health status
func (h *HealthMonitor) GetStatus() *HealthStatus {
	workerStatuses := h.pool.GetStatus()

	var idle, busy, stopped int
	for _, status := range workerStatuses {
		switch status {
		case WorkerStatusIdle:
			idle++
		case WorkerStatusBusy:
			busy++
		case WorkerStatusStopped:
			stopped++
		}
	}

	total := len(workerStatuses)

	return &HealthStatus{
		TotalWorkers:   total,
		IdleWorkers:    idle,
		BusyWorkers:    busy,
		StoppedWorkers: stopped,
		Healthy:        total > 0 && stopped == 0,
		Timestamp:      time.Now(),
	}
}

// IsHealthy returns true if the worker pool is healthy
func (h *HealthMonitor) IsHealthy() bool {
	return h.GetStatus().Healthy
}

// HealthGauge maps a provider health state onto the metric gauge value
func HealthGauge(s domain.HealthState) float64 {
	switch s {
	case domain.HealthHealthy:
		return 1
	case domain.HealthDegraded:
		return 0.5
	case domain.HealthUnhealthy:
		return 0
	default:
		return -1
	}
}
