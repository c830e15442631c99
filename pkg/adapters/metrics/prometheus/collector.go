// Package prometheus implements ports.MetricsCollector on top of the
// Prometheus client library.
package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/aescanero/ytscope/pkg/ports"
)

// Collector implements MetricsCollector using Prometheus
type Collector struct {
	providerAttempts *prometheus.CounterVec
	providerLatency  *prometheus.HistogramVec
	fallbacks        *prometheus.CounterVec
	operations       *prometheus.CounterVec
	providerHealth   *prometheus.GaugeVec

	tasksSubmitted prometheus.Counter
	tasksCompleted *prometheus.CounterVec
	taskDuration   prometheus.Histogram
	itemsScraped   *prometheus.CounterVec

	workerPoolIdle    prometheus.Gauge
	workerPoolBusy    prometheus.Gauge
	workerPoolStopped prometheus.Gauge
}

var _ ports.MetricsCollector = (*Collector)(nil)

// NewCollector creates a new Prometheus metrics collector registered on reg.
// A nil reg uses the default registerer.
func NewCollector(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Collector{
		providerAttempts: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ytscope_provider_attempts_total",
				Help: "Provider call attempts by outcome",
			},
			[]string{"provider", "operation", "outcome"},
		),
		providerLatency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ytscope_provider_attempt_duration_seconds",
				Help:    "Provider call attempt latency in seconds",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 20, 30, 60},
			},
			[]string{"provider", "operation"},
		),
		fallbacks: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ytscope_provider_fallbacks_total",
				Help: "Operations handed to the fallback provider",
			},
			[]string{"operation", "from", "to"},
		),
		operations: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ytscope_operations_total",
				Help: "Orchestrated operations by terminal status",
			},
			[]string{"operation", "status"},
		),
		providerHealth: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "ytscope_provider_healthy",
				Help: "1 healthy, 0.5 degraded, 0 unhealthy, -1 untested",
			},
			[]string{"provider"},
		),
		tasksSubmitted: f.NewCounter(
			prometheus.CounterOpts{
				Name: "ytscope_tasks_submitted_total",
				Help: "Total number of tasks submitted",
			},
		),
		tasksCompleted: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ytscope_tasks_completed_total",
				Help: "Total number of tasks finished, by final status",
			},
			[]string{"status"},
		),
		taskDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "ytscope_task_duration_seconds",
				Help:    "Task execution duration in seconds",
				Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600, 1800},
			},
		),
		itemsScraped: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ytscope_items_scraped_total",
				Help: "Content items scraped per source",
			},
			[]string{"source"},
		),
		workerPoolIdle: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "ytscope_worker_pool_idle",
				Help: "Number of idle workers",
			},
		),
		workerPoolBusy: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "ytscope_worker_pool_busy",
				Help: "Number of busy workers",
			},
		),
		workerPoolStopped: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "ytscope_worker_pool_stopped",
				Help: "Number of stopped workers",
			},
		),
	}
}

// RecordProviderAttempt counts one attempt and observes its latency
func (c *Collector) RecordProviderAttempt(provider, operation, outcome string, duration time.Duration) {
	c.providerAttempts.WithLabelValues(provider, operation, outcome).Inc()
	c.providerLatency.WithLabelValues(provider, operation).Observe(duration.Seconds())
}

// RecordFallback counts a switch from the primary to the fallback provider
func (c *Collector) RecordFallback(operation, from, to string) {
	c.fallbacks.WithLabelValues(operation, from, to).Inc()
}

// RecordOperationResult counts a terminal orchestration result
func (c *Collector) RecordOperationResult(operation, status string) {
	c.operations.WithLabelValues(operation, status).Inc()
}

// SetProviderHealth sets the health gauge of one provider
func (c *Collector) SetProviderHealth(provider string, healthy float64) {
	c.providerHealth.WithLabelValues(provider).Set(healthy)
}

// RecordTaskSubmitted records a task submission
func (c *Collector) RecordTaskSubmitted() {
	c.tasksSubmitted.Inc()
}

// RecordTaskCompleted records a finished task
func (c *Collector) RecordTaskCompleted(status string, duration time.Duration) {
	c.tasksCompleted.WithLabelValues(status).Inc()
	c.taskDuration.Observe(duration.Seconds())
}

// RecordItemsScraped adds count scraped items for source
func (c *Collector) RecordItemsScraped(source string, count int) {
	c.itemsScraped.WithLabelValues(source).Add(float64(count))
}

// RecordWorkerPoolStatus records worker pool status
func (c *Collector) RecordWorkerPoolStatus(idle, busy, stopped int) {
	c.workerPoolIdle.Set(float64(idle))
	c.workerPoolBusy.Set(float64(busy))
	c.workerPoolStopped.Set(float64(stopped))
}
