package workers

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aescanero/ytscope/pkg/adapters/events/memory"
	"github.com/aescanero/ytscope/pkg/domain"
)

type recordingRunner struct {
	mu      sync.Mutex
	ran     []string
	release chan struct{}
}

func (r *recordingRunner) RunTask(ctx context.Context, id string) error {
	r.mu.Lock()
	r.ran = append(r.ran, id)
	r.mu.Unlock()
	if r.release != nil {
		select {
		case <-r.release:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (r *recordingRunner) ids() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.ran...)
}

type fakeMetrics struct {
	mu             sync.Mutex
	idle, busy     int
	stopped        int
	providerHealth map[string]float64
}

func (m *fakeMetrics) RecordProviderAttempt(string, string, string, time.Duration) {}
func (m *fakeMetrics) RecordFallback(string, string, string)                      {}
func (m *fakeMetrics) RecordOperationResult(string, string)                       {}
func (m *fakeMetrics) RecordTaskSubmitted()                                       {}
func (m *fakeMetrics) RecordTaskCompleted(string, time.Duration)                  {}
func (m *fakeMetrics) RecordItemsScraped(string, int)                             {}

func (m *fakeMetrics) SetProviderHealth(provider string, v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.providerHealth == nil {
		m.providerHealth = make(map[string]float64)
	}
	m.providerHealth[provider] = v
}

func (m *fakeMetrics) RecordWorkerPoolStatus(idle, busy, stopped int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.idle, m.busy, m.stopped = idle, busy, stopped
}

type staticHealth map[domain.ProviderName]domain.HealthStatus

func (s staticHealth) GetServiceHealth() map[domain.ProviderName]domain.HealthStatus { return s }

func submitted(id string) domain.Event {
	return domain.Event{ID: "e-" + id, Type: domain.EventTypeTaskSubmitted, TaskID: id}
}

func TestPoolRunsSubmittedTasks(t *testing.T) {
	bus := memory.NewInMemoryEventBus(nil)
	defer bus.Close()
	runner := &recordingRunner{}

	pool := NewPool(2, bus, runner, &fakeMetrics{}, zap.NewNop(), time.Hour, nil)
	require.NoError(t, pool.Start())
	defer pool.Shutdown(context.Background())

	ctx := context.Background()
	require.NoError(t, bus.Publish(ctx, domain.TopicTaskEvents, submitted("t1")))
	require.NoError(t, bus.Publish(ctx, domain.TopicTaskEvents, domain.Event{Type: domain.EventTypeTaskProgress, TaskID: "t1"}))
	require.NoError(t, bus.Publish(ctx, domain.TopicTaskEvents, submitted("t2")))

	assert.Eventually(t, func() bool { return len(runner.ids()) == 2 }, time.Second, 5*time.Millisecond)
	assert.ElementsMatch(t, []string{"t1", "t2"}, runner.ids())
}

func TestPoolStatusAndShutdown(t *testing.T) {
	bus := memory.NewInMemoryEventBus(nil)
	defer bus.Close()
	runner := &recordingRunner{release: make(chan struct{})}

	pool := NewPool(2, bus, runner, &fakeMetrics{}, zap.NewNop(), time.Hour, nil)
	require.NoError(t, pool.Start())

	require.NoError(t, bus.Publish(context.Background(), domain.TopicTaskEvents, submitted("t1")))
	assert.Eventually(t, func() bool {
		return pool.Health().GetStatus().BusyWorkers == 1
	}, time.Second, 5*time.Millisecond)

	// Shutdown cancels the running task
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, pool.Shutdown(ctx))

	status := pool.Health().GetStatus()
	assert.Equal(t, 2, status.StoppedWorkers)
	assert.False(t, status.Healthy)
}

func TestHealthCheckReportsProviders(t *testing.T) {
	bus := memory.NewInMemoryEventBus(nil)
	defer bus.Close()
	metrics := &fakeMetrics{}
	providers := staticHealth{
		domain.ProviderAnthropic: {Status: domain.HealthHealthy},
		domain.ProviderOpenAI:    {Status: domain.HealthUnhealthy},
	}

	pool := NewPool(3, bus, &recordingRunner{}, metrics, zap.NewNop(), time.Hour, providers)
	require.NoError(t, pool.Start())
	defer pool.Shutdown(context.Background())

	var mu sync.Mutex
	var seen map[domain.ProviderName]domain.HealthStatus
	var poolStatus *HealthStatus
	pool.Health().AddObserver(func(p map[domain.ProviderName]domain.HealthStatus, s *HealthStatus) {
		mu.Lock()
		defer mu.Unlock()
		seen = p
		poolStatus = s
	})
	pool.Health().Check()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, domain.HealthUnhealthy, seen[domain.ProviderOpenAI].Status)
	assert.Equal(t, 3, poolStatus.TotalWorkers)

	metrics.mu.Lock()
	defer metrics.mu.Unlock()
	assert.Equal(t, 3, metrics.idle)
	assert.Equal(t, 1.0, metrics.providerHealth["anthropic"])
	assert.Equal(t, 0.0, metrics.providerHealth["openai"])
}

func TestHealthGauge(t *testing.T) {
	assert.Equal(t, 1.0, HealthGauge(domain.HealthHealthy))
	assert.Equal(t, 0.5, HealthGauge(domain.HealthDegraded))
	assert.Equal(t, 0.0, HealthGauge(domain.HealthUnhealthy))
	assert.Equal(t, -1.0, HealthGauge(domain.HealthUntested))
}
