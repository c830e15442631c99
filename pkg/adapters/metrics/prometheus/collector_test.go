package prometheus

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorRecords(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordProviderAttempt("anthropic", "analyze", "error", 200*time.Millisecond)
	c.RecordProviderAttempt("anthropic", "analyze", "success", 100*time.Millisecond)
	c.RecordProviderAttempt("anthropic", "analyze", "success", 100*time.Millisecond)
	c.RecordFallback("analyze", "anthropic", "openai")
	c.RecordOperationResult("analyze", "success")
	c.SetProviderHealth("openai", 0.5)
	c.RecordTaskSubmitted()
	c.RecordTaskCompleted("completed", 3*time.Second)
	c.RecordItemsScraped("youtube", 7)
	c.RecordWorkerPoolStatus(1, 2, 0)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.providerAttempts.WithLabelValues("anthropic", "analyze", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.providerAttempts.WithLabelValues("anthropic", "analyze", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.fallbacks.WithLabelValues("analyze", "anthropic", "openai")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.operations.WithLabelValues("analyze", "success")))
	assert.Equal(t, 0.5, testutil.ToFloat64(c.providerHealth.WithLabelValues("openai")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.tasksSubmitted))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.tasksCompleted.WithLabelValues("completed")))
	assert.Equal(t, 7.0, testutil.ToFloat64(c.itemsScraped.WithLabelValues("youtube")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.workerPoolBusy))

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["ytscope_provider_attempt_duration_seconds"])
	assert.True(t, names["ytscope_task_duration_seconds"])
}

func TestCollectorsAreIsolated(t *testing.T) {
	// Two registries must not collide on metric names
	assert.NotPanics(t, func() {
		NewCollector(prometheus.NewRegistry())
		NewCollector(prometheus.NewRegistry())
	})
}
