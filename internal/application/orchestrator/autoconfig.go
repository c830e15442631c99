package orchestrator

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/aescanero/ytscope/pkg/domain"
)

// ConnectionResult is the outcome of one provider connection test
type ConnectionResult struct {
	Available    bool          `json:"available"`
	ResponseTime time.Duration `json:"response_time"`
	Error        string        `json:"error,omitempty"`
}

// TestAllProviders tests every registered provider concurrently. Each test
// is bounded by the configured timeout and failures never abort the others.
func (m *Manager) TestAllProviders(ctx context.Context) map[domain.ProviderName]ConnectionResult {
	names := m.registry.Names()
	timeout := m.GetConfig().Timeout
	results := make([]ConnectionResult, len(names))

	var g errgroup.Group
	for i, name := range names {
		g.Go(func() error {
			results[i] = m.testProvider(ctx, name, timeout)
			return nil
		})
	}
	_ = g.Wait()

	out := make(map[domain.ProviderName]ConnectionResult, len(names))
	for i, name := range names {
		out[name] = results[i]
	}
	return out
}

func (m *Manager) testProvider(ctx context.Context, name domain.ProviderName, timeout time.Duration) ConnectionResult {
	client, err := m.registry.GetInstance(name)
	if err != nil {
		return ConnectionResult{Error: err.Error()}
	}

	testCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	latency, err := client.TestConnection(testCtx)
	if err != nil {
		m.logger.Warn("provider connection test failed",
			zap.String("provider", string(name)),
			zap.Error(err))
		return ConnectionResult{Error: err.Error()}
	}

	m.logger.Debug("provider connection test passed",
		zap.String("provider", string(name)),
		zap.Duration("response_time", latency))
	return ConnectionResult{Available: true, ResponseTime: latency}
}

// AutoConfigure tests all providers and makes the fastest available one the
// primary and the second fastest the fallback. With a single available
// provider the fallback slot is cleared.
func (m *Manager) AutoConfigure(ctx context.Context) (Config, error) {
	results := m.TestAllProviders(ctx)

	available := make([]domain.ProviderName, 0, len(results))
	for name, r := range results {
		if r.Available {
			available = append(available, name)
		}
	}
	if len(available) == 0 {
		return m.GetConfig(), ErrNoProvidersAvailable
	}

	sort.Slice(available, func(i, j int) bool {
		a, b := results[available[i]], results[available[j]]
		if a.ResponseTime != b.ResponseTime {
			return a.ResponseTime < b.ResponseTime
		}
		return available[i] < available[j]
	})

	m.mu.Lock()
	m.config.Primary = available[0]
	m.config.Fallback = ""
	if len(available) > 1 {
		m.config.Fallback = available[1]
	}
	cfg := m.config
	m.mu.Unlock()

	m.logger.Info("providers auto-configured",
		zap.String("primary", string(cfg.Primary)),
		zap.String("fallback", string(cfg.Fallback)),
		zap.Int("available", len(available)))

	return cfg, nil
}

// String renders a result for logs and CLI output
func (r ConnectionResult) String() string {
	if !r.Available {
		return fmt.Sprintf("unavailable: %s", r.Error)
	}
	return fmt.Sprintf("ok (%s)", r.ResponseTime)
}
