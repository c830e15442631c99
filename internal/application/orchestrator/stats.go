package orchestrator

import (
	"sync"
	"time"

	"github.com/aescanero/ytscope/pkg/domain"
)

// statsBook holds per-provider counters. Each update happens under the lock
// so readers never observe half of an attempt.
type statsBook struct {
	mu    sync.Mutex
	stats map[domain.ProviderName]*domain.ProviderStats
}

func newStatsBook(names []domain.ProviderName) *statsBook {
	b := &statsBook{stats: make(map[domain.ProviderName]*domain.ProviderStats, len(names))}
	for _, name := range names {
		b.stats[name] = &domain.ProviderStats{}
	}
	return b
}

func (b *statsBook) entry(name domain.ProviderName) *domain.ProviderStats {
	s, ok := b.stats[name]
	if !ok {
		s = &domain.ProviderStats{}
		b.stats[name] = s
	}
	return s
}

func (b *statsBook) begin(name domain.ProviderName) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entry(name).Requests++
}

func (b *statsBook) succeed(name domain.ProviderName, elapsed time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	s := b.entry(name)
	s.Successes++
	// Running mean over successful attempts only
	s.AvgResponseTime = time.Duration((int64(s.AvgResponseTime)*(s.Successes-1) + int64(elapsed)) / s.Successes)
}

func (b *statsBook) fail(name domain.ProviderName) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entry(name).Failures++
}

func (b *statsBook) snapshot() map[domain.ProviderName]domain.ProviderStats {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make(map[domain.ProviderName]domain.ProviderStats, len(b.stats))
	for name, s := range b.stats {
		out[name] = *s
	}
	return out
}

func (b *statsBook) reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for name := range b.stats {
		b.stats[name] = &domain.ProviderStats{}
	}
}

// GetServiceStats returns a snapshot of every provider's counters
func (m *Manager) GetServiceStats() map[domain.ProviderName]domain.ProviderStats {
	return m.stats.snapshot()
}

// ResetStats zeroes all provider counters
func (m *Manager) ResetStats() {
	m.stats.reset()
	m.logger.Info("provider stats reset")
}
