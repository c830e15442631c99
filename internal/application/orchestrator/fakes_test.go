package orchestrator

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aescanero/ytscope/pkg/domain"
	"github.com/aescanero/ytscope/pkg/ports"
)

// fakeProvider fails the first failFirst analyze calls (all of them when
// failFirst < 0) and succeeds afterwards.
type fakeProvider struct {
	name      domain.ProviderName
	failFirst int
	release   chan struct{}
	latency   time.Duration
	pingErr   error

	calls atomic.Int32
}

func (f *fakeProvider) Name() domain.ProviderName { return f.name }

func (f *fakeProvider) AnalyzeContent(ctx context.Context, item *domain.ContentItem) (*domain.Analysis, error) {
	n := int(f.calls.Add(1))
	if f.release != nil {
		// ignores ctx on purpose
		<-f.release
	}
	if f.failFirst < 0 || n <= f.failFirst {
		return nil, errors.New(string(f.name) + " failure")
	}
	return &domain.Analysis{ContentID: item.ID, Provider: f.name, Summary: "from " + string(f.name)}, nil
}

func (f *fakeProvider) GenerateStoryboard(ctx context.Context, item *domain.ContentItem, analysis *domain.Analysis) (*domain.Storyboard, error) {
	return &domain.Storyboard{ContentID: item.ID, Provider: f.name}, nil
}

func (f *fakeProvider) GenerateSummary(ctx context.Context, items []*domain.ContentItem, analyses []*domain.Analysis) (string, error) {
	return "summary by " + string(f.name), nil
}

func (f *fakeProvider) TestConnection(ctx context.Context) (time.Duration, error) {
	if f.pingErr != nil {
		return 0, f.pingErr
	}
	return f.latency, nil
}

// recordingSleeper captures backoff delays without waiting
type recordingSleeper struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *recordingSleeper) sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.delays = append(s.delays, d)
	s.mu.Unlock()
	return ctx.Err()
}

func (s *recordingSleeper) recorded() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.delays...)
}

type harness struct {
	manager      *Manager
	sleeper      *recordingSleeper
	constructed  map[domain.ProviderName]*atomic.Int32
	providerByID map[domain.ProviderName]*fakeProvider
}

func newHarness(t *testing.T, cfg Config, providers ...*fakeProvider) *harness {
	t.Helper()

	h := &harness{
		sleeper:      &recordingSleeper{},
		constructed:  make(map[domain.ProviderName]*atomic.Int32),
		providerByID: make(map[domain.ProviderName]*fakeProvider),
	}

	registry := NewRegistry()
	for _, p := range providers {
		p := p
		counter := &atomic.Int32{}
		h.constructed[p.name] = counter
		h.providerByID[p.name] = p
		require.NoError(t, registry.Register(p.name, func() (ports.ProviderClient, error) {
			counter.Add(1)
			return p, nil
		}))
	}

	m, err := NewManager(registry, cfg, zap.NewNop(), WithSleeper(h.sleeper.sleep))
	require.NoError(t, err)
	h.manager = m
	return h
}

func baseConfig() Config {
	return Config{
		Primary:         domain.ProviderAnthropic,
		Fallback:        domain.ProviderOpenAI,
		RetryAttempts:   3,
		Timeout:         time.Second,
		RateLimitDelay:  100 * time.Millisecond,
		FallbackEnabled: true,
		BatchSize:       5,
	}
}

func testItem() *domain.ContentItem {
	return &domain.ContentItem{ID: "youtube:abc", Source: domain.SourceYouTube, ExternalID: "abc", Title: "Go in 100 seconds"}
}
