package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aescanero/ytscope/internal/application/orchestrator"
	"github.com/aescanero/ytscope/pkg/adapters/storage/memory"
	"github.com/aescanero/ytscope/pkg/domain"
	"github.com/aescanero/ytscope/pkg/ports"
)

type fakeScraper struct {
	source domain.Source
	items  []*domain.ContentItem
	err    error
	block  chan struct{}

	mu   sync.Mutex
	reqs []ports.ScrapeRequest
}

func (s *fakeScraper) Source() domain.Source { return s.source }

func (s *fakeScraper) Scrape(ctx context.Context, req ports.ScrapeRequest) ([]*domain.ContentItem, error) {
	s.mu.Lock()
	s.reqs = append(s.reqs, req)
	s.mu.Unlock()

	if s.block != nil {
		select {
		case <-s.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.items, nil
}

// fakeProvider fails analysis for the IDs in failIDs and answers with a
// default analysis for the IDs in defaults.
type fakeProvider struct {
	name       domain.ProviderName
	failIDs    map[string]bool
	defaults   map[string]bool
	summaryErr error

	mu       sync.Mutex
	analyzed []string
	boards   int
}

func (f *fakeProvider) Name() domain.ProviderName { return f.name }

func (f *fakeProvider) AnalyzeContent(ctx context.Context, item *domain.ContentItem) (*domain.Analysis, error) {
	f.mu.Lock()
	f.analyzed = append(f.analyzed, item.ID)
	f.mu.Unlock()
	if f.failIDs[item.ID] {
		return nil, errors.New("analysis exploded")
	}
	return &domain.Analysis{
		Provider:  f.name,
		Summary:   "about " + item.Title,
		Sentiment: "positive",
		Fallback:  f.defaults[item.ID],
	}, nil
}

func (f *fakeProvider) GenerateStoryboard(ctx context.Context, item *domain.ContentItem, analysis *domain.Analysis) (*domain.Storyboard, error) {
	f.mu.Lock()
	f.boards++
	f.mu.Unlock()
	return &domain.Storyboard{Provider: f.name, Title: item.Title, Scenes: []domain.Scene{{Number: 1, DurationSec: 30}}, TotalDurationSec: 30}, nil
}

func (f *fakeProvider) GenerateSummary(ctx context.Context, items []*domain.ContentItem, analyses []*domain.Analysis) (string, error) {
	if f.summaryErr != nil {
		return "", f.summaryErr
	}
	return "summary by " + string(f.name), nil
}

func (f *fakeProvider) TestConnection(ctx context.Context) (time.Duration, error) {
	return time.Millisecond, nil
}

func (f *fakeProvider) analyzedIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.analyzed...)
}

type mapCache struct {
	mu   sync.Mutex
	data map[string]*domain.Analysis
}

func (c *mapCache) Get(ctx context.Context, key string) (*domain.Analysis, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	a, ok := c.data[key]
	return a, ok
}

func (c *mapCache) Set(ctx context.Context, key string, a *domain.Analysis) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = a
}

func cacheKey(item *domain.ContentItem, provider domain.ProviderName) string {
	return item.ID + "|" + string(provider)
}

type fixture struct {
	pipeline  *Pipeline
	manager   *orchestrator.Manager
	repo      *memory.Repository
	primary   *fakeProvider
	secondary *fakeProvider
	youtube   *fakeScraper
	reddit    *fakeScraper
}

func items(source domain.Source, ids ...string) []*domain.ContentItem {
	out := make([]*domain.ContentItem, len(ids))
	for i, id := range ids {
		out[i] = &domain.ContentItem{
			ID:         string(source) + ":" + id,
			Source:     source,
			ExternalID: id,
			Title:      "title " + id,
		}
	}
	return out
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()

	f := &fixture{
		repo:      memory.NewRepository(),
		primary:   &fakeProvider{name: domain.ProviderAnthropic},
		secondary: &fakeProvider{name: domain.ProviderOpenAI},
		youtube:   &fakeScraper{source: domain.SourceYouTube, items: items(domain.SourceYouTube, "a", "b", "c")},
		reddit:    &fakeScraper{source: domain.SourceReddit, items: items(domain.SourceReddit, "x")},
	}

	registry := orchestrator.NewRegistry()
	require.NoError(t, registry.Register(domain.ProviderAnthropic, func() (ports.ProviderClient, error) { return f.primary, nil }))
	require.NoError(t, registry.Register(domain.ProviderOpenAI, func() (ports.ProviderClient, error) { return f.secondary, nil }))

	manager, err := orchestrator.NewManager(registry, orchestrator.Config{
		Primary:       domain.ProviderAnthropic,
		RetryAttempts: 1,
		Timeout:       time.Second,
		BatchSize:     2,
	}, zap.NewNop())
	require.NoError(t, err)
	f.manager = manager

	opts = append([]Option{WithScraper(f.youtube), WithScraper(f.reddit)}, opts...)
	f.pipeline = New(manager, f.repo, zap.NewNop(), opts...)
	return f
}
