package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aescanero/ytscope/pkg/domain"
)

type stubCompleter struct {
	reply   string
	err     error
	pingErr error

	lastSystem string
	lastUser   string
}

func (s *stubCompleter) Complete(ctx context.Context, system, user string) (string, error) {
	s.lastSystem, s.lastUser = system, user
	return s.reply, s.err
}

func (s *stubCompleter) Ping(ctx context.Context) error {
	return s.pingErr
}

func sampleItem() *domain.ContentItem {
	return &domain.ContentItem{
		ID:          "youtube:abc123",
		Source:      domain.SourceYouTube,
		ExternalID:  "abc123",
		Title:       "Learn Go concurrency",
		Description: "Goroutines and channels explained with real examples.",
		Author:      "Gopher Academy",
		Views:       12000,
	}
}

func TestAnalyzeContentParsesReply(t *testing.T) {
	stub := &stubCompleter{reply: "```json\n" + `{
		"summary": "A walkthrough of goroutines.",
		"key_points": ["goroutines", " ", "channels"],
		"topics": ["go"],
		"sentiment": "Positive",
		"content_type": "Tutorial",
		"target_audience": "backend developers",
		"hooks": ["race conditions demo"],
		"engagement_score": 14,
		"viral_potential": 6.5,
		"recommendations": ["cut into shorts"]
	}` + "\n```"}
	svc := NewService(domain.ProviderOpenAI, stub, zap.NewNop())

	analysis, err := svc.AnalyzeContent(context.Background(), sampleItem())
	require.NoError(t, err)

	assert.Equal(t, "youtube:abc123", analysis.ContentID)
	assert.Equal(t, domain.ProviderOpenAI, analysis.Provider)
	assert.Equal(t, []string{"goroutines", "channels"}, analysis.KeyPoints)
	assert.Equal(t, "positive", analysis.Sentiment)
	assert.Equal(t, "tutorial", analysis.ContentType)
	assert.Equal(t, 10.0, analysis.EngagementScore)
	assert.Equal(t, 6.5, analysis.ViralPotential)
	assert.False(t, analysis.Fallback)

	assert.Contains(t, stub.lastUser, "Learn Go concurrency")
	assert.Contains(t, stub.lastUser, "Views: 12000")
	assert.Contains(t, stub.lastSystem, "engagement_score")
}

func TestAnalyzeContentDefaultsOnGarbage(t *testing.T) {
	svc := NewService(domain.ProviderDeepSeek, &stubCompleter{reply: "I cannot help with that."}, zap.NewNop())

	analysis, err := svc.AnalyzeContent(context.Background(), sampleItem())
	require.NoError(t, err)
	assert.True(t, analysis.Fallback)
	assert.Equal(t, domain.ProviderDeepSeek, analysis.Provider)
	assert.Equal(t, "neutral", analysis.Sentiment)
	assert.Equal(t, 5.0, analysis.EngagementScore)
	assert.Equal(t, "Goroutines and channels explained with real examples.", analysis.Summary)
}

func TestAnalyzeContentReturnsTransportErrors(t *testing.T) {
	svc := NewService(domain.ProviderOpenAI, &stubCompleter{err: errors.New("connection refused")}, zap.NewNop())

	analysis, err := svc.AnalyzeContent(context.Background(), sampleItem())
	assert.Nil(t, analysis)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestGenerateStoryboard(t *testing.T) {
	stub := &stubCompleter{reply: `{
		"title": "Goroutines in 30s",
		"hook": "Your code is slow",
		"style": "fast cuts",
		"scenes": [
			{"number": 4, "duration_sec": 5, "visual": "code", "narration": "look"},
			{"number": 4, "duration_sec": 20, "visual": "diagram", "narration": "channels"},
			{"number": 9, "duration_sec": 5, "visual": "logo", "narration": "follow"}
		],
		"call_to_action": "Follow"
	}`}
	svc := NewService(domain.ProviderAnthropic, stub, zap.NewNop())

	board, err := svc.GenerateStoryboard(context.Background(), sampleItem(), &domain.Analysis{Summary: "sum", Hooks: []string{"hook one"}})
	require.NoError(t, err)
	require.Len(t, board.Scenes, 3)
	assert.Equal(t, 1, board.Scenes[0].Number)
	assert.Equal(t, 3, board.Scenes[2].Number)
	assert.Equal(t, 30.0, board.TotalDurationSec)
	assert.Contains(t, stub.lastUser, "hook one")
}

func TestGenerateStoryboardDefault(t *testing.T) {
	svc := NewService(domain.ProviderAnthropic, &stubCompleter{reply: `{"title":"no scenes"}`}, zap.NewNop())

	board, err := svc.GenerateStoryboard(context.Background(), sampleItem(), nil)
	require.NoError(t, err)
	assert.True(t, board.Fallback)
	assert.Len(t, board.Scenes, 3)
	assert.Equal(t, 30.0, board.TotalDurationSec)
}

func TestGenerateSummary(t *testing.T) {
	items := []*domain.ContentItem{sampleItem()}
	analyses := []*domain.Analysis{{ContentID: "youtube:abc123", Summary: "goroutines", Topics: []string{"go"}}}

	stub := &stubCompleter{reply: "  Go content dominates.  "}
	summary, err := NewService(domain.ProviderOpenAI, stub, nil).GenerateSummary(context.Background(), items, analyses)
	require.NoError(t, err)
	assert.Equal(t, "Go content dominates.", summary)
	assert.Contains(t, stub.lastUser, "Topics: go")

	summary, err = NewService(domain.ProviderOpenAI, &stubCompleter{reply: " "}, nil).GenerateSummary(context.Background(), items, analyses)
	require.NoError(t, err)
	assert.Equal(t, DefaultSummary(items), summary)
}

func TestTestConnection(t *testing.T) {
	_, err := NewService(domain.ProviderOpenAI, &stubCompleter{}, nil).TestConnection(context.Background())
	assert.NoError(t, err)

	_, err = NewService(domain.ProviderOpenAI, &stubCompleter{pingErr: errors.New("401")}, nil).TestConnection(context.Background())
	assert.Error(t, err)
}

func TestNewFactoriesSkipsProvidersWithoutKeys(t *testing.T) {
	factories := NewFactories(FactoryConfig{
		Providers: map[domain.ProviderName]ProviderSettings{
			domain.ProviderAnthropic: {APIKey: "sk-ant"},
			domain.ProviderOpenAI:    {},
			domain.ProviderDeepSeek:  {APIKey: "sk-ds", Model: "deepseek-chat"},
		},
	})

	require.Len(t, factories, 2)
	assert.Contains(t, factories, domain.ProviderAnthropic)
	assert.Contains(t, factories, domain.ProviderDeepSeek)

	client, err := factories[domain.ProviderDeepSeek]()
	require.NoError(t, err)
	assert.Equal(t, domain.ProviderDeepSeek, client.Name())
}

func TestDefaultSummary(t *testing.T) {
	assert.Equal(t, "No content was analyzed.", DefaultSummary(nil))
	assert.Equal(t, "Analyzed 1 items:\n- Learn Go concurrency", DefaultSummary([]*domain.ContentItem{sampleItem()}))
}
