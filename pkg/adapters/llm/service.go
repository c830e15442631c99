package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/aescanero/ytscope/pkg/domain"
)

// Service implements ports.ProviderClient on top of a Completer.
//
// Transport failures are returned to the caller. A reply that arrives but
// cannot be decoded is replaced by the matching Default* value and flagged
// with Fallback so the orchestrator does not retry it.
type Service struct {
	name      domain.ProviderName
	completer Completer
	logger    *zap.Logger
}

// NewService creates a provider client named name
func NewService(name domain.ProviderName, completer Completer, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		name:      name,
		completer: completer,
		logger:    logger.With(zap.String("provider", string(name))),
	}
}

// Name returns the provider name
func (s *Service) Name() domain.ProviderName {
	return s.name
}

type analysisPayload struct {
	Summary         string   `json:"summary"`
	KeyPoints       []string `json:"key_points"`
	Topics          []string `json:"topics"`
	Sentiment       string   `json:"sentiment"`
	ContentType     string   `json:"content_type"`
	TargetAudience  string   `json:"target_audience"`
	Hooks           []string `json:"hooks"`
	EngagementScore float64  `json:"engagement_score"`
	ViralPotential  float64  `json:"viral_potential"`
	Recommendations []string `json:"recommendations"`
}

// AnalyzeContent asks the model for a structured analysis of item
func (s *Service) AnalyzeContent(ctx context.Context, item *domain.ContentItem) (*domain.Analysis, error) {
	raw, err := s.completer.Complete(ctx, analysisSystemPrompt, analysisPrompt(item))
	if err != nil {
		return nil, fmt.Errorf("%s analyze: %w", s.name, err)
	}

	var payload analysisPayload
	if err := DecodeJSON(raw, &payload); err != nil || strings.TrimSpace(payload.Summary) == "" {
		s.logger.Warn("analysis reply not parseable, using default",
			zap.String("content_id", item.ID),
			zap.String("reply", Snippet(raw)),
			zap.Error(err))
		analysis := DefaultAnalysis(item)
		analysis.Provider = s.name
		return analysis, nil
	}

	return &domain.Analysis{
		ContentID:       item.ID,
		Provider:        s.name,
		Summary:         strings.TrimSpace(payload.Summary),
		KeyPoints:       nonNil(payload.KeyPoints),
		Topics:          nonNil(payload.Topics),
		Sentiment:       orDefault(strings.ToLower(strings.TrimSpace(payload.Sentiment)), "neutral"),
		ContentType:     orDefault(strings.ToLower(strings.TrimSpace(payload.ContentType)), "unknown"),
		TargetAudience:  strings.TrimSpace(payload.TargetAudience),
		Hooks:           nonNil(payload.Hooks),
		EngagementScore: clampScore(payload.EngagementScore),
		ViralPotential:  clampScore(payload.ViralPotential),
		Recommendations: nonNil(payload.Recommendations),
		CreatedAt:       time.Now().UTC(),
	}, nil
}

type storyboardPayload struct {
	Title        string         `json:"title"`
	Hook         string         `json:"hook"`
	Style        string         `json:"style"`
	Scenes       []domain.Scene `json:"scenes"`
	CallToAction string         `json:"call_to_action"`
}

// GenerateStoryboard asks the model for a short-form storyboard of item
func (s *Service) GenerateStoryboard(ctx context.Context, item *domain.ContentItem, analysis *domain.Analysis) (*domain.Storyboard, error) {
	raw, err := s.completer.Complete(ctx, storyboardSystemPrompt, storyboardPrompt(item, analysis))
	if err != nil {
		return nil, fmt.Errorf("%s storyboard: %w", s.name, err)
	}

	var payload storyboardPayload
	if err := DecodeJSON(raw, &payload); err != nil || len(payload.Scenes) == 0 {
		s.logger.Warn("storyboard reply not parseable, using default",
			zap.String("content_id", item.ID),
			zap.String("reply", Snippet(raw)),
			zap.Error(err))
		board := DefaultStoryboard(item)
		board.Provider = s.name
		return board, nil
	}

	board := &domain.Storyboard{
		ContentID:    item.ID,
		Provider:     s.name,
		Title:        orDefault(strings.TrimSpace(payload.Title), item.Title),
		Hook:         strings.TrimSpace(payload.Hook),
		Style:        strings.TrimSpace(payload.Style),
		Scenes:       payload.Scenes,
		CallToAction: strings.TrimSpace(payload.CallToAction),
		CreatedAt:    time.Now().UTC(),
	}
	for i := range board.Scenes {
		// models skip or repeat numbers
		board.Scenes[i].Number = i + 1
		if board.Scenes[i].DurationSec < 0 {
			board.Scenes[i].DurationSec = 0
		}
		board.TotalDurationSec += board.Scenes[i].DurationSec
	}
	return board, nil
}

// GenerateSummary asks the model for a plain text summary of the batch
func (s *Service) GenerateSummary(ctx context.Context, items []*domain.ContentItem, analyses []*domain.Analysis) (string, error) {
	raw, err := s.completer.Complete(ctx, summarySystemPrompt, summaryPrompt(items, analyses))
	if err != nil {
		return "", fmt.Errorf("%s summary: %w", s.name, err)
	}
	summary := strings.TrimSpace(raw)
	if summary == "" {
		s.logger.Warn("empty summary reply, using default")
		return DefaultSummary(items), nil
	}
	return summary, nil
}

// TestConnection pings the backend and reports how long it took
func (s *Service) TestConnection(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.completer.Ping(ctx); err != nil {
		return 0, fmt.Errorf("%s ping: %w", s.name, err)
	}
	return time.Since(start), nil
}

func clampScore(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 10:
		return 10
	default:
		return v
	}
}

func nonNil(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
