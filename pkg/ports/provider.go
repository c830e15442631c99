package ports

import (
	"context"
	"time"

	"github.com/aescanero/ytscope/pkg/domain"
)

// ProviderClient is the capability set every language-model backend exposes.
// Implementations return plain domain values and substitute their documented
// defaults when a response cannot be parsed; transport failures are returned
// as errors.
type ProviderClient interface {
	Name() domain.ProviderName
	AnalyzeContent(ctx context.Context, item *domain.ContentItem) (*domain.Analysis, error)
	GenerateStoryboard(ctx context.Context, item *domain.ContentItem, analysis *domain.Analysis) (*domain.Storyboard, error)
	GenerateSummary(ctx context.Context, items []*domain.ContentItem, analyses []*domain.Analysis) (string, error)
	TestConnection(ctx context.Context) (time.Duration, error)
}

// ProviderFactory builds a ProviderClient on first use.
type ProviderFactory func() (ProviderClient, error)
