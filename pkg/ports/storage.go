package ports

import (
	"context"
	"errors"

	"github.com/aescanero/ytscope/pkg/domain"
)

// ErrNotFound is returned by storage adapters when a record does not exist.
var ErrNotFound = errors.New("not found")

// ContentFilter restricts ListContent results.
type ContentFilter struct {
	Source domain.Source
	Limit  int
	Offset int
}

// ContentRepository persists scraped items and everything derived from them.
type ContentRepository interface {
	SaveContent(ctx context.Context, item *domain.ContentItem) error
	GetContent(ctx context.Context, id string) (*domain.ContentItem, error)
	ListContent(ctx context.Context, filter ContentFilter) ([]*domain.ContentItem, error)
	DeleteContent(ctx context.Context, id string) error

	SaveAnalysis(ctx context.Context, analysis *domain.Analysis) error
	GetAnalysis(ctx context.Context, contentID string) (*domain.Analysis, error)
	SaveStoryboard(ctx context.Context, storyboard *domain.Storyboard) error
	GetStoryboard(ctx context.Context, contentID string) (*domain.Storyboard, error)

	SaveReport(ctx context.Context, report *domain.Report) error
	GetReport(ctx context.Context, id string) (*domain.Report, error)
	ListReports(ctx context.Context, limit, offset int) ([]domain.ReportSummary, error)
	DeleteReport(ctx context.Context, id string) error

	Close() error
}

// TaskStorage persists task state.
type TaskStorage interface {
	SaveTask(ctx context.Context, task *domain.Task) error
	GetTask(ctx context.Context, id string) (*domain.Task, error)
	ListTasks(ctx context.Context) ([]*domain.Task, error)
	DeleteTask(ctx context.Context, id string) error
}

// AnalysisCache short-circuits repeated analysis of unchanged items.
type AnalysisCache interface {
	Get(ctx context.Context, key string) (*domain.Analysis, bool)
	Set(ctx context.Context, key string, analysis *domain.Analysis)
}
