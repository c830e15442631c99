package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/aescanero/ytscope/pkg/domain"
	"github.com/aescanero/ytscope/pkg/ports"
)

// Repository implements ports.ContentRepository using in-memory maps
type Repository struct {
	mu          sync.RWMutex
	content     map[string]*domain.ContentItem
	analyses    map[string]*domain.Analysis
	storyboards map[string]*domain.Storyboard
	reports     map[string]*domain.Report
}

var _ ports.ContentRepository = (*Repository)(nil)

// NewRepository creates an empty repository
func NewRepository() *Repository {
	return &Repository{
		content:     make(map[string]*domain.ContentItem),
		analyses:    make(map[string]*domain.Analysis),
		storyboards: make(map[string]*domain.Storyboard),
		reports:     make(map[string]*domain.Report),
	}
}

// SaveContent stores a copy of item
func (r *Repository) SaveContent(ctx context.Context, item *domain.ContentItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *item
	r.content[item.ID] = &cp
	return nil
}

// GetContent returns a copy of one item
func (r *Repository) GetContent(ctx context.Context, id string) (*domain.ContentItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	item, ok := r.content[id]
	if !ok {
		return nil, fmt.Errorf("get content %s: %w", id, ports.ErrNotFound)
	}
	cp := *item
	return &cp, nil
}

// ListContent returns items, newest scrape first
func (r *Repository) ListContent(ctx context.Context, filter ports.ContentFilter) ([]*domain.ContentItem, error) {
	r.mu.RLock()
	items := make([]*domain.ContentItem, 0, len(r.content))
	for _, item := range r.content {
		if filter.Source != "" && item.Source != filter.Source {
			continue
		}
		cp := *item
		items = append(items, &cp)
	}
	r.mu.RUnlock()

	sort.Slice(items, func(i, j int) bool {
		if !items[i].ScrapedAt.Equal(items[j].ScrapedAt) {
			return items[i].ScrapedAt.After(items[j].ScrapedAt)
		}
		return items[i].ID < items[j].ID
	})
	return page(items, filter.Limit, filter.Offset), nil
}

// DeleteContent removes an item together with its analysis and storyboard
func (r *Repository) DeleteContent(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.content[id]; !ok {
		return fmt.Errorf("delete content %s: %w", id, ports.ErrNotFound)
	}
	delete(r.content, id)
	delete(r.analyses, id)
	delete(r.storyboards, id)
	return nil
}

// SaveAnalysis stores the analysis of one item
func (r *Repository) SaveAnalysis(ctx context.Context, analysis *domain.Analysis) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *analysis
	r.analyses[analysis.ContentID] = &cp
	return nil
}

// GetAnalysis returns the analysis of contentID
func (r *Repository) GetAnalysis(ctx context.Context, contentID string) (*domain.Analysis, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.analyses[contentID]
	if !ok {
		return nil, fmt.Errorf("get analysis %s: %w", contentID, ports.ErrNotFound)
	}
	cp := *a
	return &cp, nil
}

// SaveStoryboard stores the storyboard of one item
func (r *Repository) SaveStoryboard(ctx context.Context, board *domain.Storyboard) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *board
	r.storyboards[board.ContentID] = &cp
	return nil
}

// GetStoryboard returns the storyboard of contentID
func (r *Repository) GetStoryboard(ctx context.Context, contentID string) (*domain.Storyboard, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.storyboards[contentID]
	if !ok {
		return nil, fmt.Errorf("get storyboard %s: %w", contentID, ports.ErrNotFound)
	}
	cp := *b
	return &cp, nil
}

// SaveReport stores a report
func (r *Repository) SaveReport(ctx context.Context, report *domain.Report) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *report
	r.reports[report.ID] = &cp
	return nil
}

// GetReport returns one report
func (r *Repository) GetReport(ctx context.Context, id string) (*domain.Report, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	report, ok := r.reports[id]
	if !ok {
		return nil, fmt.Errorf("get report %s: %w", id, ports.ErrNotFound)
	}
	cp := *report
	return &cp, nil
}

// ListReports returns report summaries, newest first
func (r *Repository) ListReports(ctx context.Context, limit, offset int) ([]domain.ReportSummary, error) {
	r.mu.RLock()
	out := make([]domain.ReportSummary, 0, len(r.reports))
	for _, report := range r.reports {
		out = append(out, domain.ReportSummary{
			ID:          report.ID,
			Query:       report.Query,
			ItemCount:   len(report.Items),
			GeneratedAt: report.GeneratedAt,
		})
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].GeneratedAt.Equal(out[j].GeneratedAt) {
			return out[i].GeneratedAt.After(out[j].GeneratedAt)
		}
		return out[i].ID < out[j].ID
	})
	return page(out, limit, offset), nil
}

// DeleteReport removes a report
func (r *Repository) DeleteReport(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.reports[id]; !ok {
		return fmt.Errorf("delete report %s: %w", id, ports.ErrNotFound)
	}
	delete(r.reports, id)
	return nil
}

// Close is a no-op
func (r *Repository) Close() error {
	return nil
}

func page[T any](values []T, limit, offset int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(values) {
		return values[:0]
	}
	values = values[offset:]
	if limit > 0 && limit < len(values) {
		values = values[:limit]
	}
	return values
}
