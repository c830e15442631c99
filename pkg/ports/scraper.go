package ports

import (
	"context"

	"github.com/aescanero/ytscope/pkg/domain"
)

// ScrapeRequest narrows what a scraper collects.
type ScrapeRequest struct {
	Query     string
	Limit     int
	Channel   string
	Subreddit string
}

// Scraper collects raw content items from one source.
type Scraper interface {
	Source() domain.Source
	Scrape(ctx context.Context, req ScrapeRequest) ([]*domain.ContentItem, error)
}
