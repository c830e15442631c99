// Package reddit scrapes Reddit search listings through the public .json
// endpoints.
package reddit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/aescanero/ytscope/pkg/domain"
	"github.com/aescanero/ytscope/pkg/ports"
)

const (
	// DefaultBaseURL is the Reddit origin scraped in production
	DefaultBaseURL   = "https://www.reddit.com"
	defaultUserAgent = "ytscope/1.0 (content research)"
	defaultLimit     = 10
	maxLimit         = 100
)

// Config holds scraper settings
type Config struct {
	BaseURL    string
	UserAgent  string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Scraper implements ports.Scraper for Reddit
type Scraper struct {
	baseURL   string
	userAgent string
	client    *http.Client
	logger    *zap.Logger
	now       func() time.Time
}

var _ ports.Scraper = (*Scraper)(nil)

// New creates a Reddit scraper
func New(cfg Config, logger *zap.Logger) *Scraper {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Scraper{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		userAgent: cfg.UserAgent,
		client:    cfg.HTTPClient,
		logger:    logger,
		now:       time.Now,
	}
	if s.baseURL == "" {
		s.baseURL = DefaultBaseURL
	}
	if s.userAgent == "" {
		s.userAgent = defaultUserAgent
	}
	if s.client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 20 * time.Second
		}
		s.client = &http.Client{Timeout: timeout}
	}
	return s
}

// Source returns domain.SourceReddit
func (s *Scraper) Source() domain.Source {
	return domain.SourceReddit
}

type listing struct {
	Data struct {
		Children []struct {
			Kind string `json:"kind"`
			Data post   `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type post struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Selftext    string  `json:"selftext"`
	Author      string  `json:"author"`
	Subreddit   string  `json:"subreddit"`
	Score       int64   `json:"score"`
	NumComments int64   `json:"num_comments"`
	Permalink   string  `json:"permalink"`
	CreatedUTC  float64 `json:"created_utc"`
	Flair       string  `json:"link_flair_text"`
	Over18      bool    `json:"over_18"`
	Stickied    bool    `json:"stickied"`
}

// Scrape searches Reddit, scoped to req.Subreddit when set. A subreddit
// without a query returns its hot listing.
func (s *Scraper) Scrape(ctx context.Context, req ports.ScrapeRequest) ([]*domain.ContentItem, error) {
	target, err := s.listingURL(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("reddit listing: %w", err)
	}
	httpReq.Header.Set("User-Agent", s.userAgent)
	httpReq.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("reddit listing: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("reddit listing: http %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var l listing
	if err := json.NewDecoder(resp.Body).Decode(&l); err != nil {
		return nil, fmt.Errorf("reddit listing: decode: %w", err)
	}

	scrapedAt := s.now().UTC()
	items := make([]*domain.ContentItem, 0, len(l.Data.Children))
	for _, child := range l.Data.Children {
		p := child.Data
		if child.Kind != "t3" || p.ID == "" || p.Stickied || p.Over18 {
			continue
		}
		items = append(items, p.toItem(s.baseURL, scrapedAt))
	}

	s.logger.Debug("reddit listing scraped",
		zap.String("url", target),
		zap.Int("kept", len(items)))
	return items, nil
}

func (s *Scraper) listingURL(req ports.ScrapeRequest) (string, error) {
	query := strings.TrimSpace(req.Query)
	sub := strings.TrimPrefix(strings.TrimSpace(req.Subreddit), "r/")

	params := url.Values{}
	params.Set("limit", strconv.Itoa(clampLimit(req.Limit)))
	params.Set("raw_json", "1")

	switch {
	case sub != "" && query == "":
		return s.baseURL + "/r/" + url.PathEscape(sub) + "/hot.json?" + params.Encode(), nil
	case sub != "":
		params.Set("q", query)
		params.Set("restrict_sr", "1")
		params.Set("sort", "relevance")
		return s.baseURL + "/r/" + url.PathEscape(sub) + "/search.json?" + params.Encode(), nil
	case query != "":
		params.Set("q", query)
		params.Set("sort", "relevance")
		return s.baseURL + "/search.json?" + params.Encode(), nil
	default:
		return "", errors.New("reddit scrape: query or subreddit required")
	}
}

func (p post) toItem(baseURL string, scrapedAt time.Time) *domain.ContentItem {
	item := &domain.ContentItem{
		ID:          string(domain.SourceReddit) + ":" + p.ID,
		Source:      domain.SourceReddit,
		ExternalID:  p.ID,
		URL:         baseURL + p.Permalink,
		Title:       p.Title,
		Description: strings.TrimSpace(p.Selftext),
		Author:      p.Author,
		Community:   p.Subreddit,
		Likes:       p.Score,
		Comments:    p.NumComments,
		ScrapedAt:   scrapedAt,
	}
	if p.CreatedUTC > 0 {
		item.PublishedAt = time.Unix(int64(p.CreatedUTC), 0).UTC().Format(time.RFC3339)
	}
	if p.Flair != "" {
		item.Tags = []string{p.Flair}
	}
	return item
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return defaultLimit
	case limit > maxLimit:
		return maxLimit
	default:
		return limit
	}
}
