package youtube

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/aescanero/ytscope/pkg/domain"
	"github.com/aescanero/ytscope/pkg/ports"
)

const (
	// DefaultBaseURL is the YouTube origin scraped in production
	DefaultBaseURL = "https://www.youtube.com"

	initialDataMarker = "var ytInitialData = "
	videosOnlyFilter  = "EgIQAQ%3D%3D"
	maxPageBytes      = 4 * 1024 * 1024
	defaultLimit      = 10
	maxLimit          = 50
	defaultUserAgent  = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
)

// ErrNoInitialData is returned when a search page does not carry ytInitialData
var ErrNoInitialData = errors.New("ytInitialData not found in search page")

// Config holds scraper settings
type Config struct {
	BaseURL    string
	UserAgent  string
	Timeout    time.Duration
	Enrich     bool
	HTTPClient *http.Client
}

// Scraper implements ports.Scraper for YouTube
type Scraper struct {
	baseURL   string
	userAgent string
	enrich    bool
	client    *http.Client
	logger    *zap.Logger
	now       func() time.Time
}

var _ ports.Scraper = (*Scraper)(nil)

// New creates a YouTube scraper
func New(cfg Config, logger *zap.Logger) *Scraper {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Scraper{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		userAgent: cfg.UserAgent,
		enrich:    cfg.Enrich,
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

// Source returns domain.SourceYouTube
func (s *Scraper) Source() domain.Source {
	return domain.SourceYouTube
}

// Scrape searches YouTube for req.Query. When req.Channel is set only videos
// from a matching channel are kept.
func (s *Scraper) Scrape(ctx context.Context, req ports.ScrapeRequest) ([]*domain.ContentItem, error) {
	query := strings.TrimSpace(req.Query)
	if req.Channel != "" {
		query = strings.TrimSpace(query + " " + req.Channel)
	}
	if query == "" {
		return nil, errors.New("youtube scrape: query or channel required")
	}
	limit := clampLimit(req.Limit)

	searchURL := s.baseURL + "/results?search_query=" + url.QueryEscape(query) + "&sp=" + videosOnlyFilter
	body, err := s.fetch(ctx, searchURL)
	if err != nil {
		return nil, fmt.Errorf("youtube search page: %w", err)
	}

	data, err := initialData(body)
	if err != nil {
		return nil, fmt.Errorf("youtube search page: %w", err)
	}

	// Over-collect when filtering by channel
	collect := limit
	if req.Channel != "" {
		collect = maxLimit
	}
	videos := extractVideos(data, collect)

	scrapedAt := s.now().UTC()
	items := make([]*domain.ContentItem, 0, limit)
	for _, v := range videos {
		if len(items) >= limit {
			break
		}
		if req.Channel != "" && !strings.EqualFold(strings.TrimSpace(v.Channel), strings.TrimSpace(req.Channel)) {
			continue
		}
		items = append(items, v.toItem(s.baseURL, scrapedAt))
	}

	if s.enrich {
		for _, item := range items {
			if err := s.enrichItem(ctx, item); err != nil {
				s.logger.Warn("youtube watch page enrichment failed",
					zap.String("video_id", item.ExternalID),
					zap.Error(err))
			}
		}
	}

	s.logger.Debug("youtube search scraped",
		zap.String("query", query),
		zap.Int("found", len(videos)),
		zap.Int("kept", len(items)))
	return items, nil
}

func (s *Scraper) fetch(ctx context.Context, target string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
}

// initialData cuts the ytInitialData object out of a page
func initialData(page []byte) ([]byte, error) {
	idx := strings.Index(string(page), initialDataMarker)
	if idx < 0 {
		return nil, ErrNoInitialData
	}
	data := extractJSON(page[idx+len(initialDataMarker):])
	if data == nil {
		return nil, errors.New("unterminated ytInitialData object")
	}
	return data, nil
}

// extractJSON returns the complete JSON object starting at b[0] == '{'
func extractJSON(b []byte) []byte {
	if len(b) == 0 || b[0] != '{' {
		return nil
	}
	depth := 0
	inStr := false
	escaped := false
	for i, c := range b {
		if inStr {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inStr = false
			}
			continue
		}
		switch c {
		case '"':
			inStr = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return b[:i+1]
			}
		}
	}
	return nil
}

type textRuns struct {
	Runs       []struct{ Text string } `json:"runs"`
	SimpleText string                  `json:"simpleText"`
}

func (t *textRuns) String() string {
	if t == nil {
		return ""
	}
	if t.SimpleText != "" {
		return t.SimpleText
	}
	var b strings.Builder
	for _, r := range t.Runs {
		b.WriteString(r.Text)
	}
	return b.String()
}

type videoRenderer struct {
	VideoID            string    `json:"videoId"`
	Title              textRuns  `json:"title"`
	OwnerText          textRuns  `json:"ownerText"`
	DescriptionSnippet *textRuns `json:"descriptionSnippet"`
	ViewCountText      *textRuns `json:"viewCountText"`
	LengthText         *textRuns `json:"lengthText"`
	PublishedTimeText  *textRuns `json:"publishedTimeText"`
}

type video struct {
	ID          string
	Title       string
	Channel     string
	Description string
	Views       int64
	Length      string
	Published   string
}

func (v video) toItem(baseURL string, scrapedAt time.Time) *domain.ContentItem {
	return &domain.ContentItem{
		ID:          string(domain.SourceYouTube) + ":" + v.ID,
		Source:      domain.SourceYouTube,
		ExternalID:  v.ID,
		URL:         baseURL + "/watch?v=" + v.ID,
		Title:       v.Title,
		Description: v.Description,
		Author:      v.Channel,
		Community:   v.Channel,
		Views:       v.Views,
		Duration:    v.Length,
		PublishedAt: v.Published,
		ScrapedAt:   scrapedAt,
	}
}

// extractVideos walks ytInitialData for videoRenderer entries
func extractVideos(data []byte, limit int) []video {
	var results []video
	seen := make(map[string]bool)

	var walk func(v json.RawMessage)
	walk = func(v json.RawMessage) {
		if len(results) >= limit {
			return
		}
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(v, &obj); err == nil {
			if raw, ok := obj["videoRenderer"]; ok {
				var vr videoRenderer
				if err := json.Unmarshal(raw, &vr); err == nil && vr.VideoID != "" {
					if !seen[vr.VideoID] {
						seen[vr.VideoID] = true
						results = append(results, video{
							ID:          vr.VideoID,
							Title:       vr.Title.String(),
							Channel:     vr.OwnerText.String(),
							Description: vr.DescriptionSnippet.String(),
							Views:       parseCount(vr.ViewCountText.String()),
							Length:      vr.LengthText.String(),
							Published:   vr.PublishedTimeText.String(),
						})
					}
					return
				}
			}
			// map order is random, keep results in page order
			for _, key := range slices.Sorted(maps.Keys(obj)) {
				if len(results) >= limit {
					return
				}
				walk(obj[key])
			}
			return
		}
		var arr []json.RawMessage
		if err := json.Unmarshal(v, &arr); err == nil {
			for _, item := range arr {
				if len(results) >= limit {
					return
				}
				walk(item)
			}
		}
	}
	walk(data)
	return results
}

// parseCount reads the digits of "1,234,567 views"
func parseCount(text string) int64 {
	var digits strings.Builder
	for _, r := range text {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		} else if r != ',' && r != '.' && digits.Len() > 0 {
			break
		}
	}
	n, err := strconv.ParseInt(digits.String(), 10, 64)
	if err != nil {
		return 0
	}
	return n
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
