package domain

import "time"

// Source identifies where a content item was scraped from.
type Source string

const (
	SourceYouTube Source = "youtube"
	SourceReddit  Source = "reddit"
)

// Valid reports whether s is a supported source.
func (s Source) Valid() bool {
	return s == SourceYouTube || s == SourceReddit
}

// ContentItem is one scraped video or post.
type ContentItem struct {
	ID          string    `json:"id"`
	Source      Source    `json:"source"`
	ExternalID  string    `json:"external_id"`
	URL         string    `json:"url"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Author      string    `json:"author,omitempty"`
	Community   string    `json:"community,omitempty"` // channel or subreddit
	Views       int64     `json:"views,omitempty"`
	Likes       int64     `json:"likes,omitempty"`
	Comments    int64     `json:"comments,omitempty"`
	Duration    string    `json:"duration,omitempty"`
	PublishedAt string    `json:"published_at,omitempty"`
	Tags        []string  `json:"tags,omitempty"`
	ScrapedAt   time.Time `json:"scraped_at"`
}

// Analysis is the structured result of analysing one content item.
type Analysis struct {
	ContentID       string       `json:"content_id"`
	Provider        ProviderName `json:"provider,omitempty"`
	Summary         string       `json:"summary"`
	KeyPoints       []string     `json:"key_points"`
	Topics          []string     `json:"topics"`
	Sentiment       string       `json:"sentiment"`
	ContentType     string       `json:"content_type"`
	TargetAudience  string       `json:"target_audience"`
	Hooks           []string     `json:"hooks"`
	EngagementScore float64      `json:"engagement_score"`
	ViralPotential  float64      `json:"viral_potential"`
	Recommendations []string     `json:"recommendations"`
	Fallback        bool         `json:"fallback,omitempty"`
	CreatedAt       time.Time    `json:"created_at"`
}

// Scene is one shot of a storyboard.
type Scene struct {
	Number      int     `json:"number"`
	DurationSec float64 `json:"duration_sec"`
	Visual      string  `json:"visual"`
	Narration   string  `json:"narration"`
	TextOverlay string  `json:"text_overlay,omitempty"`
	Transition  string  `json:"transition,omitempty"`
}

// Storyboard is a short-form video plan derived from an item and its analysis.
type Storyboard struct {
	ContentID        string       `json:"content_id"`
	Provider         ProviderName `json:"provider,omitempty"`
	Title            string       `json:"title"`
	Hook             string       `json:"hook"`
	Style            string       `json:"style"`
	Scenes           []Scene      `json:"scenes"`
	TotalDurationSec float64      `json:"total_duration_sec"`
	CallToAction     string       `json:"call_to_action"`
	Fallback         bool         `json:"fallback,omitempty"`
	CreatedAt        time.Time    `json:"created_at"`
}
