package llm

import (
	"fmt"
	"strings"
	"time"

	"github.com/aescanero/ytscope/pkg/domain"
)

const (
	defaultSummaryRunes    = 280
	defaultStoryboardTotal = 30.0
	neutralScore           = 5.0
)

// DefaultAnalysis is returned when a provider replied but the reply could not
// be parsed.
func DefaultAnalysis(item *domain.ContentItem) *domain.Analysis {
	summary := truncateRunes(strings.TrimSpace(item.Description), defaultSummaryRunes)
	if summary == "" {
		summary = item.Title
	}
	return &domain.Analysis{
		ContentID:       item.ID,
		Summary:         summary,
		KeyPoints:       []string{},
		Topics:          []string{},
		Sentiment:       "neutral",
		ContentType:     "unknown",
		TargetAudience:  "general",
		Hooks:           []string{},
		EngagementScore: neutralScore,
		ViralPotential:  neutralScore,
		Recommendations: []string{},
		Fallback:        true,
		CreatedAt:       time.Now().UTC(),
	}
}

// DefaultStoryboard is a three scene hook, body, call-to-action plan.
func DefaultStoryboard(item *domain.ContentItem) *domain.Storyboard {
	return &domain.Storyboard{
		ContentID: item.ID,
		Title:     item.Title,
		Hook:      item.Title,
		Style:     "informative",
		Scenes: []domain.Scene{
			{Number: 1, DurationSec: 5, Visual: "Bold title card", Narration: item.Title, TextOverlay: item.Title, Transition: "cut"},
			{Number: 2, DurationSec: 20, Visual: "Key moments from the source", Narration: truncateRunes(item.Description, defaultSummaryRunes), Transition: "cut"},
			{Number: 3, DurationSec: 5, Visual: "Channel logo and subscribe prompt", Narration: "Follow for more.", TextOverlay: "Follow for more", Transition: "fade"},
		},
		TotalDurationSec: defaultStoryboardTotal,
		CallToAction:     "Follow for more",
		Fallback:         true,
		CreatedAt:        time.Now().UTC(),
	}
}

// DefaultSummary lists the titles of items.
func DefaultSummary(items []*domain.ContentItem) string {
	if len(items) == 0 {
		return "No content was analyzed."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Analyzed %d items:\n", len(items))
	for _, item := range items {
		fmt.Fprintf(&b, "- %s\n", item.Title)
	}
	return strings.TrimRight(b.String(), "\n")
}

func truncateRunes(s string, limit int) string {
	runes := []rune(strings.TrimSpace(s))
	if len(runes) <= limit {
		return string(runes)
	}
	return strings.TrimSpace(string(runes[:limit])) + "..."
}
