package llm

import (
	"fmt"
	"strings"

	"github.com/aescanero/ytscope/pkg/domain"
)

const analysisSystemPrompt = `You are a social media content analyst. Analyze the content you are given and respond with JSON only, using exactly this shape:
{
  "summary": "two or three sentences",
  "key_points": ["..."],
  "topics": ["..."],
  "sentiment": "positive | neutral | negative | mixed",
  "content_type": "tutorial | entertainment | news | review | opinion | other",
  "target_audience": "who this is for",
  "hooks": ["attention grabbing angles"],
  "engagement_score": 0-10,
  "viral_potential": 0-10,
  "recommendations": ["how a creator could reuse this"]
}`

const storyboardSystemPrompt = `You are a short-form video producer. Turn the analyzed content into a vertical video storyboard of 30 to 60 seconds and respond with JSON only, using exactly this shape:
{
  "title": "...",
  "hook": "first three seconds",
  "style": "visual style",
  "scenes": [
    {"number": 1, "duration_sec": 5, "visual": "...", "narration": "...", "text_overlay": "...", "transition": "cut"}
  ],
  "call_to_action": "..."
}`

const summarySystemPrompt = `You are a trend analyst. Summarize what the analyzed items have in common, which themes dominate and which content ideas look most promising. Answer in plain text, at most three short paragraphs.`

func analysisPrompt(item *domain.ContentItem) string {
	var b strings.Builder
	writeItem(&b, item)
	b.WriteString("\nAnalyze this content.")
	return b.String()
}

func storyboardPrompt(item *domain.ContentItem, analysis *domain.Analysis) string {
	var b strings.Builder
	writeItem(&b, item)
	if analysis != nil {
		fmt.Fprintf(&b, "\nAnalysis summary: %s\n", analysis.Summary)
		writeList(&b, "Key points", analysis.KeyPoints)
		writeList(&b, "Hooks", analysis.Hooks)
		if analysis.TargetAudience != "" {
			fmt.Fprintf(&b, "Target audience: %s\n", analysis.TargetAudience)
		}
	}
	b.WriteString("\nCreate the storyboard.")
	return b.String()
}

func summaryPrompt(items []*domain.ContentItem, analyses []*domain.Analysis) string {
	byID := make(map[string]*domain.Analysis, len(analyses))
	for _, a := range analyses {
		if a != nil {
			byID[a.ContentID] = a
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d items were analyzed.\n", len(items))
	for i, item := range items {
		fmt.Fprintf(&b, "\n%d. [%s] %s", i+1, item.Source, item.Title)
		if a, ok := byID[item.ID]; ok {
			fmt.Fprintf(&b, "\n   Summary: %s", a.Summary)
			if len(a.Topics) > 0 {
				fmt.Fprintf(&b, "\n   Topics: %s", strings.Join(a.Topics, ", "))
			}
			fmt.Fprintf(&b, "\n   Engagement: %.1f/10", a.EngagementScore)
		}
	}
	return b.String()
}

func writeItem(b *strings.Builder, item *domain.ContentItem) {
	fmt.Fprintf(b, "Source: %s\n", item.Source)
	fmt.Fprintf(b, "Title: %s\n", item.Title)
	if item.Author != "" {
		fmt.Fprintf(b, "Author: %s\n", item.Author)
	}
	if item.Community != "" {
		fmt.Fprintf(b, "Community: %s\n", item.Community)
	}
	if item.Views > 0 {
		fmt.Fprintf(b, "Views: %d\n", item.Views)
	}
	if item.Likes > 0 {
		fmt.Fprintf(b, "Likes: %d\n", item.Likes)
	}
	if item.Comments > 0 {
		fmt.Fprintf(b, "Comments: %d\n", item.Comments)
	}
	if item.Duration != "" {
		fmt.Fprintf(b, "Duration: %s\n", item.Duration)
	}
	if len(item.Tags) > 0 {
		fmt.Fprintf(b, "Tags: %s\n", strings.Join(item.Tags, ", "))
	}
	if item.Description != "" {
		fmt.Fprintf(b, "Description:\n%s\n", truncateRunes(item.Description, 2000))
	}
}

func writeList(b *strings.Builder, label string, values []string) {
	if len(values) == 0 {
		return
	}
	fmt.Fprintf(b, "%s:\n", label)
	for _, v := range values {
		fmt.Fprintf(b, "- %s\n", v)
	}
}
