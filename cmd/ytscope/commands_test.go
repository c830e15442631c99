package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aescanero/ytscope/internal/application/orchestrator"
	httpapi "github.com/aescanero/ytscope/pkg/api/http"
	"github.com/aescanero/ytscope/pkg/domain"
)

func TestVersionCommandSkipsConfig(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")

	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "ytscope "+Version)
}

func TestAnalyzeRejectsUnknownFormat(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "test-key")
	t.Setenv("AI_PRIMARY_SERVICE", "anthropic")

	cmd := newRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"analyze", "golang", "--format", "pdf"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pdf")
}

func TestAnalyzeOptionsRequest(t *testing.T) {
	opts := analyzeOptions{
		query:       "golang",
		sources:     []string{"youtube", "reddit"},
		limit:       5,
		subreddit:   "golang",
		storyboards: true,
		provider:    " OpenAI ",
	}

	req, err := opts.request()
	require.NoError(t, err)
	assert.Equal(t, []domain.Source{domain.SourceYouTube, domain.SourceReddit}, req.Sources)
	assert.Equal(t, domain.ProviderOpenAI, req.Provider)
	assert.True(t, req.Storyboards)

	opts.provider = "gemini"
	_, err = opts.request()
	assert.True(t, errors.Is(err, domain.ErrInvalidProviderName))
}

func TestRenderConnectionResults(t *testing.T) {
	out := renderConnectionResults(map[domain.ProviderName]orchestrator.ConnectionResult{
		domain.ProviderOpenAI:    {Available: true, ResponseTime: 120 * time.Millisecond},
		domain.ProviderAnthropic: {Error: "401 unauthorized"},
	})

	assert.Contains(t, out, "120ms")
	assert.Contains(t, out, "401 unauthorized")
	assert.Less(t, strings.Index(out, "anthropic"), strings.Index(out, "openai"))

	assert.Equal(t, "No providers configured.", renderConnectionResults(nil))
}

func TestRenderHealth(t *testing.T) {
	out := renderHealth(map[domain.ProviderName]httpapi.HealthView{
		domain.ProviderAnthropic: {Status: domain.HealthDegraded, SuccessRate: 0.75, Requests: 4, AvgResponseTimeMS: 900},
	})

	assert.Contains(t, out, "degraded")
	assert.Contains(t, out, "75%")
	assert.Contains(t, out, "900ms")
}

func TestRenderTablePadsShortRows(t *testing.T) {
	out := renderTable([]string{"A", "B"}, [][]string{{"only"}}, []columnAlignment{alignLeft, alignRight})
	assert.Contains(t, out, "only")
	assert.Empty(t, renderTable(nil, nil, nil))
}
