package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/aescanero/ytscope/internal/application/orchestrator"
	"github.com/aescanero/ytscope/pkg/domain"
	"github.com/aescanero/ytscope/pkg/ports"
)

// AnalyzeRequest asks for one analysis. Provider pins a single provider and
// skips the fallback.
type AnalyzeRequest struct {
	Content  *domain.ContentItem `json:"content" binding:"required"`
	Provider domain.ProviderName `json:"provider"`
}

// StoryboardRequest asks for one storyboard. Without an analysis the item is
// analyzed first.
type StoryboardRequest struct {
	Content  *domain.ContentItem `json:"content" binding:"required"`
	Analysis *domain.Analysis    `json:"analysis"`
	Provider domain.ProviderName `json:"provider"`
}

func (s *Server) analyze(ctx context.Context, item *domain.ContentItem, provider domain.ProviderName) (*domain.Analysis, error) {
	if provider == "" {
		return s.orchestrator.AnalyzeContent(ctx, item)
	}
	return orchestrator.ExecuteOn(ctx, s.orchestrator, provider, orchestrator.OperationAnalyze,
		func(ctx context.Context, client ports.ProviderClient) (*domain.Analysis, error) {
			return client.AnalyzeContent(ctx, item)
		})
}

func (s *Server) handleAnalyze(c *gin.Context) {
	var req AnalyzeRequest
	if !s.bindJSON(c, &req) {
		return
	}
	if req.Content.Title == "" {
		s.writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "content.title is required")
		return
	}

	analysis, err := s.analyze(c.Request.Context(), req.Content, req.Provider)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, analysis)
}

func (s *Server) handleStoryboard(c *gin.Context) {
	var req StoryboardRequest
	if !s.bindJSON(c, &req) {
		return
	}
	if req.Content.Title == "" {
		s.writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "content.title is required")
		return
	}

	ctx := c.Request.Context()
	analysis := req.Analysis
	if analysis == nil {
		var err error
		if analysis, err = s.analyze(ctx, req.Content, req.Provider); err != nil {
			s.respondError(c, err)
			return
		}
	}

	var board *domain.Storyboard
	var err error
	if req.Provider == "" {
		board, err = s.orchestrator.GenerateStoryboard(ctx, req.Content, analysis)
	} else {
		board, err = orchestrator.ExecuteOn(ctx, s.orchestrator, req.Provider, orchestrator.OperationStoryboard,
			func(ctx context.Context, client ports.ProviderClient) (*domain.Storyboard, error) {
				return client.GenerateStoryboard(ctx, req.Content, analysis)
			})
	}
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"analysis":   analysis,
		"storyboard": board,
	})
}
