package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/aescanero/ytscope/pkg/domain"
	"github.com/aescanero/ytscope/pkg/ports"
)

func (s *Server) handleListContent(c *gin.Context) {
	limit, offset, err := pagination(c, 20)
	if err != nil {
		s.writeError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	source := domain.Source(c.Query("source"))
	if source != "" && !source.Valid() {
		s.writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "unknown source "+string(source))
		return
	}

	items, err := s.repo.ListContent(c.Request.Context(), ports.ContentFilter{Source: source, Limit: limit, Offset: offset})
	if err != nil {
		s.respondError(c, err)
		return
	}
	if items == nil {
		items = []*domain.ContentItem{}
	}

	c.JSON(http.StatusOK, gin.H{
		"content": items,
		"limit":   limit,
		"offset":  offset,
	})
}

func (s *Server) handleGetContent(c *gin.Context) {
	item, err := s.repo.GetContent(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func (s *Server) handleDeleteContent(c *gin.Context) {
	if err := s.repo.DeleteContent(c.Request.Context(), c.Param("id")); err != nil {
		s.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleGetAnalysis(c *gin.Context) {
	analysis, err := s.repo.GetAnalysis(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, analysis)
}

func (s *Server) handleGetStoryboard(c *gin.Context) {
	board, err := s.repo.GetStoryboard(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, board)
}
