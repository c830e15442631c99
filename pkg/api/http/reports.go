package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/aescanero/ytscope/pkg/domain"
)

func (s *Server) handleListReports(c *gin.Context) {
	limit, offset, err := pagination(c, 20)
	if err != nil {
		s.writeError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	reports, err := s.repo.ListReports(c.Request.Context(), limit, offset)
	if err != nil {
		s.respondError(c, err)
		return
	}
	if reports == nil {
		reports = []domain.ReportSummary{}
	}

	c.JSON(http.StatusOK, gin.H{
		"reports": reports,
		"limit":   limit,
		"offset":  offset,
	})
}

func (s *Server) handleGetReport(c *gin.Context) {
	report, err := s.repo.GetReport(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (s *Server) handleDeleteReport(c *gin.Context) {
	if err := s.repo.DeleteReport(c.Request.Context(), c.Param("id")); err != nil {
		s.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleReportHTML(c *gin.Context) {
	report, err := s.repo.GetReport(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}

	page, err := s.renderer.HTML(report)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", page)
}

func (s *Server) handleReportMarkdown(c *gin.Context) {
	report, err := s.repo.GetReport(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}

	md, err := s.renderer.Markdown(report)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.Data(http.StatusOK, "text/markdown; charset=utf-8", []byte(md))
}
