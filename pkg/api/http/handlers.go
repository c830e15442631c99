package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/aescanero/ytscope/internal/application/orchestrator"
	"github.com/aescanero/ytscope/internal/application/pipeline"
	"github.com/aescanero/ytscope/pkg/domain"
	"github.com/aescanero/ytscope/pkg/ports"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail represents error details
type ErrorDetail struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

func (s *Server) writeError(c *gin.Context, status int, code, message string) {
	c.JSON(status, ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
		},
	})
}

// respondError maps err onto a status code and error code
func (s *Server) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ports.ErrNotFound):
		s.writeError(c, http.StatusNotFound, "NOT_FOUND", err.Error())
	case errors.Is(err, pipeline.ErrInvalidRequest),
		errors.Is(err, orchestrator.ErrInvalidConfig),
		errors.Is(err, orchestrator.ErrUnknownProvider),
		errors.Is(err, domain.ErrInvalidProviderName):
		s.writeError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
	case errors.Is(err, pipeline.ErrTaskFinished):
		s.writeError(c, http.StatusConflict, "TASK_FINISHED", err.Error())
	case errors.Is(err, orchestrator.ErrNoProvidersAvailable):
		s.writeError(c, http.StatusServiceUnavailable, "NO_PROVIDERS_AVAILABLE", err.Error())
	case errors.Is(err, orchestrator.ErrAllProvidersExhausted):
		s.writeError(c, http.StatusBadGateway, "PROVIDERS_EXHAUSTED", err.Error())
	default:
		s.logger.Error("request failed",
			zap.String("path", c.Request.URL.Path),
			zap.Error(err))
		s.writeError(c, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
	}
}

func (s *Server) bindJSON(c *gin.Context, target any) bool {
	if err := c.ShouldBindJSON(target); err != nil {
		s.writeError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return false
	}
	return true
}

// handleHealth reports overall status from provider health
func (s *Server) handleHealth(c *gin.Context) {
	health := s.orchestrator.GetServiceHealth()

	status := "healthy"
	for _, h := range health {
		if h.Status == domain.HealthUnhealthy {
			status = "degraded"
			break
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    status,
		"timestamp": time.Now().UTC(),
		"providers": healthViews(health),
	})
}

// pagination reads limit and offset query parameters
func pagination(c *gin.Context, defaultLimit int) (limit, offset int, err error) {
	limit = defaultLimit
	if v := c.Query("limit"); v != "" {
		if limit, err = strconv.Atoi(v); err != nil || limit < 1 {
			return 0, 0, errors.New("limit must be a positive integer")
		}
	}
	if v := c.Query("offset"); v != "" {
		if offset, err = strconv.Atoi(v); err != nil || offset < 0 {
			return 0, 0, errors.New("offset must be a non-negative integer")
		}
	}
	return limit, offset, nil
}
