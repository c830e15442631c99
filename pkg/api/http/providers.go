package http

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/aescanero/ytscope/internal/application/orchestrator"
	"github.com/aescanero/ytscope/pkg/domain"
)

// ConfigView is the JSON form of the orchestration config; durations are
// Go duration strings such as "30s".
type ConfigView struct {
	Primary         domain.ProviderName `json:"primary"`
	Fallback        domain.ProviderName `json:"fallback"`
	RetryAttempts   int                 `json:"retry_attempts"`
	Timeout         string              `json:"timeout"`
	RateLimitDelay  string              `json:"rate_limit_delay"`
	FallbackEnabled bool                `json:"fallback_enabled"`
	BatchSize       int                 `json:"batch_size"`
}

// ConfigUpdateRequest is a partial config change
type ConfigUpdateRequest struct {
	Primary         *domain.ProviderName `json:"primary"`
	Fallback        *domain.ProviderName `json:"fallback"`
	RetryAttempts   *int                 `json:"retry_attempts"`
	Timeout         *string              `json:"timeout"`
	RateLimitDelay  *string              `json:"rate_limit_delay"`
	FallbackEnabled *bool                `json:"fallback_enabled"`
	BatchSize       *int                 `json:"batch_size"`
}

// ProviderRequest names one provider; an empty name clears the fallback
type ProviderRequest struct {
	Provider domain.ProviderName `json:"provider"`
}

// StatsView is one provider's statistics
type StatsView struct {
	Requests          int64   `json:"requests"`
	Successes         int64   `json:"successes"`
	Failures          int64   `json:"failures"`
	SuccessRate       float64 `json:"success_rate"`
	AvgResponseTimeMS int64   `json:"avg_response_time_ms"`
}

// HealthView is one provider's derived health
type HealthView struct {
	Status            domain.HealthState `json:"status"`
	SuccessRate       float64            `json:"success_rate"`
	Requests          int64              `json:"requests"`
	AvgResponseTimeMS int64              `json:"avg_response_time_ms"`
}

// ConnectionView is one provider's connection test result
type ConnectionView struct {
	Available      bool   `json:"available"`
	ResponseTimeMS int64  `json:"response_time_ms"`
	Error          string `json:"error,omitempty"`
}

// ProviderView summarizes one registered provider
type ProviderView struct {
	Name     domain.ProviderName `json:"name"`
	Primary  bool                `json:"primary"`
	Fallback bool                `json:"fallback"`
	Stats    StatsView           `json:"stats"`
	Health   HealthView          `json:"health"`
}

func configView(cfg orchestrator.Config) ConfigView {
	return ConfigView{
		Primary:         cfg.Primary,
		Fallback:        cfg.Fallback,
		RetryAttempts:   cfg.RetryAttempts,
		Timeout:         cfg.Timeout.String(),
		RateLimitDelay:  cfg.RateLimitDelay.String(),
		FallbackEnabled: cfg.FallbackEnabled,
		BatchSize:       cfg.BatchSize,
	}
}

func statsViews(stats map[domain.ProviderName]domain.ProviderStats) map[domain.ProviderName]StatsView {
	out := make(map[domain.ProviderName]StatsView, len(stats))
	for name, s := range stats {
		out[name] = StatsView{
			Requests:          s.Requests,
			Successes:         s.Successes,
			Failures:          s.Failures,
			SuccessRate:       s.SuccessRate(),
			AvgResponseTimeMS: s.AvgResponseTime.Milliseconds(),
		}
	}
	return out
}

func healthViews(health map[domain.ProviderName]domain.HealthStatus) map[domain.ProviderName]HealthView {
	out := make(map[domain.ProviderName]HealthView, len(health))
	for name, h := range health {
		out[name] = HealthView{
			Status:            h.Status,
			SuccessRate:       h.SuccessRate,
			Requests:          h.Requests,
			AvgResponseTimeMS: h.AvgResponseTime.Milliseconds(),
		}
	}
	return out
}

func (r ConfigUpdateRequest) toUpdate() (orchestrator.ConfigUpdate, error) {
	update := orchestrator.ConfigUpdate{
		Primary:         r.Primary,
		Fallback:        r.Fallback,
		RetryAttempts:   r.RetryAttempts,
		FallbackEnabled: r.FallbackEnabled,
		BatchSize:       r.BatchSize,
	}
	if r.Timeout != nil {
		d, err := time.ParseDuration(*r.Timeout)
		if err != nil {
			return update, fmt.Errorf("%w: timeout: %v", orchestrator.ErrInvalidConfig, err)
		}
		update.Timeout = &d
	}
	if r.RateLimitDelay != nil {
		d, err := time.ParseDuration(*r.RateLimitDelay)
		if err != nil {
			return update, fmt.Errorf("%w: rate_limit_delay: %v", orchestrator.ErrInvalidConfig, err)
		}
		update.RateLimitDelay = &d
	}
	return update, nil
}

func (s *Server) handleListProviders(c *gin.Context) {
	cfg := s.orchestrator.GetConfig()
	stats := statsViews(s.orchestrator.GetServiceStats())
	health := healthViews(s.orchestrator.GetServiceHealth())

	names := s.orchestrator.Providers()
	providers := make([]ProviderView, 0, len(names))
	for _, name := range names {
		providers = append(providers, ProviderView{
			Name:     name,
			Primary:  name == cfg.Primary,
			Fallback: name == cfg.Fallback,
			Stats:    stats[name],
			Health:   health[name],
		})
	}

	c.JSON(http.StatusOK, gin.H{"providers": providers})
}

func (s *Server) handleGetConfig(c *gin.Context) {
	c.JSON(http.StatusOK, configView(s.orchestrator.GetConfig()))
}

func (s *Server) handleUpdateConfig(c *gin.Context) {
	var req ConfigUpdateRequest
	if !s.bindJSON(c, &req) {
		return
	}

	update, err := req.toUpdate()
	if err != nil {
		s.respondError(c, err)
		return
	}

	cfg, err := s.orchestrator.UpdateConfig(update)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, configView(cfg))
}

func (s *Server) handleSetPrimary(c *gin.Context) {
	var req ProviderRequest
	if !s.bindJSON(c, &req) {
		return
	}
	if err := s.orchestrator.SetPrimaryService(req.Provider); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, configView(s.orchestrator.GetConfig()))
}

func (s *Server) handleSetFallback(c *gin.Context) {
	var req ProviderRequest
	if !s.bindJSON(c, &req) {
		return
	}
	if err := s.orchestrator.SetFallbackService(req.Provider); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, configView(s.orchestrator.GetConfig()))
}

func (s *Server) handleGetStats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"stats": statsViews(s.orchestrator.GetServiceStats())})
}

func (s *Server) handleResetStats(c *gin.Context) {
	s.orchestrator.ResetStats()
	c.JSON(http.StatusOK, gin.H{"stats": statsViews(s.orchestrator.GetServiceStats())})
}

func (s *Server) handleProviderHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"health": healthViews(s.orchestrator.GetServiceHealth())})
}

func (s *Server) handleTestProviders(c *gin.Context) {
	results := s.orchestrator.TestAllProviders(c.Request.Context())

	out := make(map[domain.ProviderName]ConnectionView, len(results))
	for name, r := range results {
		out[name] = ConnectionView{
			Available:      r.Available,
			ResponseTimeMS: r.ResponseTime.Milliseconds(),
			Error:          r.Error,
		}
	}
	c.JSON(http.StatusOK, gin.H{"results": out})
}

func (s *Server) handleAutoConfigure(c *gin.Context) {
	cfg, err := s.orchestrator.AutoConfigure(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, configView(cfg))
}
