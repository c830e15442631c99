package domain

import "time"

// ItemError records why one item of a run has no analysis or storyboard.
type ItemError struct {
	ContentID string `json:"content_id"`
	Stage     string `json:"stage"`
	Message   string `json:"message"`
}

// ProviderStats accumulates per-provider call statistics.
type ProviderStats struct {
	Requests        int64         `json:"requests"`
	Successes       int64         `json:"successes"`
	Failures        int64         `json:"failures"`
	AvgResponseTime time.Duration `json:"avg_response_time"`
}

// SuccessRate returns successes over requests, or 0 when nothing was attempted.
func (s ProviderStats) SuccessRate() float64 {
	if s.Requests == 0 {
		return 0
	}
	return float64(s.Successes) / float64(s.Requests)
}

// HealthState is the four-value classification of a provider's reliability.
type HealthState string

const (
	HealthUntested  HealthState = "untested"
	HealthHealthy   HealthState = "healthy"
	HealthDegraded  HealthState = "degraded"
	HealthUnhealthy HealthState = "unhealthy"
)

// HealthStatus is derived on demand from ProviderStats.
type HealthStatus struct {
	Status          HealthState   `json:"status"`
	SuccessRate     float64       `json:"success_rate"`
	Requests        int64         `json:"requests"`
	AvgResponseTime time.Duration `json:"avg_response_time"`
}

// Report is the persisted outcome of one pipeline run.
type Report struct {
	ID          string                         `json:"id"`
	TaskID      string                         `json:"task_id,omitempty"`
	Query       string                         `json:"query"`
	Sources     []Source                       `json:"sources"`
	Items       []*ContentItem                 `json:"items"`
	Analyses    map[string]*Analysis           `json:"analyses"`
	Storyboards map[string]*Storyboard         `json:"storyboards,omitempty"`
	Summary     string                         `json:"summary"`
	Errors      []ItemError                    `json:"errors,omitempty"`
	Stats       map[ProviderName]ProviderStats `json:"provider_stats"`
	Health      map[ProviderName]HealthStatus  `json:"provider_health"`
	StartedAt   time.Time                      `json:"started_at"`
	GeneratedAt time.Time                      `json:"generated_at"`
}

// ReportSummary is the list view of a report.
type ReportSummary struct {
	ID          string    `json:"id"`
	Query       string    `json:"query"`
	ItemCount   int       `json:"item_count"`
	GeneratedAt time.Time `json:"generated_at"`
}
