package orchestrator

import (
	"github.com/aescanero/ytscope/pkg/domain"
)

const (
	healthyThreshold  = 0.9
	degradedThreshold = 0.5
)

// ClassifyHealth maps provider statistics to a health state
func ClassifyHealth(s domain.ProviderStats) domain.HealthStatus {
	status := domain.HealthStatus{
		Status:          domain.HealthUntested,
		SuccessRate:     s.SuccessRate(),
		Requests:        s.Requests,
		AvgResponseTime: s.AvgResponseTime,
	}
	if s.Requests == 0 {
		return status
	}

	switch rate := status.SuccessRate; {
	case rate >= healthyThreshold:
		status.Status = domain.HealthHealthy
	case rate >= degradedThreshold:
		status.Status = domain.HealthDegraded
	default:
		status.Status = domain.HealthUnhealthy
	}
	return status
}

// GetServiceHealth classifies every provider from its current stats
func (m *Manager) GetServiceHealth() map[domain.ProviderName]domain.HealthStatus {
	stats := m.GetServiceStats()
	health := make(map[domain.ProviderName]domain.HealthStatus, len(stats))
	for name, s := range stats {
		health[name] = ClassifyHealth(s)
	}
	return health
}
