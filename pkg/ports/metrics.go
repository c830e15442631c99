package ports

import "time"

// MetricsCollector receives operational measurements from the core.
type MetricsCollector interface {
	RecordProviderAttempt(provider, operation, outcome string, duration time.Duration)
	RecordFallback(operation, from, to string)
	RecordOperationResult(operation, status string)
	SetProviderHealth(provider string, healthy float64)
	RecordTaskSubmitted()
	RecordTaskCompleted(status string, duration time.Duration)
	RecordItemsScraped(source string, count int)
	RecordWorkerPoolStatus(idle, busy, stopped int)
}
