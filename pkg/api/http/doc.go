// Package http provides the HTTP REST API implementation.
//
// The HTTP server exposes endpoints for:
//   - Provider configuration, statistics, health and auto-configuration
//   - Direct analysis and storyboard calls
//   - Task submission, status and cancellation
//   - Stored content, analyses, storyboards and reports
//   - Health checks and Prometheus metrics
package http
