// Package storage provides persistence adapters.
//
// Implementations:
//   - sqlite: content, analyses, storyboards and reports in one database file
//   - redis: task state with JSON serialization and TTL
//   - memory: in-memory twins of both, for tests and Redis-less runs
package storage
