// Package orchestrator routes language-model operations across providers.
//
// The Manager sits on top of a Registry of lazily constructed provider
// clients and applies the call policy:
//   - every attempt is bounded by the configured timeout
//   - a failing provider is retried with linear backoff (delay * attempt)
//   - once the primary's retry budget is spent the fallback gets its own budget
//   - per-provider statistics are updated on every attempt
//
// Health is derived from those statistics on demand, and AutoConfigure picks
// the primary and fallback providers from measured connection latency.
package orchestrator
