package orchestrator

import (
	"fmt"
	"time"

	"github.com/aescanero/ytscope/pkg/domain"
)

// Config is the routing and retry policy applied to every orchestrated call.
type Config struct {
	Primary         domain.ProviderName `json:"primary"`
	Fallback        domain.ProviderName `json:"fallback,omitempty"`
	RetryAttempts   int                 `json:"retry_attempts"`
	Timeout         time.Duration       `json:"timeout"`
	RateLimitDelay  time.Duration       `json:"rate_limit_delay"`
	FallbackEnabled bool                `json:"fallback_enabled"`
	BatchSize       int                 `json:"batch_size"`
}

// ConfigUpdate carries a partial change to Config; nil fields are left alone.
type ConfigUpdate struct {
	Primary         *domain.ProviderName `json:"primary,omitempty"`
	Fallback        *domain.ProviderName `json:"fallback,omitempty"`
	RetryAttempts   *int                 `json:"retry_attempts,omitempty"`
	Timeout         *time.Duration       `json:"timeout,omitempty"`
	RateLimitDelay  *time.Duration       `json:"rate_limit_delay,omitempty"`
	FallbackEnabled *bool                `json:"fallback_enabled,omitempty"`
	BatchSize       *int                 `json:"batch_size,omitempty"`
}

// apply returns a copy of c with the update's non-nil fields set.
func (u ConfigUpdate) apply(c Config) Config {
	if u.Primary != nil {
		c.Primary = *u.Primary
	}
	if u.Fallback != nil {
		c.Fallback = *u.Fallback
	}
	if u.RetryAttempts != nil {
		c.RetryAttempts = *u.RetryAttempts
	}
	if u.Timeout != nil {
		c.Timeout = *u.Timeout
	}
	if u.RateLimitDelay != nil {
		c.RateLimitDelay = *u.RateLimitDelay
	}
	if u.FallbackEnabled != nil {
		c.FallbackEnabled = *u.FallbackEnabled
	}
	if u.BatchSize != nil {
		c.BatchSize = *u.BatchSize
	}
	return c
}

// validate checks c against the registry.
func (c Config) validate(registry *Registry) error {
	if c.Primary == "" {
		return fmt.Errorf("%w: primary provider is required", ErrInvalidConfig)
	}
	if !registry.Has(c.Primary) {
		return fmt.Errorf("%w: primary: %w: %s", ErrInvalidConfig, ErrUnknownProvider, c.Primary)
	}
	if c.Fallback != "" && !registry.Has(c.Fallback) {
		return fmt.Errorf("%w: fallback: %w: %s", ErrInvalidConfig, ErrUnknownProvider, c.Fallback)
	}
	if c.RetryAttempts < 1 {
		return fmt.Errorf("%w: retry attempts must be at least 1, got %d", ErrInvalidConfig, c.RetryAttempts)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("%w: timeout must be positive, got %s", ErrInvalidConfig, c.Timeout)
	}
	if c.RateLimitDelay < 0 {
		return fmt.Errorf("%w: rate limit delay must not be negative, got %s", ErrInvalidConfig, c.RateLimitDelay)
	}
	if c.BatchSize < 1 {
		return fmt.Errorf("%w: batch size must be at least 1, got %d", ErrInvalidConfig, c.BatchSize)
	}
	return nil
}
