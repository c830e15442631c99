package orchestrator

import (
	"errors"
	"fmt"

	"github.com/aescanero/ytscope/pkg/domain"
)

var (
	// ErrOperationTimeout is the failure of an attempt that outlived the configured timeout.
	ErrOperationTimeout = errors.New("Operation timeout")

	// ErrUnknownProvider is returned when a provider name is not registered.
	ErrUnknownProvider = errors.New("unknown provider")

	// ErrNoProvidersAvailable is returned by AutoConfigure when every connection test fails.
	ErrNoProvidersAvailable = errors.New("no providers available")

	// ErrAllProvidersExhausted matches every *ExhaustedError.
	ErrAllProvidersExhausted = errors.New("all providers exhausted")

	// ErrInvalidConfig wraps orchestration config validation failures.
	ErrInvalidConfig = errors.New("invalid orchestration config")
)

// ExhaustedError is the terminal failure of an orchestrated operation. Its
// message carries only the primary provider's last error; the fallback's
// error, when one was attempted, is kept in FallbackErr.
type ExhaustedError struct {
	Operation   string
	Primary     domain.ProviderName
	PrimaryErr  error
	Fallback    domain.ProviderName
	FallbackErr error
}

func (e *ExhaustedError) Error() string {
	msg := "unknown error"
	if e.PrimaryErr != nil {
		msg = e.PrimaryErr.Error()
	}
	return fmt.Sprintf("%s failed on all providers: %s", e.Operation, msg)
}

// Is lets errors.Is match ErrAllProvidersExhausted.
func (e *ExhaustedError) Is(target error) bool {
	return target == ErrAllProvidersExhausted
}

// Unwrap exposes the primary provider's error.
func (e *ExhaustedError) Unwrap() error {
	return e.PrimaryErr
}
