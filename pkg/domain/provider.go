package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ProviderName identifies one language-model backend.
type ProviderName string

const (
	ProviderAnthropic  ProviderName = "anthropic"
	ProviderOpenAI     ProviderName = "openai"
	ProviderDeepSeek   ProviderName = "deepseek"
	ProviderOpenRouter ProviderName = "openrouter"
)

// ErrInvalidProviderName is returned when a string does not name a known provider.
var ErrInvalidProviderName = errors.New("invalid provider name")

// KnownProviders lists every provider ytscope can talk to, in preference order.
func KnownProviders() []ProviderName {
	return []ProviderName{ProviderAnthropic, ProviderOpenAI, ProviderDeepSeek, ProviderOpenRouter}
}

// ParseProviderName normalizes s and checks it against the known set.
func ParseProviderName(s string) (ProviderName, error) {
	name := ProviderName(strings.ToLower(strings.TrimSpace(s)))
	if !name.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidProviderName, s)
	}
	return name, nil
}

// Valid reports whether n is one of the known providers.
func (n ProviderName) Valid() bool {
	switch n {
	case ProviderAnthropic, ProviderOpenAI, ProviderDeepSeek, ProviderOpenRouter:
		return true
	}
	return false
}

func (n ProviderName) String() string {
	return string(n)
}
