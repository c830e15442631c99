package llm

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/aescanero/ytscope/pkg/adapters/llm/anthropic"
	"github.com/aescanero/ytscope/pkg/adapters/llm/openai"
	"github.com/aescanero/ytscope/pkg/domain"
	"github.com/aescanero/ytscope/pkg/ports"
)

// ProviderSettings configures one backend. A backend without an API key is
// not registered.
type ProviderSettings struct {
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`
	BaseURL     string  `toml:"base_url"`
	MaxTokens   int     `toml:"max_tokens"`
	Temperature float64 `toml:"temperature"`
}

// FactoryConfig holds LLM client configuration
type FactoryConfig struct {
	Providers map[domain.ProviderName]ProviderSettings

	// Transport-level retries, independent of orchestration retries
	HTTPRetryAttempts  int
	HTTPRetryBaseDelay time.Duration
	HTTPRetryMaxDelay  time.Duration
	HTTPTimeout        time.Duration

	Logger *zap.Logger
}

var defaultEndpoints = map[domain.ProviderName]string{
	domain.ProviderOpenAI:     openai.OpenAIEndpoint,
	domain.ProviderDeepSeek:   openai.DeepSeekEndpoint,
	domain.ProviderOpenRouter: openai.OpenRouterEndpoint,
}

// NewFactories returns a factory for every configured provider
func NewFactories(cfg FactoryConfig) map[domain.ProviderName]ports.ProviderFactory {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	factories := make(map[domain.ProviderName]ports.ProviderFactory)
	for _, name := range domain.KnownProviders() {
		settings, ok := cfg.Providers[name]
		if !ok || settings.APIKey == "" {
			continue
		}
		factories[name] = newFactory(name, settings, cfg, logger)
	}
	return factories
}

func newFactory(name domain.ProviderName, settings ProviderSettings, cfg FactoryConfig, logger *zap.Logger) ports.ProviderFactory {
	return func() (ports.ProviderClient, error) {
		var completer Completer

		switch name {
		case domain.ProviderAnthropic:
			client, err := anthropic.NewClient(anthropic.Config{
				APIKey:      settings.APIKey,
				Model:       settings.Model,
				BaseURL:     settings.BaseURL,
				MaxTokens:   settings.MaxTokens,
				Temperature: settings.Temperature,
				MaxRetries:  sdkRetries(cfg.HTTPRetryAttempts),
				Timeout:     cfg.HTTPTimeout,
			}, logger.Named("anthropic"))
			if err != nil {
				return nil, err
			}
			completer = client
		default:
			baseURL := settings.BaseURL
			if baseURL == "" {
				baseURL = defaultEndpoints[name]
			}
			opts := []openai.Option{
				openai.WithRetryMaxAttempts(cfg.HTTPRetryAttempts),
				openai.WithRetryBackoff(cfg.HTTPRetryBaseDelay, cfg.HTTPRetryMaxDelay),
			}
			if cfg.HTTPTimeout > 0 {
				opts = append(opts, openai.WithHTTPClient(&http.Client{Timeout: cfg.HTTPTimeout}))
			}
			client := openai.NewClient(openai.Config{
				APIKey:      settings.APIKey,
				BaseURL:     baseURL,
				Model:       settings.Model,
				MaxTokens:   settings.MaxTokens,
				Temperature: settings.Temperature,
				Title:       openRouterTitle(name),
			}, opts...)
			completer = client
		}

		logger.Info("provider client created",
			zap.String("provider", string(name)),
			zap.String("model", settings.Model))
		return NewService(name, completer, logger), nil
	}
}

// sdkRetries turns a total attempt count into the SDK's count of retries
// after the first request.
func sdkRetries(attempts int) int {
	return max(attempts-1, 0)
}

func openRouterTitle(name domain.ProviderName) string {
	if name == domain.ProviderOpenRouter {
		return "ytscope"
	}
	return ""
}
