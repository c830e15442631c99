package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aescanero/ytscope/pkg/domain"
)

// clearEnv blanks every variable the tests depend on
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"YTSCOPE_HTTP_PORT", "YTSCOPE_GRPC_PORT", "LOG_LEVEL", "YTSCOPE_DATA_DIR", "YTSCOPE_DB_PATH", "YTSCOPE_PROVIDERS_FILE",
		"REDIS_ADDR", "AI_PRIMARY_SERVICE", "AI_FALLBACK_SERVICE", "AI_RETRY_ATTEMPTS", "AI_TIMEOUT", "AI_RATE_LIMIT_DELAY",
		"AI_BATCH_SIZE", "AI_FALLBACK_ENABLED", "ANTHROPIC_API_KEY", "ANTHROPIC_MODEL", "ANTHROPIC_BASE_URL",
		"OPENAI_API_KEY", "OPENAI_MODEL", "OPENAI_BASE_URL", "DEEPSEEK_API_KEY", "DEEPSEEK_MODEL",
		"OPENROUTER_API_KEY", "OPENROUTER_MODEL", "LLM_MAX_TOKENS", "LLM_TEMPERATURE", "WORKER_POOL_SIZE",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, ":9090", cfg.GetGRPCAddr())
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.Redis.Enabled())
	assert.Equal(t, filepath.Join("data", "ytscope.db"), cfg.DatabasePath())
	assert.Equal(t, filepath.Join("data", "ytscope.lock"), cfg.LockPath())
	assert.Equal(t, 30*time.Minute, cfg.Timeouts.TaskExecution)

	orch := cfg.OrchestratorConfig()
	assert.Equal(t, domain.ProviderAnthropic, orch.Primary)
	assert.Empty(t, orch.Fallback, "fallback without a key is dropped")
	assert.Equal(t, 3, orch.RetryAttempts)
	assert.Equal(t, 30*time.Second, orch.Timeout)
	assert.Equal(t, time.Second, orch.RateLimitDelay)
	assert.Equal(t, 5, orch.BatchSize)
	assert.True(t, orch.FallbackEnabled)
}

func TestLoadWithFallback(t *testing.T) {
	clearEnv(t)
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant")
	t.Setenv("OPENAI_API_KEY", "sk-oai")
	t.Setenv("AI_PRIMARY_SERVICE", "OpenAI")
	t.Setenv("AI_FALLBACK_SERVICE", "anthropic")

	cfg, err := Load()
	require.NoError(t, err)

	orch := cfg.OrchestratorConfig()
	assert.Equal(t, domain.ProviderOpenAI, orch.Primary)
	assert.Equal(t, domain.ProviderAnthropic, orch.Fallback)
	assert.Len(t, cfg.ProviderSettings(), 2)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "no providers", env: map[string]string{}},
		{name: "primary without key", env: map[string]string{"OPENAI_API_KEY": "k"}},
		{name: "unknown primary", env: map[string]string{"ANTHROPIC_API_KEY": "k", "AI_PRIMARY_SERVICE": "bard"}},
		{name: "unknown fallback", env: map[string]string{"ANTHROPIC_API_KEY": "k", "AI_FALLBACK_SERVICE": "bard"}},
		{name: "bad port", env: map[string]string{"ANTHROPIC_API_KEY": "k", "YTSCOPE_HTTP_PORT": "70000"}},
		{name: "bad log level", env: map[string]string{"ANTHROPIC_API_KEY": "k", "LOG_LEVEL": "loud"}},
		{name: "zero retries", env: map[string]string{"ANTHROPIC_API_KEY": "k", "AI_RETRY_ATTEMPTS": "0"}},
		{name: "zero batch", env: map[string]string{"ANTHROPIC_API_KEY": "k", "AI_BATCH_SIZE": "0"}},
		{name: "zero workers", env: map[string]string{"ANTHROPIC_API_KEY": "k", "WORKER_POOL_SIZE": "0"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestProvidersFileOverlay(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "providers.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[providers.deepseek]
api_key = "file-key"
model = "deepseek-chat"
max_tokens = 900

[providers.anthropic]
model = "claude-from-file"
temperature = 0.2
`), 0o600))

	t.Setenv("YTSCOPE_PROVIDERS_FILE", path)
	t.Setenv("ANTHROPIC_API_KEY", "env-key")
	t.Setenv("ANTHROPIC_MODEL", "claude-from-env")
	t.Setenv("LLM_MAX_TOKENS", "1500")

	cfg, err := Load()
	require.NoError(t, err)

	settings := cfg.ProviderSettings()
	require.Len(t, settings, 2)

	assert.Equal(t, "file-key", settings[domain.ProviderDeepSeek].APIKey)
	assert.Equal(t, "deepseek-chat", settings[domain.ProviderDeepSeek].Model)
	assert.Equal(t, 900, settings[domain.ProviderDeepSeek].MaxTokens)

	assert.Equal(t, "claude-from-env", settings[domain.ProviderAnthropic].Model)
	assert.Equal(t, 1500, settings[domain.ProviderAnthropic].MaxTokens)
	assert.Equal(t, 0.2, settings[domain.ProviderAnthropic].Temperature)

	fc := cfg.FactoryConfig()
	assert.Len(t, fc.Providers, 2)
	assert.Equal(t, 3, fc.HTTPRetryAttempts)
}

func TestProvidersFileTuningOverridesGlobalDefaults(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "providers.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[providers.anthropic]
temperature = 0.0
max_tokens = 400
`), 0o600))

	t.Setenv("YTSCOPE_PROVIDERS_FILE", path)
	t.Setenv("ANTHROPIC_API_KEY", "env-key")
	t.Setenv("OPENAI_API_KEY", "openai-key")
	t.Setenv("LLM_TEMPERATURE", "0.9")
	t.Setenv("LLM_MAX_TOKENS", "1500")

	cfg, err := Load()
	require.NoError(t, err)

	settings := cfg.ProviderSettings()
	assert.Equal(t, 0.0, settings[domain.ProviderAnthropic].Temperature)
	assert.Equal(t, 400, settings[domain.ProviderAnthropic].MaxTokens)

	assert.Equal(t, 0.9, settings[domain.ProviderOpenAI].Temperature)
	assert.Equal(t, 1500, settings[domain.ProviderOpenAI].MaxTokens)
}

func TestProvidersFileRejectsBadTuning(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "zero max tokens", body: "[providers.anthropic]\nmax_tokens = 0\n"},
		{name: "negative temperature", body: "[providers.anthropic]\ntemperature = -0.5\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			path := filepath.Join(t.TempDir(), "providers.toml")
			require.NoError(t, os.WriteFile(path, []byte(tt.body), 0o600))
			t.Setenv("YTSCOPE_PROVIDERS_FILE", path)

			_, err := Parse()
			require.Error(t, err)
			assert.Contains(t, err.Error(), "providers file")
		})
	}
}

func TestProvidersFileErrors(t *testing.T) {
	clearEnv(t)
	t.Setenv("ANTHROPIC_API_KEY", "k")

	t.Run("missing", func(t *testing.T) {
		t.Setenv("YTSCOPE_PROVIDERS_FILE", filepath.Join(t.TempDir(), "nope.toml"))
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("unknown provider", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "p.toml")
		require.NoError(t, os.WriteFile(path, []byte("[providers.bard]\napi_key = \"x\"\n"), 0o600))
		t.Setenv("YTSCOPE_PROVIDERS_FILE", path)
		_, err := Load()
		assert.ErrorIs(t, err, domain.ErrInvalidProviderName)
	})
}
