package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/pelletier/go-toml/v2"

	"github.com/aescanero/ytscope/internal/application/orchestrator"
	"github.com/aescanero/ytscope/pkg/adapters/llm"
	"github.com/aescanero/ytscope/pkg/domain"
)

// Config holds all configuration for ytscope
type Config struct {
	// Server configuration
	HTTPPort      int    `env:"YTSCOPE_HTTP_PORT" envDefault:"8080"`
	GRPCPort      int    `env:"YTSCOPE_GRPC_PORT" envDefault:"9090"`
	LogLevel      string `env:"LOG_LEVEL" envDefault:"info"`
	DataDir       string `env:"YTSCOPE_DATA_DIR" envDefault:"./data"`
	DBPath        string `env:"YTSCOPE_DB_PATH"`
	ProvidersFile string `env:"YTSCOPE_PROVIDERS_FILE"`

	Redis    RedisConfig
	AI       AIConfig
	LLM      LLMConfig
	Scraper  ScraperConfig
	Workers  WorkerConfig
	Cache    CacheConfig
	Timeouts TimeoutConfig
}

// RedisConfig holds Redis connection configuration. An empty address
// selects the in-memory adapters.
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR"`
	Password string `env:"REDIS_PASS"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`

	// Connection pool settings
	PoolSize     int           `env:"REDIS_POOL_SIZE" envDefault:"10"`
	MinIdleConns int           `env:"REDIS_MIN_IDLE_CONNS" envDefault:"2"`
	MaxRetries   int           `env:"REDIS_MAX_RETRIES" envDefault:"3"`
	DialTimeout  time.Duration `env:"REDIS_DIAL_TIMEOUT" envDefault:"5s"`
	ReadTimeout  time.Duration `env:"REDIS_READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout time.Duration `env:"REDIS_WRITE_TIMEOUT" envDefault:"3s"`
}

// Enabled reports whether a Redis address is configured
func (r RedisConfig) Enabled() bool {
	return r.Addr != ""
}

// AIConfig holds the orchestration policy
type AIConfig struct {
	PrimaryService  string        `env:"AI_PRIMARY_SERVICE" envDefault:"anthropic"`
	FallbackService string        `env:"AI_FALLBACK_SERVICE" envDefault:"openai"`
	RetryAttempts   int           `env:"AI_RETRY_ATTEMPTS" envDefault:"3"`
	Timeout         time.Duration `env:"AI_TIMEOUT" envDefault:"30s"`
	RateLimitDelay  time.Duration `env:"AI_RATE_LIMIT_DELAY" envDefault:"1s"`
	BatchSize       int           `env:"AI_BATCH_SIZE" envDefault:"5"`
	FallbackEnabled bool          `env:"AI_FALLBACK_ENABLED" envDefault:"true"`
}

// LLMConfig holds provider credentials and client settings
type LLMConfig struct {
	AnthropicAPIKey  string `env:"ANTHROPIC_API_KEY"`
	AnthropicModel   string `env:"ANTHROPIC_MODEL"`
	AnthropicBaseURL string `env:"ANTHROPIC_BASE_URL"`

	OpenAIAPIKey  string `env:"OPENAI_API_KEY"`
	OpenAIModel   string `env:"OPENAI_MODEL"`
	OpenAIBaseURL string `env:"OPENAI_BASE_URL"`

	DeepSeekAPIKey string `env:"DEEPSEEK_API_KEY"`
	DeepSeekModel  string `env:"DEEPSEEK_MODEL"`

	OpenRouterAPIKey string `env:"OPENROUTER_API_KEY"`
	OpenRouterModel  string `env:"OPENROUTER_MODEL"`

	MaxTokens   int     `env:"LLM_MAX_TOKENS" envDefault:"2000"`
	Temperature float64 `env:"LLM_TEMPERATURE" envDefault:"0.7"`

	// Transport-level retries inside each client
	HTTPRetryAttempts  int           `env:"LLM_HTTP_RETRY_ATTEMPTS" envDefault:"3"`
	HTTPRetryBaseDelay time.Duration `env:"LLM_HTTP_RETRY_BASE_DELAY" envDefault:"1s"`
	HTTPRetryMaxDelay  time.Duration `env:"LLM_HTTP_RETRY_MAX_DELAY" envDefault:"30s"`
	HTTPTimeout        time.Duration `env:"LLM_HTTP_TIMEOUT" envDefault:"60s"`

	// Loaded from ProvidersFile
	overlay map[domain.ProviderName]fileSettings
}

// ScraperConfig holds scraper configuration
type ScraperConfig struct {
	UserAgent       string        `env:"SCRAPER_USER_AGENT" envDefault:"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"`
	Timeout         time.Duration `env:"SCRAPER_TIMEOUT" envDefault:"20s"`
	EnrichPages     bool          `env:"SCRAPER_ENRICH_PAGES" envDefault:"false"`
	RedditEnabled   bool          `env:"REDDIT_ENABLED" envDefault:"true"`
	RedditUserAgent string        `env:"REDDIT_USER_AGENT" envDefault:"ytscope/1.0"`
}

// WorkerConfig holds worker pool configuration
type WorkerConfig struct {
	PoolSize            int           `env:"WORKER_POOL_SIZE" envDefault:"2"`
	HealthCheckInterval time.Duration `env:"WORKER_HEALTH_CHECK_INTERVAL" envDefault:"30s"`
}

// CacheConfig holds cache and retention configuration
type CacheConfig struct {
	AnalysisTTL        time.Duration `env:"ANALYSIS_CACHE_TTL" envDefault:"24h"`
	AnalysisMaxEntries int           `env:"ANALYSIS_CACHE_MAX_ENTRIES" envDefault:"1000"`
	TaskTTL            time.Duration `env:"TASK_TTL" envDefault:"24h"`
}

// TimeoutConfig holds various timeout configurations
type TimeoutConfig struct {
	TaskExecution   time.Duration `env:"TIMEOUT_TASK_EXECUTION" envDefault:"30m"`
	ShutdownTimeout time.Duration `env:"TIMEOUT_SHUTDOWN" envDefault:"30s"`
}

// providersFile is the layout of YTSCOPE_PROVIDERS_FILE
type providersFile struct {
	Providers map[string]fileSettings `toml:"providers"`
}

// fileSettings is one [providers.<name>] table. Tuning values are pointers
// so an explicit zero is kept apart from an absent key.
type fileSettings struct {
	APIKey      string   `toml:"api_key"`
	Model       string   `toml:"model"`
	BaseURL     string   `toml:"base_url"`
	MaxTokens   *int     `toml:"max_tokens"`
	Temperature *float64 `toml:"temperature"`
}

// Load reads configuration from environment variables and the optional
// providers file, then validates it.
func Load() (*Config, error) {
	cfg, err := Parse()
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Parse is Load without validation
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if cfg.ProvidersFile != "" {
		overlay, err := loadProvidersFile(cfg.ProvidersFile)
		if err != nil {
			return nil, err
		}
		cfg.LLM.overlay = overlay
	}

	return cfg, nil
}

func loadProvidersFile(path string) (map[domain.ProviderName]fileSettings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("providers file %s does not exist", path)
		}
		return nil, fmt.Errorf("read providers file: %w", err)
	}

	var file providersFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse providers file: %w", err)
	}

	out := make(map[domain.ProviderName]fileSettings, len(file.Providers))
	for key, settings := range file.Providers {
		name, err := domain.ParseProviderName(key)
		if err != nil {
			return nil, fmt.Errorf("providers file: %w", err)
		}
		if settings.MaxTokens != nil && *settings.MaxTokens <= 0 {
			return nil, fmt.Errorf("providers file: %s: max_tokens must be positive", key)
		}
		if settings.Temperature != nil && (*settings.Temperature < 0 || *settings.Temperature > 2) {
			return nil, fmt.Errorf("providers file: %s: temperature must be between 0 and 2", key)
		}
		out[name] = settings
	}
	return out, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	if c.GRPCPort < 1 || c.GRPCPort > 65535 {
		return fmt.Errorf("invalid gRPC port: %d", c.GRPCPort)
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.LogLevel)
	}

	if c.DataDir == "" && c.DBPath == "" {
		return fmt.Errorf("data directory is required")
	}

	configured := c.ProviderSettings()
	if len(configured) == 0 {
		return fmt.Errorf("no LLM provider configured: set at least one of ANTHROPIC_API_KEY, OPENAI_API_KEY, DEEPSEEK_API_KEY, OPENROUTER_API_KEY")
	}

	primary, err := domain.ParseProviderName(c.AI.PrimaryService)
	if err != nil {
		return fmt.Errorf("AI_PRIMARY_SERVICE: %w", err)
	}
	if _, ok := configured[primary]; !ok {
		return fmt.Errorf("primary service %s has no API key", primary)
	}
	// A fallback without a key is dropped by OrchestratorConfig
	if c.AI.FallbackService != "" {
		if _, err := domain.ParseProviderName(c.AI.FallbackService); err != nil {
			return fmt.Errorf("AI_FALLBACK_SERVICE: %w", err)
		}
	}

	if c.AI.RetryAttempts < 1 {
		return fmt.Errorf("AI retry attempts must be at least 1")
	}
	if c.AI.Timeout <= 0 {
		return fmt.Errorf("AI timeout must be positive")
	}
	if c.AI.RateLimitDelay < 0 {
		return fmt.Errorf("AI rate limit delay must not be negative")
	}
	if c.AI.BatchSize < 1 {
		return fmt.Errorf("AI batch size must be at least 1")
	}

	if c.Workers.PoolSize < 1 {
		return fmt.Errorf("worker pool size must be at least 1")
	}

	return nil
}

// GetHTTPAddr returns the HTTP server address
func (c *Config) GetHTTPAddr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

// GetGRPCAddr returns the gRPC server address
func (c *Config) GetGRPCAddr() string {
	return fmt.Sprintf(":%d", c.GRPCPort)
}

// DatabasePath returns the SQLite file location
func (c *Config) DatabasePath() string {
	if c.DBPath != "" {
		return c.DBPath
	}
	return filepath.Join(c.DataDir, "ytscope.db")
}

// LockPath returns the file that guards against two daemons sharing a data dir
func (c *Config) LockPath() string {
	return filepath.Join(c.DataDir, "ytscope.lock")
}

// ProviderSettings returns settings for every provider that has an API key.
// For key, model and base URL the environment wins and the providers file
// fills what it leaves blank. LLM_MAX_TOKENS and LLM_TEMPERATURE are global
// defaults, so a per-provider max_tokens or temperature in the file wins.
func (c *Config) ProviderSettings() map[domain.ProviderName]llm.ProviderSettings {
	fromEnv := map[domain.ProviderName]llm.ProviderSettings{
		domain.ProviderAnthropic:  {APIKey: c.LLM.AnthropicAPIKey, Model: c.LLM.AnthropicModel, BaseURL: c.LLM.AnthropicBaseURL},
		domain.ProviderOpenAI:     {APIKey: c.LLM.OpenAIAPIKey, Model: c.LLM.OpenAIModel, BaseURL: c.LLM.OpenAIBaseURL},
		domain.ProviderDeepSeek:   {APIKey: c.LLM.DeepSeekAPIKey, Model: c.LLM.DeepSeekModel},
		domain.ProviderOpenRouter: {APIKey: c.LLM.OpenRouterAPIKey, Model: c.LLM.OpenRouterModel},
	}

	out := make(map[domain.ProviderName]llm.ProviderSettings)
	for name, s := range fromEnv {
		file := c.LLM.overlay[name]
		s.APIKey = firstNonEmpty(s.APIKey, file.APIKey)
		s.Model = firstNonEmpty(s.Model, file.Model)
		s.BaseURL = firstNonEmpty(s.BaseURL, file.BaseURL)

		s.MaxTokens = c.LLM.MaxTokens
		if file.MaxTokens != nil {
			s.MaxTokens = *file.MaxTokens
		}
		s.Temperature = c.LLM.Temperature
		if file.Temperature != nil {
			s.Temperature = *file.Temperature
		}

		if s.APIKey != "" {
			out[name] = s
		}
	}
	return out
}

// FactoryConfig builds the provider client factory configuration
func (c *Config) FactoryConfig() llm.FactoryConfig {
	return llm.FactoryConfig{
		Providers:          c.ProviderSettings(),
		HTTPRetryAttempts:  c.LLM.HTTPRetryAttempts,
		HTTPRetryBaseDelay: c.LLM.HTTPRetryBaseDelay,
		HTTPRetryMaxDelay:  c.LLM.HTTPRetryMaxDelay,
		HTTPTimeout:        c.LLM.HTTPTimeout,
	}
}

// OrchestratorConfig returns the initial orchestration policy. A fallback
// that has no API key is left out.
func (c *Config) OrchestratorConfig() orchestrator.Config {
	primary, _ := domain.ParseProviderName(c.AI.PrimaryService)

	var fallback domain.ProviderName
	if name, err := domain.ParseProviderName(c.AI.FallbackService); err == nil {
		if _, ok := c.ProviderSettings()[name]; ok {
			fallback = name
		}
	}

	return orchestrator.Config{
		Primary:         primary,
		Fallback:        fallback,
		RetryAttempts:   c.AI.RetryAttempts,
		Timeout:         c.AI.Timeout,
		RateLimitDelay:  c.AI.RateLimitDelay,
		FallbackEnabled: c.AI.FallbackEnabled,
		BatchSize:       c.AI.BatchSize,
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
