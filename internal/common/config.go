package common

import (
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds all application configuration. It is parsed once at startup
// and passed by reference into the worker, pipeline and persister.
type Config struct {
	Database DatabaseConfig
	Worker   WorkerConfig
	Filter   FilterConfig
	LLM      LLMConfig
	Onchain  OnchainConfig
	Ops      OpsConfig
}

// DatabaseConfig holds database-related configuration.
type DatabaseConfig struct {
	DSN             string        `env:"DB_URL"`
	MaxConns        int32         `env:"DB_MAX_CONNS" envDefault:"20"`
	MinConns        int32         `env:"DB_MIN_CONNS" envDefault:"5"`
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" envDefault:"30m"`
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" envDefault:"5m"`
	DialTimeout     time.Duration `env:"DB_DIAL_TIMEOUT" envDefault:"3s"`
	RunMigrations   bool          `env:"RUN_MIGRATIONS" envDefault:"true"`
}

// WorkerConfig holds the poll/claim/retry knobs of the worker loop.
type WorkerConfig struct {
	PollInterval time.Duration `env:"POLL_INTERVAL" envDefault:"2s"`
	BatchSize    int           `env:"BATCH_SIZE" envDefault:"20"`
	Concurrency  int           `env:"WORKER_CONCURRENCY" envDefault:"4"`
	MaxRetries   int           `env:"MAX_RETRIES" envDefault:"5"`
	RetryBase    time.Duration `env:"RETRY_BASE_SECONDS" envDefault:"5s"`
}

// FilterConfig holds the stage-1 rule thresholds and the stage-3 gate.
type FilterConfig struct {
	MinLiquidity       float64 `env:"MIN_LIQUIDITY" envDefault:"2000"`
	MaxTax             float64 `env:"MAX_TAX" envDefault:"0.20"`
	RequireNotHoneypot bool    `env:"REQUIRE_NOT_HONEYPOT" envDefault:"true"`
	VibeThreshold      int     `env:"VIBE_THRESHOLD" envDefault:"60"`
}

// LLMConfig holds the classification/investigation collaborator settings.
type LLMConfig struct {
	BaseURL     string        `env:"LLM_BASE_URL" envDefault:"https://api.openai.com/v1"`
	APIKey      string        `env:"LLM_API_KEY"`
	SLMModel    string        `env:"SLM_MODEL" envDefault:"deepseek/deepseek-v3.2"`
	DeepModel   string        `env:"LLM_MODEL" envDefault:"gpt-4o-mini"`
	SLMTimeout  time.Duration `env:"SLM_TIMEOUT" envDefault:"10s"`
	DeepTimeout time.Duration `env:"LLM_TIMEOUT" envDefault:"30s"`
	Temperature float32       `env:"LLM_TEMPERATURE" envDefault:"0"`
}

// OnchainConfig holds the optional holder-analysis collaborator settings.
type OnchainConfig struct {
	HeliusAPIKey  string        `env:"HELIUS_API_KEY"`
	BirdeyeAPIKey string        `env:"BIRDEYE_API_KEY"`
	Timeout       time.Duration `env:"ONCHAIN_TIMEOUT" envDefault:"10s"`
}

// OpsConfig holds the health/metrics endpoint settings.
type OpsConfig struct {
	Addr string `env:"OPS_ADDR" envDefault:":9090"`
}

// LoadConfig loads configuration from environment variables.
func LoadConfig() (*Config, error) {
	var c Config
	if err := env.Parse(&c); err != nil {
		return nil, WrapError(err, "parse environment")
	}
	return &c, nil
}

// Validate validates the loaded configuration.
func (c *Config) Validate() error {
	if c.Database.DSN == "" {
		return NewAppError("CONFIG_ERROR", "DB_URL is required", ErrInvalidInput)
	}
	if c.Worker.BatchSize <= 0 {
		return NewAppError("CONFIG_ERROR", "BATCH_SIZE must be positive", ErrInvalidInput)
	}
	if c.Worker.Concurrency <= 0 {
		return NewAppError("CONFIG_ERROR", "WORKER_CONCURRENCY must be positive", ErrInvalidInput)
	}
	if c.Worker.RetryBase <= 0 {
		return NewAppError("CONFIG_ERROR", "RETRY_BASE_SECONDS must be positive", ErrInvalidInput)
	}
	if c.Filter.VibeThreshold < 0 || c.Filter.VibeThreshold > 100 {
		return NewAppError("CONFIG_ERROR", "VIBE_THRESHOLD must be in [0,100]", ErrInvalidInput)
	}
	return nil
}
