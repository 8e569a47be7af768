package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for matura-engine.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (API keys, passwords) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"8080"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Version  string `yaml:"-"` // Set at load time, not from config

	// AI provider endpoints
	OpenAI    ProviderConfig `yaml:"openai"`
	Gemini    ProviderConfig `yaml:"gemini"`
	Anthropic ProviderConfig `yaml:"anthropic"`

	// Figma design-asset provider (optional)
	Figma FigmaConfig `yaml:"figma"`

	// Generation pipeline settings
	Pipeline PipelineConfig `yaml:"pipeline"`

	// Inbound rate limiting (sits in front of the generation endpoints)
	RateLimit RateLimitConfig `yaml:"rate_limit"`

	// Database configuration (PostgreSQL, optional - in-memory fallback if unset)
	Database DatabaseConfig `yaml:"database"`

	// Redis configuration (optional - backs the rate limiter when set)
	Redis RedisConfig `yaml:"redis"`
}

// ProviderConfig holds settings for one AI backend.
type ProviderConfig struct {
	APIKey         string  `yaml:"-" env-default:""` // Secret - set per provider below
	Model          string  `yaml:"model" env-default:""`
	Temperature    float64 `yaml:"temperature" env-default:"0.7"`
	MaxTokens      int     `yaml:"max_tokens" env-default:"4096"`
	TimeoutSeconds int     `yaml:"timeout_seconds" env-default:"60"`
}

// Timeout returns the per-call timeout for this provider.
func (p *ProviderConfig) Timeout() time.Duration {
	if p.TimeoutSeconds <= 0 {
		return 60 * time.Second
	}
	return time.Duration(p.TimeoutSeconds) * time.Second
}

// IsConfigured returns true if the provider has an API key.
func (p *ProviderConfig) IsConfigured() bool {
	return p.APIKey != ""
}

// FigmaConfig holds Figma REST API settings.
type FigmaConfig struct {
	APIKey         string `yaml:"-" env:"FIGMA_API_KEY"` // Secret - not in YAML
	FileKey        string `yaml:"file_key" env:"FIGMA_FILE_KEY" env-default:""`
	TimeoutSeconds int    `yaml:"timeout_seconds" env:"FIGMA_TIMEOUT_SECONDS" env-default:"30"`
}

// IsConfigured returns true if Figma is usable.
func (f *FigmaConfig) IsConfigured() bool {
	return f.APIKey != "" && f.FileKey != ""
}

// Timeout returns the Figma request timeout.
func (f *FigmaConfig) Timeout() time.Duration {
	if f.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(f.TimeoutSeconds) * time.Second
}

// PipelineConfig holds generation pipeline behavior settings.
type PipelineConfig struct {
	// DefaultTier is used when a request omits the mode field.
	DefaultTier string `yaml:"default_tier" env:"PIPELINE_DEFAULT_TIER" env-default:"quick"`
	// MaxRepairRetries bounds generator re-invocations in the self-repair loop.
	MaxRepairRetries int `yaml:"max_repair_retries" env:"PIPELINE_MAX_REPAIR_RETRIES" env-default:"3"`
}

// RateLimitConfig holds inbound rate limiting settings.
type RateLimitConfig struct {
	// Requests allowed per client address per window.
	Requests int `yaml:"requests" env:"RATE_LIMIT_REQUESTS" env-default:"10"`
	// WindowSeconds is the sliding window size.
	WindowSeconds int `yaml:"window_seconds" env:"RATE_LIMIT_WINDOW_SECONDS" env-default:"60"`
}

// Window returns the sliding window duration.
func (r *RateLimitConfig) Window() time.Duration {
	if r.WindowSeconds <= 0 {
		return time.Minute
	}
	return time.Duration(r.WindowSeconds) * time.Second
}

// DatabaseConfig holds PostgreSQL database configuration.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:""`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"matura"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"matura_engine"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"25"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
}

// IsConfigured returns true if a database host is set.
func (c *DatabaseConfig) IsConfigured() bool {
	return c.Host != ""
}

// ConnectionString returns a PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	Host     string `yaml:"host" env:"REDIS_HOST" env-default:""`
	Port     int    `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
	Password string `yaml:"-" env:"REDIS_PASSWORD"` // Secret - not in YAML
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
}

// Load reads configuration from config.yaml with environment variable overrides.
// The version parameter is injected at build time and set on the returned Config.
// Missing config.yaml is not an error; environment variables alone suffice.
func Load(version string) (*Config, error) {
	cfg := &Config{Version: version}

	if _, err := os.Stat("config.yaml"); err == nil {
		if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
			return nil, fmt.Errorf("failed to read config.yaml: %w", err)
		}
	} else {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	}

	cfg.readSecrets()
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// readSecrets pulls provider API keys from their conventional env variables.
// These are yaml:"-" fields so they can never leak via config files.
func (c *Config) readSecrets() {
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		c.OpenAI.APIKey = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		c.Gemini.APIKey = v
	}
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		c.Anthropic.APIKey = v
	}
}

// applyDefaults fills in per-provider model defaults that cleanenv cannot
// express (they differ per provider, not per field).
func (c *Config) applyDefaults() {
	if c.OpenAI.Model == "" {
		c.OpenAI.Model = "gpt-4o"
	}
	if c.Gemini.Model == "" {
		c.Gemini.Model = "gemini-1.5-pro"
	}
	if c.Anthropic.Model == "" {
		c.Anthropic.Model = "claude-sonnet-4-5-20250929"
	}
	// Anthropic requests carry larger generation payloads; give them headroom.
	if c.Anthropic.TimeoutSeconds == 60 {
		c.Anthropic.TimeoutSeconds = 90
	}
}

// Validate fails fast on startup if required configuration is missing.
// The error names the missing environment variable.
func (c *Config) Validate() error {
	if !c.OpenAI.IsConfigured() && !c.Gemini.IsConfigured() && !c.Anthropic.IsConfigured() {
		return fmt.Errorf("no AI provider configured: set at least one of OPENAI_API_KEY, GEMINI_API_KEY, ANTHROPIC_API_KEY")
	}
	switch c.Pipeline.DefaultTier {
	case "quick", "advanced", "premium":
	default:
		return fmt.Errorf("invalid PIPELINE_DEFAULT_TIER %q: must be quick, advanced or premium", c.Pipeline.DefaultTier)
	}
	if c.Pipeline.MaxRepairRetries < 0 {
		return fmt.Errorf("PIPELINE_MAX_REPAIR_RETRIES must be >= 0")
	}
	if c.RateLimit.Requests <= 0 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be > 0")
	}
	return nil
}
