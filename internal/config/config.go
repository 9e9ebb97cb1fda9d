// Package config loads service configuration from an optional YAML file and
// the environment. Environment variables always override file values.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration values for the service.
type Config struct {
	// Database connection string
	DatabaseURL string `mapstructure:"database_url"`

	// HTTP server port for the worker and ops endpoints
	HTTPPort int `mapstructure:"http_port"`

	// Base URL of the delivery provider's REST API
	ProviderURL string `mapstructure:"provider_url"`

	// Bearer token for the provider API
	ProviderToken string `mapstructure:"provider_token"`

	// Per-request timeout for provider API calls
	ProviderTimeout time.Duration `mapstructure:"provider_timeout"`

	// Externally reachable base URL of this service; the provider pushes
	// job deliveries to endpoints under it
	WorkerBaseURL string `mapstructure:"worker_base_url"`

	// Key used to sign outgoing and verify incoming delivery payloads
	SigningKeyCurrent string `mapstructure:"signing_key_current"`

	// Second accepted verification key, set during key rotation
	SigningKeyNext string `mapstructure:"signing_key_next"`

	// Bearer token protecting the ops endpoints
	OpsToken string `mapstructure:"ops_token"`

	// Rate limit for ops endpoints, per client, in requests per second.
	// Zero disables limiting.
	OpsRateLimit int `mapstructure:"ops_rate_limit"`

	// Burst allowance for the ops rate limit
	OpsRateBurst int `mapstructure:"ops_rate_burst"`

	// Redis connection URL backing the idempotency guard. Empty means
	// each replica keeps an in-process guard instead.
	RedisURL string `mapstructure:"redis_url"`

	// OTLP gRPC endpoint for trace export
	OTELEndpoint string `mapstructure:"otel_endpoint"`

	// Log verbosity: debug, info, warn or error
	LogLevel string `mapstructure:"log_level"`
}

// envBindings maps config keys to their environment variable names. The env
// names predate the config file support and keep their historical spelling.
var envBindings = map[string]string{
	"database_url":        "DATABASE_URL",
	"http_port":           "PORT",
	"provider_url":        "PROVIDER_URL",
	"provider_token":      "PROVIDER_TOKEN",
	"provider_timeout":    "PROVIDER_TIMEOUT",
	"worker_base_url":     "WORKER_BASE_URL",
	"signing_key_current": "SIGNING_KEY_CURRENT",
	"signing_key_next":    "SIGNING_KEY_NEXT",
	"ops_token":           "OPS_TOKEN",
	"ops_rate_limit":      "OPS_RATE_LIMIT",
	"ops_rate_burst":      "OPS_RATE_BURST",
	"redis_url":           "REDIS_URL",
	"otel_endpoint":       "OTEL_EXPORTER_OTLP_ENDPOINT",
	"log_level":           "LOG_LEVEL",
}

// Load reads configuration from the YAML file at path, if given, and the
// environment. An empty path skips the file and loads from the environment
// alone.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("http_port", 6262)
	v.SetDefault("provider_timeout", 10*time.Second)
	v.SetDefault("worker_base_url", "http://localhost:6262")
	v.SetDefault("ops_rate_limit", 20)
	v.SetDefault("ops_rate_burst", 40)
	v.SetDefault("otel_endpoint", "localhost:4317")
	v.SetDefault("log_level", "info")

	for key, env := range envBindings {
		v.BindEnv(key, env)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	required := []struct {
		value, key, env string
	}{
		{c.DatabaseURL, "database_url", "DATABASE_URL"},
		{c.ProviderURL, "provider_url", "PROVIDER_URL"},
		{c.SigningKeyCurrent, "signing_key_current", "SIGNING_KEY_CURRENT"},
		{c.OpsToken, "ops_token", "OPS_TOKEN"},
	}
	for _, r := range required {
		if r.value == "" {
			return fmt.Errorf("%s is required (env: %s)", r.key, r.env)
		}
	}

	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		return fmt.Errorf("http_port must be between 1 and 65535, got %d", c.HTTPPort)
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be one of debug, info, warn, error; got %q", c.LogLevel)
	}

	return nil
}

// Addr returns the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}
