// Package config provides unified configuration loading for queryflow:
// defaults, optional YAML file, then QUERYFLOW_* environment overrides,
// in that priority order.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of all environment overrides.
const EnvPrefix = "QUERYFLOW"

// Config is the complete queryflow configuration.
type Config struct {
	// Provider configures the external binary invocation.
	Provider ProviderConfig `yaml:"provider"`
	// Cache configures the response cache.
	Cache CacheConfig `yaml:"cache"`
	// Retry configures the backoff schedule.
	Retry RetryConfig `yaml:"retry"`
	// Log configures logging.
	Log LogConfig `yaml:"log"`
}

// ProviderConfig configures the provider call adapter.
type ProviderConfig struct {
	Command      string        `yaml:"command"`
	Args         []string      `yaml:"args"`
	Model        string        `yaml:"model"`
	SystemPrompt string        `yaml:"system_prompt"`
	Temperature  float64       `yaml:"temperature"`
	MaxTokens    int           `yaml:"max_tokens"`
	Timeout      time.Duration `yaml:"timeout"`
	// RateLimit throttles provider attempts per second; 0 disables.
	RateLimit float64 `yaml:"rate_limit"`
	RateBurst int     `yaml:"rate_burst"`
}

// CacheConfig configures the response cache.
type CacheConfig struct {
	Enabled bool `yaml:"enabled"`
	// Backend selects the store: file, sqlite or redis.
	Backend string `yaml:"backend"`
	// Dir is the cache root for the file backend.
	Dir string `yaml:"dir"`
	// Path is the database file for the sqlite backend.
	Path string        `yaml:"path"`
	TTL  time.Duration `yaml:"ttl"`

	Redis RedisConfig `yaml:"redis"`
}

// RedisConfig configures the redis cache backend.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// RetryConfig configures the backoff schedule.
type RetryConfig struct {
	Count   int           `yaml:"count"`
	Delay   time.Duration `yaml:"delay"`
	Backoff float64       `yaml:"backoff"`
}

// LogConfig configures logging.
type LogConfig struct {
	// Level: debug, info, warn or error.
	Level string `yaml:"level"`
	// Format: json or console.
	Format string `yaml:"format"`
	// Development enables development-mode stacktraces.
	Development bool `yaml:"development"`
}

// Default returns the built-in defaults.
func Default() *Config {
	cacheDir := "cache"
	if home, err := os.UserHomeDir(); err == nil {
		cacheDir = home + "/.queryflow/cache"
	}
	return &Config{
		Provider: ProviderConfig{
			Command: "claude",
			Timeout: 2 * time.Minute,
		},
		Cache: CacheConfig{
			Enabled: true,
			Backend: "file",
			Dir:     cacheDir,
			Path:    cacheDir + "/cache.db",
			TTL:     time.Hour,
			Redis:   RedisConfig{Addr: "localhost:6379"},
		},
		Retry: RetryConfig{
			Count:   3,
			Delay:   time.Second,
			Backoff: 2.0,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads configuration with the priority defaults -> YAML file ->
// environment. A missing file is not an error; a present but malformed
// file is.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			// defaults + env only
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overrides fields from QUERYFLOW_* environment variables.
func (c *Config) applyEnv() error {
	setString := func(key string, dst *string) {
		if v, ok := os.LookupEnv(EnvPrefix + "_" + key); ok {
			*dst = v
		}
	}
	setBool := func(key string, dst *bool) error {
		v, ok := os.LookupEnv(EnvPrefix + "_" + key)
		if !ok {
			return nil
		}
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("env %s_%s: %w", EnvPrefix, key, err)
		}
		*dst = parsed
		return nil
	}
	setInt := func(key string, dst *int) error {
		v, ok := os.LookupEnv(EnvPrefix + "_" + key)
		if !ok {
			return nil
		}
		parsed, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("env %s_%s: %w", EnvPrefix, key, err)
		}
		*dst = parsed
		return nil
	}
	setFloat := func(key string, dst *float64) error {
		v, ok := os.LookupEnv(EnvPrefix + "_" + key)
		if !ok {
			return nil
		}
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("env %s_%s: %w", EnvPrefix, key, err)
		}
		*dst = parsed
		return nil
	}
	setDuration := func(key string, dst *time.Duration) error {
		v, ok := os.LookupEnv(EnvPrefix + "_" + key)
		if !ok {
			return nil
		}
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("env %s_%s: %w", EnvPrefix, key, err)
		}
		*dst = parsed
		return nil
	}

	setString("PROVIDER_COMMAND", &c.Provider.Command)
	setString("PROVIDER_MODEL", &c.Provider.Model)
	setString("PROVIDER_SYSTEM_PROMPT", &c.Provider.SystemPrompt)
	setString("CACHE_BACKEND", &c.Cache.Backend)
	setString("CACHE_DIR", &c.Cache.Dir)
	setString("CACHE_PATH", &c.Cache.Path)
	setString("REDIS_ADDR", &c.Cache.Redis.Addr)
	setString("REDIS_PASSWORD", &c.Cache.Redis.Password)
	setString("LOG_LEVEL", &c.Log.Level)
	setString("LOG_FORMAT", &c.Log.Format)

	for _, err := range []error{
		setBool("CACHE_ENABLED", &c.Cache.Enabled),
		setBool("LOG_DEVELOPMENT", &c.Log.Development),
		setInt("PROVIDER_MAX_TOKENS", &c.Provider.MaxTokens),
		setInt("REDIS_DB", &c.Cache.Redis.DB),
		setInt("RETRY_COUNT", &c.Retry.Count),
		setFloat("PROVIDER_TEMPERATURE", &c.Provider.Temperature),
		setFloat("PROVIDER_RATE_LIMIT", &c.Provider.RateLimit),
		setFloat("RETRY_BACKOFF", &c.Retry.Backoff),
		setDuration("PROVIDER_TIMEOUT", &c.Provider.Timeout),
		setDuration("CACHE_TTL", &c.Cache.TTL),
		setDuration("RETRY_DELAY", &c.Retry.Delay),
	} {
		if err != nil {
			return err
		}
	}
	return nil
}

// Validate rejects configurations that cannot be assembled.
func (c *Config) Validate() error {
	switch c.Cache.Backend {
	case "file", "sqlite", "redis":
	default:
		return fmt.Errorf("unknown cache backend %q", c.Cache.Backend)
	}
	if c.Provider.Command == "" {
		return errors.New("provider command must not be empty")
	}
	if c.Retry.Backoff < 1.0 && c.Retry.Backoff != 0 {
		return fmt.Errorf("retry backoff %v must be >= 1", c.Retry.Backoff)
	}
	return nil
}
