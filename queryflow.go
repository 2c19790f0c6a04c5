// Package queryflow provides a top-level convenience entry point for running
// queries against a flaky provider binary with caching and retry.
//
// Usage:
//
//	import "github.com/BaSui01/queryflow"
//
//	c, err := queryflow.New()
//	c, err := queryflow.New(queryflow.WithConfigFile("queryflow.yaml"))
//	c, err := queryflow.New(queryflow.WithProvider(myProvider), queryflow.WithStore(myStore))
//
//	msgs, err := c.Query(ctx, "2+2?", nil)
package queryflow

import (
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/BaSui01/queryflow/config"
	"github.com/BaSui01/queryflow/llm"
	"github.com/BaSui01/queryflow/llm/cache"
	"github.com/BaSui01/queryflow/llm/retry"
	"github.com/BaSui01/queryflow/providers/subprocess"
	"github.com/BaSui01/queryflow/types"
)

// Client bundles a configured pipeline with its assembly-time resources.
type Client struct {
	*llm.Pipeline

	cfg    *config.Config
	logger *zap.Logger
}

// Options returns query options seeded from the client configuration.
// Callers mutate the returned value freely; each call gets a fresh copy.
func (c *Client) Options() *types.QueryOptions {
	opts := types.DefaultQueryOptions()
	opts.Model = c.cfg.Provider.Model
	opts.SystemPrompt = c.cfg.Provider.SystemPrompt
	opts.Temperature = c.cfg.Provider.Temperature
	opts.MaxTokens = c.cfg.Provider.MaxTokens
	if c.cfg.Provider.Timeout > 0 {
		opts.Timeout = c.cfg.Provider.Timeout
	}
	opts.Cache = c.cfg.Cache.Enabled
	opts.RetryCount = c.cfg.Retry.Count
	if c.cfg.Retry.Delay > 0 {
		opts.RetryDelay = c.cfg.Retry.Delay
	}
	return opts
}

// Option configures the client created by [New].
type Option func(*options)

type options struct {
	cfg        *config.Config
	configPath string
	provider   llm.Provider
	store      cache.Store
	installer  llm.Installer
	logger     *zap.Logger
}

// WithConfig sets a pre-built configuration, skipping file and environment
// loading.
func WithConfig(cfg *config.Config) Option {
	return func(o *options) { o.cfg = cfg }
}

// WithConfigFile loads configuration from the given YAML file.
func WithConfigFile(path string) Option {
	return func(o *options) { o.configPath = path }
}

// WithProvider sets a pre-built provider instead of the subprocess default.
func WithProvider(p llm.Provider) Option {
	return func(o *options) { o.provider = p }
}

// WithStore sets a pre-built cache store, overriding the configured backend.
func WithStore(s cache.Store) Option {
	return func(o *options) { o.store = s }
}

// WithInstaller sets the remediation hook invoked when the provider
// executable is missing.
func WithInstaller(i llm.Installer) Option {
	return func(o *options) { o.installer = i }
}

// WithLogger sets a custom zap logger. Defaults to one built from LogConfig.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// New assembles a query client. With no options it loads defaults plus
// QUERYFLOW_* environment overrides, spawns the configured provider binary
// per query and caches responses in the configured backend.
func New(opts ...Option) (*Client, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	cfg := o.cfg
	if cfg == nil {
		var err error
		cfg, err = config.Load(o.configPath)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
	} else if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	logger := o.logger
	if logger == nil {
		var err error
		logger, err = config.NewLogger(cfg.Log)
		if err != nil {
			return nil, fmt.Errorf("build logger: %w", err)
		}
	}

	provider := o.provider
	if provider == nil {
		provider = subprocess.New(subprocess.Config{
			Command: cfg.Provider.Command,
			Args:    cfg.Provider.Args,
			Timeout: cfg.Provider.Timeout,
		}, logger)
	}

	var responseCache *cache.ResponseCache
	if cfg.Cache.Enabled {
		store := o.store
		if store == nil {
			var err error
			store, err = newStore(cfg.Cache)
			if err != nil {
				return nil, err
			}
		}
		responseCache = cache.NewResponseCache(store, cfg.Cache.TTL, logger)
	}

	pipeline := llm.NewPipeline(provider, responseCache, llm.PipelineConfig{
		Retry: retry.Policy{
			Count:   cfg.Retry.Count,
			Delay:   cfg.Retry.Delay,
			Backoff: cfg.Retry.Backoff,
		},
		RateLimit: rate.Limit(cfg.Provider.RateLimit),
		RateBurst: cfg.Provider.RateBurst,
		Installer: o.installer,
	}, logger)

	return &Client{Pipeline: pipeline, cfg: cfg, logger: logger}, nil
}

func newStore(cfg config.CacheConfig) (cache.Store, error) {
	switch cfg.Backend {
	case "file":
		store, err := cache.NewFileStore(cfg.Dir)
		if err != nil {
			return nil, fmt.Errorf("open file cache at %s: %w", cfg.Dir, err)
		}
		return store, nil
	case "sqlite":
		store, err := cache.NewSQLiteStore(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("open sqlite cache at %s: %w", cfg.Path, err)
		}
		return store, nil
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		return cache.NewRedisStore(client, cfg.TTL), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}
