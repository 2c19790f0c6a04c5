package cache

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/queryflow/internal/metrics"
	"github.com/BaSui01/queryflow/types"
)

// ErrNotFound is returned by Store implementations when no entry exists
// for a fingerprint.
var ErrNotFound = errors.New("cache entry not found")

// EntryOptions is the cache-relevant option subset stored alongside an
// entry for diagnostics.
type EntryOptions struct {
	Model        string  `json:"model"`
	Temperature  float64 `json:"temperature"`
	SystemPrompt string  `json:"system_prompt"`
}

// Entry is the durable record for one fingerprint. Timestamp is the write
// time in unix seconds; an entry is valid for reads only while
// now - Timestamp <= ttl.
type Entry struct {
	Timestamp   float64         `json:"timestamp"`
	Fingerprint string          `json:"fingerprint"`
	Prompt      string          `json:"prompt"`
	Options     EntryOptions    `json:"options"`
	Messages    []types.Message `json:"messages"`
}

// Age returns how long ago the entry was written.
func (e *Entry) Age(now time.Time) time.Duration {
	written := time.Unix(0, int64(e.Timestamp*float64(time.Second)))
	return now.Sub(written)
}

// Store is a durable keyed store of entries. Implementations must return
// ErrNotFound for absent keys and tolerate concurrent last-writer-wins
// writes to the same key.
type Store interface {
	Read(ctx context.Context, key string) (*Entry, error)
	Write(ctx context.Context, key string, entry *Entry) error
	Delete(ctx context.Context, key string) error
}

// ResponseCache is the fingerprint-keyed response cache with TTL expiry.
// All failures of the underlying store are absorbed and logged; caching is
// a performance optimization, never a correctness requirement.
type ResponseCache struct {
	store   Store
	ttl     time.Duration
	logger  *zap.Logger
	metrics *metrics.Collector
	now     func() time.Time
}

// DefaultTTL is the entry lifetime used when none is configured.
const DefaultTTL = time.Hour

// NewResponseCache creates a ResponseCache over the given store.
func NewResponseCache(store Store, ttl time.Duration, logger *zap.Logger) *ResponseCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ResponseCache{
		store:   store,
		ttl:     ttl,
		logger:  logger.With(zap.String("component", "response_cache")),
		metrics: metrics.Default(),
		now:     time.Now,
	}
}

// Get returns the cached messages for (prompt, opts), or false when caching
// is disabled for the request, no entry exists, the entry is stale, or the
// store fails. Stale entries are deleted on detection.
func (c *ResponseCache) Get(ctx context.Context, prompt string, opts *types.QueryOptions) ([]types.Message, bool) {
	if c == nil || c.store == nil || opts == nil || !opts.Cache {
		return nil, false
	}

	key := Fingerprint(prompt, opts)
	entry, err := c.store.Read(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			c.logger.Warn("cache read failed", zap.String("key", key), zap.Error(err))
		}
		c.metrics.CacheMiss()
		return nil, false
	}

	if entry.Age(c.now()) > c.ttl {
		if err := c.store.Delete(ctx, key); err != nil {
			c.logger.Warn("stale entry delete failed", zap.String("key", key), zap.Error(err))
		}
		c.logger.Debug("cache entry expired", zap.String("key", key))
		c.metrics.CacheMiss()
		return nil, false
	}

	c.logger.Debug("cache hit", zap.String("key", key))
	c.metrics.CacheHit()
	return entry.Messages, true
}

// Set writes the messages for (prompt, opts). No-op when caching is
// disabled or messages is empty (a failed or empty result is never
// cached). Write failures are swallowed and logged.
func (c *ResponseCache) Set(ctx context.Context, prompt string, opts *types.QueryOptions, messages []types.Message) {
	if c == nil || c.store == nil || opts == nil || !opts.Cache || len(messages) == 0 {
		return
	}

	key := Fingerprint(prompt, opts)
	entry := &Entry{
		Timestamp:   float64(c.now().UnixNano()) / float64(time.Second),
		Fingerprint: key,
		Prompt:      prompt,
		Options: EntryOptions{
			Model:        opts.Model,
			Temperature:  opts.Temperature,
			SystemPrompt: opts.SystemPrompt,
		},
		Messages: messages,
	}

	if err := c.store.Write(ctx, key, entry); err != nil {
		c.logger.Warn("cache write failed", zap.String("key", key), zap.Error(err))
		return
	}
	c.logger.Debug("cache set", zap.String("key", key))
}

// Delete removes the entry for (prompt, opts) regardless of TTL.
func (c *ResponseCache) Delete(ctx context.Context, prompt string, opts *types.QueryOptions) {
	if c == nil || c.store == nil {
		return
	}
	key := Fingerprint(prompt, opts)
	if err := c.store.Delete(ctx, key); err != nil {
		c.logger.Warn("cache delete failed", zap.String("key", key), zap.Error(err))
	}
}
