package queryflow

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/queryflow/config"
	"github.com/BaSui01/queryflow/llm"
	"github.com/BaSui01/queryflow/types"
)

// scriptedProvider returns canned messages without spawning anything.
type scriptedProvider struct {
	calls int
	msgs  []types.Message
}

func (p *scriptedProvider) Name() string { return "scripted" }

func (p *scriptedProvider) Stream(ctx context.Context, prompt string, opts *types.QueryOptions) (<-chan llm.StreamChunk, error) {
	p.calls++
	ch := make(chan llm.StreamChunk, len(p.msgs))
	for _, m := range p.msgs {
		ch <- llm.StreamChunk{Message: m}
	}
	close(ch)
	return ch, nil
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Cache.Dir = t.TempDir()
	cfg.Cache.Path = filepath.Join(t.TempDir(), "cache.db")
	return cfg
}

func TestNewWithDefaultsAssemblesFileBackend(t *testing.T) {
	provider := &scriptedProvider{msgs: []types.Message{types.NewAssistantMessage("4")}}

	c, err := New(
		WithConfig(testConfig(t)),
		WithProvider(provider),
		WithLogger(zap.NewNop()),
	)
	require.NoError(t, err)

	msgs, err := c.Query(context.Background(), "2+2?", nil)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "4", msgs[0].TextContent())

	// Second identical query is served from the file cache.
	_, err = c.Query(context.Background(), "2+2?", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, provider.calls)
}

func TestNewWithSQLiteBackend(t *testing.T) {
	cfg := testConfig(t)
	cfg.Cache.Backend = "sqlite"
	provider := &scriptedProvider{msgs: []types.Message{types.NewAssistantMessage("ok")}}

	c, err := New(WithConfig(cfg), WithProvider(provider), WithLogger(zap.NewNop()))
	require.NoError(t, err)

	_, err = c.Query(context.Background(), "q", nil)
	require.NoError(t, err)
	_, err = c.Query(context.Background(), "q", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, provider.calls)
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Cache.Backend = "memcached"

	_, err := New(WithConfig(cfg), WithLogger(zap.NewNop()))
	require.Error(t, err)
}

func TestOptionsSeededFromConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Provider.Model = "m-large"
	cfg.Provider.SystemPrompt = "be brief"
	cfg.Provider.Temperature = 0.3
	cfg.Retry.Count = 5
	cfg.Retry.Delay = 2 * time.Second

	c, err := New(WithConfig(cfg), WithProvider(&scriptedProvider{}), WithLogger(zap.NewNop()))
	require.NoError(t, err)

	opts := c.Options()
	assert.Equal(t, "m-large", opts.Model)
	assert.Equal(t, "be brief", opts.SystemPrompt)
	assert.Equal(t, 0.3, opts.Temperature)
	assert.Equal(t, 5, opts.RetryCount)
	assert.Equal(t, 2*time.Second, opts.RetryDelay)
	assert.True(t, opts.Cache)

	// Fresh copy each call.
	opts.Model = "scratch"
	assert.Equal(t, "m-large", c.Options().Model)
}

func TestCacheDisabledSkipsStoreAssembly(t *testing.T) {
	cfg := testConfig(t)
	cfg.Cache.Enabled = false
	provider := &scriptedProvider{msgs: []types.Message{types.NewAssistantMessage("x")}}

	c, err := New(WithConfig(cfg), WithProvider(provider), WithLogger(zap.NewNop()))
	require.NoError(t, err)

	_, err = c.Query(context.Background(), "q", nil)
	require.NoError(t, err)
	_, err = c.Query(context.Background(), "q", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, provider.calls)
}
