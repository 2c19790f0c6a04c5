package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/BaSui01/queryflow/internal/metrics"
	"github.com/BaSui01/queryflow/llm/cache"
	"github.com/BaSui01/queryflow/llm/retry"
	"github.com/BaSui01/queryflow/types"
)

// DefaultPromptSnippetLen bounds the prompt prefix carried on surfaced
// errors and log lines.
const DefaultPromptSnippetLen = 100

// SleepFunc suspends for d, returning early with the context error if the
// context is cancelled first.
type SleepFunc func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// PipelineConfig holds pipeline-level defaults. Per-query values in
// QueryOptions (retry count, delay, no-retry) take precedence.
type PipelineConfig struct {
	Retry retry.Policy

	// RateLimit throttles provider attempts client-side. Zero disables
	// the limiter.
	RateLimit rate.Limit
	RateBurst int

	// PromptSnippetLen overrides DefaultPromptSnippetLen when positive.
	PromptSnippetLen int

	// Installer is the optional remediation hook for a missing provider
	// executable.
	Installer Installer
}

// Pipeline orchestrates query execution: cache probe, provider attempts,
// failure classification, exponential backoff and cache write-back. One
// Pipeline is safe for concurrent use; per-query retry state is never
// shared between calls.
type Pipeline struct {
	provider   Provider
	cache      *cache.ResponseCache
	installer  Installer
	policy     retry.Policy
	limiter    *rate.Limiter
	snippetLen int
	logger     *zap.Logger
	metrics    *metrics.Collector
	tracer     trace.Tracer

	// sleep is swapped out in tests to observe the backoff schedule.
	sleep SleepFunc
}

// NewPipeline creates a Pipeline around the given provider. responseCache
// may be nil to disable caching entirely.
func NewPipeline(provider Provider, responseCache *cache.ResponseCache, cfg PipelineConfig, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(cfg.RateLimit, burst)
	}

	snippetLen := cfg.PromptSnippetLen
	if snippetLen <= 0 {
		snippetLen = DefaultPromptSnippetLen
	}

	return &Pipeline{
		provider:   provider,
		cache:      responseCache,
		installer:  cfg.Installer,
		policy:     cfg.Retry.Normalize(),
		limiter:    limiter,
		snippetLen: snippetLen,
		logger:     logger.With(zap.String("component", "pipeline"), zap.String("provider", provider.Name())),
		metrics:    metrics.Default(),
		tracer:     otel.Tracer("github.com/BaSui01/queryflow/llm"),
		sleep:      sleepContext,
	}
}

// QueryStream runs one query, streaming fragments as they arrive. The
// returned channel is closed when the query finishes; a failed query ends
// with a single chunk carrying a classified *types.Error.
func (p *Pipeline) QueryStream(ctx context.Context, prompt string, opts *types.QueryOptions) <-chan StreamChunk {
	if opts == nil {
		opts = types.DefaultQueryOptions()
	}
	out := make(chan StreamChunk)
	go p.run(ctx, prompt, opts, out)
	return out
}

// Query runs one query and collects the full response. On failure it
// returns the fragments delivered before the failure together with the
// classified error.
func (p *Pipeline) Query(ctx context.Context, prompt string, opts *types.QueryOptions) ([]types.Message, error) {
	var msgs []types.Message
	for chunk := range p.QueryStream(ctx, prompt, opts) {
		if chunk.Err != nil {
			return msgs, chunk.Err
		}
		msgs = append(msgs, chunk.Message)
	}
	// A cancelled stream may end without a terminal error chunk.
	if err := ctx.Err(); err != nil {
		return msgs, err
	}
	return msgs, nil
}

func (p *Pipeline) run(ctx context.Context, prompt string, opts *types.QueryOptions, out chan<- StreamChunk) {
	defer close(out)

	start := time.Now()
	logger := p.logger.With(zap.String("trace_id", uuid.NewString()))
	if opts.SessionID != "" {
		logger = logger.With(zap.String("session_id", opts.SessionID))
	}

	ctx, span := p.tracer.Start(ctx, "queryflow.query",
		trace.WithAttributes(attribute.String("model", opts.Model)))
	defer span.End()

	if msgs, ok := p.cache.Get(ctx, prompt, opts); ok {
		logger.Debug("serving response from cache", zap.Int("messages", len(msgs)))
		for _, m := range msgs {
			if !send(ctx, out, StreamChunk{Message: m}) {
				return
			}
		}
		p.metrics.QueryCompleted("cache_hit", time.Since(start))
		return
	}

	if err := p.execute(ctx, logger, prompt, opts, out); err != nil {
		span.RecordError(err)
		p.metrics.QueryCompleted(string(types.GetErrorCode(err)), time.Since(start))
		send(ctx, out, StreamChunk{Err: err})
		return
	}
	p.metrics.QueryCompleted("success", time.Since(start))
}

// execute drives the attempt loop: Idle -> Attempting -> {Succeeded,
// Retrying, Exhausted} as an explicit iteration. It returns nil on success
// and a classified *types.Error otherwise.
func (p *Pipeline) execute(ctx context.Context, logger *zap.Logger, prompt string, opts *types.QueryOptions, out chan<- StreamChunk) error {
	maxAttempts := opts.RetryCount
	if opts.NoRetry || maxAttempts <= 0 {
		// Retry disabled: exactly one attempt, any failure surfaces
		// immediately, still classified.
		maxAttempts = 1
	}

	policy := retry.Policy{Count: maxAttempts, Delay: opts.RetryDelay, Backoff: p.policy.Backoff}
	if policy.Delay <= 0 {
		policy.Delay = p.policy.Delay
	}
	policy = policy.Normalize()

	var (
		lastErr error
		lastCls retry.Classification
	)

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		msgs, err := p.attempt(ctx, prompt, opts, out)
		if err == nil {
			if attempt > 1 {
				logger.Info("query succeeded after retry", zap.Int("attempt", attempt))
			}
			p.cache.Set(ctx, prompt, opts, msgs)
			return nil
		}

		lastErr = err
		lastCls = retry.Classify(err)
		logger.Warn("query attempt failed",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", maxAttempts),
			zap.String("kind", string(lastCls.Kind)),
			zap.Error(err))

		if lastCls.Kind == retry.KindMissingExecutable {
			return p.remediate(ctx, logger, prompt, opts, out, err, attempt)
		}
		if attempt == maxAttempts {
			break
		}
		if ctx.Err() != nil {
			// Cancellation observed: no further attempt is scheduled.
			return p.surface(lastCls, ctx.Err(), prompt, attempt)
		}

		delay := policy.DelayFor(attempt)
		p.metrics.Retry(string(lastCls.Kind))
		logger.Debug("backing off before retry",
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay))
		if serr := p.sleep(ctx, delay); serr != nil {
			return p.surface(lastCls, serr, prompt, attempt)
		}
	}

	return p.surface(lastCls, lastErr, prompt, maxAttempts)
}

// attempt performs one provider call, forwarding fragments to the caller
// as they arrive. Fragments delivered before a mid-stream failure stay
// delivered; the collected slice is only used for cache write-back after
// a fully successful attempt.
func (p *Pipeline) attempt(ctx context.Context, prompt string, opts *types.QueryOptions, out chan<- StreamChunk) ([]types.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	p.metrics.Attempt()
	ch, err := p.provider.Stream(ctx, prompt, opts)
	if err != nil {
		return nil, err
	}

	var collected []types.Message
	for chunk := range ch {
		if chunk.Err != nil {
			return collected, chunk.Err
		}
		collected = append(collected, chunk.Message)
		if !send(ctx, out, StreamChunk{Message: chunk.Message}) {
			return collected, ctx.Err()
		}
	}
	return collected, nil
}

// remediate handles the missing-executable path: at most one installer
// invocation, then a single fresh attempt outside the retry budget.
func (p *Pipeline) remediate(ctx context.Context, logger *zap.Logger, prompt string, opts *types.QueryOptions, out chan<- StreamChunk, cause error, attempts int) error {
	cls := retry.Classification{Kind: retry.KindMissingExecutable}
	if p.installer == nil {
		return p.surface(cls, cause, prompt, attempts)
	}

	p.metrics.InstallAttempt()
	logger.Info("provider executable missing, invoking remediation hook")
	res, err := p.installer.Install(ctx)
	if err != nil {
		logger.Error("remediation hook failed", zap.Error(err))
		return p.surface(cls, fmt.Errorf("remediation failed: %w", err), prompt, attempts)
	}
	if !res.Installed {
		logger.Error("remediation hook reported failure", zap.String("message", res.Message))
		return p.surface(cls, cause, prompt, attempts)
	}

	logger.Info("remediation succeeded, making one fresh attempt", zap.String("message", res.Message))
	msgs, aerr := p.attempt(ctx, prompt, opts, out)
	if aerr != nil {
		return p.surface(cls, aerr, prompt, attempts+1)
	}
	p.cache.Set(ctx, prompt, opts, msgs)
	return nil
}

func (p *Pipeline) surface(cls retry.Classification, cause error, prompt string, attempts int) *types.Error {
	code := cls.Code()

	var msg string
	switch code {
	case types.ErrTimeout:
		msg = fmt.Sprintf("query timed out after %d attempts", attempts)
	case types.ErrQuotaExceeded:
		msg = fmt.Sprintf("provider quota or rate limit exceeded after %d attempts", attempts)
	case types.ErrInstallationFailed:
		msg = "provider executable missing and remediation unavailable or failed"
	default:
		msg = fmt.Sprintf("query failed after %d attempts", attempts)
	}

	return types.NewError(code, msg).
		WithCause(cause).
		WithProvider(p.provider.Name()).
		WithRetryable(cls.Retryable).
		WithAttempts(attempts).
		WithPromptSnippet(prompt, p.snippetLen)
}

func send(ctx context.Context, out chan<- StreamChunk, chunk StreamChunk) bool {
	select {
	case out <- chunk:
		return true
	case <-ctx.Done():
		return false
	}
}
