// SPDX-License-Identifier: MIT
package sources

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/opencivic/crimetrend/internal/cache"
	"github.com/opencivic/crimetrend/internal/config"
	"github.com/opencivic/crimetrend/internal/log"
	"github.com/opencivic/crimetrend/internal/metrics"
	"github.com/opencivic/crimetrend/internal/openrouter"
	"github.com/opencivic/crimetrend/internal/resilience"
)

// LLMRunner funnels all model calls through one place: completion cache,
// per-minute rate limit, bounded concurrency, circuit breaker and retries.
type LLMRunner struct {
	client      CompletionClient
	cache       cache.Cache
	cacheTTL    time.Duration
	limiter     *rate.Limiter
	sem         chan struct{}
	breaker     *resilience.CircuitBreaker
	retries     int
	textModel   string
	visionModel string
}

// TextModel returns the default model for PDF text extraction.
func (r *LLMRunner) TextModel() string { return r.textModel }

// VisionModel returns the default model for chart transcription.
func (r *LLMRunner) VisionModel() string { return r.visionModel }

// NewLLMRunner wires the runner from config. The circuit breaker trips after
// repeated upstream failures so a dead API key or outage does not burn
// through every category of every city.
func NewLLMRunner(client CompletionClient, completionCache cache.Cache, cfg config.OpenRouterConfig) *LLMRunner {
	rpm := cfg.RequestsPerMinute
	if rpm <= 0 {
		rpm = 30
	}
	concurrency := cfg.MaxConcurrency
	if concurrency <= 0 {
		concurrency = 4
	}

	return &LLMRunner{
		client:      client,
		cache:       completionCache,
		cacheTTL:    24 * time.Hour,
		limiter:     rate.NewLimiter(rate.Limit(float64(rpm)/60.0), rpm),
		sem:         make(chan struct{}, concurrency),
		breaker:     resilience.NewCircuitBreaker("openrouter", 5, 60*time.Second),
		retries:     cfg.MaxRetries,
		textModel:   cfg.TextModel,
		visionModel: cfg.VisionModel,
	}
}

// SetCacheTTL overrides the default completion cache TTL.
func (r *LLMRunner) SetCacheTTL(ttl time.Duration) {
	if ttl > 0 {
		r.cacheTTL = ttl
	}
}

// Ask sends one chat completion and returns the answer text. The attachment
// string identifies the non-prompt input (image URL or PDF content hash) for
// cache keying.
func (r *LLMRunner) Ask(ctx context.Context, model, prompt, attachment string, msg openrouter.Message, plugins []openrouter.Plugin) (string, error) {
	key := cache.Key(model, prompt, attachment)
	if answer, ok := r.cache.Get(ctx, key); ok {
		metrics.RecordCompletionCache("hit")
		return answer, nil
	}
	metrics.RecordCompletionCache("miss")

	if err := r.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter: %w", err)
	}

	select {
	case r.sem <- struct{}{}:
		defer func() { <-r.sem }()
	case <-ctx.Done():
		return "", ctx.Err()
	}

	answer, err := r.askWithRetry(ctx, model, msg, plugins)
	if err != nil {
		return "", err
	}

	r.cache.Set(ctx, key, answer, r.cacheTTL)
	return answer, nil
}

func (r *LLMRunner) askWithRetry(ctx context.Context, model string, msg openrouter.Message, plugins []openrouter.Plugin) (string, error) {
	req := openrouter.ChatRequest{
		Model:    model,
		Messages: []openrouter.Message{msg},
		Plugins:  plugins,
	}

	var lastErr error
	for attempt := 0; attempt <= r.retries; attempt++ {
		if attempt > 0 {
			// Exponential backoff
			backoff := time.Duration(attempt*attempt*500) * time.Millisecond
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		var resp *openrouter.ChatResponse
		err := r.breaker.Execute(func() error {
			var callErr error
			resp, callErr = r.client.ChatCompletion(ctx, req)
			return callErr
		})
		if err == nil {
			return resp.FirstContent()
		}

		lastErr = err
		if errors.Is(err, resilience.ErrCircuitOpen) || !openrouter.Retryable(err) {
			break
		}

		logger := log.WithComponentFromContext(ctx, "sources")
		logger.Warn().
			Err(err).
			Str("event", "completion.retry").
			Str("model", model).
			Int("attempt", attempt+1).
			Msg("completion failed, retrying")
	}

	return "", fmt.Errorf("completion failed after %d attempts: %w", r.retries+1, lastErr)
}
