// SPDX-License-Identifier: MIT
package sources

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencivic/crimetrend/internal/cache"
	"github.com/opencivic/crimetrend/internal/config"
	"github.com/opencivic/crimetrend/internal/openrouter"
)

// fakeClient scripts completion answers for collector tests.
type fakeClient struct {
	mu      sync.Mutex
	calls   []openrouter.ChatRequest
	respond func(req openrouter.ChatRequest) (string, error)
}

func (f *fakeClient) ChatCompletion(_ context.Context, req openrouter.ChatRequest) (*openrouter.ChatResponse, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	f.mu.Unlock()

	answer, err := f.respond(req)
	if err != nil {
		return nil, err
	}
	return &openrouter.ChatResponse{
		Model: req.Model,
		Choices: []openrouter.Choice{{
			Message: openrouter.ResponseMessage{Role: "assistant", Content: openrouter.ResponseContent(answer)},
		}},
	}, nil
}

func (f *fakeClient) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func promptOf(req openrouter.ChatRequest) string {
	for _, msg := range req.Messages {
		for _, part := range msg.Content {
			if part.Type == "text" {
				return part.Text
			}
		}
	}
	return ""
}

func testRunnerConfig() config.OpenRouterConfig {
	return config.OpenRouterConfig{
		TextModel:         "google/gemini-2.5-flash-lite",
		VisionModel:       "google/gemini-2.5-pro",
		MaxRetries:        2,
		RequestsPerMinute: 6000,
		MaxConcurrency:    4,
	}
}

func newTestRunner(client CompletionClient, c cache.Cache) *LLMRunner {
	if c == nil {
		c = cache.NewNoOpCache()
	}
	return NewLLMRunner(client, c, testRunnerConfig())
}

func askOnce(t *testing.T, r *LLMRunner, prompt string) (string, error) {
	t.Helper()
	msg := openrouter.UserMessage(openrouter.TextPart(prompt))
	return r.Ask(context.Background(), "google/gemini-2.5-flash-lite", prompt, "attachment", msg, nil)
}

func TestRunnerSuccess(t *testing.T) {
	client := &fakeClient{respond: func(openrouter.ChatRequest) (string, error) {
		return "4521", nil
	}}
	r := newTestRunner(client, nil)

	answer, err := askOnce(t, r, "how many")
	require.NoError(t, err)
	assert.Equal(t, "4521", answer)
	assert.Equal(t, 1, client.callCount())
}

func TestRunnerCachesAnswers(t *testing.T) {
	client := &fakeClient{respond: func(openrouter.ChatRequest) (string, error) {
		return "100", nil
	}}
	r := newTestRunner(client, cache.NewMemoryCache(0))

	_, err := askOnce(t, r, "prompt")
	require.NoError(t, err)
	answer, err := askOnce(t, r, "prompt")
	require.NoError(t, err)

	assert.Equal(t, "100", answer)
	assert.Equal(t, 1, client.callCount(), "second ask must be served from cache")
}

func TestRunnerRetriesTransientErrors(t *testing.T) {
	failures := 2
	client := &fakeClient{}
	client.respond = func(openrouter.ChatRequest) (string, error) {
		if failures > 0 {
			failures--
			return "", &openrouter.APIError{Sentinel: openrouter.ErrUpstreamError, Operation: "chat_completion", Status: 500}
		}
		return "7", nil
	}
	r := newTestRunner(client, nil)

	answer, err := askOnce(t, r, "prompt")
	require.NoError(t, err)
	assert.Equal(t, "7", answer)
	assert.Equal(t, 3, client.callCount())
}

func TestRunnerDoesNotRetryPermanentErrors(t *testing.T) {
	client := &fakeClient{respond: func(openrouter.ChatRequest) (string, error) {
		return "", &openrouter.APIError{Sentinel: openrouter.ErrUnauthorized, Operation: "chat_completion", Status: 401}
	}}
	r := newTestRunner(client, nil)

	_, err := askOnce(t, r, "prompt")
	require.Error(t, err)
	assert.ErrorIs(t, err, openrouter.ErrUnauthorized)
	assert.Equal(t, 1, client.callCount())
}

func TestRunnerExhaustsRetries(t *testing.T) {
	client := &fakeClient{respond: func(openrouter.ChatRequest) (string, error) {
		return "", &openrouter.APIError{Sentinel: openrouter.ErrUpstreamError, Operation: "chat_completion", Status: 503}
	}}
	r := newTestRunner(client, nil)

	_, err := askOnce(t, r, "prompt")
	require.Error(t, err)
	assert.ErrorIs(t, err, openrouter.ErrUpstreamError)
	// MaxRetries 2 means three attempts total.
	assert.Equal(t, 3, client.callCount())
}

func TestRunnerModelDefaults(t *testing.T) {
	r := newTestRunner(&fakeClient{respond: func(openrouter.ChatRequest) (string, error) { return "1", nil }}, nil)
	assert.Equal(t, "google/gemini-2.5-flash-lite", r.TextModel())
	assert.Equal(t, "google/gemini-2.5-pro", r.VisionModel())
}
