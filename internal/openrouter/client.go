// SPDX-License-Identifier: MIT

// Package openrouter is a typed client for the OpenRouter chat-completions API.
package openrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/opencivic/crimetrend/internal/log"
	"github.com/opencivic/crimetrend/internal/metrics"
)

const (
	chatCompletionsPath = "/api/v1/chat/completions"
	modelsPath          = "/api/v1/models"

	// Response bodies echoed into errors are truncated to keep log lines sane.
	maxErrorBodyBytes = 512
)

// Options configures the client.
type Options struct {
	APIKey  string
	Timeout time.Duration
	// Referer and Title feed OpenRouter's optional attribution headers.
	Referer string
	Title   string
}

// Client talks to one OpenRouter-compatible endpoint.
type Client struct {
	base    string
	apiKey  string
	referer string
	title   string
	http    *http.Client
}

// New creates a client for the given base URL (scheme://host, no trailing slash).
func New(base string, opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	return &Client{
		base:    strings.TrimRight(base, "/"),
		apiKey:  opts.APIKey,
		referer: opts.Referer,
		title:   opts.Title,
		http:    &http.Client{Timeout: timeout},
	}
}

// ChatCompletion executes a chat-completions request.
func (c *Client) ChatCompletion(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode chat request: %w", err)
	}

	body, err := c.post(ctx, chatCompletionsPath, "chat_completion", payload)
	if err != nil {
		metrics.RecordCompletionRequest(req.Model, outcomeFor(err))
		return nil, err
	}

	var resp ChatResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		metrics.RecordCompletionRequest(req.Model, "error")
		return nil, &APIError{
			Sentinel:  ErrBadResponse,
			Operation: "chat_completion",
			Err:       err,
		}
	}

	metrics.RecordCompletionRequest(req.Model, "success")
	metrics.RecordCompletionTokens(req.Model, resp.Usage.PromptTokens, resp.Usage.CompletionTokens)

	logger := log.WithComponentFromContext(ctx, "openrouter")
	logger.Debug().
		Str("event", "completion.success").
		Str("model", req.Model).
		Int("prompt_tokens", resp.Usage.PromptTokens).
		Int("completion_tokens", resp.Usage.CompletionTokens).
		Msg("completion received")

	return &resp, nil
}

// Models lists available model IDs. Used as a cheap connectivity probe for
// readiness checks; the result itself is not cached or interpreted.
func (c *Client) Models(ctx context.Context) ([]string, error) {
	body, err := c.get(ctx, modelsPath, "models")
	if err != nil {
		return nil, err
	}

	var resp struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &APIError{Sentinel: ErrBadResponse, Operation: "models", Err: err}
	}

	ids := make([]string, 0, len(resp.Data))
	for _, m := range resp.Data {
		ids = append(ids, m.ID)
	}
	return ids, nil
}

func (c *Client) post(ctx context.Context, path, operation string, payload []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, operation)
}

func (c *Client) get(ctx context.Context, path, operation string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	return c.do(req, operation)
}

func (c *Client) do(req *http.Request, operation string) ([]byte, error) {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	if c.referer != "" {
		req.Header.Set("HTTP-Referer", c.referer)
	}
	if c.title != "" {
		req.Header.Set("X-Title", c.title)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return nil, classifyTransportError(operation, err)
	}
	defer func() { _ = res.Body.Close() }()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, &APIError{Sentinel: ErrBadResponse, Operation: operation, Err: err}
	}

	if res.StatusCode != http.StatusOK {
		return nil, classifyStatus(operation, res.StatusCode, body)
	}
	return body, nil
}

func classifyStatus(operation string, status int, body []byte) error {
	snippet := string(body)
	if len(snippet) > maxErrorBodyBytes {
		snippet = snippet[:maxErrorBodyBytes]
	}

	var sentinel error
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		sentinel = ErrUnauthorized
	case status == http.StatusTooManyRequests:
		sentinel = ErrRateLimited
	case status >= 500:
		sentinel = ErrUpstreamError
	default:
		sentinel = ErrBadResponse
	}

	return &APIError{
		Sentinel:  sentinel,
		Operation: operation,
		Status:    status,
		Body:      snippet,
	}
}

func classifyTransportError(operation string, err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &APIError{Sentinel: ErrTimeout, Operation: operation, Err: err}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &APIError{Sentinel: ErrTimeout, Operation: operation, Err: err}
	}
	return &APIError{Sentinel: ErrUpstreamUnavailable, Operation: operation, Err: err}
}

func outcomeFor(err error) string {
	switch {
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	default:
		return "error"
	}
}
