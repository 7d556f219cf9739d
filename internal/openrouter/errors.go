// SPDX-License-Identifier: MIT

package openrouter

import (
	"errors"
	"fmt"
)

var (
	// Sentinel errors for errors.Is checks at the boundary.
	ErrUnauthorized        = errors.New("openrouter: invalid or missing API key")
	ErrRateLimited         = errors.New("openrouter: rate limited")
	ErrUpstreamUnavailable = errors.New("openrouter: host unreachable or transport failure")
	ErrUpstreamError       = errors.New("openrouter: internal error (5xx)")
	ErrBadResponse         = errors.New("openrouter: invalid response format or malformed data")
	ErrTimeout             = errors.New("openrouter: request timed out")
	ErrEmptyCompletion     = errors.New("openrouter: completion contained no choices")
)

// APIError is a rich error type that wraps the sentinel errors with context.
type APIError struct {
	Sentinel  error
	Operation string
	Status    int
	Body      string
	Err       error // nested lower-level error (e.g. net.Error)
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("openrouter: %s: %v", e.Operation, e.Sentinel)
	if e.Status > 0 {
		msg = fmt.Sprintf("%s (HTTP %d)", msg, e.Status)
	}
	if e.Body != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Body)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *APIError) Unwrap() error {
	return e.Sentinel
}

// Retryable reports whether the error is worth retrying with backoff.
// Auth and malformed-response failures are permanent; rate limiting,
// timeouts and 5xx are transient.
func Retryable(err error) bool {
	switch {
	case errors.Is(err, ErrRateLimited),
		errors.Is(err, ErrTimeout),
		errors.Is(err, ErrUpstreamError),
		errors.Is(err, ErrUpstreamUnavailable):
		return true
	default:
		return false
	}
}
