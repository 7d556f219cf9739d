// SPDX-License-Identifier: MIT

// Package resilience guards expensive upstream calls against cascading failure.
package resilience

import (
	"errors"
	"sync"
	"time"

	"github.com/opencivic/crimetrend/internal/metrics"
)

// State represents the circuit breaker state.
type State string

const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateHalfOpen State = "half-open"
)

// ErrCircuitOpen is returned while the breaker is rejecting calls.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// clock abstracts time for tests.
type clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Option configures a CircuitBreaker.
type Option func(*CircuitBreaker)

// WithClock substitutes the time source.
func WithClock(c clock) Option {
	return func(cb *CircuitBreaker) { cb.clock = c }
}

// WithPanicRecovery makes panics in the executed function count as failures
// before being re-thrown.
func WithPanicRecovery(enabled bool) Option {
	return func(cb *CircuitBreaker) { cb.recoverPanic = enabled }
}

// CircuitBreaker stops hitting a failing upstream once `threshold`
// consecutive failures accumulate, then lets a single probe through after
// `resetTimeout`. A model API burning one paid completion per category per
// city is exactly the upstream this exists for.
type CircuitBreaker struct {
	name         string
	threshold    int
	resetTimeout time.Duration
	clock        clock
	recoverPanic bool

	mu       sync.Mutex
	state    State
	failures int
	openedAt time.Time
}

// NewCircuitBreaker creates a breaker. Non-positive threshold or timeout
// take conservative defaults.
func NewCircuitBreaker(name string, threshold int, resetTimeout time.Duration, opts ...Option) *CircuitBreaker {
	cb := &CircuitBreaker{
		name:         name,
		threshold:    threshold,
		resetTimeout: resetTimeout,
		clock:        realClock{},
		state:        StateClosed,
	}
	if cb.threshold <= 0 {
		cb.threshold = 3
	}
	if cb.resetTimeout <= 0 {
		cb.resetTimeout = 30 * time.Second
	}
	for _, opt := range opts {
		opt(cb)
	}

	metrics.SetCircuitBreakerState(cb.name, string(cb.state))
	return cb
}

// Execute runs fn unless the breaker is open, and feeds the outcome back
// into the state machine.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	if !cb.admit() {
		return ErrCircuitOpen
	}

	if cb.recoverPanic {
		defer func() {
			if r := recover(); r != nil {
				cb.afterCall(false)
				panic(r)
			}
		}()
	}

	if err := fn(); err != nil {
		cb.afterCall(false)
		return err
	}
	cb.afterCall(true)
	return nil
}

// State returns the current state name.
func (cb *CircuitBreaker) State() string {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return string(cb.state)
}

// admit decides whether a call may proceed, moving open to half-open once
// the reset timeout has elapsed.
func (cb *CircuitBreaker) admit() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state != StateOpen {
		return true
	}
	if cb.clock.Now().Sub(cb.openedAt) <= cb.resetTimeout {
		return false
	}
	cb.setState(StateHalfOpen)
	return true
}

// afterCall applies one call outcome to the state machine.
func (cb *CircuitBreaker) afterCall(ok bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if ok {
		cb.failures = 0
		if cb.state != StateClosed {
			cb.setState(StateClosed)
		}
		return
	}

	cb.failures++
	switch cb.state {
	case StateHalfOpen:
		// Failed probe: straight back to open.
		metrics.RecordCircuitBreakerTrip(cb.name, "half_open_failure")
		cb.setState(StateOpen)
	case StateClosed:
		if cb.failures >= cb.threshold {
			metrics.RecordCircuitBreakerTrip(cb.name, "threshold_exceeded")
			cb.setState(StateOpen)
		}
	}
}

// setState transitions and publishes the gauge. Caller holds the lock.
func (cb *CircuitBreaker) setState(next State) {
	if cb.state == next {
		return
	}
	cb.state = next
	if next == StateOpen {
		cb.openedAt = cb.clock.Now()
	}
	metrics.SetCircuitBreakerState(cb.name, string(next))
}
