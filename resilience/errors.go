package resilience

import "errors"

// Sentinel errors for resilience operations.
var (
	// ErrCircuitOpen is returned when the circuit breaker is open.
	ErrCircuitOpen = errors.New("resilience: circuit breaker is open")

	// ErrRetriesExhausted wraps the last error once every attempt failed.
	ErrRetriesExhausted = errors.New("resilience: retries exhausted")

	// ErrRateLimited is returned when the rate limiter has no tokens left.
	ErrRateLimited = errors.New("resilience: rate limit exceeded")

	// ErrTimeout is returned when an operation times out.
	ErrTimeout = errors.New("resilience: operation timed out")

	// ErrPanic wraps a value recovered from a panicking operation.
	ErrPanic = errors.New("resilience: operation panicked")
)
