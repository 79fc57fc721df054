package cache

import (
	"context"
	"errors"
	"strings"
	"time"
)

// MaxKeyLength is the maximum allowed length for a cache key.
const MaxKeyLength = 512

// Sentinel errors for cache operations.
var (
	ErrNotFound   = errors.New("cache: key not found")
	ErrInvalidKey = errors.New("cache: key is invalid")
	ErrKeyTooLong = errors.New("cache: key exceeds max length")
	ErrClosed     = errors.New("cache: client is closed")
)

// Cache is a byte-oriented key/value store with TTLs.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: methods should honor cancellation/deadlines where applicable.
// - Errors: Get returns ErrNotFound on a miss; transport failures are returned as-is.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value with the given TTL. TTL<=0 stores without expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a value. Idempotent: no error on miss.
	Delete(ctx context.Context, key string) error
}

// Client is a Cache that can also report server statistics.
type Client interface {
	Cache

	Ping(ctx context.Context) error

	// Info returns the server statistics in Redis INFO text format.
	Info(ctx context.Context) (string, error)
}

// ValidateKey checks if a key is valid for caching.
func ValidateKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return ErrInvalidKey
	}
	if len(key) > MaxKeyLength {
		return ErrKeyTooLong
	}
	if strings.ContainsAny(key, "\n\r") {
		return ErrInvalidKey
	}
	return nil
}
