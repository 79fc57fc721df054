package health

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/jonwraymond/healthops/cache"
)

// CacheClient is the cache contract the cache probe needs.
type CacheClient interface {
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	Info(ctx context.Context) (string, error)
}

// CacheCheckerConfig configures the cache probe.
type CacheCheckerConfig struct {
	// Name is the target name. Default: "cache"
	Name string

	Critical bool

	// SlowThreshold marks the cache degraded. Default: 500ms
	SlowThreshold time.Duration

	// KeyTTL bounds how long an orphaned probe key survives. Default: 10s
	KeyTTL time.Duration
}

// CacheChecker round-trips a throwaway key through the cache.
type CacheChecker struct {
	client CacheClient
	config CacheCheckerConfig
}

// NewCacheChecker creates a cache probe.
func NewCacheChecker(client CacheClient, config CacheCheckerConfig) *CacheChecker {
	if config.Name == "" {
		config.Name = "cache"
	}
	if config.SlowThreshold <= 0 {
		config.SlowThreshold = 500 * time.Millisecond
	}
	if config.KeyTTL <= 0 {
		config.KeyTTL = 10 * time.Second
	}
	return &CacheChecker{client: client, config: config}
}

func (c *CacheChecker) Name() string   { return c.config.Name }
func (c *CacheChecker) Critical() bool { return c.config.Critical }

// Check sets, reads back and deletes health:probe:<uuid>. INFO is read for
// used_memory; an INFO failure is recorded but does not change the state.
func (c *CacheChecker) Check(ctx context.Context) Result {
	key := "health:probe:" + uuid.NewString()
	want := []byte(strconv.FormatInt(time.Now().UnixNano(), 10))

	start := time.Now()
	if err := c.client.Set(ctx, key, want, c.config.KeyTTL); err != nil {
		return Unhealthy("cache set failed", err).WithResponseTime(time.Since(start))
	}
	got, err := c.client.Get(ctx, key)
	if err != nil {
		_ = c.client.Delete(ctx, key)
		return Unhealthy("cache get failed", err).WithResponseTime(time.Since(start))
	}
	if err := c.client.Delete(ctx, key); err != nil {
		return Unhealthy("cache delete failed", err).WithResponseTime(time.Since(start))
	}
	latency := time.Since(start)

	if !bytes.Equal(got, want) {
		return Unhealthy("cache returned a different value", ErrValueMismatch).WithResponseTime(latency)
	}

	md := map[string]any{"latency_ms": latency.Milliseconds()}
	if info, err := c.client.Info(ctx); err != nil {
		md["info_error"] = err.Error()
	} else if used, ok := cache.UsedMemory(info); ok {
		md["used_memory"] = used
	}

	if latency > c.config.SlowThreshold {
		return Degraded(fmt.Sprintf("slow response: %v", latency.Round(time.Millisecond))).
			WithMetadata(md).WithResponseTime(latency)
	}
	return Healthy("cache reachable").WithMetadata(md).WithResponseTime(latency)
}
