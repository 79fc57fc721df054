package cache

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

// unreachable points at a port nothing listens on, so every call fails fast.
func unreachable() *RedisCache {
	return NewRedisCache(RedisConfig{Addr: "127.0.0.1:1", Timeout: 200 * time.Millisecond})
}

func TestRedisCache_UnreachableServer(t *testing.T) {
	c := unreachable()
	defer c.Close()
	ctx := context.Background()

	if err := c.Ping(ctx); err == nil {
		t.Error("Ping() error = nil, want connection error")
	}
	if _, err := c.Get(ctx, "k"); err == nil || errors.Is(err, ErrNotFound) {
		t.Errorf("Get() error = %v, want transport error", err)
	}
	if _, err := c.Info(ctx); err == nil {
		t.Error("Info() error = nil, want connection error")
	}
	if err := c.Publish(ctx, "alerts", []byte("{}")); err == nil {
		t.Error("Publish() error = nil, want connection error")
	}
}

func TestRedisCache_SetRejectsInvalidKey(t *testing.T) {
	c := unreachable()
	defer c.Close()

	if err := c.Set(context.Background(), "", []byte("v"), time.Second); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("Set(\"\") error = %v, want ErrInvalidKey", err)
	}
}

func TestRedisCache_ReconnectFailureWrapsAddr(t *testing.T) {
	c := unreachable()
	defer c.Close()

	err := c.Reconnect(context.Background())
	if err == nil {
		t.Fatal("Reconnect() error = nil, want connection error")
	}
	if got := err.Error(); !strings.Contains(got, "cache: reconnect") || !strings.Contains(got, "127.0.0.1:1") {
		t.Errorf("Reconnect() error = %q", got)
	}
}

func TestRedisCache_Closed(t *testing.T) {
	c := unreachable()
	if err := c.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}

	ctx := context.Background()
	if _, err := c.Get(ctx, "k"); !errors.Is(err, ErrClosed) {
		t.Errorf("Get() error = %v, want ErrClosed", err)
	}
	if err := c.Reconnect(ctx); !errors.Is(err, ErrClosed) {
		t.Errorf("Reconnect() error = %v, want ErrClosed", err)
	}
}
