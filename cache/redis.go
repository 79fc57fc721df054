package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig configures a RedisCache.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"pool_size"`
	Timeout  time.Duration `yaml:"timeout"` // dial, read and write timeout; default 3s
}

func (c RedisConfig) options() *redis.Options {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &redis.Options{
		Addr:         c.Addr,
		Password:     c.Password,
		DB:           c.DB,
		PoolSize:     c.PoolSize,
		DialTimeout:  timeout,
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
	}
}

// RedisCache is a Client backed by a go-redis client. The underlying client
// can be swapped by Reconnect while calls are in flight.
type RedisCache struct {
	cfg RedisConfig

	mu     sync.RWMutex
	client *redis.Client
	closed bool
}

// NewRedisCache creates the client without contacting the server; use Ping
// to verify connectivity.
func NewRedisCache(cfg RedisConfig) *RedisCache {
	return &RedisCache{
		cfg:    cfg,
		client: redis.NewClient(cfg.options()),
	}
}

func (c *RedisCache) current() (*redis.Client, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return nil, ErrClosed
	}
	return c.client, nil
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	client, err := c.current()
	if err != nil {
		return nil, err
	}
	data, err := client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	return data, err
}

func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	client, err := c.current()
	if err != nil {
		return err
	}
	if ttl < 0 {
		ttl = 0
	}
	return client.Set(ctx, key, value, ttl).Err()
}

func (c *RedisCache) Delete(ctx context.Context, key string) error {
	client, err := c.current()
	if err != nil {
		return err
	}
	return client.Del(ctx, key).Err()
}

func (c *RedisCache) Ping(ctx context.Context) error {
	client, err := c.current()
	if err != nil {
		return err
	}
	return client.Ping(ctx).Err()
}

// Info returns the "memory" section of INFO.
func (c *RedisCache) Info(ctx context.Context) (string, error) {
	client, err := c.current()
	if err != nil {
		return "", err
	}
	return client.Info(ctx, "memory").Result()
}

// Publish sends payload on a pub/sub channel.
func (c *RedisCache) Publish(ctx context.Context, channel string, payload []byte) error {
	client, err := c.current()
	if err != nil {
		return err
	}
	return client.Publish(ctx, channel, payload).Err()
}

// Reconnect replaces the connection pool with a fresh one and pings it. The
// old pool is closed once the new one is installed, even if the ping fails.
func (c *RedisCache) Reconnect(ctx context.Context) error {
	fresh := redis.NewClient(c.cfg.options())

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		_ = fresh.Close()
		return ErrClosed
	}
	old := c.client
	c.client = fresh
	c.mu.Unlock()

	_ = old.Close()

	if err := fresh.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("cache: reconnect to %s: %w", c.cfg.Addr, err)
	}
	return nil
}

// Close closes the client. Further calls return ErrClosed.
func (c *RedisCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.client.Close()
}

var _ Client = (*RedisCache)(nil)
