// Package cache keeps derived bill data and user roles in Redis and holds
// the token buckets used for rate limiting.
package cache

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrCacheMiss is returned when a key is absent or its entry is unreadable.
var ErrCacheMiss = errors.New("cache miss")

const (
	dialCheckTimeout = 3 * time.Second
	opTimeout        = 500 * time.Millisecond
)

// Cache wraps a Redis client. The zero value is not usable.
type Cache struct {
	client *redis.Client
}

// Open dials redisURL and verifies the connection. Pool settings given in
// the URL query (pool_size, min_idle_conns) win over the defaults.
func Open(ctx context.Context, redisURL string) (*Cache, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if opt.PoolSize == 0 {
		opt.PoolSize = 4 * runtime.GOMAXPROCS(0)
	}
	if opt.MinIdleConns == 0 {
		opt.MinIdleConns = 1
	}
	opt.ReadTimeout = opTimeout
	opt.WriteTimeout = opTimeout
	opt.ConnMaxIdleTime = 5 * time.Minute

	c := &Cache{client: redis.NewClient(opt)}

	pingCtx, cancel := context.WithTimeout(ctx, dialCheckTimeout)
	defer cancel()
	if err := c.Ping(pingCtx); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return c, nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client *redis.Client) *Cache {
	return &Cache{client: client}
}

// Ping satisfies the readiness checker.
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *Cache) Close() error {
	return c.client.Close()
}
