// Package redis provides the shared cart idempotency guard on Redis.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/domain/cart"
)

// Options configure the Redis connection.
type Options struct {
	Addr     string
	Password string
	DB       int
}

// NewClient connects to Redis and verifies the connection with a ping.
func NewClient(ctx context.Context, opts Options, lg *zap.Logger) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("connecting to redis at %s: %w", opts.Addr, err)
	}

	lg.Info("Redis connected", zap.String("addr", opts.Addr), zap.Int("db", opts.DB))
	return rdb, nil
}

var _ cart.Guard = (*Guard)(nil)

// Guard implements cart.Guard with SET NX and an expiry, so every API
// replica shares one view of recent submissions.
type Guard struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewGuard returns a Guard remembering keys for ttl.
func NewGuard(client redis.Cmdable, ttl time.Duration) *Guard {
	return &Guard{client: client, ttl: ttl}
}

// Acquire reports whether key was not seen within the TTL.
func (g *Guard) Acquire(ctx context.Context, key cart.GuardKey) (bool, error) {
	ok, err := g.client.SetNX(ctx, key.String(), 1, g.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquiring cart guard %s: %w", key, err)
	}
	return ok, nil
}

// Release deletes key so the next Acquire succeeds.
func (g *Guard) Release(ctx context.Context, key cart.GuardKey) error {
	if err := g.client.Del(ctx, key.String()).Err(); err != nil {
		return fmt.Errorf("releasing cart guard %s: %w", key, err)
	}
	return nil
}
