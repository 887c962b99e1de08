package cache

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/kishore28kumar/pulss/pkg/config"
	"github.com/kishore28kumar/pulss/pkg/logger"
	"github.com/redis/go-redis/v9"
)

const fallbackPingTimeout = 10 * time.Second

// Redis wraps the go-redis client so higher layers depend on narrow
// per-consumer interfaces instead of the full client surface.
type Redis struct {
	client *redis.Client
	once   sync.Once // guarantees idempotent, race-free Close
}

// NewRedis creates a new Redis client with the provided configuration and
// verifies connectivity.
func NewRedis(ctx context.Context, cfg *config.RedisConfig) (*Redis, error) {
	if cfg == nil {
		return nil, fmt.Errorf("redis config is required")
	}
	client, err := buildClient(cfg)
	if err != nil {
		return nil, err
	}
	timeout := cfg.PingTimeout
	if timeout <= 0 {
		timeout = fallbackPingTimeout
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("pinging Redis server (timeout=%s): %w", timeout, err)
	}
	logger.FromContext(ctx).With(
		"host", cfg.Host,
		"port", cfg.Port,
		"db", cfg.DB,
	).Info("Redis connection established")
	return &Redis{client: client}, nil
}

func buildClient(cfg *config.RedisConfig) (*redis.Client, error) {
	if cfg.URL != "" {
		opt, err := redis.ParseURL(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("parsing Redis URL: %w", err)
		}
		return redis.NewClient(opt), nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     net.JoinHostPort(cfg.Host, cfg.Port),
		Password: cfg.Password.Value(),
		DB:       cfg.DB,
	}), nil
}

// Client exposes the underlying go-redis client.
func (r *Redis) Client() *redis.Client { return r.client }

// HealthCheck verifies the connection is alive.
func (r *Redis) HealthCheck(ctx context.Context) error {
	hctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	if err := r.client.Ping(hctx).Err(); err != nil {
		return fmt.Errorf("redis: health check failed: %w", err)
	}
	return nil
}

// Close shuts down the Redis connection.
func (r *Redis) Close() error {
	var err error
	r.once.Do(func() {
		err = r.client.Close()
	})
	return err
}
