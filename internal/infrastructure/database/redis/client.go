// Package redis provides the Redis connection and the per-script
// reconciliation lock.
package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/scenedex/scenedex/internal/config"
	"github.com/scenedex/scenedex/internal/infrastructure/monitoring/logging"
	"github.com/scenedex/scenedex/pkg/errors"
)

// Client wraps a Redis connection with the configured key prefix.
type Client struct {
	rdb    *redis.Client
	prefix string
	logger logging.Logger
}

// NewClient connects to Redis and verifies the connection with a ping.
func NewClient(ctx context.Context, cfg config.RedisConfig, log logging.Logger) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := rdb.Ping(pingCtx).Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeCacheError, "redis connection failed")
	}

	log.Info("Connected to Redis", logging.String("addr", cfg.Addr), logging.Int("db", cfg.DB))

	return &Client{
		rdb:    rdb,
		prefix: cfg.KeyPrefix,
		logger: log,
	}, nil
}

// HealthCheck verifies the Redis connection status.
func (c *Client) HealthCheck(ctx context.Context) error {
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "redis health check failed")
	}
	return nil
}

// Close closes the Redis connection.
func (c *Client) Close() error {
	if err := c.rdb.Close(); err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "failed to close redis connection")
	}
	c.logger.Info("Closed Redis connection")
	return nil
}

func (c *Client) key(parts string) string {
	return c.prefix + parts
}
