// Package redis wraps go-redis/v9 with the connection-pool tuning and
// Unix-socket auto-detection the teacher's internal/redis package used for
// its economy/leaderboard cache. Trimmed to the operations
// internal/cachebridge actually exercises (Get/Set) now that this module's
// only redis consumer is the L2 cache tier, not a leaderboard.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Config configures the connection to the L2 cache-tier redis instance.
type Config struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Network  string `yaml:"network"` // "tcp" or "unix" for socket path
}

// Client is a thin wrapper around *redis.Client.
type Client struct {
	client *redis.Client
	log    *zap.Logger
}

// New dials redis, auto-detecting a Unix socket when Addr looks like a
// filesystem path (microsecond latency on the same host).
func New(log *zap.Logger, cfg Config) (*Client, error) {
	network := "tcp"
	if cfg.Network != "" {
		network = cfg.Network
	}
	if len(cfg.Addr) > 0 && cfg.Addr[0] == '/' {
		network = "unix"
	}

	opts := &redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		Network:      network,
		PoolSize:     100,
		MinIdleConns: 20,
		MaxRetries:   3,
		PoolTimeout:  4 * time.Second,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}

	rdb := redis.NewClient(opts)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	log.Info("redis connected", zap.String("network", network), zap.String("addr", cfg.Addr))
	return &Client{client: rdb, log: log}, nil
}

func (c *Client) Close() error {
	return c.client.Close()
}

func (c *Client) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *Client) Set(ctx context.Context, key, value string, expiration time.Duration) error {
	return c.client.Set(ctx, key, value, expiration).Err()
}

func (c *Client) Get(ctx context.Context, key string) (string, error) {
	v, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", nil
	}
	return v, err
}
