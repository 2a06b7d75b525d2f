package redis

import (
	"context"
	"fmt"
	"time"

	"wisefido-rppg/common/config"

	"github.com/go-redis/redis/v8"
)

const dialTimeout = 3 * time.Second

// Connect builds a client for cfg and pings it before handing it out. A client that
// cannot be reached is closed and the ping error returned.
func Connect(ctx context.Context, cfg *config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: dialTimeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis %s: %w", cfg.Addr, err)
	}
	return client, nil
}

// Checker returns a health probe for client.
func Checker(client *redis.Client) func(context.Context) error {
	return func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}
}
