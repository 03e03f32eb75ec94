// Package redis backs the passcode store and the issuance limiter with Redis
// so several API processes can share them.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/JagadeshwaranK/MedPlusMart/internal/config"
	goredis "github.com/redis/go-redis/v9"
)

// NewClient creates a Redis client and checks connectivity.
func NewClient(ctx context.Context, cfg *config.Config) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", cfg.RedisAddr, err)
	}
	return client, nil
}
