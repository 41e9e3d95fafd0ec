package storage

import (
	"context"
	"fmt"

	"dreamtales/internal/config"

	"github.com/redis/go-redis/v9"
)

// KV is a durable key-value slot store. Get reports a missing key with
// found=false and a nil error.
type KV interface {
	Get(ctx context.Context, key string) (data []byte, found bool, err error)
	Put(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
}

// Open builds the backend selected by cfg.Backend
func Open(ctx context.Context, cfg config.Storage) (KV, error) {
	switch cfg.Backend {
	case "file", "":
		return NewFileKV(cfg.Dir)
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to reach redis at %s: %w", cfg.RedisAddr, err)
		}
		return NewRedisKV(client), nil
	default:
		return nil, fmt.Errorf("unsupported storage backend: %s", cfg.Backend)
	}
}
