package idempotency

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisGuard struct {
	client *redis.Client
}

// NewRedisGuard 连接 Redis 并检查可用性
func NewRedisGuard(ctx context.Context, addr, password string) (*RedisGuard, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           0,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
	})

	if _, err := client.Ping(ctx).Result(); err != nil {
		client.Close()
		return nil, fmt.Errorf("无法连接 Redis: %w", err)
	}
	return &RedisGuard{client: client}, nil
}

func (g *RedisGuard) Seen(ctx context.Context, key string) (bool, error) {
	n, err := g.client.Exists(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (g *RedisGuard) Mark(ctx context.Context, key string, ttl time.Duration) error {
	// SET NX，已存在时保留原过期时间
	return g.client.SetNX(ctx, key, "1", ttl).Err()
}

func (g *RedisGuard) Close() error {
	return g.client.Close()
}
