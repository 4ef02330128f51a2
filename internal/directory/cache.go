package directory

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"shc-verifier/internal/platform/redis"
	"shc-verifier/internal/sentinel"
)

const cacheKey = "shc:directory:snapshot"

// RedisCache keeps the last known-good snapshot bytes in Redis so a restart
// or upstream outage does not leave verification without a directory.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context) ([]byte, error) {
	data, err := c.client.Get(ctx, cacheKey).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("read cached snapshot: %w", err)
	}
	return data, nil
}

func (c *RedisCache) Set(ctx context.Context, data []byte) error {
	if err := c.client.Set(ctx, cacheKey, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("write cached snapshot: %w", err)
	}
	return nil
}
