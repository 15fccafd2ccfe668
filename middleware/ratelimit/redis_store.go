package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore counts hits in Redis so limits hold across replicas. The key
// expires at the end of the window, which doubles as the reset time.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Increment(key string, resetTime time.Time) (int, time.Time) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, time.Until(resetTime))
	ttl := pipe.TTL(ctx, key)

	if _, err := pipe.Exec(ctx); err != nil {
		// Broker trouble must not lock users out.
		return 0, resetTime
	}

	actualReset := resetTime
	if d := ttl.Val(); d > 0 {
		actualReset = time.Now().Add(d)
	}

	return int(incr.Val()), actualReset
}

func (s *RedisStore) Reset(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	s.client.Del(ctx, key)
}
