package cache

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis backs the cache with a shared store for multi-instance deployments.
// Hit/miss counters are process-local.
type Redis struct {
	client *redis.Client
	hits   atomic.Int64
	misses atomic.Int64
}

func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool) {
	value, err := r.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		r.misses.Add(1)
		return nil, false
	}
	if err != nil {
		r.misses.Add(1)
		return nil, false
	}
	r.hits.Add(1)
	return value, true
}

func (r *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	_ = r.client.Set(ctx, key, value, ttl).Err()
}

func (r *Redis) Delete(ctx context.Context, key string) {
	_ = r.client.Del(ctx, key).Err()
}

func (r *Redis) Stats() Stats {
	return Stats{Hits: r.hits.Load(), Misses: r.misses.Load()}
}
