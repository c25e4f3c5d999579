package cache

import (
	"context"
	"time"
)

type Stats struct {
	Hits    int64
	Misses  int64
	Entries int64
}

// Cache is the injectable response cache. The in-memory backend serves
// single-instance deployments; the redis backend is for multi-instance.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
	Delete(ctx context.Context, key string)
	Stats() Stats
}
