package cache

import (
	"context"
	"time"
)

// Cache is the shared surface for the token-blacklist mirror and stats
// response caching. Backed by redis when available, process memory otherwise.
type Cache interface {
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, bool, error)
	Exists(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error
	Close() error
}
