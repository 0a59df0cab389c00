package cache

import (
	"context"
	"sync"
	"time"
)

type MemoryCache struct {
	store sync.Map
	done  chan struct{}
	once  sync.Once
}

type cacheItem struct {
	value      string
	expiration time.Time
}

func NewMemoryCache() *MemoryCache {
	cache := &MemoryCache{done: make(chan struct{})}

	go cache.cleanup()

	return cache
}

func (c *MemoryCache) Set(_ context.Context, key, value string, ttl time.Duration) error {
	c.store.Store(key, &cacheItem{
		value:      value,
		expiration: time.Now().Add(ttl),
	})
	return nil
}

func (c *MemoryCache) Get(_ context.Context, key string) (string, bool, error) {
	item, exists := c.store.Load(key)
	if !exists {
		return "", false, nil
	}

	cached := item.(*cacheItem)

	if time.Now().After(cached.expiration) {
		c.store.Delete(key)
		return "", false, nil
	}

	return cached.value, true, nil
}

func (c *MemoryCache) Exists(ctx context.Context, key string) (bool, error) {
	_, ok, err := c.Get(ctx, key)
	return ok, err
}

func (c *MemoryCache) Delete(_ context.Context, key string) error {
	c.store.Delete(key)
	return nil
}

func (c *MemoryCache) Close() error {
	c.once.Do(func() { close(c.done) })
	return nil
}

func (c *MemoryCache) cleanup() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			now := time.Now()
			c.store.Range(func(key, value interface{}) bool {
				if item, ok := value.(*cacheItem); ok && now.After(item.expiration) {
					c.store.Delete(key)
				}
				return true
			})
		}
	}
}
