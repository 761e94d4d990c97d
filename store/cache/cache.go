package cache

import (
	"context"
	"sync"
	"time"
)

// Config configures the in-memory cache.
type Config struct {
	DefaultTTL      time.Duration
	CleanupInterval time.Duration
	// MaxItems bounds the cache; the entry closest to expiry is evicted first.
	MaxItems int
}

type item struct {
	value     []byte
	expiresAt time.Time
}

// Cache is a TTL bounded in-memory byte cache. It is the L1 tier of
// TieredCache.
type Cache struct {
	config Config

	mu   sync.Mutex
	data map[string]item

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// New creates a Cache. A positive CleanupInterval starts a janitor goroutine
// that Close stops.
func New(config Config) *Cache {
	if config.DefaultTTL <= 0 {
		config.DefaultTTL = 5 * time.Minute
	}
	if config.MaxItems <= 0 {
		config.MaxItems = 1000
	}
	c := &Cache{
		config: config,
		data:   make(map[string]item),
		stop:   make(chan struct{}),
	}
	if config.CleanupInterval > 0 {
		c.wg.Add(1)
		go c.cleanupLoop(config.CleanupInterval)
	}
	return c
}

func (c *Cache) Set(ctx context.Context, key string, value []byte) {
	c.SetWithTTL(ctx, key, value, c.config.DefaultTTL)
}

func (c *Cache) SetWithTTL(_ context.Context, key string, value []byte, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.config.DefaultTTL
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.data[key]; !exists && len(c.data) >= c.config.MaxItems {
		c.evictLocked()
	}
	c.data[key] = item{value: value, expiresAt: time.Now().Add(ttl)}
}

func (c *Cache) Get(_ context.Context, key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	it, ok := c.data[key]
	if !ok {
		return nil, false
	}
	if time.Now().After(it.expiresAt) {
		delete(c.data, key)
		return nil, false
	}
	return it.value, true
}

func (c *Cache) Delete(_ context.Context, key string) {
	c.mu.Lock()
	delete(c.data, key)
	c.mu.Unlock()
}

func (c *Cache) Clear(_ context.Context) {
	c.mu.Lock()
	c.data = make(map[string]item)
	c.mu.Unlock()
}

func (c *Cache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.data)
}

// Close stops the janitor. It is safe to call more than once.
func (c *Cache) Close() error {
	c.stopOnce.Do(func() { close(c.stop) })
	c.wg.Wait()
	return nil
}

func (c *Cache) evictLocked() {
	var victim string
	var earliest time.Time
	for key, it := range c.data {
		if victim == "" || it.expiresAt.Before(earliest) {
			victim, earliest = key, it.expiresAt
		}
	}
	delete(c.data, victim)
}

func (c *Cache) cleanupLoop(interval time.Duration) {
	defer c.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			now := time.Now()
			c.mu.Lock()
			for key, it := range c.data {
				if now.After(it.expiresAt) {
					delete(c.data, key)
				}
			}
			c.mu.Unlock()
		}
	}
}
