package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const (
	// WalletAnalysisTTL bounds how long a wallet analysis is reused.
	WalletAnalysisTTL = 300 * time.Second
	// TokenDataTTL bounds how long token market data is reused.
	TokenDataTTL = 3600 * time.Second
)

// TieredCache implements a two-tier caching strategy:
//   - L1: in-memory cache (fast, per instance, always on)
//   - L2: Redis cache (shared, optional)
//
// Reads fall through L1, then L2, then the fetcher; hits in L2 are promoted
// to L1.
type TieredCache struct {
	l1 *Cache
	l2 L2
}

// NewTieredCache creates a tiered cache. l2 may be nil.
func NewTieredCache(config Config, l2 L2) *TieredCache {
	return &TieredCache{
		l1: New(config),
		l2: l2,
	}
}

func (t *TieredCache) Get(ctx context.Context, key string) ([]byte, bool) {
	if value, found := t.l1.Get(ctx, key); found {
		return value, true
	}
	if t.l2 != nil {
		if value, found := t.l2.Get(ctx, key); found {
			t.l1.Set(ctx, key, value)
			return value, true
		}
	}
	return nil, false
}

func (t *TieredCache) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) {
	t.l1.SetWithTTL(ctx, key, value, ttl)
	if t.l2 != nil {
		t.l2.SetWithTTL(ctx, key, value, ttl)
	}
}

func (t *TieredCache) Delete(ctx context.Context, key string) {
	t.l1.Delete(ctx, key)
	if t.l2 != nil {
		t.l2.Delete(ctx, key)
	}
}

// Stats returns cache statistics.
func (t *TieredCache) Stats() map[string]any {
	return map[string]any{
		"l1_size":    t.l1.Size(),
		"l2_enabled": t.l2 != nil,
	}
}

// Close closes all cache connections.
func (t *TieredCache) Close() error {
	var errs []error
	if t.l2 != nil {
		if err := t.l2.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := t.l1.Close(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return errors.Errorf("multiple errors: %v", errs)
	}
	return nil
}

// Fetch is a read-through lookup: a cached value for key is decoded into T,
// otherwise fetcher runs and a successful result is stored for ttl. Fetch
// errors are never cached. A nil cache always calls fetcher.
func Fetch[T any](ctx context.Context, t *TieredCache, key string, ttl time.Duration, fetcher func(context.Context) (T, error)) (T, error) {
	if t != nil {
		if data, ok := t.Get(ctx, key); ok {
			var value T
			if err := json.Unmarshal(data, &value); err == nil {
				return value, nil
			}
			slog.Warn("dropping undecodable cache entry", "key", key)
			t.Delete(ctx, key)
		}
	}

	value, err := fetcher(ctx)
	if err != nil {
		return value, err
	}
	if t != nil {
		if data, err := json.Marshal(value); err == nil {
			t.SetWithTTL(ctx, key, data, ttl)
		}
	}
	return value, nil
}

// Key joins key components with ':'.
func Key(components ...string) string {
	return strings.Join(components, ":")
}
