// Package ristretto implements TRAM's in-process HybridSearch result cache
// using github.com/dgraph-io/ristretto/v2. TRAM is a single-process
// embedded engine with no network cache tier, so an in-process cache is
// the right fit.
package ristretto

import (
	"context"
	"time"

	"github.com/dgraph-io/ristretto/v2"

	registrycache "github.com/recurator/tram/internal/registry/cache"
	"github.com/recurator/tram/internal/search"
)

const (
	defaultTTL         = 30 * time.Second
	defaultNumCounters = 1e4
	defaultMaxCost     = 1 << 24 // 16MiB of cached result entries
	defaultBufferItems = 64
)

func init() {
	registrycache.Register(registrycache.Plugin{
		Name: "ristretto",
		Loader: func(_ context.Context) (registrycache.SearchCache, error) {
			return New()
		},
	})
}

// Cache wraps a ristretto.Cache keyed by query signature.
type Cache struct {
	c *ristretto.Cache[string, []search.Result]
}

// New constructs a ready-to-use ristretto-backed SearchCache.
func New() (*Cache, error) {
	c, err := ristretto.NewCache(&ristretto.Config[string, []search.Result]{
		NumCounters: defaultNumCounters,
		MaxCost:     defaultMaxCost,
		BufferItems: defaultBufferItems,
	})
	if err != nil {
		return nil, err
	}
	return &Cache{c: c}, nil
}

// Available reports true: ristretto is always usable once constructed.
func (c *Cache) Available() bool { return c.c != nil }

// Get returns the cached results for key, if present and unexpired.
func (c *Cache) Get(_ context.Context, key string) ([]search.Result, bool) {
	if c.c == nil {
		return nil, false
	}
	return c.c.Get(key)
}

// Set caches results under key for ttl (defaultTTL if ttl <= 0).
func (c *Cache) Set(_ context.Context, key string, results []search.Result, ttl time.Duration) {
	if c.c == nil {
		return
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	c.c.SetWithTTL(key, results, int64(len(results))+1, ttl)
	c.c.Wait()
}

// Remove evicts key immediately.
func (c *Cache) Remove(_ context.Context, key string) {
	if c.c == nil {
		return
	}
	c.c.Del(key)
}

// Close releases ristretto's background goroutines. Safe to call on a
// nil-backed Cache.
func (c *Cache) Close() {
	if c.c != nil {
		c.c.Close()
	}
}

var _ registrycache.SearchCache = (*Cache)(nil)
