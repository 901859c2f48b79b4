// Package noop implements the "none" search cache: every Get misses, every
// Set/Remove is discarded.
package noop

import (
	"context"
	"time"

	registrycache "github.com/recurator/tram/internal/registry/cache"
	"github.com/recurator/tram/internal/search"
)

func init() {
	registrycache.Register(registrycache.Plugin{
		Name: "none",
		Loader: func(_ context.Context) (registrycache.SearchCache, error) {
			return &Cache{}, nil
		},
	})
}

// Cache is a no-op SearchCache.
type Cache struct{}

// Available reports false: callers should treat every lookup as a miss.
func (c *Cache) Available() bool { return false }

// Get always misses.
func (c *Cache) Get(_ context.Context, _ string) ([]search.Result, bool) { return nil, false }

// Set discards.
func (c *Cache) Set(_ context.Context, _ string, _ []search.Result, _ time.Duration) {}

// Remove discards.
func (c *Cache) Remove(_ context.Context, _ string) {}

var _ registrycache.SearchCache = (*Cache)(nil)
