// Package cache defines the search-result cache contract and plugin
// registry: a per-query HybridSearch results cache keyed by an opaque
// string signature.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/recurator/tram/internal/search"
)

// SearchCache caches HybridSearch result lists keyed by an opaque query
// signature, so repeated Engine.Recall/SearchRaw calls against an unchanged
// corpus skip re-embedding and re-scanning. AutoRecallHook calls
// search.Search directly and does not use the cache.
type SearchCache interface {
	Available() bool
	Get(ctx context.Context, key string) ([]search.Result, bool)
	Set(ctx context.Context, key string, results []search.Result, ttl time.Duration)
	Remove(ctx context.Context, key string)
}

// Loader creates a SearchCache.
type Loader func(ctx context.Context) (SearchCache, error)

// Plugin represents a cache backend plugin.
type Plugin struct {
	Name   string
	Loader Loader
}

var plugins []Plugin

// Register adds a cache plugin. Called from backend packages' init().
func Register(p Plugin) {
	plugins = append(plugins, p)
}

// Names returns all registered cache plugin names.
func Names() []string {
	names := make([]string, len(plugins))
	for i, p := range plugins {
		names[i] = p.Name
	}
	return names
}

// Select returns the loader for the named cache plugin.
func Select(name string) (Loader, error) {
	for _, p := range plugins {
		if p.Name == name {
			return p.Loader, nil
		}
	}
	return nil, fmt.Errorf("unknown cache backend %q; valid: %v", name, Names())
}
