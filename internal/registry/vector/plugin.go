// Package vector defines the VectorIndex contract and a plugin registry for
// selecting an ANN backend by name.
package vector

import (
	"context"
	"fmt"
)

// Match is one scored result from a VectorIndex search.
type Match struct {
	MemoryID string
	Score    float64 // cosine similarity clamped to [0, 1] (negatives become 0), higher is closer
}

// Index is the vector-similarity search backend. Implementations may be
// backed by a native ANN extension or by an exhaustive in-process scan;
// both satisfy the same contract so HybridSearch never branches on which
// one is active.
type Index interface {
	// Search returns up to limit nearest neighbors to query, ordered by
	// descending score.
	Search(ctx context.Context, query []float32, limit int) ([]Match, error)
	// Upsert (re)indexes a single memory's embedding.
	Upsert(ctx context.Context, memoryID string, embedding []float32) error
	// Delete removes a memory's embedding from the index.
	Delete(ctx context.Context, memoryID string) error
	// Rebuild recomputes the index from the Store's vector table, used
	// after a fallback/backend switch or index corruption.
	Rebuild(ctx context.Context) error
	// Name reports which backend is active ("sqlitevec" or "exhaustive"),
	// so callers/logs can record which path served a query.
	Name() string
}

// Loader creates an Index bound to the given Store/db handle. The concrete
// argument type is left to implementations (sqlitevec needs a *sql.DB,
// exhaustive needs a store.Store) — callers import the right loader.
type Loader func(ctx context.Context, storeHandle any) (Index, error)

// Plugin represents a vector backend plugin.
type Plugin struct {
	Name   string
	Loader Loader
}

var plugins []Plugin

// Register adds a vector backend plugin.
func Register(p Plugin) {
	plugins = append(plugins, p)
}

// Names returns all registered vector backend plugin names.
func Names() []string {
	names := make([]string, len(plugins))
	for i, p := range plugins {
		names[i] = p.Name
	}
	return names
}

// Select returns the loader for the named vector backend plugin.
func Select(name string) (Loader, error) {
	for _, p := range plugins {
		if p.Name == name {
			return p.Loader, nil
		}
	}
	return nil, fmt.Errorf("unknown vector backend %q; valid: %v", name, Names())
}
