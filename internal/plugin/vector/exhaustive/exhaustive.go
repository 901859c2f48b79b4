// Package exhaustive implements VectorIndex as a linear in-process cosine
// scan over every stored embedding. It is the fallback path used whenever
// the native sqlite-vec extension (internal/plugin/vector/sqlitevec) cannot
// be loaded. It is always correct since it needs no index maintenance
// beyond the Store's own vectors table.
package exhaustive

import (
	"context"
	"fmt"
	"math"
	"sort"

	registrystore "github.com/recurator/tram/internal/registry/store"
	registryvector "github.com/recurator/tram/internal/registry/vector"
)

func init() {
	registryvector.Register(registryvector.Plugin{
		Name: "exhaustive",
		Loader: func(_ context.Context, storeHandle any) (registryvector.Index, error) {
			st, ok := storeHandle.(registrystore.Store)
			if !ok {
				return nil, fmt.Errorf("exhaustive vector index requires a registrystore.Store handle")
			}
			return &Index{store: st}, nil
		},
	})
}

// Index scans every vector on each query; no separate index structure is
// maintained since the Store is already the source of truth.
type Index struct {
	store registrystore.Store
}

// Name reports this backend's identifier.
func (i *Index) Name() string { return "exhaustive" }

// Upsert is a no-op: the Store already holds the canonical vector, and
// Search reads straight from it.
func (i *Index) Upsert(_ context.Context, _ string, _ []float32) error { return nil }

// Delete is a no-op for the same reason.
func (i *Index) Delete(_ context.Context, _ string) error { return nil }

// Rebuild is a no-op: there is nothing to rebuild, the Store's vectors
// table is read fresh on every Search.
func (i *Index) Rebuild(_ context.Context) error { return nil }

// Search computes cosine similarity between query and every stored vector,
// returning the top `limit` matches.
func (i *Index) Search(ctx context.Context, query []float32, limit int) ([]registryvector.Match, error) {
	vectors, err := i.store.AllVectors(ctx)
	if err != nil {
		return nil, fmt.Errorf("exhaustive search: %w", err)
	}
	matches := make([]registryvector.Match, 0, len(vectors))
	for _, v := range vectors {
		matches = append(matches, registryvector.Match{
			MemoryID: v.MemoryID,
			Score:    clampSimilarity(cosineSimilarity(query, v.Values)),
		})
	}
	sort.Slice(matches, func(a, b int) bool { return matches[a].Score > matches[b].Score })
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// clampSimilarity clamps negatives to 0; zero vectors map to 0, never NaN.
func clampSimilarity(s float64) float64 {
	if math.IsNaN(s) || s < 0 {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}

var _ registryvector.Index = (*Index)(nil)
