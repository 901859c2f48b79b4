// Package search implements HybridSearch: combining the Store's lexical BM25
// ranking with the VectorIndex's cosine similarity ranking into one ordered
// candidate list.
package search

import (
	"context"
	"fmt"
	"sort"

	registryembed "github.com/recurator/tram/internal/registry/embed"
	registrystore "github.com/recurator/tram/internal/registry/store"
	registryvector "github.com/recurator/tram/internal/registry/vector"
)

// DefaultVectorWeight and DefaultTextWeight sum to 1.
const (
	DefaultVectorWeight = 0.7
	DefaultTextWeight   = 0.3
)

// Weights holds the (w_vec, w_text) blend. Zero-value Weights resolves to
// the package defaults in Search.
type Weights struct {
	Vector float64
	Text   float64
}

// Result is one scored candidate from HybridSearch.
type Result struct {
	MemoryID      string
	TextScore     float64
	VectorScore   float64
	CombinedScore float64
}

// Search runs lexical and vector search independently, blends their scores,
// and returns an ordered, deduplicated candidate list.
func Search(ctx context.Context, st registrystore.Store, idx registryvector.Index, embedder registryembed.Embedder, query string, limit int, weights Weights) ([]Result, error) {
	if weights.Vector == 0 && weights.Text == 0 {
		weights = Weights{Vector: DefaultVectorWeight, Text: DefaultTextWeight}
	}

	textHits, err := st.LexicalSearch(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("hybrid search lexical leg: %w", err)
	}

	var vectorHits []registryvector.Match
	if embedder != nil && embedder.Dimension() > 0 {
		vectors, err := embedder.EmbedTexts(ctx, []string{query})
		if err != nil {
			return nil, fmt.Errorf("hybrid search embed query: %w", err)
		}
		if len(vectors) == 1 {
			vectorHits, err = idx.Search(ctx, vectors[0], limit)
			if err != nil {
				return nil, fmt.Errorf("hybrid search vector leg: %w", err)
			}
		}
	}

	combined := map[string]*Result{}
	for _, h := range textHits {
		combined[h.MemoryID] = &Result{MemoryID: h.MemoryID, TextScore: h.Score}
	}
	for _, h := range vectorHits {
		if r, ok := combined[h.MemoryID]; ok {
			r.VectorScore = h.Score
		} else {
			combined[h.MemoryID] = &Result{MemoryID: h.MemoryID, VectorScore: h.Score}
		}
	}

	maxText := maxScore(textHits)
	out := make([]Result, 0, len(combined))
	for _, r := range combined {
		textNorm := 0.0
		if maxText > 0 {
			textNorm = r.TextScore / maxText
		}
		r.CombinedScore = weights.Vector*r.VectorScore + weights.Text*textNorm
		out = append(out, *r)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].CombinedScore > out[j].CombinedScore })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func maxScore(hits []registrystore.LexicalHit) float64 {
	max := 0.0
	for _, h := range hits {
		if h.Score > max {
			max = h.Score
		}
	}
	return max
}
