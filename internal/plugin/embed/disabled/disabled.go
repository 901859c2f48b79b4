// Package disabled implements a no-op Embedder for operators who want
// lexical-only retrieval with no vector component at all.
package disabled

import (
	"context"
	"fmt"

	"github.com/recurator/tram/internal/registry/embed"
)

func init() {
	embed.Register(embed.Plugin{
		Name: "none",
		Loader: func(_ context.Context, _ string, _ int, _ string, _ string) (embed.Embedder, error) {
			return &Embedder{}, nil
		},
	})
}

// Embedder always refuses to embed; HybridSearch must check Dimension() ==
// 0 and skip the vector leg entirely rather than calling EmbedTexts.
type Embedder struct{}

// EmbedTexts always errors — callers must not invoke it when embedding is
// disabled.
func (d *Embedder) EmbedTexts(_ context.Context, _ []string) ([][]float32, error) {
	return nil, fmt.Errorf("embedding is disabled")
}

// ModelName reports "none".
func (d *Embedder) ModelName() string { return "none" }

// Dimension is always 0, the signal HybridSearch uses to skip vector search.
func (d *Embedder) Dimension() int { return 0 }

var _ embed.Embedder = (*Embedder)(nil)
