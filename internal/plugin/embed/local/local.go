// Package local implements a dependency-free local embedder: an
// FNV-hash-bucket bag-of-tokens embedding, L2-normalized. It exists so TRAM
// works with no network access and no API key at all, at the cost of
// semantic quality compared to a real embedding model.
package local

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"

	registryembed "github.com/recurator/tram/internal/registry/embed"
)

const modelName = "tram-local-hashbucket"

func init() {
	registryembed.Register(registryembed.Plugin{
		Name: "local",
		Loader: func(_ context.Context, _ string, dimension int, _ string, _ string) (registryembed.Embedder, error) {
			if dimension <= 0 {
				dimension = 384
			}
			return &Embedder{dimension: dimension}, nil
		},
	})
}

// Embedder is the local hash-bucket embedder.
type Embedder struct {
	dimension int
}

// ModelName returns a fixed identifier for provenance/logging.
func (e *Embedder) ModelName() string { return modelName }

// Dimension returns the configured embedding length.
func (e *Embedder) Dimension() int { return e.dimension }

// EmbedTexts hashes each token of each text into a bucket and accumulates a
// count, then L2-normalizes the resulting vector.
func (e *Embedder) EmbedTexts(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = e.embedOne(text)
	}
	return out, nil
}

func (e *Embedder) embedOne(text string) []float32 {
	vector := make([]float32, e.dimension)
	for _, tok := range tokenize(text) {
		h := fnv.New64a()
		_, _ = h.Write([]byte(tok))
		idx := int(h.Sum64() % uint64(e.dimension))
		vector[idx]++
	}
	var norm float32
	for _, v := range vector {
		norm += v * v
	}
	if norm == 0 {
		return vector
	}
	inv := 1 / float32(math.Sqrt(float64(norm)))
	for i := range vector {
		vector[i] *= inv
	}
	return vector
}

func tokenize(text string) []string {
	text = strings.TrimSpace(strings.ToLower(text))
	if text == "" {
		return nil
	}
	return strings.FieldsFunc(text, func(r rune) bool {
		return !(unicode.IsLetter(r) || unicode.IsNumber(r))
	})
}

var _ registryembed.Embedder = (*Embedder)(nil)
