// Package openai implements Embedder against the OpenAI embeddings API
// (or any OpenAI-compatible endpoint via a custom base URL), for operators
// who want real semantic embeddings and are willing to pay the network/API
// cost.
package openai

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	registryembed "github.com/recurator/tram/internal/registry/embed"
)

const maxBatch = 2048 // OpenAI accepts at most 2048 inputs per request

func init() {
	registryembed.Register(registryembed.Plugin{
		Name: "openai",
		Loader: func(_ context.Context, modelName string, dimension int, apiKey string, baseURL string) (registryembed.Embedder, error) {
			if apiKey == "" {
				return nil, fmt.Errorf("openai embedder requires an API key")
			}
			if modelName == "" {
				modelName = "text-embedding-3-small"
			}
			if dimension <= 0 {
				dimension = 1536
			}
			opts := []option.RequestOption{option.WithAPIKey(apiKey)}
			if baseURL != "" {
				opts = append(opts, option.WithBaseURL(baseURL))
			}
			client := openai.NewClient(opts...)
			return &Embedder{client: &client, model: modelName, dim: dimension}, nil
		},
	})
}

// Embedder calls the OpenAI embeddings endpoint.
type Embedder struct {
	client *openai.Client
	model  string
	dim    int
}

// ModelName returns the configured OpenAI model identifier.
func (e *Embedder) ModelName() string { return e.model }

// Dimension returns the configured embedding length.
func (e *Embedder) Dimension() int { return e.dim }

// EmbedTexts embeds texts in batches of at most maxBatch, preserving input
// order across batch boundaries.
func (e *Embedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	result := make([][]float32, len(texts))
	for i := 0; i < len(texts); i += maxBatch {
		end := i + maxBatch
		if end > len(texts) {
			end = len(texts)
		}
		vecs, err := e.callAPI(ctx, texts[i:end])
		if err != nil {
			return nil, fmt.Errorf("embed batch [%d:%d]: %w", i, end, err)
		}
		copy(result[i:], vecs)
	}
	return result, nil
}

func (e *Embedder) callAPI(ctx context.Context, texts []string) ([][]float32, error) {
	params := openai.EmbeddingNewParams{
		Model:          e.model,
		Input:          openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
		Dimensions:     openai.Int(int64(e.dim)),
		EncodingFormat: openai.EmbeddingNewParamsEncodingFormatFloat,
	}
	resp, err := e.client.Embeddings.New(ctx, params)
	if err != nil {
		return nil, err
	}
	vecs := make([][]float32, len(texts))
	for _, item := range resp.Data {
		idx := item.Index
		if idx < 0 || idx >= int64(len(texts)) {
			return nil, fmt.Errorf("unexpected embedding index %d for batch size %d", idx, len(texts))
		}
		vecs[idx] = float64sToFloat32s(item.Embedding)
	}
	for i, v := range vecs {
		if v == nil {
			return nil, fmt.Errorf("missing embedding for index %d", i)
		}
	}
	return vecs, nil
}

func float64sToFloat32s(in []float64) []float32 {
	out := make([]float32, len(in))
	for i, v := range in {
		out[i] = float32(v)
	}
	return out
}

var _ registryembed.Embedder = (*Embedder)(nil)
