package openai

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/GitHub-HackDay/sumview/internal/domain"
	"github.com/GitHub-HackDay/sumview/internal/metrics"
)

// Embedder is a pooled unit turning text into dense vectors.
type Embedder struct {
	client     *Client
	model      openai.EmbeddingModel
	dimensions int
}

// NewEmbedder creates an embedder unit for the given model.
func NewEmbedder(client *Client, model string, dimensions int) *Embedder {
	return &Embedder{
		client:     client,
		model:      openai.EmbeddingModel(model),
		dimensions: dimensions,
	}
}

// Embed returns the embedding vector for text.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	req := openai.EmbeddingRequest{
		Input:          []string{text},
		Model:          e.model,
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
	}
	if e.dimensions > 0 {
		req.Dimensions = e.dimensions
	}

	start := time.Now()
	var resp openai.EmbeddingResponse
	err := e.client.withRetry(ctx, "embed", func() error {
		var callErr error
		resp, callErr = e.client.api.CreateEmbeddings(ctx, req)
		return callErr
	})
	observe("embed", string(e.model), start, err)
	if err != nil {
		return nil, parseAPIError("embedding", err)
	}

	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("empty embedding response: %w", domain.ErrProviderError)
	}

	if resp.Usage.TotalTokens > 0 {
		metrics.ProviderTokensTotal.WithLabelValues("embed", string(e.model), "prompt").
			Add(float64(resp.Usage.PromptTokens))
		metrics.ProviderTokensTotal.WithLabelValues("embed", string(e.model), "total").
			Add(float64(resp.Usage.TotalTokens))
	}

	return resp.Data[0].Embedding, nil
}

// Close implements pool.Unit. The API client is shared; nothing to release.
func (e *Embedder) Close() error { return nil }
