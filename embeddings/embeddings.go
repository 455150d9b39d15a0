// Package embeddings turns paragraph text into vectors for similarity search.
package embeddings

import (
	"context"
	"fmt"

	"github.com/fabfab/docprocessor/config"
)

// Embedder returns one vector per input text, in input order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

type Options struct {
	Model     string
	Dimension int

	OllamaHost    string
	OpenAIAPIKey  string
	OpenAIBaseURL string
}

func NewEmbedder(cfg config.EmbeddingConfig) (Embedder, error) {
	opts := Options{
		Model:         cfg.Model,
		Dimension:     cfg.Dimension,
		OllamaHost:    cfg.OllamaHost,
		OpenAIAPIKey:  cfg.OpenAIAPIKey,
		OpenAIBaseURL: cfg.OpenAIBaseURL,
	}

	switch cfg.Provider {
	case config.ProviderOllama:
		return NewOllamaEmbedder(opts), nil
	case config.ProviderOpenAI:
		if opts.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("openai provider selected but OPENAI_API_KEY not set")
		}
		return NewOpenAIEmbedder(opts), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider: %q", cfg.Provider)
	}
}

func checkDimension(provider string, want int, vec []float32) error {
	if want > 0 && len(vec) != want {
		return fmt.Errorf("%s embedding dimension mismatch: expected %d, got %d", provider, want, len(vec))
	}
	return nil
}
