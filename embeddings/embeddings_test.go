package embeddings_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/fabfab/docprocessor/config"
	"github.com/fabfab/docprocessor/embeddings"
)

func TestNewEmbedderDefaults(t *testing.T) {
	embedder, err := embeddings.NewEmbedder(config.EmbeddingConfig{
		Provider:   config.ProviderOllama,
		Model:      "nomic-embed-text",
		Dimension:  3,
		OllamaHost: "http://localhost:11434",
	})
	if err != nil {
		t.Fatalf("expected embedder, got error: %v", err)
	}
	if embedder == nil {
		t.Fatal("expected non-nil embedder")
	}
}

func TestNewEmbedderOpenAIMissingKey(t *testing.T) {
	_, err := embeddings.NewEmbedder(config.EmbeddingConfig{
		Provider:  config.ProviderOpenAI,
		Model:     "text-embedding-3-small",
		Dimension: 1536,
	})
	if err == nil {
		t.Fatal("expected error for missing OPENAI_API_KEY")
	}
}

func TestNewEmbedderUnknownProvider(t *testing.T) {
	if _, err := embeddings.NewEmbedder(config.EmbeddingConfig{Provider: "cohere"}); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}

func TestOllamaEmbedder(t *testing.T) {
	var prompts []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embeddings" {
			http.NotFound(w, r)
			return
		}
		var req struct {
			Model  string `json:"model"`
			Prompt string `json:"prompt"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		prompts = append(prompts, req.Prompt)
		_ = json.NewEncoder(w).Encode(map[string]any{"embedding": []float64{float64(len(req.Prompt)), 0.5}})
	}))
	defer server.Close()

	embedder := embeddings.NewOllamaEmbedder(embeddings.Options{Model: "test", Dimension: 2, OllamaHost: server.URL + "/"})
	vectors, err := embedder.Embed(context.Background(), []string{"ab", "abcd"})
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	if len(vectors) != 2 || vectors[0][0] != 2 || vectors[1][0] != 4 || vectors[1][1] != 0.5 {
		t.Fatalf("unexpected vectors: %v", vectors)
	}
	if strings.Join(prompts, ",") != "ab,abcd" {
		t.Fatalf("unexpected prompts: %v", prompts)
	}
}

func TestOllamaEmbedderErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    string
	}{
		{
			name: "status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "model not found", http.StatusNotFound)
			},
			want: "404",
		},
		{
			name: "dimension",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"embedding":[1,2,3]}`))
			},
			want: "dimension mismatch",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			embedder := embeddings.NewOllamaEmbedder(embeddings.Options{Model: "test", Dimension: 2, OllamaHost: server.URL})
			_, err := embedder.Embed(context.Background(), []string{"text"})
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestOpenAIEmbedderOrdersByIndex(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/embeddings") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"object": "list",
			"model": "text-embedding-3-small",
			"data": [
				{"object": "embedding", "index": 1, "embedding": [0.3, 0.4]},
				{"object": "embedding", "index": 0, "embedding": [0.1, 0.2]}
			]
		}`))
	}))
	defer server.Close()

	embedder, err := embeddings.NewEmbedder(config.EmbeddingConfig{
		Provider:      config.ProviderOpenAI,
		Model:         "text-embedding-3-small",
		Dimension:     2,
		OpenAIAPIKey:  "test-key",
		OpenAIBaseURL: server.URL + "/v1",
	})
	if err != nil {
		t.Fatalf("new embedder: %v", err)
	}

	vectors, err := embedder.Embed(context.Background(), []string{"first", "second"})
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	if vectors[0][0] != 0.1 || vectors[1][0] != 0.3 {
		t.Fatalf("expected vectors ordered by index, got %v", vectors)
	}
}
