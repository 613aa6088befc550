package embedder

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// OllamaEmbedder calls Ollama's /api/embed endpoint, which accepts a whole
// batch per request. No API key is required. Safe for concurrent use.
type OllamaEmbedder struct {
	// endpoint is the full /api/embed URL.
	endpoint string
	// model is the embedding model name (e.g. "nomic-embed-text").
	model string
	// client has a per-request timeout that covers a full batch.
	client *http.Client
}

// OllamaConfig holds the settings for constructing an OllamaEmbedder.
type OllamaConfig struct {
	// Host is the Ollama server base URL (e.g. "http://localhost:11434").
	Host string
	// Model is the embedding model name.
	Model string
	// Timeout bounds one batch request. Defaults to 60s.
	Timeout time.Duration
}

// NewOllamaEmbedder constructs an OllamaEmbedder from cfg.
func NewOllamaEmbedder(cfg *OllamaConfig) *OllamaEmbedder {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &OllamaEmbedder{
		endpoint: strings.TrimRight(cfg.Host, "/") + "/api/embed",
		model:    cfg.Model,
		client:   &http.Client{Timeout: timeout},
	}
}

type ollamaEmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type ollamaEmbedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
	Error      string      `json:"error,omitempty"`
}

func (r *ollamaEmbedResponse) errorMessage() string { return r.Error }

// Embed returns one vector per text, in input order.
func (e *OllamaEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	var out ollamaEmbedResponse
	if err := postJSON(ctx, e.client, e.endpoint, nil, ollamaEmbedRequest{Model: e.model, Input: texts}, &out); err != nil {
		return nil, fmt.Errorf("ollama embedder: %s: %w", e.model, err)
	}
	if err := checkVectors(out.Embeddings, len(texts)); err != nil {
		return nil, fmt.Errorf("ollama embedder: %w", err)
	}
	return out.Embeddings, nil
}
