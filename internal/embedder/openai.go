// Package embedder turns chunk and query text into dense vectors for the
// vector index. OpenAI, Azure OpenAI and Ollama are reached over their REST
// APIs; Gemini goes through the genai SDK. [NewFromEnv] picks the backend.
package embedder

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// OpenAIEmbedder calls the OpenAI (or Azure OpenAI) embeddings API. Safe
// for concurrent use.
type OpenAIEmbedder struct {
	// endpoint is the full embeddings URL, including the Azure api-version.
	endpoint string
	// headers carry the credential: Bearer for OpenAI, api-key for Azure.
	headers map[string]string
	// model is the model (OpenAI) or deployment (Azure) name.
	model string
	// dimensions is the requested vector length (0 = model default).
	dimensions int
	// client has a per-request timeout.
	client *http.Client
}

// OpenAIConfig holds the settings for constructing an OpenAIEmbedder.
type OpenAIConfig struct {
	// BaseURL is the API base URL. For OpenAI: "https://api.openai.com/v1".
	// For Azure: "https://<resource>.openai.azure.com/openai".
	BaseURL string
	// APIKey is the authentication key.
	APIKey string
	// Model is the embedding model, or the deployment name on Azure.
	Model string
	// Dimensions is the desired vector length (0 = model default).
	Dimensions int
	// Azure enables Azure OpenAI mode (api-key header + api-version param).
	Azure bool
	// APIVersion is the Azure OpenAI API version. Ignored when Azure is false.
	APIVersion string
	// Timeout bounds one batch request. Defaults to 30s.
	Timeout time.Duration
}

// NewOpenAIEmbedder constructs an OpenAIEmbedder from cfg.
func NewOpenAIEmbedder(cfg *OpenAIConfig) *OpenAIEmbedder {
	base := strings.TrimRight(cfg.BaseURL, "/")
	e := &OpenAIEmbedder{
		endpoint:   base + "/embeddings",
		headers:    map[string]string{"Authorization": "Bearer " + cfg.APIKey},
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
		client:     &http.Client{Timeout: cfg.Timeout},
	}
	if cfg.Azure {
		e.endpoint = base + "/deployments/" + url.PathEscape(cfg.Model) +
			"/embeddings?api-version=" + url.QueryEscape(cfg.APIVersion)
		e.headers = map[string]string{"api-key": cfg.APIKey}
	}
	if e.client.Timeout <= 0 {
		e.client.Timeout = 30 * time.Second
	}
	return e
}

type openaiEmbedRequest struct {
	Input      []string `json:"input"`
	Model      string   `json:"model"`
	Dimensions int      `json:"dimensions,omitempty"`
}

type openaiEmbedResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (r *openaiEmbedResponse) errorMessage() string {
	if r.Error == nil {
		return ""
	}
	return r.Error.Message
}

// Embed returns one vector per text, in input order. Items in the reply are
// placed by their index field, not their position.
func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	var out openaiEmbedResponse
	req := openaiEmbedRequest{Input: texts, Model: e.model, Dimensions: e.dimensions}
	if err := postJSON(ctx, e.client, e.endpoint, e.headers, req, &out); err != nil {
		return nil, fmt.Errorf("openai embedder: %s: %w", e.model, err)
	}
	if len(out.Data) != len(texts) {
		return nil, fmt.Errorf("openai embedder: expected %d embeddings, got %d", len(texts), len(out.Data))
	}

	vecs := make([][]float32, len(texts))
	for _, d := range out.Data {
		if d.Index < 0 || d.Index >= len(texts) {
			return nil, fmt.Errorf("openai embedder: index %d out of range [0, %d)", d.Index, len(texts))
		}
		vecs[d.Index] = d.Embedding
	}
	if err := checkVectors(vecs, len(texts)); err != nil {
		return nil, fmt.Errorf("openai embedder: %w", err)
	}
	return vecs, nil
}
