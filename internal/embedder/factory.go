package embedder

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/54b3r/pdfrag-go/internal/rag"
)

// backendDefaults describes where one embedding backend reads its settings.
// EMBEDDING_API_KEY and EMBEDDING_ENDPOINT always win over the inherited
// chat-provider variables listed here.
type backendDefaults struct {
	model      string
	dimensions int
	// keyVar is the inherited API key variable; empty when no key is needed.
	keyVar string
	// endpointVar is the inherited endpoint variable.
	endpointVar     string
	defaultEndpoint string
}

var backends = map[string]backendDefaults{
	"ollama": {
		model:           "nomic-embed-text",
		dimensions:      768,
		endpointVar:     "OLLAMA_HOST",
		defaultEndpoint: "http://localhost:11434",
	},
	"openai": {
		model:           "text-embedding-3-small",
		dimensions:      1536,
		keyVar:          "OPENAI_API_KEY",
		defaultEndpoint: "https://api.openai.com/v1",
	},
	"azure": {
		model:       "text-embedding-3-small",
		dimensions:  1536,
		keyVar:      "AZURE_OPENAI_API_KEY",
		endpointVar: "AZURE_OPENAI_ENDPOINT",
	},
	"gemini": {
		model:      "text-embedding-004",
		dimensions: 768,
		keyVar:     "GOOGLE_API_KEY",
	},
}

// resolved is the effective embedding configuration for one backend.
type resolved struct {
	backend  string
	model    string
	apiKey   string
	endpoint string
}

// resolve reads the environment for backend and reports the first missing
// requirement.
func resolve(backend string) (resolved, error) {
	def, ok := backends[backend]
	if !ok {
		return resolved{}, fmt.Errorf("embedder: %w: unknown backend %q has no embedding support: set EMBEDDING_PROVIDER to ollama, openai, azure, or gemini",
			rag.ErrConfiguration, backend)
	}
	r := resolved{
		backend:  backend,
		model:    envOr("EMBEDDING_MODEL", def.model),
		apiKey:   firstEnv("EMBEDDING_API_KEY", def.keyVar),
		endpoint: firstEnv("EMBEDDING_ENDPOINT", def.endpointVar),
	}
	if r.endpoint == "" {
		r.endpoint = def.defaultEndpoint
	}
	if def.keyVar != "" && r.apiKey == "" {
		return r, fmt.Errorf("embedder: %w: %s requires %s or EMBEDDING_API_KEY", rag.ErrConfiguration, backend, def.keyVar)
	}
	if def.endpointVar != "" && r.endpoint == "" {
		return r, fmt.Errorf("embedder: %w: %s requires %s or EMBEDDING_ENDPOINT", rag.ErrConfiguration, backend, def.endpointVar)
	}
	return r, nil
}

// DefaultDimensions returns the expected vector size for backend.
// EMBEDDING_DIMENSIONS wins when set. The index sizes itself from the first
// batch, so the value is only logged at startup.
func DefaultDimensions(backend string) int {
	if v := envInt("EMBEDDING_DIMENSIONS", 0); v > 0 {
		return v
	}
	if def, ok := backends[backend]; ok {
		return def.dimensions
	}
	return backends["openai"].dimensions
}

// Backend returns the effective embedding backend name:
// EMBEDDING_PROVIDER, else MODEL_PROVIDER, else "ollama".
func Backend() string {
	return envOr("EMBEDDING_PROVIDER", envOr("MODEL_PROVIDER", "ollama"))
}

// NewFromEnv constructs the rag.Embedder for [Backend]. Embedding settings
// inherit the chat provider's credentials unless EMBEDDING_API_KEY,
// EMBEDDING_ENDPOINT, EMBEDDING_MODEL or EMBEDDING_DIMENSIONS override them.
func NewFromEnv(ctx context.Context) (rag.Embedder, error) {
	r, err := resolve(Backend())
	if err != nil {
		return nil, err
	}

	switch r.backend {
	case "ollama":
		return NewOllamaEmbedder(&OllamaConfig{Host: r.endpoint, Model: r.model}), nil
	case "openai":
		return NewOpenAIEmbedder(&OpenAIConfig{
			BaseURL:    r.endpoint,
			APIKey:     r.apiKey,
			Model:      r.model,
			Dimensions: envInt("EMBEDDING_DIMENSIONS", backends["openai"].dimensions),
		}), nil
	case "azure":
		return NewOpenAIEmbedder(&OpenAIConfig{
			BaseURL:    r.endpoint + "/openai",
			APIKey:     r.apiKey,
			Model:      r.model,
			Dimensions: envInt("EMBEDDING_DIMENSIONS", backends["azure"].dimensions),
			Azure:      true,
			APIVersion: envOr("AZURE_OPENAI_API_VERSION", "2025-04-01-preview"),
		}), nil
	default: // gemini
		return NewGeminiEmbedder(ctx, &GeminiConfig{
			APIKey:     r.apiKey,
			Model:      r.model,
			Dimensions: envInt("EMBEDDING_DIMENSIONS", 0),
		})
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// envInt ignores unparseable values.
func envInt(key string, fallback int) int {
	if i, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return i
	}
	return fallback
}

// firstEnv returns the first non-empty value among keys. Empty key names
// are skipped.
func firstEnv(keys ...string) string {
	for _, k := range keys {
		if k == "" {
			continue
		}
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}
