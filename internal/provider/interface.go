// Package provider selects and constructs the chat model used to generate
// document summaries. Supported backends: Ollama, OpenAI, Azure OpenAI,
// Volcano Engine Ark, Google Gemini.
package provider

import (
	"fmt"
	"strings"

	"github.com/54b3r/pdfrag-go/internal/rag"
)

// Backend enumerates the supported LLM inference providers.
type Backend string

const (
	// BackendOllama selects a locally running Ollama instance.
	BackendOllama Backend = "ollama"
	// BackendOpenAI selects the OpenAI API.
	BackendOpenAI Backend = "openai"
	// BackendAzure selects Azure OpenAI Service.
	BackendAzure Backend = "azure"
	// BackendArk selects the Volcano Engine Ark model runtime.
	BackendArk Backend = "ark"
	// BackendGemini selects Google Gemini via AI Studio.
	BackendGemini Backend = "gemini"
)

// ProviderOllama holds Ollama settings.
type ProviderOllama struct {
	// Host is the Ollama API endpoint (OLLAMA_HOST).
	Host string
	// Model is the Ollama model name (OLLAMA_MODEL).
	Model string
}

// ProviderOpenAI holds OpenAI settings.
type ProviderOpenAI struct {
	// APIKey is the OpenAI API key (OPENAI_API_KEY).
	APIKey string
	// Model is the OpenAI model name (OPENAI_MODEL).
	Model string
	// BaseURL overrides the API endpoint for OpenAI-compatible servers (OPENAI_BASE_URL).
	BaseURL string
}

// ProviderAzureOpenAI holds Azure OpenAI settings.
type ProviderAzureOpenAI struct {
	// APIKey is the Azure OpenAI key (AZURE_OPENAI_API_KEY).
	APIKey string
	// Endpoint is the resource endpoint (AZURE_OPENAI_ENDPOINT).
	Endpoint string
	// Deployment is the deployment name (AZURE_OPENAI_DEPLOYMENT).
	Deployment string
	// APIVersion is the REST API version (AZURE_OPENAI_API_VERSION).
	APIVersion string
}

// ProviderArk holds Volcano Engine Ark settings.
type ProviderArk struct {
	// APIKey is the Ark API key (ARK_API_KEY).
	APIKey string
	// Model is the Ark endpoint/model ID (ARK_MODEL).
	Model string
	// BaseURL overrides the regional endpoint (ARK_BASE_URL).
	BaseURL string
}

// ProviderGemini holds Google Gemini settings.
type ProviderGemini struct {
	// APIKey is the Google API key (GOOGLE_API_KEY).
	APIKey string
	// Model is the Gemini model name (GEMINI_MODEL).
	Model string
}

// SharedTuning holds generation parameters applied to every backend that
// supports them.
type SharedTuning struct {
	// MaxTokens caps the number of tokens the model may generate per response.
	MaxTokens int
	// Temperature controls response randomness, 0 to 2.
	Temperature float32
}

// Config holds all provider-level configuration resolved from environment
// variables or explicit caller-supplied values. Only the block matching
// Backend is consulted.
type Config struct {
	Backend     Backend
	Ollama      ProviderOllama
	OpenAI      ProviderOpenAI
	AzureOpenAI ProviderAzureOpenAI
	Ark         ProviderArk
	Gemini      ProviderGemini
	Tuning      SharedTuning
}

// Validate checks that the selected backend has every required setting and
// that the tuning values are usable. Errors wrap rag.ErrConfiguration and
// name the env var to set.
func (c *Config) Validate() error {
	var missing []string
	require := func(val, env string) {
		if strings.TrimSpace(val) == "" {
			missing = append(missing, env)
		}
	}

	switch c.Backend {
	case BackendOllama:
		require(c.Ollama.Model, "OLLAMA_MODEL")
	case BackendOpenAI:
		require(c.OpenAI.APIKey, "OPENAI_API_KEY")
		require(c.OpenAI.Model, "OPENAI_MODEL")
	case BackendAzure:
		require(c.AzureOpenAI.APIKey, "AZURE_OPENAI_API_KEY")
		require(c.AzureOpenAI.Endpoint, "AZURE_OPENAI_ENDPOINT")
		require(c.AzureOpenAI.Deployment, "AZURE_OPENAI_DEPLOYMENT")
	case BackendArk:
		require(c.Ark.APIKey, "ARK_API_KEY")
		require(c.Ark.Model, "ARK_MODEL")
	case BackendGemini:
		require(c.Gemini.APIKey, "GOOGLE_API_KEY")
		require(c.Gemini.Model, "GEMINI_MODEL")
	default:
		return fmt.Errorf("provider: %w: unknown backend %q: valid values: ollama, openai, azure, ark, gemini", rag.ErrConfiguration, c.Backend)
	}

	if len(missing) > 0 {
		return fmt.Errorf("provider: %w: %s backend requires %s", rag.ErrConfiguration, c.Backend, strings.Join(missing, ", "))
	}
	if c.Tuning.MaxTokens <= 0 {
		return fmt.Errorf("provider: %w: MODEL_MAX_TOKENS must be positive, got %d", rag.ErrConfiguration, c.Tuning.MaxTokens)
	}
	if c.Tuning.Temperature < 0 || c.Tuning.Temperature > 2 {
		return fmt.Errorf("provider: %w: MODEL_TEMPERATURE must be within [0, 2], got %g", rag.ErrConfiguration, c.Tuning.Temperature)
	}
	return nil
}
