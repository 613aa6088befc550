package provider

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/54b3r/pdfrag-go/internal/rag"
)

// validConfigs holds one complete configuration per backend.
func validConfigs() map[Backend]Config {
	tuning := SharedTuning{MaxTokens: 1024, Temperature: 0.2}
	return map[Backend]Config{
		BackendOllama: {Backend: BackendOllama, Tuning: tuning,
			Ollama: ProviderOllama{Host: "http://localhost:11434", Model: "llama3"}},
		BackendOpenAI: {Backend: BackendOpenAI, Tuning: tuning,
			OpenAI: ProviderOpenAI{APIKey: "sk-test", Model: "gpt-4o"}},
		BackendAzure: {Backend: BackendAzure, Tuning: tuning,
			AzureOpenAI: ProviderAzureOpenAI{APIKey: "key", Endpoint: "https://my.openai.azure.com", Deployment: "gpt-4.1", APIVersion: "2024-02-01"}},
		BackendArk: {Backend: BackendArk, Tuning: tuning,
			Ark: ProviderArk{APIKey: "ark-key", Model: "ep-20240101-abcde"}},
		BackendGemini: {Backend: BackendGemini, Tuning: tuning,
			Gemini: ProviderGemini{APIKey: "AIza-test", Model: "gemini-1.5-pro"}},
	}
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	for backend, cfg := range validConfigs() {
		if err := cfg.Validate(); err != nil {
			t.Errorf("%s: unexpected error: %v", backend, err)
		}
	}

	tests := []struct {
		backend Backend
		mutate  func(*Config)
		wantEnv string
	}{
		{BackendOllama, func(c *Config) { c.Ollama.Model = "" }, "OLLAMA_MODEL"},
		{BackendOpenAI, func(c *Config) { c.OpenAI.APIKey = "" }, "OPENAI_API_KEY"},
		{BackendOpenAI, func(c *Config) { c.OpenAI.Model = " " }, "OPENAI_MODEL"},
		{BackendAzure, func(c *Config) { c.AzureOpenAI.APIKey = "" }, "AZURE_OPENAI_API_KEY"},
		{BackendAzure, func(c *Config) { c.AzureOpenAI.Endpoint = "" }, "AZURE_OPENAI_ENDPOINT"},
		{BackendAzure, func(c *Config) { c.AzureOpenAI.Deployment = "" }, "AZURE_OPENAI_DEPLOYMENT"},
		{BackendArk, func(c *Config) { c.Ark.APIKey = "" }, "ARK_API_KEY"},
		{BackendArk, func(c *Config) { c.Ark.Model = "" }, "ARK_MODEL"},
		{BackendGemini, func(c *Config) { c.Gemini.APIKey = "" }, "GOOGLE_API_KEY"},
		{BackendGemini, func(c *Config) { c.Gemini.Model = "" }, "GEMINI_MODEL"},
		{BackendOllama, func(c *Config) { c.Tuning.MaxTokens = 0 }, "MODEL_MAX_TOKENS"},
		{BackendOpenAI, func(c *Config) { c.Tuning.Temperature = 2.5 }, "MODEL_TEMPERATURE"},
		{BackendOllama, func(c *Config) { c.Backend = "bedrock" }, "unknown backend"},
	}
	for _, tc := range tests {
		t.Run(string(tc.backend)+"/"+tc.wantEnv, func(t *testing.T) {
			t.Parallel()
			cfg := validConfigs()[tc.backend]
			tc.mutate(&cfg)

			err := cfg.Validate()
			if !errors.Is(err, rag.ErrConfiguration) {
				t.Fatalf("Validate() = %v, want rag.ErrConfiguration", err)
			}
			if !strings.Contains(err.Error(), tc.wantEnv) {
				t.Errorf("Validate() = %q, want it to name %s", err, tc.wantEnv)
			}
		})
	}
}

func TestIsAzureReasoningModel(t *testing.T) {
	t.Parallel()

	reasoning := []string{"o1", "o1-preview", "o3-mini", "o3-pro", "o4-mini", "O1-PREVIEW", "codex-mini"}
	standard := []string{"gpt-4o", "gpt-4.1", "gpt-35-turbo", "gpt-5.2-codex", "summaries-prod", ""}

	for _, d := range reasoning {
		if !isAzureReasoningModel(d) {
			t.Errorf("isAzureReasoningModel(%q) = false, want true", d)
		}
	}
	for _, d := range standard {
		if isAzureReasoningModel(d) {
			t.Errorf("isAzureReasoningModel(%q) = true, want false", d)
		}
	}
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("MODEL_PROVIDER", "openai")
	t.Setenv("OPENAI_API_KEY", "sk-env")
	t.Setenv("OPENAI_MODEL", "")
	t.Setenv("MODEL_MAX_TOKENS", "512")
	t.Setenv("MODEL_TEMPERATURE", "not-a-number")

	cfg := ConfigFromEnv()
	if cfg.Backend != BackendOpenAI || cfg.OpenAI.APIKey != "sk-env" {
		t.Errorf("backend/key = %q/%q", cfg.Backend, cfg.OpenAI.APIKey)
	}
	if cfg.OpenAI.Model != "gpt-4o" {
		t.Errorf("OpenAI.Model default = %q, want gpt-4o", cfg.OpenAI.Model)
	}
	if cfg.Tuning.MaxTokens != 512 {
		t.Errorf("Tuning.MaxTokens = %d, want 512", cfg.Tuning.MaxTokens)
	}
	if cfg.Tuning.Temperature != 0.2 {
		t.Errorf("Tuning.Temperature = %v, want fallback 0.2", cfg.Tuning.Temperature)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	t.Parallel()
	_, err := New(context.Background(), &Config{Backend: BackendGemini})
	if !errors.Is(err, rag.ErrConfiguration) || !strings.Contains(err.Error(), "GOOGLE_API_KEY") {
		t.Fatalf("want GOOGLE_API_KEY configuration error, got %v", err)
	}
}
