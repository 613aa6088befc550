// Package config provides YAML-based configuration for pdfrag.
// Configuration is loaded with a layered precedence: defaults → YAML file → env vars.
// Environment variables always win, so the file only fills gaps.
//
// File search order:
//  1. --config CLI flag (explicit path)
//  2. PDFRAG_CONFIG environment variable
//  3. ~/.pdfrag/config.yaml
//  4. ./pdfrag.yaml
//
// If no file is found the process runs entirely from env vars. Runtime
// settings are then read back from the environment with [FromEnv].
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the top-level YAML configuration structure.
// Field names use yaml tags that mirror the env var naming (lowercase, underscored).
type Config struct {
	// Model configures the chat model used for document summaries.
	Model ModelConfig `yaml:"model"`

	// Embedding configures the embedding provider.
	Embedding EmbeddingConfig `yaml:"embedding"`

	// Index selects and tunes the vector index.
	Index IndexConfig `yaml:"index"`

	// Qdrant configures the Qdrant connection when index.backend is qdrant.
	Qdrant QdrantConfig `yaml:"qdrant"`

	// Chunking configures how extracted text is split.
	Chunking ChunkingConfig `yaml:"chunking"`

	// Summary configures per-document summary generation.
	Summary SummaryConfig `yaml:"summary"`

	// Fetch configures remote PDF downloads.
	Fetch FetchConfig `yaml:"fetch"`

	// PDF configures text extraction.
	PDF PDFConfig `yaml:"pdf"`

	// Server configures the streamable HTTP transport.
	Server ServerConfig `yaml:"server"`

	// Logging configures structured logging.
	Logging LoggingConfig `yaml:"logging"`

	// Journal configures the SQLite ingestion journal.
	Journal JournalConfig `yaml:"journal"`

	// Tracing configures Langfuse tracing of summary calls.
	Tracing TracingConfig `yaml:"tracing"`
}

// ModelConfig holds chat model settings.
type ModelConfig struct {
	// Provider selects the backend: ollama, openai, azure, ark, gemini.
	Provider string `yaml:"provider"`

	// MaxTokens is the maximum number of tokens in a summary.
	MaxTokens int `yaml:"max_tokens"`

	// Temperature controls response randomness (0.0–1.0).
	Temperature float32 `yaml:"temperature"`

	Ollama OllamaConfig `yaml:"ollama"`
	OpenAI OpenAIConfig `yaml:"openai"`
	Azure  AzureConfig  `yaml:"azure"`
	Ark    ArkConfig    `yaml:"ark"`
	Gemini GeminiConfig `yaml:"gemini"`
}

// OllamaConfig holds Ollama provider settings.
type OllamaConfig struct {
	Host  string `yaml:"host"`
	Model string `yaml:"model"`
}

// OpenAIConfig holds OpenAI provider settings.
type OpenAIConfig struct {
	// APIKey is the OpenAI API key. Prefer env var OPENAI_API_KEY.
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`
}

// AzureConfig holds Azure OpenAI provider settings.
type AzureConfig struct {
	// APIKey is the Azure OpenAI API key. Prefer env var AZURE_OPENAI_API_KEY.
	APIKey     string `yaml:"api_key"`
	Endpoint   string `yaml:"endpoint"`
	Deployment string `yaml:"deployment"`
	APIVersion string `yaml:"api_version"`
}

// ArkConfig holds Volcengine Ark provider settings.
type ArkConfig struct {
	// APIKey is the Ark API key. Prefer env var ARK_API_KEY.
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`
}

// GeminiConfig holds Google Gemini provider settings.
type GeminiConfig struct {
	// APIKey is the Google API key. Prefer env var GOOGLE_API_KEY.
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	// Provider selects the embedding backend (ollama, openai, azure, gemini).
	// Inherits model.provider when empty.
	Provider   string `yaml:"provider"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
	// APIKey is the embedding API key. Prefer env var EMBEDDING_API_KEY.
	APIKey   string `yaml:"api_key"`
	Endpoint string `yaml:"endpoint"`
	// BatchSize is the number of texts per embedding request.
	BatchSize int `yaml:"batch_size"`
	// Concurrency is the number of embedding requests in flight.
	Concurrency int `yaml:"concurrency"`
}

// IndexConfig selects the vector index implementation.
type IndexConfig struct {
	// Backend is memory (default) or qdrant.
	Backend string `yaml:"backend"`
}

// QdrantConfig holds Qdrant settings.
type QdrantConfig struct {
	Host string `yaml:"host"`
	// Port is the Qdrant gRPC port.
	Port int `yaml:"port"`
	// Collection is the base collection name; each rebuild writes a new
	// generation derived from it.
	Collection string `yaml:"collection"`
	// APIKey is the Qdrant API key. Prefer env var QDRANT_API_KEY.
	APIKey string `yaml:"api_key"`
	TLS    bool   `yaml:"tls"`
}

// ChunkingConfig holds chunker settings.
type ChunkingConfig struct {
	Size int `yaml:"size"`
	// Overlap is a pointer so an explicit 0 can be told apart from unset.
	Overlap *int `yaml:"overlap"`
	// TopK is the default number of neighbours per query.
	TopK int `yaml:"top_k"`
}

// SummaryConfig holds summary generation settings.
type SummaryConfig struct {
	// Enabled is a pointer so an explicit false can be told apart from unset.
	Enabled *bool `yaml:"enabled"`
	// MaxTokens bounds the estimated size of the summary prompt.
	MaxTokens int `yaml:"max_tokens"`
	// Instruction replaces the default summary instruction.
	Instruction string `yaml:"instruction"`
}

// FetchConfig holds remote download settings.
type FetchConfig struct {
	// Timeout is a Go duration string such as "60s".
	Timeout   string `yaml:"timeout"`
	MaxBytes  int64  `yaml:"max_bytes"`
	UserAgent string `yaml:"user_agent"`
}

// PDFConfig holds extraction settings.
type PDFConfig struct {
	// Pdftotext enables the poppler fallback when the binary is on PATH.
	// Pointer so an explicit false can be told apart from unset.
	Pdftotext *bool `yaml:"pdftotext"`
}

// ServerConfig holds HTTP transport settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	// APIKey is the Bearer token for /mcp. Prefer env var PDFRAG_API_KEY.
	APIKey    string  `yaml:"api_key"`
	RateLimit float64 `yaml:"rate_limit"`
	RateBurst int     `yaml:"rate_burst"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error.
	Level string `yaml:"level"`
	// Format is the log output format: json, text.
	Format string `yaml:"format"`
}

// JournalConfig holds ingestion journal settings.
type JournalConfig struct {
	// DBPath is the SQLite database path. Set to "disabled" to disable.
	DBPath string `yaml:"db_path"`
}

// TracingConfig holds Langfuse tracing settings.
type TracingConfig struct {
	// PublicKey is the Langfuse public key. Prefer env var LANGFUSE_PUBLIC_KEY.
	PublicKey string `yaml:"public_key"`
	// SecretKey is the Langfuse secret key. Prefer env var LANGFUSE_SECRET_KEY.
	SecretKey string `yaml:"secret_key"`
	Host      string `yaml:"host"`
}

// envMapping maps YAML config fields to their env var names. Only
// non-empty YAML values are applied; env vars always take precedence.
var envMapping = []struct {
	envKey string
	value  func(*Config) string
}{
	{"MODEL_PROVIDER", func(c *Config) string { return c.Model.Provider }},
	{"MODEL_MAX_TOKENS", func(c *Config) string { return intStr(c.Model.MaxTokens) }},
	{"MODEL_TEMPERATURE", func(c *Config) string { return float32Str(c.Model.Temperature) }},
	{"OLLAMA_HOST", func(c *Config) string { return c.Model.Ollama.Host }},
	{"OLLAMA_MODEL", func(c *Config) string { return c.Model.Ollama.Model }},
	{"OPENAI_API_KEY", func(c *Config) string { return c.Model.OpenAI.APIKey }},
	{"OPENAI_MODEL", func(c *Config) string { return c.Model.OpenAI.Model }},
	{"OPENAI_BASE_URL", func(c *Config) string { return c.Model.OpenAI.BaseURL }},
	{"AZURE_OPENAI_API_KEY", func(c *Config) string { return c.Model.Azure.APIKey }},
	{"AZURE_OPENAI_ENDPOINT", func(c *Config) string { return c.Model.Azure.Endpoint }},
	{"AZURE_OPENAI_DEPLOYMENT", func(c *Config) string { return c.Model.Azure.Deployment }},
	{"AZURE_OPENAI_API_VERSION", func(c *Config) string { return c.Model.Azure.APIVersion }},
	{"ARK_API_KEY", func(c *Config) string { return c.Model.Ark.APIKey }},
	{"ARK_MODEL", func(c *Config) string { return c.Model.Ark.Model }},
	{"ARK_BASE_URL", func(c *Config) string { return c.Model.Ark.BaseURL }},
	{"GOOGLE_API_KEY", func(c *Config) string { return c.Model.Gemini.APIKey }},
	{"GEMINI_MODEL", func(c *Config) string { return c.Model.Gemini.Model }},
	{"EMBEDDING_PROVIDER", func(c *Config) string { return c.Embedding.Provider }},
	{"EMBEDDING_MODEL", func(c *Config) string { return c.Embedding.Model }},
	{"EMBEDDING_DIMENSIONS", func(c *Config) string { return intStr(c.Embedding.Dimensions) }},
	{"EMBEDDING_API_KEY", func(c *Config) string { return c.Embedding.APIKey }},
	{"EMBEDDING_ENDPOINT", func(c *Config) string { return c.Embedding.Endpoint }},
	{"EMBEDDING_BATCH_SIZE", func(c *Config) string { return intStr(c.Embedding.BatchSize) }},
	{"EMBEDDING_CONCURRENCY", func(c *Config) string { return intStr(c.Embedding.Concurrency) }},
	{"INDEX_BACKEND", func(c *Config) string { return c.Index.Backend }},
	{"QDRANT_HOST", func(c *Config) string { return c.Qdrant.Host }},
	{"QDRANT_PORT", func(c *Config) string { return intStr(c.Qdrant.Port) }},
	{"QDRANT_COLLECTION", func(c *Config) string { return c.Qdrant.Collection }},
	{"QDRANT_API_KEY", func(c *Config) string { return c.Qdrant.APIKey }},
	{"QDRANT_TLS", func(c *Config) string { return boolStr(c.Qdrant.TLS) }},
	{"CHUNK_SIZE", func(c *Config) string { return intStr(c.Chunking.Size) }},
	{"CHUNK_OVERLAP", func(c *Config) string { return intPtrStr(c.Chunking.Overlap) }},
	{"QUERY_TOP_K", func(c *Config) string { return intStr(c.Chunking.TopK) }},
	{"SUMMARY_ENABLED", func(c *Config) string { return boolPtrStr(c.Summary.Enabled) }},
	{"SUMMARY_MAX_TOKENS", func(c *Config) string { return intStr(c.Summary.MaxTokens) }},
	{"SUMMARY_INSTRUCTION", func(c *Config) string { return c.Summary.Instruction }},
	{"FETCH_TIMEOUT", func(c *Config) string { return c.Fetch.Timeout }},
	{"FETCH_MAX_BYTES", func(c *Config) string { return int64Str(c.Fetch.MaxBytes) }},
	{"FETCH_USER_AGENT", func(c *Config) string { return c.Fetch.UserAgent }},
	{"PDF_PDFTOTEXT", func(c *Config) string { return boolPtrStr(c.PDF.Pdftotext) }},
	{"PDFRAG_HOST", func(c *Config) string { return c.Server.Host }},
	{"PDFRAG_PORT", func(c *Config) string { return intStr(c.Server.Port) }},
	{"PDFRAG_API_KEY", func(c *Config) string { return c.Server.APIKey }},
	{"PDFRAG_RATE_LIMIT", func(c *Config) string { return float64Str(c.Server.RateLimit) }},
	{"PDFRAG_RATE_BURST", func(c *Config) string { return intStr(c.Server.RateBurst) }},
	{"LOG_LEVEL", func(c *Config) string { return c.Logging.Level }},
	{"LOG_FORMAT", func(c *Config) string { return c.Logging.Format }},
	{"PDFRAG_JOURNAL_DB", func(c *Config) string { return c.Journal.DBPath }},
	{"LANGFUSE_PUBLIC_KEY", func(c *Config) string { return c.Tracing.PublicKey }},
	{"LANGFUSE_SECRET_KEY", func(c *Config) string { return c.Tracing.SecretKey }},
	{"LANGFUSE_HOST", func(c *Config) string { return c.Tracing.Host }},
}

// Load reads a YAML config file and applies non-empty values as environment
// variables. Existing env vars are never overwritten (env always wins).
// Returns the path that was loaded, or empty string if no file was found.
func Load(explicitPath string, log *slog.Logger) (string, error) {
	path, err := resolveConfigPath(explicitPath)
	if err != nil {
		return "", err
	}
	if path == "" {
		log.Debug("config: no YAML config file found, using env vars only")
		return "", nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("config: failed to read %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return "", fmt.Errorf("config: failed to parse %s: %w", path, err)
	}

	applied := 0
	for _, m := range envMapping {
		yamlVal := m.value(&cfg)
		if yamlVal == "" {
			continue
		}
		if os.Getenv(m.envKey) != "" {
			continue // env var already set, do not override
		}
		if err := os.Setenv(m.envKey, yamlVal); err != nil {
			return "", fmt.Errorf("config: set %s: %w", m.envKey, err)
		}
		applied++
	}

	log.Info("config: loaded YAML config",
		slog.String("path", path),
		slog.Int("keys_applied", applied),
	)

	return path, nil
}

// resolveConfigPath returns the first config file path that exists. An
// explicit path that does not exist is an error; the implicit locations
// are optional.
func resolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config: %s: %w", explicit, err)
		}
		return explicit, nil
	}

	if envPath := os.Getenv("PDFRAG_CONFIG"); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath, nil
		}
	}

	if home, err := os.UserHomeDir(); err == nil {
		p := filepath.Join(home, ".pdfrag", "config.yaml")
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	if _, err := os.Stat("pdfrag.yaml"); err == nil {
		return "pdfrag.yaml", nil
	}

	return "", nil
}

// intStr converts an int to string, returning "" for zero values.
func intStr(v int) string {
	if v == 0 {
		return ""
	}
	return strconv.Itoa(v)
}

// int64Str converts an int64 to string, returning "" for zero values.
func int64Str(v int64) string {
	if v == 0 {
		return ""
	}
	return strconv.FormatInt(v, 10)
}

// intPtrStr renders a set int, including zero.
func intPtrStr(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

// float32Str converts a float32 to string, returning "" for zero values.
func float32Str(v float32) string {
	if v == 0 {
		return ""
	}
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.4f", v), "0"), ".")
}

// float64Str converts a float64 to string, returning "" for zero values.
func float64Str(v float64) string {
	if v == 0 {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// boolStr converts a bool to string, returning "" for false.
func boolStr(v bool) string {
	if !v {
		return ""
	}
	return "true"
}

// boolPtrStr renders a set bool, including false.
func boolPtrStr(v *bool) string {
	if v == nil {
		return ""
	}
	return strconv.FormatBool(*v)
}
