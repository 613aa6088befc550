package config

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/54b3r/pdfrag-go/internal/rag"
)

var quietLog = slog.New(slog.NewTextHandler(io.Discard, nil))

// clearEnv unsets keys for the duration of the test.
func clearEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoad_ExplicitMissingFile(t *testing.T) {
	t.Parallel()

	path, err := Load("/nonexistent/path/config.yaml", quietLog)
	if err == nil {
		t.Fatal("expected error for a missing explicit config file")
	}
	if path != "" {
		t.Errorf("expected empty path, got %q", path)
	}
}

func TestLoad_NoFileFound(t *testing.T) {
	clearEnv(t, "PDFRAG_CONFIG")
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())

	path, err := Load("", quietLog)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if path != "" {
		t.Errorf("expected empty path, got %q", path)
	}
}

func TestLoad_ValidFile(t *testing.T) {
	cfgPath := writeConfig(t, `
model:
  provider: azure
  max_tokens: 8192
  temperature: 0.3
  azure:
    endpoint: https://my-resource.openai.azure.com
    deployment: gpt-4o
    api_version: "2025-04-01-preview"
embedding:
  provider: ollama
  model: nomic-embed-text
  batch_size: 32
index:
  backend: qdrant
qdrant:
  host: qdrant.internal
  port: 6334
  collection: papers
chunking:
  size: 800
  top_k: 7
fetch:
  timeout: 30s
  max_bytes: 1048576
server:
  port: 9090
  rate_limit: 2.5
logging:
  level: debug
  format: text
journal:
  db_path: /var/lib/pdfrag/journal.db
`)

	checks := map[string]string{
		"MODEL_PROVIDER":           "azure",
		"MODEL_MAX_TOKENS":         "8192",
		"MODEL_TEMPERATURE":        "0.3",
		"AZURE_OPENAI_ENDPOINT":    "https://my-resource.openai.azure.com",
		"AZURE_OPENAI_DEPLOYMENT":  "gpt-4o",
		"AZURE_OPENAI_API_VERSION": "2025-04-01-preview",
		"EMBEDDING_PROVIDER":       "ollama",
		"EMBEDDING_MODEL":          "nomic-embed-text",
		"EMBEDDING_BATCH_SIZE":     "32",
		"INDEX_BACKEND":            "qdrant",
		"QDRANT_HOST":              "qdrant.internal",
		"QDRANT_PORT":              "6334",
		"QDRANT_COLLECTION":        "papers",
		"CHUNK_SIZE":               "800",
		"QUERY_TOP_K":              "7",
		"FETCH_TIMEOUT":            "30s",
		"FETCH_MAX_BYTES":          "1048576",
		"PDFRAG_PORT":              "9090",
		"PDFRAG_RATE_LIMIT":        "2.5",
		"LOG_LEVEL":                "debug",
		"LOG_FORMAT":               "text",
		"PDFRAG_JOURNAL_DB":        "/var/lib/pdfrag/journal.db",
	}
	keys := make([]string, 0, len(checks))
	for k := range checks {
		keys = append(keys, k)
	}
	clearEnv(t, keys...)

	loaded, err := Load(cfgPath, quietLog)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded != cfgPath {
		t.Errorf("loaded path: got %q, want %q", loaded, cfgPath)
	}
	for k, want := range checks {
		if got := os.Getenv(k); got != want {
			t.Errorf("%s: got %q, want %q", k, got, want)
		}
	}
}

func TestLoad_ExplicitZeroAndFalse(t *testing.T) {
	cfgPath := writeConfig(t, `
chunking:
  overlap: 0
summary:
  enabled: false
pdf:
  pdftotext: false
`)
	clearEnv(t, "CHUNK_OVERLAP", "SUMMARY_ENABLED", "PDF_PDFTOTEXT")

	if _, err := Load(cfgPath, quietLog); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	for k, want := range map[string]string{
		"CHUNK_OVERLAP":   "0",
		"SUMMARY_ENABLED": "false",
		"PDF_PDFTOTEXT":   "false",
	} {
		if got := os.Getenv(k); got != want {
			t.Errorf("%s: got %q, want %q", k, got, want)
		}
	}
}

func TestLoad_ArkAndGemini(t *testing.T) {
	cfgPath := writeConfig(t, `
model:
  provider: ark
  ark:
    api_key: ark-secret
    model: doubao-pro
  gemini:
    api_key: g-secret
    model: gemini-2.0-flash
`)
	clearEnv(t, "MODEL_PROVIDER", "ARK_API_KEY", "ARK_MODEL", "GOOGLE_API_KEY", "GEMINI_MODEL")

	if _, err := Load(cfgPath, quietLog); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	for k, want := range map[string]string{
		"MODEL_PROVIDER": "ark",
		"ARK_API_KEY":    "ark-secret",
		"ARK_MODEL":      "doubao-pro",
		"GOOGLE_API_KEY": "g-secret",
		"GEMINI_MODEL":   "gemini-2.0-flash",
	} {
		if got := os.Getenv(k); got != want {
			t.Errorf("%s: got %q, want %q", k, got, want)
		}
	}
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	cfgPath := writeConfig(t, `
model:
  provider: ollama
`)

	// Set env var BEFORE loading; it must not be overwritten.
	t.Setenv("MODEL_PROVIDER", "azure")

	if _, err := Load(cfgPath, quietLog); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got := os.Getenv("MODEL_PROVIDER"); got != "azure" {
		t.Errorf("MODEL_PROVIDER: expected env override %q, got %q", "azure", got)
	}
}

func TestLoad_ConfigEnvVar(t *testing.T) {
	cfgPath := writeConfig(t, `
index:
  backend: memory
`)
	t.Setenv("PDFRAG_CONFIG", cfgPath)
	clearEnv(t, "INDEX_BACKEND")

	loaded, err := Load("", quietLog)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded != cfgPath {
		t.Errorf("loaded path: got %q, want %q", loaded, cfgPath)
	}
	if got := os.Getenv("INDEX_BACKEND"); got != "memory" {
		t.Errorf("INDEX_BACKEND: got %q", got)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	cfgPath := writeConfig(t, "{{invalid yaml")

	if _, err := Load(cfgPath, quietLog); err == nil {
		t.Fatal("expected error for invalid YAML")
	}
}

func TestFloat32Str(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   float32
		want string
	}{
		{0.0, ""},
		{0.2, "0.2"},
		{0.3, "0.3"},
		{1.0, "1"},
	}
	for _, tt := range tests {
		if got := float32Str(tt.in); got != tt.want {
			t.Errorf("float32Str(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPtrStr(t *testing.T) {
	t.Parallel()
	zero, no := 0, false
	if got := intPtrStr(nil); got != "" {
		t.Errorf("intPtrStr(nil) = %q", got)
	}
	if got := intPtrStr(&zero); got != "0" {
		t.Errorf("intPtrStr(&0) = %q", got)
	}
	if got := boolPtrStr(nil); got != "" {
		t.Errorf("boolPtrStr(nil) = %q", got)
	}
	if got := boolPtrStr(&no); got != "false" {
		t.Errorf("boolPtrStr(&false) = %q", got)
	}
	if got := float64Str(2.5); got != "2.5" {
		t.Errorf("float64Str(2.5) = %q", got)
	}
	if got := int64Str(0); got != "" {
		t.Errorf("int64Str(0) = %q", got)
	}
}

var settingsKeys = []string{
	"INDEX_BACKEND", "QDRANT_HOST", "QDRANT_PORT", "QDRANT_COLLECTION", "QDRANT_API_KEY", "QDRANT_TLS",
	"CHUNK_SIZE", "CHUNK_OVERLAP", "QUERY_TOP_K", "EMBEDDING_BATCH_SIZE", "EMBEDDING_CONCURRENCY",
	"SUMMARY_ENABLED", "SUMMARY_MAX_TOKENS", "SUMMARY_INSTRUCTION",
	"FETCH_TIMEOUT", "FETCH_MAX_BYTES", "FETCH_USER_AGENT", "PDF_PDFTOTEXT",
	"PDFRAG_HOST", "PDFRAG_PORT", "PDFRAG_API_KEY", "PDFRAG_RATE_LIMIT", "PDFRAG_RATE_BURST",
	"PDFRAG_JOURNAL_DB",
}

func TestFromEnv_Defaults(t *testing.T) {
	clearEnv(t, settingsKeys...)

	s, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if s.IndexBackend != BackendMemory {
		t.Errorf("IndexBackend = %q", s.IndexBackend)
	}
	if s.ChunkSize != 1000 || s.ChunkOverlap != 100 || s.TopK != 5 {
		t.Errorf("chunking = %d/%d top_k %d", s.ChunkSize, s.ChunkOverlap, s.TopK)
	}
	if !s.SummaryEnabled || s.SummaryMaxTokens != 100_000 {
		t.Errorf("summary = %v/%d", s.SummaryEnabled, s.SummaryMaxTokens)
	}
	if s.FetchTimeout != time.Minute || s.FetchMaxBytes != 100<<20 {
		t.Errorf("fetch = %v/%d", s.FetchTimeout, s.FetchMaxBytes)
	}
	if !s.Pdftotext {
		t.Error("pdftotext fallback should default on")
	}
	if s.ServerHost != "127.0.0.1" || s.ServerPort != 8080 {
		t.Errorf("server = %s:%d", s.ServerHost, s.ServerPort)
	}
	if !s.JournalEnabled() {
		t.Error("journal should default on")
	}
}

func TestFromEnv_Overrides(t *testing.T) {
	clearEnv(t, settingsKeys...)
	t.Setenv("INDEX_BACKEND", "Qdrant")
	t.Setenv("QDRANT_TLS", "true")
	t.Setenv("CHUNK_OVERLAP", "0")
	t.Setenv("SUMMARY_ENABLED", "false")
	t.Setenv("FETCH_TIMEOUT", "5s")
	t.Setenv("PDFRAG_RATE_LIMIT", "0.5")
	t.Setenv("PDFRAG_JOURNAL_DB", "DISABLED")

	s, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if s.IndexBackend != BackendQdrant || !s.QdrantTLS {
		t.Errorf("qdrant = %q tls=%v", s.IndexBackend, s.QdrantTLS)
	}
	if s.ChunkOverlap != 0 {
		t.Errorf("ChunkOverlap = %d", s.ChunkOverlap)
	}
	if s.SummaryEnabled {
		t.Error("SummaryEnabled should be false")
	}
	if s.FetchTimeout != 5*time.Second {
		t.Errorf("FetchTimeout = %v", s.FetchTimeout)
	}
	if s.RateLimit != 0.5 {
		t.Errorf("RateLimit = %v", s.RateLimit)
	}
	if s.JournalEnabled() {
		t.Error("journal should be disabled")
	}
}

func TestFromEnv_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"unknown backend", "INDEX_BACKEND", "pinecone"},
		{"non-numeric size", "CHUNK_SIZE", "big"},
		{"zero size", "CHUNK_SIZE", "0"},
		{"overlap too large", "CHUNK_OVERLAP", "1000"},
		{"negative overlap", "CHUNK_OVERLAP", "-1"},
		{"zero top k", "QUERY_TOP_K", "0"},
		{"bad bool", "SUMMARY_ENABLED", "maybe"},
		{"bad duration", "FETCH_TIMEOUT", "soon"},
		{"zero max bytes", "FETCH_MAX_BYTES", "0"},
		{"bad rate", "PDFRAG_RATE_LIMIT", "fast"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t, settingsKeys...)
			t.Setenv(tt.key, tt.val)

			_, err := FromEnv()
			if err == nil {
				t.Fatalf("expected error for %s=%q", tt.key, tt.val)
			}
			if !errors.Is(err, rag.ErrConfiguration) {
				t.Errorf("error should wrap ErrConfiguration: %v", err)
			}
		})
	}
}
