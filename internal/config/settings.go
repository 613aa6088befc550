package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/54b3r/pdfrag-go/internal/rag"
)

// Index backends accepted by INDEX_BACKEND.
const (
	BackendMemory = "memory"
	BackendQdrant = "qdrant"
)

// JournalDisabled turns the ingestion journal off when used as
// PDFRAG_JOURNAL_DB.
const JournalDisabled = "disabled"

// Settings is the resolved runtime configuration read from the environment
// after [Load] has projected the YAML file onto it. Provider credentials are
// not included; the provider and embedder packages read those directly.
type Settings struct {
	// IndexBackend is BackendMemory or BackendQdrant.
	IndexBackend string

	QdrantHost       string
	QdrantPort       int
	QdrantCollection string
	QdrantAPIKey     string
	QdrantTLS        bool

	ChunkSize    int
	ChunkOverlap int
	TopK         int

	EmbedBatchSize   int
	EmbedConcurrency int

	SummaryEnabled     bool
	SummaryMaxTokens   int
	SummaryInstruction string

	FetchTimeout   time.Duration
	FetchMaxBytes  int64
	FetchUserAgent string

	// Pdftotext enables the poppler fallback extractor.
	Pdftotext bool

	ServerHost string
	ServerPort int
	APIKey     string
	RateLimit  float64
	RateBurst  int

	// JournalDB is the journal path; empty selects the default location and
	// JournalDisabled turns the journal off.
	JournalDB string
}

// FromEnv resolves Settings from environment variables, applying defaults.
// Malformed values report rag.ErrConfiguration naming the variable.
func FromEnv() (*Settings, error) {
	p := &envParser{}
	s := &Settings{
		IndexBackend: strings.ToLower(p.str("INDEX_BACKEND", BackendMemory)),

		QdrantHost:       p.str("QDRANT_HOST", "localhost"),
		QdrantPort:       p.int("QDRANT_PORT", 6334),
		QdrantCollection: p.str("QDRANT_COLLECTION", "pdfrag"),
		QdrantAPIKey:     os.Getenv("QDRANT_API_KEY"),
		QdrantTLS:        p.bool("QDRANT_TLS", false),

		ChunkSize:    p.int("CHUNK_SIZE", 1000),
		ChunkOverlap: p.int("CHUNK_OVERLAP", 100),
		TopK:         p.int("QUERY_TOP_K", 5),

		EmbedBatchSize:   p.int("EMBEDDING_BATCH_SIZE", 64),
		EmbedConcurrency: p.int("EMBEDDING_CONCURRENCY", 4),

		SummaryEnabled:     p.bool("SUMMARY_ENABLED", true),
		SummaryMaxTokens:   p.int("SUMMARY_MAX_TOKENS", 100_000),
		SummaryInstruction: os.Getenv("SUMMARY_INSTRUCTION"),

		FetchTimeout:   p.duration("FETCH_TIMEOUT", 60*time.Second),
		FetchMaxBytes:  p.int64("FETCH_MAX_BYTES", 100<<20),
		FetchUserAgent: os.Getenv("FETCH_USER_AGENT"),

		Pdftotext: p.bool("PDF_PDFTOTEXT", true),

		ServerHost: p.str("PDFRAG_HOST", "127.0.0.1"),
		ServerPort: p.int("PDFRAG_PORT", 8080),
		APIKey:     os.Getenv("PDFRAG_API_KEY"),
		RateLimit:  p.float("PDFRAG_RATE_LIMIT", 0),
		RateBurst:  p.int("PDFRAG_RATE_BURST", 0),

		JournalDB: os.Getenv("PDFRAG_JOURNAL_DB"),
	}
	if p.err != nil {
		return nil, p.err
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks cross-field constraints.
func (s *Settings) Validate() error {
	switch s.IndexBackend {
	case BackendMemory, BackendQdrant:
	default:
		return fmt.Errorf("config: %w: INDEX_BACKEND must be %q or %q, got %q",
			rag.ErrConfiguration, BackendMemory, BackendQdrant, s.IndexBackend)
	}
	if s.ChunkSize <= 0 {
		return fmt.Errorf("config: %w: CHUNK_SIZE must be positive, got %d", rag.ErrConfiguration, s.ChunkSize)
	}
	if s.ChunkOverlap < 0 || s.ChunkOverlap >= s.ChunkSize {
		return fmt.Errorf("config: %w: CHUNK_OVERLAP must be in [0, CHUNK_SIZE), got %d", rag.ErrConfiguration, s.ChunkOverlap)
	}
	if s.TopK <= 0 {
		return fmt.Errorf("config: %w: QUERY_TOP_K must be positive, got %d", rag.ErrConfiguration, s.TopK)
	}
	if s.EmbedBatchSize <= 0 || s.EmbedConcurrency <= 0 {
		return fmt.Errorf("config: %w: EMBEDDING_BATCH_SIZE and EMBEDDING_CONCURRENCY must be positive", rag.ErrConfiguration)
	}
	if s.SummaryMaxTokens <= 0 {
		return fmt.Errorf("config: %w: SUMMARY_MAX_TOKENS must be positive, got %d", rag.ErrConfiguration, s.SummaryMaxTokens)
	}
	if s.FetchTimeout <= 0 || s.FetchMaxBytes <= 0 {
		return fmt.Errorf("config: %w: FETCH_TIMEOUT and FETCH_MAX_BYTES must be positive", rag.ErrConfiguration)
	}
	return nil
}

// JournalEnabled reports whether the ingestion journal should be opened.
func (s *Settings) JournalEnabled() bool {
	return !strings.EqualFold(s.JournalDB, JournalDisabled)
}

// envParser reads typed env vars and keeps the first parse error.
type envParser struct {
	err error
}

func (p *envParser) lookup(key string) (string, bool) {
	v := strings.TrimSpace(os.Getenv(key))
	return v, v != ""
}

func (p *envParser) fail(key, raw string, err error) {
	if p.err == nil {
		p.err = fmt.Errorf("config: %w: %s=%q: %w", rag.ErrConfiguration, key, raw, err)
	}
}

func (p *envParser) str(key, fallback string) string {
	if v, ok := p.lookup(key); ok {
		return v
	}
	return fallback
}

func (p *envParser) int(key string, fallback int) int {
	raw, ok := p.lookup(key)
	if !ok {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		p.fail(key, raw, err)
		return fallback
	}
	return v
}

func (p *envParser) int64(key string, fallback int64) int64 {
	raw, ok := p.lookup(key)
	if !ok {
		return fallback
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		p.fail(key, raw, err)
		return fallback
	}
	return v
}

func (p *envParser) float(key string, fallback float64) float64 {
	raw, ok := p.lookup(key)
	if !ok {
		return fallback
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		p.fail(key, raw, err)
		return fallback
	}
	return v
}

func (p *envParser) bool(key string, fallback bool) bool {
	raw, ok := p.lookup(key)
	if !ok {
		return fallback
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		p.fail(key, raw, err)
		return fallback
	}
	return v
}

func (p *envParser) duration(key string, fallback time.Duration) time.Duration {
	raw, ok := p.lookup(key)
	if !ok {
		return fallback
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		p.fail(key, raw, err)
		return fallback
	}
	return v
}
