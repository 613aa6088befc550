// Package retrieval orchestrates ingestion (chunk → summarize → store →
// reindex) and similarity queries over the shared document index.
package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/54b3r/pdfrag-go/internal/chunker"
	"github.com/54b3r/pdfrag-go/internal/logging"
	"github.com/54b3r/pdfrag-go/internal/rag"
)

// Summarizer produces one summary for a full document.
type Summarizer interface {
	Summarize(ctx context.Context, text string) (string, error)
}

// Config holds the chunking and query defaults for a Service.
type Config struct {
	// ChunkSize is the maximum number of characters per chunk. When both
	// ChunkSize and ChunkOverlap are zero they default to 1000 and 100.
	ChunkSize int

	// ChunkOverlap is the number of characters shared by neighbouring chunks.
	ChunkOverlap int

	// DefaultTopK is used when a query passes k <= 0 (default 5).
	DefaultTopK int

	// Metrics is optional.
	Metrics *Metrics
}

// IngestResult describes one successful ingestion.
type IngestResult struct {
	// SourceID is the path or URL the chunks were tagged with.
	SourceID string
	// Chunks is the number of chunks added by this ingestion.
	Chunks int
	// TotalChunks is the store size after the ingestion.
	TotalChunks int
	// Summary is the generated document summary (empty when disabled).
	Summary string
	// Duration is the wall-clock ingestion time.
	Duration time.Duration
}

// Service owns the document store and the vector index derived from it.
// Ingestions are serialised; queries run concurrently against the last
// published index.
type Service struct {
	store      *rag.DocumentStore
	index      rag.VectorIndex
	summarizer Summarizer
	cfg        Config

	// ingestMu serialises ingestions so Prepare/Rebuild/Commit never interleave.
	ingestMu sync.Mutex
}

// New constructs a Service. summarizer may be nil to disable summaries.
func New(store *rag.DocumentStore, index rag.VectorIndex, summarizer Summarizer, cfg Config) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("retrieval: document store must not be nil")
	}
	if index == nil {
		return nil, fmt.Errorf("retrieval: vector index must not be nil")
	}
	if cfg.ChunkSize == 0 && cfg.ChunkOverlap == 0 {
		cfg.ChunkSize, cfg.ChunkOverlap = 1000, 100
	}
	if cfg.DefaultTopK <= 0 {
		cfg.DefaultTopK = 5
	}
	if err := chunker.Validate(cfg.ChunkSize, cfg.ChunkOverlap); err != nil {
		return nil, fmt.Errorf("retrieval: %w", err)
	}
	return &Service{store: store, index: index, summarizer: summarizer, cfg: cfg}, nil
}

// Ingest chunks text, summarizes it, appends the chunks to the store and
// rebuilds the index from the full store. Any failure leaves both the store
// and the published index exactly as they were.
func (s *Service) Ingest(ctx context.Context, text, sourceID string) (res *IngestResult, err error) {
	start := time.Now()
	log := logging.FromContext(ctx).With(slog.String("source", sourceID))
	defer func() {
		s.cfg.Metrics.observeIngest(start, err, s.store.Len())
	}()

	if strings.TrimSpace(sourceID) == "" {
		return nil, fmt.Errorf("retrieval: ingest: %w", rag.Invalid("source identifier is required"))
	}

	chunks, err := chunker.Split(text, s.cfg.ChunkSize, s.cfg.ChunkOverlap)
	if err != nil {
		return nil, fmt.Errorf("retrieval: ingest: %w", err)
	}

	s.ingestMu.Lock()
	defer s.ingestMu.Unlock()

	var summary string
	if s.summarizer != nil && len(chunks) > 0 {
		summary, err = s.summarizer.Summarize(ctx, text)
		if err != nil {
			log.Error("retrieval: summary generation failed", slog.Any("error", err))
			return nil, fmt.Errorf("retrieval: ingest: %w", err)
		}
	}

	pending, err := s.store.Prepare(chunks, sourceID, summary)
	if err != nil {
		return nil, fmt.Errorf("retrieval: ingest: %w", err)
	}

	if err := s.index.Rebuild(ctx, pending.Records()); err != nil {
		log.Error("retrieval: index rebuild failed", slog.Any("error", err))
		return nil, fmt.Errorf("retrieval: ingest: %w", err)
	}

	if err := s.store.Commit(pending); err != nil {
		// Put the index back in line with the store before reporting.
		if rerr := s.index.Rebuild(context.WithoutCancel(ctx), s.store.All()); rerr != nil {
			log.Error("retrieval: failed to restore index after commit failure", slog.Any("error", rerr))
		}
		return nil, fmt.Errorf("retrieval: ingest: %w", err)
	}

	res = &IngestResult{
		SourceID:    sourceID,
		Chunks:      pending.Added(),
		TotalChunks: len(pending.Records()),
		Summary:     summary,
		Duration:    time.Since(start),
	}
	log.Info("retrieval: document ingested",
		slog.Int("chunks", res.Chunks),
		slog.Int("total_chunks", res.TotalChunks),
		slog.Bool("summarized", summary != ""),
		slog.Duration("duration", res.Duration),
	)
	return res, nil
}

// Query returns the texts of the k chunks nearest to text, best-first. When
// filterSourceID is non-empty, hits from other sources are dropped after the
// top-k search, so fewer than k texts may be returned. k <= 0 selects the
// configured default.
func (s *Service) Query(ctx context.Context, text string, k int, filterSourceID string) (out []string, err error) {
	start := time.Now()
	defer func() { s.cfg.Metrics.observeQuery(start, err) }()

	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("retrieval: query: %w", rag.Invalid("query text is required"))
	}
	if k <= 0 {
		k = s.cfg.DefaultTopK
	}

	hits, err := s.index.Search(ctx, text, k)
	if err != nil {
		return nil, fmt.Errorf("retrieval: query: %w", err)
	}

	out = make([]string, 0, len(hits))
	for _, h := range hits {
		if filterSourceID != "" && h.Record.SourceID != filterSourceID {
			continue
		}
		out = append(out, h.Record.Text)
	}

	logging.FromContext(ctx).Debug("retrieval: query served",
		slog.Int("k", k),
		slog.Int("hits", len(hits)),
		slog.Int("returned", len(out)),
		slog.String("filter_source", filterSourceID),
	)
	return out, nil
}

// SummariesFor returns the summary of every chunk tagged with sourceID, in
// insertion order. The same summary repeats once per chunk.
func (s *Service) SummariesFor(sourceID string) []string {
	records := s.store.BySource(sourceID)
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.Summary
	}
	return out
}

// Summary returns the first stored summary for sourceID. An empty string
// with a nil error means the document was ingested with summaries disabled.
func (s *Service) Summary(sourceID string) (string, error) {
	if strings.TrimSpace(sourceID) == "" {
		return "", fmt.Errorf("retrieval: summary: %w", rag.Invalid("source identifier is required"))
	}
	summaries := s.SummariesFor(sourceID)
	if len(summaries) == 0 {
		return "", fmt.Errorf("retrieval: summary: %w", rag.Invalid("no document ingested for source %q", sourceID))
	}
	return summaries[0], nil
}

// Sources lists every ingested source identifier.
func (s *Service) Sources() []rag.SourceInfo {
	return s.store.Sources()
}

// Ready reports whether at least one index rebuild has succeeded.
func (s *Service) Ready() bool {
	return s.index.Len() >= 0
}

// Len returns the number of stored chunk records.
func (s *Service) Len() int {
	return s.store.Len()
}
