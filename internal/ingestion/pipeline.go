// Package ingestion turns PDF sources into indexed documents. It resolves
// local paths and remote URLs to a file on disk, extracts the selected
// pages, hands the text to the retrieval service, and journals every
// attempt. The same pipeline serves the MCP tools and the CLI commands.
package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/54b3r/pdfrag-go/internal/logging"
	"github.com/54b3r/pdfrag-go/internal/pdf"
	"github.com/54b3r/pdfrag-go/internal/rag"
	"github.com/54b3r/pdfrag-go/internal/retrieval"
	"github.com/54b3r/pdfrag-go/internal/store"
)

// Indexer chunks, summarizes and indexes extracted text.
// *retrieval.Service satisfies it.
type Indexer interface {
	Ingest(ctx context.Context, text, sourceID string) (*retrieval.IngestResult, error)
}

// Fetcher downloads a remote PDF to a temporary file. *fetch.Fetcher
// satisfies it.
type Fetcher interface {
	FetchToTemp(ctx context.Context, rawURL string) (path string, cleanup func(), err error)
}

// Recorder persists journal entries. *store.SQLiteJournal satisfies it.
type Recorder interface {
	Record(ctx context.Context, e store.Entry) error
}

// Pipeline wires extraction, download and indexing together.
type Pipeline struct {
	// extractor reads text out of PDF files.
	extractor pdf.Extractor

	// fetcher downloads remote PDFs. May be nil when URLs are not served.
	fetcher Fetcher

	// indexer receives the extracted text. May be nil for extract-only use.
	indexer Indexer

	// journal records every attempt. May be nil.
	journal Recorder
}

// Option configures optional Pipeline collaborators.
type Option func(*Pipeline)

// WithFetcher enables the URL operations.
func WithFetcher(f Fetcher) Option { return func(p *Pipeline) { p.fetcher = f } }

// WithIndexer enables the ingest operations.
func WithIndexer(ix Indexer) Option { return func(p *Pipeline) { p.indexer = ix } }

// WithJournal records every ingest and extract attempt.
func WithJournal(r Recorder) Option { return func(p *Pipeline) { p.journal = r } }

// NewPipeline constructs a Pipeline around extractor.
func NewPipeline(extractor pdf.Extractor, opts ...Option) (*Pipeline, error) {
	if extractor == nil {
		return nil, fmt.Errorf("ingestion: extractor must not be nil")
	}
	p := &Pipeline{extractor: extractor}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// IngestLocal extracts the selected pages of the PDF at path and indexes
// them under path as the source identifier.
func (p *Pipeline) IngestLocal(ctx context.Context, path, pages string) (*retrieval.IngestResult, error) {
	return p.ingest(ctx, path, pages, p.openLocal)
}

// IngestURL downloads the PDF at rawURL, extracts the selected pages and
// indexes them under rawURL as the source identifier. The downloaded file
// is removed before IngestURL returns.
func (p *Pipeline) IngestURL(ctx context.Context, rawURL, pages string) (*retrieval.IngestResult, error) {
	return p.ingest(ctx, rawURL, pages, p.openRemote)
}

// ExtractLocal returns the text of the selected pages without indexing.
func (p *Pipeline) ExtractLocal(ctx context.Context, path, pages string) (string, error) {
	return p.extract(ctx, path, pages, p.openLocal)
}

// ExtractURL downloads the PDF at rawURL and returns the text of the
// selected pages without indexing.
func (p *Pipeline) ExtractURL(ctx context.Context, rawURL, pages string) (string, error) {
	return p.extract(ctx, rawURL, pages, p.openRemote)
}

// opener resolves a source to a readable file and a cleanup func.
type opener func(ctx context.Context, source string) (path string, cleanup func(), err error)

func (p *Pipeline) openLocal(_ context.Context, path string) (string, func(), error) {
	if strings.TrimSpace(path) == "" {
		return "", nil, rag.Invalid("pdf path is required")
	}
	return path, func() {}, nil
}

func (p *Pipeline) openRemote(ctx context.Context, rawURL string) (string, func(), error) {
	if strings.TrimSpace(rawURL) == "" {
		return "", nil, rag.Invalid("pdf url is required")
	}
	if p.fetcher == nil {
		return "", nil, fmt.Errorf("%w: remote documents are not enabled", rag.ErrConfiguration)
	}
	return p.fetcher.FetchToTemp(ctx, rawURL)
}

func (p *Pipeline) ingest(ctx context.Context, source, pages string, open opener) (res *retrieval.IngestResult, err error) {
	start := time.Now()
	info := InferSource(source)
	log := logging.FromContext(ctx).With(
		slog.String("source", source),
		slog.String("kind", info.Kind),
	)
	defer func() {
		chunks := 0
		if res != nil {
			chunks = res.Chunks
		}
		p.record(ctx, store.OpIngest, source, info.Kind, pages, chunks, start, err)
	}()

	if p.indexer == nil {
		return nil, fmt.Errorf("ingestion: %w: indexing is not enabled", rag.ErrConfiguration)
	}

	text, err := p.readText(ctx, source, pages, open)
	if err != nil {
		return nil, err
	}

	log.Info("ingestion: text extracted", slog.Int("chars", len(text)), slog.String("pages", pages))

	res, err = p.indexer.Ingest(ctx, text, source)
	if err != nil {
		return nil, fmt.Errorf("ingestion: index %s: %w", info.Title, err)
	}
	return res, nil
}

func (p *Pipeline) extract(ctx context.Context, source, pages string, open opener) (text string, err error) {
	start := time.Now()
	info := InferSource(source)
	defer func() {
		p.record(ctx, store.OpExtract, source, info.Kind, pages, 0, start, err)
	}()
	return p.readText(ctx, source, pages, open)
}

// readText opens source, extracts the selected pages and always runs the
// cleanup returned by open.
func (p *Pipeline) readText(ctx context.Context, source, pages string, open opener) (string, error) {
	path, cleanup, err := open(ctx, source)
	if err != nil {
		return "", fmt.Errorf("ingestion: %w", err)
	}
	defer cleanup()

	text, err := p.extractor.Extract(ctx, path, pages)
	if err != nil {
		return "", fmt.Errorf("ingestion: extract %s: %w", source, err)
	}
	return text, nil
}

// record journals one attempt. Journal failures are logged, never returned:
// the operation itself has already succeeded or failed on its own terms.
func (p *Pipeline) record(ctx context.Context, op store.Operation, source, kind, pages string, chunks int, start time.Time, opErr error) {
	if p.journal == nil {
		return
	}
	e := store.Entry{
		Operation:  op,
		Source:     source,
		SourceKind: kind,
		Pages:      pages,
		Chunks:     chunks,
		Outcome:    store.OutcomeOK,
		Duration:   time.Since(start),
	}
	if opErr != nil {
		e.Outcome = store.OutcomeError
		e.Error = opErr.Error()
	}
	// Record even when the caller's context is already cancelled.
	if err := p.journal.Record(context.WithoutCancel(ctx), e); err != nil {
		logging.FromContext(ctx).Warn("ingestion: journal write failed",
			slog.String("source", source),
			slog.Any("error", err),
		)
	}
}

