package mcp

import (
	"context"

	"github.com/54b3r/pdfrag-go/internal/retrieval"
)

// Ingester reads PDFs and, for the ingest operations, indexes them.
// *ingestion.Pipeline satisfies it.
type Ingester interface {
	IngestLocal(ctx context.Context, path, pages string) (*retrieval.IngestResult, error)
	IngestURL(ctx context.Context, rawURL, pages string) (*retrieval.IngestResult, error)
	ExtractLocal(ctx context.Context, path, pages string) (string, error)
	ExtractURL(ctx context.Context, rawURL, pages string) (string, error)
}

// Retriever answers queries and summary lookups. *retrieval.Service
// satisfies it.
type Retriever interface {
	Query(ctx context.Context, text string, k int, filterSourceID string) ([]string, error)
	Summary(sourceID string) (string, error)
}

// Ports aggregates the collaborators the MCP server dispatches to.
type Ports struct {
	// Ingester serves the ingest and extract tools.
	Ingester Ingester

	// Retriever serves query-documents and get-summary.
	Retriever Retriever
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Ingester == nil {
		return ErrMissingIngester
	}
	if p.Retriever == nil {
		return ErrMissingRetriever
	}
	return nil
}
