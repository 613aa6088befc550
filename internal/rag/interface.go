// Package rag holds the indexing and retrieval core: the chunk record model,
// the append-only document store, and the vector index implementations
// (in-process and Qdrant) rebuilt from the store after every ingestion.
// Concrete embedding backends live in the embedder package and satisfy the
// Embedder interface defined here, so the core never depends on a backend.
package rag

import (
	"context"
)

// Record is one chunk of an ingested document as seen by the index.
type Record struct {
	// ID is a deterministic UUID derived from the source, the ingestion
	// ordinal, and the chunk position. Used as the vector point ID.
	ID string

	// Seq is the global insertion ordinal of the chunk in the document
	// store. Searches break distance ties by ascending Seq.
	Seq int

	// Text is the chunk content.
	Text string

	// SourceID is the path or URL the chunk was ingested from.
	SourceID string

	// Summary is the whole-document summary generated for the ingestion
	// this chunk belongs to. Identical across all chunks of one ingestion.
	Summary string
}

// Hit is a single search result.
type Hit struct {
	// Record is the matched chunk.
	Record Record

	// Distance is the cosine distance between the query and the chunk
	// embedding (0 = identical direction, 2 = opposite).
	Distance float32
}

// Embedder is the interface for converting text into dense vector embeddings.
// Implementations must be safe to call from multiple goroutines.
type Embedder interface {
	// Embed converts a batch of texts into their corresponding embeddings.
	// The returned slice is parallel to the input slice.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// VectorIndex is a nearest-neighbour index that is always rebuilt wholesale
// from the document store. Implementations must be safe for concurrent
// Search calls while a Rebuild is in flight: readers observe either the
// previous index or the new one, never a mix.
type VectorIndex interface {
	// Rebuild embeds every record and atomically replaces the index.
	// A failed rebuild leaves the previous index in place.
	Rebuild(ctx context.Context, records []Record) error

	// Search embeds query and returns up to k hits ordered best-first.
	// Returns ErrIndexNotReady before the first successful Rebuild.
	Search(ctx context.Context, query string, k int) ([]Hit, error)

	// Len returns the number of records in the current index, or -1 if
	// no index has been built yet.
	Len() int

	// Close releases any resources held by the index.
	Close() error
}
