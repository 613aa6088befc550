package rag

import (
	"cmp"
	"context"
	"fmt"
	"math"
	"slices"
	"sync/atomic"
)

// memorySnapshot is one immutable generation of the in-process index.
type memorySnapshot struct {
	records []Record
	vectors [][]float32
	norms   []float64
}

// MemoryIndex is an exact (brute-force) cosine-distance index held in
// process memory. Each Rebuild produces a new immutable snapshot that is
// published with a single atomic pointer swap.
type MemoryIndex struct {
	// embedder converts record and query text to vectors.
	embedder Embedder
	// batch controls rebuild embedding calls.
	batch BatchConfig
	// current is nil until the first successful Rebuild.
	current atomic.Pointer[memorySnapshot]
}

// NewMemoryIndex constructs an empty, not-yet-ready MemoryIndex.
func NewMemoryIndex(embedder Embedder, batch BatchConfig) (*MemoryIndex, error) {
	if embedder == nil {
		return nil, fmt.Errorf("rag: embedder must not be nil")
	}
	return &MemoryIndex{embedder: embedder, batch: batch}, nil
}

// Rebuild embeds every record and replaces the index. On failure the
// previous snapshot stays published.
func (m *MemoryIndex) Rebuild(ctx context.Context, records []Record) error {
	texts := make([]string, len(records))
	for i, r := range records {
		texts[i] = r.Text
	}

	vectors, err := embedAll(ctx, m.embedder, texts, m.batch)
	if err != nil {
		return fmt.Errorf("rag: rebuild: %w", err)
	}

	snap := &memorySnapshot{
		records: slices.Clone(records),
		vectors: vectors,
		norms:   make([]float64, len(vectors)),
	}
	for i, v := range vectors {
		snap.norms[i] = norm(v)
	}

	m.current.Store(snap)
	return nil
}

// Search returns the k records closest to query by cosine distance,
// best-first, ties broken by insertion order.
func (m *MemoryIndex) Search(ctx context.Context, query string, k int) ([]Hit, error) {
	snap := m.current.Load()
	if snap == nil {
		return nil, ErrIndexNotReady
	}
	if k <= 0 {
		return nil, Invalid("k must be positive, got %d", k)
	}
	if len(snap.records) == 0 {
		return []Hit{}, nil
	}

	qv, err := embedQuery(ctx, m.embedder, query)
	if err != nil {
		return nil, fmt.Errorf("rag: search: %w", err)
	}
	if len(qv) != len(snap.vectors[0]) {
		return nil, Upstream("embedding query", fmt.Errorf("query dimension %d does not match index dimension %d", len(qv), len(snap.vectors[0])))
	}
	qn := norm(qv)

	hits := make([]Hit, len(snap.records))
	for i, v := range snap.vectors {
		hits[i] = Hit{Record: snap.records[i], Distance: cosineDistance(qv, qn, v, snap.norms[i])}
	}

	slices.SortStableFunc(hits, func(a, b Hit) int {
		if c := cmp.Compare(a.Distance, b.Distance); c != 0 {
			return c
		}
		return cmp.Compare(a.Record.Seq, b.Record.Seq)
	})

	if k < len(hits) {
		hits = hits[:k]
	}
	return hits, nil
}

// Len returns the number of indexed records, or -1 before the first rebuild.
func (m *MemoryIndex) Len() int {
	snap := m.current.Load()
	if snap == nil {
		return -1
	}
	return len(snap.records)
}

// Close is a no-op; MemoryIndex holds no external resources.
func (m *MemoryIndex) Close() error { return nil }

// norm returns the Euclidean length of v.
func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

// cosineDistance returns 1 - cos(a, b) clamped to [0, 2]. Zero vectors are
// treated as orthogonal to everything.
func cosineDistance(a []float32, an float64, b []float32, bn float64) float32 {
	if an == 0 || bn == 0 {
		return 1
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	d := 1 - dot/(an*bn)
	switch {
	case d < 0:
		d = 0
	case d > 2:
		d = 2
	}
	return float32(d)
}
