package rag

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

func newTestIndex(t *testing.T, emb Embedder, batch BatchConfig) *MemoryIndex {
	t.Helper()
	idx, err := NewMemoryIndex(emb, batch)
	if err != nil {
		t.Fatalf("NewMemoryIndex: %v", err)
	}
	return idx
}

func TestNewMemoryIndex_NilEmbedder(t *testing.T) {
	t.Parallel()
	if _, err := NewMemoryIndex(nil, BatchConfig{}); err == nil {
		t.Fatal("expected error for nil embedder")
	}
}

func TestMemoryIndex_SearchBeforeRebuild(t *testing.T) {
	t.Parallel()
	idx := newTestIndex(t, &letterEmbedder{}, BatchConfig{})

	_, err := idx.Search(context.Background(), "anything", 3)
	if !errors.Is(err, ErrIndexNotReady) {
		t.Fatalf("want ErrIndexNotReady, got %v", err)
	}
	if idx.Len() != -1 {
		t.Errorf("Len before rebuild: want -1, got %d", idx.Len())
	}
}

func TestMemoryIndex_EmptyRebuild(t *testing.T) {
	t.Parallel()
	emb := &letterEmbedder{}
	idx := newTestIndex(t, emb, BatchConfig{})
	ctx := context.Background()

	if err := idx.Rebuild(ctx, nil); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	hits, err := idx.Search(ctx, "query", 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 0 {
		t.Errorf("want 0 hits, got %d", len(hits))
	}
	if emb.calls.Load() != 0 {
		t.Errorf("empty index should not call the embedder, got %d calls", emb.calls.Load())
	}
}

func TestMemoryIndex_NearestFirst(t *testing.T) {
	t.Parallel()
	idx := newTestIndex(t, &letterEmbedder{}, BatchConfig{})
	ctx := context.Background()

	records := recordsFrom("doc.pdf", "aaaa", "bbbb", "cccc", "aabb")
	if err := idx.Rebuild(ctx, records); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}

	hits, err := idx.Search(ctx, "bbb", 2)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("want 2 hits, got %d", len(hits))
	}
	if hits[0].Record.Text != "bbbb" {
		t.Errorf("hit[0]: want bbbb, got %q", hits[0].Record.Text)
	}
	if hits[1].Record.Text != "aabb" {
		t.Errorf("hit[1]: want aabb, got %q", hits[1].Record.Text)
	}
	if hits[0].Distance > hits[1].Distance {
		t.Errorf("hits not ordered best-first: %v > %v", hits[0].Distance, hits[1].Distance)
	}
}

func TestMemoryIndex_KLargerThanIndex(t *testing.T) {
	t.Parallel()
	idx := newTestIndex(t, &letterEmbedder{}, BatchConfig{})
	ctx := context.Background()

	if err := idx.Rebuild(ctx, recordsFrom("a.pdf", "one", "two", "three")); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	hits, err := idx.Search(ctx, "one", 100)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 3 {
		t.Errorf("want all 3 records, got %d", len(hits))
	}
}

func TestMemoryIndex_TiesBrokenByInsertionOrder(t *testing.T) {
	t.Parallel()
	idx := newTestIndex(t, &letterEmbedder{}, BatchConfig{})
	ctx := context.Background()

	records := recordsFrom("a.pdf", "same", "other", "same", "same")
	if err := idx.Rebuild(ctx, records); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	hits, err := idx.Search(ctx, "same", 3)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	want := []int{0, 2, 3}
	for i, h := range hits {
		if h.Record.Seq != want[i] {
			t.Errorf("hit[%d]: want seq %d, got %d", i, want[i], h.Record.Seq)
		}
	}
}

func TestMemoryIndex_SearchIsIdempotent(t *testing.T) {
	t.Parallel()
	idx := newTestIndex(t, &letterEmbedder{}, BatchConfig{})
	ctx := context.Background()

	if err := idx.Rebuild(ctx, recordsFrom("a.pdf", "alpha", "beta", "gamma", "delta")); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	first, err := idx.Search(ctx, "alphabet", 3)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	second, err := idx.Search(ctx, "alphabet", 3)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("repeated search differs:\n%v\n%v", first, second)
	}
}

func TestMemoryIndex_FailedRebuildKeepsPrevious(t *testing.T) {
	t.Parallel()
	emb := &letterEmbedder{}
	idx := newTestIndex(t, emb, BatchConfig{})
	ctx := context.Background()

	if err := idx.Rebuild(ctx, recordsFrom("a.pdf", "first")); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}

	emb.fail.Store(true)
	err := idx.Rebuild(ctx, recordsFrom("a.pdf", "first", "second"))
	if !errors.Is(err, ErrUpstream) {
		t.Fatalf("want ErrUpstream, got %v", err)
	}
	emb.fail.Store(false)

	if idx.Len() != 1 {
		t.Fatalf("want previous index of 1 record, got %d", idx.Len())
	}
	hits, err := idx.Search(ctx, "first", 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 1 || hits[0].Record.Text != "first" {
		t.Errorf("unexpected hits after failed rebuild: %v", hits)
	}
}

func TestMemoryIndex_SearchUpstreamFailure(t *testing.T) {
	t.Parallel()
	emb := &letterEmbedder{}
	idx := newTestIndex(t, emb, BatchConfig{})
	ctx := context.Background()

	if err := idx.Rebuild(ctx, recordsFrom("a.pdf", "text")); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	emb.fail.Store(true)
	if _, err := idx.Search(ctx, "text", 1); !errors.Is(err, ErrUpstream) {
		t.Fatalf("want ErrUpstream, got %v", err)
	}
}

func TestMemoryIndex_InvalidK(t *testing.T) {
	t.Parallel()
	idx := newTestIndex(t, &letterEmbedder{}, BatchConfig{})
	ctx := context.Background()
	if err := idx.Rebuild(ctx, recordsFrom("a.pdf", "text")); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	if _, err := idx.Search(ctx, "text", 0); !errors.Is(err, ErrValidation) {
		t.Fatalf("want ErrValidation, got %v", err)
	}
}

func TestMemoryIndex_BatchedRebuildPreservesOrder(t *testing.T) {
	t.Parallel()
	emb := &letterEmbedder{}
	idx := newTestIndex(t, emb, BatchConfig{Size: 2, Concurrency: 3})
	ctx := context.Background()

	records := recordsFrom("a.pdf", "aaaa", "bbbb", "cccc", "dddd", "eeee")
	if err := idx.Rebuild(ctx, records); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	if got := emb.calls.Load(); got != 3 {
		t.Errorf("want 3 embed calls for 5 texts in batches of 2, got %d", got)
	}

	for _, r := range records {
		hits, err := idx.Search(ctx, r.Text, 1)
		if err != nil {
			t.Fatalf("Search: %v", err)
		}
		if hits[0].Record.Seq != r.Seq {
			t.Errorf("query %q: want seq %d, got %d", r.Text, r.Seq, hits[0].Record.Seq)
		}
	}
}

func TestMemoryIndex_ShortEmbeddingResponse(t *testing.T) {
	t.Parallel()
	idx := newTestIndex(t, shortEmbedder{}, BatchConfig{})
	err := idx.Rebuild(context.Background(), recordsFrom("a.pdf", "x", "y"))
	if !errors.Is(err, ErrUpstream) {
		t.Fatalf("want ErrUpstream, got %v", err)
	}
	if idx.Len() != -1 {
		t.Errorf("index must stay unbuilt, Len=%d", idx.Len())
	}
}

func TestCosineDistance(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		a, b []float32
		want float32
	}{
		{name: "identical", a: []float32{1, 0}, b: []float32{2, 0}, want: 0},
		{name: "orthogonal", a: []float32{1, 0}, b: []float32{0, 1}, want: 1},
		{name: "opposite", a: []float32{1, 0}, b: []float32{-1, 0}, want: 2},
		{name: "zero vector", a: []float32{0, 0}, b: []float32{1, 0}, want: 1},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := cosineDistance(tc.a, norm(tc.a), tc.b, norm(tc.b))
			if diff := got - tc.want; diff > 1e-6 || diff < -1e-6 {
				t.Errorf("cosineDistance = %v, want %v", got, tc.want)
			}
		})
	}
}
