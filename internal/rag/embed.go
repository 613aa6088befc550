package rag

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// BatchConfig controls how record texts are sent to the embedding backend
// during a rebuild.
type BatchConfig struct {
	// Size is the maximum number of texts per Embed call. Defaults to 64.
	Size int

	// Concurrency is the maximum number of Embed calls in flight.
	// Defaults to 4.
	Concurrency int
}

// withDefaults returns a copy of c with zero fields replaced by defaults.
func (c BatchConfig) withDefaults() BatchConfig {
	if c.Size <= 0 {
		c.Size = 64
	}
	if c.Concurrency <= 0 {
		c.Concurrency = 4
	}
	return c
}

// embedAll embeds texts in batches and returns one vector per text, in input
// order. All vectors must share one dimension. Any backend failure is
// reported as ErrUpstream and no partial result is returned.
func embedAll(ctx context.Context, emb Embedder, texts []string, cfg BatchConfig) ([][]float32, error) {
	cfg = cfg.withDefaults()
	out := make([][]float32, len(texts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Concurrency)

	for start := 0; start < len(texts); start += cfg.Size {
		end := min(start+cfg.Size, len(texts))
		g.Go(func() error {
			vecs, err := emb.Embed(gctx, texts[start:end])
			if err != nil {
				return Upstream("embedding batch", err)
			}
			if len(vecs) != end-start {
				return Upstream("embedding batch", fmt.Errorf("expected %d embeddings, got %d", end-start, len(vecs)))
			}
			copy(out[start:end], vecs)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if err := checkDimensions(out); err != nil {
		return nil, err
	}
	return out, nil
}

// embedQuery embeds a single query string.
func embedQuery(ctx context.Context, emb Embedder, query string) ([]float32, error) {
	vecs, err := emb.Embed(ctx, []string{query})
	if err != nil {
		return nil, Upstream("embedding query", err)
	}
	if len(vecs) != 1 || len(vecs[0]) == 0 {
		return nil, Upstream("embedding query", fmt.Errorf("embedder returned empty result for query"))
	}
	return vecs[0], nil
}

// checkDimensions verifies every vector is non-empty and of equal length.
func checkDimensions(vecs [][]float32) error {
	if len(vecs) == 0 {
		return nil
	}
	dim := len(vecs[0])
	for i, v := range vecs {
		if len(v) == 0 {
			return Upstream("embedding batch", fmt.Errorf("embedding %d is empty", i))
		}
		if len(v) != dim {
			return Upstream("embedding batch", fmt.Errorf("embedding %d has dimension %d, want %d", i, len(v), dim))
		}
	}
	return nil
}
