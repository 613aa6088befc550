package rag

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
)

// letterEmbedder is a deterministic test Embedder: each text maps to a
// 27-dimensional vector of lowercase letter counts plus a constant bias.
type letterEmbedder struct {
	// fail makes every Embed call return an error while set.
	fail atomic.Bool
	// calls counts Embed invocations.
	calls atomic.Int32
}

func (e *letterEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	e.calls.Add(1)
	if e.fail.Load() {
		return nil, errors.New("embedding backend unreachable")
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = letterVector(t)
	}
	return out, nil
}

func letterVector(t string) []float32 {
	v := make([]float32, 27)
	v[26] = 0.01
	for _, r := range strings.ToLower(t) {
		if r >= 'a' && r <= 'z' {
			v[r-'a']++
		}
	}
	return v
}

// shortEmbedder returns one vector fewer than requested.
type shortEmbedder struct{}

func (shortEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	out := make([][]float32, len(texts)-1)
	for i := range out {
		out[i] = []float32{1}
	}
	return out, nil
}

func recordsFrom(source string, texts ...string) []Record {
	out := make([]Record, len(texts))
	for i, t := range texts {
		out[i] = Record{ID: recordID(source, 0, i), Seq: i, Text: t, SourceID: source}
	}
	return out
}
