// Package chunker splits document text into overlapping fixed-size segments
// for embedding. Sizes are measured in characters (runes), never bytes, so a
// multi-byte character is never cut in half.
package chunker

import (
	"fmt"

	"github.com/54b3r/pdfrag-go/internal/rag"
)

// Split returns consecutive windows of at most size characters over text.
// Each window after the first starts overlap characters before the end of
// the previous one. Empty text yields an empty slice.
func Split(text string, size, overlap int) ([]string, error) {
	if err := Validate(size, overlap); err != nil {
		return nil, err
	}

	runes := []rune(text)
	if len(runes) == 0 {
		return []string{}, nil
	}

	step := size - overlap
	chunks := make([]string, 0, len(runes)/step+1)
	for start := 0; start < len(runes); start += step {
		end := min(start+size, len(runes))
		chunks = append(chunks, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return chunks, nil
}

// Validate reports whether size and overlap form a usable sliding window.
func Validate(size, overlap int) error {
	switch {
	case size <= 0:
		return fmt.Errorf("chunker: %w: chunk size must be positive, got %d", rag.ErrConfiguration, size)
	case overlap < 0:
		return fmt.Errorf("chunker: %w: chunk overlap must not be negative, got %d", rag.ErrConfiguration, overlap)
	case overlap >= size:
		return fmt.Errorf("chunker: %w: chunk overlap (%d) must be smaller than chunk size (%d)", rag.ErrConfiguration, overlap, size)
	}
	return nil
}
