// Package pdf extracts plain text from PDF files. The pure-Go parser is
// tried first; the poppler pdftotext binary serves as a fallback for files
// the parser cannot read or yields no text for.
package pdf

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/54b3r/pdfrag-go/internal/logging"
	"github.com/54b3r/pdfrag-go/internal/rag"
)

// Extractor returns the text of the selected pages of the PDF at path.
// See ParsePages for the selection syntax.
type Extractor interface {
	Extract(ctx context.Context, path, pages string) (string, error)
}

// pageSeparator joins the text of consecutive pages.
const pageSeparator = "\n\n"

// NativeExtractor reads PDFs with github.com/ledongthuc/pdf.
type NativeExtractor struct{}

// NewNativeExtractor returns a NativeExtractor.
func NewNativeExtractor() *NativeExtractor { return &NativeExtractor{} }

// Extract implements Extractor. Unreadable, corrupt or encrypted files
// report rag.ErrExtraction; a bad page selection reports rag.ErrValidation.
func (e *NativeExtractor) Extract(ctx context.Context, path, pages string) (text string, err error) {
	// The parser panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = fmt.Errorf("pdf: %w: %s: parser failure: %v", rag.ErrExtraction, path, r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("pdf: %w: open %s: %w", rag.ErrExtraction, path, err)
	}
	defer f.Close()

	selected, err := ParsePages(pages, r.NumPage())
	if err != nil {
		return "", fmt.Errorf("pdf: %w", err)
	}

	parts := make([]string, 0, len(selected))
	for _, n := range selected {
		if err := ctx.Err(); err != nil {
			return "", fmt.Errorf("pdf: %w", err)
		}
		p := r.Page(n)
		if p.V.IsNull() {
			parts = append(parts, "")
			continue
		}
		content, err := p.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("pdf: %w: %s page %d: %w", rag.ErrExtraction, path, n, err)
		}
		parts = append(parts, strings.TrimRight(content, " \n"))
	}
	return strings.Join(parts, pageSeparator), nil
}

// Chain tries each extractor in order. It returns the first non-blank
// result. Page-selection errors and context cancellation stop the chain
// immediately. When every extractor fails the first error is returned;
// when they all succeed with blank text the blank text is returned.
type Chain []Extractor

// Extract implements Extractor.
func (c Chain) Extract(ctx context.Context, path, pages string) (string, error) {
	log := logging.FromContext(ctx)
	var (
		firstErr error
		blank    bool
	)
	for i, ex := range c {
		text, err := ex.Extract(ctx, path, pages)
		switch {
		case err == nil && strings.TrimSpace(text) != "":
			if i > 0 {
				log.Info("pdf: fallback extractor succeeded", slog.String("path", path), slog.Int("extractor", i))
			}
			return text, nil
		case err == nil:
			blank = true
			log.Debug("pdf: extractor returned no text", slog.String("path", path), slog.Int("extractor", i))
		case errors.Is(err, rag.ErrValidation), ctx.Err() != nil:
			return "", err
		default:
			log.Warn("pdf: extractor failed", slog.String("path", path), slog.Int("extractor", i), slog.Any("error", err))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	if blank {
		return "", nil
	}
	if firstErr == nil {
		return "", fmt.Errorf("pdf: %w: no extractor configured", rag.ErrExtraction)
	}
	return "", firstErr
}
