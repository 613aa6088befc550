// Package summarizer produces one whole-document summary per ingestion by
// asking a generative model backend. The summary is computed from the full
// document text, never from individual chunks.
package summarizer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cloudwego/eino/schema"

	"github.com/54b3r/pdfrag-go/internal/budget"
	"github.com/54b3r/pdfrag-go/internal/logging"
	"github.com/54b3r/pdfrag-go/internal/rag"
)

// Completer sends a single prompt to a generative model and returns its reply.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// DefaultInstruction precedes the document text in every summary prompt.
const DefaultInstruction = `Summarize the following document in a few concise paragraphs.
Cover its purpose, its main topics and any key conclusions or figures.
Reply with the summary only.`

// Config tunes the prompt sent by a Summarizer.
type Config struct {
	// Instruction is prepended to the document. Defaults to DefaultInstruction.
	Instruction string

	// MaxPromptTokens caps the estimated prompt size; longer documents are
	// truncated. Defaults to budget.DefaultSummaryTokens.
	MaxPromptTokens int
}

// Summarizer turns full document text into a summary with one backend call.
// It does not retry.
type Summarizer struct {
	completer Completer
	cfg       Config
}

// New returns a Summarizer that sends prompts to completer.
func New(completer Completer, cfg Config) (*Summarizer, error) {
	if completer == nil {
		return nil, fmt.Errorf("summarizer: completer must not be nil")
	}
	if cfg.Instruction == "" {
		cfg.Instruction = DefaultInstruction
	}
	if cfg.MaxPromptTokens <= 0 {
		cfg.MaxPromptTokens = budget.DefaultSummaryTokens
	}
	return &Summarizer{completer: completer, cfg: cfg}, nil
}

// Summarize returns a summary of text. Blank text yields an empty summary
// without contacting the backend. Backend failures wrap rag.ErrUpstream.
func (s *Summarizer) Summarize(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", nil
	}

	fixed := []*schema.Message{schema.UserMessage(s.cfg.Instruction)}
	doc, truncated := budget.FitDocument(fixed, text, s.cfg.MaxPromptTokens)
	if truncated {
		logging.FromContext(ctx).Warn("summarizer: document truncated to fit prompt budget",
			slog.Int("original_chars", len(text)),
			slog.Int("kept_chars", len(doc)),
			slog.Int("max_prompt_tokens", s.cfg.MaxPromptTokens),
		)
	}

	summary, err := s.completer.Complete(ctx, s.cfg.Instruction+"\n\n"+doc)
	if err != nil {
		return "", fmt.Errorf("summarizer: %w", rag.Upstream("summary generation", err))
	}
	return strings.TrimSpace(summary), nil
}
