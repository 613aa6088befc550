package pdf

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/54b3r/pdfrag-go/internal/rag"
)

// Runner executes an external command and returns its standard output.
// Tests inject a fake instead of spawning processes.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner implements Runner with os/exec.
type ExecRunner struct{}

// Run executes name with args and returns stdout. A non-zero exit status is
// reported with the captured stderr.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%s: %w: %s", name, err, msg)
		}
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return stdout.Bytes(), nil
}

// pdftotextBinary is the poppler-utils text extractor.
const pdftotextBinary = "pdftotext"

// CommandExtractor extracts text by running pdftotext, which separates pages
// with form feeds.
type CommandExtractor struct {
	runner Runner
	binary string
}

// NewCommandExtractor returns a CommandExtractor that runs pdftotext through
// runner.
func NewCommandExtractor(runner Runner) *CommandExtractor {
	return &CommandExtractor{runner: runner, binary: pdftotextBinary}
}

// LookupCommandExtractor returns a CommandExtractor backed by ExecRunner, or
// an error when pdftotext is not on PATH.
func LookupCommandExtractor() (*CommandExtractor, error) {
	path, err := exec.LookPath(pdftotextBinary)
	if err != nil {
		return nil, fmt.Errorf("pdf: %s not found on PATH: install poppler-utils to enable the fallback extractor", pdftotextBinary)
	}
	return &CommandExtractor{runner: ExecRunner{}, binary: path}, nil
}

// Extract implements Extractor.
func (e *CommandExtractor) Extract(ctx context.Context, path, pages string) (string, error) {
	out, err := e.runner.Run(ctx, e.binary, "-enc", "UTF-8", "-layout", path, "-")
	if err != nil {
		return "", fmt.Errorf("pdf: %w: %w", rag.ErrExtraction, err)
	}

	all := strings.Split(string(out), "\f")
	// pdftotext terminates every page with a form feed.
	if n := len(all); n > 0 && strings.TrimSpace(all[n-1]) == "" {
		all = all[:n-1]
	}

	selected, err := ParsePages(pages, len(all))
	if err != nil {
		return "", fmt.Errorf("pdf: %w", err)
	}
	parts := make([]string, len(selected))
	for i, n := range selected {
		parts[i] = strings.TrimRight(all[n-1], " \n")
	}
	return strings.Join(parts, pageSeparator), nil
}
