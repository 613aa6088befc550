package rag

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by every layer of the indexing and retrieval core.
// Callers classify failures with errors.Is; the wrapped chain always carries
// the underlying cause for the human-readable message.
var (
	// ErrConfiguration reports invalid chunking or index parameters.
	ErrConfiguration = errors.New("configuration error")

	// ErrDownload reports a failed remote PDF fetch. See DownloadError for
	// the variant that carries the HTTP status code.
	ErrDownload = errors.New("download error")

	// ErrExtraction reports a failure of the PDF text source (bad path,
	// corrupt or encrypted file).
	ErrExtraction = errors.New("extraction error")

	// ErrUpstream reports a failure of the embedding or summarization backend.
	ErrUpstream = errors.New("upstream service error")

	// ErrIndexNotReady is returned by searches issued before the first
	// successful index rebuild.
	ErrIndexNotReady = errors.New("index not ready: no document has been ingested yet")

	// ErrValidation reports missing or malformed caller input.
	ErrValidation = errors.New("validation error")
)

// DownloadError is returned when a remote PDF responds with a non-success
// HTTP status. It unwraps to ErrDownload.
type DownloadError struct {
	// URL is the address that was requested.
	URL string
	// StatusCode is the HTTP status returned by the remote server.
	StatusCode int
}

// Error implements the error interface.
func (e *DownloadError) Error() string {
	return fmt.Sprintf("failed to download PDF: HTTP %d", e.StatusCode)
}

// Unwrap lets errors.Is(err, ErrDownload) match a *DownloadError.
func (e *DownloadError) Unwrap() error { return ErrDownload }

// Upstream wraps err as an ErrUpstream failure of the named operation.
func Upstream(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrUpstream, op, err)
}

// Invalid returns an ErrValidation error with a formatted message.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
