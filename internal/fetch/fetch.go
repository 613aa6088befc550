// Package fetch downloads remote PDF documents into temporary files so they
// can be handed to a local extractor.
package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/54b3r/pdfrag-go/internal/logging"
	"github.com/54b3r/pdfrag-go/internal/rag"
)

const (
	// DefaultTimeout bounds one download including the body transfer.
	DefaultTimeout = 60 * time.Second

	// DefaultMaxBytes caps the size of a downloaded document (100 MiB).
	DefaultMaxBytes int64 = 100 << 20

	// sniffLen is how far into the body the %PDF- marker is searched for.
	sniffLen = 1024
)

// pdfMagic opens every PDF file (possibly after a few junk bytes).
var pdfMagic = []byte("%PDF-")

// Config holds the settings for a Fetcher.
type Config struct {
	// Timeout is the per-request timeout. Defaults to DefaultTimeout.
	Timeout time.Duration

	// MaxBytes rejects larger bodies. Defaults to DefaultMaxBytes.
	MaxBytes int64

	// UserAgent is sent with every request.
	UserAgent string

	// TempDir is where downloads are written. Defaults to os.TempDir().
	TempDir string
}

// Fetcher downloads PDFs over HTTP(S). It is safe for concurrent use.
type Fetcher struct {
	cfg    Config
	client *http.Client
}

// New returns a Fetcher with defaults applied to cfg.
func New(cfg Config) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = DefaultMaxBytes
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "pdfrag-go/1.0 (pdf ingestion)"
	}
	return &Fetcher{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

// FetchToTemp downloads rawURL into a new temporary ".pdf" file and returns
// its path plus a cleanup func that removes it. The caller must call cleanup
// once done; on error nothing is left on disk and cleanup is nil.
//
// Non-success HTTP statuses return a *rag.DownloadError. Transport failures,
// oversize bodies and non-PDF payloads wrap rag.ErrDownload. Malformed URLs
// wrap rag.ErrValidation.
func (f *Fetcher) FetchToTemp(ctx context.Context, rawURL string) (path string, cleanup func(), err error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", nil, fmt.Errorf("fetch: %w", rag.Invalid("%q is not an http(s) URL", rawURL))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", nil, fmt.Errorf("fetch: creating request: %w", err)
	}
	req.Header.Set("User-Agent", f.cfg.UserAgent)
	req.Header.Set("Accept", "application/pdf, */*;q=0.5")

	log := logging.FromContext(ctx).With(slog.String("url", rawURL))
	start := time.Now()

	resp, err := f.client.Do(req)
	if err != nil {
		return "", nil, fmt.Errorf("fetch: %w: %w", rag.ErrDownload, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Warn("fetch: non-success status", slog.Int("status", resp.StatusCode))
		return "", nil, &rag.DownloadError{URL: rawURL, StatusCode: resp.StatusCode}
	}
	if resp.ContentLength > f.cfg.MaxBytes {
		return "", nil, fmt.Errorf("fetch: %w: document is %d bytes, limit is %d", rag.ErrDownload, resp.ContentLength, f.cfg.MaxBytes)
	}

	tmp, err := os.CreateTemp(f.cfg.TempDir, "pdfrag-*.pdf")
	if err != nil {
		return "", nil, fmt.Errorf("fetch: creating temp file: %w", err)
	}
	remove := func() {
		if rerr := os.Remove(tmp.Name()); rerr != nil && !errors.Is(rerr, os.ErrNotExist) {
			log.Warn("fetch: failed to remove temp file", slog.String("path", tmp.Name()), slog.Any("error", rerr))
		}
	}

	n, err := f.copyBody(tmp, resp.Body)
	if cerr := tmp.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("fetch: closing temp file: %w", cerr)
	}
	if err != nil {
		remove()
		return "", nil, err
	}

	log.Debug("fetch: downloaded",
		slog.Int64("bytes", n),
		slog.Duration("duration", time.Since(start)),
	)
	return tmp.Name(), remove, nil
}

// copyBody streams body into dst, enforcing the size cap and checking the
// PDF marker in the leading bytes.
func (f *Fetcher) copyBody(dst io.Writer, body io.Reader) (int64, error) {
	limited := io.LimitReader(body, f.cfg.MaxBytes+1)

	head := make([]byte, sniffLen)
	hn, err := io.ReadFull(limited, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return 0, fmt.Errorf("fetch: %w: reading body: %w", rag.ErrDownload, err)
	}
	head = head[:hn]
	if !bytes.Contains(head, pdfMagic) {
		return 0, fmt.Errorf("fetch: %w: response is not a PDF document", rag.ErrDownload)
	}
	if _, err := dst.Write(head); err != nil {
		return 0, fmt.Errorf("fetch: writing temp file: %w", err)
	}

	rest, err := io.Copy(dst, limited)
	if err != nil {
		return 0, fmt.Errorf("fetch: %w: reading body: %w", rag.ErrDownload, err)
	}
	total := int64(hn) + rest
	if total > f.cfg.MaxBytes {
		return 0, fmt.Errorf("fetch: %w: document exceeds %d bytes", rag.ErrDownload, f.cfg.MaxBytes)
	}
	return total, nil
}
