package mcp

import (
	"context"
	"sync"

	"github.com/54b3r/pdfrag-go/internal/retrieval"
)

// mockIngester records calls and returns canned values.
type mockIngester struct {
	result *retrieval.IngestResult
	text   string
	err    error

	mu    sync.Mutex
	calls []string
}

func (m *mockIngester) record(call string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, call)
}

func (m *mockIngester) IngestLocal(_ context.Context, path, pages string) (*retrieval.IngestResult, error) {
	m.record("ingest-local:" + path + ":" + pages)
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

func (m *mockIngester) IngestURL(_ context.Context, rawURL, pages string) (*retrieval.IngestResult, error) {
	m.record("ingest-url:" + rawURL + ":" + pages)
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

func (m *mockIngester) ExtractLocal(_ context.Context, path, pages string) (string, error) {
	m.record("extract-local:" + path + ":" + pages)
	return m.text, m.err
}

func (m *mockIngester) ExtractURL(_ context.Context, rawURL, pages string) (string, error) {
	m.record("extract-url:" + rawURL + ":" + pages)
	return m.text, m.err
}

// mockRetriever returns canned query results and summaries.
type mockRetriever struct {
	texts     []string
	summaries map[string]string
	err       error

	gotK      int
	gotSource string
}

func (m *mockRetriever) Query(_ context.Context, _ string, k int, filterSourceID string) ([]string, error) {
	m.gotK, m.gotSource = k, filterSourceID
	if m.err != nil {
		return nil, m.err
	}
	return m.texts, nil
}

func (m *mockRetriever) Summary(sourceID string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	return m.summaries[sourceID], nil
}
