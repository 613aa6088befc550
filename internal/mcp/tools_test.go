package mcp

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/54b3r/pdfrag-go/internal/rag"
	"github.com/54b3r/pdfrag-go/internal/retrieval"
)

func newTestServer(t *testing.T, ing *mockIngester, ret *mockRetriever) *Server {
	t.Helper()
	s, err := NewServer(&Ports{Ingester: ing, Retriever: ret})
	require.NoError(t, err)
	return s
}

// texts returns the text of every content item in res.
func texts(t *testing.T, res *mcp.CallToolResult) []string {
	t.Helper()
	require.NotNil(t, res)
	out := make([]string, 0, len(res.Content))
	for _, c := range res.Content {
		tc, ok := c.(*mcp.TextContent)
		require.True(t, ok, "unexpected content type %T", c)
		out = append(out, tc.Text)
	}
	return out
}

func TestServer_handleIngestPDF(t *testing.T) {
	ctx := context.Background()

	t.Run("confirms ingestion with summary", func(t *testing.T) {
		ing := &mockIngester{result: &retrieval.IngestResult{
			SourceID:    "/docs/report.pdf",
			Chunks:      4,
			TotalChunks: 10,
			Summary:     "A quarterly report.",
		}}
		s := newTestServer(t, ing, &mockRetriever{})

		res, _, err := s.handleIngestPDF(ctx, nil, LocalPDFInput{PDFPath: "/docs/report.pdf", Pages: "1,-1"})
		require.NoError(t, err)
		assert.False(t, res.IsError)

		got := texts(t, res)
		require.Len(t, got, 1)
		assert.Contains(t, got[0], "report.pdf")
		assert.Contains(t, got[0], "4 chunks added")
		assert.Contains(t, got[0], "10 chunks in the index")
		assert.Contains(t, got[0], "A quarterly report.")
		assert.Equal(t, []string{"ingest-local:/docs/report.pdf:1,-1"}, ing.calls)
	})

	t.Run("zero chunks is reported", func(t *testing.T) {
		ing := &mockIngester{result: &retrieval.IngestResult{SourceID: "blank.pdf"}}
		s := newTestServer(t, ing, &mockRetriever{})

		res, _, err := s.handleIngestPDF(ctx, nil, LocalPDFInput{PDFPath: "blank.pdf"})
		require.NoError(t, err)
		assert.Contains(t, texts(t, res)[0], "No text was found")
	})

	t.Run("failure is a tool error", func(t *testing.T) {
		ing := &mockIngester{err: fmt.Errorf("ingestion: %w", rag.Invalid("page 9 out of range"))}
		s := newTestServer(t, ing, &mockRetriever{})

		res, _, err := s.handleIngestPDF(ctx, nil, LocalPDFInput{PDFPath: "a.pdf", Pages: "9"})
		require.NoError(t, err)
		assert.True(t, res.IsError)
		assert.Contains(t, texts(t, res)[0], "page 9 out of range")
	})
}

func TestServer_handleIngestPDFFromURL(t *testing.T) {
	ctx := context.Background()

	t.Run("passes url and pages", func(t *testing.T) {
		ing := &mockIngester{result: &retrieval.IngestResult{SourceID: "https://example.com/a.pdf", Chunks: 2, TotalChunks: 2}}
		s := newTestServer(t, ing, &mockRetriever{})

		res, _, err := s.handleIngestPDFFromURL(ctx, nil, RemotePDFInput{PDFURL: "https://example.com/a.pdf", Pages: "2"})
		require.NoError(t, err)
		assert.False(t, res.IsError)
		assert.Equal(t, []string{"ingest-url:https://example.com/a.pdf:2"}, ing.calls)
		assert.Contains(t, texts(t, res)[0], "a.pdf (https://example.com/a.pdf)")
	})

	t.Run("download status surfaces in message", func(t *testing.T) {
		ing := &mockIngester{err: &rag.DownloadError{URL: "https://example.com/x.pdf", StatusCode: 404}}
		s := newTestServer(t, ing, &mockRetriever{})

		res, _, err := s.handleIngestPDFFromURL(ctx, nil, RemotePDFInput{PDFURL: "https://example.com/x.pdf"})
		require.NoError(t, err)
		assert.True(t, res.IsError)
		assert.Contains(t, texts(t, res)[0], "404")
	})
}

func TestServer_handleQueryDocuments(t *testing.T) {
	ctx := context.Background()

	t.Run("returns texts in order", func(t *testing.T) {
		ret := &mockRetriever{texts: []string{"best", "second", "third"}}
		s := newTestServer(t, &mockIngester{}, ret)

		res, _, err := s.handleQueryDocuments(ctx, nil, QueryInput{Query: "q", Source: "a.pdf", TopK: 3})
		require.NoError(t, err)
		assert.False(t, res.IsError)
		assert.Equal(t, []string{"best", "second", "third"}, texts(t, res))
		assert.Equal(t, 3, ret.gotK)
		assert.Equal(t, "a.pdf", ret.gotSource)
	})

	t.Run("no matches", func(t *testing.T) {
		s := newTestServer(t, &mockIngester{}, &mockRetriever{})

		res, _, err := s.handleQueryDocuments(ctx, nil, QueryInput{Query: "q"})
		require.NoError(t, err)
		assert.False(t, res.IsError)
		assert.Equal(t, []string{"No matching chunks found."}, texts(t, res))
	})

	t.Run("index not ready is a tool error", func(t *testing.T) {
		ret := &mockRetriever{err: fmt.Errorf("retrieval: query: %w", rag.ErrIndexNotReady)}
		s := newTestServer(t, &mockIngester{}, ret)

		res, _, err := s.handleQueryDocuments(ctx, nil, QueryInput{Query: "q"})
		require.NoError(t, err)
		assert.True(t, res.IsError)
	})
}

func TestServer_handleGetSummary(t *testing.T) {
	ctx := context.Background()

	t.Run("returns stored summary", func(t *testing.T) {
		ret := &mockRetriever{summaries: map[string]string{"a.pdf": "About A."}}
		s := newTestServer(t, &mockIngester{}, ret)

		res, _, err := s.handleGetSummary(ctx, nil, SummaryInput{Source: "a.pdf"})
		require.NoError(t, err)
		assert.Equal(t, []string{"About A."}, texts(t, res))
	})

	t.Run("summaries disabled", func(t *testing.T) {
		ret := &mockRetriever{summaries: map[string]string{"a.pdf": ""}}
		s := newTestServer(t, &mockIngester{}, ret)

		res, _, err := s.handleGetSummary(ctx, nil, SummaryInput{Source: "a.pdf"})
		require.NoError(t, err)
		assert.False(t, res.IsError)
		assert.Contains(t, texts(t, res)[0], "No summary was generated for a.pdf")
	})

	t.Run("unknown source", func(t *testing.T) {
		ret := &mockRetriever{err: rag.Invalid("no document ingested for source %q", "x.pdf")}
		s := newTestServer(t, &mockIngester{}, ret)

		res, _, err := s.handleGetSummary(ctx, nil, SummaryInput{Source: "x.pdf"})
		require.NoError(t, err)
		assert.True(t, res.IsError)
		assert.Contains(t, texts(t, res)[0], "no document ingested")
	})
}

func TestServer_handleExtract(t *testing.T) {
	ctx := context.Background()

	t.Run("local", func(t *testing.T) {
		ing := &mockIngester{text: "page one\n\npage two"}
		s := newTestServer(t, ing, &mockRetriever{})

		res, _, err := s.handleExtractPDF(ctx, nil, LocalPDFInput{PDFPath: "a.pdf"})
		require.NoError(t, err)
		assert.Equal(t, []string{"page one\n\npage two"}, texts(t, res))
	})

	t.Run("url failure", func(t *testing.T) {
		ing := &mockIngester{err: errors.New("ingestion: extract: pdf: extraction failed")}
		s := newTestServer(t, ing, &mockRetriever{})

		res, _, err := s.handleExtractPDFFromURL(ctx, nil, RemotePDFInput{PDFURL: "https://example.com/a.pdf"})
		require.NoError(t, err)
		assert.True(t, res.IsError)
		assert.Equal(t, []string{"extract-url:https://example.com/a.pdf:"}, ing.calls)
	})
}

func TestServer_InMemorySession(t *testing.T) {
	ctx := context.Background()
	ing := &mockIngester{result: &retrieval.IngestResult{SourceID: "a.pdf", Chunks: 1, TotalChunks: 1}}
	ret := &mockRetriever{texts: []string{"chunk"}}
	s := newTestServer(t, ing, ret)

	serverTransport, clientTransport := mcp.NewInMemoryTransports()
	ss, err := s.Connect(ctx, serverTransport)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ss.Close() })

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)
	cs, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cs.Close() })

	tools, err := cs.ListTools(ctx, nil)
	require.NoError(t, err)
	names := make([]string, 0, len(tools.Tools))
	for _, tool := range tools.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{
		ToolIngestPDF, ToolIngestPDFFromURL, ToolQueryDocuments,
		ToolGetSummary, ToolExtractPDF, ToolExtractPDFURL,
	}, names)

	res, err := cs.CallTool(ctx, &mcp.CallToolParams{
		Name:      ToolQueryDocuments,
		Arguments: map[string]any{"query": "hello", "top_k": 2},
	})
	require.NoError(t, err)
	assert.False(t, res.IsError)
	require.Len(t, res.Content, 1)
	assert.Equal(t, "chunk", res.Content[0].(*mcp.TextContent).Text)
	assert.Equal(t, 2, ret.gotK)

	res, err = cs.CallTool(ctx, &mcp.CallToolParams{
		Name:      ToolIngestPDF,
		Arguments: map[string]any{"pdf_path": "a.pdf"},
	})
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.Contains(t, res.Content[0].(*mcp.TextContent).Text, "1 chunks added")
}
