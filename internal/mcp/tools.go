package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/54b3r/pdfrag-go/internal/ingestion"
	"github.com/54b3r/pdfrag-go/internal/logging"
	"github.com/54b3r/pdfrag-go/internal/retrieval"
)

// Tool names.
const (
	ToolIngestPDF        = "ingest-pdf"
	ToolIngestPDFFromURL = "ingest-pdf-from-url"
	ToolQueryDocuments   = "query-documents"
	ToolGetSummary       = "get-summary"
	ToolExtractPDF       = "extract-pdf-contents"
	ToolExtractPDFURL    = "extract-pdf-from-url"
)

// pagesDescription is shared by every tool that accepts a page selection.
const pagesDescription = "comma-separated 1-based page numbers; negative numbers count from the end (-1 is the last page); omit for all pages"

// LocalPDFInput is the input schema for the local-file tools.
type LocalPDFInput struct {
	PDFPath string `json:"pdf_path" jsonschema:"path of the PDF file on the server's filesystem"`
	Pages   string `json:"pages,omitempty" jsonschema:"comma-separated page numbers, negative counts from the end"`
}

// RemotePDFInput is the input schema for the URL tools.
type RemotePDFInput struct {
	PDFURL string `json:"pdf_url" jsonschema:"http or https URL of the PDF to download"`
	Pages  string `json:"pages,omitempty" jsonschema:"comma-separated page numbers, negative counts from the end"`
}

// QueryInput is the input schema for query-documents.
type QueryInput struct {
	Query  string `json:"query" jsonschema:"natural-language text to match against indexed chunks"`
	Source string `json:"source,omitempty" jsonschema:"only return chunks ingested from this path or URL"`
	TopK   int    `json:"top_k,omitempty" jsonschema:"number of nearest chunks to search (default 5)"`
}

// SummaryInput is the input schema for get-summary.
type SummaryInput struct {
	Source string `json:"source" jsonschema:"path or URL the document was ingested from"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        ToolIngestPDF,
		Description: "Extract a local PDF, split it into chunks, summarize it and add it to the searchable index. Pages: " + pagesDescription + ".",
	}, s.handleIngestPDF)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        ToolIngestPDFFromURL,
		Description: "Download a PDF from a URL, then extract, chunk, summarize and add it to the searchable index. Pages: " + pagesDescription + ".",
	}, s.handleIngestPDFFromURL)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        ToolQueryDocuments,
		Description: "Return the indexed chunks most similar to a query, best match first, optionally restricted to one source.",
	}, s.handleQueryDocuments)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        ToolGetSummary,
		Description: "Return the generated summary of an ingested document.",
	}, s.handleGetSummary)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        ToolExtractPDF,
		Description: "Extract contents from a local PDF file without indexing it. Pages: " + pagesDescription + ".",
	}, s.handleExtractPDF)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        ToolExtractPDFURL,
		Description: "Download a PDF from a URL and extract its contents without indexing it. Pages: " + pagesDescription + ".",
	}, s.handleExtractPDFFromURL)
}

func (s *Server) handleIngestPDF(ctx context.Context, _ *mcp.CallToolRequest, in LocalPDFInput) (*mcp.CallToolResult, any, error) {
	res, err := s.ports.Ingester.IngestLocal(ctx, in.PDFPath, in.Pages)
	if err != nil {
		return toolError(ctx, ToolIngestPDF, err), nil, nil
	}
	return textResult(ingestConfirmation(res)), nil, nil
}

func (s *Server) handleIngestPDFFromURL(ctx context.Context, _ *mcp.CallToolRequest, in RemotePDFInput) (*mcp.CallToolResult, any, error) {
	res, err := s.ports.Ingester.IngestURL(ctx, in.PDFURL, in.Pages)
	if err != nil {
		return toolError(ctx, ToolIngestPDFFromURL, err), nil, nil
	}
	return textResult(ingestConfirmation(res)), nil, nil
}

func (s *Server) handleQueryDocuments(ctx context.Context, _ *mcp.CallToolRequest, in QueryInput) (*mcp.CallToolResult, any, error) {
	texts, err := s.ports.Retriever.Query(ctx, in.Query, in.TopK, in.Source)
	if err != nil {
		return toolError(ctx, ToolQueryDocuments, err), nil, nil
	}
	if len(texts) == 0 {
		return textResult("No matching chunks found."), nil, nil
	}
	return textResult(texts...), nil, nil
}

func (s *Server) handleGetSummary(ctx context.Context, _ *mcp.CallToolRequest, in SummaryInput) (*mcp.CallToolResult, any, error) {
	summary, err := s.ports.Retriever.Summary(in.Source)
	if err != nil {
		return toolError(ctx, ToolGetSummary, err), nil, nil
	}
	if summary == "" {
		return textResult(fmt.Sprintf("No summary was generated for %s.", in.Source)), nil, nil
	}
	return textResult(summary), nil, nil
}

func (s *Server) handleExtractPDF(ctx context.Context, _ *mcp.CallToolRequest, in LocalPDFInput) (*mcp.CallToolResult, any, error) {
	text, err := s.ports.Ingester.ExtractLocal(ctx, in.PDFPath, in.Pages)
	if err != nil {
		return toolError(ctx, ToolExtractPDF, err), nil, nil
	}
	return textResult(text), nil, nil
}

func (s *Server) handleExtractPDFFromURL(ctx context.Context, _ *mcp.CallToolRequest, in RemotePDFInput) (*mcp.CallToolResult, any, error) {
	text, err := s.ports.Ingester.ExtractURL(ctx, in.PDFURL, in.Pages)
	if err != nil {
		return toolError(ctx, ToolExtractPDFURL, err), nil, nil
	}
	return textResult(text), nil, nil
}

// ingestConfirmation renders the text returned by the ingest tools.
func ingestConfirmation(res *retrieval.IngestResult) string {
	info := ingestion.InferSource(res.SourceID)
	var b strings.Builder
	fmt.Fprintf(&b, "Ingested %s (%s): %d chunks added, %d chunks in the index.",
		info.Title, res.SourceID, res.Chunks, res.TotalChunks)
	if res.Chunks == 0 {
		b.WriteString(" No text was found on the selected pages.")
	}
	if res.Summary != "" {
		b.WriteString("\n\nSummary:\n")
		b.WriteString(res.Summary)
	}
	return b.String()
}

// textResult builds a successful result with one text item per part.
func textResult(parts ...string) *mcp.CallToolResult {
	content := make([]mcp.Content, len(parts))
	for i, p := range parts {
		content[i] = &mcp.TextContent{Text: p}
	}
	return &mcp.CallToolResult{Content: content}
}

// toolError reports err to the client as a tool-level error so the
// assistant sees the message instead of a protocol failure.
func toolError(ctx context.Context, tool string, err error) *mcp.CallToolResult {
	logging.FromContext(ctx).Warn("mcp: tool call failed",
		slog.String("tool", tool),
		slog.Any("error", err),
	)
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: err.Error()}},
	}
}
