// Package mcp exposes the document index as Model Context Protocol tools.
// The server runs over stdio for local assistants or behind the HTTP
// server as a streamable HTTP handler.
package mcp

import "errors"

// ErrMissingIngester is returned when no ingestion pipeline is provided.
var ErrMissingIngester = errors.New("mcp: ingester is required")

// ErrMissingRetriever is returned when no retrieval service is provided.
var ErrMissingRetriever = errors.New("mcp: retriever is required")
