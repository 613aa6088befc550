package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/54b3r/pdfrag-go/internal/rag"
)

// Config holds the HTTP server configuration.
type Config struct {
	// Host is the address to bind to (default: 127.0.0.1).
	Host string
	// Port is the TCP port to listen on (default: 8080).
	Port int
	// ReadTimeout is the maximum duration for reading the request.
	ReadTimeout time.Duration
	// WriteTimeout is the maximum duration for writing the response. It must
	// cover the slowest tool call (a large ingestion). Defaults to 10 minutes.
	WriteTimeout time.Duration
	// ShutdownTimeout is the maximum duration for a graceful shutdown.
	ShutdownTimeout time.Duration
	// Logger is the structured logger used by the server and its handlers.
	// If nil, [logging.New] is used.
	Logger *slog.Logger
	// Pingers is the ordered list of dependency probes run by GET /api/ready.
	// If empty, /api/ready returns 200 with no checks (liveness-only mode).
	Pingers []Pinger
	// RateLimit is the sustained request rate allowed per IP on /mcp
	// (requests/second). Defaults to 10 if zero.
	RateLimit float64
	// RateBurst is the maximum instantaneous burst per IP. Defaults to 20 if zero.
	RateBurst int
	// APIKey is the Bearer token required on /mcp and /api/documents.
	// If empty, authentication is disabled (development mode).
	APIKey string
	// MetricsRegistry receives the server's collectors. Defaults to
	// prometheus.DefaultRegisterer.
	MetricsRegistry prometheus.Registerer
	// MetricsGatherer backs GET /metrics. Defaults to
	// prometheus.DefaultGatherer.
	MetricsGatherer prometheus.Gatherer
}

// SourceLister reports the documents currently in the index.
// *retrieval.Service satisfies it.
type SourceLister interface {
	Sources() []rag.SourceInfo
	Len() int
}

// Server is the HTTP front end for the MCP tool server.
type Server struct {
	// mcp is the streamable HTTP handler for the tool protocol.
	mcp http.Handler
	// sources backs GET /api/documents.
	sources SourceLister
	// cfg holds the resolved server configuration.
	cfg *Config
	// httpServer is the underlying net/http server.
	httpServer *http.Server
	// log is the structured logger for this server instance.
	log *slog.Logger
	// pingers is the ordered list of dependency probes for GET /api/ready.
	pingers []Pinger
	// metrics holds the Prometheus collectors owned by the server.
	metrics *serverMetrics
	// stopRL stops the rate limiter's background eviction goroutine on shutdown.
	stopRL func()
}

// documentInfo is one entry of the GET /api/documents response.
type documentInfo struct {
	// Source is the path or URL the document was ingested from.
	Source string `json:"source"`
	// Chunks is the number of indexed chunks carrying this source.
	Chunks int `json:"chunks"`
	// Ingestions counts how many times the source was ingested.
	Ingestions int `json:"ingestions"`
}

// documentsResponse is the JSON body returned by GET /api/documents.
type documentsResponse struct {
	// Documents lists every ingested source in first-ingestion order.
	Documents []documentInfo `json:"documents"`
	// TotalChunks is the size of the index.
	TotalChunks int `json:"totalChunks"`
}
