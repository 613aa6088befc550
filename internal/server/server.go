// Package server exposes the MCP tool server over streamable HTTP, with
// request logging, bearer authentication, per-IP rate limiting, health and
// readiness probes, and Prometheus metrics. It is started by
// `pdfrag serve --http`.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/54b3r/pdfrag-go/internal/logging"
)

// New constructs a Server that serves mcpHandler at /mcp.
func New(mcpHandler http.Handler, sources SourceLister, cfg *Config) (*Server, error) {
	if mcpHandler == nil {
		return nil, fmt.Errorf("server: mcp handler must not be nil")
	}
	if sources == nil {
		return nil, fmt.Errorf("server: source lister must not be nil")
	}
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 30 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		// Covers download + extraction + summary + embedding of a large PDF.
		cfg.WriteTimeout = 10 * time.Minute
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = defaultRateLimit
	}
	if cfg.RateBurst == 0 {
		cfg.RateBurst = defaultRateBurst
	}
	if cfg.MetricsRegistry == nil {
		cfg.MetricsRegistry = prometheus.DefaultRegisterer
	}
	if cfg.MetricsGatherer == nil {
		cfg.MetricsGatherer = prometheus.DefaultGatherer
	}
	log := cfg.Logger
	if log == nil {
		log = logging.New()
	}

	s := &Server{
		mcp:     mcpHandler,
		sources: sources,
		cfg:     cfg,
		log:     log,
		pingers: cfg.Pingers,
		metrics: newServerMetrics(cfg.MetricsRegistry),
	}

	if cfg.APIKey == "" {
		log.Warn("server: PDFRAG_API_KEY is not set, authentication is disabled")
	}

	rl, stop := newRateLimiter(cfg.RateLimit, cfg.RateBurst, log)
	s.stopRL = stop

	s.httpServer = &http.Server{
		Addr:              net.JoinHostPort(cfg.Host, fmt.Sprintf("%d", cfg.Port)),
		Handler:           s.routes(rl),
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.WriteTimeout,
	}

	return s, nil
}

// routes builds the mux. /mcp is rate limited and authenticated; the probes
// and /metrics are open so orchestrators can scrape them.
func (s *Server) routes(rl *rateLimiter) http.Handler {
	mux := http.NewServeMux()

	protected := func(name string, h http.Handler) http.Handler {
		return s.instrument(name, rl.middleware(authMiddleware(s.cfg.APIKey, h)))
	}

	mux.Handle("/mcp", protected("mcp", s.mcp))
	mux.Handle("GET /api/documents", protected("documents", http.HandlerFunc(s.handleDocuments)))
	mux.Handle("GET /api/health", s.instrument("health", http.HandlerFunc(s.handleHealth)))
	mux.Handle("GET /api/ready", s.instrument("ready", http.HandlerFunc(s.handleReady)))
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.cfg.MetricsGatherer, promhttp.HandlerOpts{}))

	return requestLogger(s.log, mux)
}

// Handler returns the fully wrapped HTTP handler. Used by tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Start begins listening and serving HTTP requests. It blocks until the
// context is cancelled, then performs a graceful shutdown.
func (s *Server) Start(ctx context.Context) error {
	defer s.stopRL()

	errCh := make(chan error, 1)

	go func() {
		s.log.Info("server: listening",
			slog.String("addr", s.httpServer.Addr),
			slog.String("mcp_endpoint", "http://"+s.httpServer.Addr+"/mcp"),
		)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server: listen error: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.ShutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server: graceful shutdown failed: %w", err)
		}
		return nil
	}
}

// handleHealth handles GET /api/health for liveness checks.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]string{"status": "ok"}); err != nil {
		logging.FromContext(r.Context()).Error("health encode error", slog.Any("error", err))
	}
}

// handleDocuments handles GET /api/documents, listing ingested sources.
func (s *Server) handleDocuments(w http.ResponseWriter, r *http.Request) {
	infos := s.sources.Sources()
	resp := documentsResponse{
		Documents:   make([]documentInfo, len(infos)),
		TotalChunks: s.sources.Len(),
	}
	for i, info := range infos {
		resp.Documents[i] = documentInfo{
			Source:     info.SourceID,
			Chunks:     info.Chunks,
			Ingestions: info.Ingestions,
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logging.FromContext(r.Context()).Error("documents encode error", slog.Any("error", err))
	}
}
