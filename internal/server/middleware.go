package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/54b3r/pdfrag-go/internal/logging"
)

// requestIDHeader carries the request id back to the client, and is
// honoured when a proxy already assigned one.
const requestIDHeader = "X-Request-Id"

// mcpSessionHeader is the streamable HTTP session header.
const mcpSessionHeader = "Mcp-Session-Id"

// requestLogger is an [http.Handler] middleware that assigns a request id,
// injects a child [*slog.Logger] carrying it into the request context, and
// logs method, path, status and latency on completion.
func requestLogger(base *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get(requestIDHeader)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, reqID)

		log := base.With(
			slog.String("request_id", reqID),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
		)
		if sid := r.Header.Get(mcpSessionHeader); sid != "" {
			log = log.With(slog.String("mcp_session", sid))
		}

		r = r.WithContext(logging.WithLogger(r.Context(), log))
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}

		start := time.Now()
		next.ServeHTTP(rw, r)

		log.Info("request",
			slog.Int("status", rw.status),
			slog.Duration("duration", time.Since(start)),
		)
	})
}

// responseWriter wraps [http.ResponseWriter] to capture the status code.
// It forwards Flush so streamed MCP responses are not buffered.
type responseWriter struct {
	http.ResponseWriter
	// status is the HTTP status code sent to the client.
	status int
}

// WriteHeader captures the status code before delegating to the underlying writer.
func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

// Flush implements [http.Flusher] when the underlying writer does.
func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap lets [http.ResponseController] reach the underlying writer.
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}
