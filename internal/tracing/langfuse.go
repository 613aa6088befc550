// Package tracing wires optional Langfuse tracing into the summarization
// chat model calls.
package tracing

import (
	"os"

	"github.com/cloudwego/eino-ext/callbacks/langfuse"
	"github.com/cloudwego/eino/callbacks"

	"github.com/54b3r/pdfrag-go/internal/version"
)

// DefaultHost is used when LANGFUSE_HOST is unset.
const DefaultHost = "http://localhost:3000"

// Enabled reports whether both Langfuse keys are present.
func Enabled() bool {
	return os.Getenv("LANGFUSE_PUBLIC_KEY") != "" && os.Getenv("LANGFUSE_SECRET_KEY") != ""
}

// Setup initialises the Langfuse callback handler when LANGFUSE_PUBLIC_KEY
// and LANGFUSE_SECRET_KEY are set. The returned flush func must run before
// process exit. When Langfuse is not configured it returns nil, nil, false.
func Setup() (callbacks.Handler, func(), bool) {
	if !Enabled() {
		return nil, nil, false
	}
	host := os.Getenv("LANGFUSE_HOST")
	if host == "" {
		host = DefaultHost
	}

	handler, flusher := langfuse.NewLangfuseHandler(&langfuse.Config{
		Host:      host,
		PublicKey: os.Getenv("LANGFUSE_PUBLIC_KEY"),
		SecretKey: os.Getenv("LANGFUSE_SECRET_KEY"),
		Name:      "pdfrag",
		Release:   version.Version,
	})
	return handler, flusher, true
}
