package server

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/qdrant/go-client/qdrant"
)

// QdrantPinger probes a Qdrant instance using its native HealthCheck RPC.
type QdrantPinger struct {
	// client is the Qdrant gRPC client to probe.
	client *qdrant.Client
}

// NewQdrantPinger constructs a QdrantPinger for the given Qdrant client.
func NewQdrantPinger(client *qdrant.Client) *QdrantPinger {
	return &QdrantPinger{client: client}
}

// Name returns the dependency label used in readiness responses.
func (p *QdrantPinger) Name() string { return "qdrant" }

// Ping calls the Qdrant HealthCheck RPC.
func (p *QdrantPinger) Ping(ctx context.Context) error {
	if _, err := p.client.HealthCheck(ctx); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	return nil
}

// HTTPPinger probes a model backend with a GET that costs no tokens, such
// as Ollama's /api/tags or an OpenAI-compatible /models listing.
type HTTPPinger struct {
	// name identifies the backend in readiness responses.
	name string
	// url is the probe endpoint.
	url string
	// headers are added to every probe (e.g. Authorization, api-key).
	headers map[string]string
	// client performs the probe; the per-probe context bounds it.
	client *http.Client
}

// NewHTTPPinger constructs an HTTPPinger. headers may be nil.
func NewHTTPPinger(name, url string, headers map[string]string) *HTTPPinger {
	return &HTTPPinger{name: name, url: url, headers: headers, client: &http.Client{}}
}

// Name returns the backend label used in readiness responses.
func (p *HTTPPinger) Name() string { return p.name }

// Ping succeeds on any 2xx response.
func (p *HTTPPinger) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	for k, v := range p.headers {
		req.Header.Set(k, v)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}
