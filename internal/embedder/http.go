package embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// maxResponseBytes bounds an embedding response body. A batch of 64 texts at
// 3072 dimensions is well under 8 MiB of JSON.
const maxResponseBytes = 64 << 20

// apiReply is implemented by response bodies that can carry an error message.
type apiReply interface {
	errorMessage() string
}

// postJSON POSTs body as JSON and decodes the reply into out. Non-2xx
// statuses are reported with the backend's own message when it sent one.
func postJSON(ctx context.Context, client *http.Client, url string, headers map[string]string, body any, out apiReply) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	ok := resp.StatusCode >= 200 && resp.StatusCode < 300
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(out); err != nil {
		if !ok {
			return fmt.Errorf("HTTP %d: decode response: %w", resp.StatusCode, err)
		}
		return fmt.Errorf("decode response: %w", err)
	}
	if !ok {
		if msg := out.errorMessage(); msg != "" {
			return fmt.Errorf("HTTP %d: %s", resp.StatusCode, msg)
		}
		return fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	return nil
}

// checkVectors verifies one non-empty vector per input text.
func checkVectors(vecs [][]float32, want int) error {
	if len(vecs) != want {
		return fmt.Errorf("expected %d embeddings, got %d", want, len(vecs))
	}
	for i, v := range vecs {
		if len(v) == 0 {
			return fmt.Errorf("embedding %d is empty", i)
		}
	}
	return nil
}
