//go:build integration

package embedder

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/54b3r/pdfrag-go/internal/rag"
)

// TestOllamaEmbedder_Retrieval embeds a handful of chunks against a running
// Ollama and checks that a paraphrased query lands on the right one.
//
//	ollama pull nomic-embed-text
//	go test -tags=integration -run Retrieval ./internal/embedder/
//
// OLLAMA_HOST and EMBEDDING_MODEL override the defaults.
func TestOllamaEmbedder_Retrieval(t *testing.T) {
	def := backends["ollama"]
	host := envOr("OLLAMA_HOST", def.defaultEndpoint)
	model := envOr("EMBEDDING_MODEL", def.model)

	emb := NewOllamaEmbedder(&OllamaConfig{Host: host, Model: model})
	ix, err := rag.NewMemoryIndex(emb, rag.BatchConfig{Size: 2, Concurrency: 2})
	if err != nil {
		t.Fatalf("NewMemoryIndex: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	records := []rag.Record{
		{Seq: 0, SourceID: "handbook.pdf", Text: "Invoices are due thirty days after the billing date."},
		{Seq: 1, SourceID: "handbook.pdf", Text: "The reactor cooling loop is inspected every quarter."},
		{Seq: 2, SourceID: "handbook.pdf", Text: "Employees may carry over five days of unused leave."},
	}
	if err := ix.Rebuild(ctx, records); err != nil {
		t.Fatalf("Rebuild: %v (is Ollama running at %s with %q pulled?)", err, host, model)
	}

	hits, err := ix.Search(ctx, "When do I have to pay a bill?", 1)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 1 || hits[0].Record.Seq != 0 {
		t.Fatalf("nearest chunk = %+v, want the invoice chunk", hits)
	}
	t.Logf("model=%s distance=%.4f", model, hits[0].Distance)

	if os.Getenv("EMBEDDING_DIMENSIONS") == "" {
		vecs, err := emb.Embed(ctx, []string{records[0].Text})
		if err != nil {
			t.Fatalf("Embed: %v", err)
		}
		if got := len(vecs[0]); got != DefaultDimensions("ollama") && model == def.model {
			t.Errorf("dimension = %d, want %d for %s", got, DefaultDimensions("ollama"), model)
		}
	}
}
