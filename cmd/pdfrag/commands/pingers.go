package commands

import (
	"log/slog"
	"os"
	"strings"

	"github.com/54b3r/pdfrag-go/internal/embedder"
	"github.com/54b3r/pdfrag-go/internal/server"
)

// buildPingers returns the readiness probes for the configured backends:
// Qdrant when it holds the index, and the embedding backend when it has a
// token-free listing endpoint.
func buildPingers(a *app, log *slog.Logger) []server.Pinger {
	var pingers []server.Pinger
	if a.qdrant != nil {
		pingers = append(pingers, server.NewQdrantPinger(a.qdrant.Client()))
	}
	if p := embeddingPinger(embedder.Backend()); p != nil {
		pingers = append(pingers, p)
	} else {
		log.Debug("readiness: no probe for embedding backend", slog.String("backend", embedder.Backend()))
	}
	return pingers
}

// embeddingPinger probes Ollama's model list or an OpenAI-compatible
// /models endpoint. Other backends have no cheap probe.
func embeddingPinger(backend string) server.Pinger {
	switch backend {
	case "ollama":
		host := os.Getenv("EMBEDDING_ENDPOINT")
		if host == "" {
			host = envOr("OLLAMA_HOST", "http://localhost:11434")
		}
		return server.NewHTTPPinger("ollama", strings.TrimRight(host, "/")+"/api/tags", nil)
	case "openai":
		key := os.Getenv("EMBEDDING_API_KEY")
		if key == "" {
			key = os.Getenv("OPENAI_API_KEY")
		}
		base := os.Getenv("EMBEDDING_ENDPOINT")
		if base == "" {
			base = envOr("OPENAI_BASE_URL", "https://api.openai.com/v1")
		}
		return server.NewHTTPPinger("openai", strings.TrimRight(base, "/")+"/models",
			map[string]string{"Authorization": "Bearer " + key})
	default:
		return nil
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
