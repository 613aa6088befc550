package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/cloudwego/eino/callbacks"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/54b3r/pdfrag-go/internal/config"
	"github.com/54b3r/pdfrag-go/internal/embedder"
	"github.com/54b3r/pdfrag-go/internal/fetch"
	"github.com/54b3r/pdfrag-go/internal/ingestion"
	"github.com/54b3r/pdfrag-go/internal/pdf"
	"github.com/54b3r/pdfrag-go/internal/provider"
	"github.com/54b3r/pdfrag-go/internal/rag"
	"github.com/54b3r/pdfrag-go/internal/retrieval"
	"github.com/54b3r/pdfrag-go/internal/store"
	"github.com/54b3r/pdfrag-go/internal/summarizer"
	"github.com/54b3r/pdfrag-go/internal/tracing"
)

// app is the assembled ingestion and retrieval stack shared by serve and
// query.
type app struct {
	settings *config.Settings
	service  *retrieval.Service
	pipeline *ingestion.Pipeline

	// qdrant is set when INDEX_BACKEND=qdrant, for the readiness probe.
	qdrant *rag.QdrantIndex

	closers []func()
}

// appOptions tunes buildApp for the calling command.
type appOptions struct {
	// registry receives retrieval metrics. Nil disables them.
	registry prometheus.Registerer
	// journal opens the SQLite journal unless PDFRAG_JOURNAL_DB=disabled.
	journal bool
}

// Close releases everything buildApp opened, in reverse order.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// buildApp wires embedder, vector index, summarizer, retrieval service,
// journal and ingestion pipeline from the environment.
func buildApp(ctx context.Context, log *slog.Logger, opts appOptions) (_ *app, err error) {
	settings, err := config.FromEnv()
	if err != nil {
		return nil, err
	}

	a := &app{settings: settings}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	if err := embedder.Validate(log); err != nil {
		return nil, err
	}
	emb, err := embedder.NewFromEnv(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialise embedder: %w", err)
	}
	backend := embedder.Backend()
	log.Info("embedder initialised",
		slog.String("backend", backend),
		slog.Int("dimensions", embedder.DefaultDimensions(backend)),
	)

	index, err := a.buildIndex(emb, log)
	if err != nil {
		return nil, err
	}

	var summ retrieval.Summarizer
	if settings.SummaryEnabled {
		summ, err = a.buildSummarizer(ctx, log)
		if err != nil {
			return nil, err
		}
	} else {
		log.Info("summaries disabled", slog.String("reason", "SUMMARY_ENABLED=false"))
	}

	var metrics *retrieval.Metrics
	if opts.registry != nil {
		metrics = retrieval.NewMetrics(opts.registry)
	}

	a.service, err = retrieval.New(rag.NewDocumentStore(), index, summ, retrieval.Config{
		ChunkSize:    settings.ChunkSize,
		ChunkOverlap: settings.ChunkOverlap,
		DefaultTopK:  settings.TopK,
		Metrics:      metrics,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialise retrieval service: %w", err)
	}

	pipeOpts := []ingestion.Option{
		ingestion.WithIndexer(a.service),
		ingestion.WithFetcher(fetch.New(fetch.Config{
			Timeout:   settings.FetchTimeout,
			MaxBytes:  settings.FetchMaxBytes,
			UserAgent: settings.FetchUserAgent,
		})),
	}
	if opts.journal {
		if j := openJournal(settings, log); j != nil {
			a.closers = append(a.closers, func() { _ = j.Close() })
			pipeOpts = append(pipeOpts, ingestion.WithJournal(j))
		}
	}

	a.pipeline, err = ingestion.NewPipeline(buildExtractor(settings, log), pipeOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialise ingestion pipeline: %w", err)
	}
	return a, nil
}

// buildIndex selects the vector index backend.
func (a *app) buildIndex(emb rag.Embedder, log *slog.Logger) (rag.VectorIndex, error) {
	s := a.settings
	batch := rag.BatchConfig{Size: s.EmbedBatchSize, Concurrency: s.EmbedConcurrency}

	switch s.IndexBackend {
	case config.BackendQdrant:
		idx, err := rag.NewQdrantIndex(emb, &rag.QdrantConfig{
			Host:       s.QdrantHost,
			Port:       s.QdrantPort,
			Collection: s.QdrantCollection,
			APIKey:     s.QdrantAPIKey,
			UseTLS:     s.QdrantTLS,
			Batch:      batch,
			Logger:     log,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to Qdrant at %s:%d: %w", s.QdrantHost, s.QdrantPort, err)
		}
		a.qdrant = idx
		a.closers = append(a.closers, func() { _ = idx.Close() })
		log.Info("vector index ready",
			slog.String("backend", config.BackendQdrant),
			slog.String("host", s.QdrantHost),
			slog.Int("port", s.QdrantPort),
			slog.String("collection", s.QdrantCollection),
		)
		return idx, nil
	default:
		idx, err := rag.NewMemoryIndex(emb, batch)
		if err != nil {
			return nil, fmt.Errorf("failed to initialise memory index: %w", err)
		}
		log.Info("vector index ready", slog.String("backend", config.BackendMemory))
		return idx, nil
	}
}

// buildSummarizer constructs the chat model and attaches Langfuse tracing
// when configured.
func (a *app) buildSummarizer(ctx context.Context, log *slog.Logger) (*summarizer.Summarizer, error) {
	providerCfg := provider.ConfigFromEnv()
	chatModel, err := provider.New(ctx, providerCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialise model provider: %w", err)
	}
	log.Info("provider initialised", slog.String("provider", string(providerCfg.Backend)))

	var handlers []callbacks.Handler
	if handler, flush, ok := tracing.Setup(); ok {
		handlers = append(handlers, handler)
		a.closers = append(a.closers, flush)
		log.Info("langfuse tracing enabled")
	} else {
		log.Info("langfuse tracing disabled", slog.String("reason", "LANGFUSE_PUBLIC_KEY not set"))
	}

	completer, err := summarizer.NewChatCompleter(chatModel, handlers...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialise summarizer: %w", err)
	}
	return summarizer.New(completer, summarizer.Config{
		Instruction:     a.settings.SummaryInstruction,
		MaxPromptTokens: a.settings.SummaryMaxTokens,
	})
}

// buildExtractor returns the native parser, chained with pdftotext when it
// is enabled and installed.
func buildExtractor(s *config.Settings, log *slog.Logger) pdf.Extractor {
	chain := pdf.Chain{pdf.NewNativeExtractor()}
	if !s.Pdftotext {
		return chain
	}
	cmd, err := pdf.LookupCommandExtractor()
	if err != nil {
		log.Info("pdftotext fallback unavailable", slog.Any("reason", err))
		return chain
	}
	return append(chain, cmd)
}

// openJournal opens the ingestion journal. Failures disable the journal
// rather than the command.
func openJournal(s *config.Settings, log *slog.Logger) *store.SQLiteJournal {
	if !s.JournalEnabled() {
		log.Info("journal: disabled via PDFRAG_JOURNAL_DB=disabled")
		return nil
	}
	path, err := journalPath(s)
	if err != nil {
		log.Warn("journal: could not resolve default DB path, disabling", slog.Any("error", err))
		return nil
	}
	j, err := store.Open(path)
	if err != nil {
		log.Warn("journal: failed to open, disabling", slog.String("path", path), slog.Any("error", err))
		return nil
	}
	log.Info("journal: opened", slog.String("path", path))
	return j
}

func journalPath(s *config.Settings) (string, error) {
	if s.JournalDB != "" {
		return s.JournalDB, nil
	}
	return store.DefaultDBPath()
}

// isRemote reports whether source should be fetched over HTTP.
func isRemote(source string) bool {
	return ingestion.InferSource(source).Kind == ingestion.KindURL
}

// exitError prefixes err with the command name unless it already names
// a configuration problem the user must fix.
func exitError(command string, err error) error {
	if errors.Is(err, rag.ErrConfiguration) {
		return fmt.Errorf("%s: %w (check your environment or %s)", command, err, configHint())
	}
	return fmt.Errorf("%s: %w", command, err)
}

func configHint() string {
	if p := os.Getenv("PDFRAG_CONFIG"); p != "" {
		return p
	}
	return "~/.pdfrag/config.yaml"
}

// trimmedArgs drops blank arguments.
func trimmedArgs(args []string) []string {
	out := make([]string, 0, len(args))
	for _, a := range args {
		if a = strings.TrimSpace(a); a != "" {
			out = append(out, a)
		}
	}
	return out
}
