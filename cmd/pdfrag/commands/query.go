package commands

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/54b3r/pdfrag-go/internal/logging"
)

// NewQueryCmd constructs the `pdfrag query` command, which ingests one or
// more PDFs into a fresh index and runs a single similarity query.
func NewQueryCmd() *cobra.Command {
	var (
		sources []string
		pages   string
		topK    int
		filter  string
		summary bool
	)

	cmd := &cobra.Command{
		Use:   "query <question>",
		Short: "Ingest PDFs and print the chunks most similar to a question",
		Long: `Ingest each --pdf (local path or http(s) URL) and print the chunks nearest
to the question, best first. With the memory backend the index lives only for
this invocation; with INDEX_BACKEND=qdrant it is rebuilt in Qdrant.

Examples:
  pdfrag query --pdf ./paper.pdf "what dataset was used?"
  pdfrag query --pdf a.pdf --pdf https://example.com/b.pdf --top-k 3 "pricing"
  pdfrag query --pdf a.pdf --pdf b.pdf --source b.pdf "limitations"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			sources = trimmedArgs(sources)
			if len(sources) == 0 {
				return fmt.Errorf("query: at least one --pdf is required")
			}

			a, err := buildApp(ctx, log, appOptions{journal: true})
			if err != nil {
				return exitError("query", err)
			}
			defer a.Close()

			out := cmd.OutOrStdout()
			for _, src := range sources {
				ingest := a.pipeline.IngestLocal
				if isRemote(src) {
					ingest = a.pipeline.IngestURL
				}
				res, err := ingest(ctx, src, pages)
				if err != nil {
					return exitError("query", err)
				}
				log.Info("query: source ingested", slog.String("source", src), slog.Int("chunks", res.Chunks))
				if summary && res.Summary != "" {
					if err := writeLine(out, fmt.Sprintf("== Summary of %s ==\n%s\n", src, res.Summary)); err != nil {
						return err
					}
				}
			}

			hits, err := a.service.Query(ctx, args[0], topK, filter)
			if err != nil {
				return exitError("query", err)
			}
			if len(hits) == 0 {
				return writeLine(out, "No matching chunks found.")
			}
			for i, h := range hits {
				if err := writeLine(out, fmt.Sprintf("== %d ==\n%s\n", i+1, h)); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&sources, "pdf", nil, "PDF path or URL to ingest (repeatable)")
	cmd.Flags().StringVarP(&pages, "pages", "p", "", "Comma-separated page numbers applied to every PDF (default: all)")
	cmd.Flags().IntVarP(&topK, "top-k", "k", 0, "Number of chunks to return (default: QUERY_TOP_K)")
	cmd.Flags().StringVar(&filter, "source", "", "Only return chunks from this source")
	cmd.Flags().BoolVar(&summary, "summary", false, "Also print each document summary")

	return cmd
}
