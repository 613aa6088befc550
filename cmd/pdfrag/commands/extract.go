package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/54b3r/pdfrag-go/internal/config"
	"github.com/54b3r/pdfrag-go/internal/fetch"
	"github.com/54b3r/pdfrag-go/internal/ingestion"
	"github.com/54b3r/pdfrag-go/internal/logging"
)

// NewExtractCmd constructs the `pdfrag extract` command, which prints the
// text of a PDF without indexing it.
func NewExtractCmd() *cobra.Command {
	var pages string

	cmd := &cobra.Command{
		Use:   "extract <path-or-url>",
		Short: "Print the text of a PDF file or URL",
		Long: `Extract plain text from a local PDF or an http(s) URL and print it to stdout.
No model or embedding backend is needed.

Pages are 1-based and comma separated; negative numbers count from the end.

Examples:
  pdfrag extract ./paper.pdf
  pdfrag extract --pages 1,2,-1 https://example.com/report.pdf`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			settings, err := config.FromEnv()
			if err != nil {
				return exitError("extract", err)
			}

			opts := []ingestion.Option{
				ingestion.WithFetcher(fetch.New(fetch.Config{
					Timeout:   settings.FetchTimeout,
					MaxBytes:  settings.FetchMaxBytes,
					UserAgent: settings.FetchUserAgent,
				})),
			}
			if j := openJournal(settings, log); j != nil {
				defer func() { _ = j.Close() }()
				opts = append(opts, ingestion.WithJournal(j))
			}
			pipeline, err := ingestion.NewPipeline(buildExtractor(settings, log), opts...)
			if err != nil {
				return exitError("extract", err)
			}

			var text string
			if isRemote(args[0]) {
				text, err = pipeline.ExtractURL(ctx, args[0], pages)
			} else {
				text, err = pipeline.ExtractLocal(ctx, args[0], pages)
			}
			if err != nil {
				return exitError("extract", err)
			}
			return writeLine(cmd.OutOrStdout(), text)
		},
	}

	cmd.Flags().StringVarP(&pages, "pages", "p", "", "Comma-separated page numbers (default: all pages)")

	return cmd
}

func writeLine(w io.Writer, s string) error {
	if _, err := fmt.Fprintln(w, s); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}
