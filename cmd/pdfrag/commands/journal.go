package commands

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/54b3r/pdfrag-go/internal/config"
	"github.com/54b3r/pdfrag-go/internal/store"
)

// NewJournalCmd constructs the `pdfrag journal` command, which lists recent
// ingest and extract attempts.
func NewJournalCmd() *cobra.Command {
	var (
		limit  int
		source string
	)

	cmd := &cobra.Command{
		Use:   "journal",
		Short: "List recent ingestion and extraction attempts",
		Long: `Print the most recent entries of the ingestion journal, newest first.

The journal lives at PDFRAG_JOURNAL_DB (default: ~/.pdfrag/journal.db).

Examples:
  pdfrag journal
  pdfrag journal --limit 50
  pdfrag journal --source https://example.com/report.pdf`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings, err := config.FromEnv()
			if err != nil {
				return exitError("journal", err)
			}
			if !settings.JournalEnabled() {
				return fmt.Errorf("journal: disabled via PDFRAG_JOURNAL_DB=%s", config.JournalDisabled)
			}
			if limit <= 0 {
				return fmt.Errorf("journal: --limit must be positive")
			}
			path, err := journalPath(settings)
			if err != nil {
				return exitError("journal", err)
			}
			j, err := store.Open(path)
			if err != nil {
				return exitError("journal", err)
			}
			defer func() { _ = j.Close() }()

			entries, err := j.Recent(cmd.Context(), source, limit)
			if err != nil {
				return exitError("journal", err)
			}
			return printEntries(cmd, entries)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of entries to show")
	cmd.Flags().StringVar(&source, "source", "", "Only show entries for this path or URL")

	return cmd
}

func printEntries(cmd *cobra.Command, entries []store.Entry) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tOP\tOUTCOME\tCHUNKS\tDURATION\tSOURCE\tERROR")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\t%s\n",
			e.CreatedAt.Local().Format(time.DateTime),
			e.Operation,
			e.Outcome,
			e.Chunks,
			e.Duration.Round(time.Millisecond),
			e.Source,
			e.Error,
		)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("journal: write output: %w", err)
	}
	return nil
}
