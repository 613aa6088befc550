// Package commands defines all Cobra CLI commands for the pdfrag binary.
package commands

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/54b3r/pdfrag-go/internal/audit"
	"github.com/54b3r/pdfrag-go/internal/config"
	"github.com/54b3r/pdfrag-go/internal/logging"
)

// NewRootCmd constructs the root Cobra command that all subcommands attach to.
func NewRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:   "pdfrag",
		Short: "pdfrag: PDF retrieval tools for MCP clients",
		Long: `pdfrag ingests PDF documents into a vector index and answers similarity
queries over them. Documents can be local files or http(s) URLs; each one is
chunked, summarized by a chat model and embedded.

Run 'pdfrag serve' to expose the tools to an MCP client over stdio (the
default) or streamable HTTP. The extract and query commands run the same
pipeline once from the shell.

Configuration comes from environment variables, a .env file in the working
directory, and an optional YAML file (~/.pdfrag/config.yaml). Environment
variables always win.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			log := logging.New()

			if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("pdfrag: load .env: %w", err)
			}

			path, err := config.Load(configPath, log)
			if err != nil {
				return err
			}

			audit.LogCommandStart(log, cmd.Name(), path)
			return nil
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file (default: ~/.pdfrag/config.yaml)")

	root.AddCommand(
		NewServeCmd(),
		NewExtractCmd(),
		NewQueryCmd(),
		NewJournalCmd(),
		NewVersionCmd(),
	)

	return root
}
