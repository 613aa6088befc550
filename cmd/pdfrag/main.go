// Command pdfrag serves PDF ingestion, extraction and similarity search to
// MCP clients over stdio or streamable HTTP, and exposes the same pipeline
// as one-shot CLI commands.
package main

import (
	"fmt"
	"os"

	"github.com/54b3r/pdfrag-go/cmd/pdfrag/commands"
)

func main() {
	if err := commands.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
