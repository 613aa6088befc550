package commands

import (
	"fmt"
	"log/slog"
	"net"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/54b3r/pdfrag-go/internal/logging"
	"github.com/54b3r/pdfrag-go/internal/mcp"
	"github.com/54b3r/pdfrag-go/internal/server"
)

// settingsAddr makes `--http` without a value fall back to PDFRAG_HOST and
// PDFRAG_PORT.
const settingsAddr = ":"

// NewServeCmd constructs the `pdfrag serve` command.
func NewServeCmd() *cobra.Command {
	var httpAddr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the PDF tools to MCP clients",
		Long: `Start the MCP tool server.

By default the server speaks MCP over stdin/stdout, which is how desktop
MCP clients launch local tools. Logs always go to stderr.

With --http the server listens for streamable HTTP sessions at /mcp and also
serves /api/health, /api/ready, /api/documents and /metrics. Set
PDFRAG_API_KEY to require a bearer token on /mcp and /api/documents.

Examples:
  pdfrag serve
  pdfrag serve --http
  pdfrag serve --http 0.0.0.0:9090
  INDEX_BACKEND=qdrant pdfrag serve --http :8080`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			useHTTP := cmd.Flags().Changed("http")

			var reg *prometheus.Registry
			if useHTTP {
				reg = prometheus.NewRegistry()
				reg.MustRegister(
					collectors.NewGoCollector(),
					collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
				)
			}

			opts := appOptions{journal: true}
			if reg != nil {
				opts.registry = reg
			}
			a, err := buildApp(ctx, log, opts)
			if err != nil {
				return exitError("serve", err)
			}
			defer a.Close()

			mcpSrv, err := mcp.NewServer(&mcp.Ports{Ingester: a.pipeline, Retriever: a.service})
			if err != nil {
				return exitError("serve", err)
			}

			if !useHTTP {
				log.Info("serve: listening on stdio")
				if err := mcpSrv.Run(ctx); err != nil && ctx.Err() == nil {
					return exitError("serve", err)
				}
				return nil
			}

			host, port, err := resolveAddr(httpAddr, a.settings.ServerHost, a.settings.ServerPort)
			if err != nil {
				return exitError("serve", err)
			}

			srv, err := server.New(mcpSrv.Handler(), a.service, &server.Config{
				Host:            host,
				Port:            port,
				Logger:          log,
				Pingers:         buildPingers(a, log),
				RateLimit:       a.settings.RateLimit,
				RateBurst:       a.settings.RateBurst,
				APIKey:          a.settings.APIKey,
				MetricsRegistry: reg,
				MetricsGatherer: reg,
			})
			if err != nil {
				return exitError("serve", err)
			}
			log.Info("serve: listening on http", slog.String("addr", srv.Addr()))
			return srv.Start(ctx)
		},
	}

	cmd.Flags().StringVar(&httpAddr, "http", "", "Serve streamable HTTP on host:port instead of stdio (default from PDFRAG_HOST/PDFRAG_PORT)")
	cmd.Flags().Lookup("http").NoOptDefVal = settingsAddr

	return cmd
}

// resolveAddr splits addr, filling an empty host or port from the defaults.
func resolveAddr(addr, defHost string, defPort int) (string, int, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return "", 0, fmt.Errorf("invalid --http address %q: %w", addr, err)
	}
	if host == "" {
		host = defHost
	}
	if portStr == "" {
		return host, defPort, nil
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 || port > 65535 {
		return "", 0, fmt.Errorf("invalid --http port %q", portStr)
	}
	return host, port, nil
}
