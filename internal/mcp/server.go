package mcp

import (
	"context"
	"fmt"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/54b3r/pdfrag-go/internal/version"
)

// serverName is the implementation name advertised during initialisation.
const serverName = "pdfrag"

// Server is the MCP server for the document index.
type Server struct {
	ports  *Ports
	server *mcp.Server
}

// NewServer creates an MCP server with every tool registered.
func NewServer(ports *Ports) (*Server, error) {
	if ports == nil {
		return nil, ErrMissingIngester
	}
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("validating ports: %w", err)
	}

	impl := &mcp.Implementation{
		Name:    serverName,
		Version: version.Version,
	}

	s := &Server{
		ports:  ports,
		server: mcp.NewServer(impl, nil),
	}
	s.registerTools()
	return s, nil
}

// Run serves over stdio. It blocks until the client disconnects or ctx
// is cancelled. Nothing else may write to stdout while Run is active.
func (s *Server) Run(ctx context.Context) error {
	if err := s.server.Run(ctx, &mcp.StdioTransport{}); err != nil {
		return fmt.Errorf("mcp: stdio transport: %w", err)
	}
	return nil
}

// Handler returns a streamable HTTP handler serving this server to every
// session. Mount it behind the HTTP server's middleware.
func (s *Server) Handler() http.Handler {
	return mcp.NewStreamableHTTPHandler(func(_ *http.Request) *mcp.Server {
		return s.server
	}, nil)
}

// Connect attaches the server to an arbitrary transport. Used by tests with
// in-memory transports.
func (s *Server) Connect(ctx context.Context, t mcp.Transport) (*mcp.ServerSession, error) {
	session, err := s.server.Connect(ctx, t, nil)
	if err != nil {
		return nil, fmt.Errorf("mcp: connect: %w", err)
	}
	return session, nil
}
