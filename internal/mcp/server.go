// Package mcp exposes the bridge variants as MCP tools over streamable HTTP.
// Every tool call runs one bridge process through a client.Invoker.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/kfreiman/docbridge/internal/client"
)

const (
	serverName    = "DocBridgeServer"
	serviceName   = "docbridge-mcp"
	serverVersion = "1.0.0"
)

// Options configures the HTTP side of the server
type Options struct {
	Port int
	// Executable is the bridge binary; readiness fails when it is missing
	Executable string
}

// Server encapsulates the MCP server with all its dependencies
type Server struct {
	mcpServer  *mcp.Server
	invoker    client.Invoker
	executable string
	port       int
	logger     *slog.Logger
}

// NewServer creates a new MCP server that runs tool calls through invoker
func NewServer(invoker client.Invoker, opts Options, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		invoker:    invoker,
		executable: opts.Executable,
		port:       opts.Port,
		logger:     logger,
	}

	impl := &mcp.Implementation{
		Name:    serverName,
		Version: serverVersion,
	}
	s.mcpServer = mcp.NewServer(impl, &mcp.ServerOptions{
		Instructions: ServerInstructions,
	})

	if err := s.registerTools(); err != nil {
		return nil, fmt.Errorf("register tools: %w", err)
	}
	return s, nil
}

// registerTools registers one tool per bridge variant exposed over MCP
func (s *Server) registerTools() error {
	for _, name := range toolNames() {
		tool, err := NewBridgeTool(name, s.invoker)
		if err != nil {
			return err
		}
		s.mcpServer.AddTool(ToolDefinitions[name], tool.WithLogger(s.logger).Call)
	}
	return nil
}

// Handler returns the routes served by ListenAndServe
func (s *Server) Handler() http.Handler {
	httpHandler := mcp.NewStreamableHTTPHandler(func(req *http.Request) *mcp.Server {
		return s.mcpServer
	}, &mcp.StreamableHTTPOptions{
		JSONResponse: true,
	})

	mux := http.NewServeMux()
	mux.Handle("/mcp", httpHandler)
	mux.HandleFunc("/health/live", s.LivenessHandler)
	mux.HandleFunc("/health/ready", s.ReadinessHandler)
	mux.HandleFunc("/", s.indexHandler)
	return mux
}

// ListenAndServe serves HTTP until ctx is cancelled, then shuts down
// gracefully
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.InfoContext(ctx, "starting MCP server",
		"port", s.port,
		"endpoints", []string{"/mcp", "/health/live", "/health/ready", "/"},
	)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.logger.InfoContext(ctx, "shutting down MCP server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// indexHandler returns the server information page
func (s *Server) indexHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/plain")
	fmt.Fprintf(w, "DocBridge MCP Server\n\n")
	fmt.Fprintf(w, "Endpoints:\n")
	fmt.Fprintf(w, "  POST /mcp          - Streamable HTTP transport\n")
	fmt.Fprintf(w, "  GET  /health/live  - Liveness probe\n")
	fmt.Fprintf(w, "  GET  /health/ready - Readiness probe\n")
	fmt.Fprintf(w, "  GET  /             - This help message\n\n")
	fmt.Fprintf(w, "Tools:\n")
	for _, name := range toolNames() {
		fmt.Fprintf(w, "  %s\n", name)
	}
	fmt.Fprintf(w, "\nServer: %s %s\n", serverName, serverVersion)
}
