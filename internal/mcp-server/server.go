package mcp_server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/Karan96Kaushik/gen-grafana-ai/internal/config"
	"github.com/Karan96Kaushik/gen-grafana-ai/internal/contextutil"
	"github.com/Karan96Kaushik/gen-grafana-ai/internal/handler/tools"
)

const (
	ServerName    = "GrafanaDashboardMCP"
	ServerVersion = "0.1.0"

	mcpEndpoint = "/mcp"
)

type MCPServer struct {
	logger  *zap.Logger
	handler *tools.Handler
	config  *config.Config
}

func NewMCPServer(log *zap.Logger, handler *tools.Handler, cfg *config.Config) *MCPServer {
	return &MCPServer{logger: log, handler: handler, config: cfg}
}

// Build creates the MCP server with every tool and resource registered.
func (m *MCPServer) Build() *server.MCPServer {
	s := server.NewMCPServer(ServerName, ServerVersion,
		server.WithLogging(),
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)
	m.handler.RegisterAll(s)
	m.logger.Info("All handlers registered successfully")
	return s
}

// Start serves until ctx is cancelled (cloud mode) or stdin closes (local mode).
func (m *MCPServer) Start(ctx context.Context) error {
	m.logger.Info("Starting Grafana dashboard MCP Server",
		zap.String("server_name", ServerName),
		zap.String("deployment_mode", m.config.Server.Mode))

	s := m.Build()
	if m.config.Server.Mode == config.ModeCloud {
		return m.startCloud(ctx, s)
	}
	return m.startLocal(s)
}

func (m *MCPServer) startLocal(s *server.MCPServer) error {
	m.logger.Info("MCP Server running in LOCAL mode (stdio)")
	return server.ServeStdio(s)
}

// Handler returns the HTTP handler used in cloud mode. Callers may bring
// their own LLM key in the X-LLM-API-Key header.
func (m *MCPServer) Handler(s *server.MCPServer) http.Handler {
	mux := http.NewServeMux()
	httpServer := server.NewStreamableHTTPServer(s, server.WithHTTPContextFunc(contextutil.FromRequest))
	mux.Handle(mcpEndpoint, otelhttp.NewHandler(httpServer, "mcp"))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

func (m *MCPServer) startCloud(ctx context.Context, s *server.MCPServer) error {
	m.logger.Info("MCP Server running in cloud hosted mode")

	addr := fmt.Sprintf(":%s", m.config.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           m.Handler(s),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		m.logger.Info("Listening for MCP clients",
			zap.String("addr", addr),
			zap.String("mcp_endpoint", mcpEndpoint))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		m.logger.Info("Shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
