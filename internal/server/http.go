package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/inboxpilot/internal/auth"
	"github.com/teemow/inboxpilot/internal/instrumentation"
)

// HTTPConfig configures the streamable-HTTP server.
type HTTPConfig struct {
	Tokens           *auth.Tokens
	DisableStreaming bool
	Metrics          *instrumentation.Metrics
	Logger           *slog.Logger
}

// HTTPServer serves MCP over streamable HTTP. Every /mcp request must carry
// a valid session token.
type HTTPServer struct {
	mcpServer *mcpserver.MCPServer
	sc        *ServerContext
	config    HTTPConfig
	health    *HealthChecker

	mu         sync.Mutex
	httpServer *http.Server
}

// NewHTTPServer creates an HTTP server for mcpServer.
func NewHTTPServer(mcpServer *mcpserver.MCPServer, sc *ServerContext, config HTTPConfig) (*HTTPServer, error) {
	if config.Tokens == nil {
		return nil, errors.New("session tokens are required for the HTTP transport")
	}
	if config.Logger == nil {
		config.Logger = sc.Logger()
	}
	return &HTTPServer{
		mcpServer: mcpServer,
		sc:        sc,
		config:    config,
		health:    NewHealthChecker(sc),
	}, nil
}

// HealthChecker returns the server's health checker.
func (s *HTTPServer) HealthChecker() *HealthChecker { return s.health }

// Handler returns the full HTTP handler.
func (s *HTTPServer) Handler() http.Handler {
	mux := http.NewServeMux()
	s.health.RegisterHealthEndpoints(mux)

	opts := []mcpserver.StreamableHTTPOption{mcpserver.WithEndpointPath("/mcp")}
	if s.config.DisableStreaming {
		opts = append(opts, mcpserver.WithDisableStreaming(true))
	}
	mcpHandler := mcpserver.NewStreamableHTTPServer(s.mcpServer, opts...)

	authenticate := auth.Middleware(s.config.Tokens, s.sc.Store(), s.config.Logger)
	mux.Handle("/mcp", authenticate(mcpHandler))

	return instrumentHTTP(mux, s.config.Metrics)
}

// Start listens on addr and serves until Shutdown.
func (s *HTTPServer) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve serves on ln until Shutdown.
func (s *HTTPServer) Serve(ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	s.mu.Lock()
	s.httpServer = srv
	s.mu.Unlock()

	s.config.Logger.Info("starting HTTP server", "addr", ln.Addr().String())
	return srv.Serve(ln)
}

// Shutdown marks the server not ready and drains connections.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	s.health.SetReady(false)
	s.mu.Lock()
	srv := s.httpServer
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

// statusRecorder captures the response code for metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Flush keeps streaming responses working through the recorder.
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (r *statusRecorder) Unwrap() http.ResponseWriter { return r.ResponseWriter }

func instrumentHTTP(next http.Handler, m *instrumentation.Metrics) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		m.RecordHTTPRequest(r.Context(), r.Method, r.URL.Path, rec.status, time.Since(start))
	})
}
