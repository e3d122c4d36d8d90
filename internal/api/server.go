// Package api serves the aggregation engine and the taxonomy directory over
// HTTP for the sunburst front end.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/singleflight"

	"taxsun/internal/slogutil"
	"taxsun/internal/storage"
	"taxsun/internal/taxonomy"
)

// Options configures the HTTP server
type Options struct {
	Addr           string
	AllowedOrigins []string
	MaxUploadBytes int64
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	// Ranks overrides the default rank pattern.
	Ranks taxonomy.RankPattern
	// CacheTTL is how long aggregation results stay cached; zero disables caching.
	CacheTTL time.Duration
}

// Deps are the collaborators a Server needs. Directory is required.
type Deps struct {
	Directory taxonomy.Directory
	// Ready reports whether the directory can serve; nil means always ready.
	Ready func(ctx context.Context) error
	Cache *storage.ResultCache
}

// Server represents the HTTP API server
type Server struct {
	router  *http.ServeMux
	server  *http.Server
	opts    Options
	logger  *slog.Logger
	metrics *Metrics

	engine    *taxonomy.Engine
	directory taxonomy.Directory
	ready     func(ctx context.Context) error
	cache     *storage.ResultCache

	uploads singleflight.Group
}

// NewServer creates a new HTTP server instance
func NewServer(opts Options, deps Deps, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slogutil.NewDiscardLogger()
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 256 << 20
	}

	metrics := NewMetrics()
	dir := instrumentedDirectory{next: deps.Directory, metrics: metrics}

	s := &Server{
		router:    http.NewServeMux(),
		opts:      opts,
		logger:    logger,
		metrics:   metrics,
		engine:    taxonomy.NewEngine(dir, opts.Ranks, logger),
		directory: dir,
		ready:     deps.Ready,
		cache:     deps.Cache,
	}

	s.registerRoutes()

	s.server = &http.Server{
		Addr:              opts.Addr,
		Handler:           s.applyMiddleware(s.router),
		ReadTimeout:       opts.ReadTimeout,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      opts.WriteTimeout,
		IdleTimeout:       60 * time.Second,
	}

	return s
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.opts.Addr, err)
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln.
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info("Starting HTTP server", "addr", ln.Addr().String())

	if err := s.server.Serve(ln); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	s.logger.Info("Server shut down successfully")
	return nil
}

// ServeHTTP implements http.Handler for testing
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.server.Handler.ServeHTTP(w, r)
}

// applyMiddleware wraps the handler with middleware in the correct order
func (s *Server) applyMiddleware(handler http.Handler) http.Handler {
	// Apply middleware in reverse order (last one wraps first)
	handler = RecoveryMiddleware(s.logger)(handler)
	handler = LoggingMiddleware(s.logger)(handler)
	handler = RequestIDMiddleware()(handler)
	handler = CORSMiddleware(s.opts.AllowedOrigins)(handler)
	return handler
}
