package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/custodia-labs/ledgerscan/internal/core/ports/driving"
)

// Pinger is a simple health check interface
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	router     *http.ServeMux
	version    string
	logger     *slog.Logger

	// maxUploadSize bounds a single uploaded file; maxRequestSize the whole upload body
	maxUploadSize  int64
	maxRequestSize int64

	jobService driving.JobService

	// Dependencies checked by /ready, keyed by name
	checks map[string]Pinger
}

// Config holds server configuration
type Config struct {
	Host          string
	Port          int
	Version       string
	CORSOrigins   []string
	MaxUploadSize int64

	// MaxRequestSize bounds an upload request body; defaults to five files' worth
	MaxRequestSize int64
	Logger         *slog.Logger
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Host:          "0.0.0.0",
		Port:          8000,
		Version:       "dev",
		CORSOrigins:   []string{"*"},
		MaxUploadSize: 100 << 20,
	}
}

// NewServer creates a new HTTP server.
// checks holds the dependencies reported by the readiness endpoint; nil entries are skipped.
func NewServer(cfg Config, jobService driving.JobService, checks map[string]Pinger) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	maxUpload := cfg.MaxUploadSize
	if maxUpload <= 0 {
		maxUpload = DefaultConfig().MaxUploadSize
	}
	maxRequest := cfg.MaxRequestSize
	if maxRequest <= 0 {
		maxRequest = 5 * maxUpload
	}

	s := &Server{
		router:         http.NewServeMux(),
		version:        cfg.Version,
		logger:         logger,
		maxUploadSize:  maxUpload,
		maxRequestSize: maxRequest,
		jobService:     jobService,
		checks:         checks,
	}
	s.setupRoutes()

	var handler http.Handler = s.router
	handler = NewCORSMiddleware(cfg.CORSOrigins).Handler(handler)
	handler = NewLoggingMiddleware(logger).Handler(handler)
	handler = NewRecoveryMiddleware(logger).Handler(handler)

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		// Uploads and downloads of large batches need more than the usual budget
		ReadTimeout:  5 * time.Minute,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	// Health endpoints
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.HandleFunc("GET /ready", s.handleReady)
	s.router.HandleFunc("GET /version", s.handleVersion)
	s.router.HandleFunc("GET /swagger/doc.json", s.handleSwaggerDoc)

	// Job lifecycle
	s.router.HandleFunc("POST /upload", s.handleUpload)
	s.router.HandleFunc("GET /status/{task_id}", s.handleStatus)
	s.router.HandleFunc("GET /check-task/{task_id}", s.handleCheckTask)
	s.router.HandleFunc("POST /cancel/{task_id}", s.handleCancel)

	// Results
	s.router.HandleFunc("GET /download/{task_id}", s.handleDownload)
	s.router.HandleFunc("GET /download/{task_id}/link", s.handleDownloadLink)
	s.router.HandleFunc("GET /shared/{token}", s.handleShared)
	s.router.HandleFunc("GET /validation/{task_id}", s.handleValidation)
	s.router.HandleFunc("GET /anomalies/{task_id}", s.handleAnomalies)
}

// Handler returns the fully wrapped HTTP handler
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start serves requests until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting server", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.logger.Info("server stopped")
	return nil
}

// Stop stops the server
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
