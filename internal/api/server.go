package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/bull/docqa/internal/catalog"
	"github.com/bull/docqa/internal/ingest"
	"github.com/bull/docqa/internal/orchestrator"
)

// DefaultMaxUploadBytes bounds the size of one multipart upload request.
const DefaultMaxUploadBytes = 256 << 20

// Uploader ingests a batch of files.
type Uploader interface {
	Upload(ctx context.Context, files []ingest.File) *ingest.Result
}

// Answerer answers a query across documents.
type Answerer interface {
	Answer(ctx context.Context, query string, exclude []string) (*orchestrator.Response, error)
}

// DocumentLister lists indexed documents.
type DocumentLister interface {
	List(ctx context.Context) ([]catalog.Document, error)
}

// Config holds the router dependencies. MCP is optional.
type Config struct {
	Uploader       Uploader
	Answerer       Answerer
	Documents      DocumentLister
	Health         HealthChecker
	MCP            http.Handler
	MaxUploadBytes int64
	Logger         *slog.Logger
}

type handlers struct {
	uploader       Uploader
	answerer       Answerer
	documents      DocumentLister
	maxUploadBytes int64
	logger         *slog.Logger
}

// NewRouter builds the HTTP routes.
func NewRouter(cfg *Config) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	maxUpload := cfg.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = DefaultMaxUploadBytes
	}
	h := &handlers{
		uploader:       cfg.Uploader,
		answerer:       cfg.Answerer,
		documents:      cfg.Documents,
		maxUploadBytes: maxUpload,
		logger:         logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)

	r.Get("/", NewLandingHandler())
	r.Get("/health", NewHealthHandler(cfg.Health))
	r.Post("/upload", h.upload)
	r.Post("/query", h.query)
	r.Get("/documents", h.listDocuments)
	if cfg.MCP != nil {
		r.Handle("/mcp", cfg.MCP)
		r.Handle("/mcp/*", cfg.MCP)
	}
	return r
}

// Serve runs an HTTP server on addr until ctx is cancelled, then shuts it
// down gracefully.
func Serve(ctx context.Context, addr string, handler http.Handler, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}
