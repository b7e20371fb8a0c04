// Package server provides the HTTP API for Miru.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/hyperjump/miru/internal/config"
	"github.com/hyperjump/miru/internal/imagefile"
	"github.com/hyperjump/miru/internal/ingest"
	"github.com/hyperjump/miru/internal/keyword"
	"github.com/hyperjump/miru/internal/search"
	"github.com/hyperjump/miru/internal/storage"
	"github.com/hyperjump/miru/internal/watcher"
)

// maxUploadBytes bounds multipart upload memory before spilling to disk.
const maxUploadBytes = 32 << 20

// Server is the HTTP server for the Miru API.
type Server struct {
	engine   *search.Engine
	pipeline *ingest.Pipeline
	store    storage.Store
	files    *imagefile.Store
	kwIndex  keyword.Index
	config   *config.Config
	logger   *zap.Logger
	server   *http.Server

	watch      *watcher.Watcher
	configPath string
	configMu   sync.Mutex
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithKeywordIndex exposes keyword index counts on the status endpoint.
func WithKeywordIndex(idx keyword.Index) ServerOption {
	return func(s *Server) { s.kwIndex = idx }
}

// WithWatcher enables the watch-directory management endpoints. When
// configPath is non-empty, directory changes are persisted to it.
func WithWatcher(w *watcher.Watcher, configPath string) ServerOption {
	return func(s *Server) {
		s.watch = w
		s.configPath = configPath
	}
}

// NewServer creates a server with the given dependencies.
func NewServer(
	engine *search.Engine,
	pipeline *ingest.Pipeline,
	store storage.Store,
	files *imagefile.Store,
	cfg *config.Config,
	logger *zap.Logger,
	opts ...ServerOption,
) *Server {
	s := &Server{
		engine:   engine,
		pipeline: pipeline,
		store:    store,
		files:    files,
		config:   cfg,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router builds the chi router with all API routes and middleware.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	}))

	r.Post("/api/v1/images", s.handleAddImage)
	r.Get("/api/v1/images", s.handleListImages)
	r.Get("/api/v1/images/{id}/download", s.handleDownloadImage)
	r.Get("/api/v1/images/{id}/thumbnail", s.handleThumbnail)
	r.Get("/api/v1/search", s.handleSearch)
	r.Get("/api/v1/status", s.handleStatus)
	r.Get("/health", s.handleHealth)

	r.Get("/api/v1/watch/directories", s.handleWatchDirectoriesList)
	r.Post("/api/v1/watch/directories", s.handleWatchDirectoriesAdd)
	r.Delete("/api/v1/watch/directories", s.handleWatchDirectoriesRemove)

	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Router(),
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
