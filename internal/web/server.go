// Package web provides the HTTP front door for the import service:
// file upload, import status, and the read-only listing endpoints.
// It is thin request/response glue and holds no pipeline logic.
package web

import (
	"context"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/tmendes/orderimport/internal/config"
	"github.com/tmendes/orderimport/internal/importer"
	"github.com/tmendes/orderimport/internal/store"
	ourmw "github.com/tmendes/orderimport/internal/web/middleware"
)

// ImportStore creates imports and reports their status.
type ImportStore interface {
	Create(ctx context.Context, fileRef string) (int64, error)
	Find(ctx context.Context, id int64) (importer.Import, error)
}

// FileSaver stores an uploaded file and returns its reference.
type FileSaver interface {
	Save(r io.Reader) (string, error)
}

// Enqueuer hands a created import to the background runner.
type Enqueuer interface {
	Enqueue(importID int64)
}

// Catalog serves the read-only listing queries.
type Catalog interface {
	ListUsers(ctx context.Context, limit, offset int) ([]store.UserRow, error)
	ListProducts(ctx context.Context, limit, offset int) ([]store.ProductRow, error)
	ListOrders(ctx context.Context, limit, offset int) ([]store.OrderRow, error)
}

// Server is the HTTP server for the import service.
type Server struct {
	imports ImportStore
	files   FileSaver
	queue   Enqueuer
	catalog Catalog
	cfg     *config.Config
	router  *chi.Mux
	server  *http.Server
}

// NewServer creates a new Server instance.
func NewServer(imports ImportStore, files FileSaver, queue Enqueuer, catalog Catalog, cfg *config.Config) *Server {
	s := &Server{
		imports: imports,
		files:   files,
		queue:   queue,
		catalog: catalog,
		cfg:     cfg,
		router:  chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(ourmw.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(s.cfg.Server.RequestTimeout))
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Post("/imports", s.handleCreateImport)
		r.Get("/imports/{importID}", s.handleImportStatus)

		r.Get("/users", s.handleListUsers)
		r.Get("/products", s.handleListProducts)
		r.Get("/orders", s.handleListOrders)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Start begins listening for HTTP requests. It blocks until the server
// stops.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Handler exposes the router, used by tests.
func (s *Server) Handler() http.Handler {
	return s.router
}
