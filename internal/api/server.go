package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/thoulee21/bedit/internal/config"
	"github.com/thoulee21/bedit/internal/session"
)

// Server is the HTTP API over editing sessions.
type Server struct {
	router  chi.Router
	store   *session.Store
	metrics *Metrics
	log     *slog.Logger
	cfg     config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(store *session.Store, log *slog.Logger, cfg config.Config) *Server {
	if log == nil {
		log = slog.Default()
	}
	s := &Server{
		store:   store,
		metrics: NewMetrics(store),
		log:     log,
		cfg:     cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	// Public endpoints.
	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", s.metrics.Handler())

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		if s.cfg.APIKey != "" {
			r.Use(AuthMiddleware(s.cfg.APIKey, s.log))
		}

		r.Post("/api/sessions", s.handleCreateSession)
		r.Route("/api/sessions/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetSession)
			r.Delete("/", s.handleDeleteSession)
			r.Put("/document", s.handleReplaceDocument)
			r.Get("/export", s.handleExport)
			r.Get("/outline", s.handleOutline)
			r.Get("/metrics", s.handleSessionMetrics)

			r.Post("/nodes/insert", s.handleInsertNodes)
			r.Post("/nodes/remove", s.handleRemoveNode)
			r.Post("/nodes/properties", s.handleSetProperties)
			r.Post("/nodes/link", s.handleWrapLink)

			r.Post("/tables", s.handleInsertTable)
			r.Post("/tables/{op}", s.handleTableOp)
		})
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
