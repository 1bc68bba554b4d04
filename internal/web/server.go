// Package web serves the interactive form and the JSON API over chi.
package web

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/sells-group/site-report/internal/action"
	"github.com/sells-group/site-report/internal/config"
	"github.com/sells-group/site-report/internal/model"
	"github.com/sells-group/site-report/internal/store"
)

// Runner is the trigger contract used by the handlers.
type Runner interface {
	Run(ctx context.Context, url, notes string) *action.Outcome
}

// Server holds the collaborators shared by every request. Requests share no
// mutable state.
type Server struct {
	runner  Runner
	store   store.Store
	form    config.FormConfig
	origins []string
}

// Option configures a Server.
type Option func(*Server)

// WithStore exposes run history under /api/runs.
func WithStore(s store.Store) Option {
	return func(srv *Server) { srv.store = s }
}

// WithAllowedOrigins sets the CORS origins for /api.
func WithAllowedOrigins(origins []string) Option {
	return func(srv *Server) {
		if len(origins) > 0 {
			srv.origins = origins
		}
	}
}

// New creates a Server. form supplies the defaults shown on GET /.
func New(runner Runner, form config.FormConfig, opts ...Option) *Server {
	srv := &Server{
		runner:  runner,
		form:    form,
		origins: []string{"*"},
	}
	for _, o := range opts {
		o(srv)
	}
	return srv
}

// Router builds the HTTP handler.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Get("/", s.handleForm)
	r.Post("/", s.handleFormSubmit)

	r.Route("/api", func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.origins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
			ExposedHeaders: []string{"X-Request-Id"},
			MaxAge:         300,
		}))
		r.Post("/analyze", s.handleAnalyze)
		r.Get("/runs", s.handleListRuns)
		r.Get("/runs/{id}", s.handleGetRun)
		r.Get("/stats", s.handleStats)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// runStatus parses the status query parameter. Empty means any.
func runStatus(v string) (model.RunStatus, bool) {
	switch st := model.RunStatus(v); st {
	case "", model.RunStatusRunning, model.RunStatusComplete, model.RunStatusFailed:
		return st, true
	default:
		return "", false
	}
}
