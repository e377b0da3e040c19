// Package httpserver provides the HTTP API for the INSPIRE papers catalog.
package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/czczc/inspire-papers-viewer/internal/database"
	"github.com/czczc/inspire-papers-viewer/internal/domain"
	"github.com/czczc/inspire-papers-viewer/internal/observability"
	"github.com/czczc/inspire-papers-viewer/internal/papersources/inspire"
	"github.com/czczc/inspire-papers-viewer/internal/session"
)

// SmallPaperService is the auxiliary collection as seen by the HTTP handlers.
type SmallPaperService interface {
	ListAll(ctx context.Context) ([]*domain.SmallPaper, error)
	ListByYear(ctx context.Context, year string) ([]*domain.SmallPaper, error)
	FindByArxivID(ctx context.Context, arxivID string) (string, bool, error)
	Insert(ctx context.Context, input domain.SmallPaperInput) (string, error)
	Update(ctx context.Context, id string, input domain.SmallPaperInput) error
	Delete(ctx context.Context, id string) error
}

// LiteratureSource looks up bibliographic records.
type LiteratureSource interface {
	Search(ctx context.Context, params inspire.SearchParams) (*inspire.SearchResult, error)
	GetByID(ctx context.Context, id string) (*domain.LiteratureRecord, error)
}

// Authenticator runs the two halves of the OAuth authorization code flow.
type Authenticator interface {
	AuthCodeURL(state, verifier, redirectURL string) string
	Complete(ctx context.Context, code, verifier, redirectURL string) (*domain.Identity, error)
}

// HealthChecker reports database health.
type HealthChecker interface {
	Health(ctx context.Context) database.HealthStatus
}

// Deps are the collaborators served over HTTP. Auth and Tokens may be nil,
// in which case sign-in is unavailable and every mutation is refused.
type Deps struct {
	SmallPapers SmallPaperService
	Literature  LiteratureSource
	Auth        Authenticator
	Tokens      *session.TokenIssuer
	Health      HealthChecker
	Metrics     *observability.Metrics
	Logger      zerolog.Logger
}

// Config holds HTTP server configuration.
type Config struct {
	Address         string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// RedirectURL is the /auth/callback URL registered with the identity provider.
	RedirectURL string
	// CookieSecure marks session cookies Secure.
	CookieSecure bool
}

// Server is the HTTP API server.
type Server struct {
	router      chi.Router
	httpServer  *http.Server
	smallPapers SmallPaperService
	literature  LiteratureSource
	auth        Authenticator
	tokens      *session.TokenIssuer
	health      HealthChecker
	metrics     *observability.Metrics
	logger      zerolog.Logger

	redirectURL  string
	cookieSecure bool
}

// NewServer creates a new HTTP server with all dependencies.
func NewServer(cfg Config, deps Deps) *Server {
	s := &Server{
		smallPapers:  deps.SmallPapers,
		literature:   deps.Literature,
		auth:         deps.Auth,
		tokens:       deps.Tokens,
		health:       deps.Health,
		metrics:      deps.Metrics,
		logger:       observability.WithComponent(deps.Logger, "http-server"),
		redirectURL:  cfg.RedirectURL,
		cookieSecure: cfg.CookieSecure,
	}

	s.router = s.buildRouter()

	s.httpServer = &http.Server{
		Addr:         cfg.Address,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return s
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// buildRouter creates the chi router with all middleware and routes.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(correlationIDMiddleware)
	r.Use(s.requestLogMiddleware)
	r.Use(jsonContentTypeMiddleware)
	r.Use(s.sessionMiddleware)

	r.Get("/healthz", s.healthHandler)
	r.Get("/readyz", s.readinessHandler)

	r.Route("/auth", func(r chi.Router) {
		r.Get("/login", s.login)
		r.Get("/callback", s.callback)
		r.Post("/logout", s.logout)
		r.Get("/session", s.currentSession)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/literature", s.searchLiterature)
		r.Get("/literature/{recordID}", s.getLiterature)

		r.Get("/small-papers", s.listSmallPapers)
		r.Get("/small-papers/lookup", s.lookupSmallPaper)
		r.Group(func(r chi.Router) {
			r.Use(requireIdentity)
			r.Post("/small-papers", s.createSmallPaper)
			r.Put("/small-papers/{id}", s.updateSmallPaper)
			r.Delete("/small-papers/{id}", s.deleteSmallPaper)
		})
	})

	return r
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.Info().Str("address", s.httpServer.Addr).Msg("HTTP server starting")
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen on HTTP address: %w", err)
	}
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// healthHandler returns basic liveness status.
func (s *Server) healthHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// readinessHandler reports whether the database is reachable.
func (s *Server) readinessHandler(w http.ResponseWriter, r *http.Request) {
	if s.health == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not_ready"})
		return
	}
	health := s.health.Health(r.Context())
	if health.Status != "healthy" {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status":   "not_ready",
			"database": health.Status,
			"error":    health.Error,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":   "ready",
		"database": "healthy",
	})
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Best-effort; headers already sent.
		_ = err
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{
		"error": message,
	})
}
