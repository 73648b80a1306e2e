// Package web provides the HTTP server and handlers for the record service.
package web

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/pokedex/internal/core"
	"github.com/JonMunkholm/pokedex/internal/ratelimit"
	mw "github.com/JonMunkholm/pokedex/internal/web/middleware"
)

// Options tunes the server. Zero values fall back to the defaults below.
type Options struct {
	Addr           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	RequestTimeout time.Duration

	// ImportTimeout replaces RequestTimeout on the import endpoint. It must
	// cover the slot wait plus the import itself.
	ImportTimeout time.Duration

	// TrustedProxies are CIDRs or IPs whose X-Real-IP / X-Forwarded-For headers
	// are believed.
	TrustedProxies []string

	// Limiter applies to every route, ImportLimiter additionally to the
	// import endpoint. Nil disables either.
	Limiter       ratelimit.Limiter
	ImportLimiter ratelimit.Limiter
}

func (o Options) withDefaults() Options {
	if o.Addr == "" {
		o.Addr = ":8080"
	}
	if o.ReadTimeout == 0 {
		o.ReadTimeout = 15 * time.Second
	}
	if o.WriteTimeout == 0 {
		o.WriteTimeout = 3 * time.Minute
	}
	if o.IdleTimeout == 0 {
		o.IdleTimeout = 60 * time.Second
	}
	if o.RequestTimeout == 0 {
		o.RequestTimeout = 60 * time.Second
	}
	if o.ImportTimeout == 0 {
		o.ImportTimeout = core.DefaultImportWait + core.DefaultImportTimeout
	}
	return o
}

// Server is the HTTP server for the record service.
type Server struct {
	service *core.Service
	router  *chi.Mux
	server  *http.Server
	opts    Options
}

// NewServer creates a new Server instance.
func NewServer(service *core.Service, opts Options) *Server {
	s := &Server{
		service: service,
		router:  chi.NewRouter(),
		opts:    opts.withDefaults(),
	}
	s.setupMiddleware()
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         s.opts.Addr,
		Handler:      s.router,
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
		IdleTimeout:  s.opts.IdleTimeout,
	}
	return s
}

// setupMiddleware configures middleware for all routes. Deadlines are set
// per route group in setupRoutes.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(mw.TrustedRealIP(s.opts.TrustedProxies))
	s.router.Use(mw.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(securityHeaders)
	s.router.Use(mw.RateLimit(s.opts.Limiter, s.handleRateLimited))
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	timeout := middleware.Timeout(s.opts.RequestTimeout)

	s.router.With(timeout).Get("/", s.handleBrowse)
	s.router.With(timeout).Get("/healthz", s.handleHealth)

	s.router.Route("/records", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(timeout)
			r.Get("/", s.handleListRecords)
			r.Post("/", s.handleCreateRecord)
			r.Get("/{id}", s.handleGetRecord)
			r.Put("/{id}", s.handleReplaceRecord)
			r.Patch("/{id}", s.handlePatchRecord)
			r.Delete("/{id}", s.handleDeleteRecord)
		})

		// Imports run under their own, longer deadline.
		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(s.opts.ImportTimeout))
			r.Use(mw.RateLimit(s.opts.ImportLimiter, s.handleRateLimited))
			r.Post("/import", s.handleImport)
		})
	})
}

// Start begins listening for HTTP requests.
func (s *Server) Start() error {
	slog.Info("starting server", "addr", s.opts.Addr)
	return s.server.ListenAndServe()
}

// Shutdown stops accepting requests, then waits for running imports to
// finish or ctx to expire.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.server.Shutdown(ctx); err != nil {
		return err
	}

	if im := s.service.Importer(); im != nil {
		status := im.Limiter().Status()
		if status.Active > 0 {
			slog.Info("waiting for imports to finish", "active", status.Active)
		}
		if err := im.Limiter().WaitForDrain(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// securityHeaders adds security headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'self'; style-src 'self' 'unsafe-inline'")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		next.ServeHTTP(w, r)
	})
}
