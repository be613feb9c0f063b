// Package web provides the HTTP server and handlers for the upload, clean and
// convert UI and its JSON API.
package web

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	"github.com/JonMunkholm/dataprep/internal/config"
	"github.com/JonMunkholm/dataprep/internal/core"
	"github.com/JonMunkholm/dataprep/internal/metrics"
	mw "github.com/JonMunkholm/dataprep/internal/web/middleware"
)

// HealthCheck is a named dependency check reported by /healthz.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// Option customizes a Server.
type Option func(*Server)

// WithMetrics instruments requests and serves the registry.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithHealthCheck adds a dependency check to /healthz.
func WithHealthCheck(name string, check func(ctx context.Context) error) Option {
	return func(s *Server) { s.checks = append(s.checks, HealthCheck{Name: name, Check: check}) }
}

// Server is the HTTP server for the application.
type Server struct {
	service  *core.Service
	cfg      *config.Config
	metrics  *metrics.Metrics
	checks   []HealthCheck
	validate *validator.Validate

	router        *chi.Mux
	server        *http.Server
	limiter       *mw.RateLimiter
	uploadLimiter *mw.RateLimiter
}

// NewServer creates a new Server instance.
func NewServer(service *core.Service, cfg *config.Config, opts ...Option) *Server {
	s := &Server{
		service:  service,
		cfg:      cfg,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		router:   chi.NewRouter(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if cfg.Rate.Enabled {
		s.limiter = mw.NewRateLimiter(cfg.Rate.RequestsPerMinute)
		s.uploadLimiter = mw.NewRateLimiter(cfg.Rate.UploadLimit)
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(chimw.RequestID)
	s.router.Use(mw.TrustedRealIP(s.cfg.Security.TrustedProxies))
	if s.metrics != nil {
		s.router.Use(s.metrics.Middleware)
	}
	s.router.Use(mw.Logger)
	s.router.Use(chimw.Recoverer)
	s.router.Use(chimw.Compress(5))
	if s.cfg.Server.RequestTimeout > 0 {
		s.router.Use(chimw.Timeout(s.cfg.Server.RequestTimeout))
	}
	s.router.Use(securityHeaders(s.cfg.Security.EnableCSP))
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)
	if s.metrics != nil && s.cfg.Metrics.Enabled {
		s.router.Handle(s.cfg.Metrics.Path, s.metrics.Handler())
	}

	s.router.Group(func(r chi.Router) {
		if s.limiter != nil {
			r.Use(s.limiter.Handler)
		}
		r.Use(mw.Session(s.service.Sessions(), s.cfg.Session))

		// Pages and HTMX fragments
		r.Get("/", s.handleIndex)
		r.With(s.uploadLimit).Post("/upload", s.handleUpload)
		r.Route("/files/{fileID}", func(r chi.Router) {
			r.Get("/", s.handleFilePanel)
			r.Delete("/", s.handleRemoveFile)
			r.Post("/dedupe", s.handleDedupe)
			r.Post("/fill", s.handleFill)
			r.Post("/reset", s.handleReset)
			r.Post("/columns", s.handleColumns)
			r.Get("/chart", s.handleChart)
			r.Post("/export", s.handleExport)
		})

		// JSON API
		r.Route("/api", func(r chi.Router) {
			r.Use(mw.APIKeyAuth(s.cfg.Security))
			r.Use(render.SetContentType(render.ContentTypeJSON))

			r.Get("/status", s.handleAPIStatus)
			r.Get("/files", s.handleAPIListFiles)
			r.With(s.uploadLimit).Post("/files", s.handleAPIUpload)
			r.Route("/files/{fileID}", func(r chi.Router) {
				r.Get("/", s.handleAPIGetFile)
				r.Delete("/", s.handleAPIRemoveFile)
				r.Post("/commands", s.handleAPICommand)
				r.Get("/chart", s.handleAPIChart)
				r.Post("/export", s.handleAPIExport)
			})
		})
	})
}

// uploadLimit applies the stricter upload rate when rate limiting is on.
func (s *Server) uploadLimit(next http.Handler) http.Handler {
	if s.uploadLimiter == nil {
		return next
	}
	return s.uploadLimiter.Handler(next)
}

// Start begins listening for HTTP requests on the configured address.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}
	if s.limiter != nil {
		s.limiter.Start()
		s.uploadLimiter.Start()
	}
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.limiter != nil {
		s.limiter.Stop()
		s.uploadLimiter.Stop()
	}
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// handleHealth reports liveness and the state of optional dependencies.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	body := map[string]string{"status": "ok"}
	for _, c := range s.checks {
		if err := c.Check(r.Context()); err != nil {
			status = http.StatusServiceUnavailable
			body["status"] = "degraded"
			body[c.Name] = err.Error()
			continue
		}
		body[c.Name] = "ok"
	}
	render.Status(r, status)
	render.JSON(w, r, body)
}

// securityHeaders adds security headers to all responses.
func securityHeaders(enableCSP bool) func(http.Handler) http.Handler {
	csp := strings.Join([]string{
		"default-src 'self'",
		"script-src 'self' 'unsafe-inline' https://unpkg.com",
		"style-src 'self' 'unsafe-inline'",
		"img-src 'self' data:",
	}, "; ")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
			if enableCSP {
				w.Header().Set("Content-Security-Policy", csp)
			}
			next.ServeHTTP(w, r)
		})
	}
}
