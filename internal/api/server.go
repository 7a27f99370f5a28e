// Package api provides the HTTP API server and handlers for the CD rack.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/jthaw/cdrack/internal/catalog"
	"github.com/jthaw/cdrack/internal/recaptcha"
	"github.com/jthaw/cdrack/internal/search"
	"github.com/jthaw/cdrack/internal/validation"
)

// Catalog is the album catalog the handlers serve.
type Catalog interface {
	Search(ctx context.Context, q search.Query) ([]catalog.Album, error)
	Add(ctx context.Context, mbid string, extras catalog.Extras) (*catalog.Album, error)
	List(ctx context.Context) ([]catalog.ListingAlbum, error)
	Get(ctx context.Context, barcode string) (*catalog.Album, error)
	Ping(ctx context.Context) error
}

// Options configures the HTTP surface.
type Options struct {
	// Name is reported by the ping endpoint.
	Name           string
	AllowedOrigins []string
	// RateLimitRequests per RateLimitWindow per client IP on search and add.
	// Zero disables limiting.
	RateLimitRequests int
	RateLimitWindow   time.Duration
}

// allowedHeaders are the request headers the front-end may send.
var allowedHeaders = []string{
	"Content-Type",
	"X-Amz-Date",
	"Authorization",
	"X-Api-Key",
	"X-Amz-Security-Token",
	"X-Amz-User-Agent",
	"X-Access-Token",
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	catalog   Catalog
	verifier  recaptcha.Verifier
	validator *validation.Validator
	opts      Options
	now       func() time.Time
	router    *chi.Mux
	logger    *slog.Logger
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(
	albums Catalog,
	verifier recaptcha.Verifier,
	validator *validation.Validator,
	opts Options,
	logger *slog.Logger,
) *Server {
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}

	s := &Server{
		catalog:   albums,
		verifier:  verifier,
		validator: validator,
		opts:      opts,
		now:       time.Now,
		router:    chi.NewRouter(),
		logger:    logger,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// setupMiddleware configures middleware stack.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.requestLogger)
	s.router.Use(s.recoverer)
	if slices.Contains(s.opts.AllowedOrigins, "*") {
		s.router.Use(originlessCORS)
	}
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.opts.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   allowedHeaders,
		AllowCredentials: true,
		MaxAge:           300,
	}))
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.NotFound(s.wrap(s.handleNotFound))
	s.router.MethodNotAllowed(s.handleMethodNotAllowed)

	s.router.Get("/ping", s.wrap(s.handlePing))
	s.router.Get("/load", s.wrap(s.handleLoad))
	s.router.Get("/albums/{barcode}", s.wrap(s.handleGetAlbum))

	// Search and add call out to paid-for or rate-limited providers.
	s.router.Group(func(r chi.Router) {
		r.Use(s.rateLimit())
		r.Post("/search", s.wrap(s.handleSearch))
		r.Post("/add", s.wrap(s.handleAdd))
	})
}

// rateLimit limits requests per client IP. RealIP has already rewritten
// RemoteAddr, so KeyByIP sees the forwarded address.
func (s *Server) rateLimit() func(http.Handler) http.Handler {
	if s.opts.RateLimitRequests <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}

	return httprate.Limit(
		s.opts.RateLimitRequests,
		s.opts.RateLimitWindow,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(s.handleRateLimited),
	)
}
