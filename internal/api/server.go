// Package api serves the JSON endpoints consumed by the dashboard.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"net/netip"
	"time"

	"github.com/star/passwatch/internal/auth"
	"github.com/star/passwatch/internal/groundtrack"
	"github.com/star/passwatch/internal/health"
	"github.com/star/passwatch/internal/metrics"
	"github.com/star/passwatch/internal/passes"
	"github.com/star/passwatch/internal/state"
	"github.com/star/passwatch/internal/tle"
)

// Config holds the HTTP layer settings.
type Config struct {
	Addr           string
	ResponseTTL    time.Duration // pass and track response cache lifetime, 0 disables
	CacheSize      int           // entries per response cache, default 256
	MaxSearches    int           // concurrent uncached pass searches per client IP, 0 disables the cap
	Auth           auth.Config
	TrustedProxies []netip.Prefix
	Now            func() time.Time
}

// StateSource computes the current snapshot. *state.Aggregator implements it.
type StateSource interface {
	Current(ctx context.Context) state.Snapshot
}

// TrackSource produces ground tracks. *groundtrack.Generator implements it.
type TrackSource interface {
	Track(ctx context.Context, key string, duration, step time.Duration) ([]groundtrack.Segment, error)
}

// PassSource searches passes. *passes.Finder implements it.
type PassSource interface {
	Find(ctx context.Context, key string, obs passes.Observer, horizon time.Duration, limit int) (passes.Result, error)
}

// Services are the domain components behind the endpoints.
type Services struct {
	Satellites []tle.Definition // configuration order; the first is the default for passes
	State      StateSource
	Tracks     TrackSource
	Passes     PassSource
	Ready      func() bool
}

// Server holds the HTTP server and its dependencies.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	svc        Services
	now        func() time.Time

	known          map[string]tle.Definition
	passCache      *responseCache
	trackCache     *responseCache
	searches       *searchGate
	trustedProxies []netip.Prefix
}

// NewServer creates a configured HTTP server.
func NewServer(cfg Config, svc Services, logger *slog.Logger) *Server {
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = 256
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	s := &Server{
		logger:     logger,
		svc:        svc,
		now:        cfg.Now,
		known:      make(map[string]tle.Definition, len(svc.Satellites)),
		passCache:  newResponseCache("passes", cfg.CacheSize, cfg.ResponseTTL),
		trackCache: newResponseCache("track", cfg.CacheSize, cfg.ResponseTTL),
		searches:   newSearchGate(cfg.MaxSearches, 0),

		trustedProxies: cfg.TrustedProxies,
	}
	for _, d := range svc.Satellites {
		s.known[d.Key] = d
	}

	mux := http.NewServeMux()

	// Register routes.
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /healthz", health.Healthz)
	mux.HandleFunc("GET /readyz", health.Readyz(svc.Ready))
	mux.Handle("GET /metrics", metrics.Handler())
	mux.HandleFunc("GET /api/state", s.handleState)
	mux.HandleFunc("GET /api/track", s.handleTrack)
	mux.HandleFunc("GET /api/passes", s.handlePasses)

	// Build middleware chain: metrics -> logging -> auth -> mux.
	var handler http.Handler = mux
	handler = auth.Middleware(cfg.Auth)(handler)
	handler = loggingMiddleware(logger, cfg.TrustedProxies)(handler)
	handler = metrics.Middleware(handler)

	s.httpServer = &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// Handler returns the full middleware chain.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// HTTPServer returns the underlying *http.Server for external control (e.g. shutdown).
func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}
