// Package server provides the HTTP and WebSocket API for the advisory bot.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/spaelabs/manifoldbot/internal/domain"
	"github.com/spaelabs/manifoldbot/internal/server/handler"
	"github.com/spaelabs/manifoldbot/internal/server/middleware"
	"github.com/spaelabs/manifoldbot/internal/server/ws"
)

// httpRateLimit is the per-client request budget applied when a rate limiter
// is wired, per rateLimitWindow.
const (
	httpRateLimit   = 300
	rateLimitWindow = time.Minute
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	APIKey      string // if empty, authentication is disabled

	// RateLimiter enables per-client request limiting when non-nil.
	RateLimiter domain.RateLimiter
}

// Handlers aggregates the HTTP handlers the server registers. Nil fields are
// skipped, so modes without Postgres or S3 simply lack those routes.
type Handlers struct {
	Health  *handler.HealthHandler
	Status  *handler.StatusHandler
	Runs    *handler.RunHandler
	Traders *handler.TraderHandler
	Advise  *handler.AdviseHandler
	Feed    *handler.FeedHandler
	Archive *handler.ArchiveHandler
}

// Server is the headless HTTP + WebSocket API server for the advisory bot.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// New creates a Server with all available routes registered on the ServeMux
// and the middleware chain (auth, logging, CORS, optional rate limit)
// applied. The health endpoint and the WebSocket upgrade are exempt from
// authentication.
func New(cfg Config, handlers Handlers, hub *ws.Hub, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	if handlers.Health != nil {
		mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)
	}
	if handlers.Status != nil {
		mux.HandleFunc("GET /api/status", handlers.Status.GetStatus)
	}
	if handlers.Runs != nil {
		mux.HandleFunc("GET /api/runs", handlers.Runs.ListRuns)
		mux.HandleFunc("GET /api/runs/{id}", handlers.Runs.GetRun)
		mux.HandleFunc("GET /api/recommendations/latest", handlers.Runs.LatestRecommendations)
	}
	if handlers.Traders != nil {
		mux.HandleFunc("GET /api/traders", handlers.Traders.ListTraders)
	}
	if handlers.Advise != nil {
		mux.HandleFunc("POST /api/advise", handlers.Advise.TriggerRun)
	}
	if handlers.Feed != nil {
		mux.HandleFunc("GET /api/feed", handlers.Feed.Replay)
	}
	if handlers.Archive != nil {
		mux.HandleFunc("GET /api/archive", handlers.Archive.ListArchive)
		mux.HandleFunc("GET /api/archive/{key...}", handlers.Archive.GetArchive)
	}
	if hub != nil {
		mux.HandleFunc("GET /ws", hub.HandleWS)
	}

	var h http.Handler = mux

	h = middleware.Auth(cfg.APIKey, "/api/health", "/ws")(h)
	if cfg.RateLimiter != nil {
		h = middleware.RateLimit(cfg.RateLimiter, httpRateLimit, rateLimitWindow)(h)
	}
	h = middleware.Logging(logger)(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		logger:     logger,
	}
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: listening",
		slog.String("addr", s.httpServer.Addr),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
