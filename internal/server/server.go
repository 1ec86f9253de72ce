// Package server assembles the HTTP API: routes, middleware chain, and the
// WebSocket endpoint.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/forecastlabs/commentd/internal/domain"
	"github.com/forecastlabs/commentd/internal/server/handler"
	"github.com/forecastlabs/commentd/internal/server/middleware"
	"github.com/forecastlabs/commentd/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string

	// Rate limiting applied to comment creation, per authenticated user
	// (or per client IP for anonymous requests).
	RateLimit       int
	RateLimitWindow time.Duration
}

// Handlers aggregates all HTTP handlers that the server needs to register.
type Handlers struct {
	Health   *handler.HealthHandler
	Comments *handler.CommentHandler
	Sessions *handler.SessionHandler
}

// Server is the HTTP + WebSocket API server for the comment service.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	logger     *slog.Logger
}

// NewServer creates a new Server with all routes registered on the ServeMux.
// It wires up middleware (CORS, logging, auth) and attaches the WebSocket hub.
func NewServer(
	cfg Config,
	handlers Handlers,
	auth middleware.Authenticator,
	limiter domain.RateLimiter,
	wsHub *ws.Hub,
	logger *slog.Logger,
) *Server {
	mux := http.NewServeMux()

	// Health check (no auth required).
	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	// Session login.
	mux.HandleFunc("POST /api/sessions", handlers.Sessions.CreateSession)

	// Comment endpoints. Creation is rate limited per credential.
	createComment := http.HandlerFunc(handlers.Comments.CreateComment)
	if limiter != nil && cfg.RateLimit > 0 {
		limited := middleware.RateLimit(limiter, cfg.RateLimit, cfg.RateLimitWindow)(createComment)
		mux.Handle("POST /api/comments", limited)
	} else {
		mux.Handle("POST /api/comments", createComment)
	}
	mux.HandleFunc("GET /api/markets/{id}/comments", handlers.Comments.ListComments)

	// WebSocket endpoint.
	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	// Build the middleware chain, innermost first.
	var h http.Handler = mux
	h = middleware.Auth(auth, logger)(h)
	h = middleware.Logging(logger)(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		mux:        mux,
		logger:     logger,
	}
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting",
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
