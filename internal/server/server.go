// Package server exposes the settlement backend over HTTP and WebSocket.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/soumik404/basecast/internal/domain"
	"github.com/soumik404/basecast/internal/server/handler"
	"github.com/soumik404/basecast/internal/server/middleware"
	"github.com/soumik404/basecast/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	APIKey      string // if empty, authentication is disabled

	// RateLimit caps requests per client IP per second. 0 disables limiting.
	RateLimit int
}

// Handlers aggregates all HTTP handlers that the server needs to register.
type Handlers struct {
	Health      *handler.HealthHandler
	Predictions *handler.PredictionHandler
	Bets        *handler.BetHandler
	Leaderboard *handler.LeaderboardHandler
	Verifiers   *handler.VerifierHandler
	Ops         *handler.OpsHandler
}

// Server is the HTTP + WebSocket API server of the settlement backend.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	logger     *slog.Logger
}

// NewServer creates a new Server with all routes registered on the ServeMux.
// It wires up middleware (logging, CORS, auth, rate limiting) and attaches
// the WebSocket hub. limiter may be nil.
func NewServer(cfg Config, handlers Handlers, wsHub *ws.Hub, limiter domain.RateLimiter, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	// Health check (no auth required).
	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	// Prediction endpoints. The pending route must be registered before the
	// {id} wildcard would shadow it; Go 1.22 routing prefers the literal.
	mux.HandleFunc("GET /api/predictions", handlers.Predictions.List)
	mux.HandleFunc("POST /api/predictions", handlers.Predictions.Create)
	mux.HandleFunc("GET /api/predictions/pending", handlers.Predictions.Pending)
	mux.HandleFunc("GET /api/predictions/{id}", handlers.Predictions.Get)
	mux.HandleFunc("GET /api/predictions/{id}/quote", handlers.Predictions.Quote)
	mux.HandleFunc("GET /api/predictions/{id}/proposals", handlers.Predictions.Proposals)
	mux.HandleFunc("POST /api/predictions/{id}/propose", handlers.Predictions.Propose)
	mux.HandleFunc("POST /api/predictions/{id}/verify", handlers.Predictions.Verify)
	mux.HandleFunc("POST /api/predictions/{id}/reconcile", handlers.Predictions.Reconcile)

	// Bet endpoints.
	mux.HandleFunc("GET /api/bets", handlers.Bets.List)
	mux.HandleFunc("POST /api/bets", handlers.Bets.Place)
	mux.HandleFunc("POST /api/bets/{id}/claim", handlers.Bets.Claim)

	// Leaderboard.
	mux.HandleFunc("GET /api/leaderboard", handlers.Leaderboard.Top)

	// Verifier registry.
	mux.HandleFunc("GET /api/verifiers", handlers.Verifiers.List)
	mux.HandleFunc("POST /api/verifiers", handlers.Verifiers.Add)
	mux.HandleFunc("DELETE /api/verifiers/{address}", handlers.Verifiers.Remove)

	// Operator endpoints.
	mux.HandleFunc("GET /api/audit", handlers.Ops.Audit)
	mux.HandleFunc("GET /api/stats", handlers.Ops.Stats)

	// WebSocket settlement event stream.
	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	// Build the middleware chain.
	var h http.Handler = mux

	h = middleware.Auth(cfg.APIKey)(h)
	if limiter != nil && cfg.RateLimit > 0 {
		h = middleware.RateLimit(limiter, cfg.RateLimit, time.Second)(h)
	}
	h = middleware.Logging(logger)(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 3 * time.Minute, // settlement writes block on confirmation
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
