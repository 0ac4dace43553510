// Package server exposes the betting market and the world over HTTP, plus a
// websocket feed of the journal.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/alanyoungcy/divinefavor/internal/domain"
	"github.com/alanyoungcy/divinefavor/internal/server/handler"
	"github.com/alanyoungcy/divinefavor/internal/server/middleware"
	"github.com/alanyoungcy/divinefavor/internal/server/ws"
)

// Paths that require the API key when one is configured.
var protectedPrefixes = []string{"/api/admin/", "/api/influence/"}

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	APIKey      string // if empty, authentication is disabled
	// RateLimit is requests per RateWindow per client IP. Zero disables it.
	RateLimit  int
	RateWindow time.Duration
}

// Handlers aggregates all HTTP handlers that the server needs to register.
type Handlers struct {
	Health    *handler.HealthHandler
	Status    *handler.StatusHandler
	Bets      *handler.BetHandler
	World     *handler.WorldHandler
	Events    *handler.EventHandler
	Favor     *handler.FavorHandler
	Influence *handler.InfluenceHandler
	Admin     *handler.AdminHandler
}

// Server is the HTTP + websocket API.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer registers every route and wraps the mux in CORS, logging,
// optional rate limiting, and auth. wsHub and limiter may be nil.
func NewServer(cfg Config, handlers Handlers, wsHub *ws.Hub, limiter domain.RateLimiter, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)
	mux.HandleFunc("GET /api/status", handlers.Status.GetStatus)

	mux.HandleFunc("POST /api/bets", handlers.Bets.PlaceBet)
	mux.HandleFunc("GET /api/bets", handlers.Bets.ListBets)
	mux.HandleFunc("GET /api/bets/{id}", handlers.Bets.GetBet)
	mux.HandleFunc("GET /api/odds", handlers.Bets.GetOdds)

	mux.HandleFunc("GET /api/world", handlers.World.GetWorld)
	mux.HandleFunc("GET /api/world/regions/{id}", handlers.World.GetRegion)
	mux.HandleFunc("GET /api/world/settlements/{id}", handlers.World.GetSettlement)
	mux.HandleFunc("GET /api/world/heroes/{id}", handlers.World.GetHero)
	mux.HandleFunc("GET /api/events", handlers.Events.ListEvents)

	mux.HandleFunc("GET /api/favor", handlers.Favor.GetFavor)
	mux.HandleFunc("GET /api/influence", handlers.Influence.GetCosts)
	mux.HandleFunc("POST /api/influence/{action}", handlers.Influence.Apply)

	mux.HandleFunc("POST /api/admin/tick", handlers.Admin.RunTick)
	mux.HandleFunc("POST /api/admin/bets/expire", handlers.Admin.ExpireBets)

	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	var h http.Handler = mux
	h = middleware.Auth(cfg.APIKey, protectedPrefixes...)(h)
	if limiter != nil && cfg.RateLimit > 0 {
		h = middleware.RateLimit(limiter, cfg.RateLimit, cfg.RateWindow, logger)(h)
	}
	h = middleware.Logging(logger)(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)

	return &Server{
		httpServer: &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Port),
			Handler:           h,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		logger: logger.With(slog.String("component", "server")),
	}
}

// Handler returns the fully wrapped handler.
func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

// Start listens until the server is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting", slog.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown waits for in-flight requests until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
