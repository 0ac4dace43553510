package app

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/divinefavor/internal/server"
	"github.com/alanyoungcy/divinefavor/internal/server/handler"
	"github.com/alanyoungcy/divinefavor/internal/server/ws"
)

const shutdownTimeout = 5 * time.Second

// SimMode runs the tick loop with no HTTP surface.
func (a *App) SimMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting sim mode",
		slog.Int("current_year", deps.Clock.Year()),
	)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return deps.Scheduler.Run(ctx) })
	return clean(g.Wait())
}

// ServerMode serves the API without advancing time on its own. Ticks happen
// only through POST /api/admin/tick.
func (a *App) ServerMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting server mode")
	g, ctx := errgroup.WithContext(ctx)
	a.startHTTPServer(ctx, g, deps)
	return clean(g.Wait())
}

// FullMode runs the tick loop and, when enabled, the API.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode",
		slog.Int("current_year", deps.Clock.Year()),
		slog.Duration("tick_interval", a.cfg.World.TickInterval.Duration),
	)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return deps.Scheduler.Run(ctx) })
	if a.cfg.Server.Enabled {
		a.startHTTPServer(ctx, g, deps)
	} else {
		a.logger.InfoContext(ctx, "server.enabled is false; running without the API")
	}
	return clean(g.Wait())
}

// startHTTPServer adds the websocket hub and the HTTP server to g. The server
// is shut down gracefully when ctx is cancelled.
func (a *App) startHTTPServer(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	hub := ws.NewHub(deps.Bus, ws.Config{Mode: a.cfg.Mode, StartedAt: time.Now().UTC()}, a.logger)
	g.Go(func() error { return hub.Run(ctx) })

	var shared handler.TickSummarySource
	if deps.TickCache != nil {
		shared = deps.TickCache
	}

	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		APIKey:      a.cfg.Server.APIKey,
		RateLimit:   a.cfg.Server.RateLimit,
		RateWindow:  a.cfg.Server.RateWindow.Duration,
	}, server.Handlers{
		Health:    handler.NewHealthHandler(deps.Health, a.logger),
		Status:    handler.NewStatusHandler(a.cfg.Mode, deps.Clock, deps.Scheduler, shared, a.logger),
		Bets:      handler.NewBetHandler(deps.Market, a.logger),
		World:     handler.NewWorldHandler(deps.State, deps.Clock, a.logger),
		Events:    handler.NewEventHandler(deps.Journal, a.logger),
		Favor:     handler.NewFavorHandler(deps.Ledger, a.cfg.Market.PlayerID, a.logger),
		Influence: handler.NewInfluenceHandler(deps.Influence, a.logger),
		Admin:     handler.NewAdminHandler(deps.Scheduler, deps.Resolution, deps.Clock, a.logger),
	}, hub, deps.RateLimiter, a.logger)

	if a.cfg.Server.RateLimit > 0 && deps.RateLimiter == nil {
		a.logger.WarnContext(ctx, "server.rate_limit is set but redis is disabled; requests are not limited")
	}

	g.Go(srv.Start)
	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})
}

// clean treats cancellation as a normal stop.
func clean(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
