package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/divinefavor/internal/service"
)

// TickRunner runs one simulation tick on demand.
type TickRunner interface {
	RunTick(ctx context.Context) (service.TickResult, error)
}

// Expirer sweeps bets whose timeframe has run out.
type Expirer interface {
	ProcessExpiredBets(ctx context.Context, year int) (service.ResolutionReport, error)
}

var (
	_ TickRunner = (*service.TickScheduler)(nil)
	_ Expirer    = (*service.ResolutionEngine)(nil)
)

// AdminHandler serves manual control of the simulation.
type AdminHandler struct {
	ticks   TickRunner
	expirer Expirer
	clock   YearSource
	logger  *slog.Logger
}

// NewAdminHandler creates an AdminHandler.
func NewAdminHandler(ticks TickRunner, expirer Expirer, clock YearSource, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{ticks: ticks, expirer: expirer, clock: clock, logger: component(logger, "admin")}
}

// RunTick advances the world by one year and returns what happened.
// POST /api/admin/tick
func (h *AdminHandler) RunTick(w http.ResponseWriter, r *http.Request) {
	res, err := h.ticks.RunTick(r.Context())
	if err != nil {
		writeServiceError(r.Context(), w, h.logger, "run tick", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type expireResponse struct {
	Year      int                      `json:"year"`
	Processed int                      `json:"processed_count"`
	Report    service.ResolutionReport `json:"report"`
}

// ExpireBets resolves every bet due at the current year.
// POST /api/admin/bets/expire
func (h *AdminHandler) ExpireBets(w http.ResponseWriter, r *http.Request) {
	year := h.clock.Year()
	rep, err := h.expirer.ProcessExpiredBets(r.Context(), year)
	if err != nil {
		writeServiceError(r.Context(), w, h.logger, "expire bets", err)
		return
	}
	h.logger.InfoContext(r.Context(), "handler: expired bets swept",
		slog.Int("year", year),
		slog.Int("processed", rep.Processed()),
	)
	writeJSON(w, http.StatusOK, expireResponse{Year: year, Processed: rep.Processed(), Report: rep})
}
