package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/alanyoungcy/divinefavor/internal/cache/redis"
	"github.com/alanyoungcy/divinefavor/internal/domain"
	"github.com/alanyoungcy/divinefavor/internal/service"
)

// SchedulerView reports the tick scheduler's counters.
type SchedulerView interface {
	Status() service.SchedulerStatus
}

// TickSummarySource returns the last tick recorded by any instance.
type TickSummarySource interface {
	Last(ctx context.Context) (redis.TickSummary, error)
}

var (
	_ SchedulerView     = (*service.TickScheduler)(nil)
	_ TickSummarySource = (*redis.TickCache)(nil)
)

// StatusHandler serves the runtime status of the simulation.
type StatusHandler struct {
	mode      string
	startedAt time.Time
	clock     YearSource
	scheduler SchedulerView
	shared    TickSummarySource
	logger    *slog.Logger
}

// NewStatusHandler creates a StatusHandler. shared may be nil when no
// Redis is configured.
func NewStatusHandler(mode string, clock YearSource, scheduler SchedulerView, shared TickSummarySource, logger *slog.Logger) *StatusHandler {
	return &StatusHandler{
		mode:      mode,
		startedAt: time.Now().UTC(),
		clock:     clock,
		scheduler: scheduler,
		shared:    shared,
		logger:    component(logger, "status"),
	}
}

type statusResponse struct {
	Mode          string                  `json:"mode"`
	CurrentYear   int                     `json:"current_year"`
	UptimeSeconds int64                   `json:"uptime_seconds"`
	Scheduler     service.SchedulerStatus `json:"scheduler"`
	LastTick      *redis.TickSummary      `json:"last_shared_tick,omitempty"`
}

// GetStatus responds with the mode, year, and scheduler counters.
// GET /api/status
func (h *StatusHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{
		Mode:          h.mode,
		CurrentYear:   h.clock.Year(),
		UptimeSeconds: int64(time.Since(h.startedAt).Seconds()),
		Scheduler:     h.scheduler.Status(),
	}
	if h.shared != nil {
		last, err := h.shared.Last(r.Context())
		switch {
		case err == nil:
			resp.LastTick = &last
		case !errors.Is(err, domain.ErrNotFound):
			h.logger.WarnContext(r.Context(), "handler: shared tick summary unavailable",
				slog.String("error", err.Error()),
			)
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
