package handler

import (
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/divinefavor/internal/domain"
	"github.com/alanyoungcy/divinefavor/internal/world"
)

// WorldView is the read side of the committed world.
type WorldView interface {
	Snapshot() domain.World
	Settlement(id string) (domain.Settlement, bool)
	Hero(id string) (domain.Hero, bool)
}

// YearSource returns the current simulated year.
type YearSource interface {
	Year() int
}

var (
	_ WorldView  = (*world.State)(nil)
	_ YearSource = (*world.Clock)(nil)
)

// WorldHandler serves read-only views of the simulated world.
type WorldHandler struct {
	world  WorldView
	clock  YearSource
	logger *slog.Logger
}

// NewWorldHandler creates a WorldHandler.
func NewWorldHandler(view WorldView, clock YearSource, logger *slog.Logger) *WorldHandler {
	return &WorldHandler{world: view, clock: clock, logger: component(logger, "world")}
}

type regionSummary struct {
	ID          string              `json:"id"`
	Name        string              `json:"name"`
	Status      domain.RegionStatus `json:"status"`
	Prosperity  float64             `json:"prosperity"`
	Chaos       float64             `json:"chaos"`
	Settlements int                 `json:"settlement_count"`
	Heroes      int                 `json:"hero_count"`
}

type worldResponse struct {
	Year        int             `json:"current_year"`
	EvolvedYear int             `json:"evolved_year"`
	Seed        int64           `json:"seed"`
	Regions     []regionSummary `json:"regions"`
	Settlements int             `json:"settlement_count"`
	Heroes      int             `json:"hero_count"`
}

type regionResponse struct {
	domain.Region
	Settlements []domain.Settlement `json:"settlements"`
	Heroes      []domain.Hero       `json:"heroes"`
}

// GetWorld returns the current year and a summary of every region.
// GET /api/world
func (h *WorldHandler) GetWorld(w http.ResponseWriter, r *http.Request) {
	snap := h.world.Snapshot()
	resp := worldResponse{
		Year:        h.clock.Year(),
		EvolvedYear: snap.EvolvedYear,
		Seed:        snap.Seed,
		Regions:     make([]regionSummary, 0, len(snap.Regions)),
		Settlements: len(snap.Settlements),
		Heroes:      len(snap.Heroes),
	}
	for _, id := range snap.RegionIDs() {
		reg := snap.Regions[id]
		resp.Regions = append(resp.Regions, regionSummary{
			ID:          reg.ID,
			Name:        reg.Name,
			Status:      reg.Status,
			Prosperity:  reg.Prosperity,
			Chaos:       reg.Chaos,
			Settlements: len(snap.SettlementsIn(id)),
			Heroes:      len(snap.HeroesIn(id)),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetRegion returns one region with its settlements and the heroes in it.
// GET /api/world/regions/{id}
func (h *WorldHandler) GetRegion(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	snap := h.world.Snapshot()
	reg, ok := snap.Regions[id]
	if !ok {
		writeServiceError(r.Context(), w, h.logger, "get region", domain.NotFound("region", id))
		return
	}
	resp := regionResponse{
		Region:      reg,
		Settlements: snap.SettlementsIn(id),
		Heroes:      snap.HeroesIn(id),
	}
	if resp.Settlements == nil {
		resp.Settlements = []domain.Settlement{}
	}
	if resp.Heroes == nil {
		resp.Heroes = []domain.Hero{}
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetSettlement returns one settlement.
// GET /api/world/settlements/{id}
func (h *WorldHandler) GetSettlement(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	s, ok := h.world.Settlement(id)
	if !ok {
		writeServiceError(r.Context(), w, h.logger, "get settlement", domain.NotFound("settlement", id))
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// GetHero returns one hero.
// GET /api/world/heroes/{id}
func (h *WorldHandler) GetHero(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	hero, ok := h.world.Hero(id)
	if !ok {
		writeServiceError(r.Context(), w, h.logger, "get hero", domain.NotFound("hero", id))
		return
	}
	writeJSON(w, http.StatusOK, hero)
}
