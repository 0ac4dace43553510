package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/divinefavor/internal/service"
)

// InfluenceApplier spends favor on divine interventions.
type InfluenceApplier interface {
	Apply(ctx context.Context, req service.InfluenceRequest) (service.InfluenceResult, error)
	Costs() service.InfluenceCosts
}

var _ InfluenceApplier = (*service.InfluenceService)(nil)

// InfluenceHandler serves the influence actions.
type InfluenceHandler struct {
	influence InfluenceApplier
	logger    *slog.Logger
}

// NewInfluenceHandler creates an InfluenceHandler.
func NewInfluenceHandler(influence InfluenceApplier, logger *slog.Logger) *InfluenceHandler {
	return &InfluenceHandler{influence: influence, logger: component(logger, "influence")}
}

type influenceBody struct {
	TargetID string `json:"target_id"`
	PlayerID string `json:"player_id,omitempty"`
}

// Apply performs the action named in the path on the target in the body.
// POST /api/influence/{action}
func (h *InfluenceHandler) Apply(w http.ResponseWriter, r *http.Request) {
	var body influenceBody
	if err := decodeBody(w, r, &body); err != nil {
		writeServiceError(r.Context(), w, h.logger, "apply influence", err)
		return
	}
	if body.PlayerID == "" {
		body.PlayerID = playerID(r)
	}
	res, err := h.influence.Apply(r.Context(), service.InfluenceRequest{
		PlayerID: body.PlayerID,
		Action:   service.InfluenceAction(pathParam(r, "action")),
		TargetID: body.TargetID,
	})
	if err != nil {
		writeServiceError(r.Context(), w, h.logger, "apply influence", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// GetCosts lists the favor price of every action.
// GET /api/influence
func (h *InfluenceHandler) GetCosts(w http.ResponseWriter, r *http.Request) {
	c := h.influence.Costs()
	writeJSON(w, http.StatusOK, map[service.InfluenceAction]int64{
		service.ActionBless:       c.Bless,
		service.ActionCorrupt:     c.Corrupt,
		service.ActionAscend:      c.Ascend,
		service.ActionRaiseUndead: c.RaiseUndead,
		service.ActionReveal:      c.Reveal,
	})
}
