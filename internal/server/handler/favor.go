package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/divinefavor/internal/domain"
	"github.com/alanyoungcy/divinefavor/internal/service"
)

// FavorReader returns a player's favor account.
type FavorReader interface {
	Balance(ctx context.Context, playerID string) (domain.FavorAccount, error)
}

var _ FavorReader = (*service.FavorLedger)(nil)

// FavorHandler serves favor balances.
type FavorHandler struct {
	ledger        FavorReader
	defaultPlayer string
	logger        *slog.Logger
}

// NewFavorHandler creates a FavorHandler. Requests that name no player read
// defaultPlayer.
func NewFavorHandler(ledger FavorReader, defaultPlayer string, logger *slog.Logger) *FavorHandler {
	if defaultPlayer == "" {
		defaultPlayer = domain.DefaultPlayerID
	}
	return &FavorHandler{ledger: ledger, defaultPlayer: defaultPlayer, logger: component(logger, "favor")}
}

type favorResponse struct {
	domain.FavorAccount
	Total int64 `json:"total"`
}

// GetFavor returns the spendable and reserved favor.
// GET /api/favor
func (h *FavorHandler) GetFavor(w http.ResponseWriter, r *http.Request) {
	id := playerID(r)
	if id == "" {
		id = h.defaultPlayer
	}
	acct, err := h.ledger.Balance(r.Context(), id)
	if err != nil {
		writeServiceError(r.Context(), w, h.logger, "get favor", err)
		return
	}
	writeJSON(w, http.StatusOK, favorResponse{FavorAccount: acct, Total: acct.Total()})
}
