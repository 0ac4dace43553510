package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/divinefavor/internal/domain"
	"github.com/alanyoungcy/divinefavor/internal/service"
)

// MarketService is what the bet handler needs from the betting market.
type MarketService interface {
	PlaceBet(ctx context.Context, req service.PlaceBetRequest) (domain.Bet, error)
	GetBet(ctx context.Context, id string) (domain.Bet, error)
	ListBets(ctx context.Context, filter domain.BetFilter) ([]domain.Bet, error)
	GetOdds(ctx context.Context, req service.OddsRequest) (service.OddsResponse, error)
}

var _ MarketService = (*service.BettingMarket)(nil)

// BetHandler serves bet placement, lookup, and odds quotes.
type BetHandler struct {
	market MarketService
	logger *slog.Logger
}

// NewBetHandler creates a BetHandler.
func NewBetHandler(market MarketService, logger *slog.Logger) *BetHandler {
	return &BetHandler{market: market, logger: component(logger, "bets")}
}

type listBetsResponse struct {
	Bets   []domain.Bet `json:"bets"`
	Limit  int          `json:"limit"`
	Offset int          `json:"offset"`
}

// PlaceBet books a new bet.
// POST /api/bets
func (h *BetHandler) PlaceBet(w http.ResponseWriter, r *http.Request) {
	var req service.PlaceBetRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeServiceError(r.Context(), w, h.logger, "place bet", err)
		return
	}
	if req.PlayerID == "" {
		req.PlayerID = playerID(r)
	}
	bet, err := h.market.PlaceBet(r.Context(), req)
	if err != nil {
		writeServiceError(r.Context(), w, h.logger, "place bet", err)
		return
	}
	writeJSON(w, http.StatusCreated, bet)
}

// GetBet returns one bet.
// GET /api/bets/{id}
func (h *BetHandler) GetBet(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing bet id")
		return
	}
	bet, err := h.market.GetBet(r.Context(), id)
	if err != nil {
		writeServiceError(r.Context(), w, h.logger, "get bet", err)
		return
	}
	writeJSON(w, http.StatusOK, bet)
}

// ListBets returns bets newest first.
// GET /api/bets?status=active&bet_type=&target_id=&confidence=&limit=50&offset=0
func (h *BetHandler) ListBets(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePage(r)
	q := r.URL.Query()
	filter := domain.BetFilter{
		PlayerID:   playerID(r),
		Status:     domain.BetStatus(q.Get("status")),
		BetType:    q.Get("bet_type"),
		TargetID:   q.Get("target_id"),
		Confidence: domain.Confidence(q.Get("confidence")),
		Limit:      limit,
		Offset:     offset,
	}
	bets, err := h.market.ListBets(r.Context(), filter)
	if err != nil {
		writeServiceError(r.Context(), w, h.logger, "list bets", err)
		return
	}
	if bets == nil {
		bets = []domain.Bet{}
	}
	writeJSON(w, http.StatusOK, listBetsResponse{Bets: bets, Limit: limit, Offset: offset})
}

// GetOdds quotes a prospective bet.
// GET /api/odds?bet_type=&target_id=&target_type=&confidence=&timeframe=&stake=
func (h *BetHandler) GetOdds(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	timeframe, err := queryInt(r, "timeframe", 0)
	if err != nil {
		writeServiceError(r.Context(), w, h.logger, "get odds", err)
		return
	}
	stake, err := queryInt64(r, "stake", 0)
	if err != nil {
		writeServiceError(r.Context(), w, h.logger, "get odds", err)
		return
	}
	resp, err := h.market.GetOdds(r.Context(), service.OddsRequest{
		BetType:    q.Get("bet_type"),
		TargetID:   q.Get("target_id"),
		TargetType: domain.TargetType(q.Get("target_type")),
		Confidence: domain.Confidence(q.Get("confidence")),
		Timeframe:  timeframe,
		Stake:      stake,
	})
	if err != nil {
		writeServiceError(r.Context(), w, h.logger, "get odds", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
