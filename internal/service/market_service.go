package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/alanyoungcy/divinefavor/internal/domain"
	"github.com/alanyoungcy/divinefavor/internal/pricing"
)

const (
	maxDescriptionLen = 500
	defaultListLimit  = 50
	maxListLimit      = 500
)

// WorldReader is the read side of the world state the market prices from.
type WorldReader interface {
	Target(tt domain.TargetType, id string) domain.Snapshot
	Locate(id string) (domain.TargetType, bool)
}

// YearSource returns the current simulated year.
type YearSource interface {
	Year() int
}

// PlaceBetRequest is a wager as submitted by a player.
type PlaceBetRequest struct {
	PlayerID    string            `json:"player_id,omitempty"`
	BetType     string            `json:"bet_type"`
	TargetID    string            `json:"target_id"`
	TargetType  domain.TargetType `json:"target_type,omitempty"`
	Description string            `json:"description"`
	Timeframe   int               `json:"timeframe"`
	Confidence  domain.Confidence `json:"confidence"`
	Stake       int64             `json:"divine_favor_stake"`
}

// OddsRequest asks for a quote without placing anything.
type OddsRequest struct {
	BetType    string
	TargetID   string
	TargetType domain.TargetType
	Confidence domain.Confidence
	Timeframe  int
	Stake      int64
}

// OddsResponse is a quote plus the payout it implies.
type OddsResponse struct {
	pricing.Quote
	TargetType      domain.TargetType `json:"target_type"`
	MinStake        int64             `json:"min_stake"`
	Stake           int64             `json:"stake"`
	PotentialPayout int64             `json:"potential_payout"`
}

// BettingMarket validates, prices and records bets.
type BettingMarket struct {
	world    WorldReader
	clock    YearSource
	engine   *pricing.Engine
	ledger   *FavorLedger
	bets     domain.BetStore
	bus      domain.SignalBus
	playerID string
	logger   *slog.Logger
	now      func() time.Time
}

// NewBettingMarket creates a BettingMarket. Requests without a player id
// are booked against defaultPlayer. bus may be nil.
func NewBettingMarket(
	world WorldReader,
	clock YearSource,
	engine *pricing.Engine,
	ledger *FavorLedger,
	bets domain.BetStore,
	bus domain.SignalBus,
	defaultPlayer string,
	logger *slog.Logger,
) *BettingMarket {
	if defaultPlayer == "" {
		defaultPlayer = domain.DefaultPlayerID
	}
	return &BettingMarket{
		world:    world,
		clock:    clock,
		engine:   engine,
		ledger:   ledger,
		bets:     bets,
		bus:      bus,
		playerID: defaultPlayer,
		logger:   logger.With(slog.String("component", "betting_market")),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// PlaceBet validates and prices req, reserves the stake, and records the
// bet. Nothing is mutated when an error is returned.
func (m *BettingMarket) PlaceBet(ctx context.Context, req PlaceBetRequest) (domain.Bet, error) {
	if req.PlayerID == "" {
		req.PlayerID = m.playerID
	}
	if err := m.validatePlaceBet(req); err != nil {
		return domain.Bet{}, err
	}
	bt, tt, snap, err := m.prepare(req.BetType, req.TargetID, req.TargetType, req.Timeframe)
	if err != nil {
		return domain.Bet{}, err
	}

	minStake, err := m.engine.RequiredStake(bt.Code, req.Confidence)
	if err != nil {
		return domain.Bet{}, fmt.Errorf("betting_market: min stake: %w", err)
	}
	if req.Stake < minStake {
		return domain.Bet{}, domain.Invalid("divine_favor_stake", "must be at least %d for %s at %s", minStake, bt.Code, req.Confidence)
	}

	quote, err := m.engine.Quote(pricing.QuoteRequest{
		BetType:    bt.Code,
		Confidence: req.Confidence,
		Timeframe:  req.Timeframe,
		TargetType: tt,
		TargetID:   req.TargetID,
	}, snap)
	if err != nil {
		return domain.Bet{}, fmt.Errorf("betting_market: quote: %w", err)
	}

	now := m.now()
	bet := domain.Bet{
		ID:              uuid.NewString(),
		PlayerID:        req.PlayerID,
		BetType:         bt.Code,
		TargetID:        req.TargetID,
		TargetType:      tt,
		Description:     strings.TrimSpace(req.Description),
		Timeframe:       req.Timeframe,
		Confidence:      req.Confidence,
		Stake:           req.Stake,
		PotentialPayout: quote.Payout(req.Stake),
		CurrentOdds:     quote.Odds,
		Status:          domain.BetActive,
		PlacedYear:      m.clock.Year(),
		Baseline:        snap,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	_, err = m.ledger.Reserve(ctx, req.PlayerID, req.Stake, func(ctx context.Context) error {
		if err := m.bets.Create(ctx, bet); err != nil {
			return fmt.Errorf("betting_market: create bet: %w", err)
		}
		return nil
	})
	if err != nil {
		return domain.Bet{}, err
	}

	m.logger.InfoContext(ctx, "betting_market: bet placed",
		slog.String("bet_id", bet.ID),
		slog.String("player_id", bet.PlayerID),
		slog.String("bet_type", bet.BetType),
		slog.String("target_id", bet.TargetID),
		slog.Int64("stake", bet.Stake),
		slog.Float64("odds", bet.CurrentOdds),
		slog.Int("placed_year", bet.PlacedYear),
	)
	m.publish(ctx, "bet_placed", bet)
	return bet, nil
}

// GetBet returns one bet.
func (m *BettingMarket) GetBet(ctx context.Context, id string) (domain.Bet, error) {
	b, err := m.bets.GetByID(ctx, id)
	if err != nil {
		return domain.Bet{}, fmt.Errorf("betting_market: get bet %q: %w", id, err)
	}
	return b, nil
}

// ListBets returns bets matching filter, newest first.
func (m *BettingMarket) ListBets(ctx context.Context, filter domain.BetFilter) ([]domain.Bet, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, domain.Invalid("status", "unknown status %q", filter.Status)
	}
	if filter.Limit <= 0 {
		filter.Limit = defaultListLimit
	}
	if filter.Limit > maxListLimit {
		filter.Limit = maxListLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	bets, err := m.bets.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("betting_market: list bets: %w", err)
	}
	return bets, nil
}

// GetOdds prices req against the live world. When no stake is given the
// payout is shown for the minimum stake.
func (m *BettingMarket) GetOdds(_ context.Context, req OddsRequest) (OddsResponse, error) {
	if err := m.checkConfidence(req.Confidence); err != nil {
		return OddsResponse{}, err
	}
	bt, tt, snap, err := m.prepare(req.BetType, req.TargetID, req.TargetType, req.Timeframe)
	if err != nil {
		return OddsResponse{}, err
	}
	quote, err := m.engine.Quote(pricing.QuoteRequest{
		BetType:    bt.Code,
		Confidence: req.Confidence,
		Timeframe:  req.Timeframe,
		TargetType: tt,
		TargetID:   req.TargetID,
	}, snap)
	if err != nil {
		return OddsResponse{}, fmt.Errorf("betting_market: quote: %w", err)
	}
	minStake, err := m.engine.RequiredStake(bt.Code, req.Confidence)
	if err != nil {
		return OddsResponse{}, fmt.Errorf("betting_market: min stake: %w", err)
	}
	stake := req.Stake
	if stake <= 0 {
		stake = minStake
	}
	return OddsResponse{
		Quote:           quote,
		TargetType:      tt,
		MinStake:        minStake,
		Stake:           stake,
		PotentialPayout: quote.Payout(stake),
	}, nil
}

// prepare resolves the target and checks it against the bet type's rules.
func (m *BettingMarket) prepare(betType, targetID string, tt domain.TargetType, timeframe int) (domain.BetTypeConfig, domain.TargetType, domain.Snapshot, error) {
	var zero domain.Snapshot
	if betType == "" {
		return domain.BetTypeConfig{}, "", zero, domain.Invalid("bet_type", "is required")
	}
	bt, ok := m.engine.Registry().BetType(betType)
	if !ok {
		return domain.BetTypeConfig{}, "", zero, domain.Invalid("bet_type", "unknown bet type %q", betType)
	}
	if targetID == "" {
		return bt, "", zero, domain.Invalid("target_id", "is required")
	}
	if timeframe < bt.MinTimeframe || timeframe > bt.MaxTimeframe {
		return bt, "", zero, domain.Invalid("timeframe", "must be between %d and %d years for %s", bt.MinTimeframe, bt.MaxTimeframe, bt.Code)
	}

	if tt == "" {
		found, ok := m.world.Locate(targetID)
		if !ok {
			return bt, "", zero, domain.NotFound("target", targetID)
		}
		tt = found
	} else if !tt.Valid() {
		return bt, "", zero, domain.Invalid("target_type", "unknown target type %q", tt)
	}
	if !bt.Allows(tt) {
		return bt, tt, zero, domain.Invalid("target_type", "%s bets cannot target a %s", bt.Code, tt)
	}
	snap := m.world.Target(tt, targetID)
	if !snap.Exists {
		return bt, tt, zero, domain.NotFound(string(tt), targetID)
	}
	return bt, tt, snap, nil
}

func (m *BettingMarket) publish(ctx context.Context, kind string, bet domain.Bet) {
	if m.bus == nil {
		return
	}
	payload, err := json.Marshal(map[string]any{"event": kind, "bet": bet})
	if err != nil {
		return
	}
	if err := m.bus.Publish(ctx, domain.ChannelBets, payload); err != nil {
		m.logger.WarnContext(ctx, "betting_market: publish failed",
			slog.String("bet_id", bet.ID),
			slog.String("error", err.Error()),
		)
	}
}

func (m *BettingMarket) validatePlaceBet(req PlaceBetRequest) error {
	if err := m.checkConfidence(req.Confidence); err != nil {
		return err
	}
	if req.Stake <= 0 {
		return domain.Invalid("divine_favor_stake", "must be positive")
	}
	if utf8.RuneCountInString(strings.TrimSpace(req.Description)) > maxDescriptionLen {
		return domain.Invalid("description", "must be at most %d characters", maxDescriptionLen)
	}
	return nil
}

// checkConfidence accepts only levels present in the loaded odds tables.
func (m *BettingMarket) checkConfidence(c domain.Confidence) error {
	if _, ok := m.engine.Registry().Confidence(c); !ok {
		return domain.Invalid("confidence", "unknown confidence %q", c)
	}
	return nil
}
