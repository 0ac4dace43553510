package service

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/divinefavor/internal/domain"
	"github.com/alanyoungcy/divinefavor/internal/pricing"
)

func TestBettingMarket_PlaceBet_ReservesStake(t *testing.T) {
	h := newHarness(t, still)

	bet, err := h.market.PlaceBet(h.ctx, growthBet(100))
	require.NoError(t, err)

	assert.NotEmpty(t, bet.ID)
	assert.Equal(t, domain.BetActive, bet.Status)
	assert.Equal(t, domain.TargetSettlement, bet.TargetType)
	assert.Equal(t, 1, bet.PlacedYear)
	assert.GreaterOrEqual(t, bet.CurrentOdds, 1.0)
	assert.InDelta(t, 2.3, bet.CurrentOdds, 1e-9)
	assert.Equal(t, int64(230), bet.PotentialPayout)
	assert.True(t, bet.Baseline.Exists)

	acct := h.account()
	assert.Equal(t, int64(900), acct.Balance)
	assert.Equal(t, int64(100), acct.Reserved)

	stored, err := h.market.GetBet(h.ctx, bet.ID)
	require.NoError(t, err)
	assert.Equal(t, bet.ID, stored.ID)
}

func TestBettingMarket_PlaceBet_InsufficientFavor(t *testing.T) {
	h := newHarness(t, still)

	_, err := h.market.PlaceBet(h.ctx, growthBet(startingFavor+1))

	var insufficient *domain.InsufficientFavorError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, int64(startingFavor), insufficient.Available)
	assert.ErrorIs(t, err, domain.ErrInsufficientFavor)

	acct := h.account()
	assert.Equal(t, int64(startingFavor), acct.Balance)
	assert.Zero(t, acct.Reserved)
	bets, err := h.market.ListBets(h.ctx, domain.BetFilter{})
	require.NoError(t, err)
	assert.Empty(t, bets)
}

func TestBettingMarket_PlaceBet_ConcurrentOverspend(t *testing.T) {
	h := newHarness(t, still)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = h.market.PlaceBet(h.ctx, growthBet(600))
		}()
	}
	wg.Wait()

	var ok, insufficient int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, domain.ErrInsufficientFavor):
			insufficient++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, insufficient)

	acct := h.account()
	assert.Equal(t, int64(400), acct.Balance)
	assert.Equal(t, int64(600), acct.Reserved)
}

func TestBettingMarket_PlaceBet_Validation(t *testing.T) {
	h := newHarness(t, still)

	tests := []struct {
		name  string
		edit  func(r *PlaceBetRequest)
		field string
	}{
		{"missing bet type", func(r *PlaceBetRequest) { r.BetType = "" }, "bet_type"},
		{"unknown bet type", func(r *PlaceBetRequest) { r.BetType = "dragon_hatching" }, "bet_type"},
		{"timeframe too short", func(r *PlaceBetRequest) { r.Timeframe = 1 }, "timeframe"},
		{"timeframe too long", func(r *PlaceBetRequest) { r.Timeframe = 21 }, "timeframe"},
		{"unknown confidence", func(r *PlaceBetRequest) { r.Confidence = "certain" }, "confidence"},
		{"zero stake", func(r *PlaceBetRequest) { r.Stake = 0 }, "divine_favor_stake"},
		{"below minimum stake", func(r *PlaceBetRequest) { r.Stake = 9 }, "divine_favor_stake"},
		{"wrong target kind", func(r *PlaceBetRequest) { r.TargetID = "hero-001" }, "target_type"},
		{"bad target type", func(r *PlaceBetRequest) { r.TargetType = "dungeon" }, "target_type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := growthBet(100)
			tt.edit(&req)

			_, err := h.market.PlaceBet(h.ctx, req)

			var verr *domain.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
	assert.Equal(t, int64(startingFavor), h.account().Balance)
}

func TestBettingMarket_ConfidenceComesFromLoadedTables(t *testing.T) {
	h := newHarness(t, still)
	tables := pricing.DefaultTables()
	tables.Confidences = slices.DeleteFunc(tables.Confidences, func(c domain.ConfidenceConfig) bool {
		return c.Code != domain.ConfidencePossible
	})
	engine := pricing.NewEngine(pricing.MustRegistry(tables))
	market := NewBettingMarket(h.state, h.clock, engine, h.ledger, h.stores.Bets, nil, "", discardLogger())

	req := growthBet(100)
	req.Confidence = domain.ConfidenceLikely
	_, err := market.PlaceBet(h.ctx, req)
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "confidence", verr.Field)

	_, err = market.GetOdds(h.ctx, OddsRequest{
		BetType: req.BetType, TargetID: req.TargetID, Confidence: domain.ConfidenceLikely, Timeframe: req.Timeframe,
	})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "confidence", verr.Field)

	_, err = market.PlaceBet(h.ctx, growthBet(100))
	require.NoError(t, err)
	assert.Equal(t, int64(startingFavor-100), h.account().Balance)
}

func TestBettingMarket_DescriptionLimitCountsTrimmedRunes(t *testing.T) {
	h := newHarness(t, still)

	req := growthBet(100)
	req.Description = "  " + strings.Repeat("é", maxDescriptionLen) + "\n\t "
	bet, err := h.market.PlaceBet(h.ctx, req)
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("é", maxDescriptionLen), bet.Description)

	req.Description = strings.Repeat("é", maxDescriptionLen+1)
	_, err = h.market.PlaceBet(h.ctx, req)
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "description", verr.Field)
}

func TestBettingMarket_PlaceBet_UnknownTarget(t *testing.T) {
	h := newHarness(t, still)

	req := growthBet(100)
	req.TargetID = "settlement-404"
	_, err := h.market.PlaceBet(h.ctx, req)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	req.TargetType = domain.TargetSettlement
	_, err = h.market.PlaceBet(h.ctx, req)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

type failingCreate struct {
	domain.BetStore
}

func (failingCreate) Create(_ context.Context, _ domain.Bet) error {
	return errors.New("disk full")
}

func TestBettingMarket_PlaceBet_FailedCreateReleasesReservation(t *testing.T) {
	h := newHarness(t, still)
	h.market.bets = failingCreate{h.stores.Bets}

	_, err := h.market.PlaceBet(h.ctx, growthBet(100))
	require.Error(t, err)

	acct := h.account()
	assert.Equal(t, int64(startingFavor), acct.Balance)
	assert.Zero(t, acct.Reserved)
}

func TestBettingMarket_GetOdds(t *testing.T) {
	h := newHarness(t, still)

	odds, err := h.market.GetOdds(h.ctx, OddsRequest{
		BetType:    "hero_location_visit",
		TargetID:   "hero-001",
		Confidence: domain.ConfidenceLikely,
		Timeframe:  3,
	})
	require.NoError(t, err)

	assert.Equal(t, domain.TargetHero, odds.TargetType)
	assert.InDelta(t, 1.8*0.7*1.3, odds.Odds, 1e-9)
	assert.Equal(t, int64(8), odds.MinStake)
	assert.Equal(t, odds.MinStake, odds.Stake)
	assert.Equal(t, odds.Payout(8), odds.PotentialPayout)
	assert.Equal(t, int64(startingFavor), h.account().Balance)
}

func TestBettingMarket_ListBets_Filters(t *testing.T) {
	h := newHarness(t, still)

	_, err := h.market.PlaceBet(h.ctx, growthBet(100))
	require.NoError(t, err)
	_, err = h.market.PlaceBet(h.ctx, PlaceBetRequest{
		BetType: "hero_location_visit", TargetID: "hero-001", Timeframe: 2,
		Confidence: domain.ConfidenceLongShot, Stake: 20,
	})
	require.NoError(t, err)

	all, err := h.market.ListBets(h.ctx, domain.BetFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	heroes, err := h.market.ListBets(h.ctx, domain.BetFilter{BetType: "hero_location_visit"})
	require.NoError(t, err)
	require.Len(t, heroes, 1)
	assert.Equal(t, "hero-001", heroes[0].TargetID)

	_, err = h.market.ListBets(h.ctx, domain.BetFilter{Status: "pending"})
	assert.ErrorIs(t, err, domain.ErrValidation)
}
