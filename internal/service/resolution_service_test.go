package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/divinefavor/internal/domain"
)

// boom grows settlement-001 by a fifth every year.
var boom = evolverFunc(func(w domain.World, year int) (domain.World, []domain.Event, error) {
	out := w.Clone()
	s := out.Settlements["settlement-001"]
	s.Population = s.Population * 6 / 5
	out.Settlements[s.ID] = s
	out.EvolvedYear = year
	return out, []domain.Event{{Year: year, Category: domain.EventSettlement, Description: "Ashford grows."}}, nil
})

func TestResolution_ExpiresAndRefundsStake(t *testing.T) {
	h := newHarness(t, still)
	bet, err := h.market.PlaceBet(h.ctx, growthBet(100))
	require.NoError(t, err)

	for range bet.Timeframe + 6 {
		h.tick()
	}

	got, err := h.market.GetBet(h.ctx, bet.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BetExpired, got.Status)
	require.NotNil(t, got.ResolvedYear)
	assert.Equal(t, bet.ExpiryYear(), *got.ResolvedYear)

	acct := h.account()
	assert.Equal(t, int64(startingFavor), acct.Balance)
	assert.Zero(t, acct.Reserved)
}

func TestResolution_WinCreditsPayoutOnce(t *testing.T) {
	h := newHarness(t, boom)
	bet, err := h.market.PlaceBet(h.ctx, growthBet(100))
	require.NoError(t, err)

	res := h.tick()
	assert.Equal(t, 1, res.Resolution.Won)

	got, err := h.market.GetBet(h.ctx, bet.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BetWon, got.Status)
	assert.NotEmpty(t, got.ResolutionNotes)

	acct := h.account()
	assert.Equal(t, int64(startingFavor-100+230), acct.Balance)
	assert.Zero(t, acct.Reserved)

	for range 3 {
		h.tick()
	}
	assert.Equal(t, acct.Balance, h.account().Balance)
}

func TestResolution_ResolveIsIdempotent(t *testing.T) {
	h := newHarness(t, boom)
	_, err := h.market.PlaceBet(h.ctx, growthBet(100))
	require.NoError(t, err)

	require.NoError(t, h.state.Update(func(w *domain.World) error {
		s := w.Settlements["settlement-001"]
		s.Population = 2000
		w.Settlements[s.ID] = s
		return nil
	}))

	first, err := h.resolution.Resolve(h.ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Won)
	balance := h.account().Balance

	second, err := h.resolution.Resolve(h.ctx, 1)
	require.NoError(t, err)
	assert.Zero(t, second.Processed())
	assert.Equal(t, balance, h.account().Balance)
}

func TestResolution_LosesWhenTargetCollapses(t *testing.T) {
	h := newHarness(t, still)
	bet, err := h.market.PlaceBet(h.ctx, growthBet(100))
	require.NoError(t, err)

	require.NoError(t, h.state.Update(func(w *domain.World) error {
		s := w.Settlements["settlement-001"]
		s.Status, s.Population = domain.SettlementAbandoned, 0
		w.Settlements[s.ID] = s
		return nil
	}))
	report, err := h.resolution.Resolve(h.ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Lost)

	got, _ := h.market.GetBet(h.ctx, bet.ID)
	assert.Equal(t, domain.BetLost, got.Status)
	acct := h.account()
	assert.Equal(t, int64(startingFavor-100), acct.Balance)
	assert.Zero(t, acct.Reserved)
}

func TestResolution_LosesWhenTargetVanishes(t *testing.T) {
	h := newHarness(t, still)
	_, err := h.market.PlaceBet(h.ctx, PlaceBetRequest{
		BetType: "hero_location_visit", TargetID: "hero-001", Timeframe: 4,
		Confidence: domain.ConfidencePossible, Stake: 50,
	})
	require.NoError(t, err)

	require.NoError(t, h.state.Update(func(w *domain.World) error {
		delete(w.Heroes, "hero-001")
		return nil
	}))
	report, err := h.resolution.Resolve(h.ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Lost)
}

func TestResolution_ProcessExpiredBetsOnlyTouchesDueBets(t *testing.T) {
	h := newHarness(t, still)
	short, err := h.market.PlaceBet(h.ctx, PlaceBetRequest{
		BetType: "hero_location_visit", TargetID: "hero-001", Timeframe: 1,
		Confidence: domain.ConfidencePossible, Stake: 50,
	})
	require.NoError(t, err)
	long, err := h.market.PlaceBet(h.ctx, growthBet(100))
	require.NoError(t, err)

	report, err := h.resolution.ProcessExpiredBets(h.ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Checked)
	assert.Equal(t, 1, report.Expired)

	got, _ := h.market.GetBet(h.ctx, short.ID)
	assert.Equal(t, domain.BetExpired, got.Status)
	got, _ = h.market.GetBet(h.ctx, long.ID)
	assert.Equal(t, domain.BetActive, got.Status)
}

func TestResolution_AccountingSums(t *testing.T) {
	h := newHarness(t, boom)
	winner, err := h.market.PlaceBet(h.ctx, growthBet(100))
	require.NoError(t, err)
	expirer, err := h.market.PlaceBet(h.ctx, PlaceBetRequest{
		BetType: "hero_location_visit", TargetID: "hero-001", Timeframe: 2,
		Confidence: domain.ConfidencePossible, Stake: 40,
	})
	require.NoError(t, err)
	loser, err := h.market.PlaceBet(h.ctx, PlaceBetRequest{
		BetType: "hero_settlement_bond", TargetID: "hero-002", Timeframe: 2,
		Confidence: domain.ConfidencePossible, Stake: 30,
	})
	require.NoError(t, err)

	for range 3 {
		h.tick()
	}

	var credited int64
	for _, id := range []string{winner.ID, expirer.ID, loser.ID} {
		b, err := h.market.GetBet(h.ctx, id)
		require.NoError(t, err)
		require.True(t, b.Status.Terminal(), "bet %s still %s", id, b.Status)
		switch b.Status {
		case domain.BetWon:
			credited += b.PotentialPayout
		case domain.BetExpired:
			credited += b.Stake
		}
	}
	acct := h.account()
	assert.Equal(t, int64(startingFavor)-100-40-30+credited, acct.Balance)
	assert.Zero(t, acct.Reserved)
}

func TestResolution_LandmarkBetsLoseWhenRegionIsExplored(t *testing.T) {
	h := newHarness(t, still)
	require.NoError(t, h.state.Update(func(w *domain.World) error {
		r := w.Regions["region-001"]
		r.Landmarks[0].Discovered = true
		w.Regions[r.ID] = r
		return nil
	}))

	place := func(target string) domain.Bet {
		bet, err := h.market.PlaceBet(h.ctx, PlaceBetRequest{
			BetType:    "landmark_discovery",
			TargetID:   target,
			Timeframe:  5,
			Confidence: domain.ConfidencePossible,
			Stake:      50,
		})
		require.NoError(t, err)
		return bet
	}
	onRegion := place("region-001")
	onSettlement := place("settlement-001")

	report, err := h.resolution.Resolve(h.ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Lost)

	for _, id := range []string{onRegion.ID, onSettlement.ID} {
		got, err := h.market.GetBet(h.ctx, id)
		require.NoError(t, err)
		assert.Equal(t, domain.BetLost, got.Status, id)
	}
	acct := h.account()
	assert.Equal(t, int64(startingFavor-100), acct.Balance)
	assert.Zero(t, acct.Reserved)
}
