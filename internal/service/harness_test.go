package service

import (
	"context"
	"io"
	"log/slog"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/divinefavor/internal/domain"
	"github.com/alanyoungcy/divinefavor/internal/evolution"
	"github.com/alanyoungcy/divinefavor/internal/pricing"
	"github.com/alanyoungcy/divinefavor/internal/store/memory"
	"github.com/alanyoungcy/divinefavor/internal/world"
)

const startingFavor = 1000

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// evolverFunc adapts a function to Evolver.
type evolverFunc func(w domain.World, year int) (domain.World, []domain.Event, error)

func (f evolverFunc) Evolve(w domain.World, year int) (domain.World, []domain.Event, error) {
	return f(w, year)
}

// still evolves nothing, so no outcome ever comes true on its own.
var still = evolverFunc(func(w domain.World, year int) (domain.World, []domain.Event, error) {
	out := w.Clone()
	out.EvolvedYear = year
	return out, []domain.Event{{Year: year, Category: domain.EventRegion, Description: "Quiet year."}}, nil
})

func fixtureWorld() domain.World {
	w := domain.NewWorld(1)
	w.EvolvedYear = 0
	w.Regions["region-001"] = domain.Region{
		ID: "region-001", Name: "Ashvale", Prosperity: 55, Chaos: 20, MagicAffinity: 40,
		DivineResonance: 50, Status: domain.RegionPeaceful, NeighborIDs: []string{"region-002"},
		Landmarks: []domain.Landmark{{ID: "lm-1", Name: "Shrine of Ashvale"}},
	}
	w.Regions["region-002"] = domain.Region{
		ID: "region-002", Name: "Korreach", Prosperity: 40, Chaos: 30,
		DivineResonance: 50, Status: domain.RegionPeaceful, NeighborIDs: []string{"region-001"},
	}
	w.Settlements["settlement-001"] = domain.Settlement{
		ID: "settlement-001", RegionID: "region-001", Name: "Ashford", Population: 1000,
		Prosperity: 60, Status: domain.SettlementStable, Type: domain.SettlementTown,
		Buildings: []domain.Building{{ID: "b-1", Kind: "granary", Condition: 80}},
	}
	w.Heroes["hero-001"] = domain.Hero{
		ID: "hero-001", Name: "Aldric", RegionID: "region-001", Level: 3,
		IsAlive: true, Status: domain.HeroLiving, VisitedRegionIDs: []string{"region-001"},
	}
	w.Heroes["hero-002"] = domain.Hero{
		ID: "hero-002", Name: "Brenna", RegionID: "region-002", Level: 2,
		Status: domain.HeroDeceased, VisitedRegionIDs: []string{"region-002"},
	}
	return w
}

type harness struct {
	t          *testing.T
	ctx        context.Context
	stores     domain.Stores
	state      *world.State
	clock      *world.Clock
	engine     *pricing.Engine
	ledger     *FavorLedger
	journal    *Journal
	market     *BettingMarket
	resolution *ResolutionEngine
	influence  *InfluenceService
	scheduler  *TickScheduler
}

func newHarness(t *testing.T, evolver Evolver) *harness {
	t.Helper()
	return newHarnessWithStores(t, memory.New(), evolver)
}

func newHarnessWithStores(t *testing.T, stores domain.Stores, evolver Evolver) *harness {
	t.Helper()
	ctx := context.Background()
	logger := discardLogger()

	w := fixtureWorld()
	require.NoError(t, stores.World.SaveWorld(ctx, w))
	state := world.NewState(w)
	clock, err := world.LoadClock(ctx, stores.Clock, 1)
	require.NoError(t, err)

	engine := pricing.NewEngine(pricing.MustRegistry(pricing.DefaultTables()))
	ledger := NewFavorLedger(stores.Favor, NewLocalLocker(2*time.Second), logger)
	_, err = ledger.Open(ctx, domain.DefaultPlayerID, startingFavor)
	require.NoError(t, err)

	journal := NewJournal(stores.Events, nil, logger)
	resolution := NewResolutionEngine(stores.Bets, state, engine.Registry(), ledger, journal, nil, logger)

	return &harness{
		t:          t,
		ctx:        ctx,
		stores:     stores,
		state:      state,
		clock:      clock,
		engine:     engine,
		ledger:     ledger,
		journal:    journal,
		market:     NewBettingMarket(state, clock, engine, ledger, stores.Bets, nil, "", logger),
		resolution: resolution,
		influence: NewInfluenceService(state, stores.World, clock, ledger, journal, InfluenceCosts{
			Bless: 50, Corrupt: 40, Ascend: 200, RaiseUndead: 150, Reveal: 30,
		}, "", logger),
		scheduler: NewTickScheduler(state, clock, evolver, stores.World, journal, resolution, time.Hour, logger),
	}
}

func (h *harness) account() domain.FavorAccount {
	h.t.Helper()
	acct, err := h.ledger.Balance(h.ctx, domain.DefaultPlayerID)
	require.NoError(h.t, err)
	return acct
}

func (h *harness) tick() TickResult {
	h.t.Helper()
	res, err := h.scheduler.RunTick(h.ctx)
	require.NoError(h.t, err)
	return res
}

func growthBet(stake int64) PlaceBetRequest {
	return PlaceBetRequest{
		BetType:     "settlement_growth",
		TargetID:    "settlement-001",
		Description: "Ashford will flourish",
		Timeframe:   5,
		Confidence:  domain.ConfidencePossible,
		Stake:       stake,
	}
}

type panicProcessor struct{}

func (panicProcessor) Name() string { return "exploding" }

func (panicProcessor) Process(domain.World, int, *rand.Rand) evolution.Result {
	panic("corrupt arena")
}
