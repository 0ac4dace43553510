package evolution

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/divinefavor/internal/domain"
)

func smallWorld() domain.World {
	w := domain.NewWorld(7)
	w.Regions["region-001"] = domain.Region{
		ID: "region-001", Name: "Ashvale", Prosperity: 50, Chaos: 20,
		MagicAffinity: 50, DivineResonance: 50, Status: domain.RegionPeaceful,
		NeighborIDs: []string{"region-002"},
		Landmarks:   []domain.Landmark{{ID: "lm-1", Name: "Shrine of Ashvale"}},
	}
	w.Regions["region-002"] = domain.Region{
		ID: "region-002", Name: "Korreach", Prosperity: 50, Chaos: 20,
		DivineResonance: 50, Status: domain.RegionPeaceful,
		NeighborIDs: []string{"region-001"},
	}
	w.Settlements["settlement-001"] = domain.Settlement{
		ID: "settlement-001", RegionID: "region-001", Name: "Ashford",
		Population: 1000, Prosperity: 60, Status: domain.SettlementStable, Type: domain.SettlementTown,
		Buildings: []domain.Building{{ID: "b1", Kind: "granary", Condition: 80}},
	}
	w.Heroes["hero-001"] = domain.Hero{
		ID: "hero-001", Name: "Aldric", RegionID: "region-001", Level: 1,
		IsAlive: true, Status: domain.HeroLiving, VisitedRegionIDs: []string{"region-001"},
	}
	return w
}

func rng() *rand.Rand { return rand.New(rand.NewPCG(1, 2)) }

func TestRegionProcessor_ProsperityDriftsTowardSettlements(t *testing.T) {
	w := smallWorld()
	s := w.Settlements["settlement-001"]
	s.Prosperity = 90
	w.Settlements[s.ID] = s

	res := NewRegionProcessor(DefaultRules()).Process(w, 1, rng())

	var got domain.Region
	for _, r := range res.Regions {
		if r.ID == "region-001" {
			got = r
		}
	}
	assert.InDelta(t, 58.0, got.Prosperity, 0.001)
}

func TestRegionProcessor_AbandonsRegionWhenAllSettlementsGone(t *testing.T) {
	w := smallWorld()
	s := w.Settlements["settlement-001"]
	s.Status = domain.SettlementRuined
	w.Settlements[s.ID] = s

	res := NewRegionProcessor(DefaultRules()).Process(w, 3, rng())

	require.NotEmpty(t, res.Regions)
	assert.Equal(t, domain.RegionAbandoned, res.Regions[0].Status)
	require.NotEmpty(t, res.Events)
}

func TestRegionProcessor_HighChaosStartsWar(t *testing.T) {
	w := smallWorld()
	r := w.Regions["region-002"]
	r.Chaos = 95
	w.Regions[r.ID] = r

	res := NewRegionProcessor(DefaultRules()).Process(w, 1, rng())

	for _, got := range res.Regions {
		if got.ID == "region-002" {
			assert.Equal(t, domain.RegionWarring, got.Status)
		}
	}
}

func TestSettlementProcessor_GrowsAboveDeclineThreshold(t *testing.T) {
	w := smallWorld()
	res := NewSettlementProcessor(DefaultRules()).Process(w, 1, rng())

	require.Len(t, res.Settlements, 1)
	assert.Greater(t, res.Settlements[0].Population, 1000)
}

func TestSettlementProcessor_StepsDownOneStatusAtATime(t *testing.T) {
	w := smallWorld()
	r := w.Regions["region-001"]
	r.Prosperity, r.Chaos = 0, 100
	w.Regions[r.ID] = r
	s := w.Settlements["settlement-001"]
	s.Prosperity, s.Status = 5, domain.SettlementThriving
	w.Settlements[s.ID] = s

	res := NewSettlementProcessor(DefaultRules()).Process(w, 1, rng())

	require.Len(t, res.Settlements, 1)
	assert.Equal(t, domain.SettlementStable, res.Settlements[0].Status)
}

func TestSettlementProcessor_AbandonedCrumblesToRuin(t *testing.T) {
	w := smallWorld()
	s := w.Settlements["settlement-001"]
	s.Status, s.Population = domain.SettlementAbandoned, 0
	s.Buildings[0].Condition = 12
	w.Settlements[s.ID] = s

	res := NewSettlementProcessor(DefaultRules()).Process(w, 1, rng())

	require.Len(t, res.Settlements, 1)
	assert.Equal(t, domain.SettlementRuined, res.Settlements[0].Status)
}

func TestHeroProcessor_SkipsInactiveHeroes(t *testing.T) {
	w := smallWorld()
	h := w.Heroes["hero-001"]
	h.Status, h.IsAlive = domain.HeroAscended, true
	w.Heroes[h.ID] = h

	res := NewHeroProcessor(DefaultRules()).Process(w, 1, rng())

	assert.Empty(t, res.Heroes)
	assert.Empty(t, res.Events)
}

func TestHeroProcessor_TravelRecordsVisitedRegion(t *testing.T) {
	rules := DefaultRules()
	rules.TravelChance = 1
	rules.BaseDeathChance, rules.MaxDeathChance = 0, 0

	res := NewHeroProcessor(rules).Process(smallWorld(), 1, rng())

	require.Len(t, res.Heroes, 1)
	h := res.Heroes[0]
	assert.Equal(t, "region-002", h.RegionID)
	assert.Equal(t, []string{"region-001", "region-002"}, h.VisitedRegionIDs)
}

func TestHeroProcessor_BondsToFunctioningSettlement(t *testing.T) {
	rules := DefaultRules()
	rules.TravelChance, rules.BondChance = 0, 1
	rules.BaseDeathChance, rules.MaxDeathChance = 0, 0

	res := NewHeroProcessor(rules).Process(smallWorld(), 1, rng())

	require.Len(t, res.Heroes, 1)
	assert.Equal(t, "settlement-001", res.Heroes[0].BondedSettlementID)
}
