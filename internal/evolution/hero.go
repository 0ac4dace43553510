package evolution

import (
	"math/rand/v2"
	"slices"

	"github.com/alanyoungcy/divinefavor/internal/domain"
)

// HeroProcessor rolls death and leveling, moves heroes between neighbouring
// regions, and forms or breaks settlement bonds. It never produces the
// undead or ascended states.
type HeroProcessor struct {
	rules Rules
}

// NewHeroProcessor returns a HeroProcessor.
func NewHeroProcessor(rules Rules) *HeroProcessor {
	return &HeroProcessor{rules: rules}
}

// Name implements Processor.
func (p *HeroProcessor) Name() string { return "hero" }

// Process implements Processor.
func (p *HeroProcessor) Process(w domain.World, year int, rng *rand.Rand) Result {
	var res Result
	for _, id := range w.HeroIDs() {
		h := w.Heroes[id].Clone()
		if !h.Active() {
			continue
		}
		region := w.Regions[h.RegionID]

		if h.Status == domain.HeroLiving {
			death := min(p.rules.MaxDeathChance, p.rules.BaseDeathChance+region.Chaos/500)
			if rng.Float64() < death {
				h.IsAlive = false
				h.Status = domain.HeroDeceased
				res.Events = append(res.Events, heroEvent(year, h, "%s falls in %s.", h.Name, region.Name))
				res.Heroes = append(res.Heroes, h)
				continue
			}
		}

		level := min(p.rules.MaxLevelChance, p.rules.BaseLevelChance+region.Chaos/400+region.MagicAffinity/1000)
		if rng.Float64() < level {
			h.Level++
			res.Events = append(res.Events, heroEvent(year, h, "%s reaches level %d.", h.Name, h.Level))
		}

		if len(region.NeighborIDs) > 0 && rng.Float64() < p.rules.TravelChance {
			dest := region.NeighborIDs[rng.IntN(len(region.NeighborIDs))]
			if to, ok := w.Regions[dest]; ok && to.Status != domain.RegionAbandoned {
				h.RegionID = dest
				if !slices.Contains(h.VisitedRegionIDs, dest) {
					h.VisitedRegionIDs = append(h.VisitedRegionIDs, dest)
				}
				e := heroEvent(year, h, "%s travels from %s to %s.", h.Name, region.Name, to.Name)
				e.RegionIDs = []string{region.ID, dest}
				res.Events = append(res.Events, e)
			}
		}

		if h.BondedSettlementID != "" {
			if s, ok := w.Settlements[h.BondedSettlementID]; !ok || s.Status.Gone() {
				e := heroEvent(year, h, "%s mourns the loss of their home.", h.Name)
				e.SettlementIDs = []string{h.BondedSettlementID}
				res.Events = append(res.Events, e)
				h.BondedSettlementID = ""
			}
		}
		if h.Status == domain.HeroLiving && h.BondedSettlementID == "" && rng.Float64() < p.rules.BondChance {
			if s, ok := bondCandidate(w, h.RegionID); ok {
				h.BondedSettlementID = s.ID
				e := heroEvent(year, h, "%s swears to protect %s.", h.Name, s.Name)
				e.SettlementIDs = []string{s.ID}
				res.Events = append(res.Events, e)
			}
		}

		res.Heroes = append(res.Heroes, h)
	}
	return res
}

// bondCandidate picks the most prosperous functioning settlement in a region.
func bondCandidate(w domain.World, regionID string) (domain.Settlement, bool) {
	var best domain.Settlement
	found := false
	for _, s := range w.SettlementsIn(regionID) {
		if s.Status.Gone() || s.Status == domain.SettlementDeclining {
			continue
		}
		if !found || s.Prosperity > best.Prosperity {
			best, found = s, true
		}
	}
	return best, found
}

func heroEvent(year int, h domain.Hero, format string, args ...any) domain.Event {
	e := event(year, domain.EventHero, format, args...)
	e.RegionIDs = []string{h.RegionID}
	e.HeroIDs = []string{h.ID}
	return e
}
