package evolution

import (
	"math/rand/v2"

	"github.com/alanyoungcy/divinefavor/internal/domain"
)

// RegionProcessor drifts region prosperity towards its settlements, decays
// chaos, moves region status, and discovers landmarks.
type RegionProcessor struct {
	rules Rules
}

// NewRegionProcessor returns a RegionProcessor.
func NewRegionProcessor(rules Rules) *RegionProcessor {
	return &RegionProcessor{rules: rules}
}

// Name implements Processor.
func (p *RegionProcessor) Name() string { return "region" }

// Process implements Processor.
func (p *RegionProcessor) Process(w domain.World, year int, rng *rand.Rand) Result {
	var res Result
	for _, id := range w.RegionIDs() {
		r := w.Regions[id].Clone()
		if r.Status == domain.RegionAbandoned {
			continue
		}
		settlements := w.SettlementsIn(id)
		heroes := w.HeroesIn(id)
		prev := r.Status

		if len(settlements) > 0 {
			r.Prosperity += (meanProsperity(settlements) - r.Prosperity) * p.rules.ProsperityDrift
		}

		r.Chaos *= 1 - p.rules.ChaosDecay
		if r.Status == domain.RegionWarring {
			r.Chaos += p.rules.WarChaos
		}
		for _, h := range heroes {
			if h.Status == domain.HeroUndead {
				r.Chaos += p.rules.UndeadChaos
			}
		}
		if rng.Float64() < p.rules.UnrestChance+r.Chaos/400 {
			r.Chaos += 10 + rng.Float64()*15
			e := event(year, domain.EventRegion, "Unrest stirs across %s.", r.Name)
			e.RegionIDs = []string{r.ID}
			res.Events = append(res.Events, e)
		}
		r.DivineResonance += (50 - r.DivineResonance) * 0.05

		r.Prosperity = domain.ClampStat(r.Prosperity)
		r.Chaos = domain.ClampStat(r.Chaos)
		r.DivineResonance = domain.ClampStat(r.DivineResonance)
		r.MagicAffinity = domain.ClampStat(r.MagicAffinity)

		switch {
		case len(settlements) > 0 && allGone(settlements):
			r.Status = domain.RegionAbandoned
		case r.Status != domain.RegionCorrupt && r.Chaos >= p.rules.CorruptChaos && r.DivineResonance < p.rules.CorruptResonance:
			r.Status = domain.RegionCorrupt
		case r.Status == domain.RegionPeaceful && r.Chaos > p.rules.WarThreshold:
			r.Status = domain.RegionWarring
		case r.Status == domain.RegionWarring && r.Chaos < p.rules.PeaceThreshold:
			r.Status = domain.RegionPeaceful
		}
		if r.Status != prev {
			e := event(year, domain.EventRegion, "%s is now %s.", r.Name, r.Status)
			e.RegionIDs = []string{r.ID}
			res.Events = append(res.Events, e)
		}

		if r.Status != domain.RegionAbandoned {
			if e, ok := p.discover(&r, heroes, year, rng); ok {
				res.Events = append(res.Events, e)
			}
		}
		res.Regions = append(res.Regions, r)
	}
	return res
}

// discover reveals the first undiscovered landmark with a chance that grows
// with the number of heroes present and the region's magic affinity.
func (p *RegionProcessor) discover(r *domain.Region, heroes []domain.Hero, year int, rng *rand.Rand) (domain.Event, bool) {
	idx := -1
	for i, l := range r.Landmarks {
		if !l.Discovered {
			idx = i
			break
		}
	}
	if idx < 0 {
		return domain.Event{}, false
	}
	chance := min(p.rules.MaxDiscovery, 0.03*float64(len(heroes))+r.MagicAffinity/500)
	if rng.Float64() >= chance {
		return domain.Event{}, false
	}
	r.Landmarks[idx].Discovered = true
	r.Landmarks[idx].DiscoveredYear = year

	e := event(year, domain.EventRegion, "The %s is discovered in %s.", r.Landmarks[idx].Name, r.Name)
	e.RegionIDs = []string{r.ID}
	if len(heroes) > 0 {
		finder := heroes[rng.IntN(len(heroes))]
		e.Description = finder.Name + " uncovers the " + r.Landmarks[idx].Name + " in " + r.Name + "."
		e.HeroIDs = []string{finder.ID}
	}
	return e, true
}

func meanProsperity(settlements []domain.Settlement) float64 {
	total := 0.0
	for _, s := range settlements {
		total += s.Prosperity
	}
	return total / float64(len(settlements))
}

func allGone(settlements []domain.Settlement) bool {
	for _, s := range settlements {
		if !s.Status.Gone() {
			return false
		}
	}
	return true
}
