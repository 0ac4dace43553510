package evolution

import (
	"math"
	"math/rand/v2"

	"github.com/alanyoungcy/divinefavor/internal/domain"
)

// SettlementProcessor moves settlement prosperity towards regional
// conditions, grows or shrinks population, wears down buildings, depletes
// resources, and steps status downward when thresholds are crossed.
type SettlementProcessor struct {
	rules Rules
}

// NewSettlementProcessor returns a SettlementProcessor.
func NewSettlementProcessor(rules Rules) *SettlementProcessor {
	return &SettlementProcessor{rules: rules}
}

// Name implements Processor.
func (p *SettlementProcessor) Name() string { return "settlement" }

// Process implements Processor.
func (p *SettlementProcessor) Process(w domain.World, year int, rng *rand.Rand) Result {
	var res Result
	for _, id := range w.SettlementIDs() {
		s := w.Settlements[id].Clone()
		if s.Status == domain.SettlementRuined {
			continue
		}
		region := w.Regions[s.RegionID]

		if s.Status == domain.SettlementAbandoned {
			p.decayAbandoned(&s, rng)
			if ruined(s) {
				s.Status = domain.SettlementRuined
				res.Events = append(res.Events, settlementEvent(year, s, "The empty halls of %s crumble into ruin.", s.Name))
			}
			res.Settlements = append(res.Settlements, s)
			continue
		}

		target := region.Prosperity - region.Chaos*0.3 + float64(s.ActiveResources())*3
		switch region.Status {
		case domain.RegionWarring:
			target -= 10
		case domain.RegionCorrupt:
			target -= 15
		}
		s.Prosperity = domain.ClampStat(s.Prosperity + (target-s.Prosperity)*0.25 + rng.Float64()*6 - 3)

		rate := (s.Prosperity - p.rules.DeclineThreshold) * p.rules.GrowthPerPoint
		pop := int(math.Round(float64(s.Population) * (1 + rate)))
		if rate < 0 && pop < 5 {
			pop = 0
		}
		s.Population = max(pop, 0)

		if t := domain.TypeForPopulation(s.Population); t != s.Type && s.Population > 0 {
			verb := "grows into"
			if sizeRank(t) < sizeRank(s.Type) {
				verb = "dwindles to"
			}
			res.Events = append(res.Events, settlementEvent(year, s, "%s %s a %s.", s.Name, verb, t))
			s.Type = t
		}

		for i := range s.Resources {
			n := &s.Resources[i]
			if n.Depleted {
				continue
			}
			n.Richness -= 1 + rng.Float64()*3
			if n.Richness <= 0 {
				n.Richness, n.Depleted = 0, true
				res.Events = append(res.Events, settlementEvent(year, s, "The %s of %s runs dry.", n.Resource, s.Name))
			}
		}
		for i := range s.Buildings {
			b := &s.Buildings[i]
			b.Condition -= 0.5 + rng.Float64()*1.5
			if s.Prosperity > 60 {
				b.Condition += 3
			}
			b.Condition = domain.ClampStat(b.Condition)
		}

		if next := p.nextStatus(s); next != s.Status {
			s.Status = next
			if next == domain.SettlementAbandoned {
				s.Population = 0
				res.Events = append(res.Events, settlementEvent(year, s, "The last families leave %s.", s.Name))
			} else {
				res.Events = append(res.Events, settlementEvent(year, s, "%s is now %s.", s.Name, next))
			}
		}
		res.Settlements = append(res.Settlements, s)
	}
	return res
}

// nextStatus returns the status for s after this year. It never improves a
// status and moves at most one step, except that an emptied settlement is
// abandoned at once.
func (p *SettlementProcessor) nextStatus(s domain.Settlement) domain.SettlementStatus {
	if s.Population == 0 {
		return domain.SettlementAbandoned
	}
	var want domain.SettlementStatus
	switch {
	case s.Prosperity < p.rules.AbandonBelow && s.Status == domain.SettlementDeclining:
		want = domain.SettlementAbandoned
	case s.Prosperity < p.rules.DecliningBelow:
		want = domain.SettlementDeclining
	case s.Prosperity < p.rules.StableBelow:
		want = domain.SettlementStable
	default:
		return s.Status
	}
	if want.Rank() <= s.Status.Rank() {
		return s.Status
	}
	return stepDown(s.Status)
}

func (p *SettlementProcessor) decayAbandoned(s *domain.Settlement, rng *rand.Rand) {
	s.Prosperity = domain.ClampStat(s.Prosperity - 5)
	for i := range s.Buildings {
		s.Buildings[i].Condition = domain.ClampStat(s.Buildings[i].Condition - 8 - rng.Float64()*7)
	}
}

func ruined(s domain.Settlement) bool {
	for _, b := range s.Buildings {
		if b.Condition >= 10 {
			return false
		}
	}
	return true
}

func stepDown(st domain.SettlementStatus) domain.SettlementStatus {
	switch st {
	case domain.SettlementThriving:
		return domain.SettlementStable
	case domain.SettlementStable:
		return domain.SettlementDeclining
	case domain.SettlementDeclining:
		return domain.SettlementAbandoned
	default:
		return domain.SettlementRuined
	}
}

func sizeRank(t domain.SettlementType) int {
	switch t {
	case domain.SettlementCity:
		return 3
	case domain.SettlementTown:
		return 2
	case domain.SettlementVillage:
		return 1
	default:
		return 0
	}
}

func settlementEvent(year int, s domain.Settlement, format string, args ...any) domain.Event {
	e := event(year, domain.EventSettlement, format, args...)
	e.RegionIDs = []string{s.RegionID}
	e.SettlementIDs = []string{s.ID}
	return e
}
