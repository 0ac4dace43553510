package service

import (
	"fmt"
	"math"

	"github.com/alanyoungcy/divinefavor/internal/domain"
	"github.com/alanyoungcy/divinefavor/internal/pricing"
)

// Verdict is what an outcome predicate concludes for one bet this year.
type Verdict int

const (
	// Pending means the outcome is still open.
	Pending Verdict = iota
	Won
	// Lost means the outcome can no longer happen.
	Lost
)

func (v Verdict) String() string {
	switch v {
	case Won:
		return "won"
	case Lost:
		return "lost"
	default:
		return "pending"
	}
}

// Predicate compares a target's current snapshot with the baseline recorded
// when the bet was placed. threshold comes from the bet type. Both snapshots
// exist when a predicate is called.
type Predicate func(baseline, current domain.Snapshot, threshold float64) (Verdict, string)

var predicates = map[string]Predicate{
	pricing.PredicatePopulationGrowth:      populationGrowth,
	pricing.PredicateLandmarkDiscovered:    landmarkDiscovered,
	pricing.PredicateCultureShifted:        cultureShifted,
	pricing.PredicateHeroBonded:            heroBonded,
	pricing.PredicateHeroVisited:           heroVisited,
	pricing.PredicateSettlementTransformed: settlementTransformed,
	pricing.PredicateCorruptionSpread:      corruptionSpread,
}

// LookupPredicate returns the predicate registered under name.
func LookupPredicate(name string) (Predicate, bool) {
	p, ok := predicates[name]
	return p, ok
}

func populationGrowth(baseline, current domain.Snapshot, threshold float64) (Verdict, string) {
	base, _ := baseline.Number(domain.FieldPopulation)
	pop, _ := current.Number(domain.FieldPopulation)
	target := math.Ceil(base*(1+threshold) - 1e-9)
	if pop >= target && pop > base {
		return Won, fmt.Sprintf("population grew from %.0f to %.0f", base, pop)
	}
	if st := domain.SettlementStatus(current.Label(domain.LabelStatus)); st.Gone() {
		return Lost, fmt.Sprintf("settlement is %s", st)
	}
	return Pending, ""
}

func landmarkDiscovered(baseline, current domain.Snapshot, _ float64) (Verdict, string) {
	field := domain.FieldLandmarksDiscovered
	if current.TargetType == domain.TargetSettlement {
		field = domain.FieldRegionLandmarks
	}
	before, _ := baseline.Number(field)
	now, _ := current.Number(field)
	if now > before {
		return Won, fmt.Sprintf("%.0f new landmark(s) discovered", now-before)
	}

	switch current.TargetType {
	case domain.TargetRegion:
		if domain.RegionStatus(current.Label(domain.LabelStatus)) == domain.RegionAbandoned {
			return Lost, "region was abandoned"
		}
		if total, _ := current.Number(domain.FieldLandmarksTotal); now >= total {
			return Lost, "no undiscovered landmarks remain"
		}
	case domain.TargetSettlement:
		if domain.RegionStatus(current.Label(domain.LabelRegionStatus)) == domain.RegionAbandoned {
			return Lost, "region was abandoned"
		}
		if total, ok := current.Number(domain.FieldRegionLandmarksTotal); ok && now >= total {
			return Lost, "no undiscovered landmarks remain in the region"
		}
	}
	return Pending, ""
}

func cultureShifted(baseline, current domain.Snapshot, threshold float64) (Verdict, string) {
	if was, is := baseline.Label(domain.LabelStatus), current.Label(domain.LabelStatus); was != is {
		return Won, fmt.Sprintf("region turned from %s to %s", was, is)
	}
	p0, _ := baseline.Number(domain.FieldProsperity)
	p1, _ := current.Number(domain.FieldProsperity)
	c0, _ := baseline.Number(domain.FieldChaos)
	c1, _ := current.Number(domain.FieldChaos)
	if shift := math.Abs(p1-p0) + math.Abs(c1-c0); threshold > 0 && shift >= threshold {
		return Won, fmt.Sprintf("prosperity and chaos shifted by %.1f", shift)
	}
	return Pending, ""
}

func heroBonded(baseline, current domain.Snapshot, _ float64) (Verdict, string) {
	bond := current.Label(domain.LabelBondedSettlement)
	if bond != "" && bond != baseline.Label(domain.LabelBondedSettlement) {
		return Won, "hero bonded with " + bond
	}
	if st := domain.HeroStatus(current.Label(domain.LabelStatus)); st != domain.HeroLiving {
		return Lost, fmt.Sprintf("hero is %s", st)
	}
	return Pending, ""
}

func heroVisited(baseline, current domain.Snapshot, _ float64) (Verdict, string) {
	before, _ := baseline.Number(domain.FieldVisitedRegions)
	now, _ := current.Number(domain.FieldVisitedRegions)
	if now > before {
		return Won, fmt.Sprintf("hero reached %.0f new region(s)", now-before)
	}
	switch st := domain.HeroStatus(current.Label(domain.LabelStatus)); st {
	case domain.HeroLiving, domain.HeroUndead:
	default:
		return Lost, fmt.Sprintf("hero is %s", st)
	}
	return Pending, ""
}

func settlementTransformed(baseline, current domain.Snapshot, _ float64) (Verdict, string) {
	if was, is := baseline.Label(domain.LabelType), current.Label(domain.LabelType); was != is {
		return Won, fmt.Sprintf("settlement changed from %s to %s", was, is)
	}
	if domain.SettlementStatus(current.Label(domain.LabelStatus)) == domain.SettlementRuined {
		return Lost, "settlement is ruined"
	}
	return Pending, ""
}

func corruptionSpread(baseline, current domain.Snapshot, _ float64) (Verdict, string) {
	label := domain.LabelStatus
	if current.TargetType == domain.TargetSettlement {
		label = domain.LabelRegionStatus
	}
	was := domain.RegionStatus(baseline.Label(label))
	is := domain.RegionStatus(current.Label(label))
	if is == domain.RegionCorrupt && was != domain.RegionCorrupt {
		return Won, "corruption took hold"
	}
	if is == domain.RegionAbandoned || is == "" {
		return Lost, "region was abandoned"
	}
	return Pending, ""
}
