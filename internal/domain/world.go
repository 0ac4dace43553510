package domain

import (
	"maps"
	"slices"
)

// TargetType names the kind of world entity a bet or influence action points at.
type TargetType string

const (
	TargetRegion     TargetType = "region"
	TargetSettlement TargetType = "settlement"
	TargetHero       TargetType = "hero"
)

// Valid reports whether t is one of the known target kinds.
func (t TargetType) Valid() bool {
	switch t {
	case TargetRegion, TargetSettlement, TargetHero:
		return true
	}
	return false
}

// RegionStatus is the macro condition of a region.
type RegionStatus string

const (
	RegionPeaceful  RegionStatus = "peaceful"
	RegionWarring   RegionStatus = "warring"
	RegionCorrupt   RegionStatus = "corrupt"
	RegionAbandoned RegionStatus = "abandoned"
)

// SettlementStatus is ordered from best to worst. The yearly tick only ever
// moves a settlement towards the end of this list.
type SettlementStatus string

const (
	SettlementThriving  SettlementStatus = "thriving"
	SettlementStable    SettlementStatus = "stable"
	SettlementDeclining SettlementStatus = "declining"
	SettlementAbandoned SettlementStatus = "abandoned"
	SettlementRuined    SettlementStatus = "ruined"
)

var settlementStatusOrder = []SettlementStatus{
	SettlementThriving,
	SettlementStable,
	SettlementDeclining,
	SettlementAbandoned,
	SettlementRuined,
}

// Rank returns the position of s in the decline order (0 = thriving).
// Unknown values rank as ruined.
func (s SettlementStatus) Rank() int {
	if i := slices.Index(settlementStatusOrder, s); i >= 0 {
		return i
	}
	return len(settlementStatusOrder) - 1
}

// Improved returns the status one step better than s. Ruined settlements
// cannot recover.
func (s SettlementStatus) Improved() SettlementStatus {
	r := s.Rank()
	if s == SettlementRuined || r == 0 {
		return s
	}
	return settlementStatusOrder[r-1]
}

// Gone reports whether the settlement no longer functions as a settlement.
func (s SettlementStatus) Gone() bool {
	return s == SettlementAbandoned || s == SettlementRuined
}

// SettlementType is the size class of a settlement.
type SettlementType string

const (
	SettlementHamlet  SettlementType = "hamlet"
	SettlementVillage SettlementType = "village"
	SettlementTown    SettlementType = "town"
	SettlementCity    SettlementType = "city"
)

// TypeForPopulation maps a head count to its size class.
func TypeForPopulation(pop int) SettlementType {
	switch {
	case pop >= 5000:
		return SettlementCity
	case pop >= 1000:
		return SettlementTown
	case pop >= 100:
		return SettlementVillage
	default:
		return SettlementHamlet
	}
}

// HeroStatus is the life state of a hero.
type HeroStatus string

const (
	HeroLiving   HeroStatus = "living"
	HeroDeceased HeroStatus = "deceased"
	HeroUndead   HeroStatus = "undead"
	HeroAscended HeroStatus = "ascended"
)

// Landmark is a point of interest owned by a region.
type Landmark struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Discovered     bool   `json:"discovered"`
	DiscoveredYear int    `json:"discovered_year,omitempty"`
}

// Region is a top-level area of the world.
type Region struct {
	ID              string       `json:"id"`
	Name            string       `json:"name"`
	Prosperity      float64      `json:"prosperity"`
	Chaos           float64      `json:"chaos"`
	MagicAffinity   float64      `json:"magic_affinity"`
	DivineResonance float64      `json:"divine_resonance"`
	Status          RegionStatus `json:"status"`
	NeighborIDs     []string     `json:"neighbor_ids"`
	Landmarks       []Landmark   `json:"landmarks"`
}

// DiscoveredLandmarks counts landmarks that have been found.
func (r Region) DiscoveredLandmarks() int {
	n := 0
	for _, l := range r.Landmarks {
		if l.Discovered {
			n++
		}
	}
	return n
}

// Clone returns a deep copy of r.
func (r Region) Clone() Region {
	r.NeighborIDs = slices.Clone(r.NeighborIDs)
	r.Landmarks = slices.Clone(r.Landmarks)
	return r
}

// Building is a structure inside a settlement.
type Building struct {
	ID        string  `json:"id"`
	Kind      string  `json:"kind"`
	Condition float64 `json:"condition"`
}

// ResourceNode is a harvestable resource tied to a settlement.
type ResourceNode struct {
	ID       string  `json:"id"`
	Resource string  `json:"resource"`
	Richness float64 `json:"richness"`
	Depleted bool    `json:"depleted"`
}

// Settlement is a populated place inside a region.
type Settlement struct {
	ID          string           `json:"id"`
	RegionID    string           `json:"region_id"`
	Name        string           `json:"name"`
	Population  int              `json:"population"`
	Prosperity  float64          `json:"prosperity"`
	Status      SettlementStatus `json:"status"`
	Type        SettlementType   `json:"type"`
	FoundedYear int              `json:"founded_year"`
	Buildings   []Building       `json:"buildings"`
	Resources   []ResourceNode   `json:"resources"`
}

// ActiveResources counts nodes that are not yet depleted.
func (s Settlement) ActiveResources() int {
	n := 0
	for _, r := range s.Resources {
		if !r.Depleted {
			n++
		}
	}
	return n
}

// Clone returns a deep copy of s.
func (s Settlement) Clone() Settlement {
	s.Buildings = slices.Clone(s.Buildings)
	s.Resources = slices.Clone(s.Resources)
	return s
}

// Alignment places a hero on the good/evil and lawful/chaotic axes, each in
// [-100, 100].
type Alignment struct {
	Good    float64 `json:"good"`
	Chaotic float64 `json:"chaotic"`
}

// Hero is a named individual that wanders the world.
type Hero struct {
	ID                 string     `json:"id"`
	Name               string     `json:"name"`
	RegionID           string     `json:"region_id"`
	BondedSettlementID string     `json:"bonded_settlement_id,omitempty"`
	Level              int        `json:"level"`
	IsAlive            bool       `json:"is_alive"`
	Status             HeroStatus `json:"status"`
	Alignment          Alignment  `json:"alignment"`
	VisitedRegionIDs   []string   `json:"visited_region_ids"`
	BornYear           int        `json:"born_year"`
}

// Active reports whether the hero still acts in the world. Undead heroes keep
// roaming; ascended and deceased heroes do not.
func (h Hero) Active() bool {
	return h.Status == HeroLiving || h.Status == HeroUndead
}

// Clone returns a deep copy of h.
func (h Hero) Clone() Hero {
	h.VisitedRegionIDs = slices.Clone(h.VisitedRegionIDs)
	return h
}

// World is the arena of all simulated entities, addressed by id. Entities
// reference each other by id only.
type World struct {
	Seed        int64                 `json:"seed"`
	Regions     map[string]Region     `json:"regions"`
	Settlements map[string]Settlement `json:"settlements"`
	Heroes      map[string]Hero       `json:"heroes"`
	// EvolvedYear is the last year whose evolution phase was committed.
	EvolvedYear int `json:"evolved_year"`
}

// NewWorld returns an empty world with initialized maps.
func NewWorld(seed int64) World {
	return World{
		Seed:        seed,
		Regions:     map[string]Region{},
		Settlements: map[string]Settlement{},
		Heroes:      map[string]Hero{},
	}
}

// Clone returns a deep copy of w.
func (w World) Clone() World {
	out := World{
		Seed:        w.Seed,
		EvolvedYear: w.EvolvedYear,
		Regions:     make(map[string]Region, len(w.Regions)),
		Settlements: make(map[string]Settlement, len(w.Settlements)),
		Heroes:      make(map[string]Hero, len(w.Heroes)),
	}
	for id, r := range w.Regions {
		out.Regions[id] = r.Clone()
	}
	for id, s := range w.Settlements {
		out.Settlements[id] = s.Clone()
	}
	for id, h := range w.Heroes {
		out.Heroes[id] = h.Clone()
	}
	return out
}

// Empty reports whether the world holds no regions.
func (w World) Empty() bool {
	return len(w.Regions) == 0
}

// RegionIDs returns region ids in ascending order.
func (w World) RegionIDs() []string { return slices.Sorted(maps.Keys(w.Regions)) }

// SettlementIDs returns settlement ids in ascending order.
func (w World) SettlementIDs() []string { return slices.Sorted(maps.Keys(w.Settlements)) }

// HeroIDs returns hero ids in ascending order.
func (w World) HeroIDs() []string { return slices.Sorted(maps.Keys(w.Heroes)) }

// SettlementsIn returns the settlements of a region ordered by id.
func (w World) SettlementsIn(regionID string) []Settlement {
	var out []Settlement
	for _, id := range w.SettlementIDs() {
		if s := w.Settlements[id]; s.RegionID == regionID {
			out = append(out, s)
		}
	}
	return out
}

// HeroesIn returns the active heroes currently in a region ordered by id.
func (w World) HeroesIn(regionID string) []Hero {
	var out []Hero
	for _, id := range w.HeroIDs() {
		if h := w.Heroes[id]; h.RegionID == regionID && h.Active() {
			out = append(out, h)
		}
	}
	return out
}

// Locate probes regions, then settlements, then heroes for id and returns the
// kind of the first match.
func (w World) Locate(id string) (TargetType, bool) {
	if _, ok := w.Regions[id]; ok {
		return TargetRegion, true
	}
	if _, ok := w.Settlements[id]; ok {
		return TargetSettlement, true
	}
	if _, ok := w.Heroes[id]; ok {
		return TargetHero, true
	}
	return "", false
}

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ClampStat bounds a region or settlement statistic to [0, 100].
func ClampStat(v float64) float64 { return Clamp(v, 0, 100) }
