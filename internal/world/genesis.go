package world

import (
	"fmt"
	"math"
	"math/rand/v2"

	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/alanyoungcy/divinefavor/internal/domain"
)

// GenesisConfig controls seeded world generation.
type GenesisConfig struct {
	Seed                 int64
	Regions              int
	SettlementsPerRegion int
	Heroes               int
	StartYear            int
}

var (
	namePrefixes  = []string{"Ash", "Bel", "Cor", "Dun", "Eld", "Fen", "Gil", "Hal", "Ir", "Kal", "Lor", "Mor", "Nor", "Ost", "Rav", "Sil", "Thal", "Val", "Wyn", "Zar"}
	nameSuffixes  = []string{"mere", "reach", "hold", "fall", "vale", "moor", "ford", "wick", "crest", "haven", "gate", "march"}
	heroNames     = []string{"Aldric", "Brenna", "Cassian", "Dagny", "Eamon", "Fiora", "Gareth", "Hild", "Ivo", "Jorunn", "Kael", "Liesel", "Maren", "Niall", "Orla", "Perrin", "Quill", "Rowan", "Saoirse", "Torvald"}
	landmarkKinds = []string{"Shrine", "Barrow", "Spire", "Grove", "Well", "Ruin", "Obelisk", "Cavern"}
	buildingKinds = []string{"granary", "temple", "market", "walls", "forge", "tavern"}
	resourceKinds = []string{"timber", "iron", "grain", "stone", "herbs", "silver"}
)

// Generate builds a deterministic world from cfg. Region statistics are
// sampled from OpenSimplex noise laid out on a ring, so neighbouring regions
// resemble each other.
func Generate(cfg GenesisConfig) domain.World {
	if cfg.Regions < 1 {
		cfg.Regions = 1
	}
	rng := rand.New(rand.NewPCG(uint64(cfg.Seed), 0x9e3779b97f4a7c15))
	prosperityNoise := opensimplex.NewNormalized(cfg.Seed)
	magicNoise := opensimplex.NewNormalized(cfg.Seed + 1)
	chaosNoise := opensimplex.NewNormalized(cfg.Seed + 2)

	w := domain.NewWorld(cfg.Seed)
	w.EvolvedYear = cfg.StartYear - 1

	names := uniqueNames(rng, cfg.Regions*(cfg.SettlementsPerRegion+1))
	next := 0
	takeName := func() string {
		n := names[next%len(names)]
		next++
		return n
	}

	regionIDs := make([]string, cfg.Regions)
	for i := range regionIDs {
		regionIDs[i] = fmt.Sprintf("region-%03d", i+1)
	}

	settlementSeq := 0
	for i, rid := range regionIDs {
		angle := 2 * math.Pi * float64(i) / float64(cfg.Regions)
		x, y := math.Cos(angle)*2, math.Sin(angle)*2

		region := domain.Region{
			ID:              rid,
			Name:            takeName(),
			Prosperity:      domain.ClampStat(30 + octave(prosperityNoise, x, y)*50),
			MagicAffinity:   domain.ClampStat(octave(magicNoise, x, y) * 100),
			Chaos:           domain.ClampStat(octave(chaosNoise, x, y) * 40),
			DivineResonance: domain.ClampStat(40 + rng.Float64()*20),
			Status:          domain.RegionPeaceful,
			NeighborIDs:     ringNeighbors(regionIDs, i),
		}
		for l := range 2 + rng.IntN(3) {
			region.Landmarks = append(region.Landmarks, domain.Landmark{
				ID:   fmt.Sprintf("%s-landmark-%d", rid, l+1),
				Name: fmt.Sprintf("%s of %s", landmarkKinds[rng.IntN(len(landmarkKinds))], region.Name),
			})
		}
		w.Regions[rid] = region

		for range cfg.SettlementsPerRegion {
			settlementSeq++
			sid := fmt.Sprintf("settlement-%03d", settlementSeq)
			pop := 50 + rng.IntN(3000)
			s := domain.Settlement{
				ID:          sid,
				RegionID:    rid,
				Name:        takeName(),
				Population:  pop,
				Prosperity:  domain.ClampStat(region.Prosperity + rng.Float64()*20 - 10),
				Status:      domain.SettlementStable,
				Type:        domain.TypeForPopulation(pop),
				FoundedYear: cfg.StartYear - 50 - rng.IntN(400),
			}
			if s.Prosperity >= 70 {
				s.Status = domain.SettlementThriving
			}
			for b := range 1 + rng.IntN(3) {
				s.Buildings = append(s.Buildings, domain.Building{
					ID:        fmt.Sprintf("%s-building-%d", sid, b+1),
					Kind:      buildingKinds[rng.IntN(len(buildingKinds))],
					Condition: 60 + rng.Float64()*40,
				})
			}
			for r := range 1 + rng.IntN(2) {
				s.Resources = append(s.Resources, domain.ResourceNode{
					ID:       fmt.Sprintf("%s-resource-%d", sid, r+1),
					Resource: resourceKinds[rng.IntN(len(resourceKinds))],
					Richness: 40 + rng.Float64()*60,
				})
			}
			w.Settlements[sid] = s
		}
	}

	for i := range cfg.Heroes {
		hid := fmt.Sprintf("hero-%03d", i+1)
		rid := regionIDs[rng.IntN(len(regionIDs))]
		w.Heroes[hid] = domain.Hero{
			ID:       hid,
			Name:     heroNames[i%len(heroNames)] + " " + names[rng.IntN(len(names))],
			RegionID: rid,
			Level:    1 + rng.IntN(5),
			IsAlive:  true,
			Status:   domain.HeroLiving,
			Alignment: domain.Alignment{
				Good:    domain.Clamp(rng.NormFloat64()*40, -100, 100),
				Chaotic: domain.Clamp(rng.NormFloat64()*40, -100, 100),
			},
			VisitedRegionIDs: []string{rid},
			BornYear:         cfg.StartYear - 18 - rng.IntN(30),
		}
	}
	return w
}

func ringNeighbors(ids []string, i int) []string {
	n := len(ids)
	switch n {
	case 1:
		return nil
	case 2:
		return []string{ids[1-i]}
	}
	return []string{ids[(i+n-1)%n], ids[(i+1)%n]}
}

// octave layers three frequencies of normalized noise into [0, 1].
func octave(noise opensimplex.Noise, x, y float64) float64 {
	total, amplitude, maxVal, freq := 0.0, 1.0, 0.0, 1.0
	for range 3 {
		total += noise.Eval2(x*freq, y*freq) * amplitude
		maxVal += amplitude
		amplitude *= 0.5
		freq *= 2
	}
	return total / maxVal
}

func uniqueNames(rng *rand.Rand, n int) []string {
	seen := make(map[string]bool, n)
	out := make([]string, 0, n)
	limit := len(namePrefixes) * len(nameSuffixes)
	for len(out) < n && len(seen) < limit {
		name := namePrefixes[rng.IntN(len(namePrefixes))] + nameSuffixes[rng.IntN(len(nameSuffixes))]
		if seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}
