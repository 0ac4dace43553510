package evolution

// Rules holds the tunable constants of the yearly simulation. Chances are
// per year and per entity.
type Rules struct {
	// ProsperityDrift is the fraction of the gap to the settlement mean a
	// region closes each year.
	ProsperityDrift float64
	// ChaosDecay is the fraction of chaos that fades each year.
	ChaosDecay float64
	// WarChaos is added every year a region is at war.
	WarChaos float64
	// UndeadChaos is added per undead hero roaming a region.
	UndeadChaos      float64
	UnrestChance     float64
	WarThreshold     float64
	PeaceThreshold   float64
	CorruptChaos     float64
	CorruptResonance float64
	MaxDiscovery     float64

	// DeclineThreshold is the prosperity below which population shrinks.
	DeclineThreshold float64
	// GrowthPerPoint is the yearly growth rate per prosperity point above
	// DeclineThreshold.
	GrowthPerPoint float64
	StableBelow    float64
	DecliningBelow float64
	AbandonBelow   float64

	BaseDeathChance float64
	MaxDeathChance  float64
	BaseLevelChance float64
	MaxLevelChance  float64
	TravelChance    float64
	BondChance      float64
}

// DefaultRules returns the standard tuning.
func DefaultRules() Rules {
	return Rules{
		ProsperityDrift:  0.2,
		ChaosDecay:       0.1,
		WarChaos:         3,
		UndeadChaos:      4,
		UnrestChance:     0.05,
		WarThreshold:     70,
		PeaceThreshold:   40,
		CorruptChaos:     85,
		CorruptResonance: 25,
		MaxDiscovery:     0.5,

		DeclineThreshold: 40,
		GrowthPerPoint:   0.001,
		StableBelow:      55,
		DecliningBelow:   30,
		AbandonBelow:     10,

		BaseDeathChance: 0.01,
		MaxDeathChance:  0.25,
		BaseLevelChance: 0.1,
		MaxLevelChance:  0.5,
		TravelChance:    0.3,
		BondChance:      0.2,
	}
}
