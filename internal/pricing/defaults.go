package pricing

import "github.com/alanyoungcy/divinefavor/internal/domain"

// Predicate names understood by the resolution engine.
const (
	PredicatePopulationGrowth      = "population_growth"
	PredicateLandmarkDiscovered    = "landmark_discovered"
	PredicateCultureShifted        = "culture_shifted"
	PredicateHeroBonded            = "hero_bonded"
	PredicateHeroVisited           = "hero_visited"
	PredicateSettlementTransformed = "settlement_transformed"
	PredicateCorruptionSpread      = "corruption_spread"
)

// DefaultTables returns the tables used when neither the config file nor the
// database provides any.
func DefaultTables() domain.PricingTables {
	settlement := []domain.TargetType{domain.TargetSettlement}
	hero := []domain.TargetType{domain.TargetHero}
	return domain.PricingTables{
		BetTypes: []domain.BetTypeConfig{
			{Code: "settlement_growth", Name: "Settlement growth", TargetTypes: settlement, BaseOdds: 2.0, MinTimeframe: 3, MaxTimeframe: 20, MinStake: 10, ResolveCondition: PredicatePopulationGrowth, Threshold: 0.10},
			{Code: "landmark_discovery", Name: "Landmark discovery", TargetTypes: []domain.TargetType{domain.TargetRegion, domain.TargetSettlement}, BaseOdds: 3.0, MinTimeframe: 2, MaxTimeframe: 15, MinStake: 15, ResolveCondition: PredicateLandmarkDiscovered},
			{Code: "cultural_shift", Name: "Cultural shift", TargetTypes: []domain.TargetType{domain.TargetRegion}, BaseOdds: 2.5, MinTimeframe: 5, MaxTimeframe: 25, MinStake: 20, ResolveCondition: PredicateCultureShifted, Threshold: 15},
			{Code: "hero_settlement_bond", Name: "Hero bonds with a settlement", TargetTypes: hero, BaseOdds: 2.2, MinTimeframe: 2, MaxTimeframe: 10, MinStake: 10, ResolveCondition: PredicateHeroBonded},
			{Code: "hero_location_visit", Name: "Hero visits a new region", TargetTypes: hero, BaseOdds: 1.8, MinTimeframe: 1, MaxTimeframe: 10, MinStake: 5, ResolveCondition: PredicateHeroVisited},
			{Code: "settlement_transformation", Name: "Settlement transformation", TargetTypes: settlement, BaseOdds: 3.5, MinTimeframe: 5, MaxTimeframe: 30, MinStake: 25, ResolveCondition: PredicateSettlementTransformed},
			{Code: "corruption_spread", Name: "Corruption spreads", TargetTypes: []domain.TargetType{domain.TargetRegion, domain.TargetSettlement}, BaseOdds: 2.8, MinTimeframe: 3, MaxTimeframe: 20, MinStake: 20, ResolveCondition: PredicateCorruptionSpread},
		},
		Confidences: []domain.ConfidenceConfig{
			{Code: domain.ConfidenceLongShot, OddsModifier: 2.0, StakeMultiplier: 0.5},
			{Code: domain.ConfidencePossible, OddsModifier: 1.0, StakeMultiplier: 1.0},
			{Code: domain.ConfidenceLikely, OddsModifier: 0.7, StakeMultiplier: 1.5},
			{Code: domain.ConfidenceNearCertain, OddsModifier: 0.4, StakeMultiplier: 2.0},
		},
		Timeframes: []domain.TimeframeModifier{
			{MaxTimeframe: 3, Modifier: 1.3},
			{MaxTimeframe: 5, Modifier: 1.15},
			{MaxTimeframe: 10, Modifier: 1.0},
			{MaxTimeframe: 20, Modifier: 0.85},
			{MaxTimeframe: 30, Modifier: 0.75},
		},
		TargetModifiers: []domain.TargetModifier{
			{TargetType: domain.TargetSettlement, BetType: "settlement_growth", ConditionField: domain.FieldProsperity, Operator: ">", ConditionValue: "70", Value: -0.3, Kind: domain.ModifierAdditive},
			{TargetType: domain.TargetSettlement, BetType: "settlement_growth", ConditionField: domain.FieldProsperity, Operator: "<", ConditionValue: "30", Value: 1.4, Kind: domain.ModifierMultiplicative},
			{TargetType: domain.TargetSettlement, BetType: "settlement_growth", ConditionField: domain.LabelStatus, Operator: "=", ConditionValue: string(domain.SettlementDeclining), Value: 1.5, Kind: domain.ModifierMultiplicative},
			{TargetType: domain.TargetRegion, BetType: "corruption_spread", ConditionField: domain.FieldChaos, Operator: ">", ConditionValue: "60", Value: 0.7, Kind: domain.ModifierMultiplicative},
			{TargetType: domain.TargetSettlement, BetType: "corruption_spread", ConditionField: domain.FieldRegionChaos, Operator: ">", ConditionValue: "60", Value: 0.7, Kind: domain.ModifierMultiplicative},
			{TargetType: domain.TargetHero, BetType: "hero_location_visit", ConditionField: domain.FieldLevel, Operator: ">=", ConditionValue: "10", Value: -0.2, Kind: domain.ModifierAdditive},
		},
	}
}
