package domain

// BetTypeConfig defines one kind of wager.
type BetTypeConfig struct {
	Code         string       `json:"code" toml:"code"`
	Name         string       `json:"name" toml:"name"`
	TargetTypes  []TargetType `json:"target_types" toml:"target_types"`
	BaseOdds     float64      `json:"base_odds" toml:"base_odds"`
	MinTimeframe int          `json:"min_timeframe" toml:"min_timeframe"`
	MaxTimeframe int          `json:"max_timeframe" toml:"max_timeframe"`
	MinStake     int64        `json:"min_stake" toml:"min_stake"`
	// ResolveCondition names the outcome predicate; Threshold parameterises it.
	ResolveCondition string  `json:"resolve_condition" toml:"resolve_condition"`
	Threshold        float64 `json:"threshold" toml:"threshold"`
}

// Allows reports whether the bet type accepts the given target kind. An empty
// list accepts all kinds.
func (c BetTypeConfig) Allows(tt TargetType) bool {
	if len(c.TargetTypes) == 0 {
		return true
	}
	for _, t := range c.TargetTypes {
		if t == tt {
			return true
		}
	}
	return false
}

// ConfidenceConfig scales odds and minimum stake for a confidence level.
type ConfidenceConfig struct {
	Code            Confidence `json:"code" toml:"code"`
	OddsModifier    float64    `json:"odds_modifier" toml:"odds_modifier"`
	StakeMultiplier float64    `json:"stake_multiplier" toml:"stake_multiplier"`
}

// TimeframeModifier applies to any timeframe up to MaxTimeframe years.
type TimeframeModifier struct {
	MaxTimeframe int     `json:"max_timeframe" toml:"max_timeframe"`
	Modifier     float64 `json:"modifier" toml:"modifier"`
}

// ModifierKind selects how a target modifier combines with the odds.
type ModifierKind string

const (
	ModifierAdditive       ModifierKind = "additive"
	ModifierMultiplicative ModifierKind = "multiplicative"
)

// TargetModifier adjusts odds when a live attribute of the target satisfies a
// condition.
type TargetModifier struct {
	TargetType     TargetType   `json:"target_type" toml:"target_type"`
	BetType        string       `json:"bet_type" toml:"bet_type"`
	ConditionField string       `json:"condition_field" toml:"condition_field"`
	Operator       string       `json:"comparison_operator" toml:"comparison_operator"`
	ConditionValue string       `json:"condition_value" toml:"condition_value"`
	Value          float64      `json:"modifier_value" toml:"modifier_value"`
	Kind           ModifierKind `json:"modifier_type" toml:"modifier_type"`
}

// PricingTables is the raw configuration the odds registry is built from.
type PricingTables struct {
	BetTypes        []BetTypeConfig     `json:"bet_types" toml:"bet_types"`
	Confidences     []ConfidenceConfig  `json:"confidence_levels" toml:"confidence_levels"`
	Timeframes      []TimeframeModifier `json:"timeframe_modifiers" toml:"timeframe_modifiers"`
	TargetModifiers []TargetModifier    `json:"target_modifiers" toml:"target_modifiers"`
}

// Empty reports whether no bet types are configured.
func (t PricingTables) Empty() bool {
	return len(t.BetTypes) == 0
}
