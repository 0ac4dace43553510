// Package pricing holds the immutable odds tables and the quote function
// built on them.
package pricing

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/alanyoungcy/divinefavor/internal/domain"
)

// Registry is a validated, read-only view of the pricing tables. It is safe
// for concurrent use because nothing mutates it after NewRegistry returns.
type Registry struct {
	betTypes    map[string]domain.BetTypeConfig
	order       []string
	confidences map[domain.Confidence]domain.ConfidenceConfig
	timeframes  []domain.TimeframeModifier
	modifiers   []domain.TargetModifier
}

// NewRegistry validates t and builds a Registry from it. All problems are
// reported together.
func NewRegistry(t domain.PricingTables) (*Registry, error) {
	if errs := validateTables(t); len(errs) > 0 {
		return nil, fmt.Errorf("pricing: invalid tables:\n  - %s", strings.Join(errs, "\n  - "))
	}

	r := &Registry{
		betTypes:    make(map[string]domain.BetTypeConfig, len(t.BetTypes)),
		confidences: make(map[domain.Confidence]domain.ConfidenceConfig, len(t.Confidences)),
		timeframes:  slices.Clone(t.Timeframes),
		modifiers:   slices.Clone(t.TargetModifiers),
	}
	for _, bt := range t.BetTypes {
		bt.TargetTypes = slices.Clone(bt.TargetTypes)
		r.betTypes[bt.Code] = bt
		r.order = append(r.order, bt.Code)
	}
	for _, c := range t.Confidences {
		r.confidences[c.Code] = c
	}
	slices.SortStableFunc(r.timeframes, func(a, b domain.TimeframeModifier) int {
		return cmp.Compare(a.MaxTimeframe, b.MaxTimeframe)
	})
	return r, nil
}

// MustRegistry is NewRegistry for tables known to be valid, such as
// DefaultTables. It panics on error.
func MustRegistry(t domain.PricingTables) *Registry {
	r, err := NewRegistry(t)
	if err != nil {
		panic(err)
	}
	return r
}

// BetType looks up a bet type by code.
func (r *Registry) BetType(code string) (domain.BetTypeConfig, bool) {
	bt, ok := r.betTypes[code]
	if ok {
		bt.TargetTypes = slices.Clone(bt.TargetTypes)
	}
	return bt, ok
}

// BetTypes returns the bet types in definition order.
func (r *Registry) BetTypes() []domain.BetTypeConfig {
	out := make([]domain.BetTypeConfig, 0, len(r.order))
	for _, code := range r.order {
		bt, _ := r.BetType(code)
		out = append(out, bt)
	}
	return out
}

// Confidence looks up a confidence level.
func (r *Registry) Confidence(c domain.Confidence) (domain.ConfidenceConfig, bool) {
	cc, ok := r.confidences[c]
	return cc, ok
}

// TimeframeModifier returns the modifier of the smallest band that covers
// years.
func (r *Registry) TimeframeModifier(years int) (float64, bool) {
	for _, tf := range r.timeframes {
		if tf.MaxTimeframe >= years {
			return tf.Modifier, true
		}
	}
	return 0, false
}

// ModifiersFor returns the target modifiers for a target kind and bet type
// in definition order.
func (r *Registry) ModifiersFor(tt domain.TargetType, betType string) []domain.TargetModifier {
	var out []domain.TargetModifier
	for _, m := range r.modifiers {
		if m.TargetType == tt && m.BetType == betType {
			out = append(out, m)
		}
	}
	return out
}

// Tables returns a copy of the tables the registry was built from.
func (r *Registry) Tables() domain.PricingTables {
	t := domain.PricingTables{
		BetTypes:        r.BetTypes(),
		Timeframes:      slices.Clone(r.timeframes),
		TargetModifiers: slices.Clone(r.modifiers),
	}
	for _, c := range r.confidences {
		t.Confidences = append(t.Confidences, c)
	}
	slices.SortFunc(t.Confidences, func(a, b domain.ConfidenceConfig) int {
		return cmp.Compare(a.StakeMultiplier, b.StakeMultiplier)
	})
	return t
}

func validateTables(t domain.PricingTables) []string {
	var errs []string
	if len(t.BetTypes) == 0 {
		errs = append(errs, "no bet types configured")
	}
	seen := map[string]bool{}
	for i, bt := range t.BetTypes {
		label := fmt.Sprintf("bet_types[%d] %q", i, bt.Code)
		switch {
		case bt.Code == "":
			errs = append(errs, fmt.Sprintf("bet_types[%d]: code is required", i))
		case seen[bt.Code]:
			errs = append(errs, label+": duplicate code")
		}
		seen[bt.Code] = true
		if bt.BaseOdds <= 0 {
			errs = append(errs, label+": base_odds must be > 0")
		}
		if bt.MinTimeframe < 1 {
			errs = append(errs, label+": min_timeframe must be >= 1")
		}
		if bt.MaxTimeframe < bt.MinTimeframe {
			errs = append(errs, label+": max_timeframe must be >= min_timeframe")
		}
		if bt.MinStake < 0 {
			errs = append(errs, label+": min_stake must be >= 0")
		}
		if bt.ResolveCondition == "" {
			errs = append(errs, label+": resolve_condition is required")
		}
		for _, tt := range bt.TargetTypes {
			if !tt.Valid() {
				errs = append(errs, fmt.Sprintf("%s: unknown target type %q", label, tt))
			}
		}
	}

	seenConf := map[domain.Confidence]bool{}
	for i, c := range t.Confidences {
		label := fmt.Sprintf("confidence_levels[%d] %q", i, c.Code)
		switch c.Code {
		case domain.ConfidenceLongShot, domain.ConfidencePossible, domain.ConfidenceLikely, domain.ConfidenceNearCertain:
		default:
			errs = append(errs, label+": unknown confidence")
		}
		if seenConf[c.Code] {
			errs = append(errs, label+": duplicate code")
		}
		seenConf[c.Code] = true
		if c.OddsModifier <= 0 {
			errs = append(errs, label+": odds_modifier must be > 0")
		}
		if c.StakeMultiplier <= 0 {
			errs = append(errs, label+": stake_multiplier must be > 0")
		}
	}

	for i, tf := range t.Timeframes {
		if tf.MaxTimeframe < 1 {
			errs = append(errs, fmt.Sprintf("timeframe_modifiers[%d]: max_timeframe must be >= 1", i))
		}
		if tf.Modifier <= 0 {
			errs = append(errs, fmt.Sprintf("timeframe_modifiers[%d]: modifier must be > 0", i))
		}
	}

	for i, m := range t.TargetModifiers {
		label := fmt.Sprintf("target_modifiers[%d]", i)
		if !m.TargetType.Valid() {
			errs = append(errs, fmt.Sprintf("%s: unknown target type %q", label, m.TargetType))
		}
		if m.ConditionField == "" {
			errs = append(errs, label+": condition_field is required")
		}
		if !validOperator(m.Operator) {
			errs = append(errs, fmt.Sprintf("%s: unknown operator %q", label, m.Operator))
		}
		if m.Kind != domain.ModifierAdditive && m.Kind != domain.ModifierMultiplicative {
			errs = append(errs, fmt.Sprintf("%s: unknown modifier_type %q", label, m.Kind))
		}
	}
	return errs
}
