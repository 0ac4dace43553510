package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/divinefavor/internal/domain"
)

func TestNewRegistry_Defaults(t *testing.T) {
	reg, err := NewRegistry(DefaultTables())
	require.NoError(t, err)

	codes := make([]string, 0)
	for _, bt := range reg.BetTypes() {
		codes = append(codes, bt.Code)
	}
	assert.Equal(t, []string{
		"settlement_growth", "landmark_discovery", "cultural_shift", "hero_settlement_bond",
		"hero_location_visit", "settlement_transformation", "corruption_spread",
	}, codes)

	m, ok := reg.TimeframeModifier(4)
	require.True(t, ok)
	assert.Equal(t, 1.15, m)
	m, ok = reg.TimeframeModifier(30)
	require.True(t, ok)
	assert.Equal(t, 0.75, m)
	_, ok = reg.TimeframeModifier(31)
	assert.False(t, ok)

	assert.Len(t, reg.ModifiersFor(domain.TargetSettlement, "settlement_growth"), 3)
	assert.Empty(t, reg.ModifiersFor(domain.TargetRegion, "settlement_growth"))
}

func TestNewRegistry_SortsTimeframeBands(t *testing.T) {
	tables := DefaultTables()
	tables.Timeframes = []domain.TimeframeModifier{{MaxTimeframe: 30, Modifier: 0.5}, {MaxTimeframe: 5, Modifier: 2}}

	reg, err := NewRegistry(tables)
	require.NoError(t, err)

	m, _ := reg.TimeframeModifier(3)
	assert.Equal(t, 2.0, m)
}

func TestNewRegistry_ReportsEveryProblem(t *testing.T) {
	tables := DefaultTables()
	tables.BetTypes = append(tables.BetTypes, domain.BetTypeConfig{Code: "settlement_growth", BaseOdds: 0, MinTimeframe: 5, MaxTimeframe: 2})
	tables.TargetModifiers = append(tables.TargetModifiers, domain.TargetModifier{
		TargetType: "dungeon", ConditionField: "x", Operator: "~", Kind: "exponential",
	})

	_, err := NewRegistry(tables)
	require.Error(t, err)
	msg := err.Error()
	for _, want := range []string{"duplicate code", "base_odds", "max_timeframe", "resolve_condition", "unknown target type", "unknown operator", "unknown modifier_type"} {
		assert.Contains(t, msg, want)
	}
}

func TestRegistry_ReturnsCopies(t *testing.T) {
	reg := MustRegistry(DefaultTables())

	bt, ok := reg.BetType("landmark_discovery")
	require.True(t, ok)
	bt.TargetTypes[0] = domain.TargetHero

	again, _ := reg.BetType("landmark_discovery")
	assert.Equal(t, domain.TargetRegion, again.TargetTypes[0])
}

func TestMatches(t *testing.T) {
	snap := domain.Snapshot{
		Exists: true,
		Fields: map[string]float64{domain.FieldProsperity: 9, domain.FieldLevel: 10},
		Labels: map[string]string{domain.LabelStatus: "declining"},
	}

	tests := []struct {
		field, op, value string
		want             bool
	}{
		{domain.FieldProsperity, "<", "10", true},
		{domain.FieldProsperity, ">", "10", false},
		{domain.FieldLevel, ">=", "10", true},
		{domain.FieldLevel, "=", "10.0", true},
		{domain.FieldLevel, "!=", "10", false},
		{domain.FieldLevel, "<=", "9", false},
		{domain.LabelStatus, "=", "declining", true},
		{domain.LabelStatus, "!=", "thriving", true},
		{"missing", "=", "", false},
		{domain.FieldLevel, "~", "10", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Matches(snap, tt.field, tt.op, tt.value), "%s %s %s", tt.field, tt.op, tt.value)
	}
}
