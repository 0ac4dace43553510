package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/divinefavor/internal/domain"
)

func settlementSnap(prosperity float64, status domain.SettlementStatus) domain.Snapshot {
	return domain.Snapshot{
		TargetType: domain.TargetSettlement,
		TargetID:   "settlement-001",
		Exists:     true,
		Fields:     map[string]float64{domain.FieldProsperity: prosperity, domain.FieldPopulation: 500},
		Labels:     map[string]string{domain.LabelStatus: string(status)},
	}
}

func TestEngine_Quote(t *testing.T) {
	engine := NewEngine(MustRegistry(DefaultTables()))

	tests := []struct {
		name   string
		req    QuoteRequest
		snap   domain.Snapshot
		odds   float64
		payout int64
	}{
		{
			name:   "plain settlement growth",
			req:    QuoteRequest{BetType: "settlement_growth", Confidence: domain.ConfidencePossible, Timeframe: 5, TargetType: domain.TargetSettlement},
			snap:   settlementSnap(60, domain.SettlementStable),
			odds:   2.3,
			payout: 230,
		},
		{
			name:   "prosperous settlement shortens odds",
			req:    QuoteRequest{BetType: "settlement_growth", Confidence: domain.ConfidencePossible, Timeframe: 5, TargetType: domain.TargetSettlement},
			snap:   settlementSnap(80, domain.SettlementThriving),
			odds:   2.0,
			payout: 200,
		},
		{
			name:   "poor declining settlement stacks multipliers",
			req:    QuoteRequest{BetType: "settlement_growth", Confidence: domain.ConfidencePossible, Timeframe: 5, TargetType: domain.TargetSettlement},
			snap:   settlementSnap(20, domain.SettlementDeclining),
			odds:   4.83,
			payout: 483,
		},
		{
			name:   "long shot over a short timeframe",
			req:    QuoteRequest{BetType: "settlement_growth", Confidence: domain.ConfidenceLongShot, Timeframe: 3, TargetType: domain.TargetSettlement},
			snap:   settlementSnap(50, domain.SettlementStable),
			odds:   5.2,
			payout: 520,
		},
		{
			name: "clamped to even money",
			req:  QuoteRequest{BetType: "hero_location_visit", Confidence: domain.ConfidenceNearCertain, Timeframe: 20, TargetType: domain.TargetHero},
			snap: domain.Snapshot{
				TargetType: domain.TargetHero, Exists: true,
				Fields: map[string]float64{domain.FieldLevel: 12},
			},
			odds:   1.0,
			payout: 100,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := engine.Quote(tt.req, tt.snap)
			require.NoError(t, err)
			assert.InDelta(t, tt.odds, q.Odds, 1e-9)
			assert.GreaterOrEqual(t, q.Odds, MinOdds)
			assert.Equal(t, tt.payout, q.Payout(100))
		})
	}
}

func TestEngine_QuoteIsPure(t *testing.T) {
	engine := NewEngine(MustRegistry(DefaultTables()))
	req := QuoteRequest{BetType: "settlement_growth", Confidence: domain.ConfidenceLikely, Timeframe: 12, TargetType: domain.TargetSettlement}
	snap := settlementSnap(25, domain.SettlementDeclining)

	a, err := engine.Quote(req, snap)
	require.NoError(t, err)
	b, err := engine.Quote(req, snap)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestEngine_QuoteMissingConfig(t *testing.T) {
	engine := NewEngine(MustRegistry(DefaultTables()))
	snap := settlementSnap(50, domain.SettlementStable)

	tests := []struct {
		name string
		req  QuoteRequest
	}{
		{"unknown bet type", QuoteRequest{BetType: "dragon_hatching", Confidence: domain.ConfidencePossible, Timeframe: 5}},
		{"unknown confidence", QuoteRequest{BetType: "settlement_growth", Confidence: "certain", Timeframe: 5}},
		{"timeframe beyond every band", QuoteRequest{BetType: "settlement_growth", Confidence: domain.ConfidencePossible, Timeframe: 31}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := engine.Quote(tt.req, snap)
			assert.ErrorIs(t, err, domain.ErrConfigMissing)
		})
	}
}

func TestEngine_AdditiveBeforeMultiplicative(t *testing.T) {
	tables := domain.PricingTables{
		BetTypes:    []domain.BetTypeConfig{{Code: "x", BaseOdds: 2, MinTimeframe: 1, MaxTimeframe: 10, ResolveCondition: PredicateHeroVisited}},
		Confidences: []domain.ConfidenceConfig{{Code: domain.ConfidencePossible, OddsModifier: 1, StakeMultiplier: 1}},
		Timeframes:  []domain.TimeframeModifier{{MaxTimeframe: 10, Modifier: 1}},
		TargetModifiers: []domain.TargetModifier{
			{TargetType: domain.TargetHero, BetType: "x", ConditionField: domain.FieldLevel, Operator: ">", ConditionValue: "0", Value: 2, Kind: domain.ModifierMultiplicative},
			{TargetType: domain.TargetHero, BetType: "x", ConditionField: domain.FieldLevel, Operator: ">", ConditionValue: "0", Value: 1, Kind: domain.ModifierAdditive},
		},
	}
	engine := NewEngine(MustRegistry(tables))
	snap := domain.Snapshot{TargetType: domain.TargetHero, Exists: true, Fields: map[string]float64{domain.FieldLevel: 3}}

	q, err := engine.Quote(QuoteRequest{BetType: "x", Confidence: domain.ConfidencePossible, Timeframe: 4, TargetType: domain.TargetHero}, snap)
	require.NoError(t, err)
	assert.InDelta(t, 6.0, q.Odds, 1e-9)
	assert.Len(t, q.Applied, 2)
}

func TestEngine_RequiredStake(t *testing.T) {
	engine := NewEngine(MustRegistry(DefaultTables()))

	tests := []struct {
		betType string
		conf    domain.Confidence
		want    int64
	}{
		{"settlement_growth", domain.ConfidenceLikely, 15},
		{"corruption_spread", domain.ConfidenceLongShot, 10},
		{"hero_location_visit", domain.ConfidenceLikely, 8},
		{"settlement_transformation", domain.ConfidenceNearCertain, 50},
	}
	for _, tt := range tests {
		got, err := engine.RequiredStake(tt.betType, tt.conf)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "%s/%s", tt.betType, tt.conf)
	}
}

// Payouts round, they do not truncate: 4.5 pays 5 and 229.6 pays 230.
func TestPayout_RoundsHalfAwayFromZero(t *testing.T) {
	assert.Equal(t, int64(5), Payout(3, 1.5))
	assert.Equal(t, int64(230), Payout(100, 2.296))
	assert.Equal(t, int64(154), Payout(100, 1.54))
	assert.Equal(t, int64(0), Payout(0, 3.2))
}
