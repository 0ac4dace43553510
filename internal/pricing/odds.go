package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/divinefavor/internal/domain"
)

// MinOdds is the floor every quote is clamped to.
const MinOdds = 1.0

var minOdds = decimal.NewFromFloat(MinOdds)

// QuoteRequest identifies what is being priced.
type QuoteRequest struct {
	BetType    string
	Confidence domain.Confidence
	Timeframe  int
	TargetType domain.TargetType
	TargetID   string
}

// Quote is the result of pricing one request.
type Quote struct {
	Odds               float64                 `json:"odds"`
	BaseOdds           float64                 `json:"base_odds"`
	ConfidenceModifier float64                 `json:"confidence_modifier"`
	TimeframeModifier  float64                 `json:"timeframe_modifier"`
	Applied            []domain.TargetModifier `json:"applied_modifiers,omitempty"`
}

// Payout is round(stake × odds), half away from zero.
func (q Quote) Payout(stake int64) int64 {
	return Payout(stake, q.Odds)
}

// Payout is round(stake × odds), half away from zero.
func Payout(stake int64, odds float64) int64 {
	return decimal.NewFromInt(stake).Mul(decimal.NewFromFloat(odds)).Round(0).IntPart()
}

// Engine prices bets from a Registry. It holds no mutable state.
type Engine struct {
	reg *Registry
}

// NewEngine returns an Engine over reg.
func NewEngine(reg *Registry) *Engine {
	return &Engine{reg: reg}
}

// Registry returns the tables the engine prices from.
func (e *Engine) Registry() *Registry { return e.reg }

// Quote prices req against the live snapshot of its target. Missing table
// rows return domain.ErrConfigMissing.
func (e *Engine) Quote(req QuoteRequest, snap domain.Snapshot) (Quote, error) {
	bt, ok := e.reg.BetType(req.BetType)
	if !ok {
		return Quote{}, fmt.Errorf("pricing: bet type %q: %w", req.BetType, domain.ErrConfigMissing)
	}
	conf, ok := e.reg.Confidence(req.Confidence)
	if !ok {
		return Quote{}, fmt.Errorf("pricing: confidence %q: %w", req.Confidence, domain.ErrConfigMissing)
	}
	tf, ok := e.reg.TimeframeModifier(req.Timeframe)
	if !ok {
		return Quote{}, fmt.Errorf("pricing: timeframe %d: %w", req.Timeframe, domain.ErrConfigMissing)
	}

	odds := decimal.NewFromFloat(bt.BaseOdds).
		Mul(decimal.NewFromFloat(conf.OddsModifier)).
		Mul(decimal.NewFromFloat(tf))

	q := Quote{
		BaseOdds:           bt.BaseOdds,
		ConfidenceModifier: conf.OddsModifier,
		TimeframeModifier:  tf,
	}

	var multiplicative []domain.TargetModifier
	for _, m := range e.reg.ModifiersFor(req.TargetType, req.BetType) {
		if !Matches(snap, m.ConditionField, m.Operator, m.ConditionValue) {
			continue
		}
		q.Applied = append(q.Applied, m)
		if m.Kind == domain.ModifierAdditive {
			odds = odds.Add(decimal.NewFromFloat(m.Value))
		} else {
			multiplicative = append(multiplicative, m)
		}
	}
	for _, m := range multiplicative {
		odds = odds.Mul(decimal.NewFromFloat(m.Value))
	}

	if odds.LessThan(minOdds) {
		odds = minOdds
	}
	q.Odds = odds.InexactFloat64()
	return q, nil
}

// RequiredStake is ceil(MinStake × StakeMultiplier) for a bet type and
// confidence.
func (e *Engine) RequiredStake(betType string, c domain.Confidence) (int64, error) {
	bt, ok := e.reg.BetType(betType)
	if !ok {
		return 0, fmt.Errorf("pricing: bet type %q: %w", betType, domain.ErrConfigMissing)
	}
	conf, ok := e.reg.Confidence(c)
	if !ok {
		return 0, fmt.Errorf("pricing: confidence %q: %w", c, domain.ErrConfigMissing)
	}
	return decimal.NewFromInt(bt.MinStake).Mul(decimal.NewFromFloat(conf.StakeMultiplier)).Ceil().IntPart(), nil
}
