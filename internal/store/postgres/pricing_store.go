package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/divinefavor/internal/domain"
)

// PricingStore persists the four pricing tables.
type PricingStore struct {
	pool *pgxpool.Pool
}

// NewPricingStore creates a PricingStore.
func NewPricingStore(pool *pgxpool.Pool) *PricingStore {
	return &PricingStore{pool: pool}
}

// LoadTables reads all pricing tables. It returns domain.ErrNotFound when no
// bet types are stored.
func (s *PricingStore) LoadTables(ctx context.Context) (domain.PricingTables, error) {
	var t domain.PricingTables

	rows, err := s.pool.Query(ctx, `
		SELECT code, name, target_types, base_odds, min_timeframe, max_timeframe,
		       min_stake, resolve_condition, threshold
		FROM bet_types ORDER BY position`)
	if err != nil {
		return t, fmt.Errorf("postgres: load bet types: %w", err)
	}
	t.BetTypes, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.BetTypeConfig, error) {
		var (
			c       domain.BetTypeConfig
			targets []string
		)
		err := row.Scan(&c.Code, &c.Name, &targets, &c.BaseOdds, &c.MinTimeframe, &c.MaxTimeframe,
			&c.MinStake, &c.ResolveCondition, &c.Threshold)
		for _, tt := range targets {
			c.TargetTypes = append(c.TargetTypes, domain.TargetType(tt))
		}
		return c, err
	})
	if err != nil {
		return t, fmt.Errorf("postgres: scan bet types: %w", err)
	}
	if len(t.BetTypes) == 0 {
		return domain.PricingTables{}, domain.NotFound("pricing tables", "bet_types")
	}

	rows, err = s.pool.Query(ctx, `
		SELECT code, odds_modifier, stake_multiplier FROM confidence_levels ORDER BY position`)
	if err != nil {
		return t, fmt.Errorf("postgres: load confidence levels: %w", err)
	}
	t.Confidences, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.ConfidenceConfig, error) {
		var (
			c    domain.ConfidenceConfig
			code string
		)
		err := row.Scan(&code, &c.OddsModifier, &c.StakeMultiplier)
		c.Code = domain.Confidence(code)
		return c, err
	})
	if err != nil {
		return t, fmt.Errorf("postgres: scan confidence levels: %w", err)
	}

	rows, err = s.pool.Query(ctx, `
		SELECT max_timeframe, modifier FROM timeframe_modifiers ORDER BY max_timeframe`)
	if err != nil {
		return t, fmt.Errorf("postgres: load timeframe modifiers: %w", err)
	}
	t.Timeframes, err = pgx.CollectRows(rows, pgx.RowToStructByPos[domain.TimeframeModifier])
	if err != nil {
		return t, fmt.Errorf("postgres: scan timeframe modifiers: %w", err)
	}

	rows, err = s.pool.Query(ctx, `
		SELECT target_type, bet_type, condition_field, comparison_operator, condition_value,
		       modifier_value, modifier_type
		FROM target_modifiers ORDER BY id`)
	if err != nil {
		return t, fmt.Errorf("postgres: load target modifiers: %w", err)
	}
	t.TargetModifiers, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.TargetModifier, error) {
		var (
			m            domain.TargetModifier
			target, kind string
		)
		err := row.Scan(&target, &m.BetType, &m.ConditionField, &m.Operator, &m.ConditionValue, &m.Value, &kind)
		m.TargetType = domain.TargetType(target)
		m.Kind = domain.ModifierKind(kind)
		return m, err
	})
	if err != nil {
		return t, fmt.Errorf("postgres: scan target modifiers: %w", err)
	}
	return t, nil
}

// SaveTables replaces all pricing tables in one transaction.
func (s *PricingStore) SaveTables(ctx context.Context, t domain.PricingTables) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: save pricing begin: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx,
		`TRUNCATE bet_types, confidence_levels, timeframe_modifiers, target_modifiers RESTART IDENTITY`); err != nil {
		return fmt.Errorf("postgres: save pricing truncate: %w", err)
	}

	batch := &pgx.Batch{}
	for i, bt := range t.BetTypes {
		targets := make([]string, 0, len(bt.TargetTypes))
		for _, tt := range bt.TargetTypes {
			targets = append(targets, string(tt))
		}
		batch.Queue(`
			INSERT INTO bet_types (code, position, name, target_types, base_odds, min_timeframe,
			                       max_timeframe, min_stake, resolve_condition, threshold)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			bt.Code, i, bt.Name, targets, bt.BaseOdds, bt.MinTimeframe, bt.MaxTimeframe,
			bt.MinStake, bt.ResolveCondition, bt.Threshold)
	}
	for i, c := range t.Confidences {
		batch.Queue(`
			INSERT INTO confidence_levels (code, position, odds_modifier, stake_multiplier)
			VALUES ($1, $2, $3, $4)`, string(c.Code), i, c.OddsModifier, c.StakeMultiplier)
	}
	for _, tf := range t.Timeframes {
		batch.Queue(`INSERT INTO timeframe_modifiers (max_timeframe, modifier) VALUES ($1, $2)`,
			tf.MaxTimeframe, tf.Modifier)
	}
	for _, m := range t.TargetModifiers {
		batch.Queue(`
			INSERT INTO target_modifiers (target_type, bet_type, condition_field, comparison_operator,
			                              condition_value, modifier_value, modifier_type)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			string(m.TargetType), m.BetType, m.ConditionField, m.Operator, m.ConditionValue, m.Value, string(m.Kind))
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("postgres: save pricing rows: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: save pricing commit: %w", err)
	}
	return nil
}

var _ domain.PricingStore = (*PricingStore)(nil)
