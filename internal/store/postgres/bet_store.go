package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/divinefavor/internal/domain"
)

// BetStore implements domain.BetStore using PostgreSQL.
type BetStore struct {
	pool *pgxpool.Pool
}

// NewBetStore creates a BetStore.
func NewBetStore(pool *pgxpool.Pool) *BetStore {
	return &BetStore{pool: pool}
}

// Create inserts a new bet.
func (s *BetStore) Create(ctx context.Context, b domain.Bet) error {
	baseline, err := json.Marshal(b.Baseline)
	if err != nil {
		return fmt.Errorf("postgres: encode baseline for bet %s: %w", b.ID, err)
	}
	const query = `
		INSERT INTO bets (
			id, player_id, bet_type, target_id, target_type, description,
			timeframe, confidence, stake, potential_payout, current_odds,
			status, placed_year, resolved_year, resolution_notes, baseline,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10, $11,
			$12, $13, $14, $15, $16,
			$17, NOW()
		)`
	_, err = s.pool.Exec(ctx, query,
		b.ID, b.PlayerID, b.BetType, b.TargetID, string(b.TargetType), b.Description,
		b.Timeframe, string(b.Confidence), b.Stake, b.PotentialPayout, b.CurrentOdds,
		string(b.Status), b.PlacedYear, b.ResolvedYear, b.ResolutionNotes, baseline,
		b.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("postgres: create bet %s: %w", b.ID, err)
	}
	return nil
}

const betSelectCols = `id, player_id, bet_type, target_id, target_type, description,
	timeframe, confidence, stake, potential_payout, current_odds,
	status, placed_year, resolved_year, resolution_notes, baseline,
	created_at, updated_at`

func scanBet(row pgx.Row) (domain.Bet, error) {
	var (
		b                        domain.Bet
		targetType, conf, status string
		baseline                 []byte
	)
	err := row.Scan(
		&b.ID, &b.PlayerID, &b.BetType, &b.TargetID, &targetType, &b.Description,
		&b.Timeframe, &conf, &b.Stake, &b.PotentialPayout, &b.CurrentOdds,
		&status, &b.PlacedYear, &b.ResolvedYear, &b.ResolutionNotes, &baseline,
		&b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return domain.Bet{}, err
	}
	b.TargetType = domain.TargetType(targetType)
	b.Confidence = domain.Confidence(conf)
	b.Status = domain.BetStatus(status)
	if err := json.Unmarshal(baseline, &b.Baseline); err != nil {
		return domain.Bet{}, fmt.Errorf("decode baseline: %w", err)
	}
	return b, nil
}

func (s *BetStore) query(ctx context.Context, op, sql string, args ...any) ([]domain.Bet, error) {
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: %s: %w", op, err)
	}
	defer rows.Close()

	var bets []domain.Bet
	for rows.Next() {
		b, err := scanBet(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: %s scan: %w", op, err)
		}
		bets = append(bets, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: %s: %w", op, err)
	}
	return bets, nil
}

// GetByID returns one bet.
func (s *BetStore) GetByID(ctx context.Context, id string) (domain.Bet, error) {
	b, err := scanBet(s.pool.QueryRow(ctx, `SELECT `+betSelectCols+` FROM bets WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Bet{}, domain.NotFound("bet", id)
	}
	if err != nil {
		return domain.Bet{}, fmt.Errorf("postgres: get bet %s: %w", id, err)
	}
	return b, nil
}

// List returns bets matching filter, newest first.
func (s *BetStore) List(ctx context.Context, f domain.BetFilter) ([]domain.Bet, error) {
	var (
		where []string
		args  []any
	)
	add := func(col, val string) {
		if val == "" {
			return
		}
		args = append(args, val)
		where = append(where, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	add("player_id", f.PlayerID)
	add("status", string(f.Status))
	add("bet_type", f.BetType)
	add("target_id", f.TargetID)
	add("confidence", string(f.Confidence))

	q := `SELECT ` + betSelectCols + ` FROM bets`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY created_at DESC, id DESC"
	if f.Limit > 0 {
		args = append(args, f.Limit)
		q += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if f.Offset > 0 {
		args = append(args, f.Offset)
		q += fmt.Sprintf(" OFFSET $%d", len(args))
	}
	return s.query(ctx, "list bets", q, args...)
}

// ListActive returns every active bet, oldest first.
func (s *BetStore) ListActive(ctx context.Context) ([]domain.Bet, error) {
	return s.query(ctx, "list active bets",
		`SELECT `+betSelectCols+` FROM bets WHERE status = 'active' ORDER BY created_at, id`)
}

// ListDue returns active bets whose expiry year is at or before year.
func (s *BetStore) ListDue(ctx context.Context, year int) ([]domain.Bet, error) {
	return s.query(ctx, "list due bets",
		`SELECT `+betSelectCols+` FROM bets
		 WHERE status = 'active' AND placed_year + timeframe <= $1
		 ORDER BY created_at, id`, year)
}

// Resolve moves an active bet to a terminal status. The status guard in the
// WHERE clause makes a second call a no-op.
func (s *BetStore) Resolve(ctx context.Context, res domain.BetResolution) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE bets
		SET status = $2, resolved_year = $3, resolution_notes = $4, updated_at = NOW()
		WHERE id = $1 AND status = 'active'`,
		res.BetID, string(res.Status), res.Year, res.Notes)
	if err != nil {
		return false, fmt.Errorf("postgres: resolve bet %s: %w", res.BetID, err)
	}
	if tag.RowsAffected() == 1 {
		return true, nil
	}
	var exists bool
	if err := s.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM bets WHERE id = $1)`, res.BetID).Scan(&exists); err != nil {
		return false, fmt.Errorf("postgres: resolve bet %s: %w", res.BetID, err)
	}
	if !exists {
		return false, domain.NotFound("bet", res.BetID)
	}
	return false, nil
}

var _ domain.BetStore = (*BetStore)(nil)
