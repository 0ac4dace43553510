package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/alanyoungcy/divinefavor/internal/domain"
)

// BetStore implements domain.BetStore.
type BetStore struct {
	conn *sqlx.DB
}

type betRow struct {
	ID              string        `db:"id"`
	PlayerID        string        `db:"player_id"`
	BetType         string        `db:"bet_type"`
	TargetID        string        `db:"target_id"`
	TargetType      string        `db:"target_type"`
	Description     string        `db:"description"`
	Timeframe       int           `db:"timeframe"`
	Confidence      string        `db:"confidence"`
	Stake           int64         `db:"stake"`
	PotentialPayout int64         `db:"potential_payout"`
	CurrentOdds     float64       `db:"current_odds"`
	Status          string        `db:"status"`
	PlacedYear      int           `db:"placed_year"`
	ResolvedYear    sql.NullInt64 `db:"resolved_year"`
	ResolutionNotes string        `db:"resolution_notes"`
	Baseline        string        `db:"baseline_json"`
	CreatedAt       string        `db:"created_at"`
	UpdatedAt       string        `db:"updated_at"`
}

func (r betRow) bet() (domain.Bet, error) {
	b := domain.Bet{
		ID: r.ID, PlayerID: r.PlayerID, BetType: r.BetType, TargetID: r.TargetID,
		TargetType: domain.TargetType(r.TargetType), Description: r.Description,
		Timeframe: r.Timeframe, Confidence: domain.Confidence(r.Confidence),
		Stake: r.Stake, PotentialPayout: r.PotentialPayout, CurrentOdds: r.CurrentOdds,
		Status: domain.BetStatus(r.Status), PlacedYear: r.PlacedYear,
		ResolutionNotes: r.ResolutionNotes,
		CreatedAt:       parseTime(r.CreatedAt), UpdatedAt: parseTime(r.UpdatedAt),
	}
	if r.ResolvedYear.Valid {
		y := int(r.ResolvedYear.Int64)
		b.ResolvedYear = &y
	}
	if err := json.Unmarshal([]byte(r.Baseline), &b.Baseline); err != nil {
		return domain.Bet{}, fmt.Errorf("decode baseline of bet %s: %w", r.ID, err)
	}
	return b, nil
}

// Create inserts bet.
func (s *BetStore) Create(ctx context.Context, b domain.Bet) error {
	row := betRow{
		ID: b.ID, PlayerID: b.PlayerID, BetType: b.BetType, TargetID: b.TargetID,
		TargetType: string(b.TargetType), Description: b.Description, Timeframe: b.Timeframe,
		Confidence: string(b.Confidence), Stake: b.Stake, PotentialPayout: b.PotentialPayout,
		CurrentOdds: b.CurrentOdds, Status: string(b.Status), PlacedYear: b.PlacedYear,
		ResolutionNotes: b.ResolutionNotes, Baseline: mustJSON(b.Baseline),
		CreatedAt: formatTime(b.CreatedAt), UpdatedAt: formatTime(time.Now()),
	}
	if b.ResolvedYear != nil {
		row.ResolvedYear = sql.NullInt64{Int64: int64(*b.ResolvedYear), Valid: true}
	}
	_, err := s.conn.NamedExecContext(ctx, `INSERT INTO bets
		(id, player_id, bet_type, target_id, target_type, description, timeframe, confidence,
		 stake, potential_payout, current_odds, status, placed_year, resolved_year,
		 resolution_notes, baseline_json, created_at, updated_at)
		VALUES (:id, :player_id, :bet_type, :target_id, :target_type, :description, :timeframe, :confidence,
		 :stake, :potential_payout, :current_odds, :status, :placed_year, :resolved_year,
		 :resolution_notes, :baseline_json, :created_at, :updated_at)`, row)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("sqlite: create bet %s: %w", b.ID, err)
	}
	return nil
}

func (s *BetStore) selectBets(ctx context.Context, op, query string, args ...any) ([]domain.Bet, error) {
	var rows []betRow
	if err := s.conn.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("sqlite: %s: %w", op, err)
	}
	out := make([]domain.Bet, 0, len(rows))
	for _, r := range rows {
		b, err := r.bet()
		if err != nil {
			return nil, fmt.Errorf("sqlite: %s: %w", op, err)
		}
		out = append(out, b)
	}
	return out, nil
}

// GetByID returns one bet.
func (s *BetStore) GetByID(ctx context.Context, id string) (domain.Bet, error) {
	var row betRow
	err := s.conn.GetContext(ctx, &row, `SELECT * FROM bets WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Bet{}, domain.NotFound("bet", id)
	}
	if err != nil {
		return domain.Bet{}, fmt.Errorf("sqlite: get bet %s: %w", id, err)
	}
	return row.bet()
}

// List returns matching bets, newest first.
func (s *BetStore) List(ctx context.Context, f domain.BetFilter) ([]domain.Bet, error) {
	var (
		where []string
		args  []any
	)
	for col, val := range map[string]string{
		"player_id":  f.PlayerID,
		"status":     string(f.Status),
		"bet_type":   f.BetType,
		"target_id":  f.TargetID,
		"confidence": string(f.Confidence),
	} {
		if val != "" {
			where = append(where, col+" = ?")
			args = append(args, val)
		}
	}
	q := `SELECT * FROM bets`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY created_at DESC, id DESC"
	if f.Limit > 0 || f.Offset > 0 {
		limit := f.Limit
		if limit <= 0 {
			limit = -1
		}
		q += " LIMIT ? OFFSET ?"
		args = append(args, limit, f.Offset)
	}
	return s.selectBets(ctx, "list bets", q, args...)
}

// ListActive returns active bets, oldest first.
func (s *BetStore) ListActive(ctx context.Context) ([]domain.Bet, error) {
	return s.selectBets(ctx, "list active bets",
		`SELECT * FROM bets WHERE status = 'active' ORDER BY created_at, id`)
}

// ListDue returns active bets at or past their expiry year.
func (s *BetStore) ListDue(ctx context.Context, year int) ([]domain.Bet, error) {
	return s.selectBets(ctx, "list due bets",
		`SELECT * FROM bets WHERE status = 'active' AND placed_year + timeframe <= ? ORDER BY created_at, id`, year)
}

// Resolve applies res only while the bet is active.
func (s *BetStore) Resolve(ctx context.Context, res domain.BetResolution) (bool, error) {
	result, err := s.conn.ExecContext(ctx, `UPDATE bets
		SET status = ?, resolved_year = ?, resolution_notes = ?, updated_at = ?
		WHERE id = ? AND status = 'active'`,
		string(res.Status), res.Year, res.Notes, formatTime(time.Now()), res.BetID)
	if err != nil {
		return false, fmt.Errorf("sqlite: resolve bet %s: %w", res.BetID, err)
	}
	if n, _ := result.RowsAffected(); n == 1 {
		return true, nil
	}
	if _, err := s.GetByID(ctx, res.BetID); err != nil {
		return false, err
	}
	return false, nil
}

// FavorStore implements domain.FavorStore.
type FavorStore struct {
	conn *sqlx.DB
}

type favorRow struct {
	PlayerID  string `db:"player_id"`
	Balance   int64  `db:"balance"`
	Reserved  int64  `db:"reserved"`
	Version   int64  `db:"version"`
	UpdatedAt string `db:"updated_at"`
}

// Get returns the account for playerID.
func (s *FavorStore) Get(ctx context.Context, playerID string) (domain.FavorAccount, error) {
	var row favorRow
	err := s.conn.GetContext(ctx, &row, `SELECT * FROM favor_accounts WHERE player_id = ?`, playerID)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.FavorAccount{}, domain.NotFound("favor account", playerID)
	}
	if err != nil {
		return domain.FavorAccount{}, fmt.Errorf("sqlite: get favor account %s: %w", playerID, err)
	}
	return domain.FavorAccount{
		PlayerID: row.PlayerID, Balance: row.Balance, Reserved: row.Reserved,
		Version: row.Version, UpdatedAt: parseTime(row.UpdatedAt),
	}, nil
}

// Create inserts a new account at version 1.
func (s *FavorStore) Create(ctx context.Context, a domain.FavorAccount) error {
	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO favor_accounts (player_id, balance, reserved, version, updated_at) VALUES (?, ?, ?, 1, ?)`,
		a.PlayerID, a.Balance, a.Reserved, formatTime(time.Now()))
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("sqlite: create favor account %s: %w", a.PlayerID, err)
	}
	return nil
}

// Update writes a if the stored version matches.
func (s *FavorStore) Update(ctx context.Context, a domain.FavorAccount) (domain.FavorAccount, error) {
	now := time.Now().UTC()
	result, err := s.conn.ExecContext(ctx, `UPDATE favor_accounts
		SET balance = ?, reserved = ?, version = version + 1, updated_at = ?
		WHERE player_id = ? AND version = ?`,
		a.Balance, a.Reserved, formatTime(now), a.PlayerID, a.Version)
	if err != nil {
		return domain.FavorAccount{}, fmt.Errorf("sqlite: update favor account %s: %w", a.PlayerID, err)
	}
	if n, _ := result.RowsAffected(); n == 1 {
		a.Version++
		a.UpdatedAt = now
		return a, nil
	}
	if _, err := s.Get(ctx, a.PlayerID); err != nil {
		return domain.FavorAccount{}, err
	}
	return domain.FavorAccount{}, domain.ErrVersionConflict
}

// EventStore implements domain.EventStore.
type EventStore struct {
	conn *sqlx.DB
}

type eventRow struct {
	Seq         int64  `db:"seq"`
	Year        int    `db:"year"`
	Category    string `db:"category"`
	Description string `db:"description"`
	Related     string `db:"related_json"`
	CreatedAt   string `db:"created_at"`
}

type related struct {
	Regions     []string `json:"regions,omitempty"`
	Settlements []string `json:"settlements,omitempty"`
	Heroes      []string `json:"heroes,omitempty"`
}

// Append inserts events in one transaction.
func (s *EventStore) Append(ctx context.Context, events []domain.Event) error {
	if len(events) == 0 {
		return nil
	}
	tx, err := s.conn.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: append events begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PreparexContext(ctx, `INSERT INTO events
		(seq, year, category, description, related_json, created_at) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("sqlite: append events prepare: %w", err)
	}
	defer stmt.Close()

	for _, e := range events {
		rel := mustJSON(related{Regions: e.RegionIDs, Settlements: e.SettlementIDs, Heroes: e.HeroIDs})
		if _, err := stmt.ExecContext(ctx, e.Seq, e.Year, string(e.Category), e.Description, rel, formatTime(e.CreatedAt)); err != nil {
			return fmt.Errorf("sqlite: insert event %d: %w", e.Seq, err)
		}
	}
	return tx.Commit()
}

func (s *EventStore) selectEvents(ctx context.Context, op, query string, args ...any) ([]domain.Event, error) {
	var rows []eventRow
	if err := s.conn.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("sqlite: %s: %w", op, err)
	}
	out := make([]domain.Event, 0, len(rows))
	for _, r := range rows {
		var rel related
		if err := decode(r.Related, &rel); err != nil {
			return nil, fmt.Errorf("sqlite: %s: event %d: %w", op, r.Seq, err)
		}
		out = append(out, domain.Event{
			Seq: r.Seq, Year: r.Year, Category: domain.EventCategory(r.Category), Description: r.Description,
			RegionIDs: rel.Regions, SettlementIDs: rel.Settlements, HeroIDs: rel.Heroes,
			CreatedAt: parseTime(r.CreatedAt),
		})
	}
	return out, nil
}

// Since returns events after seq, oldest first.
func (s *EventStore) Since(ctx context.Context, seq int64, limit int) ([]domain.Event, error) {
	if limit <= 0 {
		limit = -1
	}
	return s.selectEvents(ctx, "events since",
		`SELECT * FROM events WHERE seq > ? ORDER BY seq LIMIT ?`, seq, limit)
}

// Recent returns the newest events first.
func (s *EventStore) Recent(ctx context.Context, limit int) ([]domain.Event, error) {
	if limit <= 0 {
		limit = -1
	}
	return s.selectEvents(ctx, "recent events", `SELECT * FROM events ORDER BY seq DESC LIMIT ?`, limit)
}

// LastSeq returns the newest sequence number, or 0.
func (s *EventStore) LastSeq(ctx context.Context) (int64, error) {
	var seq int64
	if err := s.conn.GetContext(ctx, &seq, `SELECT COALESCE(MAX(seq), 0) FROM events`); err != nil {
		return 0, fmt.Errorf("sqlite: last event seq: %w", err)
	}
	return seq, nil
}

// PricingStore keeps the pricing tables as one JSON document.
type PricingStore struct {
	conn *sqlx.DB
}

// LoadTables returns the stored tables or domain.ErrNotFound.
func (s *PricingStore) LoadTables(ctx context.Context) (domain.PricingTables, error) {
	var raw string
	err := s.conn.GetContext(ctx, &raw, `SELECT tables_json FROM pricing_tables WHERE id = 1`)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.PricingTables{}, domain.NotFound("pricing tables", "1")
	}
	if err != nil {
		return domain.PricingTables{}, fmt.Errorf("sqlite: load pricing tables: %w", err)
	}
	var t domain.PricingTables
	if err := decode(raw, &t); err != nil {
		return domain.PricingTables{}, fmt.Errorf("sqlite: decode pricing tables: %w", err)
	}
	return t, nil
}

// SaveTables replaces the stored tables.
func (s *PricingStore) SaveTables(ctx context.Context, t domain.PricingTables) error {
	if _, err := s.conn.ExecContext(ctx,
		`INSERT OR REPLACE INTO pricing_tables (id, tables_json) VALUES (1, ?)`, mustJSON(t)); err != nil {
		return fmt.Errorf("sqlite: save pricing tables: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

var (
	_ domain.BetStore     = (*BetStore)(nil)
	_ domain.FavorStore   = (*FavorStore)(nil)
	_ domain.EventStore   = (*EventStore)(nil)
	_ domain.PricingStore = (*PricingStore)(nil)
)
