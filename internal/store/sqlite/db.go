// Package sqlite implements the domain stores on a single SQLite file, for
// local runs without a database server.
package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/alanyoungcy/divinefavor/internal/domain"
)

// DB wraps the SQLite connection.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates the database at path and applies the schema.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", path, err)
	}
	// SQLite has one writer; a single connection serialises access instead
	// of surfacing SQLITE_BUSY.
	conn.SetMaxOpenConns(1)

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: migrate: %w", err)
	}
	return db, nil
}

// Close closes the connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping checks the connection.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// Stores returns every domain store backed by db.
func (db *DB) Stores() domain.Stores {
	ws := &WorldStore{conn: db.conn}
	return domain.Stores{
		World:   ws,
		Clock:   ws,
		Bets:    &BetStore{conn: db.conn},
		Favor:   &FavorStore{conn: db.conn},
		Pricing: &PricingStore{conn: db.conn},
		Events:  &EventStore{conn: db.conn},
	}
}

func (db *DB) migrate() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS world_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS regions (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		prosperity REAL NOT NULL,
		chaos REAL NOT NULL,
		magic_affinity REAL NOT NULL,
		divine_resonance REAL NOT NULL,
		status TEXT NOT NULL,
		neighbor_ids_json TEXT NOT NULL,
		landmarks_json TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS settlements (
		id TEXT PRIMARY KEY,
		region_id TEXT NOT NULL,
		name TEXT NOT NULL,
		population INTEGER NOT NULL,
		prosperity REAL NOT NULL,
		status TEXT NOT NULL,
		type TEXT NOT NULL,
		founded_year INTEGER NOT NULL,
		buildings_json TEXT NOT NULL,
		resources_json TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS heroes (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		region_id TEXT NOT NULL,
		bonded_settlement_id TEXT NOT NULL,
		level INTEGER NOT NULL,
		is_alive INTEGER NOT NULL,
		status TEXT NOT NULL,
		alignment_good REAL NOT NULL,
		alignment_chaotic REAL NOT NULL,
		visited_region_ids_json TEXT NOT NULL,
		born_year INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS favor_accounts (
		player_id TEXT PRIMARY KEY,
		balance INTEGER NOT NULL CHECK (balance >= 0),
		reserved INTEGER NOT NULL CHECK (reserved >= 0),
		version INTEGER NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS bets (
		id TEXT PRIMARY KEY,
		player_id TEXT NOT NULL,
		bet_type TEXT NOT NULL,
		target_id TEXT NOT NULL,
		target_type TEXT NOT NULL,
		description TEXT NOT NULL,
		timeframe INTEGER NOT NULL,
		confidence TEXT NOT NULL,
		stake INTEGER NOT NULL,
		potential_payout INTEGER NOT NULL,
		current_odds REAL NOT NULL,
		status TEXT NOT NULL,
		placed_year INTEGER NOT NULL,
		resolved_year INTEGER,
		resolution_notes TEXT NOT NULL,
		baseline_json TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS events (
		seq INTEGER PRIMARY KEY,
		year INTEGER NOT NULL,
		category TEXT NOT NULL,
		description TEXT NOT NULL,
		related_json TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS pricing_tables (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		tables_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_bets_status ON bets(status, placed_year);
	CREATE INDEX IF NOT EXISTS idx_bets_player ON bets(player_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_events_year ON events(year);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// timeLayout is fixed width so that stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(timeLayout, s)
	return t
}
