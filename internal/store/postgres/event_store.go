package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/divinefavor/internal/domain"
)

// EventStore implements the append-only journal table.
type EventStore struct {
	pool *pgxpool.Pool
}

// NewEventStore creates an EventStore.
func NewEventStore(pool *pgxpool.Pool) *EventStore {
	return &EventStore{pool: pool}
}

// Append inserts events in one batch.
func (s *EventStore) Append(ctx context.Context, events []domain.Event) error {
	if len(events) == 0 {
		return nil
	}
	const query = `
		INSERT INTO events (
			seq, year, category, description,
			related_region_ids, related_settlement_ids, related_hero_ids, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	batch := &pgx.Batch{}
	for _, e := range events {
		batch.Queue(query, e.Seq, e.Year, string(e.Category), e.Description,
			nonNil(e.RegionIDs), nonNil(e.SettlementIDs), nonNil(e.HeroIDs), e.CreatedAt)
	}
	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()
	for i := range events {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("postgres: append event %d: %w", events[i].Seq, err)
		}
	}
	return nil
}

const eventSelectCols = `seq, year, category, description,
	related_region_ids, related_settlement_ids, related_hero_ids, created_at`

func (s *EventStore) query(ctx context.Context, op, sql string, args ...any) ([]domain.Event, error) {
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: %s: %w", op, err)
	}
	defer rows.Close()

	var out []domain.Event
	for rows.Next() {
		var (
			e   domain.Event
			cat string
		)
		if err := rows.Scan(&e.Seq, &e.Year, &cat, &e.Description,
			&e.RegionIDs, &e.SettlementIDs, &e.HeroIDs, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres: %s scan: %w", op, err)
		}
		e.Category = domain.EventCategory(cat)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Since returns events after seq in ascending order.
func (s *EventStore) Since(ctx context.Context, seq int64, limit int) ([]domain.Event, error) {
	if limit <= 0 {
		return s.query(ctx, "events since",
			`SELECT `+eventSelectCols+` FROM events WHERE seq > $1 ORDER BY seq`, seq)
	}
	return s.query(ctx, "events since",
		`SELECT `+eventSelectCols+` FROM events WHERE seq > $1 ORDER BY seq LIMIT $2`, seq, limit)
}

// Recent returns the newest events first.
func (s *EventStore) Recent(ctx context.Context, limit int) ([]domain.Event, error) {
	return s.query(ctx, "recent events",
		`SELECT `+eventSelectCols+` FROM events ORDER BY seq DESC LIMIT $1`, limit)
}

// LastSeq returns the highest stored sequence number, or 0.
func (s *EventStore) LastSeq(ctx context.Context) (int64, error) {
	var seq int64
	if err := s.pool.QueryRow(ctx, `SELECT COALESCE(MAX(seq), 0) FROM events`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("postgres: last event seq: %w", err)
	}
	return seq, nil
}

var _ domain.EventStore = (*EventStore)(nil)
