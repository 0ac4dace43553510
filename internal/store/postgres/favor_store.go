package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/divinefavor/internal/domain"
)

// FavorStore implements domain.FavorStore with optimistic versioning.
type FavorStore struct {
	pool *pgxpool.Pool
}

// NewFavorStore creates a FavorStore.
func NewFavorStore(pool *pgxpool.Pool) *FavorStore {
	return &FavorStore{pool: pool}
}

// Get returns the account for playerID.
func (s *FavorStore) Get(ctx context.Context, playerID string) (domain.FavorAccount, error) {
	var a domain.FavorAccount
	err := s.pool.QueryRow(ctx, `
		SELECT player_id, balance, reserved, version, updated_at
		FROM favor_accounts WHERE player_id = $1`, playerID,
	).Scan(&a.PlayerID, &a.Balance, &a.Reserved, &a.Version, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.FavorAccount{}, domain.NotFound("favor account", playerID)
	}
	if err != nil {
		return domain.FavorAccount{}, fmt.Errorf("postgres: get favor account %s: %w", playerID, err)
	}
	return a, nil
}

// Create inserts a new account at version 1.
func (s *FavorStore) Create(ctx context.Context, a domain.FavorAccount) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO favor_accounts (player_id, balance, reserved, version, updated_at)
		VALUES ($1, $2, $3, 1, NOW())`, a.PlayerID, a.Balance, a.Reserved)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("postgres: create favor account %s: %w", a.PlayerID, err)
	}
	return nil
}

// Update writes a when the stored version still equals a.Version.
func (s *FavorStore) Update(ctx context.Context, a domain.FavorAccount) (domain.FavorAccount, error) {
	var out domain.FavorAccount
	err := s.pool.QueryRow(ctx, `
		UPDATE favor_accounts
		SET balance = $2, reserved = $3, version = version + 1, updated_at = NOW()
		WHERE player_id = $1 AND version = $4
		RETURNING player_id, balance, reserved, version, updated_at`,
		a.PlayerID, a.Balance, a.Reserved, a.Version,
	).Scan(&out.PlayerID, &out.Balance, &out.Reserved, &out.Version, &out.UpdatedAt)
	if err == nil {
		return out, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return domain.FavorAccount{}, fmt.Errorf("postgres: update favor account %s: %w", a.PlayerID, err)
	}
	if _, getErr := s.Get(ctx, a.PlayerID); getErr != nil {
		return domain.FavorAccount{}, getErr
	}
	return domain.FavorAccount{}, domain.ErrVersionConflict
}

var _ domain.FavorStore = (*FavorStore)(nil)
