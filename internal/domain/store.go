package domain

import "context"

// WorldStore persists the entity arena. LoadWorld returns ErrNotFound when
// nothing has been saved yet.
type WorldStore interface {
	LoadWorld(ctx context.Context) (World, error)
	SaveWorld(ctx context.Context, w World) error
}

// ClockStore persists the current simulated year. CurrentYear returns
// ErrNotFound when the clock was never set.
type ClockStore interface {
	CurrentYear(ctx context.Context) (int, error)
	SetYear(ctx context.Context, year int) error
}

// BetStore persists bets.
type BetStore interface {
	Create(ctx context.Context, bet Bet) error
	GetByID(ctx context.Context, id string) (Bet, error)
	List(ctx context.Context, filter BetFilter) ([]Bet, error)
	ListActive(ctx context.Context) ([]Bet, error)
	// ListDue returns active bets whose expiry year is at or before year.
	ListDue(ctx context.Context, year int) ([]Bet, error)
	// Resolve applies a terminal transition only if the bet is still active.
	// It reports whether the transition happened.
	Resolve(ctx context.Context, res BetResolution) (bool, error)
}

// FavorStore persists favor accounts.
type FavorStore interface {
	Get(ctx context.Context, playerID string) (FavorAccount, error)
	// Create returns ErrAlreadyExists if the account exists.
	Create(ctx context.Context, acct FavorAccount) error
	// Update writes acct if the stored version equals acct.Version and bumps
	// the version. A mismatch returns ErrVersionConflict.
	Update(ctx context.Context, acct FavorAccount) (FavorAccount, error)
}

// PricingStore persists the pricing tables.
type PricingStore interface {
	LoadTables(ctx context.Context) (PricingTables, error)
	SaveTables(ctx context.Context, t PricingTables) error
}

// EventStore persists the append-only journal.
type EventStore interface {
	Append(ctx context.Context, events []Event) error
	// Since returns events with Seq > seq in ascending order.
	Since(ctx context.Context, seq int64, limit int) ([]Event, error)
	// Recent returns the newest events, newest first.
	Recent(ctx context.Context, limit int) ([]Event, error)
	LastSeq(ctx context.Context) (int64, error)
}

// Stores bundles one backend's implementations.
type Stores struct {
	World   WorldStore
	Clock   ClockStore
	Bets    BetStore
	Favor   FavorStore
	Pricing PricingStore
	Events  EventStore
}
