package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/divinefavor/internal/domain"
)

const ledgerRetries = 3

// FavorLedger owns every mutation of favor accounts. Each operation runs
// inside the player's critical section, and accounts are written with an
// optimistic version check as a second guard.
type FavorLedger struct {
	store  domain.FavorStore
	locks  PlayerLocker
	logger *slog.Logger
	now    func() time.Time
}

// NewFavorLedger creates a FavorLedger.
func NewFavorLedger(store domain.FavorStore, locks PlayerLocker, logger *slog.Logger) *FavorLedger {
	return &FavorLedger{
		store:  store,
		locks:  locks,
		logger: logger.With(slog.String("component", "favor_ledger")),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Open returns the player's account, creating it with initial favor if it
// does not exist yet.
func (l *FavorLedger) Open(ctx context.Context, playerID string, initial int64) (domain.FavorAccount, error) {
	acct, err := l.store.Get(ctx, playerID)
	if err == nil {
		return acct, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return domain.FavorAccount{}, fmt.Errorf("favor_ledger: open %s: %w", playerID, err)
	}
	if initial < 0 {
		initial = 0
	}
	err = l.store.Create(ctx, domain.FavorAccount{PlayerID: playerID, Balance: initial, UpdatedAt: l.now()})
	if err != nil && !errors.Is(err, domain.ErrAlreadyExists) {
		return domain.FavorAccount{}, fmt.Errorf("favor_ledger: create %s: %w", playerID, err)
	}
	if err == nil {
		l.logger.InfoContext(ctx, "favor_ledger: account opened",
			slog.String("player_id", playerID),
			slog.Int64("balance", initial),
		)
	}
	return l.store.Get(ctx, playerID)
}

// Balance returns the current account.
func (l *FavorLedger) Balance(ctx context.Context, playerID string) (domain.FavorAccount, error) {
	acct, err := l.store.Get(ctx, playerID)
	if err != nil {
		return domain.FavorAccount{}, fmt.Errorf("favor_ledger: balance %s: %w", playerID, err)
	}
	return acct, nil
}

// Reserve moves amount from the spendable balance into reserve and then runs
// commit. If commit fails the reservation is released before returning.
// The balance check, the reservation and commit share one critical section.
func (l *FavorLedger) Reserve(ctx context.Context, playerID string, amount int64, commit func(context.Context) error) (domain.FavorAccount, error) {
	if amount <= 0 {
		return domain.FavorAccount{}, domain.Invalid("amount", "must be positive")
	}
	unlock, err := l.locks.Lock(ctx, playerID)
	if err != nil {
		return domain.FavorAccount{}, err
	}
	defer unlock()

	acct, err := l.mutate(ctx, playerID, func(a *domain.FavorAccount) error {
		if a.Balance < amount {
			return &domain.InsufficientFavorError{PlayerID: playerID, Available: a.Balance, Required: amount}
		}
		a.Balance -= amount
		a.Reserved += amount
		return nil
	})
	if err != nil {
		return domain.FavorAccount{}, err
	}

	if err := commit(ctx); err != nil {
		if _, rerr := l.mutate(ctx, playerID, release(amount, amount)); rerr != nil {
			l.logger.ErrorContext(ctx, "favor_ledger: release after failed commit",
				slog.String("player_id", playerID),
				slog.Int64("amount", amount),
				slog.String("error", rerr.Error()),
			)
			return domain.FavorAccount{}, errors.Join(err, rerr)
		}
		return domain.FavorAccount{}, err
	}
	return acct, nil
}

// Settle releases stake from reserve and credits credit to the spendable
// balance, but only if commit reports that it applied the transition that
// justifies the payment. commit runs first inside the critical section, so
// a transition that already happened elsewhere is never paid twice.
func (l *FavorLedger) Settle(ctx context.Context, playerID string, stake, credit int64, commit func(context.Context) (bool, error)) (bool, error) {
	unlock, err := l.locks.Lock(ctx, playerID)
	if err != nil {
		return false, err
	}
	defer unlock()

	applied, err := commit(ctx)
	if err != nil || !applied {
		return false, err
	}
	if _, err := l.mutate(ctx, playerID, release(stake, credit)); err != nil {
		l.logger.ErrorContext(ctx, "favor_ledger: settle after commit",
			slog.String("player_id", playerID),
			slog.Int64("stake", stake),
			slog.Int64("credit", credit),
			slog.String("error", err.Error()),
		)
		return true, fmt.Errorf("favor_ledger: settle %s: %w", playerID, err)
	}
	return true, nil
}

// Charge spends amount outright and then runs apply. If apply fails the
// favor is refunded.
func (l *FavorLedger) Charge(ctx context.Context, playerID string, amount int64, apply func(context.Context) error) (domain.FavorAccount, error) {
	if amount < 0 {
		return domain.FavorAccount{}, domain.Invalid("amount", "must not be negative")
	}
	unlock, err := l.locks.Lock(ctx, playerID)
	if err != nil {
		return domain.FavorAccount{}, err
	}
	defer unlock()

	acct, err := l.mutate(ctx, playerID, func(a *domain.FavorAccount) error {
		if a.Balance < amount {
			return &domain.InsufficientFavorError{PlayerID: playerID, Available: a.Balance, Required: amount}
		}
		a.Balance -= amount
		return nil
	})
	if err != nil {
		return domain.FavorAccount{}, err
	}
	if err := apply(ctx); err != nil {
		if _, rerr := l.mutate(ctx, playerID, func(a *domain.FavorAccount) error {
			a.Balance += amount
			return nil
		}); rerr != nil {
			return domain.FavorAccount{}, errors.Join(err, rerr)
		}
		return domain.FavorAccount{}, err
	}
	return acct, nil
}

// Credit adds amount to the spendable balance.
func (l *FavorLedger) Credit(ctx context.Context, playerID string, amount int64) (domain.FavorAccount, error) {
	if amount < 0 {
		return domain.FavorAccount{}, domain.Invalid("amount", "must not be negative")
	}
	unlock, err := l.locks.Lock(ctx, playerID)
	if err != nil {
		return domain.FavorAccount{}, err
	}
	defer unlock()
	return l.mutate(ctx, playerID, func(a *domain.FavorAccount) error {
		a.Balance += amount
		return nil
	})
}

// release returns a mutation that drops stake from reserve and adds credit
// to the spendable balance.
func release(stake, credit int64) func(*domain.FavorAccount) error {
	return func(a *domain.FavorAccount) error {
		if a.Reserved < stake {
			return fmt.Errorf("reserved %d is less than stake %d", a.Reserved, stake)
		}
		a.Reserved -= stake
		a.Balance += credit
		return nil
	}
}

// mutate reads, changes and writes an account, re-reading on version
// conflicts. Must be called with the player's lock held.
func (l *FavorLedger) mutate(ctx context.Context, playerID string, fn func(*domain.FavorAccount) error) (domain.FavorAccount, error) {
	for range ledgerRetries {
		acct, err := l.store.Get(ctx, playerID)
		if err != nil {
			return domain.FavorAccount{}, fmt.Errorf("favor_ledger: get %s: %w", playerID, err)
		}
		if err := fn(&acct); err != nil {
			return domain.FavorAccount{}, err
		}
		acct.UpdatedAt = l.now()
		updated, err := l.store.Update(ctx, acct)
		if errors.Is(err, domain.ErrVersionConflict) {
			continue
		}
		if err != nil {
			return domain.FavorAccount{}, fmt.Errorf("favor_ledger: update %s: %w", playerID, err)
		}
		return updated, nil
	}
	return domain.FavorAccount{}, fmt.Errorf("favor_ledger: update %s: %w", playerID, domain.ErrConcurrency)
}
