package world

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/alanyoungcy/divinefavor/internal/domain"
)

// Clock is the simulated year. It only moves forward, one year at a time.
type Clock struct {
	mu    sync.RWMutex
	year  int
	store domain.ClockStore
}

// LoadClock reads the persisted year, initialising it to startYear when the
// store has none.
func LoadClock(ctx context.Context, store domain.ClockStore, startYear int) (*Clock, error) {
	year, err := store.CurrentYear(ctx)
	if errors.Is(err, domain.ErrNotFound) {
		if err := store.SetYear(ctx, startYear); err != nil {
			return nil, fmt.Errorf("clock: init year: %w", err)
		}
		year = startYear
	} else if err != nil {
		return nil, fmt.Errorf("clock: load year: %w", err)
	}
	return &Clock{year: year, store: store}, nil
}

// Year returns the current year.
func (c *Clock) Year() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.year
}

// Advance persists year+1 and then makes it current.
func (c *Clock) Advance(ctx context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	next := c.year + 1
	if err := c.store.SetYear(ctx, next); err != nil {
		return c.year, fmt.Errorf("clock: advance to %d: %w", next, err)
	}
	c.year = next
	return next, nil
}

// Reset forces the clock to year. It is used when restoring an archive.
func (c *Clock) Reset(ctx context.Context, year int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.store.SetYear(ctx, year); err != nil {
		return fmt.Errorf("clock: reset to %d: %w", year, err)
	}
	c.year = year
	return nil
}
