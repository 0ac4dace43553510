// Package memory implements the domain stores in process memory. It backs
// tests and the storage.backend = "memory" mode.
package memory

import (
	"context"
	"sync"

	"github.com/alanyoungcy/divinefavor/internal/domain"
)

// WorldStore keeps the last saved world and the clock year.
type WorldStore struct {
	mu      sync.RWMutex
	world   *domain.World
	year    int
	yearSet bool
}

// NewWorldStore returns an empty WorldStore.
func NewWorldStore() *WorldStore {
	return &WorldStore{}
}

// LoadWorld returns a copy of the saved world.
func (s *WorldStore) LoadWorld(ctx context.Context) (domain.World, error) {
	_ = ctx
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.world == nil {
		return domain.World{}, domain.ErrNotFound
	}
	return s.world.Clone(), nil
}

// SaveWorld replaces the saved world with a copy of w.
func (s *WorldStore) SaveWorld(ctx context.Context, w domain.World) error {
	_ = ctx
	c := w.Clone()
	s.mu.Lock()
	s.world = &c
	s.mu.Unlock()
	return nil
}

// CurrentYear returns the stored year.
func (s *WorldStore) CurrentYear(ctx context.Context) (int, error) {
	_ = ctx
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.yearSet {
		return 0, domain.ErrNotFound
	}
	return s.year, nil
}

// SetYear stores year.
func (s *WorldStore) SetYear(ctx context.Context, year int) error {
	_ = ctx
	s.mu.Lock()
	s.year, s.yearSet = year, true
	s.mu.Unlock()
	return nil
}

var (
	_ domain.WorldStore = (*WorldStore)(nil)
	_ domain.ClockStore = (*WorldStore)(nil)
)

// New returns a full set of in-memory stores.
func New() domain.Stores {
	ws := NewWorldStore()
	return domain.Stores{
		World:   ws,
		Clock:   ws,
		Bets:    NewBetStore(),
		Favor:   NewFavorStore(),
		Pricing: NewPricingStore(),
		Events:  NewEventStore(),
	}
}
