package memory

import (
	"context"
	"sync"

	"github.com/alanyoungcy/divinefavor/internal/domain"
)

// PricingStore holds one set of pricing tables.
type PricingStore struct {
	mu     sync.RWMutex
	tables domain.PricingTables
}

// NewPricingStore returns an empty PricingStore.
func NewPricingStore() *PricingStore {
	return &PricingStore{}
}

// LoadTables returns the stored tables.
func (s *PricingStore) LoadTables(ctx context.Context) (domain.PricingTables, error) {
	_ = ctx
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.tables.Empty() {
		return domain.PricingTables{}, domain.ErrNotFound
	}
	return s.tables, nil
}

// SaveTables replaces the stored tables.
func (s *PricingStore) SaveTables(ctx context.Context, t domain.PricingTables) error {
	_ = ctx
	s.mu.Lock()
	s.tables = t
	s.mu.Unlock()
	return nil
}

var _ domain.PricingStore = (*PricingStore)(nil)
