package memory

import (
	"context"
	"sync"
	"time"

	"github.com/alanyoungcy/divinefavor/internal/domain"
)

// FavorStore keeps favor accounts keyed by player id.
type FavorStore struct {
	mu       sync.Mutex
	accounts map[string]domain.FavorAccount
}

// NewFavorStore returns an empty FavorStore.
func NewFavorStore() *FavorStore {
	return &FavorStore{accounts: make(map[string]domain.FavorAccount)}
}

// Get returns one account.
func (s *FavorStore) Get(ctx context.Context, playerID string) (domain.FavorAccount, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[playerID]
	if !ok {
		return domain.FavorAccount{}, domain.NotFound("favor account", playerID)
	}
	return a, nil
}

// Create stores a new account at version 1.
func (s *FavorStore) Create(ctx context.Context, acct domain.FavorAccount) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[acct.PlayerID]; ok {
		return domain.ErrAlreadyExists
	}
	acct.Version = 1
	acct.UpdatedAt = time.Now().UTC()
	s.accounts[acct.PlayerID] = acct
	return nil
}

// Update writes acct when its version matches the stored one.
func (s *FavorStore) Update(ctx context.Context, acct domain.FavorAccount) (domain.FavorAccount, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.accounts[acct.PlayerID]
	if !ok {
		return domain.FavorAccount{}, domain.NotFound("favor account", acct.PlayerID)
	}
	if cur.Version != acct.Version {
		return domain.FavorAccount{}, domain.ErrVersionConflict
	}
	acct.Version++
	acct.UpdatedAt = time.Now().UTC()
	s.accounts[acct.PlayerID] = acct
	return acct, nil
}

var _ domain.FavorStore = (*FavorStore)(nil)
