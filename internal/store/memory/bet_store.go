package memory

import (
	"context"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/alanyoungcy/divinefavor/internal/domain"
)

// BetStore keeps bets in a map keyed by id.
type BetStore struct {
	mu   sync.RWMutex
	bets map[string]domain.Bet
}

// NewBetStore returns an empty BetStore.
func NewBetStore() *BetStore {
	return &BetStore{bets: make(map[string]domain.Bet)}
}

func cloneBet(b domain.Bet) domain.Bet {
	b.Baseline.Fields = maps.Clone(b.Baseline.Fields)
	b.Baseline.Labels = maps.Clone(b.Baseline.Labels)
	if b.ResolvedYear != nil {
		y := *b.ResolvedYear
		b.ResolvedYear = &y
	}
	return b
}

// Create stores a new bet.
func (s *BetStore) Create(ctx context.Context, bet domain.Bet) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.bets[bet.ID]; ok {
		return domain.ErrAlreadyExists
	}
	s.bets[bet.ID] = cloneBet(bet)
	return nil
}

// GetByID returns one bet.
func (s *BetStore) GetByID(ctx context.Context, id string) (domain.Bet, error) {
	_ = ctx
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.bets[id]
	if !ok {
		return domain.Bet{}, domain.NotFound("bet", id)
	}
	return cloneBet(b), nil
}

// List returns matching bets, newest first.
func (s *BetStore) List(ctx context.Context, filter domain.BetFilter) ([]domain.Bet, error) {
	_ = ctx
	out := s.collect(filter.Matches)
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return []domain.Bet{}, nil
		}
		out = out[filter.Offset:]
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

// ListActive returns every active bet, oldest first.
func (s *BetStore) ListActive(ctx context.Context) ([]domain.Bet, error) {
	_ = ctx
	out := s.collect(func(b domain.Bet) bool { return b.Status == domain.BetActive })
	sortOldestFirst(out)
	return out, nil
}

// ListDue returns active bets at or past their expiry year, oldest first.
func (s *BetStore) ListDue(ctx context.Context, year int) ([]domain.Bet, error) {
	_ = ctx
	out := s.collect(func(b domain.Bet) bool { return b.Status == domain.BetActive && b.DueAt(year) })
	sortOldestFirst(out)
	return out, nil
}

// Resolve applies res if the bet is still active.
func (s *BetStore) Resolve(ctx context.Context, res domain.BetResolution) (bool, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bets[res.BetID]
	if !ok {
		return false, domain.NotFound("bet", res.BetID)
	}
	if b.Status != domain.BetActive {
		return false, nil
	}
	year := res.Year
	b.Status = res.Status
	b.ResolvedYear = &year
	b.ResolutionNotes = res.Notes
	b.UpdatedAt = time.Now().UTC()
	s.bets[b.ID] = b
	return true, nil
}

func (s *BetStore) collect(keep func(domain.Bet) bool) []domain.Bet {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Bet, 0, len(s.bets))
	for _, b := range s.bets {
		if keep(b) {
			out = append(out, cloneBet(b))
		}
	}
	return out
}

func sortOldestFirst(bets []domain.Bet) {
	sort.SliceStable(bets, func(i, j int) bool {
		if !bets[i].CreatedAt.Equal(bets[j].CreatedAt) {
			return bets[i].CreatedAt.Before(bets[j].CreatedAt)
		}
		return bets[i].ID < bets[j].ID
	})
}

var _ domain.BetStore = (*BetStore)(nil)
