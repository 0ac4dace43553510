package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/alanyoungcy/divinefavor/internal/domain"
)

// EventStore is an append-only slice of events.
type EventStore struct {
	mu     sync.RWMutex
	events []domain.Event
}

// NewEventStore returns an empty EventStore.
func NewEventStore() *EventStore {
	return &EventStore{}
}

// Append adds events in order.
func (s *EventStore) Append(ctx context.Context, events []domain.Event) error {
	_ = ctx
	s.mu.Lock()
	s.events = append(s.events, events...)
	s.mu.Unlock()
	return nil
}

// Since returns events after seq, oldest first.
func (s *EventStore) Since(ctx context.Context, seq int64, limit int) ([]domain.Event, error) {
	_ = ctx
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, _ := slices.BinarySearchFunc(s.events, seq+1, func(e domain.Event, target int64) int {
		switch {
		case e.Seq < target:
			return -1
		case e.Seq > target:
			return 1
		}
		return 0
	})
	out := slices.Clone(s.events[i:])
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Recent returns up to limit events, newest first.
func (s *EventStore) Recent(ctx context.Context, limit int) ([]domain.Event, error) {
	_ = ctx
	s.mu.RLock()
	defer s.mu.RUnlock()
	start := 0
	if limit > 0 && len(s.events) > limit {
		start = len(s.events) - limit
	}
	out := slices.Clone(s.events[start:])
	slices.Reverse(out)
	return out, nil
}

// LastSeq returns the highest sequence number, or 0.
func (s *EventStore) LastSeq(ctx context.Context) (int64, error) {
	_ = ctx
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.events) == 0 {
		return 0, nil
	}
	return s.events[len(s.events)-1].Seq, nil
}

var _ domain.EventStore = (*EventStore)(nil)
