// Package world holds the authoritative in-memory world arena, the simulated
// clock, and seeded world generation.
package world

import (
	"sync"

	"github.com/alanyoungcy/divinefavor/internal/domain"
)

// State guards the committed world. Readers receive copies; writers replace
// whole values, so no caller ever aliases committed entities.
type State struct {
	mu sync.RWMutex
	w  domain.World
}

// NewState wraps w. The caller must not keep using w afterwards.
func NewState(w domain.World) *State {
	if w.Regions == nil {
		w.Regions = map[string]domain.Region{}
	}
	if w.Settlements == nil {
		w.Settlements = map[string]domain.Settlement{}
	}
	if w.Heroes == nil {
		w.Heroes = map[string]domain.Hero{}
	}
	return &State{w: w}
}

// Snapshot returns a deep copy of the committed world.
func (s *State) Snapshot() domain.World {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.w.Clone()
}

// Commit replaces the committed world with w.
func (s *State) Commit(w domain.World) {
	s.mu.Lock()
	s.w = w
	s.mu.Unlock()
}

// Update runs fn on a working copy under the write lock and commits it only
// when fn returns nil.
func (s *State) Update(fn func(w *domain.World) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	work := s.w.Clone()
	if err := fn(&work); err != nil {
		return err
	}
	s.w = work
	return nil
}

// EvolvedYear returns the last year whose evolution was committed.
func (s *State) EvolvedYear() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.w.EvolvedYear
}

// Target returns the attribute snapshot of one entity.
func (s *State) Target(tt domain.TargetType, id string) domain.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.w.Snapshot(tt, id)
}

// Locate reports which kind of entity id refers to.
func (s *State) Locate(id string) (domain.TargetType, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.w.Locate(id)
}

// Region returns a copy of one region.
func (s *State) Region(id string) (domain.Region, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.w.Regions[id]
	return r.Clone(), ok
}

// Settlement returns a copy of one settlement.
func (s *State) Settlement(id string) (domain.Settlement, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.w.Settlements[id]
	return st.Clone(), ok
}

// Hero returns a copy of one hero.
func (s *State) Hero(id string) (domain.Hero, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.w.Heroes[id]
	return h.Clone(), ok
}

// Counts returns the number of regions, settlements, and heroes.
func (s *State) Counts() (regions, settlements, heroes int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.w.Regions), len(s.w.Settlements), len(s.w.Heroes)
}
