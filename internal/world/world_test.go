package world

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/divinefavor/internal/domain"
	"github.com/alanyoungcy/divinefavor/internal/store/memory"
)

func genesis() GenesisConfig {
	return GenesisConfig{Seed: 99, Regions: 4, SettlementsPerRegion: 2, Heroes: 5, StartYear: 10}
}

func TestGenerate_Deterministic(t *testing.T) {
	a := Generate(genesis())
	b := Generate(genesis())
	assert.Equal(t, a, b)

	other := genesis()
	other.Seed = 100
	assert.NotEqual(t, a, Generate(other))
}

func TestGenerate_Shape(t *testing.T) {
	w := Generate(genesis())

	assert.Len(t, w.Regions, 4)
	assert.Len(t, w.Settlements, 8)
	assert.Len(t, w.Heroes, 5)
	assert.Equal(t, 9, w.EvolvedYear)

	for _, r := range w.Regions {
		assert.Len(t, r.NeighborIDs, 2)
		assert.NotEmpty(t, r.Landmarks)
		for _, n := range r.NeighborIDs {
			assert.Contains(t, w.Regions, n)
		}
		assert.GreaterOrEqual(t, r.Prosperity, 0.0)
		assert.LessOrEqual(t, r.Prosperity, 100.0)
	}
	for _, s := range w.Settlements {
		assert.Contains(t, w.Regions, s.RegionID)
		assert.Equal(t, domain.TypeForPopulation(s.Population), s.Type)
		assert.False(t, s.Status.Gone())
	}
	for _, h := range w.Heroes {
		assert.True(t, h.IsAlive)
		assert.Equal(t, domain.HeroLiving, h.Status)
		assert.Equal(t, []string{h.RegionID}, h.VisitedRegionIDs)
	}
}

func TestState_SnapshotIsACopy(t *testing.T) {
	s := NewState(Generate(genesis()))

	snap := s.Snapshot()
	r := snap.Regions["region-001"]
	r.Landmarks[0].Discovered = true
	snap.Regions["region-001"] = r

	got, ok := s.Region("region-001")
	require.True(t, ok)
	assert.False(t, got.Landmarks[0].Discovered)
}

func TestState_UpdateCommitsOnlyOnSuccess(t *testing.T) {
	s := NewState(Generate(genesis()))

	err := s.Update(func(w *domain.World) error {
		r := w.Regions["region-001"]
		r.Prosperity = 1
		w.Regions[r.ID] = r
		return errors.New("abort")
	})
	require.Error(t, err)
	got, _ := s.Region("region-001")
	assert.NotEqual(t, 1.0, got.Prosperity)

	require.NoError(t, s.Update(func(w *domain.World) error {
		r := w.Regions["region-001"]
		r.Prosperity = 1
		w.Regions[r.ID] = r
		return nil
	}))
	got, _ = s.Region("region-001")
	assert.Equal(t, 1.0, got.Prosperity)
}

func TestState_Locate(t *testing.T) {
	s := NewState(Generate(genesis()))

	tt, ok := s.Locate("settlement-003")
	require.True(t, ok)
	assert.Equal(t, domain.TargetSettlement, tt)

	_, ok = s.Locate("nowhere")
	assert.False(t, ok)

	snap := s.Target(domain.TargetHero, "hero-001")
	assert.True(t, snap.Exists)
	assert.False(t, s.Target(domain.TargetHero, "hero-999").Exists)
}

func TestClock_InitialisesAndAdvances(t *testing.T) {
	ctx := context.Background()
	store := memory.NewWorldStore()

	c, err := LoadClock(ctx, store, 5)
	require.NoError(t, err)
	assert.Equal(t, 5, c.Year())

	next, err := c.Advance(ctx)
	require.NoError(t, err)
	assert.Equal(t, 6, next)

	persisted, err := store.CurrentYear(ctx)
	require.NoError(t, err)
	assert.Equal(t, 6, persisted)

	reloaded, err := LoadClock(ctx, store, 5)
	require.NoError(t, err)
	assert.Equal(t, 6, reloaded.Year())
}

type failingClockStore struct{ year int }

func (f *failingClockStore) CurrentYear(context.Context) (int, error) { return f.year, nil }
func (f *failingClockStore) SetYear(context.Context, int) error       { return errors.New("disk full") }

func TestClock_AdvanceFailureKeepsYear(t *testing.T) {
	ctx := context.Background()
	c, err := LoadClock(ctx, &failingClockStore{year: 3}, 1)
	require.NoError(t, err)

	_, err = c.Advance(ctx)
	require.Error(t, err)
	assert.Equal(t, 3, c.Year())
}
