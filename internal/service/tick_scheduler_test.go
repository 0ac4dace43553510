package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/divinefavor/internal/domain"
	"github.com/alanyoungcy/divinefavor/internal/evolution"
	"github.com/alanyoungcy/divinefavor/internal/store/memory"
)

func TestTickScheduler_AdvancesClockByOne(t *testing.T) {
	h := newHarness(t, still)

	res := h.tick()
	assert.Equal(t, 1, res.Year)
	assert.Equal(t, 2, res.NextYear)
	assert.True(t, res.Evolved)
	require.Len(t, res.Events, 1)
	assert.Equal(t, 2, h.clock.Year())
	assert.Equal(t, 1, h.state.EvolvedYear())

	persisted, err := h.stores.Clock.CurrentYear(h.ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, persisted)
	saved, err := h.stores.World.LoadWorld(h.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, saved.EvolvedYear)
}

func TestTickScheduler_JournalSequenceIncreases(t *testing.T) {
	h := newHarness(t, evolution.Default(evolution.DefaultRules()))

	for range 20 {
		h.tick()
	}
	events, err := h.journal.Since(h.ctx, 0, 10000)
	require.NoError(t, err)
	require.NotEmpty(t, events)
	for i := 1; i < len(events); i++ {
		assert.Greater(t, events[i].Seq, events[i-1].Seq)
		assert.GreaterOrEqual(t, events[i].Year, events[i-1].Year)
	}
	assert.Equal(t, 21, h.clock.Year())
}

func TestTickScheduler_RejectsOverlappingTick(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	blocking := evolverFunc(func(w domain.World, year int) (domain.World, []domain.Event, error) {
		close(entered)
		<-release
		return still(w, year)
	})
	h := newHarness(t, blocking)

	var wg sync.WaitGroup
	wg.Add(1)
	var firstErr error
	go func() {
		defer wg.Done()
		_, firstErr = h.scheduler.RunTick(h.ctx)
	}()
	<-entered

	_, err := h.scheduler.RunTick(h.ctx)
	assert.ErrorIs(t, err, domain.ErrTickInProgress)

	close(release)
	wg.Wait()
	require.NoError(t, firstErr)
	assert.Equal(t, 2, h.clock.Year())
}

// flakyBets fails ListActive a set number of times.
type flakyBets struct {
	domain.BetStore
	failures atomic.Int32
}

func (f *flakyBets) ListActive(ctx context.Context) ([]domain.Bet, error) {
	if f.failures.Add(-1) >= 0 {
		return nil, errors.New("connection reset")
	}
	return f.BetStore.ListActive(ctx)
}

func TestTickScheduler_RetryDoesNotReEvolve(t *testing.T) {
	var evolutions atomic.Int32
	counting := evolverFunc(func(w domain.World, year int) (domain.World, []domain.Event, error) {
		evolutions.Add(1)
		return still(w, year)
	})
	stores := memory.New()
	bets := &flakyBets{BetStore: stores.Bets}
	bets.failures.Store(1)
	stores.Bets = bets
	h := newHarnessWithStores(t, stores, counting)

	_, err := h.scheduler.RunTick(h.ctx)
	require.Error(t, err)
	assert.Equal(t, 1, h.clock.Year())
	assert.Equal(t, 1, h.state.EvolvedYear())

	res := h.tick()
	assert.False(t, res.Evolved)
	assert.Equal(t, int32(1), evolutions.Load())
	assert.Equal(t, 2, h.clock.Year())

	st := h.scheduler.Status()
	assert.Equal(t, int64(1), st.Failures)
	assert.Equal(t, int64(1), st.Ticks)
}

func TestTickScheduler_ProcessorPanicLeavesWorldUntouched(t *testing.T) {
	h := newHarness(t, evolution.NewPipeline(panicProcessor{}))
	before := h.state.Snapshot()

	_, err := h.scheduler.RunTick(h.ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panicked")
	assert.Equal(t, before, h.state.Snapshot())
	assert.Equal(t, 1, h.clock.Year())
}

type recordingHook struct {
	mu    sync.Mutex
	years []int
	fail  bool
}

func (r *recordingHook) Name() string { return "recording" }

func (r *recordingHook) AfterTick(_ context.Context, res TickResult) error {
	r.mu.Lock()
	r.years = append(r.years, res.Year)
	r.mu.Unlock()
	if r.fail {
		return errors.New("hook down")
	}
	return nil
}

type panicHook struct{}

func (panicHook) Name() string { return "panic" }

func (panicHook) AfterTick(context.Context, TickResult) error {
	panic("hook bug")
}

func TestTickScheduler_HooksNeverFailTheTick(t *testing.T) {
	h := newHarness(t, still)
	rec := &recordingHook{fail: true}
	h.scheduler.hooks = []TickHook{panicHook{}, rec}

	h.tick()
	h.tick()

	assert.Equal(t, []int{1, 2}, rec.years)
	assert.Equal(t, 3, h.clock.Year())
}

func TestTickScheduler_RunStopsOnCancel(t *testing.T) {
	h := newHarness(t, still)
	h.scheduler.interval = 5 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.scheduler.Run(ctx) }()

	require.Eventually(t, func() bool { return h.clock.Year() >= 3 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
