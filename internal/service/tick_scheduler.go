package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alanyoungcy/divinefavor/internal/domain"
	"github.com/alanyoungcy/divinefavor/internal/evolution"
	"github.com/alanyoungcy/divinefavor/internal/world"
)

const maxTickEvents = 5000

// Evolver computes one year of world change.
type Evolver interface {
	Evolve(w domain.World, year int) (domain.World, []domain.Event, error)
}

var _ Evolver = (*evolution.Pipeline)(nil)

// TickHook runs after a successful tick. Hook errors are logged and never
// fail the tick.
type TickHook interface {
	Name() string
	AfterTick(ctx context.Context, res TickResult) error
}

// TickResult is what one tick did.
type TickResult struct {
	Year       int              `json:"year"`
	NextYear   int              `json:"next_year"`
	Evolved    bool             `json:"evolved"`
	Events     []domain.Event   `json:"events"`
	Resolution ResolutionReport `json:"resolution"`
	Duration   time.Duration    `json:"duration_ns"`
}

// SchedulerStatus is a point-in-time view of the scheduler.
type SchedulerStatus struct {
	Running       bool       `json:"running"`
	Ticks         int64      `json:"ticks"`
	Failures      int64      `json:"failures"`
	LastYear      int        `json:"last_year"`
	LastTickAt    *time.Time `json:"last_tick_at,omitempty"`
	LastError     string     `json:"last_error,omitempty"`
	PendingEvents int        `json:"pending_journal_events"`
}

// TickScheduler runs one tick at a time: evolution, resolution, clock
// advance. A failed tick leaves the clock where it was, and the next tick
// repeats only the phases that did not complete.
type TickScheduler struct {
	state      *world.State
	clock      *world.Clock
	evolver    Evolver
	worlds     domain.WorldStore
	journal    *Journal
	resolution *ResolutionEngine
	interval   time.Duration
	hooks      []TickHook
	logger     *slog.Logger

	running  atomic.Bool
	ticks    atomic.Int64
	failures atomic.Int64

	mu       sync.Mutex
	pending  []domain.Event
	lastYear int
	lastAt   *time.Time
	lastErr  string
}

// NewTickScheduler creates a TickScheduler.
func NewTickScheduler(
	state *world.State,
	clock *world.Clock,
	evolver Evolver,
	worlds domain.WorldStore,
	journal *Journal,
	resolution *ResolutionEngine,
	interval time.Duration,
	logger *slog.Logger,
	hooks ...TickHook,
) *TickScheduler {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &TickScheduler{
		state:      state,
		clock:      clock,
		evolver:    evolver,
		worlds:     worlds,
		journal:    journal,
		resolution: resolution,
		interval:   interval,
		hooks:      hooks,
		logger:     logger.With(slog.String("component", "tick_scheduler")),
	}
}

// RunTick runs one tick. It returns domain.ErrTickInProgress without waiting
// when another tick is running. The tick is not interrupted by ctx
// cancellation once it has started.
func (s *TickScheduler) RunTick(ctx context.Context) (TickResult, error) {
	if !s.running.CompareAndSwap(false, true) {
		return TickResult{}, domain.ErrTickInProgress
	}
	defer s.running.Store(false)

	ctx = context.WithoutCancel(ctx)
	start := time.Now()
	res, err := s.tick(ctx)
	res.Duration = time.Since(start)
	if err != nil {
		s.failures.Add(1)
		s.setLast(res.Year, err)
		s.logger.ErrorContext(ctx, "tick_scheduler: tick failed",
			slog.Int("year", res.Year),
			slog.String("error", err.Error()),
		)
		return res, err
	}
	s.ticks.Add(1)
	s.setLast(res.Year, nil)
	s.logger.InfoContext(ctx, "tick_scheduler: tick complete",
		slog.Int("year", res.Year),
		slog.Bool("evolved", res.Evolved),
		slog.Int("events", len(res.Events)),
		slog.Int("bets_resolved", res.Resolution.Processed()),
		slog.Duration("duration", res.Duration),
	)
	s.runHooks(ctx, res)
	return res, nil
}

func (s *TickScheduler) tick(ctx context.Context) (TickResult, error) {
	year := s.clock.Year()
	res := TickResult{Year: year}

	startSeq, err := s.journal.LastSeq(ctx)
	if err != nil {
		return res, fmt.Errorf("tick_scheduler: journal seq: %w", err)
	}

	if err := s.flushPending(ctx); err != nil {
		return res, err
	}

	if s.state.EvolvedYear() < year {
		var events []domain.Event
		err := s.state.Update(func(w *domain.World) error {
			next, evs, err := s.evolver.Evolve(*w, year)
			if err != nil {
				return err
			}
			if err := s.worlds.SaveWorld(ctx, next); err != nil {
				return fmt.Errorf("save world: %w", err)
			}
			*w = next
			events = evs
			return nil
		})
		if err != nil {
			return res, fmt.Errorf("tick_scheduler: evolve year %d: %w", year, err)
		}
		res.Evolved = true
		if _, err := s.journal.Append(ctx, events); err != nil {
			s.mu.Lock()
			s.pending = append(s.pending, events...)
			s.mu.Unlock()
			return res, fmt.Errorf("tick_scheduler: journal: %w", err)
		}
	}

	report, err := s.resolution.Resolve(ctx, year)
	res.Resolution = report
	if err != nil {
		return res, fmt.Errorf("tick_scheduler: resolve year %d: %w", year, err)
	}

	next, err := s.clock.Advance(ctx)
	if err != nil {
		return res, fmt.Errorf("tick_scheduler: %w", err)
	}
	res.NextYear = next

	delta, err := s.journal.Since(ctx, startSeq, maxTickEvents)
	if err != nil {
		s.logger.WarnContext(ctx, "tick_scheduler: read journal delta", slog.String("error", err.Error()))
	}
	res.Events = delta
	return res, nil
}

// flushPending retries journal events whose append failed in an earlier
// tick after their evolution had already been committed.
func (s *TickScheduler) flushPending(ctx context.Context) error {
	s.mu.Lock()
	pending := s.pending
	s.mu.Unlock()
	if len(pending) == 0 {
		return nil
	}
	if _, err := s.journal.Append(ctx, pending); err != nil {
		return fmt.Errorf("tick_scheduler: flush journal: %w", err)
	}
	s.mu.Lock()
	s.pending = s.pending[len(pending):]
	s.mu.Unlock()
	return nil
}

func (s *TickScheduler) runHooks(ctx context.Context, res TickResult) {
	for _, h := range s.hooks {
		func() {
			defer func() {
				if r := recover(); r != nil {
					s.logger.ErrorContext(ctx, "tick_scheduler: hook panicked",
						slog.String("hook", h.Name()),
						slog.Any("panic", r),
					)
				}
			}()
			if err := h.AfterTick(ctx, res); err != nil {
				s.logger.WarnContext(ctx, "tick_scheduler: hook failed",
					slog.String("hook", h.Name()),
					slog.String("error", err.Error()),
				)
			}
		}()
	}
}

// Run ticks every interval until ctx is cancelled. Failed ticks are retried
// on the next interval. Call in a goroutine.
func (s *TickScheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	s.logger.InfoContext(ctx, "tick_scheduler: started", slog.Duration("interval", s.interval))
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := s.RunTick(ctx); errors.Is(err, domain.ErrTickInProgress) {
				s.logger.DebugContext(ctx, "tick_scheduler: previous tick still running")
			}
		}
	}
}

// Status reports counters and the outcome of the last tick.
func (s *TickScheduler) Status() SchedulerStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SchedulerStatus{
		Running:       s.running.Load(),
		Ticks:         s.ticks.Load(),
		Failures:      s.failures.Load(),
		LastYear:      s.lastYear,
		LastTickAt:    s.lastAt,
		LastError:     s.lastErr,
		PendingEvents: len(s.pending),
	}
}

func (s *TickScheduler) setLast(year int, err error) {
	now := time.Now().UTC()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastYear = year
	s.lastAt = &now
	s.lastErr = ""
	if err != nil {
		s.lastErr = err.Error()
	}
}
