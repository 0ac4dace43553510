package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/divinefavor/internal/domain"
	"github.com/alanyoungcy/divinefavor/internal/world"
)

// ArchiveHook uploads a world archive every few simulated years.
type ArchiveHook struct {
	archiver domain.Archiver
	state    *world.State
	journal  *Journal
	every    int
	logger   *slog.Logger
}

var _ TickHook = (*ArchiveHook)(nil)

// NewArchiveHook archives after every tick whose year is a multiple of
// everyYears.
func NewArchiveHook(archiver domain.Archiver, state *world.State, journal *Journal, everyYears int, logger *slog.Logger) *ArchiveHook {
	if everyYears <= 0 {
		everyYears = 10
	}
	return &ArchiveHook{
		archiver: archiver,
		state:    state,
		journal:  journal,
		every:    everyYears,
		logger:   logger.With(slog.String("component", "archive")),
	}
}

// Name implements TickHook.
func (h *ArchiveHook) Name() string { return "archive" }

// AfterTick implements TickHook.
func (h *ArchiveHook) AfterTick(ctx context.Context, res TickResult) error {
	if res.Year%h.every != 0 {
		return nil
	}
	seq, err := h.journal.LastSeq(ctx)
	if err != nil {
		return fmt.Errorf("archive: last seq: %w", err)
	}
	key, err := h.archiver.Archive(ctx, domain.WorldArchive{
		Year:       res.NextYear,
		LastSeq:    seq,
		World:      h.state.Snapshot(),
		ArchivedAt: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("archive: year %d: %w", res.Year, err)
	}
	h.logger.InfoContext(ctx, "archive: world archived",
		slog.Int("year", res.Year),
		slog.String("key", key),
	)
	return nil
}

// BootstrapConfig controls how the world is obtained at startup.
type BootstrapConfig struct {
	Genesis world.GenesisConfig
	// Restore loads the newest archive when storage is empty.
	Restore bool
}

// BootstrapWorld loads the persisted world and clock. When storage holds no
// world it restores the latest archive (if enabled and one exists) or
// generates a new world. archiver may be nil.
func BootstrapWorld(ctx context.Context, stores domain.Stores, archiver domain.Archiver, cfg BootstrapConfig, logger *slog.Logger) (*world.State, *world.Clock, error) {
	w, err := stores.World.LoadWorld(ctx)
	switch {
	case err == nil:
	case !isNotFound(err):
		return nil, nil, fmt.Errorf("bootstrap: load world: %w", err)
	default:
		w, err = freshWorld(ctx, stores, archiver, cfg, logger)
		if err != nil {
			return nil, nil, err
		}
	}

	clock, err := world.LoadClock(ctx, stores.Clock, w.EvolvedYear+1)
	if err != nil {
		return nil, nil, fmt.Errorf("bootstrap: %w", err)
	}
	return world.NewState(w), clock, nil
}

func freshWorld(ctx context.Context, stores domain.Stores, archiver domain.Archiver, cfg BootstrapConfig, logger *slog.Logger) (domain.World, error) {
	if cfg.Restore && archiver != nil {
		a, err := archiver.Latest(ctx)
		switch {
		case err == nil:
			if err := stores.World.SaveWorld(ctx, a.World); err != nil {
				return domain.World{}, fmt.Errorf("bootstrap: save restored world: %w", err)
			}
			if err := stores.Clock.SetYear(ctx, a.Year); err != nil {
				return domain.World{}, fmt.Errorf("bootstrap: restore clock: %w", err)
			}
			logger.InfoContext(ctx, "bootstrap: world restored from archive",
				slog.Int("year", a.Year),
				slog.Time("archived_at", a.ArchivedAt),
			)
			return a.World, nil
		case !isNotFound(err):
			logger.WarnContext(ctx, "bootstrap: archive restore failed, generating",
				slog.String("error", err.Error()),
			)
		}
	}

	w := world.Generate(cfg.Genesis)
	if err := stores.World.SaveWorld(ctx, w); err != nil {
		return domain.World{}, fmt.Errorf("bootstrap: save generated world: %w", err)
	}
	logger.InfoContext(ctx, "bootstrap: world generated",
		slog.Int64("seed", cfg.Genesis.Seed),
		slog.Int("regions", len(w.Regions)),
		slog.Int("settlements", len(w.Settlements)),
		slog.Int("heroes", len(w.Heroes)),
	)
	return w, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, domain.ErrNotFound)
}
