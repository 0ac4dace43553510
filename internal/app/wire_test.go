package app

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/divinefavor/internal/config"
	"github.com/alanyoungcy/divinefavor/internal/domain"
	"github.com/alanyoungcy/divinefavor/internal/pricing"
	"github.com/alanyoungcy/divinefavor/internal/store/memory"
)

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func memoryConfig() *config.Config {
	cfg := config.Defaults()
	cfg.Storage.Backend = "memory"
	cfg.World.Regions = 2
	cfg.World.SettlementsPerRegion = 2
	cfg.World.Heroes = 2
	return &cfg
}

func TestWire_Memory(t *testing.T) {
	ctx := t.Context()
	deps, cleanup, err := Wire(ctx, memoryConfig(), discard())
	require.NoError(t, err)
	defer cleanup()

	assert.IsType(t, &memory.SignalBus{}, deps.Bus)
	assert.Nil(t, deps.RateLimiter)
	assert.Nil(t, deps.Archiver)
	assert.Empty(t, deps.Health)

	acct, err := deps.Ledger.Balance(ctx, domain.DefaultPlayerID)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), acct.Balance)

	res, err := deps.Scheduler.RunTick(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Year)
	assert.Equal(t, 2, deps.Clock.Year())
}

func TestWire_SQLitePersistsAcrossRestarts(t *testing.T) {
	ctx := t.Context()
	cfg := memoryConfig()
	cfg.Storage.Backend = "sqlite"
	cfg.SQLite.Path = filepath.Join(t.TempDir(), "nested", "world.db")

	deps, cleanup, err := Wire(ctx, cfg, discard())
	require.NoError(t, err)
	assert.Contains(t, deps.Health, "sqlite")
	require.NoError(t, deps.Health["sqlite"](ctx))
	_, err = deps.Scheduler.RunTick(ctx)
	require.NoError(t, err)
	_, err = deps.Scheduler.RunTick(ctx)
	require.NoError(t, err)
	seed := deps.State.Snapshot().Seed
	cleanup()

	deps, cleanup, err = Wire(ctx, cfg, discard())
	require.NoError(t, err)
	defer cleanup()
	assert.Equal(t, 3, deps.Clock.Year())
	assert.Equal(t, seed, deps.State.Snapshot().Seed)

	// The account survives; opening it again must not reset the balance.
	acct, err := deps.Ledger.Balance(ctx, domain.DefaultPlayerID)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), acct.Balance)
}

func TestLoadPricing(t *testing.T) {
	ctx := t.Context()

	t.Run("defaults seed an empty store", func(t *testing.T) {
		store := memory.NewPricingStore()
		tables, err := loadPricing(ctx, config.PricingConfig{SeedStore: true}, store, discard())
		require.NoError(t, err)
		assert.Equal(t, pricing.DefaultTables(), tables)

		saved, err := store.LoadTables(ctx)
		require.NoError(t, err)
		assert.Equal(t, tables, saved)
	})

	t.Run("store wins over defaults", func(t *testing.T) {
		store := memory.NewPricingStore()
		custom := pricing.DefaultTables()
		custom.BetTypes = custom.BetTypes[:1]
		require.NoError(t, store.SaveTables(ctx, custom))

		tables, err := loadPricing(ctx, config.PricingConfig{SeedStore: true}, store, discard())
		require.NoError(t, err)
		assert.Len(t, tables.BetTypes, 1)
	})

	t.Run("inline config wins over store", func(t *testing.T) {
		store := memory.NewPricingStore()
		require.NoError(t, store.SaveTables(ctx, pricing.DefaultTables()))

		inline := pricing.DefaultTables()
		inline.BetTypes = inline.BetTypes[:2]
		tables, err := loadPricing(ctx, config.PricingConfig{PricingTables: inline}, store, discard())
		require.NoError(t, err)
		assert.Len(t, tables.BetTypes, 2)
	})

	t.Run("no seeding when disabled", func(t *testing.T) {
		store := memory.NewPricingStore()
		_, err := loadPricing(ctx, config.PricingConfig{}, store, discard())
		require.NoError(t, err)
		_, err = store.LoadTables(ctx)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestSimMode_StopsOnCancel(t *testing.T) {
	cfg := memoryConfig()
	cfg.Mode = "sim"
	deps, cleanup, err := Wire(t.Context(), cfg, discard())
	require.NoError(t, err)
	defer cleanup()

	ctx, cancel := context.WithCancel(t.Context())
	time.AfterFunc(50*time.Millisecond, cancel)
	a := New(cfg, discard())
	assert.NoError(t, a.SimMode(ctx, deps))
}
