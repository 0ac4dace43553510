package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	s3blob "github.com/alanyoungcy/divinefavor/internal/blob/s3"
	"github.com/alanyoungcy/divinefavor/internal/cache/redis"
	"github.com/alanyoungcy/divinefavor/internal/config"
	"github.com/alanyoungcy/divinefavor/internal/domain"
	"github.com/alanyoungcy/divinefavor/internal/evolution"
	"github.com/alanyoungcy/divinefavor/internal/notify"
	"github.com/alanyoungcy/divinefavor/internal/pricing"
	"github.com/alanyoungcy/divinefavor/internal/server/handler"
	"github.com/alanyoungcy/divinefavor/internal/service"
	"github.com/alanyoungcy/divinefavor/internal/store/memory"
	"github.com/alanyoungcy/divinefavor/internal/store/postgres"
	"github.com/alanyoungcy/divinefavor/internal/store/sqlite"
	"github.com/alanyoungcy/divinefavor/internal/world"
)

// Dependencies bundles everything the modes need. It is constructed by Wire
// and torn down by the returned cleanup function.
type Dependencies struct {
	Stores domain.Stores
	// Bus is Redis when enabled, otherwise in-process.
	Bus domain.SignalBus
	// RateLimiter and TickCache are nil without Redis.
	RateLimiter domain.RateLimiter
	TickCache   *redis.TickCache
	// Archiver is nil without S3.
	Archiver domain.Archiver

	State      *world.State
	Clock      *world.Clock
	Engine     *pricing.Engine
	Ledger     *service.FavorLedger
	Journal    *service.Journal
	Market     *service.BettingMarket
	Influence  *service.InfluenceService
	Resolution *service.ResolutionEngine
	Scheduler  *service.TickScheduler

	// Health holds one check per external backend.
	Health map[string]handler.HealthCheck
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	fail := func(err error) (*Dependencies, func(), error) {
		cleanup()
		return nil, nil, err
	}

	deps := &Dependencies{Health: make(map[string]handler.HealthCheck)}

	// --- Storage ---
	switch strings.ToLower(cfg.Storage.Backend) {
	case "memory":
		deps.Stores = memory.New()
	case "sqlite":
		if dir := filepath.Dir(cfg.SQLite.Path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fail(fmt.Errorf("wire: sqlite dir: %w", err))
			}
		}
		db, err := sqlite.Open(cfg.SQLite.Path)
		if err != nil {
			return fail(fmt.Errorf("wire: %w", err))
		}
		closers = append(closers, func() { _ = db.Close() })
		deps.Stores = db.Stores()
		deps.Health["sqlite"] = db.Ping
	case "postgres":
		pg, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			return fail(fmt.Errorf("wire: postgres: %w", err))
		}
		closers = append(closers, pg.Close)
		if cfg.Postgres.RunMigrations {
			if err := pg.RunMigrations(ctx); err != nil {
				return fail(fmt.Errorf("wire: postgres migrations: %w", err))
			}
		}
		deps.Stores = pg.Stores()
		deps.Health["postgres"] = pg.Health
	default:
		return fail(fmt.Errorf("wire: unknown storage backend %q", cfg.Storage.Backend))
	}

	// --- Redis (optional) ---
	var locker service.PlayerLocker = service.NewLocalLocker(cfg.Market.LockWait.Duration)
	deps.Bus = memory.NewSignalBus()
	if cfg.Redis.Enabled {
		rc, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			return fail(fmt.Errorf("wire: redis: %w", err))
		}
		closers = append(closers, func() { _ = rc.Close() })

		deps.Bus = redis.NewSignalBus(rc)
		deps.RateLimiter = redis.NewRateLimiter(rc)
		deps.TickCache = redis.NewTickCache(rc)
		deps.Health["redis"] = rc.Ping
		if cfg.Market.DistributedLock {
			locker = service.NewDistributedLocker(redis.NewLockManager(rc),
				cfg.Market.LockTTL.Duration, cfg.Market.LockWait.Duration)
		}
	}

	// --- S3 world archives (optional) ---
	if cfg.S3.Enabled {
		sc, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			return fail(fmt.Errorf("wire: s3: %w", err))
		}
		closers = append(closers, func() { _ = sc.Close() })
		deps.Archiver = s3blob.NewArchiver(s3blob.NewWriter(sc), s3blob.NewReader(sc), cfg.S3.Prefix, logger)
		deps.Health["s3"] = sc.Health
	}

	// --- World ---
	state, clock, err := service.BootstrapWorld(ctx, deps.Stores, deps.Archiver, service.BootstrapConfig{
		Genesis: world.GenesisConfig{
			Seed:                 cfg.World.Seed,
			Regions:              cfg.World.Regions,
			SettlementsPerRegion: cfg.World.SettlementsPerRegion,
			Heroes:               cfg.World.Heroes,
			StartYear:            cfg.World.StartYear,
		},
		Restore: cfg.World.RestoreFromArchive,
	}, logger)
	if err != nil {
		return fail(fmt.Errorf("wire: %w", err))
	}
	deps.State, deps.Clock = state, clock

	// --- Pricing ---
	tables, err := loadPricing(ctx, cfg.Pricing, deps.Stores.Pricing, logger)
	if err != nil {
		return fail(fmt.Errorf("wire: %w", err))
	}
	reg, err := pricing.NewRegistry(tables)
	if err != nil {
		return fail(fmt.Errorf("wire: pricing: %w", err))
	}
	deps.Engine = pricing.NewEngine(reg)

	// --- Services ---
	deps.Ledger = service.NewFavorLedger(deps.Stores.Favor, locker, logger)
	if _, err := deps.Ledger.Open(ctx, cfg.Market.PlayerID, cfg.Market.StartingFavor); err != nil {
		return fail(fmt.Errorf("wire: open favor account: %w", err))
	}
	deps.Journal = service.NewJournal(deps.Stores.Events, deps.Bus, logger)
	deps.Resolution = service.NewResolutionEngine(deps.Stores.Bets, state, reg, deps.Ledger, deps.Journal, deps.Bus, logger)
	deps.Market = service.NewBettingMarket(state, clock, deps.Engine, deps.Ledger, deps.Stores.Bets, deps.Bus, cfg.Market.PlayerID, logger)
	deps.Influence = service.NewInfluenceService(state, deps.Stores.World, clock, deps.Ledger, deps.Journal,
		service.InfluenceCosts{
			Bless:       cfg.Influence.BlessCost,
			Corrupt:     cfg.Influence.CorruptCost,
			Ascend:      cfg.Influence.AscendCost,
			RaiseUndead: cfg.Influence.RaiseUndeadCost,
			Reveal:      cfg.Influence.RevealCost,
		}, cfg.Market.PlayerID, logger)

	deps.Scheduler = service.NewTickScheduler(state, clock, evolution.Default(evolution.DefaultRules()),
		deps.Stores.World, deps.Journal, deps.Resolution, cfg.World.TickInterval.Duration, logger,
		tickHooks(cfg, deps, logger)...)

	return deps, cleanup, nil
}

// tickHooks returns the hooks enabled by cfg, in the order they run.
func tickHooks(cfg *config.Config, deps *Dependencies, logger *slog.Logger) []service.TickHook {
	var hooks []service.TickHook
	if deps.TickCache != nil {
		hooks = append(hooks, deps.TickCache)
	}
	if deps.Archiver != nil {
		hooks = append(hooks, service.NewArchiveHook(deps.Archiver, deps.State, deps.Journal, cfg.S3.ArchiveEvery, logger))
	}

	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(cfg.Notify.TelegramToken, cfg.Notify.TelegramChatID))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	if len(senders) > 0 {
		hooks = append(hooks, notify.NewNotifier(senders, cfg.Notify.Events, logger))
	}
	return hooks
}

// loadPricing picks the odds tables: inline config first, then the store,
// then the built-in defaults. With SeedStore set, tables not read from the
// store are written back to it.
func loadPricing(ctx context.Context, cfg config.PricingConfig, store domain.PricingStore, logger *slog.Logger) (domain.PricingTables, error) {
	stored, err := store.LoadTables(ctx)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrNotFound):
		stored = domain.PricingTables{}
	default:
		return domain.PricingTables{}, fmt.Errorf("load pricing tables: %w", err)
	}

	tables, source := stored, "store"
	switch {
	case !cfg.PricingTables.Empty():
		tables, source = cfg.PricingTables, "config"
	case stored.Empty():
		tables, source = pricing.DefaultTables(), "defaults"
	}

	if cfg.SeedStore && stored.Empty() {
		if err := store.SaveTables(ctx, tables); err != nil {
			return domain.PricingTables{}, fmt.Errorf("seed pricing tables: %w", err)
		}
	}
	logger.InfoContext(ctx, "pricing tables loaded",
		slog.String("source", source),
		slog.Int("bet_types", len(tables.BetTypes)),
	)
	return tables, nil
}
