// Package config defines the top-level configuration for the divinefavor
// simulation and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/alanyoungcy/divinefavor/internal/domain"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by DIVINE_* environment variables.
type Config struct {
	World     WorldConfig     `toml:"world"`
	Market    MarketConfig    `toml:"market"`
	Influence InfluenceConfig `toml:"influence"`
	Pricing   PricingConfig   `toml:"pricing"`
	Storage   StorageConfig   `toml:"storage"`
	Postgres  PostgresConfig  `toml:"postgres"`
	SQLite    SQLiteConfig    `toml:"sqlite"`
	Redis     RedisConfig     `toml:"redis"`
	S3        S3Config        `toml:"s3"`
	Server    ServerConfig    `toml:"server"`
	Notify    NotifyConfig    `toml:"notify"`
	Mode      string          `toml:"mode"`
	LogLevel  string          `toml:"log_level"`
}

// WorldConfig controls genesis and the tick loop.
type WorldConfig struct {
	Seed                 int64    `toml:"seed"`
	StartYear            int      `toml:"start_year"`
	Regions              int      `toml:"regions"`
	SettlementsPerRegion int      `toml:"settlements_per_region"`
	Heroes               int      `toml:"heroes"`
	TickInterval         duration `toml:"tick_interval"`
	// RestoreFromArchive loads the newest S3 archive when storage is empty.
	RestoreFromArchive bool `toml:"restore_from_archive"`
}

// MarketConfig holds the favor economy parameters.
type MarketConfig struct {
	PlayerID      string   `toml:"player_id"`
	StartingFavor int64    `toml:"starting_favor"`
	LockWait      duration `toml:"lock_wait"`
	LockTTL       duration `toml:"lock_ttl"`
	// DistributedLock serialises ledger updates through Redis so several
	// processes can share one database.
	DistributedLock bool `toml:"distributed_lock"`
}

// InfluenceConfig is the favor price of each divine action.
type InfluenceConfig struct {
	BlessCost       int64 `toml:"bless_cost"`
	CorruptCost     int64 `toml:"corrupt_cost"`
	AscendCost      int64 `toml:"ascend_cost"`
	RaiseUndeadCost int64 `toml:"raise_undead_cost"`
	RevealCost      int64 `toml:"reveal_cost"`
}

// PricingConfig optionally supplies the odds tables inline. When empty the
// tables stored in the database are used, falling back to built-in
// defaults.
type PricingConfig struct {
	domain.PricingTables
	// SeedStore writes the effective tables to the store when it has none.
	SeedStore bool `toml:"seed_store"`
}

// StorageConfig selects the persistence backend.
type StorageConfig struct {
	Backend string `toml:"backend"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// SQLiteConfig holds the local database file location.
type SQLiteConfig struct {
	Path string `toml:"path"`
}

// RedisConfig holds Redis connection parameters. Redis is optional; it is
// used only when Enabled is set.
type RedisConfig struct {
	Enabled    bool   `toml:"enabled"`
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3Config holds S3-compatible object storage parameters for world
// archives.
type S3Config struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
	Prefix         string `toml:"prefix"`
	// ArchiveEvery is the number of simulated years between archives.
	ArchiveEvery int `toml:"archive_every"`
}

// duration is a wrapper around time.Duration that supports TOML string decoding
// (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	// APIKey guards the admin and influence endpoints. Empty disables auth.
	APIKey string `toml:"api_key"`
	// RateLimit is requests per RateWindow per client; it needs Redis.
	RateLimit  int      `toml:"rate_limit"`
	RateWindow duration `toml:"rate_window"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		World: WorldConfig{
			Seed:                 42,
			StartYear:            1,
			Regions:              6,
			SettlementsPerRegion: 3,
			Heroes:               8,
			TickInterval:         duration{10 * time.Second},
		},
		Market: MarketConfig{
			PlayerID:      domain.DefaultPlayerID,
			StartingFavor: 1000,
			LockWait:      duration{250 * time.Millisecond},
			LockTTL:       duration{5 * time.Second},
		},
		Influence: InfluenceConfig{
			BlessCost:       50,
			CorruptCost:     40,
			AscendCost:      200,
			RaiseUndeadCost: 150,
			RevealCost:      30,
		},
		Pricing: PricingConfig{SeedStore: true},
		Storage: StorageConfig{Backend: "sqlite"},
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "divinefavor",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		SQLite: SQLiteConfig{Path: "data/divinefavor.db"},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			PoolSize:   20,
			MaxRetries: 3,
		},
		S3: S3Config{
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "divinefavor-archive",
			ForcePathStyle: true,
			Prefix:         "archives/world",
			ArchiveEvery:   25,
		},
		Server: ServerConfig{
			Enabled:     true,
			Port:        8000,
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
			RateLimit:   120,
			RateWindow:  duration{time.Minute},
		},
		Notify: NotifyConfig{
			Events: []string{"bet_won", "bet_lost", "bet_expired"},
		},
		Mode:     "full",
		LogLevel: "info",
	}
}

var (
	validModes     = map[string]bool{"sim": true, "server": true, "full": true}
	validBackends  = map[string]bool{"memory": true, "sqlite": true, "postgres": true}
	validLogLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	validEvents    = map[string]bool{"bet_won": true, "bet_lost": true, "bet_expired": true, "world_events": true}
)

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string
	add := func(format string, args ...any) { errs = append(errs, fmt.Sprintf(format, args...)) }

	if !validModes[strings.ToLower(c.Mode)] {
		add("unknown mode %q (valid: sim, server, full)", c.Mode)
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		add("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel)
	}

	// World
	if c.World.Regions < 1 {
		add("world: regions must be >= 1")
	}
	if c.World.SettlementsPerRegion < 0 {
		add("world: settlements_per_region must be >= 0")
	}
	if c.World.Heroes < 0 {
		add("world: heroes must be >= 0")
	}
	if c.World.TickInterval.Duration <= 0 {
		add("world: tick_interval must be > 0")
	}

	// Market
	if strings.TrimSpace(c.Market.PlayerID) == "" {
		add("market: player_id must not be empty")
	}
	if c.Market.StartingFavor < 0 {
		add("market: starting_favor must be >= 0")
	}
	if c.Market.LockWait.Duration <= 0 {
		add("market: lock_wait must be > 0")
	}
	if c.Market.DistributedLock && !c.Redis.Enabled {
		add("market: distributed_lock requires redis.enabled")
	}

	// Influence
	for name, v := range map[string]int64{
		"bless_cost":        c.Influence.BlessCost,
		"corrupt_cost":      c.Influence.CorruptCost,
		"ascend_cost":       c.Influence.AscendCost,
		"raise_undead_cost": c.Influence.RaiseUndeadCost,
		"reveal_cost":       c.Influence.RevealCost,
	} {
		if v < 0 {
			add("influence: %s must be >= 0", name)
		}
	}

	// Storage
	backend := strings.ToLower(c.Storage.Backend)
	if !validBackends[backend] {
		add("storage: unknown backend %q (valid: memory, sqlite, postgres)", c.Storage.Backend)
	}
	switch backend {
	case "sqlite":
		if strings.TrimSpace(c.SQLite.Path) == "" {
			add("sqlite: path must not be empty")
		}
	case "postgres":
		if strings.TrimSpace(c.Postgres.DSN) == "" {
			if c.Postgres.Host == "" {
				add("postgres: host must not be empty (or set postgres.dsn)")
			}
			if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
				add("postgres: port must be 1-65535, got %d", c.Postgres.Port)
			}
			if c.Postgres.Database == "" {
				add("postgres: database must not be empty")
			}
		}
		if c.Postgres.PoolMaxConns < 1 {
			add("postgres: pool_max_conns must be >= 1")
		}
		if c.Postgres.PoolMinConns < 0 || c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
			add("postgres: pool_min_conns must be between 0 and pool_max_conns")
		}
	}

	// Redis
	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			add("redis: addr must not be empty")
		}
		if c.Redis.PoolSize < 1 {
			add("redis: pool_size must be >= 1")
		}
	}

	// S3
	if c.S3.Enabled {
		if c.S3.Endpoint == "" {
			add("s3: endpoint must not be empty")
		}
		if c.S3.Bucket == "" {
			add("s3: bucket must not be empty")
		}
		if c.S3.ArchiveEvery < 1 {
			add("s3: archive_every must be >= 1")
		}
	}
	if c.World.RestoreFromArchive && !c.S3.Enabled {
		add("world: restore_from_archive requires s3.enabled")
	}

	// Server
	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			add("server: port must be 1-65535, got %d", c.Server.Port)
		}
		if c.Server.RateLimit < 0 {
			add("server: rate_limit must be >= 0")
		}
		if c.Server.RateLimit > 0 && c.Server.RateWindow.Duration <= 0 {
			add("server: rate_window must be > 0 when rate_limit is set")
		}
	}

	// Notify
	for _, ev := range c.Notify.Events {
		if !validEvents[ev] {
			add("notify: unknown event %q", ev)
		}
	}
	if (c.Notify.TelegramToken == "") != (c.Notify.TelegramChatID == "") {
		add("notify: telegram_token and telegram_chat_id must be set together")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
