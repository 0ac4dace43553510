package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies DIVINE_* environment variable overrides, and
// returns the final Config. A missing file is not an error when path is
// empty. The returned Config has NOT been validated; the caller should
// invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		md, err := toml.DecodeFile(path, &cfg)
		if err != nil {
			return nil, fmt.Errorf("config: decode %s: %w", path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, len(undecoded))
			for i, k := range undecoded {
				keys[i] = k.String()
			}
			return nil, fmt.Errorf("config: unknown keys in %s: %s", path, strings.Join(keys, ", "))
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known DIVINE_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── World ──
	setInt64(&cfg.World.Seed, "DIVINE_WORLD_SEED")
	setInt(&cfg.World.StartYear, "DIVINE_WORLD_START_YEAR")
	setInt(&cfg.World.Regions, "DIVINE_WORLD_REGIONS")
	setInt(&cfg.World.SettlementsPerRegion, "DIVINE_WORLD_SETTLEMENTS_PER_REGION")
	setInt(&cfg.World.Heroes, "DIVINE_WORLD_HEROES")
	setDuration(&cfg.World.TickInterval, "DIVINE_WORLD_TICK_INTERVAL")
	setBool(&cfg.World.RestoreFromArchive, "DIVINE_WORLD_RESTORE_FROM_ARCHIVE")

	// ── Market ──
	setStr(&cfg.Market.PlayerID, "DIVINE_MARKET_PLAYER_ID")
	setInt64(&cfg.Market.StartingFavor, "DIVINE_MARKET_STARTING_FAVOR")
	setDuration(&cfg.Market.LockWait, "DIVINE_MARKET_LOCK_WAIT")
	setDuration(&cfg.Market.LockTTL, "DIVINE_MARKET_LOCK_TTL")
	setBool(&cfg.Market.DistributedLock, "DIVINE_MARKET_DISTRIBUTED_LOCK")

	// ── Influence ──
	setInt64(&cfg.Influence.BlessCost, "DIVINE_INFLUENCE_BLESS_COST")
	setInt64(&cfg.Influence.CorruptCost, "DIVINE_INFLUENCE_CORRUPT_COST")
	setInt64(&cfg.Influence.AscendCost, "DIVINE_INFLUENCE_ASCEND_COST")
	setInt64(&cfg.Influence.RaiseUndeadCost, "DIVINE_INFLUENCE_RAISE_UNDEAD_COST")
	setInt64(&cfg.Influence.RevealCost, "DIVINE_INFLUENCE_REVEAL_COST")

	// ── Storage ──
	setStr(&cfg.Storage.Backend, "DIVINE_STORAGE_BACKEND")
	setStr(&cfg.SQLite.Path, "DIVINE_SQLITE_PATH")

	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "DIVINE_POSTGRES_DSN")
	setStr(&cfg.Postgres.DSN, "DATABASE_URL") // platform alias
	setStr(&cfg.Postgres.Host, "DIVINE_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "DIVINE_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "DIVINE_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "DIVINE_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "DIVINE_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "DIVINE_POSTGRES_SSL_MODE")
	setInt(&cfg.Postgres.PoolMaxConns, "DIVINE_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "DIVINE_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "DIVINE_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "DIVINE_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "DIVINE_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "DIVINE_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "DIVINE_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "DIVINE_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "DIVINE_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "DIVINE_REDIS_TLS_ENABLED")

	// ── S3 ──
	setBool(&cfg.S3.Enabled, "DIVINE_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "DIVINE_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "DIVINE_S3_REGION")
	setStr(&cfg.S3.Bucket, "DIVINE_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "DIVINE_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "DIVINE_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "DIVINE_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "DIVINE_S3_FORCE_PATH_STYLE")
	setStr(&cfg.S3.Prefix, "DIVINE_S3_PREFIX")
	setInt(&cfg.S3.ArchiveEvery, "DIVINE_S3_ARCHIVE_EVERY")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "DIVINE_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "DIVINE_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "DIVINE_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "DIVINE_SERVER_API_KEY")
	setInt(&cfg.Server.RateLimit, "DIVINE_SERVER_RATE_LIMIT")
	setDuration(&cfg.Server.RateWindow, "DIVINE_SERVER_RATE_WINDOW")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "DIVINE_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "DIVINE_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "DIVINE_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "DIVINE_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "DIVINE_MODE")
	setStr(&cfg.LogLevel, "DIVINE_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	var cleaned []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			cleaned = append(cleaned, p)
		}
	}
	if len(cleaned) > 0 {
		*dst = cleaned
	}
}
