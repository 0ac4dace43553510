package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsValidate(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, cfg.Validate())
}

func TestValidateCollectsEveryProblem(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "trade"
	cfg.Storage.Backend = "mongo"
	cfg.World.Regions = 0
	cfg.Market.DistributedLock = true
	cfg.Notify.Events = []string{"order_filled"}

	err := cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{
		`unknown mode "trade"`,
		`storage: unknown backend "mongo"`,
		"world: regions must be >= 1",
		"market: distributed_lock requires redis.enabled",
		`notify: unknown event "order_filled"`,
	} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestLoad_FileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
mode = "sim"

[world]
seed = 7
tick_interval = "2s"

[storage]
backend = "memory"

[[pricing.bet_types]]
code = "hero_location_visit"
name = "Hero visits"
target_types = ["hero"]
base_odds = 1.5
min_timeframe = 1
max_timeframe = 4
min_stake = 5
resolve_condition = "hero_visited"
`), 0o600))

	t.Setenv("DIVINE_WORLD_SEED", "99")
	t.Setenv("DIVINE_SERVER_CORS_ORIGINS", " https://a.example , ,https://b.example")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "sim", cfg.Mode)
	assert.Equal(t, int64(99), cfg.World.Seed)
	assert.Equal(t, 2*time.Second, cfg.World.TickInterval.Duration)
	assert.Equal(t, "memory", cfg.Storage.Backend)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORSOrigins)
	require.Len(t, cfg.Pricing.BetTypes, 1)
	assert.Equal(t, "hero_location_visit", cfg.Pricing.BetTypes[0].Code)
	assert.Equal(t, 6, cfg.World.Regions, "unset keys keep their defaults")
	require.NoError(t, cfg.Validate())
}

func TestLoad_RejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[world]\nseeed = 1\n"), 0o600))
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "world.seeed")
}

func TestRedactedConfig(t *testing.T) {
	cfg := Defaults()
	cfg.Postgres.Password = "hunter2"
	cfg.Server.APIKey = "key"
	cfg.Notify.Events = []string{"bet_won"}

	out := RedactedConfig(&cfg)
	assert.Equal(t, "***", out.Postgres.Password)
	assert.Equal(t, "***", out.Server.APIKey)
	assert.Empty(t, out.S3.SecretKey)

	out.Notify.Events[0] = "changed"
	assert.Equal(t, "bet_won", cfg.Notify.Events[0])
	assert.Equal(t, "hunter2", cfg.Postgres.Password)
}
