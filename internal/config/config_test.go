package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("BOT_PLATFORM", "discord")
	t.Setenv("DISCORD_TOKEN", "token")
	t.Setenv("ADMIN_IDS", " 111, 222 ,,")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"111", "222"}, cfg.AdminIDs)
	assert.Equal(t, ".", cfg.BotPrefix)
	assert.Equal(t, BackendFile, cfg.StorageBackend)
	assert.Equal(t, 10*time.Second, cfg.SaveDebounce)
	assert.Equal(t, int64(1000), cfg.EconomyStartingBalance)
	assert.Equal(t, time.Hour, cfg.CooldownWork)
	assert.Equal(t, 2*time.Hour, cfg.CooldownCrime)
	assert.True(t, cfg.IsAdmin("222"))
	assert.False(t, cfg.IsAdmin("333"))
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			BotPlatform:             PlatformTelegram,
			TelegramBotToken:        "t",
			BotPrefix:               ".",
			BotMaxInflight:          1,
			BotUpdateTimeoutSeconds: 1,
			StorageBackend:          BackendFile,
			SnapshotDir:             "data",
			SaveDebounce:            time.Second,
			StreakResetChunk:        10,
			RateLimitRequests:       1,
			RateLimitWindow:         time.Second,
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "unknown platform", mutate: func(c *Config) { c.BotPlatform = "irc" }, wantErr: true},
		{name: "missing telegram token", mutate: func(c *Config) { c.TelegramBotToken = "" }, wantErr: true},
		{name: "unknown backend", mutate: func(c *Config) { c.StorageBackend = "s3" }, wantErr: true},
		{name: "empty snapshot dir", mutate: func(c *Config) { c.SnapshotDir = "" }, wantErr: true},
		{name: "zero debounce", mutate: func(c *Config) { c.SaveDebounce = 0 }, wantErr: true},
		{name: "bad pool", mutate: func(c *Config) {
			c.StorageBackend = BackendPostgres
			c.DBMaxConns, c.DBMinConns = 1, 5
		}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
