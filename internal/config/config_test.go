package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	viper.Reset()
	t.Setenv("ADMIN_ID", "100")
	t.Setenv("ADMIN_IDS", "200, 100,abc")
	t.Setenv("STORAGE_BACKEND", "JSON")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, StorageJSON, cfg.Storage.Backend)
	assert.Equal(t, "bot_data.json", cfg.Storage.DataFile)
	assert.Equal(t, []string{"100", "200"}, cfg.Bot.AdminIDs)
	assert.Equal(t, 24*time.Hour, cfg.Cron.ReminderIdle)
	assert.Equal(t, 6*time.Hour, cfg.Cron.PendingAlert)
	assert.True(t, cfg.Bot.IsSuperAdmin("200"))
	assert.False(t, cfg.Bot.IsSuperAdmin("abc"))
}

func TestLoad_WebhookSecurity(t *testing.T) {
	viper.Reset()
	t.Setenv("BOT_WEBHOOK_URL", "https://example.com/bot/webhook")
	t.Setenv("BOT_WEBHOOK_SECRET", " s3cret ")
	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8, ,127.0.0.1")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "s3cret", cfg.Bot.WebhookSecret)
	assert.Equal(t, []string{"10.0.0.0/8", "127.0.0.1"}, cfg.Server.TrustedProxies)
	assert.Equal(t, UpdateModeWebhook, cfg.Bot.ResolvedUpdateMode())
}

func TestResolvedUpdateMode(t *testing.T) {
	tests := []struct {
		mode, url, want string
	}{
		{"auto", "", UpdateModePolling},
		{"auto", "https://example.com/bot/webhook", UpdateModeWebhook},
		{"polling", "https://example.com/bot/webhook", UpdateModePolling},
		{"webhook", "", UpdateModeWebhook},
		{"", "", UpdateModePolling},
	}
	for _, tt := range tests {
		b := BotConfig{UpdateMode: tt.mode, WebhookURL: tt.url}
		assert.Equal(t, tt.want, b.ResolvedUpdateMode(), "mode=%q url=%q", tt.mode, tt.url)
	}
}

func TestDSN(t *testing.T) {
	d := DatabaseConfig{Driver: "mysql", Host: "h", Port: "3306", Name: "n", User: "u", Pass: "p", Charset: "utf8mb4"}
	assert.Equal(t, "u:p@tcp(h:3306)/n?charset=utf8mb4&parseTime=True&loc=Local", d.DSN())

	d.Driver = "postgres"
	d.Port = "5432"
	d.SSLMode = "disable"
	assert.Equal(t, "host=h port=5432 user=u password=p dbname=n sslmode=disable TimeZone=UTC", d.DSN())

	d = DatabaseConfig{Driver: "sqlite", Path: "/tmp/x.db"}
	assert.Equal(t, "/tmp/x.db", d.DSN())
}
