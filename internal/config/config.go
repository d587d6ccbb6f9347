package config

import (
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"coachbot/internal/pkg/utils"
)

// Storage backends.
const (
	StorageJSON     = "json"
	StorageDatabase = "database"
)

// Bot update modes.
const (
	UpdateModeAuto    = "auto"
	UpdateModePolling = "polling"
	UpdateModeWebhook = "webhook"
)

type Config struct {
	Server   ServerConfig
	Storage  StorageConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Bot      BotConfig
	API      APIConfig
	Payment  PaymentConfig
	Contact  ContactConfig
	Cron     CronConfig
	Debug    bool
}

type ServerConfig struct {
	Port           int
	Env            string   // "development", "production"
	TrustedProxies []string // CIDRs allowed to set X-Forwarded-For
}

type StorageConfig struct {
	Backend  string // "json", "database"
	DataFile string
}

type DatabaseConfig struct {
	Driver  string // "mysql", "postgres", "sqlite"
	Host    string
	Port    string
	Name    string
	User    string
	Pass    string
	Charset string
	SSLMode string
	Path    string
}

type RedisConfig struct {
	Addr string
	Pass string
	DB   int
}

type BotConfig struct {
	Token         string
	WebhookURL    string
	WebhookSecret string
	UpdateMode    string
	AdminIDs      []string
}

type APIConfig struct {
	Key string
}

type PaymentConfig struct {
	CardNumber string
	CardHolder string
}

type ContactConfig struct {
	Support string
	Coach   string
}

type CronConfig struct {
	ReminderIdle time.Duration
	PendingAlert time.Duration
}

// Load reads configuration from .env file and environment variables.
func Load() (*Config, error) {
	// Load .env file (ignore error if missing)
	_ = godotenv.Load()

	viper.AutomaticEnv()

	// Set defaults
	viper.SetDefault("APP_PORT", 8080)
	viper.SetDefault("APP_ENV", "production")
	viper.SetDefault("DEBUG", false)
	viper.SetDefault("BOT_UPDATE_MODE", UpdateModeAuto)
	viper.SetDefault("STORAGE_BACKEND", StorageJSON)
	viper.SetDefault("DATA_FILE", "bot_data.json")
	viper.SetDefault("DB_DRIVER", "mysql")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "3306")
	viper.SetDefault("DB_CHARSET", "utf8mb4")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("DB_PATH", "coachbot.db")
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("SUPPORT_CONTACT", "@support")
	viper.SetDefault("COACH_CONTACT", "@coach")
	viper.SetDefault("REMINDER_IDLE_HOURS", 24)
	viper.SetDefault("PENDING_ALERT_HOURS", 6)

	cfg := &Config{
		Server: ServerConfig{
			Port:           viper.GetInt("APP_PORT"),
			Env:            viper.GetString("APP_ENV"),
			TrustedProxies: splitList(viper.GetString("TRUSTED_PROXIES")),
		},
		Storage: StorageConfig{
			Backend:  strings.ToLower(viper.GetString("STORAGE_BACKEND")),
			DataFile: viper.GetString("DATA_FILE"),
		},
		Database: DatabaseConfig{
			Driver:  strings.ToLower(viper.GetString("DB_DRIVER")),
			Host:    viper.GetString("DB_HOST"),
			Port:    viper.GetString("DB_PORT"),
			Name:    viper.GetString("DB_NAME"),
			User:    viper.GetString("DB_USER"),
			Pass:    viper.GetString("DB_PASS"),
			Charset: viper.GetString("DB_CHARSET"),
			SSLMode: viper.GetString("DB_SSLMODE"),
			Path:    viper.GetString("DB_PATH"),
		},
		Redis: RedisConfig{
			Addr: viper.GetString("REDIS_ADDR"),
			Pass: viper.GetString("REDIS_PASS"),
			DB:   viper.GetInt("REDIS_DB"),
		},
		Bot: BotConfig{
			Token:         viper.GetString("BOT_TOKEN"),
			WebhookURL:    viper.GetString("BOT_WEBHOOK_URL"),
			WebhookSecret: strings.TrimSpace(viper.GetString("BOT_WEBHOOK_SECRET")),
			UpdateMode:    strings.ToLower(viper.GetString("BOT_UPDATE_MODE")),
			AdminIDs:      utils.ParseIDList(viper.GetString("ADMIN_ID") + "," + viper.GetString("ADMIN_IDS")),
		},
		API: APIConfig{
			Key: viper.GetString("API_KEY"),
		},
		Payment: PaymentConfig{
			CardNumber: viper.GetString("PAYMENT_CARD_NUMBER"),
			CardHolder: viper.GetString("PAYMENT_CARD_HOLDER"),
		},
		Contact: ContactConfig{
			Support: viper.GetString("SUPPORT_CONTACT"),
			Coach:   viper.GetString("COACH_CONTACT"),
		},
		Cron: CronConfig{
			ReminderIdle: time.Duration(viper.GetInt("REMINDER_IDLE_HOURS")) * time.Hour,
			PendingAlert: time.Duration(viper.GetInt("PENDING_ALERT_HOURS")) * time.Hour,
		},
		Debug: viper.GetBool("DEBUG"),
	}

	if cfg.Storage.Backend == StorageDatabase && cfg.Database.Driver != "sqlite" && cfg.Database.Name == "" {
		log.Println("WARNING: DB_NAME is not set")
	}
	if cfg.Bot.Token == "" {
		log.Println("WARNING: BOT_TOKEN is not set")
	}
	if len(cfg.Bot.AdminIDs) == 0 {
		log.Println("WARNING: ADMIN_ID is not set")
	}
	if cfg.Bot.ResolvedUpdateMode() == UpdateModeWebhook && cfg.Bot.WebhookSecret == "" {
		log.Println("WARNING: BOT_WEBHOOK_SECRET is not set; webhook calls are only checked by source IP")
	}

	return cfg, nil
}

// ResolvedUpdateMode returns polling or webhook; auto picks webhook when a
// webhook URL is configured.
func (b *BotConfig) ResolvedUpdateMode() string {
	switch b.UpdateMode {
	case UpdateModePolling, UpdateModeWebhook:
		return b.UpdateMode
	}
	if strings.TrimSpace(b.WebhookURL) != "" {
		return UpdateModeWebhook
	}
	return UpdateModePolling
}

// IsSuperAdmin reports whether id is listed in ADMIN_ID/ADMIN_IDS.
func (b *BotConfig) IsSuperAdmin(id string) bool {
	for _, a := range b.AdminIDs {
		if a == id {
			return true
		}
	}
	return false
}

// DSN returns the connection string for the configured driver.
func (d *DatabaseConfig) DSN() string {
	switch d.Driver {
	case "postgres":
		return "host=" + d.Host + " port=" + d.Port + " user=" + d.User + " password=" + d.Pass +
			" dbname=" + d.Name + " sslmode=" + d.SSLMode + " TimeZone=UTC"
	case "sqlite":
		return d.Path
	default:
		return d.User + ":" + d.Pass + "@tcp(" + d.Host + ":" + d.Port + ")/" + d.Name + "?charset=" + d.Charset + "&parseTime=True&loc=Local"
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
