package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"coachbot/internal/bootstrap"
	"coachbot/internal/bot"
	"coachbot/internal/config"
	cronpkg "coachbot/internal/cron"
	"coachbot/internal/enrollment"
	"coachbot/internal/middleware"
	"coachbot/internal/pkg/telegram"
	"coachbot/internal/repository"
	"coachbot/internal/router"
)

func main() {
	// --- Config ---
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// --- Logger ---
	logger, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if hasArg("--bootstrap-db") {
		if err := runDBBootstrap(cfg, logger); err != nil {
			logger.Fatal("Database bootstrap failed", zap.Error(err))
		}
		logger.Info("Database bootstrap completed")
		return
	}

	// --- Storage ---
	store, err := openStore(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to open storage", zap.Error(err))
	}
	defer store.Close()

	svc := enrollment.NewService(store, logger)

	// --- Telegram Bot API (direct HTTP client) ---
	botAPI := telegram.NewBotAPI(cfg.Bot.Token)

	// --- Echo ---
	e := echo.New()
	e.HideBanner = true
	ipExtractor, err := router.IPExtractor(cfg.Server.TrustedProxies)
	if err != nil {
		logger.Fatal("Invalid TRUSTED_PROXIES", zap.Error(err))
	}
	e.IPExtractor = ipExtractor

	// --- Webhook Deduper (Redis with in-memory fallback) ---
	updateDeduper, dedupeErr := middleware.NewUpdateDeduper(
		cfg.Redis.Addr,
		cfg.Redis.Pass,
		cfg.Redis.DB,
		10*time.Minute,
	)
	if dedupeErr != nil {
		logger.Warn("Redis unavailable for webhook dedup, using in-memory fallback", zap.Error(dedupeErr))
	}

	// --- Bot ---
	teleBot, err := bot.New(cfg, svc, store, logger)
	if err != nil {
		logger.Fatal("Failed to create bot", zap.Error(err))
	}

	// --- Routes ---
	router.Setup(e, svc, botAPI, logger, cfg.API.Key, updateDeduper, teleBot.WebhookHandler(), cfg.Bot.WebhookSecret)

	// --- Cron Scheduler ---
	scheduler := cronpkg.New(cfg, svc, store, botAPI, logger)
	if err := scheduler.Start(); err != nil {
		logger.Fatal("Failed to start scheduler", zap.Error(err))
	}

	// --- Start Server ---
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	go func() {
		logger.Info("Starting coach bot server", zap.String("addr", addr))
		if err := e.Start(addr); err != nil {
			logger.Info("Server stopped", zap.Error(err))
		}
	}()

	go teleBot.Start()

	// --- Graceful Shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down...")

	// Stop bot
	teleBot.Stop()

	// Stop cron
	ctx := scheduler.Stop()
	<-ctx.Done()

	// Stop HTTP server
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.Debug || cfg.Server.Env == "development" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func hasArg(name string) bool {
	for _, arg := range os.Args[1:] {
		if arg == name {
			return true
		}
	}
	return false
}

// openStore opens the configured backend. The JSON file store is the
// default; "database" uses gorm with the configured driver.
func openStore(cfg *config.Config, logger *zap.Logger) (repository.Store, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	switch cfg.Storage.Backend {
	case config.StorageDatabase:
		db, err := config.NewDatabase(&cfg.Database, cfg.Debug, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := bootstrap.MigrateAndSeed(db); err != nil {
			return nil, fmt.Errorf("failed to bootstrap database schema: %w", err)
		}
		logger.Info("Using database storage", zap.String("driver", cfg.Database.Driver))
		return repository.NewGormStore(db), nil

	case config.StorageJSON, "":
		store, err := repository.NewJSONFileStore(cfg.Storage.DataFile)
		if err != nil {
			return nil, err
		}
		if err := bootstrap.SeedDefaults(ctx, store); err != nil {
			return nil, fmt.Errorf("failed to seed defaults: %w", err)
		}
		logger.Info("Using JSON file storage", zap.String("path", cfg.Storage.DataFile))
		return store, nil

	default:
		return nil, fmt.Errorf("unknown STORAGE_BACKEND %q", cfg.Storage.Backend)
	}
}

func runDBBootstrap(cfg *config.Config, logger *zap.Logger) error {
	db, err := config.NewDatabase(&cfg.Database, cfg.Debug, logger)
	if err != nil {
		return err
	}
	if err := bootstrap.MigrateAndSeed(db); err != nil {
		return err
	}
	logger.Info("Schema migration and default seed completed")
	return nil
}
