package main

// Command migrate applies the embedded database migrations and exits.

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/onceloved/storefront/internal/db"
	"github.com/onceloved/storefront/internal/logging"
)

type migrateConfig struct {
	DatabaseURL string     `env:"DATABASE_URL,required"`
	LogLevel    slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`
	LogFormat   string     `env:"LOG_FORMAT" envDefault:"text"`
}

func main() {
	fallbackLogger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fallbackLogger.Error("failed to load .env", "error", err)
		os.Exit(1)
	}
	var cfg migrateConfig
	if err := env.Parse(&cfg); err != nil {
		fallbackLogger.Error("failed to parse config", "error", err)
		os.Exit(1)
	}
	logger := logging.New(os.Stdout, cfg.LogFormat, cfg.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool, logger.With("component", "migrate")); err != nil {
		logger.Error("migration failed", "error", err)
		pool.Close()
		os.Exit(1)
	}
	logger.Info("migrations applied")
}
