package main

// Command seed imports a YAML product catalog:
//
//	seed -file testdata/catalog.yaml

import (
	"context"
	"errors"
	"flag"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/onceloved/storefront/internal/catalog"
	"github.com/onceloved/storefront/internal/db"
	"github.com/onceloved/storefront/internal/logging"
	"github.com/onceloved/storefront/internal/services"
)

type seedConfig struct {
	DatabaseURL string     `env:"DATABASE_URL,required"`
	LogLevel    slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`
	LogFormat   string     `env:"LOG_FORMAT" envDefault:"text"`
}

func main() {
	file := flag.String("file", "testdata/catalog.yaml", "path to the YAML catalog")
	migrate := flag.Bool("migrate", true, "apply migrations before importing")
	flag.Parse()

	fallbackLogger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fallbackLogger.Error("failed to load .env", "error", err)
		os.Exit(1)
	}
	var cfg seedConfig
	if err := env.Parse(&cfg); err != nil {
		fallbackLogger.Error("failed to parse config", "error", err)
		os.Exit(1)
	}
	logger := logging.New(os.Stdout, cfg.LogFormat, cfg.LogLevel)

	if err := run(logger, cfg, *file, *migrate); err != nil {
		logger.Error("seed failed", "file", *file, "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger, cfg seedConfig, file string, migrate bool) error {
	content, err := os.ReadFile(file)
	if err != nil {
		return err
	}
	seed, err := catalog.NewParser().Parse(content)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	if migrate {
		if err := db.Migrate(ctx, pool, logger.With("component", "migrate")); err != nil {
			return err
		}
	}

	products := services.NewProductService(db.NewProductStore(pool), logger.With("component", "product_service"))
	created, err := products.Import(ctx, seed)
	if err != nil {
		return err
	}
	logger.Info("catalog imported", "file", file, "products", created)
	return nil
}
