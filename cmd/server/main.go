package main

// Command server runs the storefront and back-office API.

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/onceloved/storefront/app"
	"github.com/onceloved/storefront/server"
)

const shutdownTimeout = 30 * time.Second

func main() {
	fallbackLogger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	application, err := app.New()
	if err != nil {
		fallbackLogger.Error("failed to initialize app", "error", err)
		os.Exit(1)
	}

	if err := run(application); err != nil {
		application.Logger.Error("server stopped with error", "error", err)
		application.Close()
		os.Exit(1)
	}
	application.Close()
}

// run serves until SIGINT/SIGTERM, then drains in-flight requests.
func run(application *app.App) error {
	srv, err := server.New(application.Config, application.Logger, application.Handlers)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- srv.Run()
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Close(shutdownCtx)
}
