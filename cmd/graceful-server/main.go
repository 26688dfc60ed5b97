package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/skillcoder/graceful-coordinator/internal/app"
	"github.com/skillcoder/graceful-coordinator/internal/config"
	"github.com/skillcoder/graceful-coordinator/internal/infra/appstate"
	"github.com/skillcoder/graceful-coordinator/internal/infra/logging"
	"github.com/skillcoder/graceful-coordinator/internal/infra/shutdown"
)

func main() {
	appStart := time.Now()
	// Start listening for signals immediately as first thing, before any other initialization
	signals := shutdown.Notify()
	ctx := context.Background()

	// On success the shutdown sequence exits the process itself
	err := run(ctx, signals, appStart)
	if err != nil {
		slog.ErrorContext(ctx, "failed to run", "reason", err)
		// Give the logger some time to flush
		time.Sleep(1 * time.Second)
		os.Exit(1)
	}
}

func run(ctx context.Context, signals chan os.Signal, appStart time.Time) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := logging.New(cfg.LogFormat, cfg.LogLevel)
	appState := appstate.New(logger, appStart)

	application, err := app.New(logger, cfg, appState, signals, shutdown.Options{})
	if err != nil {
		return fmt.Errorf("new application: %w", err)
	}

	return application.Run(ctx)
}
