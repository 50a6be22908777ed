package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"

	"github.com/i474232898/weather-panel/internal/app"
	"github.com/i474232898/weather-panel/internal/config"
	"github.com/i474232898/weather-panel/internal/logging"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// The panel owns the terminal, so logs go to a file when one is set.
	var logOut io.Writer = os.Stderr
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to open log file: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		logOut = f
	}

	logger := logging.New(logOut, cfg.LogLevel, cfg.AppEnv, version, "weather-panel", uuid.NewString())
	logger.Info("starting", "display", cfg.Display, "source", cfg.Source)

	a, err := app.New(cfg, logger, logOut)
	if err != nil {
		logger.Error("startup failed", "error", err)
		fmt.Fprintf(os.Stderr, "startup failed: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := a.Run(ctx); err != nil {
		logger.Error("exited with error", "error", err)
		stop()
		os.Exit(1)
	}
}
