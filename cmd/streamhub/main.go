package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/matt-dz/streamhub/internal/api"
	"github.com/matt-dz/streamhub/internal/config"
	"github.com/matt-dz/streamhub/internal/log"
	"github.com/matt-dz/streamhub/internal/setup"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := log.New(slog.LevelInfo)

	conf, err := config.LoadConfig()
	if err != nil {
		logger.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	level, err := log.ParseLevel(string(conf.LogLevel))
	if err != nil {
		logger.Error("failed to parse log level", slog.Any("error", err))
		os.Exit(1)
	}
	logger = log.New(level)

	const setupTime = 30 * time.Second
	setupCtx, cancel := context.WithTimeout(ctx, setupTime)
	defer cancel()

	logger.DebugContext(ctx, "setting up stores", slog.String("session_store", string(conf.SessionStore)))
	stores, err := setup.NewStores(setupCtx, conf)
	if err != nil {
		logger.Error("failed to setup stores", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := stores.Close(); err != nil {
			logger.Error("failed to close stores", slog.Any("error", err))
		}
	}()

	env, err := setup.Env(conf, logger, stores)
	if err != nil {
		logger.Error("failed to setup environment", slog.Any("error", err))
		os.Exit(1)
	}

	if err := api.Start(ctx, env); err != nil {
		env.Logger.Error("API Failed", slog.Any("error", err))
		os.Exit(1) //nolint:gocritic
	}
}
