package main

// Manage database migrations:
//   go run ./cmd/migrate            # apply pending migrations
//   go run ./cmd/migrate -cmd status

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"resume-match/internal/shared/config"
	"resume-match/internal/shared/storage/db"
	"resume-match/internal/shared/telemetry"
)

func main() {
	command := flag.String("cmd", "up", "goose command: up, down, status or version")
	flag.Parse()

	cfg := config.Load()
	logger, err := telemetry.New(cfg.LogLevel, cfg.Env)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()
	telemetry.SetGlobal(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultMigrateOptions()))
	if err != nil {
		logger.Error("migrate.connect_failed", zap.Error(err))
		os.Exit(1)
	}
	defer sqlDB.Close()

	if err := db.Migrate(ctx, sqlDB, *command); err != nil {
		logger.Error("migrate.failed", zap.String("cmd", *command), zap.Error(err))
		os.Exit(1)
	}
	logger.Info("migrate.done", zap.String("cmd", *command))
}
