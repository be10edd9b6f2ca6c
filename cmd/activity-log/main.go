// Package main runs the consumer that appends building events to the
// activity log file.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/iliyamo/building-management/internal/app"
	"github.com/iliyamo/building-management/internal/logging"
)

func main() {
	_ = godotenv.Load()

	cfg, err := app.LoadActivityConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat, cfg.ServiceName)
	if err != nil {
		log.Fatalf("build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.RunActivityLog(ctx, cfg, logger); err != nil {
		logger.Fatal("activity consumer failed", zap.Error(err))
	}
}
