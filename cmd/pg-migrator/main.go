package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"thirdcoast.systems/reelrecipes/internal/application"
	"thirdcoast.systems/reelrecipes/internal/config"
)

func main() {
	slog.Info("Starting database migrator")

	startupCtx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	conf, err := config.LoadConfig(startupCtx)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// GOOSE_UP_TO / GOOSE_DOWN_TO select the target version.
	dbc, err := application.ConnectDatabase(startupCtx, *conf, true)
	if err != nil {
		slog.Error("failed to run PostgreSQL migrations", "error", err)
		os.Exit(1)
	}
	dbc.Close()

	slog.Info("Database migrations completed successfully")
}
