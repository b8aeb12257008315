package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"thirdcoast.systems/reelrecipes/cmd/server/internal/web"
	"thirdcoast.systems/reelrecipes/internal/application"
	"thirdcoast.systems/reelrecipes/internal/config"
	"thirdcoast.systems/reelrecipes/internal/db"
	"thirdcoast.systems/reelrecipes/internal/pipeline"
	"thirdcoast.systems/reelrecipes/internal/queue"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("Starting reel recipe service")

	conf, err := config.LoadConfig(ctx)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	dbc, err := application.ConnectDatabase(ctx, *conf, conf.MigrateOnStart)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer dbc.Close()

	env, err := application.NewPipelineEnv(*conf, pipeline.NewDBVideoStore(dbc))
	if err != nil {
		slog.Error("failed to configure pipeline", "error", err)
		os.Exit(1)
	}
	application.LogToolVersions(ctx, env)

	store := queue.NewPGStore(dbc)
	wake := make(chan struct{}, 1)
	pool := queue.NewPool(store, pipeline.NewRunner(env), queue.PoolOptions{
		Workers:    conf.Workers,
		Wake:       wake,
		StuckAfter: time.Duration(conf.RecoverStuckAfterMinutes) * time.Minute,
	})

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		queue.ListenAndSignal(ctx, conf.DatabaseDSN, wake)
	}()
	go func() {
		defer wg.Done()
		pool.Run(ctx)
	}()

	e := web.NewWebserver(db.New(dbc), env, store)
	addr := ":" + strconv.Itoa(conf.WebServerPort)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = e.Shutdown(shutdownCtx)
	}()

	slog.Info("Listening", "addr", addr)
	if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server failed", "error", err)
		stop()
	}

	// Workers finish their current task before exiting.
	wg.Wait()
	slog.Info("Reel recipe service stopped")
}
