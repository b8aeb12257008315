package application

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"thirdcoast.systems/reelrecipes/internal/config"
	"thirdcoast.systems/reelrecipes/internal/db"
)

var (
	dbOpenBackoffBase  = 1 * time.Second
	dbOpenBackoffScale = 1.618
)

func dbOpenBackoff(attempt int) time.Duration {
	return time.Duration(float64(dbOpenBackoffBase) * math.Pow(dbOpenBackoffScale, float64(attempt)))
}

// OpenDBPoolWithRetry initializes a new PostgreSQL connection pool with retry logic.
func OpenDBPoolWithRetry(ctx context.Context, conf config.Config) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(conf.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DSN: %w", err)
	}
	retries := max(conf.DatabaseRetries, 1)

	var pool *pgxpool.Pool
	var lastErr error
	slog.Info("connecting to database", "host", cfg.ConnConfig.Host, "database", cfg.ConnConfig.Database)
	for i := range retries {
		if pool, err = pgxpool.NewWithConfig(ctx, cfg); err == nil {
			break
		}
		lastErr = err
		if err := wait(ctx, i, "open", err); err != nil {
			return nil, err
		}
	}
	if pool == nil {
		return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", retries, lastErr)
	}

	for i := range retries {
		pingCtx, cancel := context.WithTimeout(ctx, 1*time.Second)
		err = pool.Ping(pingCtx)
		cancel()
		if err == nil {
			slog.Info("database reachable", "host", cfg.ConnConfig.Host)
			return pool, nil
		}
		lastErr = err
		if err := wait(ctx, i, "ping", err); err != nil {
			pool.Close()
			return nil, err
		}
	}
	pool.Close()
	return nil, fmt.Errorf("failed to ping database after %d attempts: %w", retries, lastErr)
}

func wait(ctx context.Context, attempt int, op string, cause error) error {
	backoff := dbOpenBackoff(attempt)
	slog.Warn("database not ready", "op", op, "attempt", attempt+1, "retry_in", backoff, "error", cause)
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(backoff):
		return nil
	}
}

// ConnectDatabase opens the pool and wraps it, running migrations first when
// migrate is set.
func ConnectDatabase(ctx context.Context, conf config.Config, migrate bool) (*db.DatabaseConnection, error) {
	pool, err := OpenDBPoolWithRetry(ctx, conf)
	if err != nil {
		return nil, err
	}
	dbc, err := db.NewDatabaseConnection(ctx, pool)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create database connection: %w", err)
	}
	if migrate {
		if err := dbc.Migrate(ctx); err != nil {
			dbc.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		slog.Info("database migrations applied")
	}
	return dbc, nil
}
