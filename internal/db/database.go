package db

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// DatabaseConnection is the shared pool plus the transaction and migration
// helpers built on it.
type DatabaseConnection struct {
	*pgxpool.Pool
}

// NewDatabaseConnection wraps a pool that has already been opened.
func NewDatabaseConnection(ctx context.Context, pool *pgxpool.Pool) (*DatabaseConnection, error) {
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &DatabaseConnection{pool}, nil
}

func (db *DatabaseConnection) Close() {
	db.Pool.Close()
}

func (db *DatabaseConnection) Queries(ctx context.Context) *Queries {
	return New(db)
}

// InTx runs fn inside a transaction, committing when fn returns nil.
func (db *DatabaseConnection) InTx(ctx context.Context, fn func(q *Queries) error) error {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			slog.Warn("transaction rollback failed", "error", rbErr)
		}
	}()

	if err := fn(New(tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

//go:embed sql/migrations/*.sql
var embedMigrations embed.FS

// Migrate applies the embedded goose migrations. GOOSE_UP_TO and
// GOOSE_DOWN_TO pin a target version; down wins when both are set.
func (db *DatabaseConnection) Migrate(ctx context.Context) error {
	migrations, err := fs.Sub(embedMigrations, "sql/migrations")
	if err != nil {
		return err
	}

	sqlDB := stdlib.OpenDBFromPool(db.Pool)
	defer sqlDB.Close()

	provider, err := goose.NewProvider(goose.DialectPostgres, sqlDB, migrations)
	if err != nil {
		return fmt.Errorf("goose provider: %w", err)
	}

	current, err := provider.GetDBVersion(ctx)
	if err != nil {
		return err
	}
	for _, src := range provider.ListSources() {
		slog.Info("embedded migration", "path", src.Path, "version", src.Version, "applied", src.Version <= current)
	}

	if v, ok, err := versionFromEnv("GOOSE_DOWN_TO"); err != nil {
		return err
	} else if ok {
		_, err := provider.DownTo(ctx, v)
		return err
	}

	v, ok, err := versionFromEnv("GOOSE_UP_TO")
	if err != nil {
		return err
	}
	if ok {
		_, err = provider.UpTo(ctx, v)
	} else {
		_, err = provider.Up(ctx)
	}
	return err
}

func versionFromEnv(key string) (int64, bool, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return 0, false, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("parse %s: %w", key, err)
	}
	return v, true, nil
}
