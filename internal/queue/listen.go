package queue

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"thirdcoast.systems/reelrecipes/internal/db"
)

// ListenAndSignal holds a dedicated connection LISTENing on the tasks
// channel and nudges signalCh on every notification. It reconnects until ctx
// is cancelled.
func ListenAndSignal(ctx context.Context, dsn string, signalCh chan<- struct{}) {
	const channel = "tasks"
	for {
		if ctx.Err() != nil {
			return
		}

		// Parse using pgxpool so pool_* DSN params are consumed client-side
		// (otherwise they get forwarded to Postgres as startup params and cause FATAL).
		poolConf, err := pgxpool.ParseConfig(dsn)
		if err != nil {
			slog.Error("listen parse config failed", "channel", channel, "error", err)
			sleep(ctx, 2*time.Second)
			continue
		}

		conn, err := pgx.ConnectConfig(ctx, poolConf.ConnConfig)
		if err != nil {
			slog.Error("listen connect failed", "channel", channel, "error", err)
			sleep(ctx, 2*time.Second)
			continue
		}

		if err := db.New(conn).ListenTasks(ctx); err != nil {
			slog.Error("LISTEN failed", "channel", channel, "error", err)
			_ = conn.Close(context.Background())
			sleep(ctx, 2*time.Second)
			continue
		}

		for {
			if ctx.Err() != nil {
				_ = conn.Close(context.Background())
				return
			}

			if _, err := conn.WaitForNotification(ctx); err != nil {
				if ctx.Err() == nil {
					slog.Error("wait for notification failed", "channel", channel, "error", err)
				}
				_ = conn.Close(context.Background())
				break
			}

			select {
			case signalCh <- struct{}{}:
			default:
			}
		}
	}
}
