package queue

import (
	"context"
	"time"
)

// Store persists tasks. Lease must be atomic across concurrent callers: a
// task is handed to at most one worker until it is completed, retried or
// failed.
type Store interface {
	Enqueue(ctx context.Context, req Request) (EnqueueResult, error)
	Lease(ctx context.Context) (*Task, error)
	// Complete marks the task done and enqueues next in the same unit of work.
	Complete(ctx context.Context, id int64, next ...Request) error
	Retry(ctx context.Context, id int64, attempts int, delay time.Duration, cause string) error
	Fail(ctx context.Context, id int64, attempts int, cause string) error
	Get(ctx context.Context, id int64) (*Task, error)
	// RecoverStuck returns tasks left running for longer than olderThan to pending.
	RecoverStuck(ctx context.Context, olderThan time.Duration) (int64, error)
}
