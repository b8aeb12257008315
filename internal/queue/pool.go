package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"
)

// Handler runs one leased task and returns the tasks that should follow it.
type Handler interface {
	Handle(ctx context.Context, t *Task) ([]Request, error)
}

type HandlerFunc func(ctx context.Context, t *Task) ([]Request, error)

func (f HandlerFunc) Handle(ctx context.Context, t *Task) ([]Request, error) {
	return f(ctx, t)
}

type PoolOptions struct {
	Workers int
	// Wake nudges idle workers, typically fed by ListenAndSignal.
	Wake <-chan struct{}
	// PollInterval bounds how long an idle worker sleeps without a wake-up.
	PollInterval time.Duration
	// StuckAfter is how long a task may stay running before it is recovered.
	StuckAfter      time.Duration
	RecoverInterval time.Duration
	// TaskTimeout caps one handler run. It is kept below StuckAfter so a
	// task is never recovered while its first run is still going.
	TaskTimeout time.Duration
}

// Pool is a fixed set of workers draining a Store.
type Pool struct {
	store   Store
	handler Handler
	opts    PoolOptions
	wg      sync.WaitGroup
}

func NewPool(store Store, handler Handler, opts PoolOptions) *Pool {
	if opts.Workers <= 0 {
		opts.Workers = 2
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 5 * time.Second
	}
	if opts.StuckAfter <= 0 {
		opts.StuckAfter = 30 * time.Minute
	}
	if opts.RecoverInterval <= 0 {
		opts.RecoverInterval = 2 * time.Minute
	}
	if limit := opts.StuckAfter - opts.StuckAfter/10; opts.TaskTimeout <= 0 || opts.TaskTimeout > limit {
		opts.TaskTimeout = limit
	}
	return &Pool{store: store, handler: handler, opts: opts}
}

// Run starts the workers and blocks until ctx is cancelled and every
// in-flight task has reached a terminal transition.
func (p *Pool) Run(ctx context.Context) {
	p.recoverStuck(ctx)

	slog.Info("task workers started", "workers", p.opts.Workers)
	for i := 0; i < p.opts.Workers; i++ {
		p.wg.Add(1)
		go func(n int) {
			defer p.wg.Done()
			p.worker(ctx, n)
		}(i)
	}

	ticker := time.NewTicker(p.opts.RecoverInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			slog.Info("task workers stopping, waiting for in-flight tasks")
			p.wg.Wait()
			slog.Info("task workers stopped")
			return
		case <-ticker.C:
			p.recoverStuck(ctx)
		}
	}
}

func (p *Pool) recoverStuck(ctx context.Context) {
	n, err := p.store.RecoverStuck(ctx, p.opts.StuckAfter)
	if err != nil {
		slog.Error("failed to recover stuck tasks", "error", err)
		return
	}
	if n > 0 {
		slog.Warn("recovered stuck tasks", "count", n, "stuck_after", p.opts.StuckAfter)
	}
}

func (p *Pool) worker(ctx context.Context, n int) {
	for {
		if ctx.Err() != nil {
			return
		}

		// Drain as many tasks as we can
		for ctx.Err() == nil {
			t, err := p.store.Lease(ctx)
			if err != nil {
				if errors.Is(err, ErrNoTask) {
					break
				}
				if ctx.Err() != nil {
					return
				}
				slog.Error("failed to lease task", "worker", n, "error", err)
				sleep(ctx, 2*time.Second)
				break
			}

			// Shutdown must not abort a started subprocess or HTTP call.
			p.process(context.WithoutCancel(ctx), t)
		}

		select {
		case <-ctx.Done():
			return
		case <-p.opts.Wake:
			// new task notification
		case <-time.After(p.opts.PollInterval):
			// periodic poll
		}
	}
}

// RunOnce leases and processes a single task. It returns ErrNoTask when the
// queue has nothing ready.
func (p *Pool) RunOnce(ctx context.Context) error {
	t, err := p.store.Lease(ctx)
	if err != nil {
		return err
	}
	p.process(ctx, t)
	return nil
}

func (p *Pool) process(ctx context.Context, t *Task) {
	started := time.Now()
	runCtx, cancel := context.WithTimeout(ctx, p.opts.TaskTimeout)
	next, err := p.execute(runCtx, t)
	cancel()
	if err == nil {
		if cerr := p.store.Complete(ctx, t.ID, next...); cerr != nil {
			// The task stays running; stuck recovery will hand it out again.
			slog.Error("failed to complete task", "task_id", t.ID, "kind", t.Kind, "unique_key", t.UniqKey, "error", cerr)
			return
		}
		slog.Info("task done",
			"task_id", t.ID,
			"kind", t.Kind,
			"unique_key", t.UniqKey,
			"attempt", t.Attempts,
			"next", len(next),
			"took", time.Since(started).Round(time.Millisecond))
		return
	}

	out := t.OnFailure(err)
	cause := err.Error()
	if out.Fail {
		slog.Error("task failed",
			"task_id", t.ID,
			"kind", t.Kind,
			"unique_key", t.UniqKey,
			"attempt", t.Attempts,
			"retryable", IsRetryable(err),
			"error", err)
		if ferr := p.store.Fail(ctx, t.ID, out.Attempts, cause); ferr != nil {
			slog.Error("failed to mark task failed", "task_id", t.ID, "error", ferr)
		}
		return
	}

	slog.Warn("task will be retried",
		"task_id", t.ID,
		"kind", t.Kind,
		"unique_key", t.UniqKey,
		"attempt", t.Attempts,
		"retry_in", out.Delay,
		"error", err)
	if rerr := p.store.Retry(ctx, t.ID, out.Attempts, out.Delay, cause); rerr != nil {
		slog.Error("failed to reschedule task", "task_id", t.ID, "error", rerr)
	}
}

func (p *Pool) execute(ctx context.Context, t *Task) (next []Request, err error) {
	defer func() {
		if r := recover(); r != nil {
			stack := debug.Stack()
			slog.Error("task panicked", "task_id", t.ID, "kind", t.Kind, "panic", fmt.Sprint(r), "stack", string(stack))
			next = nil
			err = &PanicError{Value: r, Stack: stack}
		}
	}()
	return p.handler.Handle(ctx, t)
}

func sleep(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
