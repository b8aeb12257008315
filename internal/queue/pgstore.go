package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/jackc/pgx/v5"
	"thirdcoast.systems/reelrecipes/internal/db"
)

// PGStore keeps tasks in the tasks table.
type PGStore struct {
	dbc *db.DatabaseConnection
}

func NewPGStore(dbc *db.DatabaseConnection) *PGStore {
	return &PGStore{dbc: dbc}
}

var _ Store = (*PGStore)(nil)

func (s *PGStore) Enqueue(ctx context.Context, req Request) (EnqueueResult, error) {
	return enqueue(ctx, s.dbc.Queries(ctx), req)
}

func enqueue(ctx context.Context, q *db.Queries, req Request) (EnqueueResult, error) {
	if err := req.validate(); err != nil {
		return EnqueueResult{}, err
	}
	payload := []byte(req.Payload)
	if len(payload) == 0 {
		payload = []byte("{}")
	}

	id, err := q.EnqueueTask(ctx, &db.EnqueueTaskParams{
		Kind:       req.Kind,
		Payload:    payload,
		UniqKey:    req.UniqKey,
		MaxRetries: int32(req.MaxRetries),
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// ON CONFLICT DO NOTHING returned nothing: a live task owns the key.
			return EnqueueResult{Skipped: true}, nil
		}
		if db.IsUniqueViolation(err) {
			return EnqueueResult{Skipped: true}, nil
		}
		return EnqueueResult{}, fmt.Errorf("enqueue %s: %w", req.Kind, err)
	}
	return EnqueueResult{TaskID: id}, nil
}

func (s *PGStore) Lease(ctx context.Context) (*Task, error) {
	row, err := s.dbc.Queries(ctx).DequeueTask(ctx)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoTask
		}
		return nil, fmt.Errorf("dequeue task: %w", err)
	}
	return taskFromRow(row), nil
}

func (s *PGStore) Complete(ctx context.Context, id int64, next ...Request) error {
	return s.dbc.InTx(ctx, func(q *db.Queries) error {
		if err := q.MarkTaskDone(ctx, id); err != nil {
			return fmt.Errorf("mark task %d done: %w", id, err)
		}
		for _, req := range next {
			res, err := enqueue(ctx, q, req)
			if err != nil {
				return err
			}
			if res.Skipped {
				slog.Info("follow-up task already queued", "task_id", id, "kind", req.Kind, "unique_key", req.UniqKey)
			}
		}
		return nil
	})
}

func (s *PGStore) Retry(ctx context.Context, id int64, attempts int, delay time.Duration, cause string) error {
	err := s.dbc.Queries(ctx).RescheduleTask(ctx, &db.RescheduleTaskParams{
		ID:           id,
		Attempts:     int32(attempts),
		LastError:    &cause,
		DelaySeconds: delay.Seconds(),
	})
	if err != nil {
		return fmt.Errorf("reschedule task %d: %w", id, err)
	}
	return nil
}

func (s *PGStore) Fail(ctx context.Context, id int64, attempts int, cause string) error {
	err := s.dbc.Queries(ctx).MarkTaskFailed(ctx, &db.MarkTaskFailedParams{
		ID:        id,
		Attempts:  int32(attempts),
		LastError: &cause,
	})
	if err != nil {
		return fmt.Errorf("mark task %d failed: %w", id, err)
	}
	return nil
}

func (s *PGStore) Get(ctx context.Context, id int64) (*Task, error) {
	row, err := s.dbc.Queries(ctx).GetTask(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("get task %d: %w", id, err)
	}
	return taskFromRow(row), nil
}

func (s *PGStore) RecoverStuck(ctx context.Context, olderThan time.Duration) (int64, error) {
	minutes := int32(math.Ceil(olderThan.Minutes()))
	if minutes < 1 {
		minutes = 1
	}
	n, err := s.dbc.Queries(ctx).RecoverStuckTasks(ctx, minutes)
	if err != nil {
		return 0, fmt.Errorf("recover stuck tasks: %w", err)
	}
	return n, nil
}

func taskFromRow(row *db.Task) *Task {
	t := &Task{
		ID:          row.ID,
		Kind:        row.Kind,
		Payload:     row.Payload,
		UniqKey:     row.UniqKey,
		State:       State(row.State),
		Attempts:    int(row.Attempts),
		MaxRetries:  int(row.MaxRetries),
		ScheduledAt: row.ScheduledAt.Time,
		StartedAt:   db.NilTimePtr(row.StartedAt),
		FinishedAt:  db.NilTimePtr(row.FinishedAt),
		CreatedAt:   row.CreatedAt.Time,
	}
	if row.LastError != nil {
		t.LastError = *row.LastError
	}
	return t
}
