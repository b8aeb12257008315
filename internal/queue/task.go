// Package queue is a Postgres-backed task queue with per-key deduplication,
// exponential backoff and a fixed-size worker pool.
package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

type State string

const (
	StatePending State = "pending"
	StateRunning State = "running"
	StateDone    State = "done"
	StateFailed  State = "failed"
)

// Live reports whether a task in this state still takes part in deduplication.
func (s State) Live() bool {
	return s == StatePending || s == StateRunning
}

// ErrNoTask is returned by Lease when nothing is ready to run.
var ErrNoTask = errors.New("queue: no task ready")

// StuckCause is the last_error recorded when RecoverStuck reclaims a task.
// Recovery counts as an attempt, so a task over its budget is failed instead.
const StuckCause = "task was still running past the stuck threshold"

// ErrTaskNotFound is returned by Get for an unknown id.
var ErrTaskNotFound = errors.New("queue: task not found")

// Request describes a task to enqueue.
type Request struct {
	Kind       string
	Payload    json.RawMessage
	UniqKey    string
	MaxRetries int
}

func (r Request) validate() error {
	if r.Kind == "" {
		return fmt.Errorf("queue: request has no kind")
	}
	if r.UniqKey == "" {
		return fmt.Errorf("queue: %s request has no uniqueness key", r.Kind)
	}
	if r.MaxRetries < 0 {
		return fmt.Errorf("queue: %s request has negative max retries", r.Kind)
	}
	return nil
}

// EnqueueResult is the outcome of Enqueue. Skipped means a live task with the
// same uniqueness key already exists and nothing was inserted; TaskID is zero.
type EnqueueResult struct {
	TaskID  int64
	Skipped bool
}

type Task struct {
	ID          int64           `json:"id"`
	Kind        string          `json:"kind"`
	Payload     json.RawMessage `json:"payload"`
	UniqKey     string          `json:"unique_key"`
	State       State           `json:"state"`
	Attempts    int             `json:"attempts"`
	MaxRetries  int             `json:"max_retries"`
	LastError   string          `json:"last_error,omitempty"`
	ScheduledAt time.Time       `json:"scheduled_at"`
	StartedAt   *time.Time      `json:"started_at,omitempty"`
	FinishedAt  *time.Time      `json:"finished_at,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Outcome is the transition a failed run leads to.
type Outcome struct {
	Attempts int
	Delay    time.Duration
	Fail     bool
}

// OnFailure decides what happens to a task whose run returned err. The
// attempt counter always advances; the task is failed when the error is not
// retryable or the retry budget is spent, otherwise it is rescheduled after
// Backoff of the attempt that just failed.
func (t *Task) OnFailure(err error) Outcome {
	failedAttempt := t.Attempts
	out := Outcome{Attempts: t.Attempts + 1}
	if !IsRetryable(err) || out.Attempts > t.MaxRetries {
		out.Fail = true
		return out
	}
	out.Delay = Backoff(failedAttempt)
	return out
}

// IsRetryable asks err whether another attempt could succeed. Errors that
// don't say are treated as retryable.
func IsRetryable(err error) bool {
	var r interface{ Retryable() bool }
	if errors.As(err, &r) {
		return r.Retryable()
	}
	return true
}

// PanicError wraps a value recovered from a panicking handler.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("task panicked: %v", e.Value)
}

func (e *PanicError) Retryable() bool { return true }
