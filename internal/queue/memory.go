package queue

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-process Store with the same dedup, ordering and
// transition rules as PGStore. Tests use it in place of Postgres.
type MemoryStore struct {
	mu     sync.Mutex
	nextID int64
	tasks  map[int64]*Task

	// Now is the clock used for scheduling; defaults to time.Now.
	Now func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tasks: map[int64]*Task{}, Now: time.Now}
}

var _ Store = (*MemoryStore)(nil)

func (m *MemoryStore) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now()
}

func (m *MemoryStore) Enqueue(_ context.Context, req Request) (EnqueueResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.enqueueLocked(req)
}

func (m *MemoryStore) enqueueLocked(req Request) (EnqueueResult, error) {
	if err := req.validate(); err != nil {
		return EnqueueResult{}, err
	}
	for _, t := range m.tasks {
		if t.UniqKey == req.UniqKey && t.State.Live() {
			return EnqueueResult{Skipped: true}, nil
		}
	}
	m.nextID++
	now := m.now()
	payload := append([]byte(nil), req.Payload...)
	if len(payload) == 0 {
		payload = []byte("{}")
	}
	m.tasks[m.nextID] = &Task{
		ID:          m.nextID,
		Kind:        req.Kind,
		Payload:     payload,
		UniqKey:     req.UniqKey,
		State:       StatePending,
		MaxRetries:  req.MaxRetries,
		ScheduledAt: now,
		CreatedAt:   now,
	}
	return EnqueueResult{TaskID: m.nextID}, nil
}

func (m *MemoryStore) Lease(_ context.Context) (*Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	var ready []*Task
	for _, t := range m.tasks {
		if t.State == StatePending && !t.ScheduledAt.After(now) {
			ready = append(ready, t)
		}
	}
	if len(ready) == 0 {
		return nil, ErrNoTask
	}
	sort.Slice(ready, func(i, j int) bool {
		if !ready[i].ScheduledAt.Equal(ready[j].ScheduledAt) {
			return ready[i].ScheduledAt.Before(ready[j].ScheduledAt)
		}
		return ready[i].ID < ready[j].ID
	})

	t := ready[0]
	t.State = StateRunning
	t.StartedAt = &now
	return t.clone(), nil
}

func (m *MemoryStore) Complete(_ context.Context, id int64, next ...Request) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tasks[id]
	if !ok {
		return ErrTaskNotFound
	}
	// Validate follow-ups before mutating so the call stays all-or-nothing.
	for _, req := range next {
		if err := req.validate(); err != nil {
			return err
		}
	}
	now := m.now()
	t.State = StateDone
	t.FinishedAt = &now
	for _, req := range next {
		if _, err := m.enqueueLocked(req); err != nil {
			return err
		}
	}
	return nil
}

func (m *MemoryStore) Retry(_ context.Context, id int64, attempts int, delay time.Duration, cause string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tasks[id]
	if !ok {
		return ErrTaskNotFound
	}
	t.State = StatePending
	t.Attempts = attempts
	t.LastError = cause
	t.ScheduledAt = m.now().Add(delay)
	t.StartedAt = nil
	return nil
}

func (m *MemoryStore) Fail(_ context.Context, id int64, attempts int, cause string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tasks[id]
	if !ok {
		return ErrTaskNotFound
	}
	now := m.now()
	t.State = StateFailed
	t.Attempts = attempts
	t.LastError = cause
	t.FinishedAt = &now
	return nil
}

func (m *MemoryStore) Get(_ context.Context, id int64) (*Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tasks[id]
	if !ok {
		return nil, ErrTaskNotFound
	}
	return t.clone(), nil
}

func (m *MemoryStore) RecoverStuck(_ context.Context, olderThan time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	var n int64
	for _, t := range m.tasks {
		if t.State != StateRunning || t.StartedAt == nil || now.Sub(*t.StartedAt) <= olderThan {
			continue
		}
		t.Attempts++
		t.LastError = StuckCause
		if t.Attempts > t.MaxRetries {
			t.State = StateFailed
			t.FinishedAt = &now
		} else {
			t.State = StatePending
			t.StartedAt = nil
			t.ScheduledAt = now
		}
		n++
	}
	return n, nil
}

// Tasks returns a snapshot of every task ordered by id.
func (m *MemoryStore) Tasks() []*Task {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*Task, 0, len(m.tasks))
	for _, t := range m.tasks {
		out = append(out, t.clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (t *Task) clone() *Task {
	c := *t
	c.Payload = append([]byte(nil), t.Payload...)
	return &c
}
