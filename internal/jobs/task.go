package jobs

import (
	"context"
	"sync"
	"time"
)

// Task is one submitted unit of work.
type Task[T any] struct {
	ID        string
	Kind      string
	CreatedAt time.Time

	fn     Func[T]
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	mu         sync.RWMutex
	status     Status
	result     T
	err        error
	startedAt  time.Time
	finishedAt time.Time
}

// Done is closed when the task reaches a terminal status.
func (t *Task[T]) Done() <-chan struct{} { return t.done }

// Status returns the current status.
func (t *Task[T]) Status() Status {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.status
}

// Result returns the outcome. It is only meaningful once Done is closed.
func (t *Task[T]) Result() (T, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.result, t.err
}

// Wait blocks until the task finishes or ctx ends.
func (t *Task[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-t.done:
		return t.Result()
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Snapshot is a point-in-time view of a task, suitable for JSON.
type Snapshot[T any] struct {
	ID         string     `json:"id"`
	Kind       string     `json:"kind"`
	Status     Status     `json:"status"`
	Error      string     `json:"error,omitempty"`
	Result     *T         `json:"result,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// Snapshot copies the task's current state.
func (t *Task[T]) Snapshot() Snapshot[T] {
	t.mu.RLock()
	defer t.mu.RUnlock()

	s := Snapshot[T]{
		ID:        t.ID,
		Kind:      t.Kind,
		Status:    t.status,
		CreatedAt: t.CreatedAt,
	}
	if t.err != nil {
		s.Error = t.err.Error()
	}
	if t.status == Done {
		r := t.result
		s.Result = &r
	}
	if !t.startedAt.IsZero() {
		started := t.startedAt
		s.StartedAt = &started
	}
	if !t.finishedAt.IsZero() {
		finished := t.finishedAt
		s.FinishedAt = &finished
	}
	return s
}

// finishLocked records a terminal status. Must be called with mu held.
func (t *Task[T]) finishLocked(s Status, err error) {
	t.status = s
	t.err = err
	t.finishedAt = time.Now()
	close(t.done)
}
