// Package jobs runs engine operations on a fixed pool of background workers
// and tracks each one as a task the caller can poll, wait on or cancel.
package jobs

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/satindergrewal/tonesmith/internal/logging"
	"github.com/sirupsen/logrus"
)

var (
	ErrQueueFull = errors.New("job queue is full")
	ErrNotFound  = errors.New("job not found")
	ErrClosed    = errors.New("job queue is closed")
	ErrFinished  = errors.New("job already finished")
)

// Status is a task's lifecycle state.
type Status string

const (
	Queued    Status = "queued"
	Running   Status = "running"
	Done      Status = "done"
	Failed    Status = "failed"
	Cancelled Status = "cancelled"
)

// Terminal reports whether the status is final.
func (s Status) Terminal() bool {
	return s == Done || s == Failed || s == Cancelled
}

// Func is the work a task performs.
type Func[T any] func(ctx context.Context) (T, error)

// Config controls a Queue.
type Config struct {
	Workers   int           // concurrent tasks; at least 1
	QueueSize int           // pending tasks before Submit rejects
	Timeout   time.Duration // per-task limit, 0 for none
	Retain    int           // finished tasks kept for lookup, 0 keeps 100
	Log       logrus.FieldLogger
}

// Queue is a bounded worker pool.
type Queue[T any] struct {
	cfg     Config
	log     logrus.FieldLogger
	pending chan *Task[T]
	events  *Broadcaster

	base context.Context
	stop context.CancelFunc

	mu     sync.RWMutex
	tasks  map[string]*Task[T]
	order  []string // submission order
	closed bool
}

// New creates a queue. Tasks do not start until Run is called.
func New[T any](cfg Config) *Queue[T] {
	cfg.Workers = max(cfg.Workers, 1)
	cfg.QueueSize = max(cfg.QueueSize, 1)
	if cfg.Retain <= 0 {
		cfg.Retain = 100
	}
	base, stop := context.WithCancel(context.Background())
	return &Queue[T]{
		cfg:     cfg,
		log:     logging.OrDiscard(cfg.Log),
		pending: make(chan *Task[T], cfg.QueueSize),
		events:  NewBroadcaster(),
		base:    base,
		stop:    stop,
		tasks:   make(map[string]*Task[T]),
	}
}

// Submit enqueues fn. It never blocks: a full queue returns ErrQueueFull.
func (q *Queue[T]) Submit(kind string, fn Func[T]) (*Task[T], error) {
	ctx, cancel := context.WithCancel(q.base)
	t := &Task[T]{
		ID:        uuid.NewString(),
		Kind:      kind,
		CreatedAt: time.Now(),
		fn:        fn,
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
		status:    Queued,
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		cancel()
		return nil, ErrClosed
	}
	select {
	case q.pending <- t:
	default:
		cancel()
		return nil, ErrQueueFull
	}
	q.tasks[t.ID] = t
	q.order = append(q.order, t.ID)

	q.log.WithFields(logrus.Fields{"job": t.ID, "kind": kind}).Debug("Job queued")
	q.emit(t, Queued, nil)
	return t, nil
}

// Events returns the broadcaster carrying every status transition.
func (q *Queue[T]) Events() *Broadcaster { return q.events }

func (q *Queue[T]) emit(t *Task[T], s Status, err error) {
	e := Event{Job: t.ID, Kind: t.Kind, Status: s, Time: time.Now()}
	if err != nil {
		e.Error = err.Error()
	}
	q.events.Publish(e)
}

// Get looks up a task by id.
func (q *Queue[T]) Get(id string) (*Task[T], bool) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	t, ok := q.tasks[id]
	return t, ok
}

// List returns known tasks, oldest first.
func (q *Queue[T]) List() []*Task[T] {
	q.mu.RLock()
	defer q.mu.RUnlock()
	out := make([]*Task[T], 0, len(q.order))
	for _, id := range q.order {
		out = append(out, q.tasks[id])
	}
	return out
}

// Pending returns the number of tasks waiting for a worker.
func (q *Queue[T]) Pending() int {
	return len(q.pending)
}

// Cancel stops a task and returns it. A queued task is marked cancelled
// immediately; a running task has its context cancelled and finishes once
// the work returns.
func (q *Queue[T]) Cancel(id string) (*Task[T], error) {
	t, ok := q.Get(id)
	if !ok {
		return nil, ErrNotFound
	}
	t.cancel()

	t.mu.Lock()
	status := t.status
	if status == Queued {
		t.finishLocked(Cancelled, context.Canceled)
	}
	t.mu.Unlock()

	switch {
	case status == Queued:
		q.emit(t, Cancelled, context.Canceled)
	case status.Terminal():
		return t, ErrFinished
	}
	return t, nil
}

// Run starts the workers and blocks until ctx is cancelled. It then cancels
// every outstanding task, waits for running work to return and rejects
// further submissions.
func (q *Queue[T]) Run(ctx context.Context) {
	q.log.WithField("workers", q.cfg.Workers).Info("Job workers started")

	var wg sync.WaitGroup
	for range q.cfg.Workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			q.worker(ctx)
		}()
	}

	<-ctx.Done()

	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.stop()
	wg.Wait()

	for {
		select {
		case t := <-q.pending:
			t.mu.Lock()
			queued := t.status == Queued
			if queued {
				t.finishLocked(Cancelled, context.Canceled)
			}
			t.mu.Unlock()
			if queued {
				q.emit(t, Cancelled, context.Canceled)
			}
		default:
			q.log.Info("Job workers stopped")
			return
		}
	}
}

func (q *Queue[T]) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case t := <-q.pending:
			q.execute(ctx, t)
		}
	}
}

func (q *Queue[T]) execute(runCtx context.Context, t *Task[T]) {
	t.mu.Lock()
	if t.status != Queued {
		t.mu.Unlock()
		return
	}
	if runCtx.Err() != nil || t.ctx.Err() != nil {
		t.finishLocked(Cancelled, context.Canceled)
		t.mu.Unlock()
		q.emit(t, Cancelled, context.Canceled)
		return
	}
	t.status = Running
	t.startedAt = time.Now()
	t.mu.Unlock()
	q.emit(t, Running, nil)

	ctx := t.ctx
	if q.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, q.cfg.Timeout)
		defer cancel()
	}

	entry := q.log.WithFields(logrus.Fields{"job": t.ID, "kind": t.Kind})
	entry.Debug("Job started")

	result, err := t.fn(ctx)

	t.mu.Lock()
	switch {
	case err == nil:
		t.result = result
		t.finishLocked(Done, nil)
	case t.ctx.Err() != nil && errors.Is(err, context.Canceled):
		t.finishLocked(Cancelled, err)
	default:
		t.finishLocked(Failed, err)
	}
	status, elapsed := t.status, t.finishedAt.Sub(t.startedAt)
	t.mu.Unlock()
	t.cancel()
	q.emit(t, status, err)

	entry = entry.WithFields(logrus.Fields{"status": status, "elapsed": elapsed.Round(time.Millisecond)})
	if status == Failed {
		entry.WithError(err).Warn("Job failed")
	} else {
		entry.Info("Job finished")
	}
	q.prune()
}

// prune drops the oldest finished tasks beyond cfg.Retain.
func (q *Queue[T]) prune() {
	q.mu.Lock()
	defer q.mu.Unlock()

	finished := 0
	for _, id := range q.order {
		if q.tasks[id].Status().Terminal() {
			finished++
		}
	}
	excess := finished - q.cfg.Retain
	if excess <= 0 {
		return
	}

	kept := q.order[:0]
	for _, id := range q.order {
		if excess > 0 && q.tasks[id].Status().Terminal() {
			delete(q.tasks, id)
			excess--
			continue
		}
		kept = append(kept, id)
	}
	q.order = kept
}
