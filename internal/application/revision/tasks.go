package revision

import (
	"context"
	"sync"
	"time"

	"github.com/scenedex/scenedex/internal/infrastructure/monitoring/logging"
	"github.com/scenedex/scenedex/pkg/errors"
	"github.com/scenedex/scenedex/pkg/types/common"
)

// TaskKind names the unit of background work a task requests.
type TaskKind string

// TaskReconcile runs the reconciliation pipeline for one script version.
const TaskReconcile TaskKind = "script.reconcile"

// Task is the handle returned to callers when pipeline work is enqueued.
// There is no cancellation: a task runs to completion or the script lands in
// ERROR, and the script's persisted status is the only progress report.
type Task struct {
	ID         common.ID `json:"id"`
	Kind       TaskKind  `json:"kind"`
	ScriptID   common.ID `json:"script_id"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// NewReconcileTask builds a reconcile task for one script version.
func NewReconcileTask(scriptID common.ID) Task {
	return Task{
		ID:         common.NewID(),
		Kind:       TaskReconcile,
		ScriptID:   scriptID,
		EnqueuedAt: time.Now().UTC(),
	}
}

// Queue accepts pipeline tasks for asynchronous execution.
type Queue interface {
	Enqueue(ctx context.Context, task Task) error
}

// Handler executes one task.  Errors are terminal for the task; the script
// status carries the outcome.
type Handler func(ctx context.Context, task Task) error

// LocalQueue is an in-process Queue backed by a buffered channel and a fixed
// worker pool.  Suited to single-instance deployments; multi-instance setups
// use the Kafka-backed queue instead.
type LocalQueue struct {
	tasks   chan Task
	handler Handler
	logger  logging.Logger

	wg      sync.WaitGroup
	mu      sync.RWMutex
	stopped bool
}

// NewLocalQueue builds a local queue with the given worker count and buffer
// size; both are clamped to at least 1.
func NewLocalQueue(workers, buffer int, handler Handler, logger logging.Logger) *LocalQueue {
	if workers < 1 {
		workers = 1
	}
	if buffer < 1 {
		buffer = 1
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	q := &LocalQueue{
		tasks:   make(chan Task, buffer),
		handler: handler,
		logger:  logger.Named("taskqueue"),
	}
	for i := 0; i < workers; i++ {
		q.wg.Add(1)
		go q.worker()
	}
	return q
}

// Enqueue submits a task, failing fast when the buffer is full or the queue
// is shut down rather than blocking the caller's request.
func (q *LocalQueue) Enqueue(ctx context.Context, task Task) error {
	if err := ctx.Err(); err != nil {
		return errors.Wrap(err, errors.ErrCodeQueueError, "enqueue cancelled")
	}

	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.stopped {
		return errors.New(errors.ErrCodeQueueError, "task queue is shut down")
	}

	select {
	case q.tasks <- task:
		return nil
	default:
		return errors.New(errors.ErrCodeQueueError, "task queue is full")
	}
}

// Shutdown stops intake and waits for in-flight tasks to finish.
func (q *LocalQueue) Shutdown() {
	q.mu.Lock()
	if !q.stopped {
		q.stopped = true
		close(q.tasks)
	}
	q.mu.Unlock()
	q.wg.Wait()
}

func (q *LocalQueue) worker() {
	defer q.wg.Done()
	for task := range q.tasks {
		log := q.logger.With(
			logging.String("task_id", task.ID.String()),
			logging.String("kind", string(task.Kind)),
			logging.String("script_id", task.ScriptID.String()),
		)
		start := time.Now()
		if err := q.handler(context.Background(), task); err != nil {
			log.Error("task failed", logging.Err(err), logging.Duration("elapsed", time.Since(start)))
			continue
		}
		log.Info("task complete", logging.Duration("elapsed", time.Since(start)))
	}
}
