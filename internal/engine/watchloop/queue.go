package watchloop

import (
	"context"
	"slices"
	"sync"
)

// Queue serializes task runs. Each task is either idle, running or pending;
// a request for a task that is already pending is dropped, so a running task
// collects at most one re-run however often it is requested. Tasks run one at
// a time in request order.
type Queue struct {
	mu      sync.Mutex
	pending []string
	running string
	wake    chan struct{}
}

// NewQueue creates an empty Queue.
func NewQueue() *Queue {
	return &Queue{wake: make(chan struct{}, 1)}
}

// Request schedules a run of the task.
func (q *Queue) Request(task string) {
	q.mu.Lock()
	if !slices.Contains(q.pending, task) {
		q.pending = append(q.pending, task)
	}
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// Running returns the task being run, or "" when idle.
func (q *Queue) Running() string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.running
}

// Pending returns the tasks waiting to run.
func (q *Queue) Pending() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return slices.Clone(q.pending)
}

// Serve calls run for each requested task until ctx is canceled.
// A run in progress is not interrupted; pending runs are dropped on return.
func (q *Queue) Serve(ctx context.Context, run func(ctx context.Context, task string)) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-q.wake:
		}

		for ctx.Err() == nil {
			task, ok := q.next()
			if !ok {
				break
			}
			run(ctx, task)
		}
		q.mu.Lock()
		q.running = ""
		q.mu.Unlock()
	}
}

func (q *Queue) next() (string, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.pending) == 0 {
		q.running = ""
		return "", false
	}
	q.running = q.pending[0]
	q.pending = q.pending[1:]
	return q.running, true
}
