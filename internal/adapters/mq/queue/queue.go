// Package queue holds analysis jobs until a worker picks them up.
package queue

import (
	"context"
	"sync"
	"time"

	"github.com/okian/fluency/internal/domain/model"
	"github.com/okian/fluency/pkg/metrics"
)

const defaultQueueCapacity = 64

// Result is what a worker reports for a job.
type Result struct {
	Analysis model.AnalysisResult
	Err      error
}

// Job is one analysis request. Ctx is the caller's context; a worker that
// receives a job whose context is already done skips it.
type Job struct {
	ID         string
	Ctx        context.Context //nolint:containedctx // the job outlives the enqueue call
	Upload     model.Upload
	EnqueuedAt time.Time

	result chan Result
	once   sync.Once
}

// NewJob creates a job ready to be enqueued.
func NewJob(ctx context.Context, id string, upload model.Upload) *Job {
	return &Job{ID: id, Ctx: ctx, Upload: upload, result: make(chan Result, 1)}
}

// Complete delivers the outcome. Only the first call has an effect.
func (j *Job) Complete(res model.AnalysisResult, err error) {
	j.once.Do(func() {
		j.result <- Result{Analysis: res, Err: err}
	})
}

// Done returns a channel that receives the job's single result.
func (j *Job) Done() <-chan Result { return j.result }

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a job. Returns ErrFull when at capacity and ErrClosed after Close.
	Enqueue(ctx context.Context, j *Job) error

	// Dequeue returns the channel workers receive jobs from.
	// The channel is closed when the queue is closed.
	Dequeue(ctx context.Context) <-chan *Job

	// Len returns the current number of queued jobs.
	Len(ctx context.Context) int

	// Cap returns the queue capacity.
	Cap() int

	// Close stops accepting jobs; queued jobs remain readable.
	Close() error
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	jobs     chan *Job
	capacity int
	mu       sync.RWMutex
	closed   bool
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{capacity: defaultQueueCapacity}
	for _, opt := range opts {
		opt(q)
	}
	q.jobs = make(chan *Job, q.capacity)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)

	return q
}

// Enqueue adds a job without blocking.
func (q *InMemoryQueue) Enqueue(ctx context.Context, j *Job) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordError("queue", "closed")
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	j.EnqueuedAt = time.Now()
	select {
	case q.jobs <- j:
		metrics.UpdateQueueSize(len(q.jobs))
		return nil
	default:
		metrics.RecordQueueRejection()
		metrics.RecordError("queue", "full")
		return ErrFull
	}
}

// Dequeue returns the job channel.
func (q *InMemoryQueue) Dequeue(_ context.Context) <-chan *Job {
	return q.jobs
}

// Len returns the current number of queued jobs.
func (q *InMemoryQueue) Len(_ context.Context) int {
	size := len(q.jobs)
	metrics.UpdateQueueSize(size)
	return size
}

// Cap returns the queue capacity.
func (q *InMemoryQueue) Cap() int { return q.capacity }

// Close gracefully shuts down the queue.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.jobs)
	q.closed = true
	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
