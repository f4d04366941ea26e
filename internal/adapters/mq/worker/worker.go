// Package worker runs queued analysis jobs on a fixed pool of goroutines.
package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/okian/fluency/internal/adapters/mq/queue"
	"github.com/okian/fluency/internal/domain/failure"
	"github.com/okian/fluency/internal/domain/model"
	"github.com/okian/fluency/pkg/logger"
	"github.com/okian/fluency/pkg/metrics"
)

const poolShutdownTimeout = 30 * time.Second

// Processor runs the analysis for one upload.
type Processor interface {
	Process(ctx context.Context, upload model.Upload) (model.AnalysisResult, error)
}

// ProcessorFunc adapts a function to Processor.
type ProcessorFunc func(ctx context.Context, upload model.Upload) (model.AnalysisResult, error)

// Process calls f.
func (f ProcessorFunc) Process(ctx context.Context, upload model.Upload) (model.AnalysisResult, error) {
	return f(ctx, upload)
}

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan *queue.Job
}

// Worker processes jobs until its queue is closed or ctx is canceled.
type Worker interface {
	Run(ctx context.Context)
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker.
type InMemoryWorker struct {
	queue     Queue
	processor Processor
	name      string

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, p Processor, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:     q,
		processor: p,
		name:      "worker",
		shutdown:  make(chan struct{}),
		done:      make(chan struct{}),
	}

	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = logger.Get().Named(w.name)
	}

	return w
}

// Run processes jobs until the queue is closed and empty, ctx is canceled
// or Shutdown is called. Jobs it leaves behind are failed by Pool.Shutdown.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case job, ok := <-jobs:
			if !ok {
				return
			}
			w.processJob(job)
		}
	}
}

// Shutdown stops the worker without draining and waits for the current job.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.shutdownOnce.Do(func() { close(w.shutdown) })

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// processJob runs one job with the caller's context and reports the result.
func (w *InMemoryWorker) processJob(job *queue.Job) {
	ctx := job.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		// The caller stopped waiting.
		job.Complete(model.AnalysisResult{}, err)
		return
	}

	metrics.WorkerBusy(1)
	defer metrics.WorkerBusy(-1)

	res, err := w.safeProcess(ctx, job)
	if err != nil && !errors.Is(err, context.Canceled) {
		w.logger.Error(ctx, "analysis job failed",
			logger.String("job_id", job.ID),
			logger.String("filename", job.Upload.Filename),
			logger.Error(err),
		)
	}
	job.Complete(res, err)
}

func (w *InMemoryWorker) safeProcess(ctx context.Context, job *queue.Job) (res model.AnalysisResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			metrics.RecordError("worker", "panic")
			err = fmt.Errorf("analysis panicked: %v", r)
		}
	}()
	return w.processor.Process(ctx, job.Upload)
}

// Pool manages multiple workers.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	wg      sync.WaitGroup

	logger logger.Logger
}

// NewPool creates a pool of workerCount workers; zero or less uses NumCPU.
func NewPool(workerCount int, q Queue, p Processor) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}

	pool := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   q,
		logger:  logger.Get().Named("worker-pool"),
	}
	for i := 0; i < workerCount; i++ {
		pool.workers[i] = NewInMemoryWorker(q, p, WithName("worker-"+strconv.Itoa(i)))
	}

	metrics.UpdateWorkerCount(workerCount)

	return pool
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		p.wg.Add(1)
		go func(w *InMemoryWorker) {
			defer p.wg.Done()
			w.Run(ctx)
		}(w)
	}
}

// Shutdown closes the queue and waits for workers to drain it. Jobs still
// queued once the workers have stopped are completed as unavailable.
func (p *Pool) Shutdown(ctx context.Context) error {
	var closed bool
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		} else {
			closed = true
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	var err error
	select {
	case <-done:
	case <-shutdownCtx.Done():
		p.logger.Warn(ctx, "worker pool shutdown timed out")
		for _, w := range p.workers {
			w.shutdownOnce.Do(func() { close(w.shutdown) })
		}
		err = fmt.Errorf("worker pool shutdown: %w", shutdownCtx.Err())
	}

	// Only a closed queue ends the range below.
	if closed {
		if n := p.failQueued(ctx); n > 0 {
			p.logger.Warn(ctx, "failed queued jobs on shutdown", logger.Int("jobs", n))
		}
	}
	return err
}

// failQueued completes every job left on a closed queue.
func (p *Pool) failQueued(ctx context.Context) int {
	n := 0
	for job := range p.queue.Dequeue(ctx) {
		job.Complete(model.AnalysisResult{}, failure.New(failure.KindUnavailable, "worker.shutdown", queue.ErrClosed))
		n++
	}
	if n > 0 {
		metrics.UpdateQueueSize(0)
	}
	return n
}
