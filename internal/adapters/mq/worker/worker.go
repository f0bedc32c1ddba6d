// Package worker runs offloaded blocking jobs (store reads and writes, model
// loading) on a fixed pool so callers never block on them directly.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"time"

	"github.com/okian/careerpulse/internal/adapters/mq/queue"
	"github.com/okian/careerpulse/pkg/logger"
	"github.com/okian/careerpulse/pkg/metrics"
)

const (
	defaultShutdownTimeout = 30 * time.Second
	workerShutdownTimeout  = 5 * time.Second
)

// Queue defines how the pool submits and workers receive jobs.
type Queue interface {
	Enqueue(ctx context.Context, j queue.Job) error
	Dequeue(ctx context.Context) <-chan queue.Job
}

// Worker runs jobs from a queue.
type Worker interface {
	// Run starts the worker loop until ctx is canceled or the queue drains.
	Run(ctx context.Context)
	// Shutdown stops the worker after its current job.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker.
type InMemoryWorker struct {
	queue Queue
	name  string

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a worker reading from q.
func NewInMemoryWorker(q Queue, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    q,
		name:     "worker",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Get().Named("worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}
	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case j, ok := <-jobs:
			if !ok {
				return
			}
			w.process(ctx, j)
		}
	}
}

// Shutdown signals the worker and waits for it to finish.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	close(w.shutdown)
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// process runs one job and delivers its result. A panicking job is reported
// as an error so the worker keeps running.
func (w *InMemoryWorker) process(ctx context.Context, j queue.Job) {
	start := time.Now()
	jobCtx := j.Ctx
	if jobCtx == nil {
		jobCtx = ctx
	}

	err := run(jobCtx, j)
	metrics.RecordJob(float64(time.Since(start).Microseconds())/1000, err)
	if err != nil {
		w.logger.Warn(ctx, "job failed",
			logger.String("job", j.Name),
			logger.Duration("queued", start.Sub(j.EnqueuedAt)),
			logger.Error(err))
	}
	if j.Result != nil {
		j.Result <- err
	}
}

func run(ctx context.Context, j queue.Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job %s panicked: %v", j.Name, r)
		}
	}()
	if j.Run == nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return j.Run(ctx)
}

// Pool manages multiple workers over one queue.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue

	shutdownTimeout time.Duration
	logger          logger.Logger
}

// NewPool creates a pool. A non-positive workerCount uses one worker per CPU.
func NewPool(workerCount int, q Queue, opts ...PoolOption) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}
	p := &Pool{
		workers:         make([]*InMemoryWorker, workerCount),
		queue:           q,
		shutdownTimeout: defaultShutdownTimeout,
		logger:          logger.Get().Named("worker-pool"),
	}
	for _, opt := range opts {
		opt(p)
	}
	for i := range p.workers {
		p.workers[i] = NewInMemoryWorker(q, WithName("worker-"+strconv.Itoa(i)))
	}
	return p
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Start starts all workers.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
	metrics.UpdateWorkerActiveCount(len(p.workers))
	p.logger.Info(ctx, "worker pool started", logger.Int("workers", len(p.workers)))
}

// Submit enqueues fn and waits for its result. A rejected job returns
// queue.ErrQueueFull or queue.ErrQueueClosed; if ctx ends first the job may
// still run but its result is dropped.
func (p *Pool) Submit(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	result := make(chan error, 1)
	err := p.queue.Enqueue(ctx, queue.Job{Name: name, Ctx: ctx, Run: fn, Result: result})
	if err != nil {
		return fmt.Errorf("submit %s: %w", name, err)
	}
	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return fmt.Errorf("await %s: %w", name, ctx.Err())
	}
}

// Shutdown closes the queue and waits for workers to drain it.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, p.shutdownTimeout)
	defer cancel()

	var timedOut bool
	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			timedOut = true
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
		}
	}
	metrics.UpdateWorkerActiveCount(0)
	if timedOut {
		return fmt.Errorf("pool shutdown: %w", shutdownCtx.Err())
	}
	return nil
}

// Stop closes the queue and waits briefly for each worker.
func (p *Pool) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), workerShutdownTimeout)
	defer cancel()
	_ = p.Shutdown(ctx)
}
