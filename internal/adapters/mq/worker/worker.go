// Package worker drains the promotion queue with a fixed pool of workers.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/okian/crewscore/internal/adapters/mq/queue"
	"github.com/okian/crewscore/pkg/logger"
	"github.com/okian/crewscore/pkg/metrics"
)

const poolShutdownTimeout = 30 * time.Second

// Job abstracts what workers read off the queue.
type Job = queue.Job

// Handler processes one job. Errors are logged by the worker and not retried.
type Handler interface {
	Handle(ctx context.Context, j Job) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, j Job) error

// Handle implements Handler.
func (f HandlerFunc) Handle(ctx context.Context, j Job) error { return f(ctx, j) }

// Source defines how workers receive jobs.
type Source interface {
	Dequeue() <-chan Job
}

// InMemoryWorker processes jobs from a Source until it is closed or stopped.
type InMemoryWorker struct {
	source  Source
	handler Handler
	name    string
	logger  logger.Logger

	stop <-chan struct{}
	done chan struct{}
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(source Source, handler Handler, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		source:  source,
		handler: handler,
		name:    "worker",
		logger:  logger.NewNop(),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.Named(w.name)
	return w
}

// Run processes jobs until the source closes, ctx is done or stop fires.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.source.Dequeue()
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stop:
			return
		case j, ok := <-jobs:
			if !ok {
				return
			}
			w.process(ctx, j)
		}
	}
}

// Done is closed when Run returns.
func (w *InMemoryWorker) Done() <-chan struct{} {
	return w.done
}

func (w *InMemoryWorker) process(ctx context.Context, j Job) {
	start := time.Now()
	defer func() {
		metrics.RecordNotifyLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	if err := w.handler.Handle(ctx, j); err != nil {
		metrics.RecordErrorByComponent("worker", "handler_error")
		w.logger.Error(ctx, "job failed",
			logger.String("group_id", j.GroupID),
			logger.String("member_id", j.Event.MemberID),
			logger.Error(err),
		)
	}
}

// Pool manages multiple workers sharing one source.
type Pool struct {
	workers []*InMemoryWorker
	source  Source
	logger  logger.Logger

	stop     chan struct{}
	stopOnce sync.Once
}

// NewPool creates a pool of workerCount workers; workerCount < 1 means runtime.NumCPU().
func NewPool(workerCount int, source Source, handler Handler, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}

	p := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		source:  source,
		logger:  logger.NewNop(),
		stop:    make(chan struct{}),
	}
	cfg := InMemoryWorker{logger: p.logger}
	for _, opt := range opts {
		opt(&cfg)
	}
	p.logger = cfg.logger.Named("worker-pool")

	for i := 0; i < workerCount; i++ {
		w := NewInMemoryWorker(source, handler, append(opts, WithName("worker-"+strconv.Itoa(i)))...)
		w.stop = p.stop
		p.workers[i] = w
	}

	metrics.UpdateNotifyWorkers(workerCount)
	return p
}

// Size returns the number of workers.
func (p *Pool) Size() int {
	return len(p.workers)
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Shutdown closes the source, lets workers drain what is queued and waits for
// them. Workers still busy when ctx (or the pool timeout) expires are told to stop.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.source.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			p.stopOnce.Do(func() { close(p.stop) })
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
			return fmt.Errorf("shutdown timed out: %w", shutdownCtx.Err())
		}
	}
	return nil
}
