// Package worker scores queued sessions concurrently.
package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/okian/kartscore/internal/adapters/mq/queue"
	"github.com/okian/kartscore/internal/domain/model"
	"github.com/okian/kartscore/pkg/logger"
	"github.com/okian/kartscore/pkg/metrics"
)

const poolShutdownTimeout = 30 * time.Second

// Scorer computes the score row of a session.
type Scorer interface {
	Score(ctx context.Context, s *model.Session) (model.SessionScore, error)
}

// Store keeps a score under the slot of its session.
type Store interface {
	Put(ctx context.Context, slot int, score model.SessionScore) error
}

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Job
}

// InMemoryWorker scores jobs from a queue until it is drained.
type InMemoryWorker struct {
	queue  Queue
	scorer Scorer
	store  Store
	name   string

	// onError receives every failed job.
	onError func(error)

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, scorer Scorer, store Store, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    q,
		scorer:   scorer,
		store:    store,
		name:     "worker",
		onError:  func(error) {},
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
			if err := w.process(ctx, j); err != nil {
				w.onError(err)
			}
		}
	}
}

// Done is closed when Run returns.
func (w *InMemoryWorker) Done() <-chan struct{} { return w.done }

// Shutdown stops the worker after its current job and waits for Run to return.
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

// process scores one job and stores the result under its slot.
func (w *InMemoryWorker) process(ctx context.Context, j queue.Job) error {
	start := time.Now()
	score, err := w.scorer.Score(ctx, j.Session)
	metrics.RecordSessionScoringLatency(float64(time.Since(start).Microseconds()) / 1000)

	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("score slot %d: %w", j.Slot, err)
		}
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "scoring_error")
		w.logger.Error(ctx, "scoring failed",
			logger.Int64("session", j.Session.ID),
			logger.Error(err),
		)
		return fmt.Errorf("score slot %d: %w", j.Slot, err)
	}

	if err := w.store.Put(ctx, j.Slot, score); err != nil {
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "store_error")
		w.logger.Error(ctx, "storing score failed",
			logger.Int64("session", j.Session.ID),
			logger.Int("slot", j.Slot),
			logger.Error(err),
		)
		return fmt.Errorf("store slot %d: %w", j.Slot, err)
	}

	metrics.RecordSessionScored()
	w.logger.Debug(ctx, "session scored",
		logger.Int64("session", score.SessionID),
		logger.Float64("frustration_score", score.FrustrationScore),
	)
	return nil
}

// Pool manages multiple workers sharing one queue.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue

	mu   sync.Mutex
	errs []error

	logger logger.Logger
}

// NewPool creates a worker pool. A workerCount below one means one worker
// per CPU.
func NewPool(workerCount int, q Queue, scorer Scorer, store Store) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}

	pool := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   q,
		logger:  logger.Get().Named("worker-pool"),
	}

	for i := 0; i < workerCount; i++ {
		w := NewInMemoryWorker(q, scorer, store, WithName("worker-"+strconv.Itoa(i)))
		w.onError = pool.recordError
		pool.workers[i] = w
	}

	return pool
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

func (p *Pool) recordError(err error) {
	p.mu.Lock()
	p.errs = append(p.errs, err)
	p.mu.Unlock()
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	metrics.UpdateWorkerActiveCount(len(p.workers))
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Wait blocks until every worker has returned, which happens once the queue
// is closed and drained or the context passed to Start is done. It returns
// the job failures joined together, or ctx's error if ctx ends first.
func (p *Pool) Wait(ctx context.Context) error {
	for _, w := range p.workers {
		select {
		case <-w.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	metrics.UpdateWorkerActiveCount(0)

	p.mu.Lock()
	defer p.mu.Unlock()
	return errors.Join(p.errs...)
}

// Shutdown closes the queue, stops every worker and waits for in-flight jobs
// to finish. Use it after Wait returns early on cancellation.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	var errs []error
	for i, w := range p.workers {
		if err := w.Shutdown(shutdownCtx); err != nil {
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
			errs = append(errs, err)
		}
	}
	metrics.UpdateWorkerActiveCount(0)

	return errors.Join(errs...)
}
