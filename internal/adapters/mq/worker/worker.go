// Package worker runs readings from the queue through the evaluation pipeline.
package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/okian/airq/internal/domain/aqi"
	"github.com/okian/airq/internal/domain/model"
	"github.com/okian/airq/pkg/logger"
	"github.com/okian/airq/pkg/metrics"
)

// Queue defines how workers receive readings.
type Queue interface {
	Dequeue(ctx context.Context) <-chan model.Reading
}

// Evaluator turns a reading into a recorded evaluation.
type Evaluator interface {
	Evaluate(ctx context.Context, r model.Reading) (model.Evaluation, error)
}

// doneMarker is implemented by queues that track consumed readings.
type doneMarker interface {
	Done()
}

// Worker processes readings using the provided evaluator.
type Worker interface {
	// Run starts the worker loop until ctx is canceled or the queue closes.
	Run(ctx context.Context)

	// Shutdown stops the worker without draining the queue.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker.
type InMemoryWorker struct {
	queue     Queue
	evaluator Evaluator
	name      string

	processed atomic.Int64
	failed    atomic.Int64

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, ev Evaluator, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:     q,
		evaluator: ev,
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

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	readings := w.queue.Dequeue(ctx)
	marker, _ := w.queue.(doneMarker)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case r, ok := <-readings:
			if !ok {
				return
			}
			if marker != nil {
				marker.Done()
			}
			if err := w.process(ctx, r); err != nil {
				w.logger.Error(ctx, "error processing reading", logger.String("readingID", r.ID), logger.Error(err))
			}
		}
	}
}

// Shutdown stops the worker.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.stop()
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

func (w *InMemoryWorker) stop() {
	select {
	case <-w.shutdown:
	default:
		close(w.shutdown)
	}
}

// Processed returns how many readings were evaluated successfully.
func (w *InMemoryWorker) Processed() int64 { return w.processed.Load() }

// Failed returns how many readings failed evaluation.
func (w *InMemoryWorker) Failed() int64 { return w.failed.Load() }

func (w *InMemoryWorker) process(ctx context.Context, r model.Reading) (err error) { //nolint:gocritic // hugeParam: passed by value for channel semantics
	start := time.Now()
	defer func() {
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Microseconds()) / 1000)
		if rec := recover(); rec != nil {
			err = fmt.Errorf("evaluation panicked: %v", rec)
		}
		if err != nil {
			w.failed.Add(1)
			kind := errorKind(err)
			metrics.RecordWorkerError()
			metrics.RecordErrorByComponent("worker", kind)
			metrics.RecordErrorByType(kind, "high")
		}
	}()

	ev, err := w.evaluator.Evaluate(ctx, r)
	if err != nil {
		return fmt.Errorf("evaluate reading %s: %w", r.ID, err)
	}
	w.processed.Add(1)
	w.logger.Debug(ctx, "reading evaluated",
		logger.String("readingID", r.ID),
		logger.String("station", ev.StationID),
		logger.String("category", ev.Result.Category),
		logger.Float64("aqi", ev.Result.Score),
	)
	return nil
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, aqi.ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, aqi.ErrConfig):
		return "config_error"
	case errors.Is(err, aqi.ErrInferenceFailure):
		return "inference_failure"
	default:
		return "evaluation_error"
	}
}

// Pool manages multiple workers.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	logger  logger.Logger
}

// NewPool creates a worker pool. A non-positive count uses runtime.NumCPU().
func NewPool(workerCount int, q Queue, ev Evaluator) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}
	p := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   q,
		logger:  logger.Get().Named("worker-pool"),
	}
	for i := range p.workers {
		name := "worker-" + strconv.Itoa(i)
		p.workers[i] = NewInMemoryWorker(q, ev, WithName(name), WithLogger(p.logger.Named(name)))
	}
	metrics.UpdateWorkerCount(workerCount)
	return p
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Processed sums successful evaluations across workers.
func (p *Pool) Processed() int64 {
	var n int64
	for _, w := range p.workers {
		n += w.Processed()
	}
	return n
}

// Failed sums failed evaluations across workers.
func (p *Pool) Failed() int64 {
	var n int64
	for _, w := range p.workers {
		n += w.Failed()
	}
	return n
}

// Shutdown closes the queue and lets workers drain it until ctx expires;
// workers still running then are stopped.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	var timedOut bool
	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-ctx.Done():
			timedOut = true
			p.logger.Warn(ctx, "worker drain timed out", logger.Int("worker_id", i))
			w.stop()
		}
	}
	metrics.UpdateWorkerCount(0)
	if timedOut {
		return fmt.Errorf("worker pool shutdown: %w", ctx.Err())
	}
	return nil
}
