// Package worker drains the assessment request queue, runs the full
// per-subject pipeline, and records the resulting assessments.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"time"

	"github.com/reena96/unseenedgeai/internal/domain/assess"
	"github.com/reena96/unseenedgeai/internal/domain/model"
	"github.com/reena96/unseenedgeai/pkg/logger"
	"github.com/reena96/unseenedgeai/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultWorkerMultiplier = 4 // multiplier for runtime.NumCPU()
	workerShutdownTimeout   = 5 * time.Second
	poolShutdownTimeout     = 30 * time.Second
)

// Request abstracts what workers read off the queue.
type Request = model.AssessmentRequest

// Runner executes the per-subject assessment pipeline.
type Runner interface {
	Assess(ctx context.Context, req model.AssessmentRequest) (assess.Result, error)
}

// Recorder persists fused assessments.
type Recorder interface {
	Record(ctx context.Context, assessments []model.SkillAssessment) error
}

// Queue defines how workers receive requests.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Request
}

// Worker processes queued requests until stopped.
type Worker interface {
	// Run starts the worker loop until ctx is canceled.
	Run(ctx context.Context)

	// Shutdown gracefully stops the worker.
	// It will process any remaining requests before stopping.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker for processing assessment requests.
type InMemoryWorker struct {
	queue    Queue
	runner   Runner
	recorder Recorder
	name     string

	// Shutdown control
	shutdown chan struct{}
	done     chan struct{}

	// Logging
	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(queue Queue, runner Runner, recorder Recorder, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    queue,
		runner:   runner,
		recorder: recorder,
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
	defer func() {
		close(w.done)
	}()

	requestChan := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case req, ok := <-requestChan:
			if !ok {
				// Channel closed, worker should stop
				return
			}
			if err := w.processRequest(ctx, req); err != nil {
				w.logger.Error(ctx, "error processing request", logger.Error(err))
			}
		}
	}
}

// Shutdown gracefully stops the worker.
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

// processRequest runs the pipeline for one request and records the
// resulting assessments.
func (w *InMemoryWorker) processRequest(ctx context.Context, req Request) error {
	start := time.Now()
	defer func() {
		latency := time.Since(start).Milliseconds()
		metrics.RecordWorkerProcessingLatency(float64(latency))
	}()

	result, err := w.runner.Assess(ctx, req)
	if err != nil {
		metrics.RecordWorkerError()
		w.logger.Error(ctx, "assessment failed for request",
			logger.String("request_id", req.RequestID),
			logger.String("subject_id", req.SubjectID),
			logger.Error(err),
		)
		return fmt.Errorf("failed to assess request %s: %w", req.RequestID, err)
	}

	if len(result.Assessments) == 0 {
		w.logger.Warn(ctx, "request produced no assessments",
			logger.String("request_id", req.RequestID),
			logger.String("subject_id", req.SubjectID),
			logger.Int("unavailable", len(result.Unavailable)),
		)
		return nil
	}

	if err := w.recorder.Record(ctx, result.Assessments); err != nil {
		metrics.RecordWorkerError()
		w.logger.Error(ctx, "recording assessments failed",
			logger.String("request_id", req.RequestID),
			logger.Error(err),
		)
		return fmt.Errorf("recording assessments: %w", err)
	}
	return nil
}

// Pool manages multiple workers.
type Pool struct {
	workers  []*InMemoryWorker
	queue    Queue
	runner   Runner
	recorder Recorder

	// Shutdown control
	shutdown chan struct{}

	// Logging
	logger logger.Logger
}

// NewPool creates a new worker pool.
func NewPool(workerCount int, queue Queue, runner Runner, recorder Recorder) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU() * defaultWorkerMultiplier
	}

	pool := &Pool{
		workers:  make([]*InMemoryWorker, workerCount),
		queue:    queue,
		runner:   runner,
		recorder: recorder,
		shutdown: make(chan struct{}),
		logger:   logger.Get().Named("worker-pool"),
	}

	for i := 0; i < workerCount; i++ {
		pool.workers[i] = NewInMemoryWorker(
			queue,
			runner,
			recorder,
			WithName("worker-"+strconv.Itoa(i)),
		)
	}

	metrics.UpdateWorkerCount(workerCount)

	return pool
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, worker := range p.workers {
		go worker.Run(ctx)
	}
}

// Size returns the number of workers in the pool.
func (p *Pool) Size() int {
	return len(p.workers)
}

// Stop gracefully stops all workers.
func (p *Pool) Stop() {
	close(p.shutdown)

	for _, worker := range p.workers {
		select {
		case <-worker.done:
			// Worker finished
		case <-time.After(workerShutdownTimeout):
			// Worker timeout
		}
	}
}

// Shutdown gracefully shuts down the entire worker pool.
func (p *Pool) Shutdown(ctx context.Context) error {
	// First close the queue to stop new requests
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	for i, worker := range p.workers {
		select {
		case <-worker.done:
		case <-shutdownCtx.Done():
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
		}
	}

	metrics.UpdateWorkerCount(0)
	return nil
}
