// Package batch runs the assessment pipeline across many subjects with
// bounded parallelism and per-subject failure isolation.
//
// Subjects never share mutable state: each run reads only its own request
// plus the atomically swapped configuration, so the only coordination
// needed is the concurrency bound itself.
package batch

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/reena96/unseenedgeai/internal/domain/assess"
	"github.com/reena96/unseenedgeai/internal/domain/model"
	"github.com/reena96/unseenedgeai/pkg/logger"
	"github.com/reena96/unseenedgeai/pkg/metrics"
	"github.com/reena96/unseenedgeai/pkg/ratelimit"
)

const (
	defaultConcurrency    = 16
	defaultSubjectTimeout = 30 * time.Second
)

// Runner is the per-subject pipeline the orchestrator fans out over.
type Runner interface {
	Assess(ctx context.Context, req model.AssessmentRequest) (assess.Result, error)
}

// SubjectResult is one subject's outcome inside a batch report. Error is
// set when the subject's run failed as a whole (timeout, shape mismatch);
// skill-level problems live inside Result. RateLimited failures carry the
// retry-after hint from the exhausted budget.
type SubjectResult struct {
	SubjectID   string         `json:"subject_id"`
	Result      *assess.Result `json:"result,omitempty"`
	Error       string         `json:"error,omitempty"`
	RateLimited bool           `json:"rate_limited,omitempty"`
	RetryAfter  time.Duration  `json:"retry_after,omitempty"`
}

// Report is the structured batch outcome: always N of M, never a bare
// failure.
type Report struct {
	Total      int             `json:"total"`
	Successful int             `json:"successful"`
	Failed     int             `json:"failed"`
	Elapsed    time.Duration   `json:"elapsed"`
	Results    []SubjectResult `json:"results"`
}

// Orchestrator fans a batch of requests out over a bounded worker set.
type Orchestrator struct {
	runner         Runner
	concurrency    int64
	subjectTimeout time.Duration
	limiter        *ratelimit.Limiter
	logger         logger.Logger
}

// Option applies a configuration option to the Orchestrator.
type Option func(*Orchestrator)

// WithConcurrency bounds how many subjects run at once.
func WithConcurrency(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.concurrency = int64(n)
		}
	}
}

// WithSubjectTimeout bounds a single subject's pipeline run.
func WithSubjectTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.subjectTimeout = d
		}
	}
}

// WithLimiter throttles subject runs against the shared downstream
// budget. Each subject waits for a token inside its own deadline, so an
// exhausted budget surfaces as per-subject timeouts, not a stalled batch.
func WithLimiter(l *ratelimit.Limiter) Option {
	return func(o *Orchestrator) {
		o.limiter = l
	}
}

// WithLogger sets a custom logger for the orchestrator.
func WithLogger(l logger.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// New creates an Orchestrator around a pipeline runner.
func New(runner Runner, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		runner:         runner,
		concurrency:    defaultConcurrency,
		subjectTimeout: defaultSubjectTimeout,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = logger.Get().Named("batch")
	}
	return o
}

// Run assesses every request and reports per-subject outcomes. A subject
// timing out or failing never aborts its peers; canceling ctx stops
// scheduling new subjects and marks the rest as canceled.
func (o *Orchestrator) Run(ctx context.Context, reqs []model.AssessmentRequest) Report {
	start := time.Now()
	results := make([]SubjectResult, len(reqs))

	sem := semaphore.NewWeighted(o.concurrency)
	var g errgroup.Group
	for i := range reqs {
		if err := sem.Acquire(ctx, 1); err != nil {
			for j := i; j < len(reqs); j++ {
				results[j] = SubjectResult{SubjectID: reqs[j].SubjectID, Error: err.Error()}
			}
			break
		}
		i := i
		g.Go(func() error {
			defer sem.Release(1)
			results[i] = o.runSubject(ctx, reqs[i])
			return nil
		})
	}
	_ = g.Wait()

	report := Report{
		Total:   len(reqs),
		Elapsed: time.Since(start),
		Results: results,
	}
	for _, r := range results {
		if r.Error == "" {
			report.Successful++
		} else {
			report.Failed++
		}
	}

	metrics.RecordBatch(report.Successful, report.Failed)
	o.logger.Info(ctx, "batch complete",
		logger.Int("total", report.Total),
		logger.Int("successful", report.Successful),
		logger.Int("failed", report.Failed),
	)
	return report
}

// runSubject executes one pipeline run under the per-subject deadline.
func (o *Orchestrator) runSubject(ctx context.Context, req model.AssessmentRequest) SubjectResult {
	sctx, cancel := context.WithTimeout(ctx, o.subjectTimeout)
	defer cancel()

	if o.limiter != nil {
		if err := o.limiter.Wait(sctx); err != nil {
			metrics.RecordRateLimited()
			out := SubjectResult{SubjectID: req.SubjectID, Error: err.Error()}
			var rlErr *ratelimit.Error
			if errors.As(err, &rlErr) {
				out.RateLimited = true
				out.RetryAfter = rlErr.RetryAfter
			}
			return out
		}
	}

	res, err := o.runner.Assess(sctx, req)
	if err != nil {
		o.logger.Warn(ctx, "subject assessment failed",
			logger.String("subject_id", req.SubjectID),
			logger.Error(err),
		)
		return SubjectResult{SubjectID: req.SubjectID, Error: err.Error()}
	}
	return SubjectResult{SubjectID: req.SubjectID, Result: &res}
}
