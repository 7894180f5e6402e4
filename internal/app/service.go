// Package service wires the assessment engine together and implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"sync"
	"time"

	"github.com/reena96/unseenedgeai/internal/adapters/mq/queue"
	workerpool "github.com/reena96/unseenedgeai/internal/adapters/mq/worker"
	"github.com/reena96/unseenedgeai/internal/adapters/registry"
	"github.com/reena96/unseenedgeai/internal/adapters/repository"
	"github.com/reena96/unseenedgeai/internal/adapters/weights"
	"github.com/reena96/unseenedgeai/internal/domain/assess"
	"github.com/reena96/unseenedgeai/internal/domain/batch"
	"github.com/reena96/unseenedgeai/internal/domain/dedupe"
	"github.com/reena96/unseenedgeai/internal/domain/extract"
	"github.com/reena96/unseenedgeai/internal/domain/features"
	"github.com/reena96/unseenedgeai/internal/domain/fusion"
	"github.com/reena96/unseenedgeai/internal/domain/inference"
	"github.com/reena96/unseenedgeai/internal/domain/model"
	"github.com/reena96/unseenedgeai/pkg/logger"
	"github.com/reena96/unseenedgeai/pkg/metrics"
	"github.com/reena96/unseenedgeai/pkg/ratelimit"
)

// modelSource adapts the registry to the inference.Source interface.
type modelSource struct {
	registry *registry.Registry
}

func (m *modelSource) Active(skill model.Skill) (inference.Model, error) {
	ens, err := m.registry.Active(skill)
	if err != nil {
		return nil, err
	}
	return ens, nil
}

// Service implements the API dependencies for the assessment engine.
type Service struct {
	mu sync.RWMutex

	// Core components
	registry     *registry.Registry
	weightsStore *weights.Store
	validator    *features.Validator
	pipeline     *assess.Pipeline
	orchestrator *batch.Orchestrator
	limiter      *ratelimit.Limiter
	store        *repository.ShardedStore
	deduper      dedupe.Deduper
	requestQueue queue.Queue
	workerPool   *workerpool.Pool

	// Configuration
	modelDir              string
	weightsPath           string
	workerCount           int
	queueSize             int
	dedupeSize            int
	shardCount            int
	batchConcurrency      int
	subjectTimeout        time.Duration
	rateLimitPerMinute    int
	rateLimitPerHour      int
	missingSourcePenalty  float64
	disagreementThreshold float64

	// State
	started     bool
	watchCancel context.CancelFunc

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithModelDir sets the directory holding model artifacts.
func WithModelDir(dir string) Option {
	return func(s *Service) {
		if dir != "" {
			s.modelDir = dir
		}
	}
}

// WithWeightsPath sets the fusion weights artifact path. Empty keeps the
// built-in defaults in memory.
func WithWeightsPath(path string) Option {
	return func(s *Service) {
		s.weightsPath = path
	}
}

// WithWorkerCount sets the number of pipeline workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum size of the request queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets the size of the deduplication cache.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithShardCount sets the number of assessment store shards.
func WithShardCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.shardCount = count
		}
	}
}

// WithBatchConcurrency bounds how many subjects a batch assesses at once.
func WithBatchConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.batchConcurrency = n
		}
	}
}

// WithSubjectTimeout bounds one subject's pipeline run in a batch.
func WithSubjectTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.subjectTimeout = d
		}
	}
}

// WithRateLimits caps calls to the downstream reasoning service.
func WithRateLimits(perMinute, perHour int) Option {
	return func(s *Service) {
		if perMinute > 0 {
			s.rateLimitPerMinute = perMinute
		}
		if perHour > 0 {
			s.rateLimitPerHour = perHour
		}
	}
}

// WithMissingSourcePenalty sets the confidence multiplier per absent
// evidence source.
func WithMissingSourcePenalty(p float64) Option {
	return func(s *Service) {
		if p > 0 && p <= 1 {
			s.missingSourcePenalty = p
		}
	}
}

// WithDisagreementThreshold sets the sub-score spread above which an
// assessment is flagged for review.
func WithDisagreementThreshold(t float64) Option {
	return func(s *Service) {
		if t > 0 {
			s.disagreementThreshold = t
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		modelDir:              "artifacts/models",
		workerCount:           0, // worker pool default applies
		queueSize:             10_000,
		dedupeSize:            50_000,
		shardCount:            16,
		batchConcurrency:      16,
		subjectTimeout:        30 * time.Second,
		rateLimitPerMinute:    60,
		rateLimitPerHour:      1800,
		missingSourcePenalty:  0.85,
		disagreementThreshold: 0.3,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start loads models and weights, then brings up the processing
// components. A model registry that cannot load is fatal.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	s.logger.Info(ctx, "starting assessment service...")

	s.registry = registry.New(s.modelDir)
	if err := s.registry.Load(ctx); err != nil {
		return err
	}

	s.weightsStore = weights.NewStore(s.weightsPath)
	if err := s.weightsStore.Load(ctx); err != nil {
		return err
	}

	s.validator = features.NewValidator()
	s.limiter = ratelimit.New(
		ratelimit.WithShortWindow(s.rateLimitPerMinute, time.Minute),
		ratelimit.WithLongWindow(s.rateLimitPerHour, time.Hour),
	)

	inferSvc := inference.New(&modelSource{registry: s.registry})
	engine := fusion.New(
		fusion.WithMissingSourcePenalty(s.missingSourcePenalty),
		fusion.WithDisagreementThreshold(s.disagreementThreshold),
	)
	s.pipeline = assess.New(
		extract.NewMLExtractor(inferSvc),
		extract.NewLinguisticExtractor(s.weightsStore),
		extract.NewBehavioralExtractor(s.weightsStore),
		engine,
		s.weightsStore,
		assess.WithValidator(s.validator),
	)
	s.orchestrator = batch.New(s.pipeline,
		batch.WithConcurrency(s.batchConcurrency),
		batch.WithSubjectTimeout(s.subjectTimeout),
		batch.WithLimiter(s.limiter),
	)

	s.store = repository.NewShardedStore(
		repository.WithShardCount(s.shardCount),
	)
	s.deduper = dedupe.NewInMemoryDeduper(
		dedupe.WithMaxSize(s.dedupeSize),
	)
	s.requestQueue = queue.NewInMemoryQueue(
		queue.WithCapacity(s.queueSize),
		queue.WithBufferSize(s.queueSize),
	)

	// Workers and background watchers live until Stop, not until the
	// startup context ends.
	watchCtx, cancel := context.WithCancel(context.Background())
	s.watchCancel = cancel

	s.workerPool = workerpool.NewPool(s.workerCount, s.requestQueue, s.pipeline, s.store)
	s.workerPool.Start(watchCtx)

	go func() {
		if err := s.registry.Watch(watchCtx); err != nil {
			s.logger.Warn(watchCtx, "model watcher stopped", logger.Error(err))
		}
	}()
	go func() {
		if err := s.weightsStore.Watch(watchCtx); err != nil {
			s.logger.Warn(watchCtx, "weights watcher stopped", logger.Error(err))
		}
	}()
	s.store.StartMetricsUpdater(watchCtx)

	s.started = true
	s.logger.Info(ctx, "assessment service started",
		logger.Int("workers", s.workerPool.Size()),
		logger.Int("queueSize", s.queueSize),
		logger.Int("shards", s.shardCount),
		logger.String("weightsVersion", s.weightsStore.Version()),
	)

	return nil
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx := context.Background()
	s.logger.Info(ctx, "stopping assessment service...")

	if s.watchCancel != nil {
		s.watchCancel()
	}
	if s.workerPool != nil {
		if err := s.workerPool.Shutdown(ctx); err != nil {
			s.logger.Warn(ctx, "worker pool shutdown incomplete", logger.Error(err))
		}
	}

	s.started = false
	s.logger.Info(ctx, "assessment service stopped")
}

// ValidateFeatures checks a raw payload against the feature contract.
func (s *Service) ValidateFeatures(raw features.RawVector) (model.FeatureVector, error) {
	return s.validator.Validate(raw)
}

// SeenAndRecord atomically checks if a request id was seen and records
// it if not. Returns true if the request was already seen.
func (s *Service) SeenAndRecord(ctx context.Context, id string) bool {
	seen := s.deduper.SeenAndRecord(ctx, id)
	if seen {
		metrics.RecordRequestDuplicate()
	}
	return seen
}

// Unrecord removes a request ID from the seen list, allowing a retry
// after a failed enqueue.
func (s *Service) Unrecord(ctx context.Context, id string) {
	s.deduper.Unrecord(ctx, id)
}

// Enqueue submits a request for asynchronous processing.
func (s *Service) Enqueue(ctx context.Context, req model.AssessmentRequest) bool {
	ok := s.requestQueue.Enqueue(ctx, req)
	if ok {
		metrics.UpdateQueueSize(s.requestQueue.Len(ctx))
	}
	return ok
}

// RunBatch assesses a set of subjects synchronously with bounded
// parallelism and per-subject isolation.
func (s *Service) RunBatch(ctx context.Context, reqs []model.AssessmentRequest) batch.Report {
	report := s.orchestrator.Run(ctx, reqs)
	for _, res := range report.Results {
		if res.Result != nil && len(res.Result.Assessments) > 0 {
			if err := s.store.Record(ctx, res.Result.Assessments); err != nil {
				s.logger.Warn(ctx, "batch result not recorded",
					logger.String("subjectID", res.SubjectID),
					logger.Error(err),
				)
			}
		}
	}
	return report
}

// SubjectAssessments returns the latest assessment per (skill, period)
// for one subject.
func (s *Service) SubjectAssessments(ctx context.Context, subjectID string) ([]model.SkillAssessment, error) {
	return s.store.BySubject(ctx, subjectID)
}

// Weights returns the active fusion weights for a skill and their
// version.
func (s *Service) Weights(skill model.Skill) (fusion.FusionWeights, string) {
	return s.weightsStore.Weights(skill)
}

// UpdateWeights validates and applies a new weight set for one skill.
func (s *Service) UpdateWeights(ctx context.Context, skill model.Skill, w fusion.FusionWeights) error {
	return s.weightsStore.UpdateWeights(ctx, skill, w)
}

// ModelInfo reports the active version and every loaded version for a
// skill.
func (s *Service) ModelInfo(skill model.Skill) (active string, loaded []string, err error) {
	active, err = s.registry.ActiveVersion(skill)
	if err != nil {
		return "", nil, err
	}
	return active, s.registry.Versions(skill), nil
}

// RateLimitInfo reports current downstream budget without consuming it.
func (s *Service) RateLimitInfo() ratelimit.Info {
	return s.limiter.Peek()
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":     s.started,
		"queueSize":   s.queueSize,
		"dedupeSize":  s.dedupeSize,
		"shardCount":  s.shardCount,
		"workerCount": 0,
	}

	if s.started {
		queueLen := s.requestQueue.Len(ctx)
		stats["workerCount"] = s.workerPool.Size()
		stats["queueLength"] = queueLen
		stats["assessments"] = s.store.Count(ctx)
		stats["subjects"] = s.store.Subjects(ctx)
		stats["weightsVersion"] = s.weightsStore.Version()
		stats["rateLimitRemaining"] = s.RateLimitInfo().Remaining

		metrics.UpdateQueueSize(queueLen)
		metrics.UpdateWorkerCount(s.workerPool.Size())
	}

	return stats
}

// Size returns the current number of entries in the deduper.
func (s *Service) Size() int64 {
	if s.deduper == nil {
		return 0
	}
	return s.deduper.Size()
}
