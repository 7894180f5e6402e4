// Package weights holds, validates, and hot-reloads the per-skill fusion
// weighting scheme and the per-skill normalization parameters.
//
// Updates are copy-on-write: a new snapshot is built and validated fully,
// then swapped in atomically, so in-flight fusions always see a
// self-consistent weight set. Invalid configurations are rejected at
// write time and never reach the fusion engine.
package weights

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/go-playground/validator/v10"

	"github.com/reena96/unseenedgeai/internal/domain/extract"
	"github.com/reena96/unseenedgeai/internal/domain/fusion"
	"github.com/reena96/unseenedgeai/internal/domain/model"
	"github.com/reena96/unseenedgeai/pkg/logger"
	"github.com/reena96/unseenedgeai/pkg/metrics"
)

// sumTolerance is the accepted deviation of the four weights from 1.0.
const sumTolerance = 1e-6

// snapshot is one immutable validated configuration generation.
type snapshot struct {
	version string
	weights [model.SkillCount]fusion.FusionWeights
	norms   [model.SkillCount]extract.SkillNorms

	// rawNorms preserves the sparse overrides from the artifact so
	// weight updates can persist them back unchanged.
	rawNorms map[string]normOverride
}

// Store serves the active configuration generation and applies updates.
type Store struct {
	mu   sync.Mutex // serializes writes and persistence
	path string

	current  atomic.Pointer[snapshot]
	validate *validator.Validate
	logger   logger.Logger
}

// Option applies a configuration option to the Store.
type Option func(*Store)

// WithLogger sets a custom logger for the store.
func WithLogger(l logger.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewStore creates a Store backed by the artifact at path. An empty path
// keeps the store purely in-memory (tests, ephemeral deployments).
func NewStore(path string, opts ...Option) *Store {
	s := &Store{
		path:     path,
		validate: validator.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("weights")
	}

	snap := &snapshot{version: "builtin-1"}
	for _, skill := range model.AllSkills() {
		snap.weights[skill] = fusion.DefaultWeights()
		snap.norms[skill] = extract.DefaultNorms(skill)
	}
	s.current.Store(snap)
	return s
}

// Load reads the artifact at startup. A missing file keeps the built-in
// defaults; a malformed file is fatal.
func (s *Store) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, found, err := s.readArtifact()
	if err != nil {
		return err
	}
	if !found {
		s.logger.Info(ctx, "no weights artifact; using built-in defaults")
		return nil
	}
	s.current.Store(snap)
	s.logger.Info(ctx, "weights configuration loaded", logger.String("version", snap.version))
	return nil
}

// Reload re-reads the artifact without restart. Failures keep the active
// generation in effect.
func (s *Store) Reload(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, found, err := s.readArtifact()
	if err != nil || !found {
		metrics.RecordWeightsReloadFailure()
		s.logger.Warn(ctx, "weights reload failed; keeping active generation", logger.Error(err))
		if err == nil {
			err = fmt.Errorf("%w: artifact missing", ErrArtifact)
		}
		return err
	}
	s.current.Store(snap)
	metrics.RecordWeightsReload()
	s.logger.Info(ctx, "weights configuration reloaded", logger.String("version", snap.version))
	return nil
}

// Weights returns the active weights for a skill along with the version
// identifier recorded on every assessment they produce.
func (s *Store) Weights(skill model.Skill) (fusion.FusionWeights, string) {
	snap := s.current.Load()
	if !skill.Valid() {
		return fusion.DefaultWeights(), snap.version
	}
	return snap.weights[skill], snap.version
}

// Norms implements extract.NormSource with the active generation's
// normalization parameters.
func (s *Store) Norms(skill model.Skill) extract.SkillNorms {
	snap := s.current.Load()
	if !skill.Valid() {
		return extract.DefaultNorms(skill)
	}
	return snap.norms[skill]
}

// Version returns the active configuration version.
func (s *Store) Version() string {
	return s.current.Load().version
}

// UpdateWeights validates and applies a new weight set for one skill,
// bumps the version, and persists the artifact. Rejected updates leave
// the active generation untouched.
func (s *Store) UpdateWeights(ctx context.Context, skill model.Skill, w fusion.FusionWeights) error {
	if !skill.Valid() {
		return fmt.Errorf("%w: invalid skill", ErrArtifact)
	}
	if err := s.validateWeights(w); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	old := s.current.Load()
	next := *old // copy-on-write: mutate the copy only
	next.weights[skill] = w
	next.version = nextVersion(old.version)

	if err := s.writeArtifact(&next); err != nil {
		return err
	}
	s.current.Store(&next)
	metrics.RecordWeightsUpdate()
	s.logger.Info(ctx, "fusion weights updated",
		logger.String("skill", skill.String()),
		logger.String("version", next.version),
	)
	return nil
}

// validateWeights enforces ranges and the sum-to-one invariant.
func (s *Store) validateWeights(w fusion.FusionWeights) error {
	if err := s.validate.Struct(w); err != nil {
		return fmt.Errorf("%w: %v", ErrWeightsSum, err)
	}
	if diff := w.Sum() - 1.0; diff > sumTolerance || diff < -sumTolerance {
		return fmt.Errorf("%w: weights sum to %.6f", ErrWeightsSum, w.Sum())
	}
	return nil
}

// nextVersion bumps a numeric version, falling back to generation 1 for
// the builtin marker.
func nextVersion(current string) string {
	if n, err := strconv.Atoi(current); err == nil {
		return strconv.Itoa(n + 1)
	}
	return "1"
}
