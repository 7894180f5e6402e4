package registry

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/reena96/unseenedgeai/internal/domain/model"
	"github.com/reena96/unseenedgeai/pkg/logger"
	"github.com/reena96/unseenedgeai/pkg/metrics"
)

// manifestFile is the expected manifest name inside the model directory.
const manifestFile = "manifest.json"

// manifestEntry describes one artifact in the manifest.
type manifestEntry struct {
	Skill    string `json:"skill"`
	Version  string `json:"version"`
	Path     string `json:"path"`
	Checksum string `json:"checksum"`
}

// manifest is the on-disk index of trained artifacts.
type manifest struct {
	Models []manifestEntry `json:"models"`
}

// Registry keeps a (skill, version) arena of loaded models with one
// atomically-swapped active model per skill. Readers never observe a
// half-updated model: reload builds the new entry fully, then swaps the
// pointer.
type Registry struct {
	mu  sync.Mutex // guards arena and load/reload; reads go through atomics
	dir string

	arena  map[model.Skill]map[string]*Ensemble
	active [model.SkillCount]atomic.Pointer[Ensemble]

	logger logger.Logger
}

// Option applies a configuration option to the Registry.
type Option func(*Registry)

// WithLogger sets a custom logger for the registry.
func WithLogger(l logger.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

// New creates a Registry reading artifacts from dir. Call Load before
// serving inference.
func New(dir string, opts ...Option) *Registry {
	r := &Registry{
		dir:   dir,
		arena: make(map[model.Skill]map[string]*Ensemble),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = logger.Get().Named("registry")
	}
	return r
}

// Load reads the manifest and loads every artifact. Intended for startup:
// a missing or malformed manifest is fatal to the service, and no skill
// may end up without at least one loadable model unless the manifest never
// listed it.
func (r *Registry) Load(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries, err := r.readManifest()
	if err != nil {
		return err
	}

	loaded := 0
	for _, entry := range entries {
		ens, err := r.loadEntry(entry)
		if err != nil {
			r.logger.Error(ctx, "model artifact rejected",
				logger.String("skill", entry.Skill),
				logger.String("version", entry.Version),
				logger.Error(err),
			)
			return err
		}
		r.install(ens)
		loaded++
	}
	if loaded == 0 {
		return fmt.Errorf("%w: manifest lists no models", ErrModelUnavailable)
	}
	metrics.UpdateModelsLoaded(loaded)
	r.logger.Info(ctx, "model registry loaded", logger.Int("models", loaded))
	return nil
}

// Reload re-reads the manifest without disturbing serving. Any artifact
// that fails its checksum or parse keeps the last-known-good version
// active; the failure is logged and counted, not propagated to the
// inference path.
func (r *Registry) Reload(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries, err := r.readManifest()
	if err != nil {
		metrics.RecordModelReloadFailure()
		r.logger.Warn(ctx, "model manifest reload failed; keeping active models", logger.Error(err))
		return
	}

	for _, entry := range entries {
		ens, err := r.loadEntry(entry)
		if err != nil {
			metrics.RecordModelReloadFailure()
			r.logger.Warn(ctx, "model reload failed; keeping last-known-good",
				logger.String("skill", entry.Skill),
				logger.String("version", entry.Version),
				logger.Error(err),
			)
			continue
		}
		r.install(ens)
		metrics.RecordModelReload()
	}
}

// readManifest loads and decodes the manifest file.
func (r *Registry) readManifest() ([]manifestEntry, error) {
	raw, err := os.ReadFile(filepath.Join(r.dir, manifestFile))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrManifest, err)
	}
	var m manifest
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrManifest, err)
	}
	return m.Models, nil
}

// loadEntry reads one artifact, verifies its checksum against the
// manifest, and parses it.
func (r *Registry) loadEntry(entry manifestEntry) (*Ensemble, error) {
	raw, err := os.ReadFile(filepath.Join(r.dir, entry.Path))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}
	sum := sha256.Sum256(raw)
	digest := hex.EncodeToString(sum[:])
	if digest != entry.Checksum {
		return nil, fmt.Errorf("%w: %s has %s, manifest says %s",
			ErrChecksumMismatch, entry.Path, digest, entry.Checksum)
	}
	ens, err := parseEnsemble(raw, digest)
	if err != nil {
		return nil, err
	}
	if ens.Skill().String() != entry.Skill || ens.Version() != entry.Version {
		return nil, fmt.Errorf("%w: artifact identity %s/%s does not match manifest %s/%s",
			ErrBadArtifact, ens.Skill(), ens.Version(), entry.Skill, entry.Version)
	}
	return ens, nil
}

// install adds the ensemble to the arena and makes it active for its
// skill. Superseded versions stay in the arena for audit and staged
// rollout. Caller holds r.mu.
func (r *Registry) install(ens *Ensemble) {
	skill := ens.Skill()
	if r.arena[skill] == nil {
		r.arena[skill] = make(map[string]*Ensemble)
	}
	r.arena[skill][ens.Version()] = ens
	r.active[skill].Store(ens)
}

// Active returns the currently served model for a skill.
func (r *Registry) Active(skill model.Skill) (*Ensemble, error) {
	if !skill.Valid() {
		return nil, fmt.Errorf("%w: invalid skill", ErrModelUnavailable)
	}
	ens := r.active[skill].Load()
	if ens == nil {
		return nil, fmt.Errorf("%w: no model for %s", ErrModelUnavailable, skill)
	}
	return ens, nil
}

// ActiveVersion returns the active version identifier for a skill.
func (r *Registry) ActiveVersion(skill model.Skill) (string, error) {
	ens, err := r.Active(skill)
	if err != nil {
		return "", err
	}
	return ens.Version(), nil
}

// Version returns a specific loaded version for staged rollout checks.
func (r *Registry) Version(skill model.Skill, version string) (*Ensemble, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ens, ok := r.arena[skill][version]
	if !ok {
		return nil, fmt.Errorf("%w: %s version %s not loaded", ErrModelUnavailable, skill, version)
	}
	return ens, nil
}

// Versions lists the loaded versions for a skill, for the admin surface.
func (r *Registry) Versions(skill model.Skill) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	versions := make([]string, 0, len(r.arena[skill]))
	for v := range r.arena[skill] {
		versions = append(versions, v)
	}
	return versions
}
