package repository

import (
	"context"
	"hash/fnv"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/reena96/unseenedgeai/internal/domain/model"
	"github.com/reena96/unseenedgeai/pkg/metrics"
)

// Sharded, in-memory Store implementation.
//
// Subjects hash to a fixed shard by ID, so one subject's writes never
// contend with another shard's readers. Within a shard, assessments for
// a key append to a slice; the tail is the current one.

const (
	defaultShardCount            = 16
	defaultMetricsUpdateInterval = 10 * time.Second
)

// shard holds one partition of the keyspace.
type shard struct {
	mu sync.RWMutex
	// history per key, oldest first; the last element is current.
	byKey map[model.Key][]model.SkillAssessment
	// distinct keys per subject for BySubject scans.
	subjectKeys map[string]map[model.Key]struct{}
}

func newShard() *shard {
	return &shard{
		byKey:       make(map[model.Key][]model.SkillAssessment),
		subjectKeys: make(map[string]map[model.Key]struct{}),
	}
}

// ShardedStore implements Store over a fixed set of shards.
type ShardedStore struct {
	shards                []*shard
	shardCount            int
	total                 atomic.Int64
	metricsUpdateInterval time.Duration
}

// NewShardedStore creates a store with configuration options.
func NewShardedStore(opts ...Option) *ShardedStore {
	s := &ShardedStore{
		shardCount:            defaultShardCount,
		metricsUpdateInterval: defaultMetricsUpdateInterval,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.shards = make([]*shard, s.shardCount)
	for i := range s.shards {
		s.shards[i] = newShard()
	}

	metrics.UpdateStoreShardCount(s.shardCount)
	return s
}

// StartMetricsUpdater publishes store gauges until ctx ends.
func (s *ShardedStore) StartMetricsUpdater(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(s.metricsUpdateInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				metrics.UpdateStoreRecordsTotal(int(s.total.Load()))
				metrics.UpdateStoreSubjects(s.Subjects(ctx))
			}
		}
	}()
}

func (s *ShardedStore) shardFor(subjectID string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(subjectID))
	return s.shards[int(h.Sum32())%len(s.shards)]
}

// Record persists a batch of assessments from one pipeline run.
func (s *ShardedStore) Record(ctx context.Context, assessments []model.SkillAssessment) error {
	if len(assessments) == 0 {
		return ErrEmpty
	}
	start := time.Now()
	defer func() {
		metrics.RecordStoreWriteLatency(float64(time.Since(start).Milliseconds()))
	}()

	for i := range assessments {
		a := assessments[i]
		key := a.Key()
		sh := s.shardFor(a.SubjectID)

		sh.mu.Lock()
		sh.byKey[key] = append(sh.byKey[key], a)
		keys, ok := sh.subjectKeys[a.SubjectID]
		if !ok {
			keys = make(map[model.Key]struct{})
			sh.subjectKeys[a.SubjectID] = keys
		}
		keys[key] = struct{}{}
		sh.mu.Unlock()

		s.total.Add(1)
	}
	return nil
}

// Latest returns the current assessment for a key.
func (s *ShardedStore) Latest(ctx context.Context, key model.Key) (model.SkillAssessment, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreQueryLatency(float64(time.Since(start).Milliseconds()))
	}()

	sh := s.shardFor(key.SubjectID)
	sh.mu.RLock()
	defer sh.mu.RUnlock()

	history := sh.byKey[key]
	if len(history) == 0 {
		return model.SkillAssessment{}, ErrNotFound
	}
	return history[len(history)-1], nil
}

// BySubject returns the latest assessment per (skill, period) for one
// subject, ordered by skill then period start.
func (s *ShardedStore) BySubject(ctx context.Context, subjectID string) ([]model.SkillAssessment, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreQueryLatency(float64(time.Since(start).Milliseconds()))
	}()

	sh := s.shardFor(subjectID)
	sh.mu.RLock()
	defer sh.mu.RUnlock()

	keys, ok := sh.subjectKeys[subjectID]
	if !ok {
		return nil, ErrNotFound
	}

	out := make([]model.SkillAssessment, 0, len(keys))
	for key := range keys {
		history := sh.byKey[key]
		if len(history) > 0 {
			out = append(out, history[len(history)-1])
		}
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].Skill != out[b].Skill {
			return out[a].Skill < out[b].Skill
		}
		return out[a].Period.Start.Before(out[b].Period.Start)
	})
	return out, nil
}

// History returns every assessment ever recorded for a key, oldest first.
func (s *ShardedStore) History(ctx context.Context, key model.Key) ([]model.SkillAssessment, error) {
	sh := s.shardFor(key.SubjectID)
	sh.mu.RLock()
	defer sh.mu.RUnlock()

	history := sh.byKey[key]
	if len(history) == 0 {
		return nil, ErrNotFound
	}
	out := make([]model.SkillAssessment, len(history))
	copy(out, history)
	return out, nil
}

// Subjects returns the number of distinct subjects tracked.
func (s *ShardedStore) Subjects(ctx context.Context) int {
	count := 0
	for _, sh := range s.shards {
		sh.mu.RLock()
		count += len(sh.subjectKeys)
		sh.mu.RUnlock()
	}
	return count
}

// Count returns the total number of recorded assessments.
func (s *ShardedStore) Count(ctx context.Context) int {
	return int(s.total.Load())
}
