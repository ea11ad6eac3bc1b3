package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/codeready-toolchain/gateway/pkg/apperr"
	"github.com/codeready-toolchain/gateway/pkg/cache"
)

// OverrideStore persists per-topic runtime config overrides, keyed by
// topic_id, as described in spec §6.4.
type OverrideStore interface {
	Get(ctx context.Context, topicID string) (*RuntimeConfig, error)
}

// pgOverrideStore reads topic_overrides rows via pgx.
type pgOverrideStore struct {
	pool *pgxpool.Pool
}

// NewPGOverrideStore creates an OverrideStore backed by Postgres.
func NewPGOverrideStore(pool *pgxpool.Pool) OverrideStore {
	return &pgOverrideStore{pool: pool}
}

func (s *pgOverrideStore) Get(ctx context.Context, topicID string) (*RuntimeConfig, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, `SELECT runtime_json FROM topic_overrides WHERE topic_id = $1`, topicID).Scan(&raw)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("query topic override: %w", err)
	}

	var override RuntimeConfig
	if err := json.Unmarshal(raw, &override); err != nil {
		return nil, fmt.Errorf("unmarshal topic override: %w", err)
	}
	return &override, nil
}

// Registry is the Topic Registry: an immutable static catalogue plus a
// cached, overridable runtime config layer. Readers need no locks — the
// catalogue itself never changes after construction.
type Registry struct {
	topics    map[string]*Topic
	overrides OverrideStore
	cache     cache.Cache
}

// New constructs a Registry over the built-in catalogue. overrides and c may
// both be nil, in which case runtime config always resolves to the static
// definition.
func New(overrides OverrideStore, c cache.Cache) *Registry {
	return &Registry{
		topics:    builtinTopics(),
		overrides: overrides,
		cache:     c,
	}
}

// Get resolves a topic by id.
func (r *Registry) Get(topicID string) (*Topic, error) {
	t, ok := r.topics[topicID]
	if !ok {
		return nil, apperr.New(apperr.CodeTopicNotFound, fmt.Sprintf("topic %q not found", topicID))
	}
	if !t.IsActive {
		return nil, apperr.New(apperr.CodeTopicInactive, fmt.Sprintf("topic %q is inactive", topicID))
	}
	return t, nil
}

// ListFilter narrows List results.
type ListFilter struct {
	Type       *TopicType
	Category   *Category
	ActiveOnly bool
}

// List enumerates topics matching filter, in catalogue order. Inactive
// topics are only discoverable when ActiveOnly is false, per spec's open
// question on undocumented inactive topics.
func (r *Registry) List(filter ListFilter) []*Topic {
	var out []*Topic
	for _, t := range builtinTopicsOrdered(r.topics) {
		if filter.ActiveOnly && !t.IsActive {
			continue
		}
		if filter.Type != nil && t.Type != *filter.Type {
			continue
		}
		if filter.Category != nil && t.Category != *filter.Category {
			continue
		}
		out = append(out, t)
	}
	return out
}

// builtinTopicsOrdered returns topics in the stable order they were declared
// in catalogue.go (insertion order of the slice literal), so List output is
// deterministic.
func builtinTopicsOrdered(topics map[string]*Topic) []*Topic {
	order := []string{
		"niche_review", "alignment_check", "website_scan", "measure_insight",
		"core_values", "purpose", "vision",
	}
	out := make([]*Topic, 0, len(order))
	for _, id := range order {
		if t, ok := topics[id]; ok {
			out = append(out, t)
		}
	}
	return out
}

// MergeRuntimeConfig combines a topic's static RuntimeConfig with any
// persisted override, consulting the TTL cache first. On store failure the
// static definition is returned with a logged warning — runtime-config
// failures are non-fatal (degraded mode), per spec §4.1.
func (r *Registry) MergeRuntimeConfig(ctx context.Context, topicID string) (RuntimeConfig, error) {
	topic, err := r.Get(topicID)
	if err != nil {
		return RuntimeConfig{}, err
	}

	override := r.lookupOverride(ctx, topicID)
	if override == nil {
		return topic.RuntimeConfig, nil
	}
	return mergeConfig(topic.RuntimeConfig, *override), nil
}

func (r *Registry) lookupOverride(ctx context.Context, topicID string) *RuntimeConfig {
	if r.overrides == nil {
		return nil
	}

	cacheKey := "topic_override:" + topicID
	if r.cache != nil {
		if raw, ok, err := r.cache.Get(ctx, cacheKey); err == nil && ok {
			var cfg RuntimeConfig
			if json.Unmarshal(raw, &cfg) == nil {
				return &cfg
			}
		}
	}

	override, err := r.overrides.Get(ctx, topicID)
	if err != nil {
		slog.Warn("topic override lookup failed, falling back to static definition",
			"topic_id", topicID, "error", err)
		return nil
	}
	if override == nil {
		return nil
	}

	if r.cache != nil {
		if raw, err := json.Marshal(override); err == nil {
			if err := r.cache.Set(ctx, cacheKey, raw); err != nil {
				slog.Warn("failed to populate topic override cache", "topic_id", topicID, "error", err)
			}
		}
	}

	return override
}

// mergeConfig overlays non-zero override fields onto base.
func mergeConfig(base, override RuntimeConfig) RuntimeConfig {
	merged := base
	if override.ModelCode != "" {
		merged.ModelCode = override.ModelCode
	}
	if override.Temperature != 0 {
		merged.Temperature = override.Temperature
	}
	if override.MaxTokens != 0 {
		merged.MaxTokens = override.MaxTokens
	}
	if override.Timeout != 0 {
		merged.Timeout = override.Timeout
	}
	if override.IdleTimeout != 0 {
		merged.IdleTimeout = override.IdleTimeout
	}
	if override.MaxTurns != 0 {
		merged.MaxTurns = override.MaxTurns
	}
	return merged
}
