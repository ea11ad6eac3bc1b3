package prompt

import (
	"context"
	"log/slog"
	"time"

	"github.com/codeready-toolchain/gateway/pkg/cache"
)

const defaultCacheTTL = 5 * time.Minute

// Renderer is the engine-facing entry point for Prompt Storage & Rendering:
// GetTemplate resolves and caches the active body for a (topic, role) pair;
// Render instantiates it against a rendered_context map.
type Renderer struct {
	store Store
	cache cache.Cache
}

// NewRenderer wraps store with an in-front TTL cache. c may be nil, in
// which case an in-memory cache with a five-minute TTL is used.
func NewRenderer(store Store, c cache.Cache) *Renderer {
	if c == nil {
		c = cache.NewMemory(defaultCacheTTL)
	}
	return &Renderer{store: store, cache: c}
}

// GetTemplate returns the active template body for (topicID, role),
// consulting the cache first.
func (r *Renderer) GetTemplate(ctx context.Context, topicID string, role Role) (string, error) {
	key := cacheKey(topicID, role)

	if raw, ok, err := r.cache.Get(ctx, key); err == nil && ok {
		return string(raw), nil
	} else if err != nil {
		slog.Warn("prompt cache read failed, falling back to store", "topic_id", topicID, "role", role, "error", err)
	}

	body, err := r.store.GetActive(ctx, topicID, role)
	if err != nil {
		return "", err
	}

	if err := r.cache.Set(ctx, key, []byte(body)); err != nil {
		slog.Warn("prompt cache write failed", "topic_id", topicID, "role", role, "error", err)
	}
	return body, nil
}

// Render fetches the active template for (topicID, role) and substitutes
// context into it.
func (r *Renderer) Render(ctx context.Context, topicID string, role Role, context map[string]any) (string, error) {
	template, err := r.GetTemplate(ctx, topicID, role)
	if err != nil {
		return "", err
	}
	return Render(template, context)
}

func cacheKey(topicID string, role Role) string {
	return "prompt:" + topicID + ":" + string(role)
}
