package registry

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/gateway/pkg/apperr"
	"github.com/codeready-toolchain/gateway/pkg/cache"
)

func TestRegistryGetKnownTopic(t *testing.T) {
	r := New(nil, nil)

	topic, err := r.Get("niche_review")
	require.NoError(t, err)
	assert.Equal(t, TopicTypeSingleShot, topic.Type)
	assert.Equal(t, "NicheReviewResult", topic.ResponseModelRef)
}

func TestRegistryGetUnknownTopic(t *testing.T) {
	r := New(nil, nil)

	_, err := r.Get("does_not_exist")
	require.Error(t, err)

	var appErr *apperr.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperr.CodeTopicNotFound, appErr.Code)
}

func TestRegistryGetInactiveTopic(t *testing.T) {
	r := New(nil, nil)
	r.topics["disabled_topic"] = &Topic{TopicID: "disabled_topic", IsActive: false}

	_, err := r.Get("disabled_topic")
	require.Error(t, err)

	var appErr *apperr.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperr.CodeTopicInactive, appErr.Code)
}

func TestRegistryListFiltersByTypeAndActive(t *testing.T) {
	r := New(nil, nil)
	r.topics["disabled_topic"] = &Topic{
		TopicID: "disabled_topic", Type: TopicTypeSingleShot, IsActive: false,
	}

	coaching := TopicTypeConversationCoaching
	results := r.List(ListFilter{Type: &coaching, ActiveOnly: true})

	assert.Len(t, results, 3)
	for _, topic := range results {
		assert.Equal(t, TopicTypeConversationCoaching, topic.Type)
	}
}

func TestRegistryListOrderIsStable(t *testing.T) {
	r := New(nil, nil)

	first := r.List(ListFilter{})
	second := r.List(ListFilter{})
	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].TopicID, second[i].TopicID)
	}
}

type fakeOverrideStore struct {
	cfg *RuntimeConfig
	err error
}

func (f *fakeOverrideStore) Get(ctx context.Context, topicID string) (*RuntimeConfig, error) {
	return f.cfg, f.err
}

func TestMergeRuntimeConfigNoOverride(t *testing.T) {
	r := New(&fakeOverrideStore{}, nil)

	cfg, err := r.MergeRuntimeConfig(context.Background(), "niche_review")
	require.NoError(t, err)
	assert.Equal(t, "anthropic-default", cfg.ModelCode)
	assert.Equal(t, 0.7, cfg.Temperature)
}

func TestMergeRuntimeConfigWithOverride(t *testing.T) {
	r := New(&fakeOverrideStore{cfg: &RuntimeConfig{Temperature: 0.9, MaxTokens: 2048}}, nil)

	cfg, err := r.MergeRuntimeConfig(context.Background(), "niche_review")
	require.NoError(t, err)
	assert.Equal(t, 0.9, cfg.Temperature)
	assert.Equal(t, 2048, cfg.MaxTokens)
	// unset override fields fall back to the static definition
	assert.Equal(t, "anthropic-default", cfg.ModelCode)
}

func TestMergeRuntimeConfigDegradesOnStoreError(t *testing.T) {
	r := New(&fakeOverrideStore{err: errors.New("connection refused")}, nil)

	cfg, err := r.MergeRuntimeConfig(context.Background(), "niche_review")
	require.NoError(t, err)
	assert.Equal(t, "anthropic-default", cfg.ModelCode)
	assert.Equal(t, 0.7, cfg.Temperature)
}

func TestMergeRuntimeConfigUnknownTopic(t *testing.T) {
	r := New(nil, nil)

	_, err := r.MergeRuntimeConfig(context.Background(), "does_not_exist")
	require.Error(t, err)
}

func TestMergeRuntimeConfigUsesCache(t *testing.T) {
	c := cache.NewMemory(time.Minute)
	store := &fakeOverrideStore{cfg: &RuntimeConfig{Temperature: 0.9}}
	r := New(store, c)
	ctx := context.Background()

	_, err := r.MergeRuntimeConfig(ctx, "niche_review")
	require.NoError(t, err)

	raw, ok, err := c.Get(ctx, "topic_override:niche_review")
	require.NoError(t, err)
	require.True(t, ok)

	var cached RuntimeConfig
	require.NoError(t, json.Unmarshal(raw, &cached))
	assert.Equal(t, 0.9, cached.Temperature)
}
