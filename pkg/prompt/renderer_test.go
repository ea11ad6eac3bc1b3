package prompt

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/gateway/pkg/apperr"
	"github.com/codeready-toolchain/gateway/pkg/cache"
)

type fakeStore struct {
	calls int
	body  string
	err   error
}

func (f *fakeStore) GetActive(ctx context.Context, topicID string, role Role) (string, error) {
	f.calls++
	return f.body, f.err
}

func TestRendererGetTemplateCachesAcrossCalls(t *testing.T) {
	store := &fakeStore{body: "Hello {name}."}
	r := NewRenderer(store, cache.NewMemory(time.Minute))
	ctx := context.Background()

	first, err := r.GetTemplate(ctx, "core_values", RoleSystem)
	require.NoError(t, err)
	second, err := r.GetTemplate(ctx, "core_values", RoleSystem)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, store.calls)
}

func TestRendererRenderEndToEnd(t *testing.T) {
	store := &fakeStore{body: "Hello {name}, welcome to coaching."}
	r := NewRenderer(store, nil)

	out, err := r.Render(context.Background(), "core_values", RoleInitiation, map[string]any{"name": "Sam"})
	require.NoError(t, err)
	assert.Equal(t, "Hello Sam, welcome to coaching.", out)
}

func TestRendererPropagatesStoreNotFound(t *testing.T) {
	store := &fakeStore{err: apperr.New(apperr.CodeTemplateNotFound, "not found")}
	r := NewRenderer(store, nil)

	_, err := r.GetTemplate(context.Background(), "unknown_topic", RoleSystem)
	require.Error(t, err)

	var appErr *apperr.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperr.CodeTemplateNotFound, appErr.Code)
}
