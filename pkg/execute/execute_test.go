package execute

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/gateway/pkg/apperr"
	"github.com/codeready-toolchain/gateway/pkg/collaborators"
	"github.com/codeready-toolchain/gateway/pkg/enrich"
	"github.com/codeready-toolchain/gateway/pkg/llm"
	"github.com/codeready-toolchain/gateway/pkg/prompt"
	"github.com/codeready-toolchain/gateway/pkg/registry"
)

type fakeBusinessClient struct {
	foundation *collaborators.BusinessFoundation
	err        error
}

func (f *fakeBusinessClient) GetFoundation(ctx context.Context, tenantID string) (*collaborators.BusinessFoundation, error) {
	return f.foundation, f.err
}

type fakeTemplateStore struct {
	systemBody string
	userBody   string
}

func (f *fakeTemplateStore) GetActive(ctx context.Context, topicID string, role prompt.Role) (string, error) {
	if role == prompt.RoleSystem {
		return f.systemBody, nil
	}
	return f.userBody, nil
}

type fakeProvider struct {
	content string
	err     error
}

func (f *fakeProvider) Invoke(ctx context.Context, req llm.Request) (llm.Response, error) {
	if f.err != nil {
		return llm.Response{}, f.err
	}
	return llm.Response{Content: f.content, FinishReason: "stop", TokensUsed: 42}, nil
}

func newTestExecutor(t *testing.T, providerContent string, providerErr error) *Executor {
	t.Helper()

	topics := registry.New(nil, nil)
	enricher := enrich.New(enrich.Clients{
		Business: &fakeBusinessClient{err: collaborators.ErrNotFound},
	}, nil)
	renderer := prompt.NewRenderer(&fakeTemplateStore{
		systemBody: "You are a coach reviewing a niche.",
		userBody:   "Current niche: {current_value}",
	}, nil)
	models := llm.NewRegistry(
		map[string]llm.ModelEntry{"anthropic-default": {Variant: llm.VariantAnthropicManaged, ModelIdentifier: "claude-sonnet-4-5"}},
		map[llm.Variant]llm.Provider{llm.VariantAnthropicManaged: &fakeProvider{content: providerContent, err: providerErr}},
	)
	responses := registry.NewSchemaRegistry()

	return New(topics, enricher, renderer, models, responses)
}

func TestExecuteHappyPath(t *testing.T) {
	e := newTestExecutor(t, `{"assessment":"vague","suggested_niches":["Boutique fitness coaching for busy parents"],"reasoning":"Sharper, more specific audience targeting."}`, nil)

	result, err := e.Execute(context.Background(), Request{
		TopicID:    "niche_review",
		Parameters: map[string]any{"current_value": "fitness coaching"},
	}, Caller{TenantID: "t1", UserID: "u1"})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "NicheReviewResult", result.SchemaRef)
	assert.Equal(t, 42, result.Metadata.TokensUsed)
	assert.Equal(t, "vague", result.Data["assessment"])
}

func TestExecuteRejectsUnknownTopic(t *testing.T) {
	e := newTestExecutor(t, `{}`, nil)

	_, err := e.Execute(context.Background(), Request{TopicID: "does_not_exist"}, Caller{TenantID: "t1", UserID: "u1"})
	require.Error(t, err)

	var appErr *apperr.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperr.CodeTopicNotFound, appErr.Code)
}

func TestExecuteRejectsConversationCoachingTopic(t *testing.T) {
	e := newTestExecutor(t, `{}`, nil)

	// core_values is declared as a conversation-coaching topic in the catalogue.
	_, err := e.Execute(context.Background(), Request{TopicID: "core_values"}, Caller{TenantID: "t1", UserID: "u1"})
	require.Error(t, err)

	var appErr *apperr.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperr.CodeWrongTopicType, appErr.Code)
}

func TestExecuteRejectsMissingRequiredParameter(t *testing.T) {
	e := newTestExecutor(t, `{}`, nil)

	_, err := e.Execute(context.Background(), Request{TopicID: "niche_review"}, Caller{TenantID: "t1", UserID: "u1"})
	require.Error(t, err)

	var appErr *apperr.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperr.CodeMissingParameter, appErr.Code)
}

func TestExecuteRejectsMalformedModelOutput(t *testing.T) {
	e := newTestExecutor(t, `not json`, nil)

	_, err := e.Execute(context.Background(), Request{
		TopicID:    "niche_review",
		Parameters: map[string]any{"current_value": "fitness coaching"},
	}, Caller{TenantID: "t1", UserID: "u1"})
	require.Error(t, err)

	var appErr *apperr.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperr.CodeProviderMalformedOutput, appErr.Code)
}

func TestExecuteRejectsSchemaInvalidOutput(t *testing.T) {
	e := newTestExecutor(t, `{"assessment":"not_a_valid_enum_value"}`, nil)

	_, err := e.Execute(context.Background(), Request{
		TopicID:    "niche_review",
		Parameters: map[string]any{"current_value": "fitness coaching"},
	}, Caller{TenantID: "t1", UserID: "u1"})
	require.Error(t, err)

	var appErr *apperr.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperr.CodeLLMOutputInvalid, appErr.Code)
}
