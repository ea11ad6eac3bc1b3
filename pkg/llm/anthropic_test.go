package llm

import (
	"context"
	"testing"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/gateway/pkg/apperr"
)

type fakeMessagesClient struct {
	resp *sdk.Message
	err  error
}

func (f *fakeMessagesClient) New(ctx context.Context, body sdk.MessageNewParams, opts ...option.RequestOption) (*sdk.Message, error) {
	return f.resp, f.err
}

func TestAnthropicProviderInvokeReturnsContent(t *testing.T) {
	fake := &fakeMessagesClient{resp: &sdk.Message{
		Content: []sdk.ContentBlockUnion{
			{Type: "text", Text: "Here is your coaching insight."},
		},
		StopReason: "end_turn",
		Usage:      sdk.Usage{InputTokens: 120, OutputTokens: 40},
	}}
	p := &AnthropicProvider{client: fake}

	resp, err := p.Invoke(context.Background(), Request{
		ModelCode: "claude-sonnet-4-5",
		Messages: []Message{
			{Role: RoleSystem, Content: "You are a coach."},
			{Role: RoleUser, Content: "Review my niche."},
		},
		MaxTokens: 1024,
	})
	require.NoError(t, err)
	assert.Equal(t, "Here is your coaching insight.", resp.Content)
	assert.Equal(t, "end_turn", resp.FinishReason)
	assert.Equal(t, 160, resp.TokensUsed)
	assert.False(t, resp.TokensApproximate)
}

func TestAnthropicProviderInvokeRequiresUserMessage(t *testing.T) {
	p := &AnthropicProvider{client: &fakeMessagesClient{}}

	_, err := p.Invoke(context.Background(), Request{
		ModelCode: "claude-sonnet-4-5",
		Messages:  []Message{{Role: RoleSystem, Content: "You are a coach."}},
		MaxTokens: 100,
	})
	require.Error(t, err)

	var appErr *apperr.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperr.CodeProviderRefused, appErr.Code)
}

func TestAnthropicProviderClassifiesRateLimit(t *testing.T) {
	fake := &fakeMessagesClient{err: &sdk.Error{StatusCode: 429}}
	p := &AnthropicProvider{client: fake}

	_, err := p.Invoke(context.Background(), Request{
		ModelCode: "claude-sonnet-4-5",
		Messages:  []Message{{Role: RoleUser, Content: "hi"}},
		MaxTokens: 100,
	})
	require.Error(t, err)

	var appErr *apperr.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperr.CodeProviderRateLimited, appErr.Code)
}
