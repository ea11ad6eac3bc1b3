package llm

import (
	"context"
	"errors"
	"time"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/codeready-toolchain/gateway/pkg/apperr"
)

// messagesClient captures the subset of the Anthropic SDK used here, so
// tests can substitute a fake without hitting the network.
type messagesClient interface {
	New(ctx context.Context, body sdk.MessageNewParams, opts ...option.RequestOption) (*sdk.Message, error)
}

// AnthropicProvider invokes Claude models via the Anthropic Messages API.
type AnthropicProvider struct {
	client messagesClient
}

// NewAnthropicProvider builds a provider from an API key.
func NewAnthropicProvider(apiKey string) *AnthropicProvider {
	client := sdk.NewClient(option.WithAPIKey(apiKey))
	return &AnthropicProvider{client: &client.Messages}
}

// Invoke implements Provider.
func (p *AnthropicProvider) Invoke(ctx context.Context, req Request) (Response, error) {
	start := time.Now()

	params := sdk.MessageNewParams{
		Model:     sdk.Model(req.ModelCode),
		MaxTokens: int64(req.MaxTokens),
	}
	if req.Temperature > 0 {
		params.Temperature = sdk.Float(req.Temperature)
	}

	var conversation []sdk.MessageParam
	for _, m := range req.Messages {
		switch m.Role {
		case RoleSystem:
			params.System = append(params.System, sdk.TextBlockParam{Text: m.Content})
		case RoleUser:
			conversation = append(conversation, sdk.NewUserMessage(sdk.NewTextBlock(m.Content)))
		case RoleAssistant:
			conversation = append(conversation, sdk.NewAssistantMessage(sdk.NewTextBlock(m.Content)))
		}
	}
	if len(conversation) == 0 {
		return Response{}, apperr.New(apperr.CodeProviderRefused, "anthropic: at least one user message is required")
	}
	params.Messages = conversation

	msg, err := p.client.New(ctx, params)
	if err != nil {
		return Response{}, classifyAnthropicError(err)
	}

	var content string
	for _, block := range msg.Content {
		if block.Type == "text" {
			content += block.Text
		}
	}

	resp := Response{
		Content:          content,
		FinishReason:     string(msg.StopReason),
		ProcessingTimeMs: elapsedMs(start),
	}
	if u := msg.Usage; u.InputTokens != 0 || u.OutputTokens != 0 {
		resp.TokensUsed = int(u.InputTokens + u.OutputTokens)
	} else {
		resp.TokensUsed = EstimateTokens(content)
		resp.TokensApproximate = true
	}
	return resp, nil
}

// classifyAnthropicError maps SDK-level failures onto the shared provider
// error taxonomy (spec §7). The Anthropic SDK surfaces an *sdk.Error with an
// HTTP status code for every API-level failure.
func classifyAnthropicError(err error) error {
	var apiErr *sdk.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case 429:
			return apperr.Wrap(apperr.CodeProviderRateLimited, "anthropic: rate limited", err)
		case 408, 504:
			return apperr.Wrap(apperr.CodeProviderTimeout, "anthropic: request timed out", err)
		case 400, 422:
			return apperr.Wrap(apperr.CodeProviderRefused, "anthropic: request refused", err)
		default:
			return apperr.Wrap(apperr.CodeProviderUnavailable, "anthropic: provider error", err)
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return apperr.Wrap(apperr.CodeProviderTimeout, "anthropic: request timed out", err)
	}
	return apperr.Wrap(apperr.CodeProviderUnavailable, "anthropic: transport error", err)
}
