package llm

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
	"github.com/openai/openai-go/shared/constant"

	"github.com/codeready-toolchain/gateway/pkg/apperr"
)

// chatClient captures the subset of the OpenAI SDK used here, so tests can
// substitute a fake without hitting the network.
type chatClient interface {
	New(ctx context.Context, params openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

// OpenAIProvider invokes GPT models, or any OpenAI-compatible endpoint, via
// the Chat Completions API.
type OpenAIProvider struct {
	client chatClient
}

// NewOpenAIProvider builds a provider. baseURL may be empty for the standard
// OpenAI endpoint, or point at an OpenAI-compatible gateway.
func NewOpenAIProvider(apiKey, baseURL string) *OpenAIProvider {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	client := openai.NewClient(opts...)
	return &OpenAIProvider{client: &client.Chat.Completions}
}

// Invoke implements Provider.
func (p *OpenAIProvider) Invoke(ctx context.Context, req Request) (Response, error) {
	start := time.Now()

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(req.ModelCode),
		Messages: convertOpenAIMessages(req.Messages),
	}
	if req.Temperature > 0 {
		params.Temperature = openai.Float(req.Temperature)
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}
	if req.Schema != nil {
		var schemaDoc any
		if err := json.Unmarshal(req.Schema, &schemaDoc); err != nil {
			return Response{}, apperr.Wrap(apperr.CodeProviderMalformedOutput, "openai: invalid response schema", err)
		}
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &shared.ResponseFormatJSONSchemaParam{
				Type: constant.JSONSchema("json_schema"),
				JSONSchema: shared.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   "structured_output",
					Schema: schemaDoc,
					Strict: openai.Bool(true),
				},
			},
		}
	}

	completion, err := p.client.New(ctx, params)
	if err != nil {
		return Response{}, classifyOpenAIError(err)
	}
	if len(completion.Choices) == 0 {
		return Response{}, apperr.New(apperr.CodeProviderMalformedOutput, "openai: response contained no choices")
	}

	choice := completion.Choices[0]
	resp := Response{
		Content:          choice.Message.Content,
		Structured:       req.Schema != nil,
		FinishReason:     string(choice.FinishReason),
		ProcessingTimeMs: elapsedMs(start),
	}
	if u := completion.Usage; u.TotalTokens != 0 {
		resp.TokensUsed = int(u.TotalTokens)
	} else {
		resp.TokensUsed = EstimateTokens(resp.Content)
		resp.TokensApproximate = true
	}
	return resp, nil
}

func convertOpenAIMessages(messages []Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			out = append(out, openai.SystemMessage(m.Content))
		case RoleUser:
			out = append(out, openai.UserMessage(m.Content))
		case RoleAssistant:
			out = append(out, openai.AssistantMessage(m.Content))
		}
	}
	return out
}

// classifyOpenAIError maps SDK-level failures onto the shared provider error
// taxonomy (spec §7). The OpenAI SDK surfaces an *openai.Error with an HTTP
// status code for every API-level failure.
func classifyOpenAIError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case 429:
			return apperr.Wrap(apperr.CodeProviderRateLimited, "openai: rate limited", err)
		case 408, 504:
			return apperr.Wrap(apperr.CodeProviderTimeout, "openai: request timed out", err)
		case 400, 422:
			return apperr.Wrap(apperr.CodeProviderRefused, "openai: request refused", err)
		default:
			return apperr.Wrap(apperr.CodeProviderUnavailable, "openai: provider error", err)
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return apperr.Wrap(apperr.CodeProviderTimeout, "openai: request timed out", err)
	}
	return apperr.Wrap(apperr.CodeProviderUnavailable, "openai: transport error", err)
}
