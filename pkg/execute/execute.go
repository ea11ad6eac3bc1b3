// Package execute implements the Synchronous Executor: the single,
// stateless pipeline that turns a topic_id + parameters request into a
// schema-validated structured response, per spec §4.6. Both the
// synchronous /ai/execute endpoint and the async job worker call the same
// Execute entry point.
package execute

import (
	"context"
	"encoding/json"
	"time"

	"github.com/codeready-toolchain/gateway/pkg/apperr"
	"github.com/codeready-toolchain/gateway/pkg/enrich"
	"github.com/codeready-toolchain/gateway/pkg/llm"
	"github.com/codeready-toolchain/gateway/pkg/prompt"
	"github.com/codeready-toolchain/gateway/pkg/registry"
)

// Caller identifies who is asking, for scoping collaborator lookups and
// access control further up the stack.
type Caller struct {
	TenantID string
	UserID   string
}

// Request is one synchronous execution request.
type Request struct {
	TopicID    string
	Parameters map[string]any
}

// Metadata accompanies every successful Result.
type Metadata struct {
	Model            string `json:"model"`
	TokensUsed       int    `json:"tokens_used"`
	ProcessingTimeMs int64  `json:"processing_time_ms"`
	FinishReason     string `json:"finish_reason"`
}

// Result is the successful outcome of Execute.
type Result struct {
	TopicID   string         `json:"topic_id"`
	Success   bool           `json:"success"`
	Data      map[string]any `json:"data"`
	SchemaRef string         `json:"schema_ref"`
	Metadata  Metadata       `json:"metadata"`
}

// Executor wires the Topic Registry, enrichment pipeline, prompt renderer,
// LLM registry, and response model registry into the six steps spec §4.6
// names. It carries no per-request state.
type Executor struct {
	topics    *registry.Registry
	enricher  *enrich.Pipeline
	renderer  *prompt.Renderer
	models    *llm.Registry
	responses *registry.SchemaRegistry
}

// New builds an Executor from its collaborating components.
func New(topics *registry.Registry, enricher *enrich.Pipeline, renderer *prompt.Renderer, models *llm.Registry, responses *registry.SchemaRegistry) *Executor {
	return &Executor{topics: topics, enricher: enricher, renderer: renderer, models: models, responses: responses}
}

// Execute runs the full pipeline for req on behalf of caller. All returned
// errors are *apperr.Error, mapped to the taxonomy in spec §7.
func (e *Executor) Execute(ctx context.Context, req Request, caller Caller) (*Result, error) {
	start := time.Now()

	topic, err := e.topics.Get(req.TopicID)
	if err != nil {
		return nil, err
	}
	if topic.Type == registry.TopicTypeConversationCoaching {
		return nil, apperr.New(apperr.CodeWrongTopicType,
			"conversation coaching topics are served by the conversation session engine, not /ai/execute")
	}

	runtimeConfig, err := e.topics.MergeRuntimeConfig(ctx, req.TopicID)
	if err != nil {
		return nil, err
	}

	scope := enrich.Scope{TenantID: caller.TenantID, UserID: caller.UserID}
	params, err := e.enricher.Enrich(ctx, topic, req.Parameters, scope)
	if err != nil {
		return nil, err
	}

	systemTemplate, err := e.renderer.Render(ctx, req.TopicID, prompt.RoleSystem, params)
	if err != nil {
		return nil, err
	}
	userTemplate, err := e.renderer.Render(ctx, req.TopicID, prompt.RoleUser, params)
	if err != nil {
		return nil, err
	}

	schemaJSON, err := e.responses.GetSchemaJSON(topic.ResponseModelRef)
	if err != nil {
		return nil, err
	}

	invokeCtx := ctx
	if runtimeConfig.Timeout > 0 {
		var cancel context.CancelFunc
		invokeCtx, cancel = context.WithTimeout(ctx, runtimeConfig.Timeout)
		defer cancel()
	}

	resp, err := e.models.Invoke(invokeCtx, llm.Request{
		ModelCode: runtimeConfig.ModelCode,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: systemTemplate},
			{Role: llm.RoleUser, Content: userTemplate},
		},
		Temperature: runtimeConfig.Temperature,
		MaxTokens:   runtimeConfig.MaxTokens,
		Schema:      schemaJSON,
	})
	if err != nil {
		return nil, err
	}

	data, err := parseAndValidate(e.responses, topic.ResponseModelRef, resp.Content)
	if err != nil {
		return nil, err
	}

	return &Result{
		TopicID:   req.TopicID,
		Success:   true,
		Data:      data,
		SchemaRef: topic.ResponseModelRef,
		Metadata: Metadata{
			Model:            runtimeConfig.ModelCode,
			TokensUsed:       resp.TokensUsed,
			ProcessingTimeMs: time.Since(start).Milliseconds(),
			FinishReason:     resp.FinishReason,
		},
	}, nil
}

// parseAndValidate unmarshals the LLM's raw content and validates it
// against the topic's declared response model, per spec §4.2/§4.6 step 6.
func parseAndValidate(responses *registry.SchemaRegistry, schemaRef, content string) (map[string]any, error) {
	var doc map[string]any
	if err := json.Unmarshal([]byte(content), &doc); err != nil {
		return nil, apperr.Wrap(apperr.CodeProviderMalformedOutput, "model output is not valid JSON", err)
	}
	if appErr := responses.Validate(schemaRef, doc); appErr != nil {
		return nil, appErr
	}
	return doc, nil
}
