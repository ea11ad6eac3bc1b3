package llm

import (
	"context"
	"fmt"
)

// Variant names the backend a model entry routes to.
type Variant string

const (
	VariantAnthropicManaged Variant = "ANTHROPIC_ON_MANAGED_RUNTIME"
	VariantOpenAI           Variant = "OPENAI"
	VariantLocal            Variant = "LOCAL"
)

// ModelEntry maps a logical model_code (what topics/overrides declare) to a
// concrete backend and model identifier.
type ModelEntry struct {
	Variant         Variant
	ModelIdentifier string // concrete provider-facing id, e.g. "claude-sonnet-4-5-20250929"
}

// Registry resolves model_code to the Provider that should serve it.
type Registry struct {
	entries   map[string]ModelEntry
	providers map[Variant]Provider
}

// NewRegistry builds a Registry. providers must have an entry for every
// Variant referenced by entries.
func NewRegistry(entries map[string]ModelEntry, providers map[Variant]Provider) *Registry {
	return &Registry{entries: entries, providers: providers}
}

// Resolve returns the Provider and concrete model identifier for modelCode.
func (r *Registry) Resolve(modelCode string) (Provider, string, error) {
	entry, ok := r.entries[modelCode]
	if !ok {
		return nil, "", fmt.Errorf("llm: unknown model_code %q", modelCode)
	}
	provider, ok := r.providers[entry.Variant]
	if !ok {
		return nil, "", fmt.Errorf("llm: no provider registered for variant %q", entry.Variant)
	}
	return provider, entry.ModelIdentifier, nil
}

// Invoke resolves req.ModelCode and delegates to the matching provider,
// substituting the concrete model identifier transparently.
func (r *Registry) Invoke(ctx context.Context, req Request) (Response, error) {
	provider, modelID, err := r.Resolve(req.ModelCode)
	if err != nil {
		return Response{}, err
	}
	req.ModelCode = modelID
	return provider.Invoke(ctx, req)
}
