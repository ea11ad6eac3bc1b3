package enrich

import (
	"fmt"
	"strings"
)

// TransformFunc computes a parameter's final value. extracted is the value
// after extraction_path has been applied (may be nil if the path did not
// resolve); sourcePayload is the raw, un-extracted payload for the
// parameter's source, so transforms that need the whole collection (e.g.
// summarize_measures) are not limited to a single extracted leaf. For
// COMPUTED parameters, sourcePayload is nil and extracted is the
// already-resolved rendered_context built so far.
type TransformFunc func(extracted any, sourcePayload any) any

// TransformRegistry holds named transforms, keyed by the name a
// registry.ParameterDef.Transform references. New transforms are added here
// without touching the enrichment pipeline itself.
type TransformRegistry struct {
	transforms map[string]TransformFunc
}

// NewTransformRegistry builds a registry with the built-in transforms
// registered.
func NewTransformRegistry() *TransformRegistry {
	r := &TransformRegistry{transforms: make(map[string]TransformFunc)}
	r.Register("join_values", joinValues)
	r.Register("summarize_measures", summarizeMeasures)
	return r
}

// Register adds or replaces a named transform.
func (r *TransformRegistry) Register(name string, fn TransformFunc) {
	r.transforms[name] = fn
}

// Apply runs the named transform, or returns extracted unchanged if name is
// not registered — an unknown transform name is a static catalogue bug, not
// a runtime failure condition the pipeline should fail a request over.
func (r *TransformRegistry) Apply(name string, extracted any, sourcePayload any) any {
	fn, ok := r.transforms[name]
	if !ok {
		return extracted
	}
	return fn(extracted, sourcePayload)
}

// joinValues joins a slice of strings (however sourced) with ", ". If
// extraction already resolved to a []any of strings, that is used directly;
// otherwise it falls back to pulling a "title" field from each element of
// sourcePayload (the shape collaborators.Strategy etc. produce).
func joinValues(extracted any, sourcePayload any) any {
	if items, ok := extracted.([]any); ok {
		return joinAnySlice(items)
	}
	if items, ok := sourcePayload.([]any); ok {
		return joinAnySlice(extractTitles(items))
	}
	return extracted
}

func joinAnySlice(items []any) string {
	parts := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok && s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ", ")
}

func extractTitles(items []any) []any {
	titles := make([]any, 0, len(items))
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if title, ok := m["title"].(string); ok {
			titles = append(titles, title)
		}
	}
	return titles
}

// summarizeMeasures renders a one-paragraph summary from a list of measures
// (collaborators.Measure, after the JSON round-trip). Intentionally simple:
// the richer version of this would itself be an LLM call, but that is out
// of scope for parameter enrichment, which must stay synchronous and cheap.
func summarizeMeasures(extracted any, sourcePayload any) any {
	items, ok := sourcePayload.([]any)
	if !ok || len(items) == 0 {
		return extracted
	}

	var lines []string
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		name, _ := m["name"].(string)
		unit, _ := m["unit"].(string)
		target, _ := m["target"].(float64)
		if name == "" {
			continue
		}
		lines = append(lines, fmt.Sprintf("%s (target %.0f %s)", name, target, unit))
	}
	if len(lines) == 0 {
		return extracted
	}
	return strings.Join(lines, "; ")
}
