package registry

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/codeready-toolchain/gateway/pkg/apperr"
)

// SchemaRegistry is the Response Model Registry: a compiled-once set of JSON
// Schema documents that every topic's LLM output is validated against
// before it is returned to a caller, per spec §4.2.
type SchemaRegistry struct {
	schemas map[string]*jsonschema.Schema
}

// NewSchemaRegistry compiles the built-in response model schemas. A compile
// failure here is a programmer error in the static schema documents, so it
// panics at startup rather than being reported as a runtime error.
func NewSchemaRegistry() *SchemaRegistry {
	compiler := jsonschema.NewCompiler()
	compiled := make(map[string]*jsonschema.Schema, len(responseModelSchemas))

	for name, raw := range responseModelSchemas {
		var doc any
		if err := json.Unmarshal([]byte(raw), &doc); err != nil {
			panic(fmt.Sprintf("response model %s: invalid schema JSON: %v", name, err))
		}

		uri := "mem://response-models/" + name + ".json"
		if err := compiler.AddResource(uri, doc); err != nil {
			panic(fmt.Sprintf("response model %s: add resource: %v", name, err))
		}

		schema, err := compiler.Compile(uri)
		if err != nil {
			panic(fmt.Sprintf("response model %s: compile: %v", name, err))
		}
		compiled[name] = schema
	}

	return &SchemaRegistry{schemas: compiled}
}

// GetSchema returns the compiled schema registered under name (a topic's
// ResponseModelRef).
func (r *SchemaRegistry) GetSchema(name string) (*jsonschema.Schema, error) {
	schema, ok := r.schemas[name]
	if !ok {
		return nil, apperr.New(apperr.CodeTemplateNotFound, fmt.Sprintf("response model %q not registered", name))
	}
	return schema, nil
}

// GetSchemaJSON returns the raw JSON Schema document registered under name,
// for providers that need to hand the schema itself to the model (e.g.
// OpenAI's structured output mode).
func (r *SchemaRegistry) GetSchemaJSON(name string) ([]byte, error) {
	raw, ok := responseModelSchemas[name]
	if !ok {
		return nil, apperr.New(apperr.CodeTemplateNotFound, fmt.Sprintf("response model %q not registered", name))
	}
	return []byte(raw), nil
}

// ValidationIssue is one leaf of a jsonschema validation failure tree,
// flattened into the shape callers report back over the wire.
type ValidationIssue struct {
	Path     string `json:"path"`
	Kind     string `json:"kind"`
	Expected string `json:"expected,omitempty"`
	Actual   string `json:"actual,omitempty"`
}

// Validate checks value (already unmarshaled into `any`, typically via
// json.Unmarshal into map[string]any) against the named response model
// schema. On failure it returns apperr.CodeLLMOutputInvalid carrying the
// flattened issue list under the "issues" field, per SPEC_FULL C.1.
func (r *SchemaRegistry) Validate(name string, value any) *apperr.Error {
	schema, err := r.GetSchema(name)
	if err != nil {
		if appErr, ok := err.(*apperr.Error); ok {
			return appErr
		}
		return apperr.Wrap(apperr.CodeInternalError, "schema lookup failed", err)
	}

	if err := schema.Validate(value); err != nil {
		issues := flattenValidationError(err)
		return apperr.New(apperr.CodeLLMOutputInvalid, "response failed schema validation").
			WithField("issues", issues)
	}
	return nil
}

// flattenValidationError walks a jsonschema.ValidationError's cause tree
// into a flat list of leaf issues. Non-ValidationError errors (should not
// occur in practice, since Validate only ever returns *ValidationError on
// failure) are reported as a single opaque issue.
func flattenValidationError(err error) []ValidationIssue {
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return []ValidationIssue{{Path: "", Kind: "unknown", Actual: err.Error()}}
	}

	var issues []ValidationIssue
	var walk func(v *jsonschema.ValidationError)
	walk = func(v *jsonschema.ValidationError) {
		if len(v.Causes) == 0 {
			issues = append(issues, ValidationIssue{
				Path:   instanceLocationPath(v.InstanceLocation),
				Kind:   fmt.Sprintf("%T", v.ErrorKind),
				Actual: v.Error(),
			})
			return
		}
		for _, cause := range v.Causes {
			walk(cause)
		}
	}
	walk(ve)
	return issues
}

func instanceLocationPath(loc []string) string {
	if len(loc) == 0 {
		return "$"
	}
	path := "$"
	for _, seg := range loc {
		path += "/" + seg
	}
	return path
}
