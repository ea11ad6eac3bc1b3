// Package apperr defines the stable error taxonomy shared by every engine
// component (registry, enrichment, prompts, providers, sessions, jobs).
// Internal functions return these typed errors; only the HTTP boundary
// (pkg/api) maps them to status codes.
package apperr

import "fmt"

// Code is a stable, wire-visible error code.
type Code string

// Error codes, grouped as in the taxonomy: input, enrichment, template,
// provider, validation, session, job, platform.
const (
	CodeTopicNotFound      Code = "TopicNotFound"
	CodeTopicInactive      Code = "TopicInactive"
	CodeWrongTopicType     Code = "WrongTopicType"
	CodeMissingParameter   Code = "MissingParameter"
	CodeParameterMalformed Code = "ParameterMalformed"

	CodeSourceUnavailable Code = "SourceUnavailable"
	CodeSourceEmpty       Code = "SourceEmpty"
	CodeSourceTimeout     Code = "SourceTimeout"

	CodeTemplateNotFound   Code = "TemplateNotFound"
	CodeTemplateUnresolved Code = "TemplateUnresolved"

	CodeProviderUnavailable     Code = "ProviderUnavailable"
	CodeProviderTimeout         Code = "ProviderTimeout"
	CodeProviderRateLimited     Code = "ProviderRateLimited"
	CodeProviderRefused         Code = "ProviderRefused"
	CodeProviderMalformedOutput Code = "ProviderMalformedOutput"

	CodeLLMOutputInvalid Code = "LLMOutputInvalid"

	CodeSessionNotFound     Code = "SESSION_NOT_FOUND"
	CodeSessionAccessDenied Code = "SESSION_ACCESS_DENIED"
	CodeSessionNotActive    Code = "SESSION_NOT_ACTIVE"
	CodeSessionConflict     Code = "SESSION_CONFLICT"
	CodeSessionExpired      Code = "SESSION_EXPIRED"
	CodeMaxTurnsReached     Code = "MAX_TURNS_REACHED"
	CodeExtractionFailed    Code = "EXTRACTION_FAILED"

	CodeRetriesExhausted  Code = "RETRIES_EXHAUSTED"
	CodeProcessingTimeout Code = "PROCESSING_TIMEOUT"

	CodeRequestTimeout Code = "RequestTimeout"
	CodeInternalError  Code = "InternalError"
)

// Error is the common shape carried by every error the engine raises.
// HTTP handlers render it as {detail: {code, message, ...fields}}.
type Error struct {
	Code    Code
	Message string
	// Fields carries structured detail referenced by specific codes, e.g.
	// {"name": "goal_id"} for MissingParameter, {"conflict_user_id": "u2"}
	// for SESSION_CONFLICT. Optional.
	Fields map[string]any
	// Cause is the wrapped underlying error, if any.
	Cause error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return string(e.Code)
}

func (e *Error) Unwrap() error { return e.Cause }

// New builds an Error with no extra fields.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap builds an Error carrying cause as its chained error.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// WithField attaches one structured field and returns the same error for chaining.
func (e *Error) WithField(key string, value any) *Error {
	if e.Fields == nil {
		e.Fields = make(map[string]any)
	}
	e.Fields[key] = value
	return e
}

// MissingParameter builds the error required by spec scenario 3: the name of
// the missing parameter is always carried as the "name" field.
func MissingParameter(name, source string) *Error {
	e := New(CodeMissingParameter, fmt.Sprintf("required parameter %q is absent from source %q", name, source))
	return e.WithField("name", name).WithField("source", source)
}

// SessionConflict builds the cross-user mutual-exclusion error, carrying the
// id of the user already holding the session.
func SessionConflict(conflictUserID string) *Error {
	return New(CodeSessionConflict, "another user already holds a non-terminal session for this topic").
		WithField("conflict_user_id", conflictUserID)
}
