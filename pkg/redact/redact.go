// Package redact builds loggable summaries of enriched parameter values so
// that tenant-sensitive content never reaches an info-level log line, per
// spec §4.3 and the no-raw-content testable property in spec §8.
package redact

import (
	"fmt"
	"reflect"
)

// Summary is a redacted stand-in for a parameter value: its shape, never its
// content. It implements fmt.Stringer so it can be passed directly to
// slog.Any without the caller needing to call String() itself.
type Summary struct {
	Type   string `json:"type"`
	Length int    `json:"length,omitempty"`
}

func (s Summary) String() string {
	if s.Length > 0 {
		return fmt.Sprintf("%s(len=%d)", s.Type, s.Length)
	}
	return s.Type
}

// Value summarizes a single parameter value by type and size, never its
// content. Safe to pass to any logger at any level.
func Value(v any) Summary {
	if v == nil {
		return Summary{Type: "nil"}
	}

	switch val := v.(type) {
	case string:
		return Summary{Type: "string", Length: len(val)}
	case []byte:
		return Summary{Type: "bytes", Length: len(val)}
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		return Summary{Type: rv.Kind().String(), Length: rv.Len()}
	case reflect.Ptr:
		if rv.IsNil() {
			return Summary{Type: "nil"}
		}
		return Value(rv.Elem().Interface())
	default:
		return Summary{Type: fmt.Sprintf("%T", v)}
	}
}

// Params summarizes an entire resolved-parameter map, keyed by parameter
// name, for a single debug-level log line — e.g.
// slog.Debug("parameters resolved", "params", redact.Params(resolved)).
func Params(params map[string]any) map[string]Summary {
	out := make(map[string]Summary, len(params))
	for name, v := range params {
		out[name] = Value(v)
	}
	return out
}

// Keys returns just the parameter names, with no shape or content — the
// minimal safe summary when even lengths are considered sensitive (e.g. a
// single-character goal title would leak through Length).
func Keys(params map[string]any) []string {
	keys := make([]string, 0, len(params))
	for name := range params {
		keys = append(keys, name)
	}
	return keys
}
