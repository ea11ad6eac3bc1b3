// Package prompt implements Prompt Storage & Rendering: versioned,
// content-addressed templates per topic/role, and the {name} substitution
// engine that turns a rendered_context map into request text, per spec
// §4.4.
package prompt

import (
	"context"
	"fmt"
	"regexp"

	"github.com/codeready-toolchain/gateway/pkg/apperr"
)

// Role is the position a template occupies in a topic's prompt sequence.
type Role string

const (
	RoleSystem     Role = "SYSTEM"
	RoleUser       Role = "USER"
	RoleResume     Role = "RESUME"
	RoleInitiation Role = "INITIATION"
)

// Store is the content-addressed template backing store.
type Store interface {
	// GetActive returns the body of the active version for (topicID, role).
	GetActive(ctx context.Context, topicID string, role Role) (string, error)
}

var placeholderRe = regexp.MustCompile(`\{[a-zA-Z0-9_]+\}`)

// Render substitutes every {name} placeholder in template with its value
// from context, formatted via fmt.Sprint. A placeholder with no matching
// context entry fails fast with TemplateUnresolved, per spec §4.4.
func Render(template string, context map[string]any) (string, error) {
	var unresolved string
	rendered := placeholderRe.ReplaceAllStringFunc(template, func(match string) string {
		name := match[1 : len(match)-1]
		val, ok := context[name]
		if !ok {
			if unresolved == "" {
				unresolved = name
			}
			return match
		}
		return fmt.Sprint(val)
	})

	if unresolved != "" {
		return "", apperr.New(apperr.CodeTemplateUnresolved,
			fmt.Sprintf("placeholder %q has no matching context entry", unresolved)).
			WithField("name", unresolved)
	}
	return rendered, nil
}
